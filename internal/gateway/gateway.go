package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdsim/ratedrps-go/internal/dependencies/clock"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
	"github.com/mdsim/ratedrps-go/internal/services/auth"
	"github.com/mdsim/ratedrps-go/internal/services/game"
	"github.com/mdsim/ratedrps-go/internal/storage"
)

const storeTimeout = 5 * time.Second

// Handler terminates websocket connections on /ws. It verifies the bearer
// token before upgrading, so a bad token is rejected with 401 and never
// creates any connection state.
type Handler struct {
	verifier auth.Verifier
	store    storage.Store
	service  *game.Service
	clock    clock.Clock
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates the websocket handler
func New(verifier auth.Verifier, store storage.Store, service *game.Service, clk clock.Clock, logger *slog.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		store:    store,
		service:  service,
		clock:    clk,
		logger:   logger.With(slog.String("component", "gateway")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws?token=<jwt>
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Warn("rejected websocket connection",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.ensurePlayer(r.Context(), claims)
	if err != nil {
		h.logger.Error("loading player failed",
			slog.String("player_id", string(claims.PlayerID)),
			slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	logger := h.logger.With(slog.String("player_id", string(claims.PlayerID)))
	c := newClient(conn, logger)
	identity := model.PlayerIdentity{
		ID:       record.ID,
		Username: record.Username,
		Rating:   record.Rating,
	}

	logger.Info("player connected")
	h.service.Connect(identity, c)

	go c.writePump()
	c.readLoop(func(env protocol.Envelope) {
		h.dispatch(c, claims, env)
	})

	h.service.Disconnect(claims.PlayerID)
	logger.Info("player disconnected")
}

// ensurePlayer loads the player's record, creating one at the default rating
// on first connection. The username always follows the token.
func (h *Handler) ensurePlayer(ctx context.Context, claims auth.Claims) (*model.PlayerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	record, err := h.store.GetPlayer(ctx, claims.PlayerID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		record = model.NewPlayerRecord(claims.PlayerID, claims.Username, h.clock.Now())
		if err := h.store.SavePlayer(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}
	if err != nil {
		return nil, err
	}

	if record.Username != claims.Username {
		record.Username = claims.Username
		record.UpdatedAt = h.clock.Now()
		if err := h.store.SavePlayer(ctx, record); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// dispatch routes one inbound envelope. The authenticated identity is
// authoritative; player ids carried in payloads are ignored.
func (h *Handler) dispatch(c *client, claims auth.Claims, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeJoinLobby:
		h.handleJoinLobby(c, claims)
	case protocol.TypeLeaveLobby:
		h.service.LeaveLobby(claims.PlayerID)
	case protocol.TypeMakeMove:
		h.handleMakeMove(c, claims, env)
	default:
		h.logger.Warn("dropping unsupported message",
			slog.String("player_id", string(claims.PlayerID)),
			slog.String("type", string(env.Type)))
	}
}

// handleJoinLobby snapshots the player's current rating and enqueues them.
// The snapshot fixes the rating used for this match's Elo computation, so a
// store failure rejects the join rather than enqueueing at a wrong rating.
func (h *Handler) handleJoinLobby(c *client, claims auth.Claims) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rating := model.DefaultRating
	record, err := h.store.GetPlayer(ctx, claims.PlayerID)
	switch {
	case err == nil:
		rating = record.Rating
	case errors.Is(err, model.ErrPlayerNotFound):
		// No record yet; the default rating is correct
	default:
		h.logger.Error("loading player rating failed",
			slog.String("player_id", string(claims.PlayerID)),
			slog.Any("error", err))
		if sendErr := c.Send(protocol.ErrorEnvelope("service temporarily unavailable")); sendErr != nil {
			h.logger.Warn("error delivery failed", slog.Any("error", sendErr))
		}
		return
	}

	identity := model.PlayerIdentity{
		ID:       claims.PlayerID,
		Username: claims.Username,
		Rating:   rating,
	}
	if err := h.service.JoinLobby(identity, c); err != nil {
		h.sendError(c, err)
	}
}

func (h *Handler) handleMakeMove(c *client, claims auth.Claims, env protocol.Envelope) {
	var payload protocol.MakeMovePayload
	if err := env.Decode(&payload); err != nil {
		h.sendError(c, err)
		return
	}

	move, err := model.ParseMove(payload.Move)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if err := h.service.SubmitMove(claims.PlayerID, model.MatchID(payload.GameID), move); err != nil {
		h.sendError(c, err)
	}
}

// sendError reports a failure to the offending connection only
func (h *Handler) sendError(c *client, err error) {
	if sendErr := c.Send(protocol.ErrorEnvelope(errorMessage(err))); sendErr != nil {
		h.logger.Warn("error delivery failed", slog.Any("error", sendErr))
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidMove):
		return "invalid move: must be rock, paper or scissors"
	case errors.Is(err, model.ErrAlreadyActive):
		return "already in the lobby or an active match"
	case errors.Is(err, model.ErrForbidden):
		return "not a participant in this match"
	case errors.Is(err, model.ErrDuplicateMove):
		return "move already submitted for this match"
	case errors.Is(err, model.ErrMatchComplete):
		return "match is already complete"
	default:
		return "invalid request"
	}
}
