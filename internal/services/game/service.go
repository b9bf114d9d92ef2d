package game

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mdsim/ratedrps-go/internal/dependencies/clock"
	"github.com/mdsim/ratedrps-go/internal/dependencies/random"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
	"github.com/mdsim/ratedrps-go/internal/services/lobby"
	"github.com/mdsim/ratedrps-go/internal/services/match"
	"github.com/mdsim/ratedrps-go/internal/services/rating"
	"github.com/mdsim/ratedrps-go/internal/services/registry"
	"github.com/mdsim/ratedrps-go/internal/services/results"
)

// Config holds tunable behavior for the game service
type Config struct {
	// MoveTimeout is the AwaitingMoves window before abandonment resolution.
	// Zero means match.DefaultTimeout.
	MoveTimeout time.Duration
}

// Service is the operation surface the gateway dispatches inbound messages
// to. It wires lobby pairing to session creation, session completion to
// result persistence, and emits lobby status broadcasts.
type Service struct {
	logger   *slog.Logger
	registry *registry.Registry
	queue    *lobby.Queue
	rating   *rating.Engine
	results  *results.Writer
	clock    clock.Clock
	random   random.Random
	cfg      Config
}

// New creates the game service and installs it as the queue's match starter
func New(
	reg *registry.Registry,
	queue *lobby.Queue,
	ratingEngine *rating.Engine,
	resultsWriter *results.Writer,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *Service {
	s := &Service{
		logger:   logger.With(slog.String("component", "game")),
		registry: reg,
		queue:    queue,
		rating:   ratingEngine,
		results:  resultsWriter,
		clock:    clk,
		random:   rnd,
		cfg:      cfg,
	}
	queue.SetStarter(s)
	return s
}

// Connect reattaches a reconnecting player to their in-flight match, if any.
// A transient network drop therefore resumes rather than forfeits.
func (s *Service) Connect(identity model.PlayerIdentity, conn protocol.Sender) {
	if sess, ok := s.registry.MatchFor(identity.ID); ok {
		if err := sess.Attach(identity.ID, conn); err == nil {
			s.logger.Info("player reattached to match",
				slog.String("player_id", string(identity.ID)),
				slog.String("match_id", string(sess.ID())))
		}
	}
}

// Disconnect handles a closed socket. A queued player is removed from the
// lobby; an in-match player is detached but the session keeps running until
// it resolves or its abandonment timeout fires.
func (s *Service) Disconnect(id model.PlayerID) {
	if sess, ok := s.registry.MatchFor(id); ok {
		sess.Detach(id)
		s.logger.Info("player detached from match",
			slog.String("player_id", string(id)),
			slog.String("match_id", string(sess.ID())))
		return
	}

	s.queue.Leave(id)
	s.broadcastLobbyUpdate()
}

// JoinLobby enqueues a player for matchmaking
func (s *Service) JoinLobby(identity model.PlayerIdentity, conn protocol.Sender) error {
	if err := s.queue.Join(identity, conn); err != nil {
		return err
	}
	s.broadcastLobbyUpdate()
	return nil
}

// LeaveLobby removes a player from the queue; no-op if not queued
func (s *Service) LeaveLobby(id model.PlayerID) {
	s.queue.Leave(id)
	s.broadcastLobbyUpdate()
}

// SubmitMove routes a move to the player's session. A wrong match id or a
// non-participant submission fails with ErrForbidden; the authoritative
// outcome is computed only from the two stored moves, never from the client.
func (s *Service) SubmitMove(id model.PlayerID, matchID model.MatchID, move model.Move) error {
	sess, err := s.registry.GetMatch(matchID)
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return model.ErrForbidden
		}
		return err
	}
	return sess.SubmitMove(id, move)
}

// StartMatch creates a session for two dequeued entries. Invoked by the
// lobby queue inside its pairing critical section.
func (s *Service) StartMatch(p1, p2 lobby.Entry) {
	id := model.MatchID(s.random.MatchID())

	sess := match.New(id, p1.Identity, p2.Identity, p1.Conn, p2.Conn, match.Config{
		Clock:    s.clock,
		Logger:   s.logger,
		Rating:   s.rating,
		Timeout:  s.cfg.MoveTimeout,
		OnClosed: s.onMatchClosed,
	})
	s.registry.AddMatch(sess)

	s.logger.Info("match started",
		slog.String("match_id", string(id)),
		slog.String("player1", string(p1.Identity.ID)),
		slog.String("player2", string(p2.Identity.ID)))

	s.notifyMatchFound(p1, p2, id)
	s.notifyMatchFound(p2, p1, id)
}

func (s *Service) notifyMatchFound(to, opponent lobby.Entry, id model.MatchID) {
	if to.Conn == nil {
		return
	}
	env := protocol.MustEnvelope(protocol.TypeMatchFound, protocol.MatchFoundPayload{
		GameID:           string(id),
		OpponentID:       string(opponent.Identity.ID),
		OpponentUsername: opponent.Identity.Username,
	})
	if err := to.Conn.Send(env); err != nil {
		s.logger.Warn("match found notification failed",
			slog.String("player_id", string(to.Identity.ID)),
			slog.Any("error", err))
	}
}

// onMatchClosed evicts the session and schedules persistence of the outcome.
// A nil record means the match was discarded with no rating change.
func (s *Service) onMatchClosed(sess *match.Session, rec *model.MatchRecord) {
	s.registry.Remove(sess.ID())
	if rec != nil {
		s.results.Submit(rec)
	}
}

// broadcastLobbyUpdate pushes the current queue depth to everyone waiting
func (s *Service) broadcastLobbyUpdate() {
	entries := s.queue.Snapshot()
	env := protocol.MustEnvelope(protocol.TypeLobbyUpdate, protocol.LobbyUpdatePayload{
		PlayersWaiting: len(entries),
	})
	for _, e := range entries {
		if e.Conn == nil {
			continue
		}
		if err := e.Conn.Send(env); err != nil {
			s.logger.Warn("lobby update send failed",
				slog.String("player_id", string(e.Identity.ID)),
				slog.Any("error", err))
		}
	}
}
