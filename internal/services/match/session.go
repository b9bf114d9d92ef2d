package match

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdsim/ratedrps-go/internal/dependencies/clock"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
	"github.com/mdsim/ratedrps-go/internal/services/rating"
)

const (
	// DefaultTimeout is the AwaitingMoves window before abandonment resolution
	DefaultTimeout = 60 * time.Second

	// Delivery retry policy for GAME_UPDATE pushes
	defaultSendRetries = 3
	defaultSendBackoff = 250 * time.Millisecond
)

// Config holds the dependencies a session needs to resolve itself
type Config struct {
	Clock  clock.Clock
	Logger *slog.Logger
	Rating *rating.Engine

	// Timeout is the AwaitingMoves window. Zero means DefaultTimeout.
	Timeout time.Duration

	// OnClosed is called exactly once after the session reaches Closed.
	// The record is nil when the match was discarded (both sides silent).
	OnClosed func(s *Session, rec *model.MatchRecord)

	SendRetries int
	SendBackoff time.Duration
}

type participant struct {
	identity model.PlayerIdentity
	conn     protocol.Sender // nil while detached
	move     model.Move      // empty until submitted, then immutable
}

// Session owns exactly one active two-player match. It accepts one move per
// player, detects round completion, computes the outcome and rating deltas,
// and delivers the result to both connections.
type Session struct {
	id        model.MatchID
	cfg       Config
	createdAt time.Time

	mu      sync.Mutex
	state   model.MatchState
	player1 participant
	player2 participant
	outcome *model.Outcome

	// resolving guarantees the Resolved transition happens exactly once even
	// when both submissions (or a submission and the timeout) race.
	resolving atomic.Bool
	timer     *time.Timer
}

// New creates a session in AwaitingMoves and starts the abandonment timer
func New(id model.MatchID, p1, p2 model.PlayerIdentity, conn1, conn2 protocol.Sender, cfg Config) *Session {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SendRetries == 0 {
		cfg.SendRetries = defaultSendRetries
	}
	if cfg.SendBackoff == 0 {
		cfg.SendBackoff = defaultSendBackoff
	}

	s := &Session{
		id:        id,
		cfg:       cfg,
		createdAt: cfg.Clock.Now(),
		state:     model.MatchStateAwaitingMoves,
		player1:   participant{identity: p1, conn: conn1},
		player2:   participant{identity: p2, conn: conn2},
	}
	s.timer = time.AfterFunc(cfg.Timeout, s.abandon)
	return s
}

// ID returns the match id
func (s *Session) ID() model.MatchID {
	return s.id
}

// Player1 returns the first participant's identity
func (s *Session) Player1() model.PlayerIdentity {
	return s.player1.identity
}

// Player2 returns the second participant's identity
func (s *Session) Player2() model.PlayerIdentity {
	return s.player2.identity
}

// State returns the current lifecycle state
func (s *Session) State() model.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the computed outcome, or nil before resolution
func (s *Session) Outcome() *model.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// HasParticipant reports whether the player is part of this session
func (s *Session) HasParticipant(id model.PlayerID) bool {
	return s.player1.identity.ID == id || s.player2.identity.ID == id
}

// Moves returns the currently stored moves (empty string when unset)
func (s *Session) Moves() (model.Move, model.Move) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player1.move, s.player2.move
}

// SubmitMove stores a participant's move. Valid only in AwaitingMoves, only
// for a participant, only once per player. The submission that fills the
// second slot triggers resolution.
func (s *Session) SubmitMove(id model.PlayerID, move model.Move) error {
	s.mu.Lock()
	if s.state != model.MatchStateAwaitingMoves {
		s.mu.Unlock()
		return model.ErrMatchComplete
	}

	p := s.participantLocked(id)
	if p == nil {
		s.mu.Unlock()
		return model.ErrForbidden
	}
	if p.move != "" {
		s.mu.Unlock()
		return model.ErrDuplicateMove
	}

	p.move = move
	m1, m2 := s.player1.move, s.player2.move
	s.mu.Unlock()

	// The second arrival observes both slots filled and is the one that
	// triggers resolution, exactly once.
	if m1 != "" && m2 != "" && s.resolving.CompareAndSwap(false, true) {
		s.finalize(resolve(m1, m2))
	}
	return nil
}

// Attach binds a live connection to a participant, replacing any previous
// one. Used when a player reconnects mid-match.
func (s *Session) Attach(id model.PlayerID, conn protocol.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participantLocked(id)
	if p == nil {
		return model.ErrForbidden
	}
	p.conn = conn
	return nil
}

// Detach drops a participant's connection. The session keeps running until
// it resolves or the abandonment timeout fires.
func (s *Session) Detach(id model.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.participantLocked(id); p != nil {
		p.conn = nil
	}
}

func (s *Session) participantLocked(id model.PlayerID) *participant {
	switch id {
	case s.player1.identity.ID:
		return &s.player1
	case s.player2.identity.ID:
		return &s.player2
	}
	return nil
}

// abandon force-resolves the session when the AwaitingMoves window elapses.
// If exactly one side submitted, that side is credited a win; if neither
// did, the match is discarded with no rating change.
func (s *Session) abandon() {
	if !s.resolving.CompareAndSwap(false, true) {
		return
	}

	m1, m2 := s.Moves()
	switch {
	case m1 == "" && m2 == "":
		s.discard()
	case m1 != "" && m2 == "":
		s.finalize(model.ResultPlayer1)
	case m1 == "" && m2 != "":
		s.finalize(model.ResultPlayer2)
	default:
		// The timer raced the second submission; the moves decide as usual
		s.finalize(resolve(m1, m2))
	}
}

// finalize computes the outcome, delivers GAME_UPDATE to both sides and
// transitions to Closed. Called exactly once per session.
func (s *Session) finalize(result model.Result) {
	s.timer.Stop()

	s.mu.Lock()
	upd := s.cfg.Rating.Compute(s.player1.identity.Rating, s.player2.identity.Rating, result)

	outcome := model.Outcome{
		Result:        result,
		Player1Delta:  upd.Delta1,
		Player2Delta:  upd.Delta2,
		Player1Rating: upd.NewRating1,
		Player2Rating: upd.NewRating2,
	}

	var winnerID model.PlayerID
	switch result {
	case model.ResultPlayer1:
		winnerID = s.player1.identity.ID
	case model.ResultPlayer2:
		winnerID = s.player2.identity.ID
	}

	rec := &model.MatchRecord{
		ID:              s.id,
		Player1ID:       s.player1.identity.ID,
		Player2ID:       s.player2.identity.ID,
		Player1Username: s.player1.identity.Username,
		Player2Username: s.player2.identity.Username,
		Player1Move:     s.player1.move,
		Player2Move:     s.player2.move,
		WinnerID:        winnerID,
		Result:          result,
		Player1Delta:    upd.Delta1,
		Player2Delta:    upd.Delta2,
		CreatedAt:       s.createdAt,
	}

	s.state = model.MatchStateResolved
	s.outcome = &outcome
	conn1, conn2 := s.player1.conn, s.player2.conn
	s.mu.Unlock()

	env := protocol.GameUpdateFor(rec)

	var wg sync.WaitGroup
	for _, c := range []protocol.Sender{conn1, conn2} {
		wg.Add(1)
		go func(conn protocol.Sender) {
			defer wg.Done()
			s.deliver(conn, env)
		}(c)
	}
	wg.Wait()

	s.close(rec)
}

// discard closes a match where neither side submitted a move
func (s *Session) discard() {
	s.timer.Stop()

	s.mu.Lock()
	s.state = model.MatchStateResolved
	s.mu.Unlock()

	s.cfg.Logger.Info("match discarded, no moves submitted",
		slog.String("match_id", string(s.id)))
	s.close(nil)
}

func (s *Session) close(rec *model.MatchRecord) {
	s.mu.Lock()
	s.state = model.MatchStateClosed
	s.mu.Unlock()

	if s.cfg.OnClosed != nil {
		s.cfg.OnClosed(s, rec)
	}
}

// deliver pushes an envelope to one connection with bounded retry. A
// permanently failed delivery is logged and dropped; it never blocks the
// session from closing.
func (s *Session) deliver(conn protocol.Sender, env protocol.Envelope) {
	if conn == nil {
		s.cfg.Logger.Warn("result delivery skipped, participant detached",
			slog.String("match_id", string(s.id)))
		return
	}

	var err error
	for attempt := 0; attempt < s.cfg.SendRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.cfg.SendBackoff)
		}
		if err = conn.Send(env); err == nil {
			return
		}
	}

	s.cfg.Logger.Warn("result delivery abandoned",
		slog.String("match_id", string(s.id)),
		slog.Any("error", err))
}

// resolve applies the canonical beats-relation to two present moves
func resolve(m1, m2 model.Move) model.Result {
	if m1 == m2 {
		return model.ResultDraw
	}
	if m1.Beats(m2) {
		return model.ResultPlayer1
	}
	return model.ResultPlayer2
}
