package match

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mdsim/ratedrps-go/internal/dependencies/mocks"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
	"github.com/mdsim/ratedrps-go/internal/services/rating"
	"github.com/mdsim/ratedrps-go/internal/testutil"
)

// fakeConn records sent envelopes and can simulate transient send failures
type fakeConn struct {
	mu       sync.Mutex
	sent     []protocol.Envelope
	failures int // sends to fail before succeeding; negative = always fail
}

func (c *fakeConn) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures != 0 {
		if c.failures > 0 {
			c.failures--
		}
		return errors.New("transient send failure")
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) envelopes() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) gameUpdate(t *testing.T) protocol.GameUpdatePayload {
	t.Helper()
	for _, env := range c.envelopes() {
		if env.Type == protocol.TypeGameUpdate {
			var payload protocol.GameUpdatePayload
			if err := env.Decode(&payload); err != nil {
				t.Fatalf("decoding game update: %v", err)
			}
			return payload
		}
	}
	t.Fatal("no GAME_UPDATE delivered")
	return protocol.GameUpdatePayload{}
}

type SessionSuite struct {
	suite.Suite
	clock *mocks.MockClock

	conn1, conn2 *fakeConn
	closed       chan *model.MatchRecord
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.conn1 = &fakeConn{}
	s.conn2 = &fakeConn{}
	s.closed = make(chan *model.MatchRecord, 1)
}

func (s *SessionSuite) newSession(timeout time.Duration) *Session {
	p1 := model.PlayerIdentity{ID: "u-1", Username: "alice", Rating: 1000}
	p2 := model.PlayerIdentity{ID: "u-2", Username: "bob", Rating: 1000}

	return New("match-1", p1, p2, s.conn1, s.conn2, Config{
		Clock:       s.clock,
		Logger:      testutil.NopLogger(),
		Rating:      rating.New(),
		Timeout:     timeout,
		SendBackoff: time.Millisecond,
		OnClosed: func(_ *Session, rec *model.MatchRecord) {
			s.closed <- rec
		},
	})
}

func (s *SessionSuite) waitClosed() *model.MatchRecord {
	select {
	case rec := <-s.closed:
		return rec
	case <-time.After(2 * time.Second):
		s.FailNow("session did not close in time")
		return nil
	}
}

func (s *SessionSuite) TestBothMovesResolveMatch() {
	sess := s.newSession(time.Minute)

	s.Require().NoError(sess.SubmitMove("u-1", model.MoveRock))
	s.Require().NoError(sess.SubmitMove("u-2", model.MoveScissors))

	rec := s.waitClosed()
	s.Require().NotNil(rec)
	s.Equal(model.ResultPlayer1, rec.Result)
	s.Equal(model.PlayerID("u-1"), rec.WinnerID)
	s.Equal(16, rec.Player1Delta)
	s.Equal(-16, rec.Player2Delta)
	s.Equal(model.MatchStateClosed, sess.State())

	// Both sides receive the same authoritative result
	for _, conn := range []*fakeConn{s.conn1, s.conn2} {
		payload := conn.gameUpdate(s.T())
		s.Equal("u-1", payload.Result)
		s.Equal(16, payload.Player1EloDelta)
		s.Equal(-16, payload.Player2EloDelta)
	}
}

func (s *SessionSuite) TestDrawResolvesWithZeroDeltas() {
	sess := s.newSession(time.Minute)

	s.Require().NoError(sess.SubmitMove("u-1", model.MovePaper))
	s.Require().NoError(sess.SubmitMove("u-2", model.MovePaper))

	rec := s.waitClosed()
	s.Require().NotNil(rec)
	s.Equal(model.ResultDraw, rec.Result)
	s.Empty(rec.WinnerID)
	s.Equal(0, rec.Player1Delta)
	s.Equal(0, rec.Player2Delta)

	payload := s.conn1.gameUpdate(s.T())
	s.Equal("draw", payload.Result)
}

func (s *SessionSuite) TestDuplicateMoveIsRejectedAndImmutable() {
	sess := s.newSession(time.Minute)

	s.Require().NoError(sess.SubmitMove("u-1", model.MoveRock))
	err := sess.SubmitMove("u-1", model.MovePaper)
	s.ErrorIs(err, model.ErrDuplicateMove)

	m1, _ := sess.Moves()
	s.Equal(model.MoveRock, m1)
}

func (s *SessionSuite) TestNonParticipantIsForbidden() {
	sess := s.newSession(time.Minute)

	err := sess.SubmitMove("intruder", model.MoveRock)
	s.ErrorIs(err, model.ErrForbidden)
}

func (s *SessionSuite) TestSubmitAfterCloseFails() {
	sess := s.newSession(time.Minute)

	s.Require().NoError(sess.SubmitMove("u-1", model.MoveRock))
	s.Require().NoError(sess.SubmitMove("u-2", model.MovePaper))
	s.waitClosed()

	err := sess.SubmitMove("u-1", model.MoveScissors)
	s.ErrorIs(err, model.ErrMatchComplete)
}

func (s *SessionSuite) TestAbandonmentCreditsSubmitter() {
	sess := s.newSession(30 * time.Millisecond)

	s.Require().NoError(sess.SubmitMove("u-2", model.MoveScissors))

	rec := s.waitClosed()
	s.Require().NotNil(rec)
	s.Equal(model.ResultPlayer2, rec.Result)
	s.Equal(model.PlayerID("u-2"), rec.WinnerID)
	s.Equal(-16, rec.Player1Delta)
	s.Equal(16, rec.Player2Delta)
	s.Equal(model.MatchStateClosed, sess.State())
}

func (s *SessionSuite) TestAbandonmentWithNoMovesDiscards() {
	sess := s.newSession(30 * time.Millisecond)

	rec := s.waitClosed()
	s.Nil(rec)
	s.Equal(model.MatchStateClosed, sess.State())
	s.Empty(s.conn1.envelopes())
	s.Empty(s.conn2.envelopes())
}

func (s *SessionSuite) TestDeliveryRetriesTransientFailure() {
	s.conn2.failures = 2
	sess := s.newSession(time.Minute)

	s.Require().NoError(sess.SubmitMove("u-1", model.MoveRock))
	s.Require().NoError(sess.SubmitMove("u-2", model.MoveRock))

	s.waitClosed()
	payload := s.conn2.gameUpdate(s.T())
	s.Equal("draw", payload.Result)
}

func (s *SessionSuite) TestPermanentDeliveryFailureStillCloses() {
	s.conn2.failures = -1
	sess := s.newSession(time.Minute)

	s.Require().NoError(sess.SubmitMove("u-1", model.MoveRock))
	s.Require().NoError(sess.SubmitMove("u-2", model.MoveScissors))

	rec := s.waitClosed()
	s.Require().NotNil(rec)
	s.Equal(model.MatchStateClosed, sess.State())
	// The other side is unaffected
	s.conn1.gameUpdate(s.T())
}

func (s *SessionSuite) TestReconnectReceivesResultOnNewConnection() {
	sess := s.newSession(time.Minute)

	sess.Detach("u-2")
	replacement := &fakeConn{}
	s.Require().NoError(sess.Attach("u-2", replacement))

	s.Require().NoError(sess.SubmitMove("u-1", model.MovePaper))
	s.Require().NoError(sess.SubmitMove("u-2", model.MoveRock))

	s.waitClosed()
	payload := replacement.gameUpdate(s.T())
	s.Equal("u-1", payload.Result)
	s.Empty(s.conn2.envelopes())
}

func TestResolveIsTotalAndAcyclic(t *testing.T) {
	moves := []model.Move{model.MoveRock, model.MovePaper, model.MoveScissors}
	wins := map[model.Move]model.Move{
		model.MoveRock:     model.MoveScissors,
		model.MoveScissors: model.MovePaper,
		model.MovePaper:    model.MoveRock,
	}

	for _, m1 := range moves {
		for _, m2 := range moves {
			result := resolve(m1, m2)
			switch {
			case m1 == m2:
				if result != model.ResultDraw {
					t.Errorf("resolve(%s, %s) = %s, want draw", m1, m2, result)
				}
			case wins[m1] == m2:
				if result != model.ResultPlayer1 {
					t.Errorf("resolve(%s, %s) = %s, want player1", m1, m2, result)
				}
			default:
				if result != model.ResultPlayer2 {
					t.Errorf("resolve(%s, %s) = %s, want player2", m1, m2, result)
				}
			}
		}
	}
}
