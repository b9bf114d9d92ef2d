package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mdsim/ratedrps-go/internal/dependencies/mocks"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/protocol"
	"github.com/mdsim/ratedrps-go/internal/services/lobby"
	"github.com/mdsim/ratedrps-go/internal/services/rating"
	"github.com/mdsim/ratedrps-go/internal/services/registry"
	"github.com/mdsim/ratedrps-go/internal/services/results"
	"github.com/mdsim/ratedrps-go/internal/storage/memory"
	"github.com/mdsim/ratedrps-go/internal/testutil"
)

type fakeConn struct {
	mu   sync.Mutex
	sent []protocol.Envelope
}

func (f *fakeConn) Send(env protocol.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeConn) envelopes() []protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Envelope, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) lastOfType(t protocol.Type) (protocol.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Type == t {
			return f.sent[i], true
		}
	}
	return protocol.Envelope{}, false
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Storage
	registry *registry.Registry
	queue    *lobby.Queue
	writer   *results.Writer
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := testutil.NopLogger()

	s.ctx = context.Background()
	s.store = memory.New()
	s.registry = registry.New(logger)
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.queue = lobby.New(s.registry, s.clock, logger)
	s.writer = results.NewWithRetry(s.store, logger, 2, time.Millisecond)

	s.service = New(
		s.registry,
		s.queue,
		rating.New(),
		s.writer,
		s.clock,
		s.random,
		Config{MoveTimeout: time.Minute},
		logger,
	)

	s.Require().NoError(s.store.SavePlayer(s.ctx, model.NewPlayerRecord("u-1", "alice", s.clock.Now())))
	s.Require().NoError(s.store.SavePlayer(s.ctx, model.NewPlayerRecord("u-2", "bob", s.clock.Now())))
}

func (s *ServiceSuite) identity(id model.PlayerID, username string) model.PlayerIdentity {
	return model.PlayerIdentity{ID: id, Username: username, Rating: model.DefaultRating}
}

// pairUp joins two players and returns their connections and the match id
func (s *ServiceSuite) pairUp() (*fakeConn, *fakeConn, model.MatchID) {
	c1, c2 := &fakeConn{}, &fakeConn{}
	s.Require().NoError(s.service.JoinLobby(s.identity("u-1", "alice"), c1))
	s.Require().NoError(s.service.JoinLobby(s.identity("u-2", "bob"), c2))

	env, ok := c1.lastOfType(protocol.TypeMatchFound)
	s.Require().True(ok)
	var payload protocol.MatchFoundPayload
	s.Require().NoError(env.Decode(&payload))
	return c1, c2, model.MatchID(payload.GameID)
}

func (s *ServiceSuite) TestSingleJoinBroadcastsLobbyUpdate() {
	c1 := &fakeConn{}
	s.Require().NoError(s.service.JoinLobby(s.identity("u-1", "alice"), c1))

	env, ok := c1.lastOfType(protocol.TypeLobbyUpdate)
	s.Require().True(ok)

	var payload protocol.LobbyUpdatePayload
	s.Require().NoError(env.Decode(&payload))
	s.Equal(1, payload.PlayersWaiting)
}

func (s *ServiceSuite) TestPairingNotifiesBothWithOpponentInfo() {
	c1, c2, matchID := s.pairUp()

	env1, ok := c1.lastOfType(protocol.TypeMatchFound)
	s.Require().True(ok)
	var p1 protocol.MatchFoundPayload
	s.Require().NoError(env1.Decode(&p1))
	s.Equal("u-2", p1.OpponentID)
	s.Equal("bob", p1.OpponentUsername)

	env2, ok := c2.lastOfType(protocol.TypeMatchFound)
	s.Require().True(ok)
	var p2 protocol.MatchFoundPayload
	s.Require().NoError(env2.Decode(&p2))
	s.Equal("u-1", p2.OpponentID)
	s.Equal("alice", p2.OpponentUsername)
	s.Equal(string(matchID), p2.GameID)

	s.Equal(1, s.registry.ActiveMatches())
	s.Equal(0, s.queue.Len())
}

func (s *ServiceSuite) TestDuplicateJoinRejected() {
	c1 := &fakeConn{}
	s.Require().NoError(s.service.JoinLobby(s.identity("u-1", "alice"), c1))
	s.ErrorIs(s.service.JoinLobby(s.identity("u-1", "alice"), c1), model.ErrAlreadyActive)
}

func (s *ServiceSuite) TestFullRoundResolvesAndPersists() {
	c1, c2, matchID := s.pairUp()

	s.Require().NoError(s.service.SubmitMove("u-1", matchID, model.MoveRock))
	s.Require().NoError(s.service.SubmitMove("u-2", matchID, model.MoveScissors))
	s.writer.Wait()

	env1, ok := c1.lastOfType(protocol.TypeGameUpdate)
	s.Require().True(ok)
	var upd protocol.GameUpdatePayload
	s.Require().NoError(env1.Decode(&upd))
	s.Equal("u-1", upd.Result)
	s.Equal(16, upd.Player1EloDelta)
	s.Equal(-16, upd.Player2EloDelta)

	_, ok = c2.lastOfType(protocol.TypeGameUpdate)
	s.True(ok)

	// The session is evicted and both players are free again
	s.Equal(0, s.registry.ActiveMatches())
	s.Equal(registry.StatusNone, s.registry.StatusFor("u-1"))
	s.Require().NoError(s.service.JoinLobby(s.identity("u-1", "alice"), c1))

	p1, err := s.store.GetPlayer(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(1016, p1.Rating)
	s.Equal(1, p1.Wins)

	p2, err := s.store.GetPlayer(s.ctx, "u-2")
	s.Require().NoError(err)
	s.Equal(984, p2.Rating)
	s.Equal(1, p2.Losses)

	rec, err := s.store.GetMatch(s.ctx, matchID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("u-1"), rec.WinnerID)
}

func (s *ServiceSuite) TestSubmitMoveWrongMatchIDForbidden() {
	_, _, _ = s.pairUp()
	s.ErrorIs(s.service.SubmitMove("u-1", "no-such-match", model.MoveRock), model.ErrForbidden)
}

func (s *ServiceSuite) TestSubmitMoveNonParticipantForbidden() {
	_, _, matchID := s.pairUp()
	s.ErrorIs(s.service.SubmitMove("intruder", matchID, model.MoveRock), model.ErrForbidden)
}

func (s *ServiceSuite) TestDisconnectWhileQueuedLeavesLobby() {
	c1 := &fakeConn{}
	s.Require().NoError(s.service.JoinLobby(s.identity("u-1", "alice"), c1))

	s.service.Disconnect("u-1")
	s.Equal(0, s.queue.Len())
	s.Equal(registry.StatusNone, s.registry.StatusFor("u-1"))
}

func (s *ServiceSuite) TestLeaveLobbyBroadcastsToRemaining() {
	c1, c2 := &fakeConn{}, &fakeConn{}
	s.Require().NoError(s.service.JoinLobby(s.identity("u-1", "alice"), c1))
	s.service.LeaveLobby("u-1")
	s.Require().NoError(s.service.JoinLobby(s.identity("u-2", "bob"), c2))

	env, ok := c2.lastOfType(protocol.TypeLobbyUpdate)
	s.Require().True(ok)
	var payload protocol.LobbyUpdatePayload
	s.Require().NoError(env.Decode(&payload))
	s.Equal(1, payload.PlayersWaiting)
}

func (s *ServiceSuite) TestReconnectMidMatchReceivesResult() {
	c1, _, matchID := s.pairUp()

	s.service.Disconnect("u-1")
	s.Equal(1, s.registry.ActiveMatches())

	replacement := &fakeConn{}
	s.service.Connect(s.identity("u-1", "alice"), replacement)

	s.Require().NoError(s.service.SubmitMove("u-1", matchID, model.MovePaper))
	s.Require().NoError(s.service.SubmitMove("u-2", matchID, model.MovePaper))
	s.writer.Wait()

	env, ok := replacement.lastOfType(protocol.TypeGameUpdate)
	s.Require().True(ok)
	var upd protocol.GameUpdatePayload
	s.Require().NoError(env.Decode(&upd))
	s.Equal("draw", upd.Result)

	// The original connection never saw the result
	_, ok = c1.lastOfType(protocol.TypeGameUpdate)
	s.False(ok)
}

func (s *ServiceSuite) TestConnectWithoutMatchIsNoop() {
	c1 := &fakeConn{}
	s.service.Connect(s.identity("u-1", "alice"), c1)
	s.Empty(c1.envelopes())
}
