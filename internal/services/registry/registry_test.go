package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mdsim/ratedrps-go/internal/dependencies/mocks"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/services/match"
	"github.com/mdsim/ratedrps-go/internal/services/rating"
	"github.com/mdsim/ratedrps-go/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New(testutil.NopLogger())
}

func (s *RegistrySuite) newSession(id model.MatchID, p1, p2 model.PlayerID) *match.Session {
	return match.New(id,
		model.PlayerIdentity{ID: p1, Rating: 1000},
		model.PlayerIdentity{ID: p2, Rating: 1000},
		nil, nil,
		match.Config{
			Clock:   mocks.NewMockClock(time.Now()),
			Logger:  testutil.NopLogger(),
			Rating:  rating.New(),
			Timeout: time.Hour,
		})
}

func (s *RegistrySuite) TestMarkQueuedClaimsSlot() {
	s.Require().NoError(s.registry.MarkQueued("u-1"))
	s.Equal(StatusQueued, s.registry.StatusFor("u-1"))
}

func (s *RegistrySuite) TestDoubleMarkQueuedFails() {
	s.Require().NoError(s.registry.MarkQueued("u-1"))
	s.ErrorIs(s.registry.MarkQueued("u-1"), model.ErrAlreadyActive)
}

func (s *RegistrySuite) TestMarkQueuedWhileInMatchFails() {
	sess := s.newSession("m-1", "u-1", "u-2")
	s.registry.AddMatch(sess)

	s.ErrorIs(s.registry.MarkQueued("u-1"), model.ErrAlreadyActive)
	s.ErrorIs(s.registry.MarkQueued("u-2"), model.ErrAlreadyActive)
}

func (s *RegistrySuite) TestClearQueuedReleasesSlot() {
	s.Require().NoError(s.registry.MarkQueued("u-1"))
	s.registry.ClearQueued("u-1")
	s.Equal(StatusNone, s.registry.StatusFor("u-1"))
	s.Require().NoError(s.registry.MarkQueued("u-1"))
}

func (s *RegistrySuite) TestClearQueuedNeverDemotesInMatch() {
	sess := s.newSession("m-1", "u-1", "u-2")
	s.registry.AddMatch(sess)

	s.registry.ClearQueued("u-1")
	s.Equal(StatusInMatch, s.registry.StatusFor("u-1"))
}

func (s *RegistrySuite) TestAddAndGetMatch() {
	sess := s.newSession("m-1", "u-1", "u-2")
	s.registry.AddMatch(sess)

	got, err := s.registry.GetMatch("m-1")
	s.Require().NoError(err)
	s.Equal(sess, got)
	s.Equal(1, s.registry.ActiveMatches())
}

func (s *RegistrySuite) TestGetMatchNotFound() {
	_, err := s.registry.GetMatch("missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *RegistrySuite) TestMatchFor() {
	sess := s.newSession("m-1", "u-1", "u-2")
	s.registry.AddMatch(sess)

	got, ok := s.registry.MatchFor("u-2")
	s.True(ok)
	s.Equal(sess, got)

	_, ok = s.registry.MatchFor("stranger")
	s.False(ok)
}

func (s *RegistrySuite) TestRemoveEvictsAndReleasesPlayers() {
	sess := s.newSession("m-1", "u-1", "u-2")
	s.registry.AddMatch(sess)

	s.registry.Remove("m-1")

	s.Equal(0, s.registry.ActiveMatches())
	s.Equal(StatusNone, s.registry.StatusFor("u-1"))
	s.Equal(StatusNone, s.registry.StatusFor("u-2"))
	s.Require().NoError(s.registry.MarkQueued("u-1"))
}

func (s *RegistrySuite) TestConcurrentMarkQueuedAdmitsExactlyOne() {
	const workers = 32

	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.registry.MarkQueued("u-1"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	s.Equal(1, count)
}
