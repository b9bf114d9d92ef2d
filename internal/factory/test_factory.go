package factory

import (
	"time"

	"github.com/mdsim/ratedrps-go/internal/dependencies/mocks"
	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/services/auth"
	"github.com/mdsim/ratedrps-go/internal/storage/memory"
	"github.com/mdsim/ratedrps-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// StaticVerifier maps test tokens to identities
	StaticVerifier *auth.StaticVerifier
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	verifier := &auth.StaticVerifier{Tokens: make(map[string]auth.Claims)}

	app := newWithDependencies(store, mockClock, mockRandom, verifier, time.Minute, testutil.NopLogger())

	return &TestApp{
		App:            app,
		MockClock:      mockClock,
		MockRandom:     mockRandom,
		StaticVerifier: verifier,
	}
}

// RegisterToken maps a bearer token to a player identity for this test app
func (t *TestApp) RegisterToken(token, playerID, username string) {
	t.StaticVerifier.Tokens[token] = auth.Claims{
		PlayerID: model.PlayerID(playerID),
		Username: username,
	}
}
