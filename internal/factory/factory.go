package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mdsim/ratedrps-go/internal/api"
	"github.com/mdsim/ratedrps-go/internal/dependencies/clock"
	"github.com/mdsim/ratedrps-go/internal/dependencies/random"
	"github.com/mdsim/ratedrps-go/internal/gateway"
	"github.com/mdsim/ratedrps-go/internal/services/auth"
	"github.com/mdsim/ratedrps-go/internal/services/game"
	"github.com/mdsim/ratedrps-go/internal/services/lobby"
	"github.com/mdsim/ratedrps-go/internal/services/rating"
	"github.com/mdsim/ratedrps-go/internal/services/registry"
	"github.com/mdsim/ratedrps-go/internal/services/results"
	"github.com/mdsim/ratedrps-go/internal/storage"
	"github.com/mdsim/ratedrps-go/internal/storage/memory"
	redisstorage "github.com/mdsim/ratedrps-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry      *registry.Registry
	Queue         *lobby.Queue
	RatingEngine  *rating.Engine
	ResultsWriter *results.Writer
	GameService   *game.Service
	Verifier      auth.Verifier

	// HTTP surface
	Router http.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// JWTSecret is the shared secret for verifying connection tokens
	JWTSecret string
	// MoveTimeout bounds how long a match waits for moves before abandonment
	// resolution. Zero uses the session default.
	MoveTimeout time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWTSecret is required")
	}

	clk := clock.New()
	rnd := random.New()
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	return newWithDependencies(store, clk, rnd, verifier, cfg.MoveTimeout, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Store,
	clk clock.Clock,
	rnd random.Random,
	verifier auth.Verifier,
	moveTimeout time.Duration,
	logger *slog.Logger,
) *App {
	reg := registry.New(logger)
	queue := lobby.New(reg, clk, logger)
	ratingEngine := rating.New()
	resultsWriter := results.New(store, logger)

	gameService := game.New(
		reg,
		queue,
		ratingEngine,
		resultsWriter,
		clk,
		rnd,
		game.Config{MoveTimeout: moveTimeout},
		logger,
	)

	wsHandler := gateway.New(verifier, store, gameService, clk, logger)
	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		WSHandler: wsHandler,
	})

	return &App{
		Storage:       store,
		Clock:         clk,
		Random:        rnd,
		Registry:      reg,
		Queue:         queue,
		RatingEngine:  ratingEngine,
		ResultsWriter: resultsWriter,
		GameService:   gameService,
		Verifier:      verifier,
		Router:        router,
	}
}
