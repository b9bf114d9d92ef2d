package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/storage"
)

// Storage is a Redis-backed implementation of the store interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var record model.PlayerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Storage) SavePlayer(ctx context.Context, record *model.PlayerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerKey(record.ID), data, 0).Err()
}

func (s *Storage) ApplyResult(ctx context.Context, matchID model.MatchID, playerID model.PlayerID, delta int, kind model.OutcomeKind) error {
	// Claim the idempotency marker first; a lost claim means a prior attempt
	// already applied this result.
	claimed, err := s.client.SetNX(ctx, appliedKey(matchID, playerID), 1, s.cfg.AppliedResultTTL).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	record, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		// Release the marker so a retry can apply the result once the record
		// is reachable again.
		_ = s.client.Del(ctx, appliedKey(matchID, playerID)).Err()
		return err
	}

	record.Rating += delta
	switch kind {
	case model.OutcomeWin:
		record.Wins++
	case model.OutcomeLoss:
		record.Losses++
	case model.OutcomeDraw:
		record.Draws++
	}
	record.UpdatedAt = time.Now()

	if err := s.SavePlayer(ctx, record); err != nil {
		_ = s.client.Del(ctx, appliedKey(matchID, playerID)).Err()
		return err
	}
	return nil
}

func (s *Storage) SaveMatch(ctx context.Context, record *model.MatchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, matchKey(record.ID), data, 0).Err()
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.MatchRecord, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var record model.MatchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
