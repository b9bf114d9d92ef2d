package results

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mdsim/ratedrps-go/internal/model"
	"github.com/mdsim/ratedrps-go/internal/storage"
)

const (
	defaultAttempts = 5
	defaultBackoff  = 200 * time.Millisecond
	writeTimeout    = 5 * time.Second
)

// Writer persists match outcomes asynchronously so a user-visible result is
// never blocked on the store. Writes are retried with backoff; every write
// is idempotent on (match id, player id), so retrying a partially applied
// outcome is safe.
type Writer struct {
	store  storage.Store
	logger *slog.Logger

	attempts int
	backoff  time.Duration

	wg sync.WaitGroup
}

// New creates a Writer with the default retry policy
func New(store storage.Store, logger *slog.Logger) *Writer {
	return &Writer{
		store:    store,
		logger:   logger.With(slog.String("component", "results")),
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

// NewWithRetry creates a Writer with a custom retry policy (for testing)
func NewWithRetry(store storage.Store, logger *slog.Logger, attempts int, backoff time.Duration) *Writer {
	w := New(store, logger)
	w.attempts = attempts
	w.backoff = backoff
	return w
}

// Submit schedules a completed match for persistence and returns immediately
func (w *Writer) Submit(rec *model.MatchRecord) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.persist(rec)
	}()
}

// Wait blocks until all submitted writes have finished (success or give-up)
func (w *Writer) Wait() {
	w.wg.Wait()
}

func (w *Writer) persist(rec *model.MatchRecord) {
	backoff := w.backoff

	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= 2
		}
		if err = w.writeOnce(rec); err == nil {
			w.logger.Info("match persisted",
				slog.String("match_id", string(rec.ID)),
				slog.Int("attempt", attempt))
			return
		}
		w.logger.Warn("match persistence failed",
			slog.String("match_id", string(rec.ID)),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}

	w.logger.Error("match persistence abandoned",
		slog.String("match_id", string(rec.ID)),
		slog.Any("error", err))
}

func (w *Writer) writeOnce(rec *model.MatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := w.store.SaveMatch(ctx, rec); err != nil {
		return err
	}
	if err := w.store.ApplyResult(ctx, rec.ID, rec.Player1ID, rec.Player1Delta, outcomeKind(rec.Result, model.ResultPlayer1)); err != nil {
		return err
	}
	return w.store.ApplyResult(ctx, rec.ID, rec.Player2ID, rec.Player2Delta, outcomeKind(rec.Result, model.ResultPlayer2))
}

func outcomeKind(result, side model.Result) model.OutcomeKind {
	switch {
	case result == model.ResultDraw:
		return model.OutcomeDraw
	case result == side:
		return model.OutcomeWin
	default:
		return model.OutcomeLoss
	}
}
