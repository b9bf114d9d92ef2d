package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/mdsim/ratedrps-go/internal/middleware"
)

// Health check limiter: 1 request per second with a small burst, per IP
const (
	healthCheckRate  = rate.Limit(1)
	healthCheckBurst = 5
)

// RouterConfig holds configuration for the HTTP router
type RouterConfig struct {
	Logger    *slog.Logger
	WSHandler http.Handler
}

// NewRouter creates the HTTP router. The websocket endpoint carries all game
// traffic; the only other surface is a rate-limited health check.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	healthLimiter := middleware.RateLimit(middleware.NewRateLimiter(healthCheckRate, healthCheckBurst))

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)
	r.Handle("/health_check", healthLimiter(http.HandlerFunc(healthHandler))).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
