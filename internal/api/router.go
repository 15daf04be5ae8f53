package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/courtside-ai/backstop/internal/auth"
	"github.com/courtside-ai/backstop/internal/engine"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Registry   *engine.Registry
	Authorizer auth.Authorizer
	Logger     *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Agent pipeline
	mux.HandleFunc("POST /v1/agents/{agent}/query", deps.handleQuery)
	mux.HandleFunc("GET /v1/agents", deps.handleListAgents)

	// Per-user security state (reset requires the admin Bearer token)
	mux.HandleFunc("GET /v1/users/{user_id}/security", deps.handleUserSecurity)
	mux.HandleFunc("POST /v1/users/{user_id}/reset", deps.handleResetUser)

	// Aggregated pipeline metrics
	mux.HandleFunc("GET /v1/security/metrics", deps.handleSecurityMetrics)

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
