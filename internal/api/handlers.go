package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/courtside-ai/backstop/internal/auth"
	"github.com/courtside-ai/backstop/internal/engine"
)

// handleQuery implements POST /v1/agents/{agent}/query. The full security
// pipeline runs inside the wrapper; this handler only translates the wire
// format. Blocked requests still get a well-formed response body so clients
// never have to parse two shapes.
func (d *Dependencies) handleQuery(w http.ResponseWriter, r *http.Request) {
	agentName := r.PathValue("agent")

	var req QueryRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "message is required"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "user_id is required"})
		return
	}

	wrapper, ok := d.Registry.Get(agentName)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "unknown agent"})
		return
	}

	resp := wrapper.ProcessSecure(r.Context(), req.Message, req.UserID, req.Context)

	status := http.StatusOK
	if resp.Security.Status == engine.StatusRateLimited {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, queryResponseFrom(resp))
}

// handleListAgents implements GET /v1/agents.
func (d *Dependencies) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"agents": d.Registry.Names()})
}

// handleUserSecurity implements GET /v1/users/{user_id}/security.
func (d *Dependencies) handleUserSecurity(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	writeJSON(w, http.StatusOK, userSecurityFrom(d.Registry.UserSecurityStatus(userID)))
}

// handleResetUser implements POST /v1/users/{user_id}/reset. Requires the
// admin Bearer token; clears the user's threat state and any active block.
func (d *Dependencies) handleResetUser(w http.ResponseWriter, r *http.Request) {
	token, _ := extractBearerToken(r)
	if err := d.Authorizer.Authorize(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, auth.ErrDisabled):
			writeJSON(w, http.StatusForbidden, ErrorResp{Detail: "admin operations are disabled"})
		default:
			d.Logger.Warn("admin auth failed", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, ErrorResp{Detail: "invalid admin token"})
		}
		return
	}

	userID := r.PathValue("user_id")
	d.Registry.ResetUserSecurity(userID)
	d.Logger.Info("user security state reset", zap.String("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "reset": true})
}

// handleSecurityMetrics implements GET /v1/security/metrics.
func (d *Dependencies) handleSecurityMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.Registry.Metrics())
}
