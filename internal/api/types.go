package api

import (
	"time"

	"github.com/courtside-ai/backstop/internal/engine"
	"github.com/courtside-ai/backstop/internal/ratelimit"
)

// QueryRequest is the JSON body for POST /v1/agents/{agent}/query.
type QueryRequest struct {
	Message string         `json:"message"`
	UserID  string         `json:"user_id"`
	Context map[string]any `json:"context,omitempty"`
}

// SecurityResp is the security block attached to every query response.
type SecurityResp struct {
	RequestID       string   `json:"request_id"`
	ChecksPerformed []string `json:"checks_performed"`
	ThreatsDetected []string `json:"threats_detected"`
	SecurityStatus  string   `json:"security_status"`
}

// QueryResponse is the JSON body returned from the query endpoint.
type QueryResponse struct {
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	ToolsUsed  []string       `json:"tools_used,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Security   SecurityResp   `json:"security"`
}

func queryResponseFrom(resp *engine.AgentResponse) QueryResponse {
	return QueryResponse{
		Content:    resp.Content,
		Confidence: resp.Confidence,
		ToolsUsed:  resp.ToolsUsed,
		Metadata:   resp.Metadata,
		Security: SecurityResp{
			RequestID:       resp.Security.RequestID,
			ChecksPerformed: resp.Security.ChecksPerformed,
			ThreatsDetected: resp.Security.ThreatsDetected,
			SecurityStatus:  resp.Security.Status.String(),
		},
	}
}

// UserSecurityResp is the JSON body for GET /v1/users/{user_id}/security.
type UserSecurityResp struct {
	UserID         string     `json:"user_id"`
	IsBlocked      bool       `json:"is_blocked"`
	BlockExpires   *time.Time `json:"block_expires,omitempty"`
	ThreatScore    int        `json:"threat_score"`
	ThreatLevel    string     `json:"threat_level"`
	RecentRequests int        `json:"recent_requests"`
	Violations     int        `json:"violations"`
}

func userSecurityFrom(st ratelimit.UserStatus) UserSecurityResp {
	resp := UserSecurityResp{
		UserID:         st.UserID,
		IsBlocked:      st.Blocked,
		ThreatScore:    st.ThreatScore,
		ThreatLevel:    st.Level.String(),
		RecentRequests: st.RecentRequests,
		Violations:     st.Violations,
	}
	if st.Blocked {
		expires := st.BlockExpires
		resp.BlockExpires = &expires
	}
	return resp
}

// ErrorResp is the generic JSON error body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
