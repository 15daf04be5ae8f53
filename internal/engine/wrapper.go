// Package engine orchestrates the security pipeline around wrapped agents:
// rate limiting, input validation, the guarded agent call, and output
// filtering, with defined short-circuit and failure semantics.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/courtside-ai/backstop/internal/metrics"
	"github.com/courtside-ai/backstop/internal/outfilter"
	"github.com/courtside-ai/backstop/internal/ratelimit"
	"github.com/courtside-ai/backstop/internal/storage"
	"github.com/courtside-ai/backstop/internal/validator"
)

// DefaultAgentTimeout bounds the wrapped agent call when no override is
// configured. The agent call is the only slow stage in the pipeline.
const DefaultAgentTimeout = 30 * time.Second

// Check names recorded in response metadata, in pipeline order.
const (
	checkRateLimit = "rate_limit"
	checkInput     = "input_validation"
	checkAgentCall = "agent_processing"
	checkOutput    = "output_filter"
)

// SecureWrapper runs one agent behind the full security pipeline. All
// wrappers created by the same Registry share one limiter, one validator,
// one filter, and one stats sink — per-user threat state is global no
// matter which agent handled the request.
type SecureWrapper struct {
	agent        Agent
	validator    *validator.Validator
	filter       *outfilter.Filter
	limiter      *ratelimit.Limiter
	writer       storage.EventWriter
	stats        *Stats
	logger       *zap.Logger
	agentTimeout time.Duration
}

// ProcessSecure runs the strictly ordered pipeline:
//
//	rate limit → input validation → wrapped agent call → output filter
//
// Each stage may terminate early with a category-specific response. The
// method never returns an error and never panics: agent failures map to
// processing_error/timeout, and anything unexpected elsewhere is caught at
// the top and mapped to system_error. Raw errors and unsafe content go to
// logs only, never to the caller.
func (w *SecureWrapper) ProcessSecure(ctx context.Context, message, userID string, reqContext map[string]any) (resp *AgentResponse) {
	start := time.Now()
	requestID := uuid.New().String()

	p := &pipelineRun{
		wrapper:   w,
		requestID: requestID,
		userID:    userID,
		message:   message,
		start:     start,
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("pipeline panic",
				zap.String("request_id", requestID),
				zap.String("agent", w.agent.Name()),
				zap.Any("panic", r),
			)
			resp = p.finish(StatusSystemError, systemApology, 0, nil)
		}
	}()

	// 1. Rate limit — combined check-and-increment on the shared limiter.
	p.checks = append(p.checks, checkRateLimit)
	if allowed, reason := w.limiter.Check(userID); !allowed {
		p.reason = reason
		return p.finish(StatusRateLimited, reason, 0, nil)
	}

	// 2. Input validation. Threats stay in the metadata even when the query
	// is allowed (the sanitized-but-flagged case).
	p.checks = append(p.checks, checkInput)
	vres := w.validator.Validate(message)
	p.threats = append(p.threats, vres.Threats...)
	if !vres.Safe {
		w.reportThreat(userID, ratelimit.ThreatPromptInjection, strings.Join(vres.Threats, "; "))
		p.reason = "input validation failed"
		return p.finish(StatusInputBlocked, inputRefusal, 0, nil)
	}

	// 3. Guarded agent call, under a deadline. The sanitized query is
	// wrapped with the prompt-guard fragments; the agent never sees the
	// raw input.
	p.checks = append(p.checks, checkAgentCall)
	agentCtx, cancel := context.WithTimeout(ctx, w.agentTimeout)
	raw, err := w.agent.Process(agentCtx, WrapQuery(vres.Sanitized), reqContext)
	cancel()
	if err != nil {
		w.logger.Error("wrapped agent failed",
			zap.String("request_id", requestID),
			zap.String("agent", w.agent.Name()),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			p.reason = "agent call deadline exceeded"
			return p.finish(StatusTimeout, timeoutApology, 0, nil)
		}
		p.reason = "agent call failed"
		return p.finish(StatusProcessingError, processingApology, 0, nil)
	}
	if raw == nil {
		w.logger.Error("wrapped agent returned nil response",
			zap.String("request_id", requestID),
			zap.String("agent", w.agent.Name()),
		)
		p.reason = "agent returned no response"
		return p.finish(StatusProcessingError, processingApology, 0, nil)
	}

	// 4. Output filter. The filtered text is used even when the result is
	// safe — technical-term redaction may still have fired. Agent metadata
	// goes through the JSON filter the same way, so a secret parked in the
	// metadata map cannot bypass this stage.
	p.checks = append(p.checks, checkOutput)
	fres := w.filter.Filter(raw.Content)

	var metaLeaks []outfilter.Leak
	if raw.Metadata != nil {
		filtered, leaks := w.filter.FilterJSON(raw.Metadata)
		raw.Metadata, _ = filtered.(map[string]any)
		metaLeaks = leaks
	}

	leakDescs := append(fres.Descriptions(), outfilter.Describe(metaLeaks)...)
	p.threats = append(p.threats, leakDescs...)
	if !fres.Safe || outfilter.HasCritical(metaLeaks) {
		w.reportThreat(userID, ratelimit.ThreatInfoExtraction, strings.Join(leakDescs, "; "))
		p.reason = "output filtering failed"
		return p.finish(StatusOutputFiltered, outputRefusal, 0, nil)
	}

	return p.finish(StatusPassed, fres.Filtered, raw.Confidence, raw)
}

// UserSecurityStatus returns the shared limiter's view of the user.
func (w *SecureWrapper) UserSecurityStatus(userID string) ratelimit.UserStatus {
	return w.limiter.UserStatus(userID)
}

// ResetUserSecurity clears the user's threat state. Authorization is the
// caller's responsibility.
func (w *SecureWrapper) ResetUserSecurity(userID string) {
	w.limiter.Reset(userID)
}

func (w *SecureWrapper) reportThreat(userID, threatType, details string) {
	w.limiter.ReportThreat(userID, threatType, details)
	metrics.ThreatsTotal.WithLabelValues(threatType).Inc()
}

// pipelineRun accumulates per-request state so every exit path finishes the
// same way: metadata attached, stats recorded, decision event written.
type pipelineRun struct {
	wrapper   *SecureWrapper
	requestID string
	userID    string
	message   string
	start     time.Time
	checks    []string
	threats   []string
	reason    string
}

func (p *pipelineRun) finish(status SecurityStatus, content string, confidence float64, raw *AgentResponse) *AgentResponse {
	w := p.wrapper
	latency := time.Since(p.start)

	resp := &AgentResponse{
		Content:    content,
		Confidence: confidence,
		Security: SecurityMetadata{
			RequestID:       p.requestID,
			ChecksPerformed: p.checks,
			ThreatsDetected: p.threats,
			Status:          status,
		},
	}
	if raw != nil {
		resp.ToolsUsed = raw.ToolsUsed
		resp.Metadata = raw.Metadata
	}

	w.stats.record(statRecord{
		agent:   w.agent.Name(),
		userID:  p.userID,
		status:  status,
		threats: p.threats,
		reason:  p.reason,
		at:      p.start,
	})
	metrics.RequestsTotal.WithLabelValues(w.agent.Name(), status.String()).Inc()
	metrics.RequestDuration.WithLabelValues(w.agent.Name()).Observe(latency.Seconds())

	userStatus := w.limiter.UserStatus(p.userID)
	hash := sha256.Sum256([]byte(p.message))
	w.writer.Write(&storage.DecisionEvent{
		RequestID:    p.requestID,
		Timestamp:    p.start,
		Agent:        w.agent.Name(),
		UserID:       p.userID,
		Status:       status.String(),
		Reason:       p.reason,
		Checks:       p.checks,
		Threats:      p.threats,
		ThreatScore:  int32(userStatus.ThreatScore),
		ThreatLevel:  userStatus.Level.String(),
		QueryPreview: storage.TruncateQuery(p.message, storage.QueryPreviewLength),
		QueryHash:    hex.EncodeToString(hash[:]),
		QuerySize:    uint32(len(p.message)),
		LatencyMs:    float32(float64(latency) / float64(time.Millisecond)),
	})

	if status.Blocked() {
		w.logger.Warn("pipeline blocked request",
			zap.String("request_id", p.requestID),
			zap.String("agent", w.agent.Name()),
			zap.String("user_id", p.userID),
			zap.String("status", status.String()),
			zap.String("reason", p.reason),
		)
	}

	return resp
}
