package engine

import "context"

// Agent is the opaque capability the security pipeline wraps: one call in,
// one response or error out. Implementations must respect the context
// deadline — the wrapper runs Process under a timeout.
type Agent interface {
	// Name returns the agent's identifier used for routing and metrics.
	Name() string

	// Process answers the (already sanitized and wrapped) message.
	// reqContext carries caller-supplied request context and may be nil.
	Process(ctx context.Context, message string, reqContext map[string]any) (*AgentResponse, error)
}
