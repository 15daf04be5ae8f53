package engine

// SecurityStatus is the wire-visible outcome of one pipeline run.
type SecurityStatus int

const (
	StatusPassed SecurityStatus = iota + 1
	StatusRateLimited
	StatusInputBlocked
	StatusProcessingError
	StatusTimeout
	StatusOutputFiltered
	StatusSystemError
)

// String returns the wire value.
func (s SecurityStatus) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusRateLimited:
		return "rate_limited"
	case StatusInputBlocked:
		return "input_blocked"
	case StatusProcessingError:
		return "processing_error"
	case StatusTimeout:
		return "timeout"
	case StatusOutputFiltered:
		return "output_filtered"
	case StatusSystemError:
		return "system_error"
	default:
		return "unspecified"
	}
}

// Blocked reports whether this status terminated the pipeline before a
// normal response could be returned.
func (s SecurityStatus) Blocked() bool {
	return s != StatusPassed
}

// SecurityMetadata is attached to every response the wrapper produces.
type SecurityMetadata struct {
	RequestID       string         `json:"request_id"`
	ChecksPerformed []string       `json:"checks_performed"`
	ThreatsDetected []string       `json:"threats_detected"`
	Status          SecurityStatus `json:"-"`
}

// AgentResponse is what a wrapped agent returns and what the wrapper hands
// back to callers. The wrapper fills in Security; raw agents leave it zero.
type AgentResponse struct {
	Content    string           `json:"content"`
	Confidence float64          `json:"confidence"`
	ToolsUsed  []string         `json:"tools_used,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	Security   SecurityMetadata `json:"security"`
}
