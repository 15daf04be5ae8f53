// Package ratelimit tracks per-user request rates and abuse signals for the
// security pipeline. Each user accumulates a weighted threat score from
// reported violations; crossing the HIGH or CRITICAL threshold triggers a
// time-boxed auto-block. State is in-memory only and lost on restart.
package ratelimit

import "time"

// ThreatLevel buckets a user's accumulated threat score.
type ThreatLevel int

const (
	ThreatNone ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

// String returns the lowercase level name.
func (l ThreatLevel) String() string {
	switch l {
	case ThreatNone:
		return "none"
	case ThreatLow:
		return "low"
	case ThreatMedium:
		return "medium"
	case ThreatHigh:
		return "high"
	case ThreatCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// levelForScore maps a threat score to its level via fixed thresholds.
func levelForScore(score int) ThreatLevel {
	switch {
	case score <= 0:
		return ThreatNone
	case score < 5:
		return ThreatLow
	case score < 10:
		return ThreatMedium
	case score < 20:
		return ThreatHigh
	default:
		return ThreatCritical
	}
}

// Well-known threat types. Unknown types are accepted with a default weight.
const (
	ThreatPromptInjection   = "prompt_injection"
	ThreatInfoExtraction    = "info_extraction"
	ThreatRateExceeded      = "rate_exceeded"
	ThreatRepeatedViolation = "repeated_violation"
	ThreatSuspiciousPattern = "suspicious_pattern"
)

// threatWeights maps a threat type to the score it adds per report.
var threatWeights = map[string]int{
	ThreatPromptInjection:   5,
	ThreatInfoExtraction:    3,
	ThreatRateExceeded:      1,
	ThreatRepeatedViolation: 2,
	ThreatSuspiciousPattern: 2,
}

const defaultThreatWeight = 1

const (
	// retentionWindow bounds how long request timestamps and violations are kept.
	retentionWindow = 24 * time.Hour

	// escalationWindow / escalationThreshold: more than escalationThreshold
	// violations inside the window doubles the weight of the next one.
	escalationWindow    = time.Hour
	escalationThreshold = 3

	// unblockDecay is subtracted from the threat score when an expired
	// block is cleared.
	unblockDecay = 5

	highBlockDuration     = time.Hour
	criticalBlockDuration = 24 * time.Hour
)

// Limits holds the multi-window request ceilings.
// The minute limit applies to the immediate check unless the caller
// overrides it; the hour and day limits are enforced on every check.
type Limits struct {
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
	PerDay    int `yaml:"per_day"`
}

// DefaultLimits returns the stock limits: 20/minute, 200/hour, 1000/day.
func DefaultLimits() Limits {
	return Limits{
		PerMinute: 20,
		PerHour:   200,
		PerDay:    1000,
	}
}

// Violation records one reported abuse signal.
type Violation struct {
	At     time.Time
	Type   string
	Weight int
}

// UserStatus is a point-in-time snapshot of one user's threat state.
type UserStatus struct {
	UserID         string
	Blocked        bool
	BlockExpires   time.Time // zero when not blocked
	ThreatScore    int
	Level          ThreatLevel
	RecentRequests int // requests in the last minute
	Violations     int // violations retained (last 24h)
}
