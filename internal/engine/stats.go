package engine

import (
	"strings"
	"sync"
	"time"
)

// recentBlockCap bounds the ring of recent blocked requests kept for the
// metrics endpoint.
const recentBlockCap = 50

// BlockRecord describes one blocked request in the recent-blocks ring.
type BlockRecord struct {
	At     time.Time `json:"at"`
	Agent  string    `json:"agent"`
	UserID string    `json:"user_id"`
	Status string    `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

// SecurityMetrics is the aggregated view served by the metrics operation.
type SecurityMetrics struct {
	TotalRequests  int64            `json:"total_requests"`
	SecurityBlocks int64            `json:"security_blocks"`
	BlockRate      float64          `json:"block_rate"`
	ThreatTypes    map[string]int64 `json:"threat_types"`
	RecentBlocks   []BlockRecord    `json:"recent_blocks"`
}

type statRecord struct {
	agent   string
	userID  string
	status  SecurityStatus
	threats []string
	reason  string
	at      time.Time
}

// Stats aggregates pipeline outcomes across all wrappers of a registry.
type Stats struct {
	mu          sync.Mutex
	total       int64
	blocks      int64
	threatTypes map[string]int64
	recent      []BlockRecord // newest last, bounded by recentBlockCap
}

func NewStats() *Stats {
	return &Stats{threatTypes: make(map[string]int64)}
}

func (s *Stats) record(r statRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	for _, threat := range r.threats {
		s.threatTypes[threatCategory(threat)]++
	}
	if !r.status.Blocked() {
		return
	}

	s.blocks++
	s.recent = append(s.recent, BlockRecord{
		At:     r.at,
		Agent:  r.agent,
		UserID: r.userID,
		Status: r.status.String(),
		Reason: r.reason,
	})
	if len(s.recent) > recentBlockCap {
		s.recent = s.recent[len(s.recent)-recentBlockCap:]
	}
}

// Snapshot returns a copy of the aggregated metrics.
func (s *Stats) Snapshot() SecurityMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make(map[string]int64, len(s.threatTypes))
	for k, v := range s.threatTypes {
		types[k] = v
	}
	recent := make([]BlockRecord, len(s.recent))
	copy(recent, s.recent)

	rate := 0.0
	if s.total > 0 {
		rate = float64(s.blocks) / float64(s.total)
	}

	return SecurityMetrics{
		TotalRequests:  s.total,
		SecurityBlocks: s.blocks,
		BlockRate:      rate,
		ThreatTypes:    types,
		RecentBlocks:   recent,
	}
}

// threatCategory collapses a threat string to its category prefix, e.g.
// "injection: instruction override" → "injection".
func threatCategory(threat string) string {
	if i := strings.Index(threat, ":"); i > 0 {
		return strings.TrimSpace(threat[:i])
	}
	return threat
}
