package storage

import "time"

// EventWriter is the interface for persisting pipeline decisions.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *DecisionEvent)
	Close()
}

// QueryPreviewLength bounds how much of the raw query is persisted.
const QueryPreviewLength = 200

// DecisionEvent records the outcome of one secure pipeline run. The raw
// query is stored as a truncated preview plus a hash; agent output is never
// persisted.
type DecisionEvent struct {
	RequestID    string
	Timestamp    time.Time
	Agent        string
	UserID       string
	Status       string // wire-visible security status
	Reason       string // block reason, empty when passed
	Checks       []string
	Threats      []string
	ThreatScore  int32
	ThreatLevel  string
	QueryPreview string
	QueryHash    string // SHA256 of the raw query
	QuerySize    uint32
	LatencyMs    float32
}

// TruncateQuery bounds a query to maxLen runes for the preview column.
func TruncateQuery(query string, maxLen int) string {
	runes := []rune(query)
	if len(runes) <= maxLen {
		return query
	}
	return string(runes[:maxLen])
}
