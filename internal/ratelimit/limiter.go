package ratelimit

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// shardCount is fixed; shards are selected by FNV-1a of the user ID.
const shardCount = 32

// userRecord is the mutable per-user threat state. All access goes through
// the owning shard's mutex.
type userRecord struct {
	requests     []time.Time
	score        int
	blockedUntil time.Time // zero when not blocked
	violations   []Violation
}

type shard struct {
	mu    sync.Mutex
	users map[string]*userRecord
}

// Limiter is the single source of truth for every user's request rate and
// threat score, shared by all agent wrappers. State is sharded by user ID so
// check-and-increment stays atomic per user without serializing all users
// behind one lock.
type Limiter struct {
	shards [shardCount]*shard
	limits Limits
	logger *zap.Logger

	// now is swapped out in tests to control time.
	now func() time.Time
}

// NewLimiter creates a limiter with the given multi-window limits.
// Zero or negative limit values fall back to the defaults.
func NewLimiter(limits Limits, logger *zap.Logger) *Limiter {
	def := DefaultLimits()
	if limits.PerMinute <= 0 {
		limits.PerMinute = def.PerMinute
	}
	if limits.PerHour <= 0 {
		limits.PerHour = def.PerHour
	}
	if limits.PerDay <= 0 {
		limits.PerDay = def.PerDay
	}

	l := &Limiter{
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{users: make(map[string]*userRecord)}
	}
	return l
}

func (l *Limiter) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID)) //nolint:errcheck // fnv never errors
	return l.shards[h.Sum32()%shardCount]
}

// Check applies the default per-minute limit plus the unconditional hourly
// and daily limits. Returns (false, reason) on rejection.
func (l *Limiter) Check(userID string) (bool, string) {
	return l.CheckWindow(userID, l.limits.PerMinute, time.Minute)
}

// CheckWindow is Check with a caller-supplied immediate window. The hourly
// and daily ceilings are still enforced regardless of the override.
//
// The count-and-append happens under one critical section so two concurrent
// requests from the same user cannot both take the last slot. A rejection
// caused by an active block is not counted as a new violation.
func (l *Limiter) CheckWindow(userID string, maxRequests int, window time.Duration) (bool, string) {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	rec := s.users[userID]
	if rec == nil {
		rec = &userRecord{}
		s.users[userID] = rec
	}

	if !rec.blockedUntil.IsZero() {
		if now.Before(rec.blockedUntil) {
			remaining := int(rec.blockedUntil.Sub(now).Seconds())
			return false, fmt.Sprintf("temporarily blocked, try again in %d seconds", remaining)
		}
		// Block expired: clear it and forgive part of the score.
		rec.blockedUntil = time.Time{}
		rec.score -= unblockDecay
		if rec.score < 0 {
			rec.score = 0
		}
		l.logger.Info("block expired, score decayed",
			zap.String("user_id", userID),
			zap.Int("threat_score", rec.score),
		)
	}

	pruneRequests(rec, now)

	// Hour and day windows are checked on every call, independent of the
	// immediate window the caller asked for. Each breach is its own violation.
	breached := ""
	if countSince(rec.requests, now.Add(-time.Hour)) >= l.limits.PerHour {
		l.reportLocked(rec, userID, ThreatRateExceeded, "hourly request limit reached", now)
		breached = fmt.Sprintf("hourly request limit reached (%d/hour)", l.limits.PerHour)
	}
	if len(rec.requests) >= l.limits.PerDay {
		l.reportLocked(rec, userID, ThreatRateExceeded, "daily request limit reached", now)
		if breached == "" {
			breached = fmt.Sprintf("daily request limit reached (%d/day)", l.limits.PerDay)
		}
	}
	if breached != "" {
		return false, breached
	}

	if countSince(rec.requests, now.Add(-window)) >= maxRequests {
		l.reportLocked(rec, userID, ThreatRateExceeded, "request window limit reached", now)
		return false, fmt.Sprintf("rate limit exceeded: %d requests per %s", maxRequests, window)
	}

	rec.requests = append(rec.requests, now)
	return true, ""
}

// ReportThreat adds the weighted score for the threat type to the user's
// record and applies auto-blocking when the resulting level is HIGH or
// CRITICAL. More than three violations inside the last hour double the
// weight of each further report.
func (l *Limiter) ReportThreat(userID, threatType, details string) {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[userID]
	if rec == nil {
		rec = &userRecord{}
		s.users[userID] = rec
	}
	l.reportLocked(rec, userID, threatType, details, l.now())
}

// reportLocked implements ReportThreat for a record whose shard is already held.
func (l *Limiter) reportLocked(rec *userRecord, userID, threatType, details string, now time.Time) {
	pruneViolations(rec, now)

	weight, ok := threatWeights[threatType]
	if !ok {
		weight = defaultThreatWeight
	}

	// Count the violation being recorded along with the retained ones, so the
	// fourth report inside an hour is already escalated.
	recent := 1
	cutoff := now.Add(-escalationWindow)
	for _, v := range rec.violations {
		if v.At.After(cutoff) {
			recent++
		}
	}
	if recent > escalationThreshold {
		weight *= threatWeights[ThreatRepeatedViolation]
	}

	rec.score += weight
	rec.violations = append(rec.violations, Violation{At: now, Type: threatType, Weight: weight})

	level := levelForScore(rec.score)
	l.logger.Warn("threat reported",
		zap.String("user_id", userID),
		zap.String("threat_type", threatType),
		zap.String("details", details),
		zap.Int("weight", weight),
		zap.Int("threat_score", rec.score),
		zap.String("threat_level", level.String()),
	)

	switch level {
	case ThreatHigh:
		rec.blockedUntil = now.Add(highBlockDuration)
	case ThreatCritical:
		rec.blockedUntil = now.Add(criticalBlockDuration)
	default:
		return
	}
	l.logger.Warn("user auto-blocked",
		zap.String("user_id", userID),
		zap.String("threat_level", level.String()),
		zap.Time("blocked_until", rec.blockedUntil),
	)
}

// UserStatus returns a snapshot of the user's threat state.
func (l *Limiter) UserStatus(userID string) UserStatus {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	status := UserStatus{UserID: userID, Level: ThreatNone}

	rec := s.users[userID]
	if rec == nil {
		return status
	}
	pruneRequests(rec, now)
	pruneViolations(rec, now)

	status.ThreatScore = rec.score
	status.Level = levelForScore(rec.score)
	status.RecentRequests = countSince(rec.requests, now.Add(-time.Minute))
	status.Violations = len(rec.violations)
	if !rec.blockedUntil.IsZero() && now.Before(rec.blockedUntil) {
		status.Blocked = true
		status.BlockExpires = rec.blockedUntil
	}
	return status
}

// Reset clears all state for the user. Authorization is the caller's job.
func (l *Limiter) Reset(userID string) {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID)
	l.logger.Info("user security state reset", zap.String("user_id", userID))
}

// Sweep prunes stale request logs and violations across all users, clears
// expired blocks, and drops records with nothing left to remember. Intended
// to run on a timer; reads also lazy-prune their own user.
func (l *Limiter) Sweep() {
	now := l.now()
	removed := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for userID, rec := range s.users {
			pruneRequests(rec, now)
			pruneViolations(rec, now)
			if !rec.blockedUntil.IsZero() && !now.Before(rec.blockedUntil) {
				rec.blockedUntil = time.Time{}
				rec.score -= unblockDecay
				if rec.score < 0 {
					rec.score = 0
				}
			}
			if len(rec.requests) == 0 && len(rec.violations) == 0 && rec.score == 0 && rec.blockedUntil.IsZero() {
				delete(s.users, userID)
				removed++
			}
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		l.logger.Debug("sweep removed idle user records", zap.Int("removed", removed))
	}
}

func pruneRequests(rec *userRecord, now time.Time) {
	cutoff := now.Add(-retentionWindow)
	kept := rec.requests[:0]
	for _, ts := range rec.requests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	rec.requests = kept
}

func pruneViolations(rec *userRecord, now time.Time) {
	cutoff := now.Add(-retentionWindow)
	kept := rec.violations[:0]
	for _, v := range rec.violations {
		if v.At.After(cutoff) {
			kept = append(kept, v)
		}
	}
	rec.violations = kept
}

func countSince(timestamps []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
