package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/courtside-ai/backstop/internal/outfilter"
	"github.com/courtside-ai/backstop/internal/ratelimit"
	"github.com/courtside-ai/backstop/internal/storage"
	"github.com/courtside-ai/backstop/internal/validator"
)

// RegistryConfig holds the shared pipeline dependencies. Every field except
// AgentTimeout is required; the limiter in particular must be the single
// process-wide instance so a user's threat state is one record regardless
// of which agent handled the request.
type RegistryConfig struct {
	Validator    *validator.Validator
	Filter       *outfilter.Filter
	Limiter      *ratelimit.Limiter
	Writer       storage.EventWriter
	Logger       *zap.Logger
	AgentTimeout time.Duration // defaults to DefaultAgentTimeout
}

// Registry wraps raw agents with the security pipeline on registration.
// A raw agent is never reachable through the registry.
type Registry struct {
	cfg   RegistryConfig
	stats *Stats

	mu       sync.RWMutex
	wrappers map[string]*SecureWrapper
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = DefaultAgentTimeout
	}
	return &Registry{
		cfg:      cfg,
		stats:    NewStats(),
		wrappers: make(map[string]*SecureWrapper),
	}
}

// Register wraps the agent and adds it to the routing table, replacing any
// previous agent with the same name.
func (r *Registry) Register(agent Agent) *SecureWrapper {
	w := &SecureWrapper{
		agent:        agent,
		validator:    r.cfg.Validator,
		filter:       r.cfg.Filter,
		limiter:      r.cfg.Limiter,
		writer:       r.cfg.Writer,
		stats:        r.stats,
		logger:       r.cfg.Logger,
		agentTimeout: r.cfg.AgentTimeout,
	}

	r.mu.Lock()
	r.wrappers[agent.Name()] = w
	r.mu.Unlock()

	r.cfg.Logger.Info("agent registered behind security pipeline",
		zap.String("agent", agent.Name()),
	)
	return w
}

// Get returns the wrapped agent by name.
func (r *Registry) Get(name string) (*SecureWrapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wrappers[name]
	return w, ok
}

// Names returns the registered agent names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.wrappers))
	for name := range r.wrappers {
		names = append(names, name)
	}
	return names
}

// UserSecurityStatus reports the shared limiter's view of the user.
func (r *Registry) UserSecurityStatus(userID string) ratelimit.UserStatus {
	return r.cfg.Limiter.UserStatus(userID)
}

// ResetUserSecurity clears the user's threat state across all agents.
// Authorization is enforced by the API layer, not here.
func (r *Registry) ResetUserSecurity(userID string) {
	r.cfg.Limiter.Reset(userID)
}

// Metrics returns the aggregated pipeline metrics across all agents.
func (r *Registry) Metrics() SecurityMetrics {
	return r.stats.Snapshot()
}
