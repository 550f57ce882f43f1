package shadow

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"maestro/internal/domain"
)

// Default breaker settings.
const (
	defaultOpenFor  = 10 * time.Minute
	defaultInterval = time.Hour
)

// BreakerConfig configures the per-(role, model) circuit breakers.
type BreakerConfig struct {
	// OpenFor is how long a tripped pair stays blocked before a probe is
	// allowed again.
	OpenFor time.Duration `yaml:"open_for"`
	// Interval is the cyclic period of the closed state for clearing
	// failure counts.
	Interval time.Duration `yaml:"interval"`
}

// BreakerRegistry holds one time-boxed circuit breaker per (role, model)
// pair. A rollback verdict trips the pair; routing callers consult Allow
// before reusing it. Unlike the decision core this is host-side infra and
// carries its own lock.
type BreakerRegistry struct {
	cfg      BreakerConfig
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
	logger   *slog.Logger
}

// NewBreakerRegistry creates a registry. Zero-valued config uses defaults.
func NewBreakerRegistry(cfg BreakerConfig, logger *slog.Logger) *BreakerRegistry {
	if cfg.OpenFor == 0 {
		cfg.OpenFor = defaultOpenFor
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BreakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
		logger:   logger,
	}
}

func (r *BreakerRegistry) breaker(role domain.AgentRole, modelID string) *gobreaker.CircuitBreaker[struct{}] {
	key := metricsKey(role, modelID)
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	logger := r.logger
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "route:" + key,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    r.cfg.Interval,
		Timeout:     r.cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("route breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	r.breakers[key] = cb
	return cb
}

// Trip opens the breaker for a (role, model) pair after a rollback
// verdict. The pair stays blocked for the configured window.
func (r *BreakerRegistry) Trip(role domain.AgentRole, modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb := r.breaker(role, modelID)
	_, _ = cb.Execute(func() (struct{}, error) {
		return struct{}{}, fmt.Errorf("rollback trip for %s/%s", role, modelID)
	})
}

// Allow reports whether routing may use the pair. Untripped pairs are
// always allowed; tripped pairs recover automatically after the open
// window elapses.
func (r *BreakerRegistry) Allow(role domain.AgentRole, modelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[metricsKey(role, modelID)]
	if !ok {
		return true
	}
	return cb.State() != gobreaker.StateOpen
}

// State returns the breaker state for monitoring; closed when the pair was
// never tripped.
func (r *BreakerRegistry) State(role domain.AgentRole, modelID string) gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[metricsKey(role, modelID)]
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}
