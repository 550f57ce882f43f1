// Package rl is a tabular epsilon-greedy Q-learner over discretized
// routing states. Exploration randomness is injected so planning stays
// reproducible under a seeded source.
package rl

import (
	"math/rand"
	"sort"

	"maestro/internal/domain"
)

// QuotaBucket discretizes remaining quota.
type QuotaBucket string

const (
	QuotaCritical QuotaBucket = "critical"
	QuotaLow      QuotaBucket = "low"
	QuotaHealthy  QuotaBucket = "healthy"
)

// BucketQuota maps a remaining-quota fraction to its bucket.
func BucketQuota(frac float64) QuotaBucket {
	switch {
	case frac < 0.10:
		return QuotaCritical
	case frac < 0.35:
		return QuotaLow
	default:
		return QuotaHealthy
	}
}

// TaskBucket discretizes the workload character.
type TaskBucket string

const (
	TaskReasoning TaskBucket = "reasoning"
	TaskSpeed     TaskBucket = "speed"
	TaskBalanced  TaskBucket = "balanced"
)

// State is one cell of the Q-table's state space.
type State struct {
	Role  domain.AgentRole
	Quota QuotaBucket
	Task  TaskBucket
}

// Action is one routing choice.
type Action struct {
	ModelID string
	Billing domain.BillingMode
}

// Config holds the learning hyperparameters. Zero values use defaults.
type Config struct {
	Epsilon float64 `yaml:"epsilon"` // exploration probability
	Alpha   float64 `yaml:"alpha"`   // learning rate
	Gamma   float64 `yaml:"gamma"`   // discount factor
}

func (c Config) withDefaults() Config {
	if c.Epsilon == 0 {
		c.Epsilon = 0.08
	}
	if c.Alpha == 0 {
		c.Alpha = 0.2
	}
	if c.Gamma == 0 {
		c.Gamma = 0.9
	}
	return c
}

// Reward shaping constants.
const (
	rewardQualityWeight  = 0.3
	rewardLatencyCeiling = 0.5
	rewardLatencyScaleMS = 10000
	rewardCostCeiling    = 0.5
	rewardCostScaleUSD   = 0.05
)

// ComputeReward shapes one observation into a scalar: success plus a
// quality bonus, minus latency and cost penalties.
func ComputeReward(success bool, quality, latencyMS, costUSD float64) float64 {
	r := 0.0
	if success {
		r = 1
	}
	r += rewardQualityWeight * quality
	lat := latencyMS / rewardLatencyScaleMS
	if lat > rewardLatencyCeiling {
		lat = rewardLatencyCeiling
	}
	cost := costUSD / rewardCostScaleUSD
	if cost > rewardCostCeiling {
		cost = rewardCostCeiling
	}
	return r - lat - cost
}

// QEntry is one exported Q-table row.
type QEntry struct {
	State  State
	Action Action
	Value  float64
}

// Agent is the long-lived learner. Callers serialize concurrent access.
type Agent struct {
	cfg Config
	q   map[State]map[Action]float64
}

// NewAgent creates an agent with an empty table.
func NewAgent(cfg Config) *Agent {
	return &Agent{cfg: cfg.withDefaults(), q: make(map[State]map[Action]float64)}
}

// Select picks an action: with probability epsilon a uniformly random
// offered action, otherwise the best-known offered action for the state.
// An unseen state exploits to the first offered action.
func (a *Agent) Select(s State, actions []Action, rng *rand.Rand) Action {
	if len(actions) == 0 {
		return Action{}
	}
	if rng.Float64() < a.cfg.Epsilon {
		return actions[rng.Intn(len(actions))]
	}

	known := a.q[s]
	best := actions[0]
	bestVal, seen := 0.0, false
	for _, act := range actions {
		v, ok := known[act]
		if !ok {
			continue
		}
		if !seen || v > bestVal {
			best, bestVal, seen = act, v, true
		}
	}
	return best
}

// Update applies the Bellman update:
// Q += alpha * (reward + gamma*maxQ(next) - Q).
func (a *Agent) Update(s State, act Action, reward float64, next State) {
	if a.q[s] == nil {
		a.q[s] = make(map[Action]float64)
	}
	cur := a.q[s][act]
	a.q[s][act] = cur + a.cfg.Alpha*(reward+a.cfg.Gamma*a.maxQ(next)-cur)
}

// Value returns the learned value for one (state, action).
func (a *Agent) Value(s State, act Action) float64 {
	return a.q[s][act]
}

func (a *Agent) maxQ(s State) float64 {
	best := 0.0
	seen := false
	for _, v := range a.q[s] {
		if !seen || v > best {
			best, seen = v, true
		}
	}
	return best
}

// Export flattens the Q-table in deterministic order for persistence by an
// external collaborator.
func (a *Agent) Export() []QEntry {
	var out []QEntry
	for s, actions := range a.q {
		for act, v := range actions {
			out = append(out, QEntry{State: s, Action: act, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i], out[j]
		if si.State.Role != sj.State.Role {
			return si.State.Role < sj.State.Role
		}
		if si.State.Quota != sj.State.Quota {
			return si.State.Quota < sj.State.Quota
		}
		if si.State.Task != sj.State.Task {
			return si.State.Task < sj.State.Task
		}
		if si.Action.ModelID != sj.Action.ModelID {
			return si.Action.ModelID < sj.Action.ModelID
		}
		return si.Action.Billing < sj.Action.Billing
	})
	return out
}
