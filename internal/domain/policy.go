package domain

import "time"

// BillingConstraint restricts which billing modes a plan may use.
type BillingConstraint string

const (
	BillingAny              BillingConstraint = "hybrid"
	BillingSubscriptionOnly BillingConstraint = "subscription-only"
	BillingPaygoOnly        BillingConstraint = "paygo-only"
)

// Enforcement is how strictly budget ceilings are applied. Only hard
// enforcement ever blocks; soft and warn surface a breach and pass.
type Enforcement string

const (
	EnforceHard Enforcement = "hard"
	EnforceSoft Enforcement = "soft"
	EnforceWarn Enforcement = "warn"
)

// RoutingPolicy is the caller-supplied routing constraint set.
type RoutingPolicy struct {
	Billing          BillingConstraint `yaml:"billing"`
	MonthlyBudgetUSD float64           `yaml:"monthly_budget_usd"`
	Enforcement      Enforcement       `yaml:"enforcement"`
}

// QuotaStatus is a snapshot of remaining subscription allowance.
type QuotaStatus struct {
	DailyRemaining   float64   `yaml:"daily_remaining"`
	DailyLimit       float64   `yaml:"daily_limit"`
	MonthlyRemaining float64   `yaml:"monthly_remaining"`
	MonthlyLimit     float64   `yaml:"monthly_limit"`
	CheckedAt        time.Time `yaml:"checked_at"`
}

// DailyFraction returns remaining/limit for the daily window, 1 when the
// limit is unknown.
func (q QuotaStatus) DailyFraction() float64 {
	if q.DailyLimit <= 0 {
		return 1
	}
	return q.DailyRemaining / q.DailyLimit
}

// MonthlyFraction returns remaining/limit for the monthly window, 1 when
// the limit is unknown.
func (q QuotaStatus) MonthlyFraction() float64 {
	if q.MonthlyLimit <= 0 {
		return 1
	}
	return q.MonthlyRemaining / q.MonthlyLimit
}

// Fraction returns the tighter of the daily and monthly remaining fractions.
func (q QuotaStatus) Fraction() float64 {
	d, m := q.DailyFraction(), q.MonthlyFraction()
	if m < d {
		return m
	}
	return d
}

// PacingMode tunes how aggressively scoring degrades toward cheaper models
// as monthly spend approaches budget.
type PacingMode string

const (
	PacingQualityFirst PacingMode = "quality-first"
	PacingBalanced     PacingMode = "balanced"
	PacingEconomy      PacingMode = "economy"
)

// PacingSettings enables monthly budget pacing.
type PacingSettings struct {
	Mode           PacingMode `yaml:"mode"`
	MonthSpentUSD  float64    `yaml:"month_spent_usd"`
	MonthBudgetUSD float64    `yaml:"month_budget_usd"`
}

// BudgetFraction returns spent/budget, 0 when no budget is configured.
func (p PacingSettings) BudgetFraction() float64 {
	if p.MonthBudgetUSD <= 0 {
		return 0
	}
	return p.MonthSpentUSD / p.MonthBudgetUSD
}

// ExternalSignal carries optional upstream quality/latency/price signals for
// one model. Missing or partial signals are tolerated as "no boost".
type ExternalSignal struct {
	Quality   float64 `yaml:"quality"`    // 0..1, 0 = unknown
	LatencyMS float64 `yaml:"latency_ms"` // observed average, 0 = unknown
	PriceUSD  float64 `yaml:"price_usd"`  // observed blended $/MTok, 0 = unknown
}

// ScoringContext is the per-planning-call scoring input. ProviderUse is
// mutated as the planner tentatively assigns candidates and must not be
// shared across planning calls.
type ScoringContext struct {
	Policy      RoutingPolicy
	Quota       QuotaStatus
	ProviderUse map[string]int
	Pacing      *PacingSettings
	Preferences map[AgentRole][]string
	Signals     map[string]ExternalSignal // keyed by CandidateModel.Key()
}

// Clone deep-copies the mutable parts so beam-search branches do not alias.
func (sc ScoringContext) Clone() ScoringContext {
	out := sc
	out.ProviderUse = make(map[string]int, len(sc.ProviderUse))
	for k, v := range sc.ProviderUse {
		out.ProviderUse[k] = v
	}
	return out
}
