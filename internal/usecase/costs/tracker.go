// Package costs accumulates spend and enforces budget ceilings. The
// tracker is long-lived and mutated in place; callers serialize concurrent
// writers, the tracker itself holds no lock.
package costs

import (
	"fmt"
	"sort"

	"maestro/internal/domain"
)

// nominalMonthlyMTok sizes savings estimates for models with no recorded
// traffic yet.
const nominalMonthlyMTok = 5.0

// Tracker is the spend accumulator, keyed by (role, model, billing mode).
type Tracker struct {
	dailyUSD   float64
	monthlyUSD float64
	byRole     map[domain.AgentRole]float64
	byModel    map[string]float64
	byBilling  map[domain.BillingMode]float64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byRole:    make(map[domain.AgentRole]float64),
		byModel:   make(map[string]float64),
		byBilling: make(map[domain.BillingMode]float64),
	}
}

// RecordUsage adds one request's cost. Paygo traffic costs
// (in+out)/1e6 × blended per-token price; subscription traffic records as
// zero spend but still lands in the billing breakdown.
func (t *Tracker) RecordUsage(role domain.AgentRole, modelID string, billing domain.BillingMode, inTokens, outTokens int64, blendedPerMTok float64) {
	cost := 0.0
	if billing == domain.BillingPaygo {
		cost = float64(inTokens+outTokens) / 1e6 * blendedPerMTok
	}
	t.dailyUSD += cost
	t.monthlyUSD += cost
	t.byRole[role] += cost
	t.byModel[modelID] += cost
	t.byBilling[billing] += cost
}

// Snapshot returns a copy of the running breakdown.
func (t *Tracker) Snapshot() domain.CostSnapshot {
	return domain.CostSnapshot{
		DailyUSD:   t.dailyUSD,
		MonthlyUSD: t.monthlyUSD,
		ByRole:     cloneMap(t.byRole),
		ByModel:    cloneMap(t.byModel),
		ByBilling:  cloneMap(t.byBilling),
	}
}

// RollDay zeroes the daily counter at a day boundary.
func (t *Tracker) RollDay() { t.dailyUSD = 0 }

// RollMonth zeroes the monthly counters at a month boundary.
func (t *Tracker) RollMonth() {
	t.monthlyUSD = 0
	t.dailyUSD = 0
	t.byRole = make(map[domain.AgentRole]float64)
	t.byModel = make(map[string]float64)
	t.byBilling = make(map[domain.BillingMode]float64)
}

// CheckBudget compares monthly spend against the policy ceiling. Soft and
// warn enforcement always pass but still surface the breach; only hard
// enforcement returns an error. Soft limits never block routing.
func (t *Tracker) CheckBudget(pol domain.RoutingPolicy) (warnings []string, err error) {
	if pol.MonthlyBudgetUSD <= 0 || t.monthlyUSD <= pol.MonthlyBudgetUSD {
		return nil, nil
	}
	msg := fmt.Sprintf("monthly spend $%.2f exceeds budget $%.2f", t.monthlyUSD, pol.MonthlyBudgetUSD)
	if pol.Enforcement == domain.EnforceHard {
		return []string{msg}, domain.NewDomainError("Tracker.CheckBudget", domain.ErrBudgetExceeded, msg)
	}
	return []string{msg}, nil
}

// Suggestion is one advisory substitution toward a cheaper model.
type Suggestion struct {
	Role          domain.AgentRole
	FromModel     string
	ToModel       string
	EstSavingsUSD float64
}

// SuggestOptimizations finds, for each assigned model, the cheapest
// same-provider alternative and estimates monthly savings from recorded
// spend (or a nominal volume when the model has no traffic yet). Advisory
// only: suggestions never alter a plan.
func (t *Tracker) SuggestOptimizations(assignments map[domain.AgentRole]domain.Assignment, catalog []domain.CandidateModel) []Suggestion {
	byID := make(map[string]domain.CandidateModel, len(catalog))
	for _, c := range catalog {
		byID[c.ModelID] = c
	}

	var out []Suggestion
	for _, role := range domain.AllRoles {
		asg, ok := assignments[role]
		if !ok {
			continue
		}
		current, ok := byID[asg.ModelID]
		if !ok || current.IsFree() {
			continue
		}

		var best *domain.CandidateModel
		for i := range catalog {
			alt := &catalog[i]
			if alt.ProviderID != current.ProviderID || alt.ModelID == current.ModelID {
				continue
			}
			if alt.Status == domain.StatusDeprecated || alt.Status == domain.StatusAlpha {
				continue
			}
			if alt.BlendedCost() >= current.BlendedCost() {
				continue
			}
			if best == nil || alt.BlendedCost() < best.BlendedCost() ||
				(alt.BlendedCost() == best.BlendedCost() && alt.ModelID < best.ModelID) {
				best = alt
			}
		}
		if best == nil {
			continue
		}

		volume := nominalMonthlyMTok
		if spend := t.byModel[current.ModelID]; spend > 0 && current.BlendedCost() > 0 {
			volume = spend / current.BlendedCost()
		}
		out = append(out, Suggestion{
			Role:          role,
			FromModel:     current.ModelID,
			ToModel:       best.ModelID,
			EstSavingsUSD: (current.BlendedCost() - best.BlendedCost()) * volume,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EstSavingsUSD != out[j].EstSavingsUSD {
			return out[i].EstSavingsUSD > out[j].EstSavingsUSD
		}
		return out[i].Role < out[j].Role
	})
	return out
}

func cloneMap[K comparable](m map[K]float64) map[K]float64 {
	out := make(map[K]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
