package costs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/domain"
)

func TestRecordUsagePaygoAddsCost(t *testing.T) {
	tr := NewTracker()
	tr.RecordUsage(domain.RoleCoder, "beta-mid-pro", domain.BillingPaygo, 500_000, 500_000, 10)

	snap := tr.Snapshot()
	assert.InDelta(t, 10.0, snap.DailyUSD, 1e-9)
	assert.InDelta(t, 10.0, snap.MonthlyUSD, 1e-9)
	assert.InDelta(t, 10.0, snap.ByRole[domain.RoleCoder], 1e-9)
	assert.InDelta(t, 10.0, snap.ByModel["beta-mid-pro"], 1e-9)
}

func TestRecordUsageSubscriptionIsFree(t *testing.T) {
	tr := NewTracker()
	tr.RecordUsage(domain.RoleCoder, "alpha-free-mini", domain.BillingSubscription, 2_000_000, 2_000_000, 10)

	snap := tr.Snapshot()
	assert.Zero(t, snap.MonthlyUSD)
	// Subscription traffic still lands in the billing breakdown.
	_, ok := snap.ByBilling[domain.BillingSubscription]
	assert.True(t, ok)
}

func TestCheckBudgetHardBlocks(t *testing.T) {
	tr := NewTracker()
	tr.RecordUsage(domain.RoleCoder, "m", domain.BillingPaygo, 10_000_000, 10_000_000, 10)

	warnings, err := tr.CheckBudget(domain.RoutingPolicy{MonthlyBudgetUSD: 100, Enforcement: domain.EnforceHard})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBudgetExceeded))
	assert.NotEmpty(t, warnings)
}

func TestCheckBudgetSoftNeverBlocks(t *testing.T) {
	tr := NewTracker()
	tr.RecordUsage(domain.RoleCoder, "m", domain.BillingPaygo, 10_000_000, 10_000_000, 10)

	for _, enf := range []domain.Enforcement{domain.EnforceSoft, domain.EnforceWarn} {
		warnings, err := tr.CheckBudget(domain.RoutingPolicy{MonthlyBudgetUSD: 100, Enforcement: enf})
		require.NoError(t, err, "enforcement %s must not block", enf)
		assert.NotEmpty(t, warnings, "enforcement %s must still surface the breach", enf)
	}
}

func TestCheckBudgetUnderCeilingSilent(t *testing.T) {
	tr := NewTracker()
	tr.RecordUsage(domain.RoleCoder, "m", domain.BillingPaygo, 1_000_000, 0, 1)

	warnings, err := tr.CheckBudget(domain.RoutingPolicy{MonthlyBudgetUSD: 100, Enforcement: domain.EnforceHard})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestRollBoundaries(t *testing.T) {
	tr := NewTracker()
	tr.RecordUsage(domain.RoleCoder, "m", domain.BillingPaygo, 1_000_000, 0, 6)

	tr.RollDay()
	snap := tr.Snapshot()
	assert.Zero(t, snap.DailyUSD)
	assert.InDelta(t, 6.0, snap.MonthlyUSD, 1e-9)

	tr.RollMonth()
	snap = tr.Snapshot()
	assert.Zero(t, snap.MonthlyUSD)
	assert.Empty(t, snap.ByModel)
}

func TestSuggestOptimizationsFindsCheaperSibling(t *testing.T) {
	catalog := []domain.CandidateModel{
		{ProviderID: "beta", ModelID: "beta-mid-pro", Status: domain.StatusActive, CostPerMTokIn: 2.5, CostPerMTokOut: 10},
		{ProviderID: "beta", ModelID: "beta-mini", Status: domain.StatusActive, CostPerMTokIn: 0.3, CostPerMTokOut: 1.2},
		{ProviderID: "gamma", ModelID: "gamma-cheap-lite", Status: domain.StatusActive, CostPerMTokIn: 0.1, CostPerMTokOut: 0.4},
	}
	assignments := map[domain.AgentRole]domain.Assignment{
		domain.RoleCoder: {ModelID: "beta-mid-pro", Billing: domain.BillingPaygo},
	}

	tr := NewTracker()
	suggestions := tr.SuggestOptimizations(assignments, catalog)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "beta-mid-pro", suggestions[0].FromModel)
	// Same provider only: gamma is cheaper but across a provider boundary.
	assert.Equal(t, "beta-mini", suggestions[0].ToModel)
	assert.Greater(t, suggestions[0].EstSavingsUSD, 0.0)
}

func TestSuggestOptimizationsSkipsFreeAndImmature(t *testing.T) {
	catalog := []domain.CandidateModel{
		{ProviderID: "alpha", ModelID: "alpha-free", Status: domain.StatusActive},
		{ProviderID: "beta", ModelID: "beta-mid-pro", Status: domain.StatusActive, CostPerMTokIn: 2.5, CostPerMTokOut: 10},
		{ProviderID: "beta", ModelID: "beta-alpha-cheap", Status: domain.StatusAlpha, CostPerMTokIn: 0.1, CostPerMTokOut: 0.1},
	}
	assignments := map[domain.AgentRole]domain.Assignment{
		domain.RoleCoder:  {ModelID: "alpha-free"},
		domain.RoleTester: {ModelID: "beta-mid-pro"},
	}

	tr := NewTracker()
	suggestions := tr.SuggestOptimizations(assignments, catalog)
	// Free assignment has nothing cheaper; the only cheaper sibling is alpha-status.
	assert.Empty(t, suggestions)
}
