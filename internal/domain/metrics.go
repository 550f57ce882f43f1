package domain

// ShadowMetrics is the latest rolling snapshot of live performance for one
// (role, model). Ingest overwrites the previous snapshot, it never appends.
type ShadowMetrics struct {
	Samples      int
	SuccessRate  float64 // 0..1
	AvgLatencyMS float64
	P95LatencyMS float64
	AvgCostUSD   float64
	QualityScore float64 // 0..1
	FallbackRate float64 // 0..1
}

// Recommendation is a rollout decision for a candidate.
type Recommendation string

const (
	RecommendPromote  Recommendation = "promote"
	RecommendHold     Recommendation = "hold"
	RecommendRollback Recommendation = "rollback"
)

// ShadowVerdict is the outcome of a candidate-vs-baseline evaluation.
type ShadowVerdict struct {
	Recommendation Recommendation
	Confidence     float64
	Reasons        []string
}

// VariantMetrics aggregates observations for one experiment variant.
type VariantMetrics struct {
	Samples      int
	SuccessRate  float64
	AvgLatencyMS float64
	AvgCostUSD   float64
}

// Variant is one arm of an experiment. Weight is a relative traffic share;
// Overrides optionally replaces specific role assignments for subjects in
// this variant.
type Variant struct {
	Name      string               `yaml:"name"`
	Weight    int                  `yaml:"weight"`
	Overrides map[AgentRole]string `yaml:"overrides,omitempty"`
}

// Experiment is a named traffic split across variants.
type Experiment struct {
	Name     string    `yaml:"name"`
	Variants []Variant `yaml:"variants"`
}

// FederatedUpdate is one participant's learning contribution: observed
// per-model rewards and per-feature weight adjustments, with the sample
// count that weights them during aggregation.
type FederatedUpdate struct {
	ModelRewards  map[string]float64
	FeatureAdjust map[string]float64
	Samples       int
}

// FederatedResult is the sample-weighted merge of many updates.
type FederatedResult struct {
	ModelRewards  map[string]float64
	FeatureAdjust map[string]float64
	Participants  int
}

// CostSnapshot is the running spend breakdown maintained by the cost
// tracker.
type CostSnapshot struct {
	DailyUSD   float64
	MonthlyUSD float64
	ByRole     map[AgentRole]float64
	ByModel    map[string]float64
	ByBilling  map[BillingMode]float64
}
