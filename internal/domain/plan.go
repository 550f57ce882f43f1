package domain

// ScoreTier discretizes a total score for human consumption.
type ScoreTier string

const (
	TierOptimal    ScoreTier = "optimal"
	TierAcceptable ScoreTier = "acceptable"
	TierSuboptimal ScoreTier = "suboptimal"
	TierUnsuitable ScoreTier = "unsuitable"
)

// ScoreComponent is one named, weighted term of a candidate's total score.
// Contribution = Weight × Raw and the total is the plain sum of
// contributions, so a score is always auditable term by term.
type ScoreComponent struct {
	Name         string
	Weight       float64
	Raw          float64
	Contribution float64
	Detail       string
}

// ScoredCandidate binds a candidate to a role with its full score breakdown.
type ScoredCandidate struct {
	Candidate  CandidateModel
	Role       AgentRole
	Billing    BillingMode
	Components []ScoreComponent
	Total      float64
	Tier       ScoreTier
}

// Assignment is the final per-role decision.
type Assignment struct {
	ModelID    string      `yaml:"model"`
	Billing    BillingMode `yaml:"billing"`
	Confidence float64     `yaml:"confidence"`
	Rationale  string      `yaml:"rationale"`
}

// PrecedenceLayer names the resolution layer that produced an assignment.
// Listed highest-precedence first.
type PrecedenceLayer string

const (
	LayerHostOverride     PrecedenceLayer = "host-override"
	LayerManualUserPlan   PrecedenceLayer = "manual-user-plan"
	LayerPinnedModel      PrecedenceLayer = "pinned-model"
	LayerDynamic          PrecedenceLayer = "dynamic"
	LayerProviderFallback PrecedenceLayer = "provider fallback policy"
	LayerSystemDefault    PrecedenceLayer = "system-default"
)

// LayerRank orders precedence layers, 0 highest. Unknown or empty layers
// rank as the system default, the floor every other layer outranks.
func LayerRank(l PrecedenceLayer) int {
	switch l {
	case LayerHostOverride:
		return 0
	case LayerManualUserPlan:
		return 1
	case LayerPinnedModel:
		return 2
	case LayerDynamic:
		return 3
	case LayerProviderFallback:
		return 4
	case LayerSystemDefault:
		return 5
	default: // unrecognized layers rank with the system default
		return 5
	}
}

// Provenance records which layer won a role and with which model.
type Provenance struct {
	Layer   PrecedenceLayer `yaml:"layer"`
	ModelID string          `yaml:"model"`
}

// Overrides carries every layer that can outrank the dynamic recommendation.
// A nil or empty map at a layer means the layer is absent for all roles.
type Overrides struct {
	Host   map[AgentRole]string // explicit host override
	Manual map[AgentRole]string // manual user plan, primary model per role
	Pinned map[AgentRole]string // pinned single model
}

// QuotaPressure classifies how tight the subscription allowance is.
type QuotaPressure string

const (
	PressureNone     QuotaPressure = "none"
	PressureElevated QuotaPressure = "elevated"
	PressureHigh     QuotaPressure = "high"
	PressureCritical QuotaPressure = "critical"
)

// PlanMeta is scoring metadata attached to a plan.
type PlanMeta struct {
	EngineVersion  string `yaml:"engine_version"`
	ShadowCompared bool   `yaml:"shadow_compared"`
}

// PlanSummary is the operator-facing rollup of a plan.
type PlanSummary struct {
	Policy              BillingConstraint `yaml:"policy"`
	ProviderCounts      map[string]int    `yaml:"provider_counts"`
	EstimatedMonthlyUSD float64           `yaml:"estimated_monthly_usd"`
	QuotaPressure       QuotaPressure     `yaml:"quota_pressure"`
	CanaryTrend         string            `yaml:"canary_trend,omitempty"`
}

// DynamicModelPlan is the engine's top-level output: one assignment per
// role, a deduplicated fallback chain per role, provenance, and the
// explanations an operator-facing "explain" surface renders.
type DynamicModelPlan struct {
	Assignments  map[AgentRole]Assignment `yaml:"assignments"`
	Fallbacks    map[AgentRole][]string   `yaml:"fallbacks"`
	Provenance   map[AgentRole]Provenance `yaml:"provenance"`
	Meta         PlanMeta                 `yaml:"meta"`
	Explanations map[AgentRole]string     `yaml:"explanations"`
	Summary      PlanSummary              `yaml:"summary"`
}

// ClampConfidence bounds a confidence value to [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
