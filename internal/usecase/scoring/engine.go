package scoring

import (
	"fmt"
	"math"
	"sort"

	"maestro/internal/domain"
)

// Tunables are the product-calibrated scoring constants. Zero values mean
// "use the default"; callers override individual fields through
// config.EngineConfig rather than editing code.
type Tunables struct {
	BillingViolationPenalty float64 // dominating penalty for a hard billing violation
	HybridSubscriptionBonus float64 // small bonus for subscription traffic under hybrid
	QuotaPenaltyLow         float64 // remaining fraction < 0.5
	QuotaPenaltyHigh        float64 // remaining fraction < 0.25
	QuotaPenaltyCritical    float64 // remaining fraction < 0.10
	DiversityReuse2Penalty  float64 // provider already used twice
	DiversityReuse3Penalty  float64 // provider already used three or more times
	DiversityFreshBonus     float64 // provider unused in this plan
	MaturityDeprecated      float64
	MaturityAlpha           float64
	MaturityBeta            float64
	CostCeilingUSD          float64 // blended $/MTok treated as "maximally expensive"
	SignalQualityMax        float64 // max boost from an external quality signal
}

func (t Tunables) withDefaults() Tunables {
	def := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	def(&t.BillingViolationPenalty, -200)
	def(&t.HybridSubscriptionBonus, 10)
	def(&t.QuotaPenaltyLow, -15)
	def(&t.QuotaPenaltyHigh, -40)
	def(&t.QuotaPenaltyCritical, -80)
	def(&t.DiversityReuse2Penalty, -25)
	def(&t.DiversityReuse3Penalty, -60)
	def(&t.DiversityFreshBonus, 10)
	def(&t.MaturityDeprecated, -120)
	def(&t.MaturityAlpha, -70)
	def(&t.MaturityBeta, -15)
	def(&t.CostCeilingUSD, 30)
	def(&t.SignalQualityMax, 15)
	return t
}

// Score tier cut points.
const (
	tierOptimalMin    = 120.0
	tierAcceptableMin = 60.0
	tierSuboptimalMin = -50.0
)

// Preference nudge schedule, first listed model first. Narrow by design:
// version affinity should tip ties, not outvote fitness.
var preferenceNudges = []float64{12, 8, 5, 3}

// Engine scores candidates against role profiles. It is a pure function
// holder: no hidden randomness, no clock, no I/O.
type Engine struct {
	tun Tunables
}

// NewEngine creates a scoring engine. Zero-valued tunables use defaults.
func NewEngine(tun Tunables) *Engine {
	return &Engine{tun: tun.withDefaults()}
}

// Score evaluates one candidate for one role in the given context. The
// returned component list is ordered and exhaustive, so the total is
// reproducible from the breakdown.
func (e *Engine) Score(cand domain.CandidateModel, role domain.AgentRole, ctx domain.ScoringContext) domain.ScoredCandidate {
	weights := domain.RoleProfiles[role]
	billing := cand.InferBilling()

	comps := make([]domain.ScoreComponent, 0, 10)
	add := func(name string, weight, raw float64, detail string) {
		comps = append(comps, domain.ScoreComponent{
			Name:         name,
			Weight:       weight,
			Raw:          raw,
			Contribution: weight * raw,
			Detail:       detail,
		})
	}

	add("role_fit", 1, e.roleFit(cand, weights), "capability and context match for role profile")
	add("latency_fit", weights.Speed, SpeedScore(cand.ModelID), "name-heuristic speed estimate")
	add("cost_fit", weights.Cost, e.costFit(cand), "cheaper per token scores higher, free is max")
	e.addBillingPolicy(add, billing, ctx.Policy)
	e.addQuotaPressure(add, billing, ctx.Quota)
	e.addPacing(add, cand, billing, ctx.Pacing)
	e.addDiversity(add, cand, ctx.ProviderUse)
	e.addMaturity(add, cand)
	e.addPreference(add, cand, role, ctx.Preferences)
	e.addSignal(add, cand, ctx.Signals)

	total := 0.0
	for _, c := range comps {
		total += c.Contribution
	}

	return domain.ScoredCandidate{
		Candidate:  cand,
		Role:       role,
		Billing:    billing,
		Components: comps,
		Total:      total,
		Tier:       tierOf(total),
	}
}

// Rank scores every candidate for a role and sorts the result by total
// score descending with a full deterministic tie-break: provider ID, then
// model ID.
func (e *Engine) Rank(cands []domain.CandidateModel, role domain.AgentRole, ctx domain.ScoringContext) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		out = append(out, e.Score(c, role, ctx))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		if out[i].Candidate.ProviderID != out[j].Candidate.ProviderID {
			return out[i].Candidate.ProviderID < out[j].Candidate.ProviderID
		}
		return out[i].Candidate.ModelID < out[j].Candidate.ModelID
	})
	return out
}

func (e *Engine) roleFit(cand domain.CandidateModel, w domain.RoleWeights) float64 {
	raw := 0.0
	if cand.Capabilities.Reasoning {
		raw += 30 * w.Reasoning
	}
	if cand.Capabilities.ToolCalling {
		raw += 30 * w.ToolUse
	}
	if cand.Capabilities.Attachments {
		raw += 15 * w.Attachments
	}
	ctxFrac := math.Min(float64(cand.ContextTokens)/200000.0, 1)
	raw += 25 * w.ContextSize * ctxFrac
	return raw
}

func (e *Engine) costFit(cand domain.CandidateModel) float64 {
	if cand.IsFree() {
		return 30
	}
	frac := math.Min(cand.BlendedCost()/e.tun.CostCeilingUSD, 1)
	return 30 * (1 - frac)
}

type addFunc func(name string, weight, raw float64, detail string)

func (e *Engine) addBillingPolicy(add addFunc, billing domain.BillingMode, pol domain.RoutingPolicy) {
	switch pol.Billing {
	case domain.BillingSubscriptionOnly:
		if billing == domain.BillingPaygo {
			add("billing_policy", 1, e.tun.BillingViolationPenalty, "paygo violates subscription-only policy")
			return
		}
	case domain.BillingPaygoOnly:
		if billing == domain.BillingSubscription {
			add("billing_policy", 1, e.tun.BillingViolationPenalty, "subscription violates paygo-only policy")
			return
		}
	default:
		if billing == domain.BillingSubscription {
			add("billing_policy", 1, e.tun.HybridSubscriptionBonus, "subscription preferred under hybrid policy")
			return
		}
	}
	add("billing_policy", 1, 0, "billing mode permitted by policy")
}

func (e *Engine) addQuotaPressure(add addFunc, billing domain.BillingMode, quota domain.QuotaStatus) {
	if billing != domain.BillingSubscription {
		add("quota_pressure", 1, 0, "paygo traffic is not quota-governed")
		return
	}
	frac := quota.Fraction()
	switch {
	case frac < 0.10:
		add("quota_pressure", 1, e.tun.QuotaPenaltyCritical, fmt.Sprintf("remaining quota %.0f%% is critical", frac*100))
	case frac < 0.25:
		add("quota_pressure", 1, e.tun.QuotaPenaltyHigh, fmt.Sprintf("remaining quota %.0f%% is low", frac*100))
	case frac < 0.50:
		add("quota_pressure", 1, e.tun.QuotaPenaltyLow, fmt.Sprintf("remaining quota %.0f%% below half", frac*100))
	default:
		add("quota_pressure", 1, 0, "quota healthy")
	}
}

// Pacing multipliers per mode. Economy degrades hardest as the monthly
// budget fills; quality-first resists the slide.
func pacingMultiplier(mode domain.PacingMode) float64 {
	switch mode {
	case domain.PacingQualityFirst:
		return 0.5
	case domain.PacingEconomy:
		return 1.5
	default:
		return 1.0
	}
}

// addPacing emits the two provider-class pacing terms: a spend-pressure
// penalty on metered traffic and a class adjustment that steers toward
// cheaper model classes as the month's budget fills.
func (e *Engine) addPacing(add addFunc, cand domain.CandidateModel, billing domain.BillingMode, pacing *domain.PacingSettings) {
	if pacing == nil || pacing.MonthBudgetUSD <= 0 {
		add("pacing_spend", 1, 0, "monthly pacing not configured")
		add("pacing_class", 1, 0, "monthly pacing not configured")
		return
	}
	mult := pacingMultiplier(pacing.Mode)
	frac := math.Min(pacing.BudgetFraction(), 1.5)

	// Term one: metered traffic gets progressively penalized once the
	// month is half spent.
	spendRaw := 0.0
	if billing == domain.BillingPaygo && frac > 0.5 {
		spendRaw = -mult * 40 * (frac - 0.5) * 2
	}
	add("pacing_spend", 1, spendRaw, fmt.Sprintf("monthly budget %.0f%% spent, mode %s", frac*100, pacing.Mode))

	// Term two: class-specific slide toward cheaper models.
	classRaw := 0.0
	switch ClassOf(cand.ModelID) {
	case ClassPremium:
		classRaw = -mult * 20 * frac
	case ClassEconomy:
		classRaw = mult * 10 * frac
	}
	add("pacing_class", 1, classRaw, fmt.Sprintf("%s-class model under %s pacing", ClassOf(cand.ModelID), pacing.Mode))
}

func (e *Engine) addDiversity(add addFunc, cand domain.CandidateModel, use map[string]int) {
	n := use[cand.ProviderID]
	switch {
	case n >= 3:
		add("diversity", 1, e.tun.DiversityReuse3Penalty, fmt.Sprintf("provider %s already used %d times", cand.ProviderID, n))
	case n == 2:
		add("diversity", 1, e.tun.DiversityReuse2Penalty, fmt.Sprintf("provider %s already used twice", cand.ProviderID))
	case n == 0:
		add("diversity", 1, e.tun.DiversityFreshBonus, fmt.Sprintf("provider %s unused in this plan", cand.ProviderID))
	default:
		add("diversity", 1, 0, fmt.Sprintf("provider %s used once", cand.ProviderID))
	}
}

func (e *Engine) addMaturity(add addFunc, cand domain.CandidateModel) {
	switch cand.Status {
	case domain.StatusDeprecated:
		add("maturity", 1, e.tun.MaturityDeprecated, "model is deprecated")
	case domain.StatusAlpha:
		add("maturity", 1, e.tun.MaturityAlpha, "model is alpha")
	case domain.StatusBeta:
		add("maturity", 1, e.tun.MaturityBeta, "model is beta")
	default:
		add("maturity", 1, 0, "model is active")
	}
}

func (e *Engine) addPreference(add addFunc, cand domain.CandidateModel, role domain.AgentRole, prefs map[domain.AgentRole][]string) {
	for i, id := range prefs[role] {
		if id != cand.ModelID {
			continue
		}
		nudge := preferenceNudges[len(preferenceNudges)-1]
		if i < len(preferenceNudges) {
			nudge = preferenceNudges[i]
		}
		add("preference", 1, nudge, fmt.Sprintf("version affinity: preference rank %d for %s", i+1, role))
		return
	}
	add("preference", 1, 0, "no preference listed")
}

// addSignal applies an external quality signal. Malformed or partial
// signal data is tolerated as zero boost, never an error.
func (e *Engine) addSignal(add addFunc, cand domain.CandidateModel, signals map[string]domain.ExternalSignal) {
	sig, ok := signals[cand.Key()]
	if !ok {
		add("signal_quality", 1, 0, "no external signal")
		return
	}
	q := sig.Quality
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 || q > 1 {
		add("signal_quality", 1, 0, "external signal unusable")
		return
	}
	add("signal_quality", 1, q*e.tun.SignalQualityMax, fmt.Sprintf("external quality %.2f", q))
}

func tierOf(total float64) domain.ScoreTier {
	switch {
	case total >= tierOptimalMin:
		return domain.TierOptimal
	case total >= tierAcceptableMin:
		return domain.TierAcceptable
	case total > tierSuboptimalMin:
		return domain.TierSuboptimal
	default:
		return domain.TierUnsuitable
	}
}
