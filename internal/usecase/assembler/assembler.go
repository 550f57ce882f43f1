// Package assembler overlays precedence layers on the beam-search baseline
// and emits the final dynamic model plan with fallback chains, provenance,
// and operator-facing explanations.
package assembler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"maestro/internal/domain"
	"maestro/internal/infra/tracer"
	"maestro/internal/usecase/planner"
	"maestro/internal/usecase/scoring"
	"maestro/internal/usecase/shadow"
)

// EngineVersion stamps every plan's scoring metadata.
const EngineVersion = "1.4.0"

// defaultMaxChainLen bounds every fallback chain.
const defaultMaxChainLen = 5

// estMonthlyMTokPerRole sizes the summary's cost estimate.
const estMonthlyMTokPerRole = 5.0

// Config configures the assembler and its nested stages.
type Config struct {
	Scoring     scoring.Tunables `yaml:"scoring"`
	Planner     planner.Config   `yaml:"planner"`
	MaxChainLen int              `yaml:"max_chain_len"`
}

// Inputs is everything one planning call consumes. All fields are
// caller-normalized; the engine performs no discovery and no I/O.
type Inputs struct {
	Catalog     []domain.CandidateModel
	Policy      domain.RoutingPolicy
	Quota       domain.QuotaStatus
	Preferences map[domain.AgentRole][]string
	Pacing      *domain.PacingSettings
	Signals     map[string]domain.ExternalSignal
	Overrides   domain.Overrides

	// CanaryTrend optionally carries a precomputed experiment rollup for
	// the plan summary.
	CanaryTrend string
}

// Engine is the top-level planning facade. It is stateless across calls
// except for the optional attached shadow evaluator, which is long-lived
// and owned by the caller.
type Engine struct {
	scorer      *scoring.Engine
	planner     *planner.Planner
	shadow      *shadow.Evaluator
	maxChainLen int
	logger      *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New creates an engine. Zero-valued config fields use defaults.
func New(cfg Config) *Engine {
	scorer := scoring.NewEngine(cfg.Scoring)
	maxChain := cfg.MaxChainLen
	if maxChain <= 0 {
		maxChain = defaultMaxChainLen
	}
	return &Engine{
		scorer:      scorer,
		planner:     planner.New(scorer, cfg.Planner),
		maxChainLen: maxChain,
		logger:      discardLogger(),
	}
}

// NewWithLogger creates an engine with debug logging.
func NewWithLogger(cfg Config, logger *slog.Logger) *Engine {
	e := New(cfg)
	e.logger = logger
	e.planner = planner.NewWithLogger(e.scorer, cfg.Planner, logger)
	return e
}

// AttachShadow registers a shadow evaluator whose recorded metrics mark
// plans as shadow-compared.
func (e *Engine) AttachShadow(ev *shadow.Evaluator) { e.shadow = ev }

// precedence layers above the dynamic recommendation, highest first.
func overrideLayers(ov domain.Overrides) []struct {
	layer  domain.PrecedenceLayer
	models map[domain.AgentRole]string
} {
	return []struct {
		layer  domain.PrecedenceLayer
		models map[domain.AgentRole]string
	}{
		{domain.LayerHostOverride, ov.Host},
		{domain.LayerManualUserPlan, ov.Manual},
		{domain.LayerPinnedModel, ov.Pinned},
	}
}

// BuildPlan computes the baseline assignment, overlays higher-precedence
// layers, and assembles the final plan. A role with zero viable candidates
// fails the whole call; a user's explicit catalog-present choice is never
// silently overridden.
func (e *Engine) BuildPlan(ctx context.Context, in Inputs) (*domain.DynamicModelPlan, error) {
	_, span := tracer.StartSpan(ctx, "assembler.BuildPlan")
	defer span.End()
	tracer.BuildAttrs(span, len(in.Catalog), string(in.Policy.Billing), in.Quota.Fraction())

	for _, c := range in.Catalog {
		if err := c.Validate(); err != nil {
			wrapped := domain.WrapOp("Engine.BuildPlan", err)
			tracer.RecordError(span, wrapped)
			return nil, wrapped
		}
	}

	sctx := domain.ScoringContext{
		Policy:      in.Policy,
		Quota:       in.Quota,
		ProviderUse: map[string]int{},
		Pacing:      in.Pacing,
		Preferences: in.Preferences,
		Signals:     in.Signals,
	}

	base, err := e.planner.Plan(in.Catalog, sctx)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	byID := make(map[string]domain.CandidateModel, len(in.Catalog))
	for _, c := range in.Catalog {
		byID[c.ModelID] = c
	}

	plan := &domain.DynamicModelPlan{
		Assignments:  make(map[domain.AgentRole]domain.Assignment, len(domain.AllRoles)),
		Fallbacks:    make(map[domain.AgentRole][]string, len(domain.AllRoles)),
		Provenance:   make(map[domain.AgentRole]domain.Provenance, len(domain.AllRoles)),
		Explanations: make(map[domain.AgentRole]string, len(domain.AllRoles)),
		Meta: domain.PlanMeta{
			EngineVersion:  EngineVersion,
			ShadowCompared: e.shadow != nil && e.shadow.Tracked(),
		},
	}

	// Final provider usage drives override rescoring so confidence values
	// reflect the plan the override lands in.
	finalUse := map[string]int{}
	for _, sc := range base.Assignments {
		finalUse[sc.Candidate.ProviderID]++
	}
	overrideCtx := sctx.Clone()
	overrideCtx.ProviderUse = finalUse

	for _, role := range domain.AllRoles {
		winner := base.Assignments[role]
		provenance := domain.Provenance{Layer: domain.LayerDynamic, ModelID: winner.Candidate.ModelID}
		rationale := rationaleOf(winner, "dynamic recommendation")
		var skipped []string

		for _, layer := range overrideLayers(in.Overrides) {
			modelID, ok := layer.models[role]
			if !ok || modelID == "" {
				continue
			}
			cand, present := byID[modelID]
			if !present {
				skipErr := domain.NewDomainError("Engine.BuildPlan", domain.ErrUnknownModel,
					fmt.Sprintf("%s override %q for %s", layer.layer, modelID, role))
				e.logger.Warn("override ignored", "error", skipErr)
				skipped = append(skipped, skipErr.Error())
				continue
			}
			winner = e.scorer.Score(cand, role, overrideCtx)
			provenance = domain.Provenance{Layer: layer.layer, ModelID: modelID}
			rationale = rationaleOf(winner, string(layer.layer))
			break
		}

		plan.Assignments[role] = domain.Assignment{
			ModelID:    winner.Candidate.ModelID,
			Billing:    winner.Billing,
			Confidence: confidenceOf(winner.Tier),
			Rationale:  rationale,
		}
		plan.Provenance[role] = provenance
		plan.Fallbacks[role] = e.buildChain(winner.Candidate.ModelID, base.Alternatives[role], in.Catalog)
		plan.Explanations[role] = explain(role, winner, base.Alternatives[role])
		if len(skipped) > 0 {
			plan.Explanations[role] += " Ignored: " + strings.Join(skipped, "; ") + "."
		}
	}

	plan.Summary = e.summarize(plan, in)
	tracer.SetOK(span)
	e.logger.Info("plan assembled",
		"engine_version", EngineVersion,
		"providers", len(plan.Summary.ProviderCounts),
		"quota_pressure", plan.Summary.QuotaPressure,
	)
	return plan, nil
}

// buildChain produces the role's fallback chain: ranked non-winning
// alternatives, deduplicated, length-bounded, ending with the
// deterministic free-tier model when the catalog has one.
func (e *Engine) buildChain(winnerID string, alts []domain.ScoredCandidate, catalog []domain.CandidateModel) []string {
	seen := map[string]bool{winnerID: true}
	chain := make([]string, 0, e.maxChainLen)
	for _, alt := range alts {
		id := alt.Candidate.ModelID
		if seen[id] {
			continue
		}
		seen[id] = true
		chain = append(chain, id)
		if len(chain) == e.maxChainLen {
			break
		}
	}

	// The winner cannot terminate its own chain, so when it is the
	// deterministic free pick the next free candidate takes over.
	free := freeTierModel(catalog, winnerID)
	if free == "" {
		return chain
	}
	// Terminate with the free-tier model, displacing the weakest link if
	// the chain is full.
	out := chain[:0]
	for _, id := range chain {
		if id != free {
			out = append(out, id)
		}
	}
	if len(out) == e.maxChainLen {
		out = out[:e.maxChainLen-1]
	}
	return append(out, free)
}

// freeTierModel picks the deterministic chain terminator: the first free
// active candidate by (provider, model) order, excluding the role's winner.
func freeTierModel(catalog []domain.CandidateModel, excludeID string) string {
	best := ""
	bestProvider := ""
	for _, c := range catalog {
		if !c.IsFree() || c.Status == domain.StatusDeprecated || c.ModelID == excludeID {
			continue
		}
		if best == "" || c.ProviderID < bestProvider ||
			(c.ProviderID == bestProvider && c.ModelID < best) {
			best, bestProvider = c.ModelID, c.ProviderID
		}
	}
	return best
}

func confidenceOf(tier domain.ScoreTier) float64 {
	switch tier {
	case domain.TierOptimal:
		return domain.ClampConfidence(0.92)
	case domain.TierAcceptable:
		return domain.ClampConfidence(0.75)
	case domain.TierSuboptimal:
		return domain.ClampConfidence(0.55)
	default:
		return domain.ClampConfidence(0.30)
	}
}

// rationaleOf renders a short assignment rationale from the score
// breakdown's strongest components.
func rationaleOf(sc domain.ScoredCandidate, source string) string {
	comps := make([]domain.ScoreComponent, len(sc.Components))
	copy(comps, sc.Components)
	sort.SliceStable(comps, func(i, j int) bool {
		ai, aj := comps[i].Contribution, comps[j].Contribution
		if ai < 0 {
			ai = -ai
		}
		if aj < 0 {
			aj = -aj
		}
		return ai > aj
	})
	top := comps
	if len(top) > 2 {
		top = top[:2]
	}
	parts := make([]string, 0, 2)
	for _, c := range top {
		parts = append(parts, fmt.Sprintf("%s %+.1f", c.Name, c.Contribution))
	}
	return fmt.Sprintf("%s: %s scored %.1f (%s); driven by %s",
		source, sc.Candidate.ModelID, sc.Total, sc.Tier, strings.Join(parts, ", "))
}

func explain(role domain.AgentRole, winner domain.ScoredCandidate, alts []domain.ScoredCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s (%s, %s billing, score %.1f).",
		role, winner.Candidate.ModelID, winner.Tier, winner.Billing, winner.Total)
	if len(alts) > 0 {
		fmt.Fprintf(&b, " %d alternative(s); next best %s at %.1f.",
			len(alts), alts[0].Candidate.ModelID, alts[0].Total)
	}
	return b.String()
}

func (e *Engine) summarize(plan *domain.DynamicModelPlan, in Inputs) domain.PlanSummary {
	counts := make(map[string]int)
	byID := make(map[string]domain.CandidateModel, len(in.Catalog))
	for _, c := range in.Catalog {
		byID[c.ModelID] = c
	}
	est := 0.0
	for _, asg := range plan.Assignments {
		cand, ok := byID[asg.ModelID]
		if !ok {
			continue
		}
		counts[cand.ProviderID]++
		if asg.Billing == domain.BillingPaygo {
			est += cand.BlendedCost() * estMonthlyMTokPerRole
		}
	}
	return domain.PlanSummary{
		Policy:              in.Policy.Billing,
		ProviderCounts:      counts,
		EstimatedMonthlyUSD: est,
		QuotaPressure:       pressureOf(in.Quota.Fraction()),
		CanaryTrend:         in.CanaryTrend,
	}
}

func pressureOf(frac float64) domain.QuotaPressure {
	switch {
	case frac < 0.10:
		return domain.PressureCritical
	case frac < 0.25:
		return domain.PressureHigh
	case frac < 0.50:
		return domain.PressureElevated
	default:
		return domain.PressureNone
	}
}
