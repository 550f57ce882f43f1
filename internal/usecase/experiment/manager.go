// Package experiment allocates stable variants, aggregates per-variant
// metrics, and turns canary trends into promote/hold/rollback decisions.
package experiment

import (
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"sort"

	"maestro/internal/domain"
)

// Config holds canary-trend thresholds. Zero values use defaults.
type Config struct {
	// MinSamples gates every per-variant decision to hold below it.
	MinSamples int `yaml:"min_samples"`
	// SuccessDropPts is the success-rate regression (points) forcing rollback.
	SuccessDropPts float64 `yaml:"success_drop_pts"`
	// LatencyRegression is the relative latency increase forcing rollback.
	LatencyRegression float64 `yaml:"latency_regression"`
	// CostIncrease is the relative cost increase forcing rollback.
	CostIncrease float64 `yaml:"cost_increase"`
	// PromoteThreshold is the weighted composite a promotion requires.
	PromoteThreshold float64 `yaml:"promote_threshold"`
}

func (c Config) withDefaults() Config {
	if c.MinSamples <= 0 {
		c.MinSamples = 20
	}
	if c.SuccessDropPts == 0 {
		c.SuccessDropPts = 5
	}
	if c.LatencyRegression == 0 {
		c.LatencyRegression = 0.30
	}
	if c.CostIncrease == 0 {
		c.CostIncrease = 0.25
	}
	if c.PromoteThreshold == 0 {
		c.PromoteThreshold = 0.05
	}
	return c
}

// Canary composite weights.
const (
	canaryWeightSuccess = 0.60
	canaryWeightLatency = 0.25
	canaryWeightCost    = 0.15
)

// VariantDecision is one variant's canary verdict.
type VariantDecision struct {
	Variant        string
	Recommendation domain.Recommendation
	Reasons        []string
}

// CanaryReport reduces all variant decisions to one plan-level action.
type CanaryReport struct {
	Decisions []VariantDecision
	Overall   domain.Recommendation
}

// Manager is the long-lived experiment registry. Callers serialize
// concurrent access.
type Manager struct {
	cfg         Config
	experiments map[string]domain.Experiment
	metrics     map[string]map[string]domain.VariantMetrics
	logger      *slog.Logger
}

// NewManager creates an empty experiment registry.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:         cfg.withDefaults(),
		experiments: make(map[string]domain.Experiment),
		metrics:     make(map[string]map[string]domain.VariantMetrics),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// NewManagerWithLogger creates a registry with debug logging.
func NewManagerWithLogger(cfg Config, logger *slog.Logger) *Manager {
	m := NewManager(cfg)
	m.logger = logger
	return m
}

// Register adds or replaces an experiment. Weights must be positive and
// variant names unique.
func (m *Manager) Register(exp domain.Experiment) error {
	if exp.Name == "" || len(exp.Variants) == 0 {
		return domain.NewDomainError("Manager.Register", domain.ErrInvalidInput, "experiment needs a name and at least one variant")
	}
	seen := make(map[string]bool, len(exp.Variants))
	for _, v := range exp.Variants {
		if v.Name == "" || v.Weight <= 0 {
			return domain.NewDomainError("Manager.Register", domain.ErrInvalidInput,
				fmt.Sprintf("variant %q needs a name and positive weight", v.Name))
		}
		if seen[v.Name] {
			return domain.NewDomainError("Manager.Register", domain.ErrInvalidInput,
				fmt.Sprintf("duplicate variant %q", v.Name))
		}
		seen[v.Name] = true
	}
	m.experiments[exp.Name] = exp
	if m.metrics[exp.Name] == nil {
		m.metrics[exp.Name] = make(map[string]domain.VariantMetrics)
	}
	return nil
}

// Assign returns the variant for a subject. The allocation is a pure hash
// of (experiment, subject): repeat calls for the same subject always land
// on the same variant.
func (m *Manager) Assign(expName, subjectID string) (domain.Variant, error) {
	exp, ok := m.experiments[expName]
	if !ok {
		return domain.Variant{}, domain.NewDomainError("Manager.Assign", domain.ErrExperimentNotFound, expName)
	}
	total := 0
	for _, v := range exp.Variants {
		total += v.Weight
	}
	h := fnv.New32a()
	h.Write([]byte(expName))
	h.Write([]byte{0})
	h.Write([]byte(subjectID))
	slot := int(h.Sum32() % uint32(total))
	for _, v := range exp.Variants {
		slot -= v.Weight
		if slot < 0 {
			return v, nil
		}
	}
	return exp.Variants[len(exp.Variants)-1], nil
}

// RecordMetrics folds one observation into a variant's running aggregates.
func (m *Manager) RecordMetrics(expName, variant string, success bool, latencyMS, costUSD float64) error {
	if _, ok := m.experiments[expName]; !ok {
		return domain.NewDomainError("Manager.RecordMetrics", domain.ErrExperimentNotFound, expName)
	}
	agg := m.metrics[expName][variant]
	n := float64(agg.Samples)
	succ := 0.0
	if success {
		succ = 1
	}
	agg.SuccessRate = (agg.SuccessRate*n + succ) / (n + 1)
	agg.AvgLatencyMS = (agg.AvgLatencyMS*n + latencyMS) / (n + 1)
	agg.AvgCostUSD = (agg.AvgCostUSD*n + costUSD) / (n + 1)
	agg.Samples++
	m.metrics[expName][variant] = agg
	return nil
}

// Summary returns a copy of every variant's aggregates.
func (m *Manager) Summary(expName string) (map[string]domain.VariantMetrics, error) {
	if _, ok := m.experiments[expName]; !ok {
		return nil, domain.NewDomainError("Manager.Summary", domain.ErrExperimentNotFound, expName)
	}
	out := make(map[string]domain.VariantMetrics, len(m.metrics[expName]))
	for k, v := range m.metrics[expName] {
		out[k] = v
	}
	return out, nil
}

// EvaluateCanary compares every non-baseline variant to the baseline and
// reduces the decisions to one plan-level action: any rollback wins; else
// any promote with zero holds promotes; else hold.
func (m *Manager) EvaluateCanary(expName, baselineVariant string) (CanaryReport, error) {
	exp, ok := m.experiments[expName]
	if !ok {
		return CanaryReport{}, domain.NewDomainError("Manager.EvaluateCanary", domain.ErrExperimentNotFound, expName)
	}
	base := m.metrics[expName][baselineVariant]

	names := make([]string, 0, len(exp.Variants))
	for _, v := range exp.Variants {
		if v.Name != baselineVariant {
			names = append(names, v.Name)
		}
	}
	sort.Strings(names)

	report := CanaryReport{Overall: domain.RecommendHold}
	anyHold, anyPromote, anyRollback := false, false, false
	for _, name := range names {
		d := m.decideVariant(m.metrics[expName][name], base)
		d.Variant = name
		report.Decisions = append(report.Decisions, d)
		switch d.Recommendation {
		case domain.RecommendRollback:
			anyRollback = true
		case domain.RecommendPromote:
			anyPromote = true
		default:
			anyHold = true
		}
	}
	switch {
	case anyRollback:
		report.Overall = domain.RecommendRollback
	case anyPromote && !anyHold:
		report.Overall = domain.RecommendPromote
	}
	return report, nil
}

func (m *Manager) decideVariant(v, base domain.VariantMetrics) VariantDecision {
	if v.Samples < m.cfg.MinSamples || base.Samples < m.cfg.MinSamples {
		return VariantDecision{
			Recommendation: domain.RecommendHold,
			Reasons: []string{fmt.Sprintf("insufficient samples: variant %d, baseline %d, need %d",
				v.Samples, base.Samples, m.cfg.MinSamples)},
		}
	}

	successDelta := v.SuccessRate - base.SuccessRate
	latencyImp := relImprovement(base.AvgLatencyMS, v.AvgLatencyMS)
	costImp := relImprovement(base.AvgCostUSD, v.AvgCostUSD)

	var rollbackReasons []string
	if -successDelta*100 > m.cfg.SuccessDropPts {
		rollbackReasons = append(rollbackReasons, fmt.Sprintf("success rate dropped %.1f points", -successDelta*100))
	}
	if -latencyImp > m.cfg.LatencyRegression {
		rollbackReasons = append(rollbackReasons, fmt.Sprintf("latency regressed %.0f%%", -latencyImp*100))
	}
	if -costImp > m.cfg.CostIncrease {
		rollbackReasons = append(rollbackReasons, fmt.Sprintf("cost increased %.0f%%", -costImp*100))
	}
	if len(rollbackReasons) > 0 {
		return VariantDecision{Recommendation: domain.RecommendRollback, Reasons: rollbackReasons}
	}

	composite := canaryWeightSuccess*successDelta + canaryWeightLatency*latencyImp + canaryWeightCost*costImp
	if composite > m.cfg.PromoteThreshold && successDelta >= 0 {
		return VariantDecision{
			Recommendation: domain.RecommendPromote,
			Reasons:        []string{fmt.Sprintf("composite %+.3f above promote threshold with non-negative success delta", composite)},
		}
	}
	return VariantDecision{
		Recommendation: domain.RecommendHold,
		Reasons:        []string{fmt.Sprintf("composite %+.3f inside hold band", composite)},
	}
}

// ReprioritizeFallbacks moves a known-safe model to the front of each
// affected role's fallback chain after a rollback, stamping provenance
// with the provider fallback layer. Roles whose assignment came from a
// layer outranking the dynamic recommendation (host override, manual
// plan, pinned model) are left untouched.
func ReprioritizeFallbacks(plan *domain.DynamicModelPlan, roles []domain.AgentRole, safeModel string) {
	for _, role := range roles {
		if domain.LayerRank(plan.Provenance[role].Layer) < domain.LayerRank(domain.LayerDynamic) {
			continue
		}
		chain := plan.Fallbacks[role]
		next := make([]string, 0, len(chain)+1)
		next = append(next, safeModel)
		for _, id := range chain {
			if id != safeModel {
				next = append(next, id)
			}
		}
		plan.Fallbacks[role] = next
		plan.Provenance[role] = domain.Provenance{Layer: domain.LayerProviderFallback, ModelID: safeModel}
	}
}

func relImprovement(base, v float64) float64 {
	if base <= 0 {
		return 0
	}
	return (base - v) / base
}
