// Package shadow compares a candidate model's live metrics against the
// current baseline and decides promote, hold, or rollback. Evidence below
// the sample threshold always holds.
package shadow

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"maestro/internal/domain"
)

// Composite-delta weights. Success dominates; latency, cost, fallback, and
// quality share the rest.
const (
	weightSuccess  = 0.40
	weightLatency  = 0.20
	weightCost     = 0.15
	weightFallback = 0.15
	weightQuality  = 0.10
)

// Config holds the evaluation thresholds. Zero values use defaults.
type Config struct {
	// MinSamples gates every decision: below it on either side the verdict
	// is hold, never promote or rollback.
	MinSamples int `yaml:"min_samples"`
	// PromoteThreshold is the composite delta a promotion requires.
	PromoteThreshold float64 `yaml:"promote_threshold"`
	// RollbackThreshold is the composite deficit forcing rollback.
	RollbackThreshold float64 `yaml:"rollback_threshold"`
	// SuccessDropPts is the hard-trigger success regression in points.
	SuccessDropPts float64 `yaml:"success_drop_pts"`
	// FallbackCeiling is the absolute fallback-rate hard trigger.
	FallbackCeiling float64 `yaml:"fallback_ceiling"`
	// FallbackRatio is the relative fallback-rate hard trigger.
	FallbackRatio float64 `yaml:"fallback_ratio"`
	// LatencyRatio is the relative latency hard trigger.
	LatencyRatio float64 `yaml:"latency_ratio"`
}

func (c Config) withDefaults() Config {
	if c.MinSamples <= 0 {
		c.MinSamples = 25
	}
	if c.PromoteThreshold == 0 {
		c.PromoteThreshold = 0.06
	}
	if c.RollbackThreshold == 0 {
		c.RollbackThreshold = 0.08
	}
	if c.SuccessDropPts == 0 {
		c.SuccessDropPts = 8
	}
	if c.FallbackCeiling == 0 {
		c.FallbackCeiling = 0.20
	}
	if c.FallbackRatio == 0 {
		c.FallbackRatio = 1.6
	}
	if c.LatencyRatio == 0 {
		c.LatencyRatio = 1.35
	}
	return c
}

// Evaluator holds the latest metrics snapshot per (role, model). It is
// long-lived; callers serialize concurrent access.
type Evaluator struct {
	cfg    Config
	store  map[string]domain.ShadowMetrics
	logger *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewEvaluator creates an evaluator with the given thresholds.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg.withDefaults(), store: make(map[string]domain.ShadowMetrics), logger: discardLogger()}
}

// NewEvaluatorWithLogger creates an evaluator with debug logging.
func NewEvaluatorWithLogger(cfg Config, logger *slog.Logger) *Evaluator {
	e := NewEvaluator(cfg)
	e.logger = logger
	return e
}

func metricsKey(role domain.AgentRole, modelID string) string {
	return string(role) + "/" + modelID
}

// RecordMetrics overwrites the rolling snapshot for one (role, model).
// Snapshots are replaced, never appended.
func (e *Evaluator) RecordMetrics(role domain.AgentRole, modelID string, m domain.ShadowMetrics) {
	e.store[metricsKey(role, modelID)] = m
	e.logger.Debug("shadow metrics recorded", "role", role, "model", modelID, "samples", m.Samples)
}

// Metrics returns the recorded snapshot for one (role, model).
func (e *Evaluator) Metrics(role domain.AgentRole, modelID string) (domain.ShadowMetrics, bool) {
	m, ok := e.store[metricsKey(role, modelID)]
	return m, ok
}

// Tracked reports whether any metrics have been recorded at all.
func (e *Evaluator) Tracked() bool { return len(e.store) > 0 }

// EvaluateCandidate compares candidate against baseline for one role.
// Comparison without both sides recorded is meaningless and errors; thin
// evidence on either side holds with an explicit reason. A rollback
// verdict is expected to trip an external, time-boxed circuit breaker on
// the (role, candidate) pair: enforcement is the caller's responsibility.
func (e *Evaluator) EvaluateCandidate(candModel, baseModel string, role domain.AgentRole) (domain.ShadowVerdict, error) {
	cand, ok := e.Metrics(role, candModel)
	if !ok {
		return domain.ShadowVerdict{}, domain.NewDomainError("Evaluator.EvaluateCandidate", domain.ErrMissingMetrics,
			fmt.Sprintf("candidate %s for role %s", candModel, role))
	}
	base, ok := e.Metrics(role, baseModel)
	if !ok {
		return domain.ShadowVerdict{}, domain.NewDomainError("Evaluator.EvaluateCandidate", domain.ErrMissingMetrics,
			fmt.Sprintf("baseline %s for role %s", baseModel, role))
	}

	confidence := domain.ClampConfidence(float64(min(cand.Samples, base.Samples)) / float64(2*e.cfg.MinSamples))

	if cand.Samples < e.cfg.MinSamples || base.Samples < e.cfg.MinSamples {
		return domain.ShadowVerdict{
			Recommendation: domain.RecommendHold,
			Confidence:     confidence,
			Reasons: []string{fmt.Sprintf("insufficient samples: candidate %d, baseline %d, need %d",
				cand.Samples, base.Samples, e.cfg.MinSamples)},
		}, nil
	}

	composite, reasons := e.composite(cand, base)

	// Hard triggers force rollback regardless of the composite sign.
	if hard := e.hardTriggers(cand, base); len(hard) > 0 {
		return domain.ShadowVerdict{
			Recommendation: domain.RecommendRollback,
			Confidence:     confidence,
			Reasons:        hard,
		}, nil
	}

	switch {
	case composite > e.cfg.PromoteThreshold:
		return domain.ShadowVerdict{
			Recommendation: domain.RecommendPromote,
			Confidence:     confidence,
			Reasons:        append(reasons, fmt.Sprintf("composite delta %+.3f above promote threshold %+.3f", composite, e.cfg.PromoteThreshold)),
		}, nil
	case composite < -e.cfg.RollbackThreshold:
		return domain.ShadowVerdict{
			Recommendation: domain.RecommendRollback,
			Confidence:     confidence,
			Reasons:        append(reasons, fmt.Sprintf("composite delta %+.3f below rollback threshold %+.3f", composite, -e.cfg.RollbackThreshold)),
		}, nil
	default:
		return domain.ShadowVerdict{
			Recommendation: domain.RecommendHold,
			Confidence:     confidence,
			Reasons:        append(reasons, fmt.Sprintf("composite delta %+.3f inside hold band", composite)),
		}, nil
	}
}

// composite computes the weighted delta of candidate over baseline,
// positive favoring the candidate.
func (e *Evaluator) composite(cand, base domain.ShadowMetrics) (float64, []string) {
	successDelta := cand.SuccessRate - base.SuccessRate
	latencyImp := ratioImprovement(base.AvgLatencyMS, cand.AvgLatencyMS)
	costImp := ratioImprovement(base.AvgCostUSD, cand.AvgCostUSD)
	fallbackImp := base.FallbackRate - cand.FallbackRate
	qualityDelta := cand.QualityScore - base.QualityScore

	composite := weightSuccess*successDelta +
		weightLatency*latencyImp +
		weightCost*costImp +
		weightFallback*fallbackImp +
		weightQuality*qualityDelta

	reasons := []string{
		fmt.Sprintf("success %+.1f pts, latency %+.0f%%, cost %+.0f%%, fallback %+.1f pts, quality %+.2f",
			successDelta*100, latencyImp*100, costImp*100, fallbackImp*100, qualityDelta),
	}
	return composite, reasons
}

// hardTriggers returns the regression reasons that force rollback.
func (e *Evaluator) hardTriggers(cand, base domain.ShadowMetrics) []string {
	var out []string
	if drop := (base.SuccessRate - cand.SuccessRate) * 100; drop > e.cfg.SuccessDropPts {
		out = append(out, fmt.Sprintf("hard trigger: success rate dropped %.1f points (limit %.0f)", drop, e.cfg.SuccessDropPts))
	}
	if limit := math.Max(e.cfg.FallbackCeiling, e.cfg.FallbackRatio*base.FallbackRate); cand.FallbackRate > limit {
		out = append(out, fmt.Sprintf("hard trigger: fallback rate %.1f%% exceeds %.1f%%", cand.FallbackRate*100, limit*100))
	}
	if base.AvgLatencyMS > 0 && cand.AvgLatencyMS > e.cfg.LatencyRatio*base.AvgLatencyMS {
		out = append(out, fmt.Sprintf("hard trigger: latency %.0fms exceeds %.2fx baseline %.0fms", cand.AvgLatencyMS, e.cfg.LatencyRatio, base.AvgLatencyMS))
	}
	return out
}

// ratioImprovement maps a lower-is-better pair to a signed fraction:
// positive when the candidate improves on the baseline. A zero baseline
// yields zero rather than a division blowup.
func ratioImprovement(base, cand float64) float64 {
	if base <= 0 {
		return 0
	}
	return (base - cand) / base
}
