package shadow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maestro/internal/domain"
)

func healthyMetrics(samples int) domain.ShadowMetrics {
	return domain.ShadowMetrics{
		Samples:      samples,
		SuccessRate:  0.95,
		AvgLatencyMS: 800,
		P95LatencyMS: 1800,
		AvgCostUSD:   0.012,
		QualityScore: 0.8,
		FallbackRate: 0.05,
	}
}

func TestEvaluateMissingMetricsErrors(t *testing.T) {
	e := NewEvaluator(Config{})
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(100))

	_, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingMetrics))

	_, err = e.EvaluateCandidate("baseline", "candidate", domain.RoleCoder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingMetrics))
}

func TestEvaluateBelowMinSamplesHolds(t *testing.T) {
	e := NewEvaluator(Config{MinSamples: 25})
	// Candidate is dramatically better, but the evidence is thin.
	better := healthyMetrics(10)
	better.SuccessRate = 1.0
	e.RecordMetrics(domain.RoleCoder, "candidate", better)
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(10))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendHold, verdict.Recommendation)
	assert.Contains(t, verdict.Reasons[0], "insufficient samples")
}

func TestEvaluateHardSuccessDropRollsBack(t *testing.T) {
	e := NewEvaluator(Config{})
	cand := healthyMetrics(100)
	cand.SuccessRate = 0.86 // 9 points below the 0.95 baseline
	// Make everything else better so only the hard trigger can fire.
	cand.AvgLatencyMS = 400
	cand.AvgCostUSD = 0.001
	cand.FallbackRate = 0.01
	cand.QualityScore = 0.95
	e.RecordMetrics(domain.RoleCoder, "candidate", cand)
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(100))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendRollback, verdict.Recommendation)
	assert.Contains(t, verdict.Reasons[0], "success rate dropped")
}

func TestEvaluateFallbackSpikeRollsBack(t *testing.T) {
	e := NewEvaluator(Config{})
	cand := healthyMetrics(100)
	cand.FallbackRate = 0.25 // above max(20%, 1.6 x 5%)
	e.RecordMetrics(domain.RoleCoder, "candidate", cand)
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(100))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendRollback, verdict.Recommendation)
}

func TestEvaluateLatencyBlowupRollsBack(t *testing.T) {
	e := NewEvaluator(Config{})
	cand := healthyMetrics(100)
	cand.AvgLatencyMS = 1200 // 1.5x the 800ms baseline
	e.RecordMetrics(domain.RoleCoder, "candidate", cand)
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(100))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendRollback, verdict.Recommendation)
}

func TestEvaluatePromotesClearWin(t *testing.T) {
	e := NewEvaluator(Config{})
	cand := healthyMetrics(100)
	cand.SuccessRate = 0.99
	cand.AvgLatencyMS = 500
	cand.AvgCostUSD = 0.006
	cand.FallbackRate = 0.01
	cand.QualityScore = 0.9
	e.RecordMetrics(domain.RoleCoder, "candidate", cand)
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(100))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendPromote, verdict.Recommendation)
}

func TestEvaluateNearTieHolds(t *testing.T) {
	e := NewEvaluator(Config{})
	cand := healthyMetrics(100)
	cand.SuccessRate = 0.951
	e.RecordMetrics(domain.RoleCoder, "candidate", cand)
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(100))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendHold, verdict.Recommendation)
}

func TestConfidenceClampedAndScaled(t *testing.T) {
	e := NewEvaluator(Config{MinSamples: 25})
	e.RecordMetrics(domain.RoleCoder, "candidate", healthyMetrics(25))
	e.RecordMetrics(domain.RoleCoder, "baseline", healthyMetrics(1000))

	verdict, err := e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	// min(25, 1000) / (2*25) = 0.5
	assert.InDelta(t, 0.5, verdict.Confidence, 1e-9)

	e.RecordMetrics(domain.RoleCoder, "candidate", healthyMetrics(100000))
	verdict, err = e.EvaluateCandidate("candidate", "baseline", domain.RoleCoder)
	require.NoError(t, err)
	assert.LessOrEqual(t, verdict.Confidence, 1.0)
}

func TestRecordMetricsOverwrites(t *testing.T) {
	e := NewEvaluator(Config{})
	e.RecordMetrics(domain.RoleCoder, "m", healthyMetrics(10))
	e.RecordMetrics(domain.RoleCoder, "m", healthyMetrics(50))

	m, ok := e.Metrics(domain.RoleCoder, "m")
	require.True(t, ok)
	assert.Equal(t, 50, m.Samples, "ingest must overwrite, not accumulate")
}
