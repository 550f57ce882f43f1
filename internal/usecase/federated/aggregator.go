// Package federated merges per-participant learning updates. Aggregation
// is a pure function: no state, no clock, no randomness.
package federated

import "maestro/internal/domain"

// Aggregate computes the sample-weighted mean per key present in any
// contributor. Keys a participant lacks contribute nothing to that key's
// mean. Zero updates yield empty maps and Participants of zero; a single
// update passes its values through unchanged.
func Aggregate(updates []domain.FederatedUpdate) domain.FederatedResult {
	out := domain.FederatedResult{
		ModelRewards:  make(map[string]float64),
		FeatureAdjust: make(map[string]float64),
		Participants:  len(updates),
	}
	if len(updates) == 0 {
		return out
	}

	out.ModelRewards = weightedMeans(updates, func(u domain.FederatedUpdate) map[string]float64 { return u.ModelRewards })
	out.FeatureAdjust = weightedMeans(updates, func(u domain.FederatedUpdate) map[string]float64 { return u.FeatureAdjust })
	return out
}

func weightedMeans(updates []domain.FederatedUpdate, pick func(domain.FederatedUpdate) map[string]float64) map[string]float64 {
	sums := make(map[string]float64)
	weights := make(map[string]float64)
	counts := make(map[string]int)
	plain := make(map[string]float64)

	for _, u := range updates {
		w := float64(u.Samples)
		for k, v := range pick(u) {
			counts[k]++
			plain[k] += v
			if w > 0 {
				sums[k] += v * w
				weights[k] += w
			}
		}
	}

	out := make(map[string]float64, len(counts))
	for k, n := range counts {
		if weights[k] > 0 {
			out[k] = sums[k] / weights[k]
			continue
		}
		// Every contributor of this key reported zero samples; fall back
		// to the plain mean so the key still appears.
		out[k] = plain[k] / float64(n)
	}
	return out
}
