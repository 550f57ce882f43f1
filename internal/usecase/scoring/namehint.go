package scoring

import "strings"

// Name-string heuristics inferring a model's speed and quality class from
// its identifier. Brittle to new naming conventions on purpose: this file
// is the only place such inference lives, and callers treat its output as a
// hint, never a contract.

// ModelClass is a coarse quality/price class inferred from a model name.
type ModelClass string

const (
	ClassPremium  ModelClass = "premium"
	ClassStandard ModelClass = "standard"
	ClassEconomy  ModelClass = "economy"
)

var fastMarkers = []string{"mini", "flash", "haiku", "lite", "nano", "turbo", "small"}

var premiumMarkers = []string{"opus", "pro", "large", "ultra", "max"}

var midMarkers = []string{"sonnet", "medium"}

// SpeedScore estimates relative response speed from the model identifier,
// on a 0..30 scale. Unknown names land in the middle.
func SpeedScore(modelID string) float64 {
	id := strings.ToLower(modelID)
	for _, m := range fastMarkers {
		if strings.Contains(id, m) {
			return 30
		}
	}
	for _, m := range midMarkers {
		if strings.Contains(id, m) {
			return 18
		}
	}
	for _, m := range premiumMarkers {
		if strings.Contains(id, m) {
			return 8
		}
	}
	return 15
}

// ClassOf infers the model's quality/price class from its identifier.
func ClassOf(modelID string) ModelClass {
	id := strings.ToLower(modelID)
	for _, m := range premiumMarkers {
		if strings.Contains(id, m) {
			return ClassPremium
		}
	}
	for _, m := range fastMarkers {
		if strings.Contains(id, m) {
			return ClassEconomy
		}
	}
	return ClassStandard
}
