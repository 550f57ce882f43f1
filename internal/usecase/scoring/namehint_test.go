package scoring

import "testing"

func TestSpeedScore(t *testing.T) {
	tests := []struct {
		model string
		want  float64
	}{
		{"gpt-4o-mini", 30},
		{"gemini-2.0-flash", 30},
		{"claude-haiku", 30},
		{"claude-sonnet-4", 18},
		{"claude-opus-4", 8},
		{"llama-large", 8},
		{"mystery-model", 15},
	}
	for _, tc := range tests {
		if got := SpeedScore(tc.model); got != tc.want {
			t.Errorf("SpeedScore(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		model string
		want  ModelClass
	}{
		{"claude-opus-4", ClassPremium},
		{"gemini-pro", ClassPremium},
		{"gpt-4o-mini", ClassEconomy},
		{"gemma-nano", ClassEconomy},
		{"mystery-model", ClassStandard},
	}
	for _, tc := range tests {
		if got := ClassOf(tc.model); got != tc.want {
			t.Errorf("ClassOf(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestPremiumMarkerInsideFastName(t *testing.T) {
	// Fast markers win for speed, premium markers win for class; a name
	// carrying both is scored by each heuristic independently.
	if got := SpeedScore("turbo-pro"); got != 30 {
		t.Errorf("SpeedScore(turbo-pro) = %v, want 30", got)
	}
	if got := ClassOf("turbo-pro"); got != ClassPremium {
		t.Errorf("ClassOf(turbo-pro) = %v, want premium", got)
	}
}
