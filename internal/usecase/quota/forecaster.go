// Package quota projects subscription-allowance exhaustion from trailing
// usage history. Forecasts degrade in confidence with shallow history but
// never fail.
package quota

import (
	"fmt"

	"maestro/internal/domain"
)

// RiskLevel classifies a projected day's remaining allowance.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// maxHistory bounds how many trailing daily samples contribute to the rate.
const maxHistory = 14

// ProjectedDay is one step of the projection.
type ProjectedDay struct {
	Day       int // 1-based days from now
	Remaining float64
	Risk      RiskLevel
}

// Forecast is the projection result. ExhaustionDay is zero when no
// exhaustion is predicted inside the horizon.
type Forecast struct {
	DailyRate       float64
	Days            []ProjectedDay
	ExhaustionDay   int
	Confidence      float64
	Recommendations []string
}

// Exhausted reports whether exhaustion was predicted within the horizon.
func (f Forecast) Exhausted() bool { return f.ExhaustionDay > 0 }

// Forecaster projects quota depletion over a fixed horizon.
type Forecaster struct {
	horizon int
}

const defaultHorizon = 14

// NewForecaster creates a forecaster. A non-positive horizon uses the
// default of 14 days.
func NewForecaster(horizonDays int) *Forecaster {
	if horizonDays <= 0 {
		horizonDays = defaultHorizon
	}
	return &Forecaster{horizon: horizonDays}
}

// Forecast projects the remaining allowance day by day. dailyUsage holds
// trailing per-day consumption, most recent last; only the last 14 samples
// count. The consumption rate is floored at 1 so an idle history still
// produces a projection.
func (f *Forecaster) Forecast(q domain.QuotaStatus, dailyUsage []float64) Forecast {
	if len(dailyUsage) > maxHistory {
		dailyUsage = dailyUsage[len(dailyUsage)-maxHistory:]
	}

	rate := 1.0
	if len(dailyUsage) > 0 {
		sum := 0.0
		for _, v := range dailyUsage {
			sum += v
		}
		if avg := sum / float64(len(dailyUsage)); avg > rate {
			rate = avg
		}
	}

	baseline := q.MonthlyRemaining
	if q.MonthlyLimit <= 0 {
		baseline = q.DailyRemaining
	}

	out := Forecast{
		DailyRate:  rate,
		Days:       make([]ProjectedDay, 0, f.horizon),
		Confidence: confidence(len(dailyUsage)),
	}

	remaining := baseline
	for day := 1; day <= f.horizon; day++ {
		remaining -= rate
		out.Days = append(out.Days, ProjectedDay{
			Day:       day,
			Remaining: remaining,
			Risk:      riskOf(remaining, baseline),
		})
		if remaining <= 0 && out.ExhaustionDay == 0 {
			out.ExhaustionDay = day
		}
	}

	if out.Exhausted() {
		out.Recommendations = []string{
			fmt.Sprintf("quota projected to exhaust in %d day(s): shift low-stakes roles to paygo", out.ExhaustionDay),
			"deepen fallback chains so subscription exhaustion degrades instead of failing",
		}
	}
	return out
}

// confidence scales with history depth: a week of samples is full trust.
func confidence(samples int) float64 {
	c := float64(samples) / 7.0
	if c > 1 {
		return 1
	}
	return c
}

func riskOf(remaining, baseline float64) RiskLevel {
	if remaining <= 0 {
		return RiskCritical
	}
	if baseline <= 0 {
		return RiskCritical
	}
	switch ratio := remaining / baseline; {
	case ratio >= 0.75:
		return RiskNone
	case ratio >= 0.50:
		return RiskLow
	case ratio >= 0.25:
		return RiskMedium
	default:
		return RiskHigh
	}
}
