package domain

import "time"

// Conservative defaults substituted when live weather data cannot be obtained.
const (
	fallbackTemperatureC = 18
	fallbackHumidityPct  = 75
	fallbackMaxRainMm    = 3.0
	fallbackCondition    = "Unknown"
	fallbackWindSpeedMs  = 5.0
	fallbackPressureHpa  = 1013.0
	fallbackVisibilityKm = 10.0
)

// FallbackSnapshot returns the fixed conservative snapshot with a small random
// rainfall in [0,3) mm drawn from rnd.
func FallbackSnapshot(rnd Rand, now time.Time) WeatherSnapshot {
	if rnd == nil {
		rnd = DefaultRand()
	}
	humidity := fallbackHumidityPct
	pressure := fallbackPressureHpa
	return WeatherSnapshot{
		Origin:        OriginFallback,
		TemperatureC:  fallbackTemperatureC,
		HumidityPct:   &humidity,
		RainfallMm:    rnd.Float64() * fallbackMaxRainMm,
		ConditionText: fallbackCondition,
		WindSpeedMs:   fallbackWindSpeedMs,
		PressureHpa:   &pressure,
		VisibilityKm:  fallbackVisibilityKm,
		ObservedAt:    now,
	}
}

// FallbackAssessment wraps a fallback snapshot with a pre-assigned Low level.
// It is never passed through Score.
func FallbackAssessment(rnd Rand, now time.Time) RiskAssessment {
	return RiskAssessment{
		Score:         0,
		Level:         RiskLow,
		Snapshot:      FallbackSnapshot(rnd, now),
		NearbyReports: []UserReport{},
		Fallback:      true,
		AssessedAt:    now,
	}
}
