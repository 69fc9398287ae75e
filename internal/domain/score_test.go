package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestScore_NumericScenario(t *testing.T) {
	snap := WeatherSnapshot{
		Origin:      OriginNumeric,
		RainfallMm:  12,
		HumidityPct: intPtr(95),
		WindSpeedMs: 18,
		PressureHpa: floatPtr(995),
	}

	a := Score(snap, 0)

	assert.Equal(t, 90, a.Score) // 40 + 20 + 15 + 15
	assert.Equal(t, RiskCritical, a.Level)
	assert.Equal(t, 0, a.CommunityInfluence)
	assert.Equal(t, snap, a.Snapshot)
}

func TestScore_NarrativeScenario(t *testing.T) {
	snap := WeatherSnapshot{
		Origin:        OriginNarrative,
		ConditionText: "Heavy Rain",
		Narrative:     "flash flood warning issued, heavy rain",
	}

	a := Score(snap, 20)

	assert.Equal(t, 110, a.Score) // 50 + 40 + 20
	assert.Equal(t, RiskCritical, a.Level)
	assert.Equal(t, 20, a.CommunityInfluence)
}

func TestScore_NumericBands(t *testing.T) {
	tests := []struct {
		name string
		snap WeatherSnapshot
		want int
	}{
		{"calm", WeatherSnapshot{Origin: OriginNumeric}, 0},
		{"rain >2", WeatherSnapshot{Origin: OriginNumeric, RainfallMm: 2.1}, 15},
		{"rain exactly 2", WeatherSnapshot{Origin: OriginNumeric, RainfallMm: 2}, 0},
		{"rain >5", WeatherSnapshot{Origin: OriginNumeric, RainfallMm: 6}, 25},
		{"rain >10", WeatherSnapshot{Origin: OriginNumeric, RainfallMm: 10.5}, 40},
		{"humidity >80", WeatherSnapshot{Origin: OriginNumeric, HumidityPct: intPtr(85)}, 10},
		{"humidity >90", WeatherSnapshot{Origin: OriginNumeric, HumidityPct: intPtr(91)}, 20},
		{"wind >10", WeatherSnapshot{Origin: OriginNumeric, WindSpeedMs: 11}, 10},
		{"pressure <1010", WeatherSnapshot{Origin: OriginNumeric, PressureHpa: floatPtr(1005)}, 10},
		{"pressure <1000", WeatherSnapshot{Origin: OriginNumeric, PressureHpa: floatPtr(999.9)}, 15},
		{"pressure normal", WeatherSnapshot{Origin: OriginNumeric, PressureHpa: floatPtr(1013)}, 0},
		{"nil pressure ignored", WeatherSnapshot{Origin: OriginNumeric, PressureHpa: nil}, 0},
		{"narrative text ignored on numeric path", WeatherSnapshot{Origin: OriginNumeric, ConditionText: "heavy rain"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.snap, 0).Score)
		})
	}
}

func TestScore_NarrativeCues(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"none", "Sunny, with a high near 70.", 0},
		{"torrential", "Torrential downpours overnight", 40},
		{"moderate rain", "Moderate rain after 2pm", 25},
		{"light rain", "Light rain likely", 15},
		{"flood once even with flash flood", "Flash flood watch, flooding possible", 50},
		{"thunderstorm", "Showers and thunderstorms likely", 20},
		{"gale", "Gale force gusts", 15},
		{"cues are additive", "Heavy rain and light rain with strong winds", 40 + 15 + 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := WeatherSnapshot{Origin: OriginNarrative, Narrative: tt.text}
			assert.Equal(t, tt.want, Score(snap, 0).Score)
		})
	}

	t.Run("falls back to condition text", func(t *testing.T) {
		snap := WeatherSnapshot{Origin: OriginNarrative, ConditionText: "Chance Thunderstorms"}
		assert.Equal(t, 20, Score(snap, 0).Score)
	})

	t.Run("narrative rain bands", func(t *testing.T) {
		snap := WeatherSnapshot{Origin: OriginNarrative, RainfallMm: 63.5}
		assert.Equal(t, 40, Score(snap, 0).Score)
		snap.RainfallMm = 12
		assert.Equal(t, 25, Score(snap, 0).Score)
		snap.RainfallMm = 6
		assert.Equal(t, 15, Score(snap, 0).Score)
		snap.RainfallMm = 5
		assert.Equal(t, 0, Score(snap, 0).Score)
	})

	t.Run("numeric-only signals ignored", func(t *testing.T) {
		snap := WeatherSnapshot{
			Origin:      OriginNarrative,
			HumidityPct: intPtr(99),
			WindSpeedMs: 30,
			PressureHpa: floatPtr(950),
		}
		assert.Equal(t, 0, Score(snap, 0).Score)
	})
}

func TestScore_InfluenceClampedAndAddedOnce(t *testing.T) {
	snap := WeatherSnapshot{Origin: OriginNumeric}

	a := Score(snap, 80)
	assert.Equal(t, 50, a.CommunityInfluence)
	assert.Equal(t, 50, a.Score)

	a = Score(snap, -40)
	assert.Equal(t, -10, a.CommunityInfluence)
	assert.Equal(t, -10, a.Score)
	assert.Equal(t, RiskLow, a.Level)
}

func TestScore_Idempotent(t *testing.T) {
	snap := WeatherSnapshot{
		Origin:      OriginNumeric,
		RainfallMm:  7,
		HumidityPct: intPtr(88),
		WindSpeedMs: 12,
		PressureHpa: floatPtr(1008),
	}
	first := Score(snap, 15)
	second := Score(snap, 15)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Level, second.Level)
}

func TestClassify_Tables(t *testing.T) {
	numeric := []struct {
		score int
		want  RiskLevel
	}{
		{-10, RiskLow}, {19, RiskLow}, {20, RiskMedium}, {39, RiskMedium},
		{40, RiskHigh}, {59, RiskHigh}, {60, RiskCritical}, {85, RiskCritical},
	}
	for _, tt := range numeric {
		assert.Equal(t, tt.want, Classify(OriginNumeric, tt.score), "numeric %d", tt.score)
		assert.Equal(t, tt.want, Classify(OriginFallback, tt.score), "fallback %d", tt.score)
	}

	narrative := []struct {
		score int
		want  RiskLevel
	}{
		{34, RiskLow}, {35, RiskMedium}, {59, RiskMedium},
		{60, RiskHigh}, {79, RiskHigh}, {80, RiskCritical},
	}
	for _, tt := range narrative {
		assert.Equal(t, tt.want, Classify(OriginNarrative, tt.score), "narrative %d", tt.score)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for _, origin := range []Origin{OriginNumeric, OriginNarrative} {
		prev := Classify(origin, -20)
		for s := -19; s <= 200; s++ {
			cur := Classify(origin, s)
			assert.False(t, cur.Less(prev), "%s: score %d classified %s below %s", origin, s, cur, prev)
			prev = cur
		}
	}
}

func TestRiskLevelOrder(t *testing.T) {
	assert.True(t, RiskLow.Less(RiskMedium))
	assert.True(t, RiskMedium.Less(RiskHigh))
	assert.True(t, RiskHigh.Less(RiskCritical))
	assert.False(t, RiskCritical.Less(RiskLow))
	assert.False(t, RiskHigh.Less(RiskHigh))
}

func TestFallbackAssessment(t *testing.T) {
	a := FallbackAssessment(FixedRand(0.5), evalTime)

	assert.True(t, a.Fallback)
	assert.Equal(t, RiskLow, a.Level)
	assert.Equal(t, OriginFallback, a.Snapshot.Origin)
	assert.Equal(t, 18, a.Snapshot.TemperatureC)
	assert.Equal(t, 75, *a.Snapshot.HumidityPct)
	assert.InDelta(t, 1.5, a.Snapshot.RainfallMm, 1e-9)
	assert.Equal(t, "Unknown", a.Snapshot.ConditionText)
	assert.Equal(t, 5.0, a.Snapshot.WindSpeedMs)
	assert.Equal(t, 1013.0, *a.Snapshot.PressureHpa)
	assert.Equal(t, 10.0, a.Snapshot.VisibilityKm)
	assert.Empty(t, a.NearbyReports)
	assert.Equal(t, 0, a.CommunityInfluence)
}
