package domain

import (
	"math"
	"strings"
)

// band adds points when a value exceeds a bound. Bands are checked in order and
// only the first match applies.
type band struct {
	above  float64
	points int
}

// threshold maps a minimum score to a level. Tables are ordered highest first.
type threshold struct {
	min   int
	level RiskLevel
}

var (
	numericRainBands   = []band{{10, 40}, {5, 25}, {2, 15}}
	narrativeRainBands = []band{{15, 40}, {10, 25}, {5, 15}}
	humidityBands      = []band{{90, 20}, {80, 10}}
	windBands          = []band{{15, 15}, {10, 10}}

	// Narrative scores run hotter, so its boundaries sit higher.
	numericThresholds = []threshold{
		{60, RiskCritical},
		{40, RiskHigh},
		{20, RiskMedium},
	}
	narrativeThresholds = []threshold{
		{80, RiskCritical},
		{60, RiskHigh},
		{35, RiskMedium},
	}
)

// lexicalCue adds points once when any of its phrases appears in the narrative.
type lexicalCue struct {
	phrases []string
	points  int
}

var lexicalCues = []lexicalCue{
	{[]string{"heavy rain", "torrential"}, 40},
	{[]string{"moderate rain"}, 25},
	{[]string{"light rain"}, 15},
	{[]string{"flood", "flash flood"}, 50},
	{[]string{"severe storm", "thunderstorm"}, 20},
	{[]string{"strong wind", "gale"}, 15},
}

// Score combines a snapshot with a community influence score into an assessment.
// The rule set and threshold table follow the snapshot origin. Influence is
// clamped to [-10, 50] and added exactly once. Score does not fill ID,
// NearbyReports or AssessedAt.
func Score(snapshot WeatherSnapshot, influence int) RiskAssessment {
	influence = ClampInfluence(influence)

	var raw int
	if snapshot.Origin == OriginNarrative {
		raw = narrativeScore(snapshot)
	} else {
		raw = numericScore(snapshot)
	}
	raw += influence

	return RiskAssessment{
		Score:              raw,
		Level:              Classify(snapshot.Origin, raw),
		Snapshot:           snapshot,
		CommunityInfluence: influence,
	}
}

// Classify maps a raw score to a level using the table for origin.
// Fallback and numeric origins share the numeric table.
func Classify(origin Origin, score int) RiskLevel {
	table := numericThresholds
	if origin == OriginNarrative {
		table = narrativeThresholds
	}
	for _, t := range table {
		if score >= t.min {
			return t.level
		}
	}
	return RiskLow
}

func numericScore(s WeatherSnapshot) int {
	score := applyBands(numericRainBands, s.RainfallMm)
	if s.HumidityPct != nil {
		score += applyBands(humidityBands, float64(*s.HumidityPct))
	}
	score += applyBands(windBands, s.WindSpeedMs)
	if s.PressureHpa != nil {
		switch p := *s.PressureHpa; {
		case p < 1000:
			score += 15
		case p < 1010:
			score += 10
		}
	}
	return score
}

func narrativeScore(s WeatherSnapshot) int {
	score := applyBands(narrativeRainBands, s.RainfallMm)

	text := s.Narrative
	if text == "" {
		text = s.ConditionText
	}
	text = strings.ToLower(text)
	for _, cue := range lexicalCues {
		for _, p := range cue.phrases {
			if strings.Contains(text, p) {
				score += cue.points
				break
			}
		}
	}
	return score
}

func applyBands(bands []band, v float64) int {
	for _, b := range bands {
		if v > b.above {
			return b.points
		}
	}
	return 0
}

// RoundInt rounds half up (2.5 -> 3, -2.5 -> -2).
func RoundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}
