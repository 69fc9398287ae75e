package domain

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultHumidityPct = 75
	defaultWindSpeedMs = 5.0
	mmPerInch          = 25.4
	msPerMph           = 0.44704
	maxNarrativeRainMm = 5.0 // upper bound of the probability-based estimate at 100%
)

var (
	// percentRe matches the first percentage in a forecast, e.g. "80% chance" -> 80.
	percentRe = regexp.MustCompile(`(\d+)%`)

	// inchesRe matches an explicit rainfall quantity, e.g. "2.5 inches" or "1 inch".
	inchesRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*inch(?:es)?`)

	// windRangeRe matches NWS wind ranges such as "10 to 20 mph".
	windRangeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*to\s*(\d+(?:\.\d+)?)`)

	windSingleRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// ExtractHumidity returns the first percentage in a forecast narrative, clamped
// to [0,100], or 75 when the text has none.
func ExtractHumidity(text string) int {
	m := percentRe.FindStringSubmatch(text)
	if len(m) != 2 {
		return defaultHumidityPct
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultHumidityPct
	}
	return min(v, 100)
}

// ExtractRainfallMm estimates hourly rainfall from a forecast narrative.
//
// An explicit inch quantity is converted to millimeters. Otherwise, when the
// text mentions rain alongside a percentage, the estimate is a random draw in
// [0, pct/100*5) mm taken from rnd. Results on that branch are not repeatable
// unless rnd is. Everything else yields 0.
func ExtractRainfallMm(text string, rnd Rand) float64 {
	if m := inchesRe.FindStringSubmatch(text); len(m) == 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v * mmPerInch
		}
	}

	m := percentRe.FindStringSubmatch(text)
	if len(m) == 2 && strings.Contains(strings.ToLower(text), "rain") {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if rnd == nil {
			rnd = DefaultRand()
		}
		return rnd.Float64() * pct / 100 * maxNarrativeRainMm
	}

	return 0
}

// ExtractWindSpeedMs converts an NWS wind phrase in mph to meters per second.
// Ranges are averaged ("10 to 20 mph" -> 15 mph). Defaults to 5 m/s.
func ExtractWindSpeedMs(text string) float64 {
	if m := windRangeRe.FindStringSubmatch(text); len(m) == 3 {
		lo, errLo := strconv.ParseFloat(m[1], 64)
		hi, errHi := strconv.ParseFloat(m[2], 64)
		if errLo == nil && errHi == nil {
			return (lo + hi) / 2 * msPerMph
		}
	}
	if m := windSingleRe.FindStringSubmatch(text); len(m) == 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v * msPerMph
		}
	}
	return defaultWindSpeedMs
}

// FahrenheitToCelsius converts and rounds to the nearest whole degree.
func FahrenheitToCelsius(f float64) int {
	return RoundInt((f - 32) * 5 / 9)
}
