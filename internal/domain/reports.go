package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// InfluenceMin and InfluenceMax bound the community influence score.
	InfluenceMin = -10
	InfluenceMax = 50

	// RecentWindow is how far back a report still counts toward influence.
	RecentWindow = 24 * time.Hour

	defaultMarkDescription = "User marked location"
)

// Per-report influence weights. Danger amplifies faster than safe mitigates.
var dangerWeights = map[Severity]int{
	SeverityCritical: 25,
	SeverityHigh:     15,
	SeverityMedium:   10,
	SeverityLow:      5,
}

const (
	safeMitigation = 3
	criticalBonus  = 30
)

// SeverityFromPoint grades the magnitude of a signed map-mark point value.
func SeverityFromPoint(point float64) Severity {
	abs := math.Abs(point)
	switch {
	case abs >= 8:
		return SeverityCritical
	case abs >= 5:
		return SeverityHigh
	case abs >= 3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// NormalizeMapMark derives status and severity from a signed point value:
// positive points mark a location safe, zero or negative mark it dangerous.
func NormalizeMapMark(point float64) (ReportStatus, Severity) {
	status := StatusDanger
	if point > 0 {
		status = StatusSafe
	}
	return status, SeverityFromPoint(point)
}

// ParseUserReport normalizes one freeform report record. It returns false only
// when the record is not a JSON object or lacks coordinates. Missing or unknown
// status and severity stay empty, so they add no weight; a missing timestamp
// leaves the zero time, which never counts as recent.
func ParseUserReport(raw json.RawMessage) (UserReport, bool) {
	rec, ok := decodeRecord(raw)
	if !ok {
		return UserReport{}, false
	}
	lat, okLat := floatField(rec, "lat")
	lng, okLng := floatField(rec, "lng")
	if !okLat || !okLng {
		return UserReport{}, false
	}
	status, _ := parseStatus(stringField(rec, "status"))

	ts, _ := timeField(rec, "timestamp")
	source := SourceDirectReport
	if ReportSource(stringField(rec, "source")) == SourceMapMark {
		source = SourceMapMark
	}

	return UserReport{
		Status:      status,
		Severity:    parseSeverity(stringField(rec, "severity")),
		Timestamp:   ts,
		Lat:         lat,
		Lng:         lng,
		Description: stringField(rec, "description"),
		Source:      source,
	}, true
}

// ParseMapMark normalizes one map-mark record. Marks without a timestamp are
// stamped with now, and a missing point normalizes as zero (danger, low). It
// returns false when coordinates are missing.
func ParseMapMark(raw json.RawMessage, now time.Time) (UserReport, bool) {
	rec, ok := decodeRecord(raw)
	if !ok {
		return UserReport{}, false
	}
	lat, okLat := floatField(rec, "lat")
	lng, okLng := floatField(rec, "lng")
	point, _ := floatField(rec, "point")
	if !okLat || !okLng {
		return UserReport{}, false
	}

	ts, ok := timeField(rec, "timestamp")
	if !ok {
		ts = now
	}
	desc := stringField(rec, "description")
	if desc == "" {
		desc = defaultMarkDescription
	}
	status, severity := NormalizeMapMark(point)

	return UserReport{
		Status:      status,
		Severity:    severity,
		Timestamp:   ts,
		Lat:         lat,
		Lng:         lng,
		Description: desc,
		Source:      SourceMapMark,
	}, true
}

// CommunityInfluence converts nearby reports into a bounded risk adjustment.
//
// Only reports from the last 24 hours before now count. Each recent danger
// report adds its severity weight, each recent safe report subtracts 3, and
// every recent critical report adds a further 30 on top, so critical danger
// reports are counted twice. The total is clamped to [-10, 50].
func CommunityInfluence(reports []UserReport, now time.Time) int {
	score := 0
	recent := 0
	for _, r := range reports {
		if r.Timestamp.IsZero() || now.Sub(r.Timestamp) >= RecentWindow {
			continue
		}
		recent++
		switch r.Status {
		case StatusDanger:
			score += dangerWeights[r.Severity]
		case StatusSafe:
			score -= safeMitigation
		}
		if r.Severity == SeverityCritical {
			score += criticalBonus
		}
	}
	if recent == 0 {
		return 0
	}
	return ClampInfluence(score)
}

// ClampInfluence bounds an influence score to [-10, 50].
func ClampInfluence(v int) int {
	return max(InfluenceMin, min(InfluenceMax, v))
}

func parseStatus(s string) (ReportStatus, bool) {
	switch ReportStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusSafe:
		return StatusSafe, true
	case StatusDanger:
		return StatusDanger, true
	default:
		return "", false
	}
}

func parseSeverity(s string) Severity {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev
	default:
		return ""
	}
}

// --- loose record access ---

func decodeRecord(raw json.RawMessage) (map[string]any, bool) {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

// floatField reads a number or a numeric string. Anything else is absent.
func floatField(rec map[string]any, key string) (float64, bool) {
	switch v := rec[key].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringField(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// timeField accepts RFC 3339 strings and Unix epoch milliseconds.
func timeField(rec map[string]any, key string) (time.Time, bool) {
	switch v := rec[key].(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)).UTC(), true
	default:
		return time.Time{}, false
	}
}
