package domain

import (
	"context"
	"strings"
	"time"
)

// Origin records which adapter produced a snapshot. It selects the scoring
// rule set and threshold table applied downstream.
type Origin string

const (
	OriginNumeric   Origin = "numeric"
	OriginNarrative Origin = "narrative"
	OriginFallback  Origin = "fallback"
)

// ProviderKind names a weather provider strategy.
type ProviderKind string

const (
	ProviderOpenWeather ProviderKind = "openweather"
	ProviderNWS         ProviderKind = "nws"
)

// ParseProviderKind maps a caller-supplied provider name to a kind. "narrative"
// and "numeric" are accepted as aliases. It returns false for anything else,
// including the empty string, leaving the choice of default to the caller.
func ParseProviderKind(s string) (ProviderKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nws", "narrative":
		return ProviderNWS, true
	case "openweather", "numeric":
		return ProviderOpenWeather, true
	default:
		return "", false
	}
}

// WeatherSnapshot is a provider-independent weather reading for one point in time.
type WeatherSnapshot struct {
	Origin        Origin    `json:"origin"`
	TemperatureC  int       `json:"temperature_c"`
	HumidityPct   *int      `json:"humidity_pct"`
	RainfallMm    float64   `json:"rainfall_mm"`
	ConditionText string    `json:"condition"`
	Narrative     string    `json:"narrative,omitempty"` // detailed forecast prose, narrative origin only
	WindSpeedMs   float64   `json:"wind_speed_ms"`
	PressureHpa   *float64  `json:"pressure_hpa"`
	VisibilityKm  float64   `json:"visibility_km"`
	ObservedAt    time.Time `json:"observed_at"`
	Place         string    `json:"place,omitempty"`
}

// ReportStatus is the reporter's assessment of a location.
type ReportStatus string

const (
	StatusSafe   ReportStatus = "safe"
	StatusDanger ReportStatus = "danger"
)

// Severity grades a user report.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ReportSource identifies which collection a report was normalized from.
type ReportSource string

const (
	SourceDirectReport ReportSource = "direct-report"
	SourceMapMark      ReportSource = "map-mark"
)

// UserReport is a crowd-sourced, geotagged report after normalization.
type UserReport struct {
	Status      ReportStatus `json:"status"`
	Severity    Severity     `json:"severity"`
	Timestamp   time.Time    `json:"timestamp"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	Description string       `json:"description"`
	Source      ReportSource `json:"source"`
}

// RiskLevel is the discrete flood risk classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Rank returns the position of the level in the order Low < Medium < High < Critical.
// Unknown levels rank below Low.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Less reports whether l is strictly lower than other.
func (l RiskLevel) Less(other RiskLevel) bool {
	return l.Rank() < other.Rank()
}

// RiskAssessment is the engine output for one location.
type RiskAssessment struct {
	ID                 string          `json:"id"`
	Lat                float64         `json:"lat"`
	Lng                float64         `json:"lng"`
	Provider           ProviderKind    `json:"provider"`
	Score              int             `json:"score"`
	Level              RiskLevel       `json:"level"`
	Snapshot           WeatherSnapshot `json:"snapshot"`
	CommunityInfluence int             `json:"community_influence"`
	NearbyReports      []UserReport    `json:"nearby_reports"`
	Fallback           bool            `json:"fallback"`
	AssessedAt         time.Time       `json:"assessed_at"`
}

// HourlyForecast is one scored hourly forecast entry.
type HourlyForecast struct {
	Time         time.Time `json:"time"`
	TemperatureC int       `json:"temperature_c"`
	RainfallMm   float64   `json:"rainfall_mm"`
	HumidityPct  *int      `json:"humidity_pct"`
	Condition    string    `json:"condition"`
	Level        RiskLevel `json:"flood_risk"`
}

// DailyForecast is one scored daily forecast entry.
type DailyForecast struct {
	Date       time.Time `json:"date"`
	HighC      int       `json:"high_c"`
	LowC       int       `json:"low_c"`
	RainfallMm float64   `json:"rainfall_mm"`
	Condition  string    `json:"condition"`
	Level      RiskLevel `json:"flood_risk"`
}

// Forecast holds up to 24 hourly and 7 daily entries.
type Forecast struct {
	Hourly []HourlyForecast `json:"hourly"`
	Daily  []DailyForecast  `json:"daily"`
}

// WeatherReport is the {current, forecast, lastUpdated} triple written to the weather cache.
type WeatherReport struct {
	Current     RiskAssessment `json:"current"`
	Forecast    Forecast       `json:"forecast"`
	LastUpdated time.Time      `json:"last_updated"`
}

// LocationRequest asks for a fresh assessment at a coordinate. An empty
// Provider selects the engine default.
type LocationRequest struct {
	Lat      float64      `json:"lat"`
	Lng      float64      `json:"lng"`
	Provider ProviderKind `json:"provider,omitempty"`
}

// RawMessage is an inbound location request as read from a watch source,
// before parsing. Commit, when set, acknowledges it to the source.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
	Commit    func(ctx context.Context) error
}
