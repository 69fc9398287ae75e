// Package nws implements the narrative-text weather provider on top of the
// National Weather Service API (api.weather.gov).
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

const (
	defaultBaseURL   = "https://api.weather.gov"
	defaultUserAgent = "flood-risk-service"

	defaultVisibilityKm = 10
)

// Point is the result of resolving a coordinate against the points endpoint.
type Point struct {
	ForecastURL string
	Place       string
}

// PointResolver maps a coordinate to its gridpoint forecast resource.
type PointResolver interface {
	ResolvePoint(ctx context.Context, lat, lng float64) (Point, error)
}

// Client implements domain.Provider using the two-step NWS lookup:
// points/{lat},{lng} to find the forecast URL, then the forecast itself.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	resolver   PointResolver
	rnd        domain.Rand
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an NWS client. Point resolutions are cached in an LRU of
// cacheSize entries; a non-positive size disables the cache.
func NewClient(baseURL, userAgent string, timeout time.Duration, cacheSize int, rnd domain.Rand, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if rnd == nil {
		rnd = domain.DefaultRand()
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rnd:     rnd,
		logger:  logger,
		metrics: metrics,
	}
	c.resolver = c
	if cacheSize > 0 {
		c.resolver = NewCachedResolver(c, cacheSize, metrics)
	}
	return c
}

// Kind reports the narrative provider kind.
func (c *Client) Kind() domain.ProviderKind { return domain.ProviderNWS }

// ResolvePoint looks up the forecast URL and relative location for a coordinate.
func (c *Client) ResolvePoint(ctx context.Context, lat, lng float64) (Point, error) {
	// NWS rejects coordinates with more than four decimal places.
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lng)

	var pr pointsResponse
	if err := c.doRequest(ctx, u, "points", &pr); err != nil {
		return Point{}, err
	}
	if pr.Properties.Forecast == "" {
		return Point{}, fmt.Errorf("%w: points response missing forecast URL", domain.ErrMalformedResponse)
	}

	p := Point{ForecastURL: pr.Properties.Forecast}
	if loc := pr.Properties.RelativeLocation; loc != nil && loc.Properties.City != "" {
		p.Place = loc.Properties.City
		if loc.Properties.State != "" {
			p.Place += ", " + loc.Properties.State
		}
	}
	return p, nil
}

// FetchSnapshot reads the first forecast period for a coordinate and extracts
// its signals from the period text.
func (c *Client) FetchSnapshot(ctx context.Context, lat, lng float64) (domain.WeatherSnapshot, error) {
	point, err := c.resolver.ResolvePoint(ctx, lat, lng)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}

	var fr forecastResponse
	if err := c.doRequest(ctx, point.ForecastURL, "forecast", &fr); err != nil {
		return domain.WeatherSnapshot{}, err
	}
	if len(fr.Properties.Periods) == 0 {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: forecast has no periods", domain.ErrMalformedResponse)
	}
	period := fr.Properties.Periods[0]
	if period.Temperature == nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: forecast period missing temperature", domain.ErrMalformedResponse)
	}

	humidity := domain.ExtractHumidity(period.DetailedForecast)
	snap := domain.WeatherSnapshot{
		Origin:        domain.OriginNarrative,
		TemperatureC:  celsius(*period.Temperature, period.TemperatureUnit),
		HumidityPct:   &humidity,
		RainfallMm:    domain.ExtractRainfallMm(period.DetailedForecast, c.rnd),
		ConditionText: period.ShortForecast,
		Narrative:     period.DetailedForecast,
		WindSpeedMs:   domain.ExtractWindSpeedMs(period.WindSpeed),
		VisibilityKm:  defaultVisibilityKm,
		ObservedAt:    domain.Now(),
		Place:         point.Place,
	}
	if t, err := time.Parse(time.RFC3339, fr.Properties.UpdateTime); err == nil {
		snap.ObservedAt = t.UTC()
	}
	return snap, nil
}

func celsius(temp float64, unit string) int {
	if strings.EqualFold(unit, "C") {
		return domain.RoundInt(temp)
	}
	return domain.FahrenheitToCelsius(temp)
}

func (c *Client) doRequest(ctx context.Context, fullURL, step string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create %s request: %w", domain.ErrProviderUnavailable, step, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderAPIDuration.WithLabelValues(string(domain.ProviderNWS)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.recordOutcome("error")
		return fmt.Errorf("%w: %s request: %w", domain.ErrProviderUnavailable, step, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordOutcome("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: nws %s error: status %d: %s", domain.ErrProviderUnavailable, step, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.recordOutcome("error")
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrMalformedResponse, step, err)
	}
	c.recordOutcome("success")
	c.logger.Debug("nws request complete", "step", step, "duration", time.Since(start))
	return nil
}

func (c *Client) recordOutcome(outcome string) {
	c.metrics.ProviderRequests.WithLabelValues(string(domain.ProviderNWS), outcome).Inc()
}

// NWS API response types.

type pointsResponse struct {
	Properties struct {
		Forecast         string            `json:"forecast"`
		RelativeLocation *relativeLocation `json:"relativeLocation"`
	} `json:"properties"`
}

type relativeLocation struct {
	Properties struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		UpdateTime string   `json:"updateTime"`
		Periods    []period `json:"periods"`
	} `json:"properties"`
}

type period struct {
	Name             string   `json:"name"`
	Temperature      *float64 `json:"temperature"`
	TemperatureUnit  string   `json:"temperatureUnit"`
	WindSpeed        string   `json:"windSpeed"`
	ShortForecast    string   `json:"shortForecast"`
	DetailedForecast string   `json:"detailedForecast"`
}
