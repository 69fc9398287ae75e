// Package openweather implements the structured-numeric weather provider on
// top of the OpenWeatherMap current weather and One Call APIs.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"

	maxHourly = 24
	maxDaily  = 7

	defaultVisibilityKm = 10
)

// Client implements domain.Provider and domain.Forecaster using OpenWeatherMap.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	rnd        domain.Rand
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeatherMap client. An empty baseURL selects the public API.
// rnd drives the rainfall estimate used when a reading has no accumulation fields.
func NewClient(apiKey, baseURL string, timeout time.Duration, rnd domain.Rand, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if rnd == nil {
		rnd = domain.DefaultRand()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rnd:     rnd,
		logger:  logger,
		metrics: metrics,
	}
}

// Kind reports the numeric provider kind.
func (c *Client) Kind() domain.ProviderKind { return domain.ProviderOpenWeather }

// FetchSnapshot reads current conditions for a coordinate.
func (c *Client) FetchSnapshot(ctx context.Context, lat, lng float64) (domain.WeatherSnapshot, error) {
	var cur currentResponse
	if err := c.doRequest(ctx, "weather", c.params(lat, lng), &cur); err != nil {
		return domain.WeatherSnapshot{}, err
	}
	if cur.Main == nil || cur.Main.Temp == nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("%w: weather response missing main.temp", domain.ErrMalformedResponse)
	}
	var wind float64
	if cur.Wind != nil {
		wind = cur.Wind.Speed
	}
	if err := checkReading("weather", cur.Main.Humidity, cur.Main.Pressure, wind, cur.Visibility); err != nil {
		return domain.WeatherSnapshot{}, err
	}

	snap := domain.WeatherSnapshot{
		Origin:        domain.OriginNumeric,
		TemperatureC:  domain.RoundInt(*cur.Main.Temp),
		HumidityPct:   roundPtr(cur.Main.Humidity),
		RainfallMm:    c.rainfallMm(cur.Rain, ptrValue(cur.Main.Humidity), cloudCover(cur.Clouds)),
		ConditionText: description(cur.Weather),
		WindSpeedMs:   wind,
		PressureHpa:   cur.Main.Pressure,
		VisibilityKm:  defaultVisibilityKm,
		ObservedAt:    domain.Now(),
		Place:         cur.Name,
	}
	if cur.Visibility != nil {
		snap.VisibilityKm = *cur.Visibility / 1000
	}
	if cur.Dt > 0 {
		snap.ObservedAt = time.Unix(cur.Dt, 0).UTC()
	}
	return snap, nil
}

// FetchForecast reads up to 24 hourly and 7 daily entries and scores each on the
// numeric path without community influence.
func (c *Client) FetchForecast(ctx context.Context, lat, lng float64) (domain.Forecast, error) {
	params := c.params(lat, lng)
	params.Set("exclude", "current,minutely")

	var oc oneCallResponse
	if err := c.doRequest(ctx, "onecall", params, &oc); err != nil {
		return domain.Forecast{}, err
	}

	forecast := domain.Forecast{
		Hourly: make([]domain.HourlyForecast, 0, min(len(oc.Hourly), maxHourly)),
		Daily:  make([]domain.DailyForecast, 0, min(len(oc.Daily), maxDaily)),
	}
	for _, h := range oc.Hourly[:min(len(oc.Hourly), maxHourly)] {
		if err := checkReading("onecall hourly", h.Humidity, h.Pressure, h.WindSpeed, nil); err != nil {
			return domain.Forecast{}, err
		}
		rain := c.rainfallMm(h.Rain, ptrValue(h.Humidity), h.Clouds)
		snap := domain.WeatherSnapshot{
			Origin:      domain.OriginNumeric,
			HumidityPct: roundPtr(h.Humidity),
			RainfallMm:  rain,
			WindSpeedMs: h.WindSpeed,
			PressureHpa: h.Pressure,
		}
		forecast.Hourly = append(forecast.Hourly, domain.HourlyForecast{
			Time:         time.Unix(h.Dt, 0).UTC(),
			TemperatureC: domain.RoundInt(h.Temp),
			RainfallMm:   rain,
			HumidityPct:  snap.HumidityPct,
			Condition:    description(h.Weather),
			Level:        domain.Score(snap, 0).Level,
		})
	}
	for _, d := range oc.Daily[:min(len(oc.Daily), maxDaily)] {
		if err := checkReading("onecall daily", d.Humidity, d.Pressure, d.WindSpeed, d.Rain); err != nil {
			return domain.Forecast{}, err
		}
		// Daily entries report rain as a plain daily total.
		var rain float64
		if d.Rain != nil {
			rain = *d.Rain
		} else {
			rain = c.rainfallMm(nil, ptrValue(d.Humidity), d.Clouds)
		}
		snap := domain.WeatherSnapshot{
			Origin:      domain.OriginNumeric,
			HumidityPct: roundPtr(d.Humidity),
			RainfallMm:  rain,
			WindSpeedMs: d.WindSpeed,
			PressureHpa: d.Pressure,
		}
		forecast.Daily = append(forecast.Daily, domain.DailyForecast{
			Date:       time.Unix(d.Dt, 0).UTC(),
			HighC:      domain.RoundInt(d.Temp.Max),
			LowC:       domain.RoundInt(d.Temp.Min),
			RainfallMm: rain,
			Condition:  description(d.Weather),
			Level:      domain.Score(snap, 0).Level,
		})
	}
	return forecast, nil
}

// rainfallMm prefers the 1h accumulation, then the 3h accumulation averaged per
// hour. Without either it draws a random estimate from the humidity and cloud
// cover band: >95% and >90% gives 2-7 mm, >85% and >70% gives 0.5-2.5 mm.
func (c *Client) rainfallMm(r *rainBlock, humidity, clouds float64) float64 {
	if r != nil {
		if r.OneHour != nil && *r.OneHour > 0 {
			return *r.OneHour
		}
		if r.ThreeHour != nil && *r.ThreeHour > 0 {
			return *r.ThreeHour / 3
		}
	}
	switch {
	case humidity > 95 && clouds > 90:
		return c.rnd.Float64()*5 + 2
	case humidity > 85 && clouds > 70:
		return c.rnd.Float64()*2 + 0.5
	default:
		return 0
	}
}

// checkReading rejects readings outside physical bounds: humidity in [0,100],
// positive pressure, and non-negative wind and extra (visibility or rain).
func checkReading(endpoint string, humidity, pressure *float64, wind float64, extra *float64) error {
	switch {
	case humidity != nil && (*humidity < 0 || *humidity > 100):
		return fmt.Errorf("%w: %s humidity %v out of range", domain.ErrMalformedResponse, endpoint, *humidity)
	case pressure != nil && *pressure <= 0:
		return fmt.Errorf("%w: %s pressure %v out of range", domain.ErrMalformedResponse, endpoint, *pressure)
	case wind < 0:
		return fmt.Errorf("%w: %s wind speed %v out of range", domain.ErrMalformedResponse, endpoint, wind)
	case extra != nil && *extra < 0:
		return fmt.Errorf("%w: %s negative reading %v", domain.ErrMalformedResponse, endpoint, *extra)
	}
	return nil
}

func (c *Client) params(lat, lng float64) url.Values {
	return url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lng, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, out any) error {
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrProviderUnavailable, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderAPIDuration.WithLabelValues(string(domain.ProviderOpenWeather)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.recordOutcome("error")
		return fmt.Errorf("%w: %s request: %w", domain.ErrProviderUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordOutcome("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: openweather API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.recordOutcome("error")
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrMalformedResponse, endpoint, err)
	}
	c.recordOutcome("success")
	c.logger.Debug("openweather request complete", "endpoint", endpoint, "duration", time.Since(start))
	return nil
}

func (c *Client) recordOutcome(outcome string) {
	c.metrics.ProviderRequests.WithLabelValues(string(domain.ProviderOpenWeather), outcome).Inc()
}

func description(w []weatherEntry) string {
	if len(w) == 0 {
		return ""
	}
	return w[0].Description
}

func cloudCover(c *cloudsBlock) float64 {
	if c == nil {
		return 0
	}
	return c.All
}

func roundPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	n := domain.RoundInt(*v)
	return &n
}

func ptrValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// OpenWeatherMap API response types.

type currentResponse struct {
	Dt         int64          `json:"dt"`
	Name       string         `json:"name"`
	Main       *mainBlock     `json:"main"`
	Weather    []weatherEntry `json:"weather"`
	Wind       *windBlock     `json:"wind"`
	Clouds     *cloudsBlock   `json:"clouds"`
	Rain       *rainBlock     `json:"rain"`
	Visibility *float64       `json:"visibility"` // metres
}

type mainBlock struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Pressure *float64 `json:"pressure"`
}

type weatherEntry struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

type cloudsBlock struct {
	All float64 `json:"all"`
}

type rainBlock struct {
	OneHour   *float64 `json:"1h"`
	ThreeHour *float64 `json:"3h"`
}

type oneCallResponse struct {
	Hourly []hourlyEntry `json:"hourly"`
	Daily  []dailyEntry  `json:"daily"`
}

type hourlyEntry struct {
	Dt        int64          `json:"dt"`
	Temp      float64        `json:"temp"`
	Humidity  *float64       `json:"humidity"`
	Pressure  *float64       `json:"pressure"`
	WindSpeed float64        `json:"wind_speed"`
	Clouds    float64        `json:"clouds"`
	Rain      *rainBlock     `json:"rain"`
	Weather   []weatherEntry `json:"weather"`
}

type dailyEntry struct {
	Dt        int64          `json:"dt"`
	Temp      dailyTemp      `json:"temp"`
	Humidity  *float64       `json:"humidity"`
	Pressure  *float64       `json:"pressure"`
	WindSpeed float64        `json:"wind_speed"`
	Clouds    float64        `json:"clouds"`
	Rain      *float64       `json:"rain"` // mm for the whole day
	Weather   []weatherEntry `json:"weather"`
}

type dailyTemp struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
