package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Watch sources for the location subscription loop.
const (
	WatchNone  = "none"
	WatchKafka = "kafka"
	WatchMQTT  = "mqtt"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Provider configuration.
	DefaultProvider    string
	ProviderTimeout    time.Duration
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	NWSBaseURL         string
	NWSUserAgent       string
	NWSPointCacheSize  int

	ReportRadiusKm float64

	// DatabaseURL selects the Postgres report store and weather cache.
	// Empty keeps both in memory.
	DatabaseURL string

	// ReportsSeedFile, when set, is loaded into the report store at startup.
	ReportsSeedFile string

	WatchSource string

	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	MQTTBrokerURL string
	MQTTTopic     string
	MQTTClientID  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	providerTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("PROVIDER_TIMEOUT", "10s"))
	if err != nil || providerTimeout <= 0 {
		return nil, errors.New("invalid PROVIDER_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	radius, err := parseRadius()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DefaultProvider:    strings.ToLower(sharedcfg.EnvOrDefault("DEFAULT_PROVIDER", "openweather")),
		ProviderTimeout:    providerTimeout,
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		NWSBaseURL:         sharedcfg.EnvOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent:       sharedcfg.EnvOrDefault("NWS_USER_AGENT", "flood-risk-service (ops@example.com)"),
		NWSPointCacheSize:  parsePointCacheSize(),

		ReportRadiusKm:  radius,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ReportsSeedFile: os.Getenv("REPORTS_SEED_FILE"),

		WatchSource: strings.ToLower(sharedcfg.EnvOrDefault("WATCH_SOURCE", WatchNone)),

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "location-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "flood-risk-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "flood-risk"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MQTTBrokerURL: sharedcfg.EnvOrDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTTopic:     sharedcfg.EnvOrDefault("MQTT_TOPIC", "flood-risk/locations"),
		MQTTClientID:  sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "flood-risk-service"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DefaultProvider {
	case "openweather", "nws":
	default:
		return fmt.Errorf("invalid DEFAULT_PROVIDER %q: must be openweather or nws", c.DefaultProvider)
	}

	switch c.WatchSource {
	case WatchNone:
	case WatchKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSourceTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	case WatchMQTT:
		if len(c.KafkaBrokers) == 0 || c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_BROKERS and KAFKA_SINK_TOPIC are required to publish reports")
		}
		if c.MQTTTopic == "" {
			return errors.New("MQTT_TOPIC is required")
		}
	default:
		return fmt.Errorf("invalid WATCH_SOURCE %q: must be none, kafka or mqtt", c.WatchSource)
	}
	return nil
}

func parseRadius() (float64, error) {
	s := sharedcfg.EnvOrDefault("REPORT_RADIUS_KM", "2")
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 {
		return 0, errors.New("invalid REPORT_RADIUS_KM: must be a positive number")
	}
	return r, nil
}

func parsePointCacheSize() int {
	if s := os.Getenv("NWS_POINT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
