package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the dispatch server.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	SearchRadiusMeters float64
	OfferWindow        time.Duration
	GeofenceMeters     float64
	ReconnectDelay     time.Duration

	StripeAPIKey string
	PushEndpoint string
	PushKey      string

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:           ":8080",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		RedisGeoKey:        "drivers_geo",
		KafkaTopic:         "driver-locations",
		SearchRadiusMeters: 1000,
		OfferWindow:        25 * time.Second,
		GeofenceMeters:     50,
		ReconnectDelay:     3 * time.Second,
		LogLevel:           "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setFloatFromEnv(&cfg.SearchRadiusMeters, "SEARCH_RADIUS_METERS", &errs)
	setDurationFromEnv(&cfg.OfferWindow, "OFFER_WINDOW", &errs)
	setFloatFromEnv(&cfg.GeofenceMeters, "GEOFENCE_METERS", &errs)
	setDurationFromEnv(&cfg.ReconnectDelay, "RECONNECT_DELAY", &errs)

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")
	cfg.PushEndpoint = os.Getenv("PUSH_ENDPOINT")
	cfg.PushKey = os.Getenv("PUSH_KEY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.SearchRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_RADIUS_METERS must be > 0"))
	}
	if cfg.OfferWindow <= 0 {
		errs = append(errs, fmt.Errorf("OFFER_WINDOW must be > 0"))
	}
	if cfg.ReconnectDelay < time.Second {
		errs = append(errs, fmt.Errorf("RECONNECT_DELAY must be at least 1s"))
	}

	return cfg, errors.Join(errs...)
}

// ConsumerConfig drives the Kafka→Redis position mirror.
type ConsumerConfig struct {
	MetricsAddr  string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	RedisAddr    string
	RedisGeoKey  string
}

func LoadConsumerConfig() ConsumerConfig {
	cfg := ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "driver-locations",
		KafkaGroup:   "ride-dispatch-consumer",
		RedisAddr:    "localhost:6379",
		RedisGeoKey:  "drivers_geo",
	}
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")
	return cfg
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
