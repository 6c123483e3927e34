// Package config reads the process configuration from the environment,
// after loading an optional .env file.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port        string   `envconfig:"PORT" default:"8080"`
	DBURL       string   `envconfig:"DB_URL" required:"true"`
	JWTSecret   string   `envconfig:"JWT_SECRET"`
	CORSOrigins []string `envconfig:"CORS_ORIGIN" default:"http://localhost:3000"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	CompositorURL     string        `envconfig:"COMPOSITOR_URL"`
	CompositorTimeout time.Duration `envconfig:"COMPOSITOR_TIMEOUT" default:"30s"`

	Stripe Stripe `envconfig:"STRIPE"`

	NATSURL     string `envconfig:"NATS_URL"`
	EventPrefix string `envconfig:"EVENT_PREFIX" default:"artmarket."`

	Regen Regen `envconfig:"REGEN"`
}

type Stripe struct {
	SecretKey     string `envconfig:"SECRET_KEY"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	SuccessURL    string `envconfig:"SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	CancelURL     string `envconfig:"CANCEL_URL" default:"http://localhost:3000/checkout/cancel"`
}

// Regen tunes the derived image worker. Keys are prefixed with REGEN_.
type Regen struct {
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	BatchSize      int           `envconfig:"BATCH_SIZE" default:"10"`
	Concurrency    int           `envconfig:"CONCURRENCY" default:"4"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	BackoffInitial time.Duration `envconfig:"BACKOFF_INITIAL" default:"5s"`
	BackoffMax     time.Duration `envconfig:"BACKOFF_MAX" default:"10m"`
	StaleAfter     time.Duration `envconfig:"STALE_AFTER" default:"5m"`
	// MetricsPort serves /metrics for the standalone worker command.
	MetricsPort string `envconfig:"METRICS_PORT" default:"9091"`
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using system environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}
	if cfg.DBURL == "" {
		return Config{}, errors.New("missing required environment variable: DB_URL")
	}
	if cfg.Regen.BatchSize < 1 || cfg.Regen.Concurrency < 1 || cfg.Regen.MaxAttempts < 1 {
		return Config{}, errors.New("REGEN_BATCH_SIZE, REGEN_CONCURRENCY and REGEN_MAX_ATTEMPTS must be positive")
	}
	return cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs.
func (c Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return errors.New("missing required environment variable: JWT_SECRET")
	}
	if c.CompositorURL == "" {
		log.Warn("COMPOSITOR_URL is not set; derived images will not be regenerated")
	}
	if c.Stripe.SecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set; checkout is disabled")
	}
	return nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrap(err, "LOG_LEVEL")
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("LOG_FORMAT %q: want text or json", c.LogFormat)
	}
	return nil
}
