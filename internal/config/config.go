package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	MarketCheck MarketCheckConfig `yaml:"marketcheck" mapstructure:"marketcheck"`
	Evaluate    EvaluateConfig    `yaml:"evaluate" mapstructure:"evaluate"`
	Circuit     CircuitConfig     `yaml:"circuit" mapstructure:"circuit"`
	Checkout    CheckoutConfig    `yaml:"checkout" mapstructure:"checkout"`
	Stripe      StripeConfig      `yaml:"stripe" mapstructure:"stripe"`
	Resend      ResendConfig      `yaml:"resend" mapstructure:"resend"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MarketCheckConfig holds listing-data API settings.
type MarketCheckConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	LegacyBaseURL     string  `yaml:"legacy_base_url" mapstructure:"legacy_base_url"`
	Rows              int     `yaml:"rows" mapstructure:"rows"`
	Radius            int     `yaml:"radius" mapstructure:"radius"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// OfflineFile serves listings from a local CSV, XLSX, or JSON file
	// instead of the API.
	OfflineFile string `yaml:"offline_file" mapstructure:"offline_file"`
}

// EvaluateConfig tunes the pricing evaluator and fallback behavior.
type EvaluateConfig struct {
	MileageBand int     `yaml:"mileage_band" mapstructure:"mileage_band"`
	FairBand    float64 `yaml:"fair_band" mapstructure:"fair_band"`
	// SynthesizeOnEmpty serves a synthetic estimate when the listing source
	// answered but had nothing usable and an asking price is known.
	SynthesizeOnEmpty bool `yaml:"synthesize_on_empty" mapstructure:"synthesize_on_empty"`
	// Seed fixes the synthetic jitter source. Zero seeds randomly.
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// CircuitConfig configures the listing-source circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CheckoutConfig holds per-check fees.
type CheckoutConfig struct {
	VINFeeCents   int64  `yaml:"vin_fee_cents" mapstructure:"vin_fee_cents"`
	QuickFeeCents int64  `yaml:"quick_fee_cents" mapstructure:"quick_fee_cents"`
	MinCents      int64  `yaml:"min_cents" mapstructure:"min_cents"`
	Currency      string `yaml:"currency" mapstructure:"currency"`
}

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// ResendConfig holds Resend email settings.
type ResendConfig struct {
	Key  string `yaml:"key" mapstructure:"key"`
	From string `yaml:"from" mapstructure:"from"`
}

// MonitoringConfig configures alert delivery.
type MonitoringConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// SyntheticRateThreshold alerts when the share of synthetic verdicts in
	// the current window exceeds it.
	SyntheticRateThreshold float64 `yaml:"synthetic_rate_threshold" mapstructure:"synthetic_rate_threshold"`
	CheckIntervalSecs      int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// dotenvFiles are loaded in order; earlier files win because godotenv never
// overrides a variable that is already set.
var dotenvFiles = []string{".env.local", ".env"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRICECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have no default but must be known keys for env overrides to
	// reach Unmarshal.
	for _, key := range []string{"marketcheck.key", "marketcheck.offline_file", "stripe.secret_key", "resend.key", "monitoring.webhook_url"} {
		v.SetDefault(key, "")
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("marketcheck.base_url", "https://api.marketcheck.com")
	v.SetDefault("marketcheck.legacy_base_url", "https://marketcheck-prod.apigee.net")
	v.SetDefault("marketcheck.rows", 50)
	v.SetDefault("marketcheck.radius", 100)
	v.SetDefault("marketcheck.requests_per_second", 5)
	v.SetDefault("marketcheck.timeout_secs", 10)
	v.SetDefault("evaluate.mileage_band", 20000)
	v.SetDefault("evaluate.fair_band", 0.02)
	v.SetDefault("evaluate.synthesize_on_empty", true)
	v.SetDefault("evaluate.seed", 0)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("checkout.vin_fee_cents", 499)
	v.SetDefault("checkout.quick_fee_cents", 499)
	v.SetDefault("checkout.min_cents", 50)
	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("resend.from", "Car Price Checker <reports@carpricechecker.com>")
	v.SetDefault("monitoring.synthetic_rate_threshold", 0.5)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("batch.concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func loadDotenv() error {
	for _, name := range dotenvFiles {
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return eris.Wrapf(err, "config: load %s", name)
		}
	}
	return nil
}

// Validate checks that the settings needed by the given mode are present and
// in range. Modes: serve, check, batch.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimitPerMinute < 0 {
			errs = append(errs, "server.rate_limit_per_minute must be >= 0")
		}
		if c.Checkout.MinCents <= 0 {
			errs = append(errs, "checkout.min_cents must be > 0")
		}
	case "check":
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50 {
			errs = append(errs, fmt.Sprintf("batch.concurrency must be between 1 and 50 (got %d)", c.Batch.Concurrency))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Evaluate.FairBand < 0 || c.Evaluate.FairBand >= 1 {
		errs = append(errs, "evaluate.fair_band must be in [0, 1)")
	}
	if c.Evaluate.MileageBand < 0 {
		errs = append(errs, "evaluate.mileage_band must be >= 0")
	}
	if c.MarketCheck.TimeoutSecs <= 0 {
		errs = append(errs, "marketcheck.timeout_secs must be > 0")
	}
	if c.Circuit.FailureThreshold < 1 {
		errs = append(errs, "circuit.failure_threshold must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
