package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string
	Format string
}

// AIConfig configures the chat-completion research API.
type AIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// CrawlConfig configures website fetching.
type CrawlConfig struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
}

// SMTPConfig configures mailbox probing.
type SMTPConfig struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	SenderDomain   string
	Port           int
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL      string
	JWTSecret        string
	Port             string
	CallbackBaseURL  string
	RateLimitEnrich  RateLimitConfig
	TokenTTL         time.Duration
	Log              LogConfig
	AI               AIConfig
	Crawl            CrawlConfig
	SMTP             SMTPConfig
	DNSTimeout       time.Duration
	PhoneRegion      string
	BatchConcurrency int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var durationDefaults = map[string]time.Duration{
	"jwt_ttl":              24 * time.Hour,
	"ai_timeout":           30 * time.Second,
	"crawl_timeout":        10 * time.Second,
	"crawl_delay":          500 * time.Millisecond,
	"smtp_connect_timeout": 10 * time.Second,
	"smtp_command_timeout": 10 * time.Second,
	"dns_timeout":          5 * time.Second,
}

// Load reads configuration from an optional config.yaml and the environment
// and applies sane defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "dev-secret")
	v.SetDefault("database_url", "")
	v.SetDefault("callback_base_url", "")
	v.SetDefault("rate_limit_enrich", "30/min")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("perplexity_api_key", "")
	v.SetDefault("perplexity_base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity_model", "sonar")
	v.SetDefault("ai_temperature", 0.1)
	v.SetDefault("crawl_user_agent", defaultUserAgent)
	v.SetDefault("smtp_sender_domain", "example.com")
	v.SetDefault("smtp_port", 25)
	v.SetDefault("phone_region", "DE")
	v.SetDefault("batch_concurrency", 4)
	for key, d := range durationDefaults {
		v.SetDefault(key, d.String())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	cfg := &Config{
		DatabaseURL:     v.GetString("database_url"),
		JWTSecret:       v.GetString("jwt_secret"),
		Port:            v.GetString("port"),
		CallbackBaseURL: strings.TrimRight(v.GetString("callback_base_url"), "/"),
		TokenTTL:        duration(v, "jwt_ttl"),
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		AI: AIConfig{
			APIKey:      v.GetString("perplexity_api_key"),
			BaseURL:     v.GetString("perplexity_base_url"),
			Model:       v.GetString("perplexity_model"),
			Timeout:     duration(v, "ai_timeout"),
			Temperature: v.GetFloat64("ai_temperature"),
		},
		Crawl: CrawlConfig{
			Timeout:   duration(v, "crawl_timeout"),
			Delay:     duration(v, "crawl_delay"),
			UserAgent: v.GetString("crawl_user_agent"),
		},
		SMTP: SMTPConfig{
			ConnectTimeout: duration(v, "smtp_connect_timeout"),
			CommandTimeout: duration(v, "smtp_command_timeout"),
			SenderDomain:   v.GetString("smtp_sender_domain"),
			Port:           v.GetInt("smtp_port"),
		},
		DNSTimeout:       duration(v, "dns_timeout"),
		PhoneRegion:      strings.ToUpper(v.GetString("phone_region")),
		BatchConcurrency: v.GetInt("batch_concurrency"),
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}

	rl, err := parseRateLimit(v.GetString("rate_limit_enrich"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_ENRICH value: %w", err)
	}
	cfg.RateLimitEnrich = rl

	return cfg, nil
}

// InitLogger builds the global zap logger: JSON in production, console for
// local runs.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

// duration reads key as a Go duration, falling back to its default when the
// value does not parse.
func duration(v *viper.Viper, key string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d <= 0 {
		return durationDefaults[key]
	}
	return d
}
