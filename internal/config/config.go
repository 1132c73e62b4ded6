package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/hkdf"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/transport"
)

const envPrefix = "DDV"

type Config struct {
	Env          string `mapstructure:"env"`
	LogLevel     string `mapstructure:"log_level"`
	ListenAddr   string `mapstructure:"listen_addr"`
	CookieSecret string `mapstructure:"cookie_secret"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// web
	AutoRefreshSeconds int     `mapstructure:"auto_refresh_seconds"`
	WebScansPerMinute  float64 `mapstructure:"web_scans_per_minute"`

	// provider
	Endpoint       string        `mapstructure:"endpoint"`
	Origin         string        `mapstructure:"origin"`
	Referer        string        `mapstructure:"referer"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	MaxConns       int           `mapstructure:"max_conns"`
	AliasFile      string        `mapstructure:"alias_file"`

	// product
	EventCode     string `mapstructure:"event_code"`
	PerformanceID string `mapstructure:"performance_id"`
	PerformanceAK string `mapstructure:"performance_ak"`
	PriceTableID  string `mapstructure:"price_table_id"`

	// scan defaults
	Weekdays           string `mapstructure:"weekdays"`
	Concurrency        int    `mapstructure:"concurrency"`
	RetryWindowSeconds int    `mapstructure:"retry_window_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cookie_secret", "")
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("auto_refresh_seconds", 0)
	v.SetDefault("web_scans_per_minute", 6)

	v.SetDefault("endpoint", transport.DefaultEndpoint)
	v.SetDefault("origin", transport.DefaultOrigin)
	v.SetDefault("referer", transport.DefaultReferer)
	v.SetDefault("user_agent", transport.DefaultUserAgent)
	v.SetDefault("accept_language", transport.DefaultLanguage)
	v.SetDefault("request_timeout", "15s")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("max_conns", 100)
	v.SetDefault("alias_file", "")

	v.SetDefault("event_code", "GA")
	v.SetDefault("performance_id", "720553")
	v.SetDefault("performance_ak", "LVR.EVN21.PRF116669")
	v.SetDefault("price_table_id", "1")

	v.SetDefault("weekdays", "0,2,4,6")
	v.SetDefault("concurrency", 10)
	v.SetDefault("retry_window_seconds", 120)
}

// FromEnv reads defaults, then an optional ddvscan.yaml in the working
// directory or $HOME/.config/ddvscan, then DDV_* environment variables.
func FromEnv() (Config, error) {
	v := viper.New()
	v.SetConfigName("ddvscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/ddvscan")
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > 100 {
		return fmt.Errorf("DDV_CONCURRENCY must be 1..100, got %d", c.Concurrency)
	}
	if c.RetryWindowSeconds < 10 || c.RetryWindowSeconds > 600 {
		return fmt.Errorf("DDV_RETRY_WINDOW_SECONDS must be 10..600, got %d", c.RetryWindowSeconds)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("DDV_REQUEST_TIMEOUT must be positive")
	}
	if c.AutoRefreshSeconds < 0 {
		return fmt.Errorf("DDV_AUTO_REFRESH_SECONDS must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("DDV_RATE_LIMIT must not be negative")
	}
	if _, err := availability.ParseWeekdays(c.Weekdays); err != nil {
		return fmt.Errorf("DDV_WEEKDAYS: %w", err)
	}
	if err := c.ScanConfig().Validate(); err != nil {
		return fmt.Errorf("product identifiers: %w", err)
	}
	return nil
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func (c Config) AutoRefresh() time.Duration {
	return time.Duration(c.AutoRefreshSeconds) * time.Second
}

func (c Config) ScanConfig() availability.ScanConfig {
	return availability.ScanConfig{
		EventCode:     c.EventCode,
		PerformanceID: c.PerformanceID,
		PerformanceAK: c.PerformanceAK,
		PriceTableID:  c.PriceTableID,
	}
}

// DefaultWeekdays is only valid on a validated Config.
func (c Config) DefaultWeekdays() availability.WeekdaySet {
	set, _ := availability.ParseWeekdays(c.Weekdays)
	return set
}

func (c Config) RetryWindow() time.Duration {
	return time.Duration(c.RetryWindowSeconds) * time.Second
}

func (c Config) TransportOptions() transport.Options {
	return transport.Options{
		Endpoint:       c.Endpoint,
		Origin:         c.Origin,
		Referer:        c.Referer,
		UserAgent:      c.UserAgent,
		AcceptLanguage: c.AcceptLanguage,
		Timeout:        c.RequestTimeout,
		MaxConns:       c.MaxConns,
		RateLimit:      c.RateLimit,
	}
}

// CookieKeys derives the preference cookie hash and block keys from
// CookieSecret. The secret may also name a file holding it, for secret
// mounts. An empty secret yields nil keys.
func (c Config) CookieKeys() (hashKey, blockKey []byte, err error) {
	secret := c.CookieSecret
	if b, rerr := os.ReadFile(secret); secret != "" && rerr == nil {
		secret = string(b)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, nil, nil
	}
	if len(secret) < 16 {
		return nil, nil, fmt.Errorf("DDV_COOKIE_SECRET must be at least 16 characters")
	}
	hashKey, err = derive(secret, "ddvscan cookie hash", 32)
	if err != nil {
		return nil, nil, err
	}
	blockKey, err = derive(secret, "ddvscan cookie block", 32)
	if err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

func derive(secret, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}
