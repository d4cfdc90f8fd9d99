package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/JEEEEEEHO/currecnyAlert/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Rates     RatesConfig     `mapstructure:"rates"`
	History   HistoryConfig   `mapstructure:"history"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs computation cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// RatesConfig selects and parameterises the latest-rate provider.
type RatesConfig struct {
	Provider       string        `mapstructure:"provider"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	DefaultBase    string        `mapstructure:"default_base"`
	DefaultTarget  string        `mapstructure:"default_target"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// HistoryConfig parameterises the trailing-average source.
type HistoryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	WindowYears    int           `mapstructure:"window_years"`
	BufferDays     int           `mapstructure:"buffer_days"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	OnEmpty        string        `mapstructure:"on_empty"`
	FallbackRate   float64       `mapstructure:"fallback_rate"`
}

// SMTPConfig covers the outbound mail transport.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	StartTLS bool   `mapstructure:"starttls"`
}

// NotifyConfig defines subscriber notification behaviour.
type NotifyConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig is declared for parity with the deployment surface; the
// pipeline itself only ever reads the most recent persisted row.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Provider variants for the latest-rate fetch.
const (
	ProviderExchangeRateHost = "exchangeratehost"
	ProviderExchangeRateAPI  = "exchangerateapi"
)

// History policies for an empty or failed series fetch.
const (
	OnEmptyFail     = "fail"
	OnEmptyFallback = "fallback"
)

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FXALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fxalert")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Secrets default to empty so viper tracks the keys; without a
	// registered key AutomaticEnv never surfaces the FXALERT_* value
	// during Unmarshal.
	v.SetDefault("database.dsn", "")
	v.SetDefault("rates.api_key", "")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("rates.provider", ProviderExchangeRateHost)
	v.SetDefault("rates.base_url", "https://api.exchangerate.host")
	v.SetDefault("rates.default_base", "USD")
	v.SetDefault("rates.default_target", "KRW")
	v.SetDefault("rates.request_timeout", "10s")
	v.SetDefault("rates.user_agent", "fxalert/1.0")

	v.SetDefault("history.base_url", "https://api.exchangerate.host")
	v.SetDefault("history.window_years", 3)
	v.SetDefault("history.buffer_days", 5)
	v.SetDefault("history.request_timeout", "20s")
	v.SetDefault("history.on_empty", OnEmptyFail)
	v.SetDefault("history.fallback_rate", 1250.0)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "FX Alert <noreply@example.com>")
	v.SetDefault("smtp.starttls", true)

	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.subject_prefix", "[FX Alert]")

	v.SetDefault("server.listen_addr", ":8000")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Rates.Provider {
	case ProviderExchangeRateHost:
	case ProviderExchangeRateAPI:
		if c.Rates.APIKey == "" {
			return fmt.Errorf("rates.api_key is required for provider %q", c.Rates.Provider)
		}
	default:
		return fmt.Errorf("rates.provider must be %q or %q", ProviderExchangeRateHost, ProviderExchangeRateAPI)
	}

	if c.Rates.DefaultBase == "" || c.Rates.DefaultTarget == "" {
		return fmt.Errorf("rates.default_base and rates.default_target must be set")
	}

	if c.History.OnEmpty != OnEmptyFail && c.History.OnEmpty != OnEmptyFallback {
		return fmt.Errorf("history.on_empty must be %q or %q", OnEmptyFail, OnEmptyFallback)
	}
	if c.History.WindowYears <= 0 {
		return fmt.Errorf("history.window_years must be greater than zero")
	}
	if c.History.OnEmpty == OnEmptyFallback && c.History.FallbackRate <= 0 {
		return fmt.Errorf("history.fallback_rate must be greater than zero under fallback policy")
	}

	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}

	if c.Notify.Enabled {
		if c.SMTP.Host == "" {
			return fmt.Errorf("smtp.host must be configured when notify.enabled is true")
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("smtp.from must be configured when notify.enabled is true")
		}
	}

	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}

	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// Pair applies configured defaults to possibly-empty currency codes.
func (c *Config) Pair(base, target string) (string, string) {
	if base == "" {
		base = c.Rates.DefaultBase
	}
	if target == "" {
		target = c.Rates.DefaultTarget
	}
	return strings.ToUpper(base), strings.ToUpper(target)
}
