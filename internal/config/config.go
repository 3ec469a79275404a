// Package config provides configuration management for the price monitor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/export"
	"price-monitor/internal/logging"
	"price-monitor/internal/monitor"
	"price-monitor/internal/poller"
	"price-monitor/internal/provider"
)

// Config holds all application configuration.
type Config struct {
	Monitor       MonitorConfig      `mapstructure:"monitor"`
	Provider      ProviderConfig     `mapstructure:"provider"`
	Simulated     SimulatedConfig    `mapstructure:"simulated"`
	Server        ServerConfig       `mapstructure:"server"`
	Export        ExportConfig       `mapstructure:"export"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately

	// Dir is the directory the files were read from.
	Dir string `mapstructure:"-"`
}

// MonitorConfig holds poll loop and display settings.
type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	HistoryCap   int           `mapstructure:"history_cap"`
	Timezone     string        `mapstructure:"timezone"`
	ColumnWidth  int           `mapstructure:"column_width"`
	Symbols      []string      `mapstructure:"symbols"`
}

// ProviderConfig selects the price backend.
type ProviderConfig struct {
	Name            string        `mapstructure:"name"` // yahoo, kite, simulated
	Exchange        string        `mapstructure:"exchange"`
	ExtendedHours   bool          `mapstructure:"extended_hours"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// SimulatedConfig tunes the random-walk backend.
type SimulatedConfig struct {
	Seed       int64   `mapstructure:"seed"`
	Volatility float64 `mapstructure:"volatility"`
	StartPrice float64 `mapstructure:"start_price"`
}

// ServerConfig holds web API settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	WSBuffer       int      `mapstructure:"ws_buffer"`
}

// ExportConfig holds export settings. An empty Schedule disables the cron job.
type ExportConfig struct {
	Dir      string `mapstructure:"dir"`
	Format   string `mapstructure:"format"`
	Schedule string `mapstructure:"schedule"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Bell     bool           `mapstructure:"bell"`
	Desktop  bool           `mapstructure:"desktop"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig mirrors logging.LogConfig.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Credentials holds API credentials.
type Credentials struct {
	Kite KiteCredentials `mapstructure:"kite"`
}

// KiteCredentials holds Kite Connect credentials.
type KiteCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	APISecret   string `mapstructure:"api_secret"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/price-monitor"
	}
	return filepath.Join(home, ".config", "price-monitor")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// replaced by templates and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// a missing .env is fine
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	log := logging.DefaultLogConfig()

	v.SetDefault("monitor.poll_interval", "10s")
	v.SetDefault("monitor.fetch_timeout", "5s")
	v.SetDefault("monitor.history_cap", 500)
	v.SetDefault("monitor.timezone", "America/New_York")
	v.SetDefault("monitor.column_width", 12)
	v.SetDefault("monitor.symbols", []string{})

	v.SetDefault("provider.name", "yahoo")
	v.SetDefault("provider.exchange", "NSE")
	v.SetDefault("provider.extended_hours", true)
	v.SetDefault("provider.breaker_failures", 5)
	v.SetDefault("provider.breaker_cooldown", "30s")

	v.SetDefault("simulated.seed", 0)
	v.SetDefault("simulated.volatility", 0.5)
	v.SetDefault("simulated.start_price", 100.0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.ws_buffer", 64)

	v.SetDefault("export.dir", ".")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.schedule", "")

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.bell", true)
	v.SetDefault("notifications.desktop", false)

	v.SetDefault("logging.level", log.Level)
	v.SetDefault("logging.console", log.Console)
	v.SetDefault("logging.file", log.File)
	v.SetDefault("logging.file_path", log.FilePath)
	v.SetDefault("logging.max_size", log.MaxSize)
	v.SetDefault("logging.max_backups", log.MaxBackups)
	v.SetDefault("logging.max_age", log.MaxAge)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MONITOR_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("MONITOR_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "MONITOR_POLL_INTERVAL %q", v)
		}
		cfg.Monitor.PollInterval = d
	}
	if v := os.Getenv("MONITOR_HISTORY_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "MONITOR_HISTORY_CAP %q", v)
		}
		cfg.Monitor.HistoryCap = n
	}
	if v := os.Getenv("MONITOR_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	// Kite credentials
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Kite.AccessToken = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, format, args...)
	}

	if c.Monitor.PollInterval <= 0 {
		return invalid("monitor.poll_interval must be positive")
	}
	if c.Monitor.FetchTimeout <= 0 {
		return invalid("monitor.fetch_timeout must be positive")
	}
	if c.Monitor.FetchTimeout > c.Monitor.PollInterval {
		return invalid("monitor.fetch_timeout (%s) must not exceed poll_interval (%s)", c.Monitor.FetchTimeout, c.Monitor.PollInterval)
	}
	if c.Monitor.HistoryCap <= 0 {
		return invalid("monitor.history_cap must be positive")
	}
	if c.Monitor.ColumnWidth < 0 {
		return invalid("monitor.column_width must be non-negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch strings.ToLower(c.Provider.Name) {
	case "yahoo", "simulated", "sim":
	case "kite", "zerodha":
		if c.Credentials.Kite.APIKey == "" || c.Credentials.Kite.AccessToken == "" {
			return invalid("provider kite needs kite.api_key and kite.access_token")
		}
	default:
		return invalid("unknown provider %q (must be yahoo, kite or simulated)", c.Provider.Name)
	}
	if c.Provider.BreakerFailures < 0 {
		return invalid("provider.breaker_failures must be non-negative")
	}

	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return invalid("export.format %q", c.Export.Format)
	}
	if c.Export.Schedule != "" {
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Export.Schedule); err != nil {
			return invalid("export.schedule %q: %v", c.Export.Schedule, err)
		}
	}

	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return invalid("notifications.webhook.url is required when enabled")
	}
	if c.Notifications.Telegram.Enabled && (c.Notifications.Telegram.BotToken == "" || c.Notifications.Telegram.ChatID == "") {
		return invalid("notifications.telegram needs bot_token and chat_id when enabled")
	}

	if c.Server.WSBuffer < 0 {
		return invalid("server.ws_buffer must be non-negative")
	}
	return nil
}

// Location loads the display timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Monitor.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Monitor.Timezone)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "monitor.timezone %q", c.Monitor.Timezone)
	}
	return loc, nil
}

// ProviderOptions converts the provider sections for provider.New.
func (c *Config) ProviderOptions() provider.Options {
	return provider.Options{
		Name:            c.Provider.Name,
		ExtendedHours:   c.Provider.ExtendedHours,
		Exchange:        c.Provider.Exchange,
		KiteAPIKey:      c.Credentials.Kite.APIKey,
		KiteToken:       c.Credentials.Kite.AccessToken,
		Seed:            c.Simulated.Seed,
		Volatility:      c.Simulated.Volatility,
		StartPrice:      c.Simulated.StartPrice,
		FetchTimeout:    c.Monitor.FetchTimeout,
		BreakerFailures: c.Provider.BreakerFailures,
		BreakerCooldown: c.Provider.BreakerCooldown,
	}
}

// ServiceConfig converts the monitor section for monitor.New.
func (c *Config) ServiceConfig() monitor.Config {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return monitor.Config{
		Poll: poller.Config{
			Interval:     c.Monitor.PollInterval,
			FetchTimeout: c.Monitor.FetchTimeout,
		},
		HistoryCap:      c.Monitor.HistoryCap,
		ColumnWidth:     c.Monitor.ColumnWidth,
		Location:        loc,
		ValidateTimeout: c.Monitor.FetchTimeout,
	}
}

// LogConfig converts the logging section.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
