package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"StockSimDesk/internal/calculator"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend struct {
		TradingURL string        `yaml:"trading_url"`
		FinanceURL string        `yaml:"finance_url"`
		APIKey     string        `yaml:"api_key"`
		Mock       bool          `yaml:"mock"`
		Timeout    time.Duration `yaml:"timeout"`
		RateLimit  float64       `yaml:"rate_limit"` // requests per second, 0 disables
		Burst      int           `yaml:"burst"`
		QuoteTTL   time.Duration `yaml:"quote_ttl"`
	} `yaml:"backend"`
	Retry struct {
		MaxRetries   int           `yaml:"max_retries"`
		InitialDelay time.Duration `yaml:"initial_delay"`
		Multiplier   float64       `yaml:"multiplier"`
	} `yaml:"retry"`
	Session struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"session"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		NotificationCron string `yaml:"notification_cron"`
		DailyCron        string `yaml:"daily_cron"`
		MonthlyCron      string `yaml:"monthly_cron"`
	} `yaml:"schedule"`
	Finance struct {
		TrendMonths int    `yaml:"trend_months"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"finance"`
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	StateFile string `yaml:"state_file"`
	Database  struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env (if present) and config from a YAML file, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() error {
	setString(&c.Backend.TradingURL, "TRADING_GAS_URL")
	setString(&c.Backend.FinanceURL, "FINANCE_GAS_URL")
	setString(&c.Backend.APIKey, "GAS_API_KEY")
	setString(&c.Session.Email, "SESSION_EMAIL")
	setString(&c.Session.Password, "SESSION_PASSWORD")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Schedule.NotificationCron, "CRON_NOTIFICATIONS")
	setString(&c.Schedule.DailyCron, "CRON_DAILY")
	setString(&c.Schedule.MonthlyCron, "CRON_MONTHLY")
	setString(&c.Finance.Timezone, "TIMEZONE")
	setString(&c.Server.Addr, "HTTP_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.StateFile, "STATE_FILE")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")
	setString(&c.Proxy, "HTTPS_PROXY")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("BACKEND_MOCK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BACKEND_MOCK: %w", err)
		}
		c.Backend.Mock = b
	}
	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BACKEND_TIMEOUT: %w", err)
		}
		c.Backend.Timeout = d
	}
	if v := os.Getenv("TREND_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TREND_MONTHS: %w", err)
		}
		c.Finance.TrendMonths = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Backend.RateLimit > 0 && c.Backend.Burst == 0 {
		c.Backend.Burst = 1
	}
	if c.Backend.QuoteTTL == 0 {
		c.Backend.QuoteTTL = 15 * time.Second
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = time.Second
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2
	}
	if c.Schedule.NotificationCron == "" {
		c.Schedule.NotificationCron = "@every 30s"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 18 * * 1-5"
	}
	if c.Schedule.MonthlyCron == "" {
		c.Schedule.MonthlyCron = "0 0 9 1 * *"
	}
	if c.Finance.TrendMonths == 0 {
		c.Finance.TrendMonths = 6
	}
	if c.Finance.Timezone == "" {
		c.Finance.Timezone = "Asia/Ho_Chi_Minh"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.StateFile == "" {
		c.StateFile = "data/relay_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stocksim.db"
	}
}

// MockBackend reports whether the built-in demo backend should answer calls.
// An unset trading URL implies mock mode.
func (c *Config) MockBackend() bool {
	return c.Backend.Mock || c.Backend.TradingURL == ""
}

// TelegramEnabled reports whether both bot credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Location resolves the finance timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Finance.Timezone)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.MockBackend() && c.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required when backend.trading_url is set")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if (c.Session.Email == "") != (c.Session.Password == "") {
		return fmt.Errorf("session.email and session.password must be set together")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend.rate_limit must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1")
	}
	if c.Finance.TrendMonths < 1 || c.Finance.TrendMonths > calculator.MaxTrendMonths {
		return fmt.Errorf("finance.trend_months must be between 1 and %d", calculator.MaxTrendMonths)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("finance.timezone: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.notification_cron": c.Schedule.NotificationCron,
		"schedule.daily_cron":        c.Schedule.DailyCron,
		"schedule.monthly_cron":      c.Schedule.MonthlyCron,
	} {
		if spec == "-" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// CronSpec returns spec, or "" when the task is disabled with "-".
func CronSpec(spec string) string {
	if spec == "-" {
		return ""
	}
	return spec
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
