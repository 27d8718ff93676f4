package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL              string        `yaml:"base_url"`
		RequestTimeout       time.Duration `yaml:"request_timeout"`
		MaxSymbolsPerRequest int           `yaml:"max_symbols_per_request"`
		MaxConcurrency       int           `yaml:"max_concurrency"`
		MinRequestInterval   time.Duration `yaml:"min_request_interval"`
		UserAgent            string        `yaml:"user_agent"`
	} `yaml:"data_source"`
	Polling struct {
		BatchSize     int           `yaml:"batch_size"`
		RetryInterval time.Duration `yaml:"retry_interval"`
		BatchDeadline time.Duration `yaml:"batch_deadline"`
	} `yaml:"polling"`
	Storage struct {
		SeriesDir string `yaml:"series_dir"`
	} `yaml:"storage"`
	Universe struct {
		File  string   `yaml:"file"`
		Allow []string `yaml:"allow"`
	} `yaml:"universe"`
	Schedule struct {
		SessionCron string `yaml:"session_cron"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
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

	// Environment variable overrides
	if v := os.Getenv("QUOTE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("SERIES_DIR"); v != "" {
		cfg.Storage.SeriesDir = v
	}
	if v := os.Getenv("UNIVERSE_FILE"); v != "" {
		cfg.Universe.File = v
	}
	if v := os.Getenv("SYMBOL_ALLOW"); v != "" {
		cfg.Universe.Allow = splitCSV(v)
	}
	if v := os.Getenv("SESSION_CRON"); v != "" {
		cfg.Schedule.SessionCron = v
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		cfg.Schedule.Timezone = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Polling.BatchSize = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Defaults
	if cfg.DataSource.BaseURL == "" {
		cfg.DataSource.BaseURL = "https://mis.twse.com.tw/stock/api/getStockInfo.jsp"
	}
	if cfg.DataSource.RequestTimeout == 0 {
		cfg.DataSource.RequestTimeout = 10 * time.Second
	}
	if cfg.DataSource.MaxSymbolsPerRequest == 0 {
		cfg.DataSource.MaxSymbolsPerRequest = 30
	}
	if cfg.DataSource.MaxConcurrency == 0 {
		cfg.DataSource.MaxConcurrency = 2
	}
	if cfg.Polling.BatchSize == 0 {
		cfg.Polling.BatchSize = 30
	}
	if cfg.Polling.RetryInterval == 0 {
		cfg.Polling.RetryInterval = 3 * time.Second
	}
	if cfg.Polling.BatchDeadline == 0 {
		cfg.Polling.BatchDeadline = 30 * time.Second
	}
	if cfg.Storage.SeriesDir == "" {
		cfg.Storage.SeriesDir = "data/series"
	}
	if cfg.Universe.File == "" {
		cfg.Universe.File = "configs/symbols.yaml"
	}
	if cfg.Schedule.SessionCron == "" {
		cfg.Schedule.SessionCron = "0 35 13 * * 1-5"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Asia/Taipei"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/harvester.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required")
	}
	if c.DataSource.RequestTimeout <= 0 {
		return fmt.Errorf("data_source.request_timeout must be positive")
	}
	if c.DataSource.MinRequestInterval < 0 {
		return fmt.Errorf("data_source.min_request_interval must not be negative")
	}
	if c.Polling.BatchSize <= 0 {
		return fmt.Errorf("polling.batch_size must be positive")
	}
	if c.Polling.RetryInterval <= 0 || c.Polling.BatchDeadline <= 0 {
		return fmt.Errorf("polling.retry_interval and polling.batch_deadline must be positive")
	}
	if c.Storage.SeriesDir == "" {
		return fmt.Errorf("storage.series_dir is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Schedule.SessionCron); err != nil {
		return fmt.Errorf("schedule.session_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Location resolves the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
