package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Token struct {
		ID         string `yaml:"id" validate:"required"`
		VsCurrency string `yaml:"vs_currency" validate:"required"`
	} `yaml:"token"`
	API struct {
		BaseURL        string `yaml:"base_url" validate:"required,url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1"`
	} `yaml:"api"`
	Analysis struct {
		Days            int     `yaml:"days" validate:"gt=0"`
		PriceThreshold  float64 `yaml:"price_threshold" validate:"gt=0"`
		VolumeThreshold float64 `yaml:"volume_threshold" validate:"gt=0"`
	} `yaml:"analysis"`
	Output struct {
		DataDir           string  `yaml:"data_dir" validate:"required"`
		ReportsDir        string  `yaml:"reports_dir" validate:"required"`
		VisualizationsDir string  `yaml:"visualizations_dir" validate:"required"`
		ChartWidthInch    float64 `yaml:"chart_width_inch" validate:"gt=0"`
		ChartHeightInch   float64 `yaml:"chart_height_inch" validate:"gt=0"`
		ChartDPI          int     `yaml:"chart_dpi" validate:"gt=0"`
	} `yaml:"output"`
	Auth struct {
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"password_hash"`
		MaxAttempts  int    `yaml:"max_attempts" validate:"gte=1"`
	} `yaml:"auth"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Schedule struct {
		WatchCron   string `yaml:"watch_cron" validate:"required"`
		SummaryCron string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds" validate:"gte=0"`
	} `yaml:"redis"`
	S3 struct {
		Endpoint       string `yaml:"endpoint"`
		Region         string `yaml:"region" validate:"required_with=Bucket"`
		Bucket         string `yaml:"bucket"`
		Prefix         string `yaml:"prefix"`
		AccessKey      string `yaml:"access_key"`
		SecretKey      string `yaml:"secret_key"`
		ForcePathStyle bool   `yaml:"force_path_style"`
	} `yaml:"s3"`
	Dashboard struct {
		Addr        string   `yaml:"addr" validate:"required"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"dashboard"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	Proxy    string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads a .env file when present, then
// applies environment variable overrides and defaults. A missing YAML file is
// not an error.
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

	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Token.ID, "TRACKER_TOKEN_ID")
	setStr(&cfg.Token.VsCurrency, "TRACKER_VS_CURRENCY")
	setStr(&cfg.API.BaseURL, "COINGECKO_BASE_URL")
	setStr(&cfg.API.APIKey, "COINGECKO_API_KEY")
	setInt(&cfg.Analysis.Days, "TRACKER_DAYS")
	setFloat(&cfg.Analysis.PriceThreshold, "TRACKER_PRICE_THRESHOLD")
	setFloat(&cfg.Analysis.VolumeThreshold, "TRACKER_VOLUME_THRESHOLD")
	setStr(&cfg.Auth.Password, "TRACKER_PASSWORD")
	setStr(&cfg.Auth.PasswordHash, "TRACKER_PASSWORD_HASH")
	setStr(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setStr(&cfg.Schedule.WatchCron, "CRON_WATCH")
	setStr(&cfg.Schedule.SummaryCron, "CRON_SUMMARY")
	setStr(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setStr(&cfg.Dashboard.Addr, "DASHBOARD_ADDR")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.Proxy, "HTTPS_PROXY")
}

func applyDefaults(cfg *Config) {
	if cfg.Token.ID == "" {
		cfg.Token.ID = "kaito"
	}
	if cfg.Token.VsCurrency == "" {
		cfg.Token.VsCurrency = "usd"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.Analysis.Days == 0 {
		cfg.Analysis.Days = 30
	}
	if cfg.Analysis.PriceThreshold == 0 {
		cfg.Analysis.PriceThreshold = 10.0
	}
	if cfg.Analysis.VolumeThreshold == 0 {
		cfg.Analysis.VolumeThreshold = 50.0
	}
	if cfg.Output.DataDir == "" {
		cfg.Output.DataDir = "data"
	}
	if cfg.Output.ReportsDir == "" {
		cfg.Output.ReportsDir = "reports"
	}
	if cfg.Output.VisualizationsDir == "" {
		cfg.Output.VisualizationsDir = "visualizations"
	}
	if cfg.Output.ChartWidthInch == 0 {
		cfg.Output.ChartWidthInch = 14
	}
	if cfg.Output.ChartHeightInch == 0 {
		cfg.Output.ChartHeightInch = 12
	}
	if cfg.Output.ChartDPI == 0 {
		cfg.Output.ChartDPI = 150
	}
	if cfg.Auth.MaxAttempts == 0 {
		cfg.Auth.MaxAttempts = 3
	}
	if cfg.Schedule.WatchCron == "" {
		cfg.Schedule.WatchCron = "0 5 0 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tracker.db"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.S3.Prefix == "" {
		cfg.S3.Prefix = "tracker"
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8501"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// UserAgent is sent with every market data request.
func (c *Config) UserAgent() string {
	return strings.ToUpper(c.Token.ID) + "-Market-Tracker/1.0"
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
