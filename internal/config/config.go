package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server      Server      `mapstructure:"server"`
	Database    Database    `mapstructure:"database"`
	Logger      Logger      `mapstructure:"logger"`
	Journal     Journal     `mapstructure:"journal"`
	Import      Import      `mapstructure:"import"`
	Analytics   Analytics   `mapstructure:"analytics"`
	Insights    Insights    `mapstructure:"insights"`
	AI          AI          `mapstructure:"ai"`
	MetaAPI     MetaAPI     `mapstructure:"metaapi"`
	TradingView TradingView `mapstructure:"tradingview"`
	Sync        Sync        `mapstructure:"sync"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CorsOrigins []string `mapstructure:"cors_origins"`
}

// Database holds the configuration for the database.
type Database struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Journal holds the single-tenant settings.
type Journal struct {
	UserID   uint   `mapstructure:"user_id"`
	Timezone string `mapstructure:"timezone"`
}

// Import limits uploaded files.
type Import struct {
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

// Analytics holds the defaults of the aggregation views.
type Analytics struct {
	DailyWindowDays int `mapstructure:"daily_window_days"`
}

// Insights holds the thresholds of the rule battery.
type Insights struct {
	MinTrades           int `mapstructure:"min_trades"`
	LossStreakThreshold int `mapstructure:"loss_streak_threshold"`
	SymbolMinTrades     int `mapstructure:"symbol_min_trades"`
}

// AI holds the text-completion service credentials.
type AI struct {
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int64         `mapstructure:"max_tokens"`
	ChatMaxTokens   int64         `mapstructure:"chat_max_tokens"`
}

// MetaAPI holds the configuration for the MetaAPI cloud bridge.
type MetaAPI struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIToken       string        `mapstructure:"api_token"`
	AccountID      string        `mapstructure:"account_id"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
}

// TradingView holds the webhook settings.
type TradingView struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// Sync holds the scheduled broker sync settings.
type Sync struct {
	Enabled      bool   `mapstructure:"enabled"`
	Schedule     string `mapstructure:"schedule"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// Location resolves the journal timezone, falling back to the local zone.
func (j Journal) Location() *time.Location {
	if j.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(j.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tradejournal.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("journal.user_id", 1)
	v.SetDefault("journal.timezone", "")

	v.SetDefault("import.max_upload_mb", 10)

	v.SetDefault("analytics.daily_window_days", 30)

	v.SetDefault("insights.min_trades", 10)
	v.SetDefault("insights.loss_streak_threshold", 4)
	v.SetDefault("insights.symbol_min_trades", 5)

	// Bound to env explicitly so AutomaticEnv sees keys without a file entry.
	_ = v.BindEnv("ai.openai_api_key", "OPENAI_API_KEY", "AI_OPENAI_API_KEY")
	_ = v.BindEnv("ai.anthropic_api_key", "ANTHROPIC_API_KEY", "AI_ANTHROPIC_API_KEY")
	v.SetDefault("ai.openai_model", "gpt-4-turbo-preview")
	v.SetDefault("ai.openai_base_url", "")
	v.SetDefault("ai.anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_tokens", 2000)
	v.SetDefault("ai.chat_max_tokens", 1000)

	v.SetDefault("metaapi.base_url", "https://mt-client-api-v1.agiliumtrade.agiliumtrade.ai")
	v.SetDefault("metaapi.api_token", "")
	v.SetDefault("metaapi.account_id", "")
	v.SetDefault("metaapi.timeout", "30s")
	v.SetDefault("metaapi.rate_limit", 5)       // requests per second
	v.SetDefault("metaapi.rate_limit_burst", 1) // one outstanding request
	v.SetDefault("metaapi.max_attempts", 1)

	v.SetDefault("tradingview.webhook_secret", "")

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.schedule", "@every 1h")
	v.SetDefault("sync.lookback_days", 30)
}
