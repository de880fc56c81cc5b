package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Telegram TelegramConfig
	Pocket   PocketConfig
	Bot      BotConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type TelegramConfig struct {
	BotToken    string
	APIBaseURL  string
	Timeout     time.Duration
	PollTimeout time.Duration
}

type PocketConfig struct {
	ConsumerKey string
	APIBaseURL  string
	RedirectURI string
	Timeout     time.Duration
}

type BotConfig struct {
	SessionLogPath string
	DefaultPeriod  string
}

type AuthConfig struct {
	AdminAPIKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "reminder"),
			Password: GetEnv("DB_PASSWORD", "reminder123"),
			DBName:   GetEnv("DB_NAME", "pocket_reminder"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Telegram: TelegramConfig{
			BotToken:    GetEnv("TELEGRAM_BOT_TOKEN", ""),
			APIBaseURL:  GetEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			Timeout:     time.Duration(GetEnvAsInt("TELEGRAM_TIMEOUT_SECONDS", 30)) * time.Second,
			PollTimeout: time.Duration(GetEnvAsInt("TELEGRAM_POLL_TIMEOUT_SECONDS", 50)) * time.Second,
		},
		Pocket: PocketConfig{
			ConsumerKey: GetEnv("POCKET_CONSUMER_KEY", ""),
			APIBaseURL:  GetEnv("POCKET_API_BASE_URL", "https://getpocket.com"),
			RedirectURI: GetEnv("POCKET_REDIRECT_URI", "https://t.me/PocketReminderBot"),
			Timeout:     time.Duration(GetEnvAsInt("POCKET_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Bot: BotConfig{
			SessionLogPath: GetEnv("SESSION_LOG_PATH", "data/sessions.log"),
			DefaultPeriod:  GetEnv("DELIVERY_PERIOD", "day"),
		},
		Auth: AuthConfig{
			AdminAPIKey: GetEnv("ADMIN_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
