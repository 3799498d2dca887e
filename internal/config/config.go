package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Backends selectable at startup. The process runs exactly one; they are
// never mixed at runtime.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken    string        `env:"TELEGRAM_TOKEN"`
	Backend          string        `env:"DB_BACKEND" env-default:"sqlite"`
	SQLitePath       string        `env:"SQLITE_PATH" env-default:"streaks.db"`
	MongoURI         string        `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase    string        `env:"MONGO_DATABASE" env-default:"habit_tracker"`
	AllowedChatID    int64         `env:"ALLOWED_CHAT_ID" env-default:"0"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" env-default:"1m"`
}

// StorageConfig is the subset of settings needed by tools that only touch the
// databases, with no Telegram token required.
type StorageConfig struct {
	SQLitePath    string `env:"SQLITE_PATH" env-default:"streaks.db"`
	MongoURI      string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" env-default:"habit_tracker"`
}

// LoadStorage reads only the storage settings from the environment.
func LoadStorage() (StorageConfig, error) {
	var cfg StorageConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.Backend != BackendSQLite && cfg.Backend != BackendMongo {
		return cfg, fmt.Errorf("DB_BACKEND must be %q or %q, got %q", BackendSQLite, BackendMongo, cfg.Backend)
	}
	if cfg.ReminderInterval < time.Second {
		cfg.ReminderInterval = time.Minute
	}

	return cfg, nil
}
