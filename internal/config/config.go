package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	Env       string
	DB        db
	Server    server
	Logger    logger
	Security  security
	Zoho      zoho
	Woo       woo
	Jobs      jobs
	Notify    notify
	RateLimit int
}

type db struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DatabaseURI string `env:"DATABASE_URI"`
	SQLitePath  string `env:"SQLITE_PATH"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
	AdminToken string `env:"ADMIN_TOKEN"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type security struct {
	AppSecret      string `env:"APP_SECRET"`
	SiteSecret     string `env:"SITE_SECRET"`
	EncryptionMode string `env:"ENCRYPTION_MODE" envDefault:"aead"`
}

type zoho struct {
	Region         string `env:"ZOHO_REGION" envDefault:"us"`
	OrganizationID string `env:"ZOHO_ORGANIZATION_ID"`
}

type woo struct {
	BaseURL        string `env:"WOO_BASE_URL"`
	ConsumerKey    string `env:"WOO_CONSUMER_KEY"`
	ConsumerSecret string `env:"WOO_CONSUMER_SECRET"`
	WebhookSecret  string `env:"WOO_WEBHOOK_SECRET"`
}

type jobs struct {
	RetryInterval     time.Duration
	RetryBatchSize    int
	ReconcileInterval time.Duration
	ReconcileLookback time.Duration
	BulkSyncDelay     time.Duration
}

type notify struct {
	Mode       string `env:"NOTIFY_MODE" envDefault:"off"`
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
}

// MustLoad загружает конфигурацию из окружения и .env файла.
// Паникует, если конфигурация невалидна.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Load читает конфигурацию без паники (используется CLI и тестами)
func Load() (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("failed to load %s: %v", envPath, err)
		}
	}

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Env: viper.GetString("APP_ENV"),
		DB: db{
			Driver:      strings.ToLower(viper.GetString("STORAGE_DRIVER")),
			DatabaseURI: viper.GetString("DATABASE_URI"),
			SQLitePath:  viper.GetString("SQLITE_PATH"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Server: server{
			RunAddress: viper.GetString("RUN_ADDRESS"),
			AdminToken: viper.GetString("ADMIN_TOKEN"),
		},
		Logger: logger{LogLevel: viper.GetString("LOG_LEVEL")},
		Security: security{
			AppSecret:      viper.GetString("APP_SECRET"),
			SiteSecret:     viper.GetString("SITE_SECRET"),
			EncryptionMode: viper.GetString("ENCRYPTION_MODE"),
		},
		Zoho: zoho{
			Region:         strings.ToLower(viper.GetString("ZOHO_REGION")),
			OrganizationID: viper.GetString("ZOHO_ORGANIZATION_ID"),
		},
		Woo: woo{
			BaseURL:        viper.GetString("WOO_BASE_URL"),
			ConsumerKey:    viper.GetString("WOO_CONSUMER_KEY"),
			ConsumerSecret: viper.GetString("WOO_CONSUMER_SECRET"),
			WebhookSecret:  viper.GetString("WOO_WEBHOOK_SECRET"),
		},
		Jobs: jobs{
			RetryInterval:     time.Duration(viper.GetInt("RETRY_INTERVAL_MINUTES")) * time.Minute,
			RetryBatchSize:    viper.GetInt("RETRY_BATCH_SIZE"),
			ReconcileInterval: time.Duration(viper.GetInt("RECONCILE_INTERVAL_HOURS")) * time.Hour,
			ReconcileLookback: time.Duration(viper.GetInt("RECONCILE_LOOKBACK_DAYS")) * 24 * time.Hour,
			BulkSyncDelay:     time.Duration(viper.GetInt("BULK_SYNC_DELAY_MS")) * time.Millisecond,
		},
		Notify: notify{
			Mode:       strings.ToLower(viper.GetString("NOTIFY_MODE")),
			WebhookURL: viper.GetString("NOTIFY_WEBHOOK_URL"),
		},
		RateLimit: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
	}

	if cfg.DB.Migrations == "" {
		cfg.DB.Migrations = "migrations/" + cfg.DB.Driver
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("RUN_ADDRESS", ":8080")
	viper.SetDefault("STORAGE_DRIVER", StorageSQLite)
	viper.SetDefault("SQLITE_PATH", "booksync.db")
	viper.SetDefault("ENCRYPTION_MODE", "aead")
	viper.SetDefault("ZOHO_REGION", "us")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 100)
	viper.SetDefault("RETRY_INTERVAL_MINUTES", 15)
	viper.SetDefault("RETRY_BATCH_SIZE", 20)
	viper.SetDefault("RECONCILE_INTERVAL_HOURS", 24)
	viper.SetDefault("RECONCILE_LOOKBACK_DAYS", 7)
	viper.SetDefault("BULK_SYNC_DELAY_MS", 600)
	viper.SetDefault("NOTIFY_MODE", "off")
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case StoragePostgres:
		if c.DB.DatabaseURI == "" {
			return fmt.Errorf("DATABASE_URI is required for the postgres driver")
		}
	case StorageSQLite:
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.DB.Driver)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// DatabaseURL адрес базы в формате golang-migrate
func (c *Config) DatabaseURL() string {
	if c.DB.Driver == StorageSQLite {
		return "sqlite3://" + c.DB.SQLitePath
	}
	return c.DB.DatabaseURI
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
