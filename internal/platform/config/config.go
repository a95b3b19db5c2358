package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret is only accepted outside production. Never deploy with it.
const DevJWTSecret = "dev-secret"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Env     string
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	StorageDriver string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSslMode     string
	DBConnStr     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotifyQueueName      string
	NotifyLockPrefix     string
	NotifyLockTTLSeconds int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	AdminEmail   string

	CORSOrigins []string

	LoginRateLimit         int
	LoginRateWindowSeconds int
}

// Load reads the process environment (and a local .env when present).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Env:                    strings.ToLower(getEnv("APP_ENV", "development")),
		APIPort:                getEnv("API_PORT", "8080"),
		JWTExp:                 time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24*7)) * time.Hour,
		StorageDriver:          strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "user"),
		DBPassword:             getEnv("DB_PASSWORD", "password"),
		DBName:                 getEnv("DB_NAME", "pkat_store"),
		DBSslMode:              getEnv("DB_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		NotifyQueueName:        getEnv("NOTIFY_QUEUE_NAME", "order_status_notifications"),
		NotifyLockPrefix:       getEnv("NOTIFY_LOCK_PREFIX", "order_notify_lock:"),
		NotifyLockTTLSeconds:   getEnvAsInt("NOTIFY_LOCK_TTL_SECONDS", 60),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnv("SMTP_PORT", "587"),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		MailFrom:               getEnv("MAIL_FROM", ""),
		AdminEmail:             getEnv("ADMIN_EMAIL", ""),
		CORSOrigins:            parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LoginRateLimit:         getEnvAsInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindowSeconds: getEnvAsInt("LOGIN_RATE_WINDOW_SECONDS", 60),
	}

	secret := strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required when APP_ENV=production")
		}
		log.Println("WARNING: JWT_SECRET not set, using the development fallback secret. Do not deploy like this.")
		secret = DevJWTSecret
	}
	cfg.JWTKey = []byte(secret)

	if cfg.JWTExp <= 0 {
		cfg.JWTExp = 7 * 24 * time.Hour
	}

	switch cfg.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if url := strings.TrimSpace(getEnv("DATABASE_URL", "")); url != "" {
			cfg.DBConnStr = url
		} else {
			cfg.DBConnStr = "host=" + cfg.DBHost +
				" port=" + cfg.DBPort +
				" user=" + cfg.DBUser +
				" password=" + cfg.DBPassword +
				" dbname=" + cfg.DBName +
				" sslmode=" + cfg.DBSslMode
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// HTTPAddress returns the listen address for the API server.
func (c *Config) HTTPAddress() string {
	return ":" + c.APIPort
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
