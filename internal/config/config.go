package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/task-assignment-api/internal/constants"
)

type Config struct {
	Env     string
	Port    int
	GinMode string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	SessionStore  string
	SessionSecret string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	AdminUsername string
	AdminPassword string
	AdminName     string

	LoginRateLimit  int
	LoginRateWindow time.Duration
	MaxBodyBytes    int64

	OTelEndpoint    string
	OTelServiceName string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "err", err)
	}

	return &Config{
		Env:     getEnv("APP_ENV", "dev"),
		Port:    getEnvInt("PORT", 8080),
		GinMode: getEnv("GIN_MODE", "debug"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "task_assignment"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "data/tasks.db"),

		SessionStore:  getEnv("SESSION_STORE", "redis"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "System Admin"),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", constants.DefaultLoginRateLimit),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", constants.DefaultLoginRateWindow),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", int(constants.DefaultMaxBodyBytes))),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "task-assignment-api"),
	}
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
