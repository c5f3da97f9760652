package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	DBAdapter     string
	SQLiteFile    string
	TokenStore    string
	RedisURL      string
	AccessSecret  string
	RefreshSecret string
	UploadDir     string
	AllowedOrigin string
	LogLevel      string
	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	// If DSN is provided directly, use it
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	// Build DSN from individual components
	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable" // Default to disable for local development
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

func New() (*Config, error) {
	c := &Config{
		Port:          getenv("PORT", "8000"),
		DBAdapter:     getenv("DB_ADAPTER", "postgres"), // Default to postgres
		SQLiteFile:    getenv("SQLITE_FILE", "./data/inkwell.db"),
		TokenStore:    getenv("TOKEN_STORE", "db"),
		RedisURL:      getenv("REDIS_URL", "redis://localhost:6379/0"),
		AccessSecret:  getenv("ACCESS_SECRET_KEY", "change-me"),
		RefreshSecret: getenv("REFRESH_SECRET_KEY", "change-me-too"),
		UploadDir:     getenv("UPLOAD_DIR", "./data/uploads"),
		AllowedOrigin: getenv("ALLOWED_ORIGIN", "*"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "inkwell")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "inkwellpass")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "inkwell")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
	}

	// Validate PostgreSQL configuration if using postgres
	if c.DBAdapter == "postgres" {
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	}

	if c.DBAdapter == "sqlite" {
		// ensure sqlite file path is not empty
		if c.SQLiteFile == "" {
			return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
		}
	}

	if c.TokenStore != "db" && c.TokenStore != "redis" {
		return nil, fmt.Errorf("unsupported TOKEN_STORE: %s (supported: db, redis)", c.TokenStore)
	}

	// Access and refresh tokens are signed with distinct keys so a leaked
	// key of one class cannot forge tokens of the other.
	if c.AccessSecret == c.RefreshSecret {
		return nil, errors.New("ACCESS_SECRET_KEY and REFRESH_SECRET_KEY must differ")
	}

	// Refuse weak default secrets in production
	env := strings.ToLower(getenv("ENV", getenv("APP_ENV", "")))
	if env == "production" || env == "prod" {
		if c.AccessSecret == "" || c.AccessSecret == "change-me" {
			return nil, errors.New("ACCESS_SECRET_KEY must be set in production")
		}
		if c.RefreshSecret == "" || c.RefreshSecret == "change-me-too" {
			return nil, errors.New("REFRESH_SECRET_KEY must be set in production")
		}
	}

	// normalize port
	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
