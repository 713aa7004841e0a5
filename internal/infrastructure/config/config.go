package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
// loaded from environment variables, no magic defaults for required fields.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Server    ServerConfig
	Log       LogConfig
	Retention RetentionConfig
}

// DatabaseConfig contains database connection parameters.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string

	// pool sizing for the postgres driver
	MaxConns int32
	MinConns int32
}

// RedisConfig contains the optional cache connection.
type RedisConfig struct {
	URL string
}

// Enabled reports whether a redis url was configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// JWTSecret is the HS256 secret used to validate bearer tokens
	JWTSecret string
}

// ServerConfig contains http server settings.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	// RequestTimeout bounds every request, and so every unit of work it opens.
	RequestTimeout time.Duration
	BodyLimit      string
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string
}

// RetentionConfig controls the background purge of old notes.
// a zero MaxAge disables the worker.
type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// ConnectionString returns the postgres connection string.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
		c.Schema,
	)
}

// Load reads configuration from environment variables.
//
// CONFIG_FILES may name several comma separated .env files. They are merged
// in order: a key set by an earlier file is not overridden by a later one, and
// the real environment wins over all of them. Without CONFIG_FILES a .env file
// is loaded if present, and its absence is not an error.
func Load() (*Config, error) {
	if err := loadFiles(os.Getenv("CONFIG_FILES")); err != nil {
		return nil, err
	}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}

	serverConfig, err := loadServerConfig()
	if err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	retentionConfig, err := loadRetentionConfig()
	if err != nil {
		return nil, fmt.Errorf("retention config: %w", err)
	}

	return &Config{
		Database:  dbConfig,
		Redis:     RedisConfig{URL: os.Getenv("REDIS_URL")},
		Auth:      authConfig,
		Server:    serverConfig,
		Log:       LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
		Retention: retentionConfig,
	}, nil
}

func loadFiles(list string) error {
	var files []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}

	if len(files) == 0 {
		// try to load .env file, ignore error if it doesn't exist
		_ = godotenv.Load()
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading config files %s: %w", strings.Join(files, ","), err)
	}
	return nil
}

func loadAuthConfig() (AuthConfig, error) {
	config := AuthConfig{
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
	}

	if config.JWTSecret == "" {
		return config, errors.New("AUTH_JWT_SECRET is required")
	}

	return config, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	config := DatabaseConfig{
		Driver:     getEnvOrDefault("DB_DRIVER", DriverPostgres),
		Host:       getEnvOrDefault("DB_HOST", "localhost"),
		Port:       getEnvOrDefault("DB_PORT", "5432"),
		User:       os.Getenv("DB_USER"),
		Password:   os.Getenv("DB_PASSWORD"),
		Name:       os.Getenv("DB_NAME"),
		SSLMode:    getEnvOrDefault("DB_SSL_MODE", "require"),
		Schema:     getEnvOrDefault("DB_SCHEMA", "facade"),
		SQLitePath: getEnvOrDefault("SQLITE_PATH", "facade.db"),
	}

	maxConns, err := getIntOrDefault("DB_MAX_CONNS", 10)
	if err != nil {
		return config, err
	}
	minConns, err := getIntOrDefault("DB_MIN_CONNS", 2)
	if err != nil {
		return config, err
	}
	if maxConns <= 0 || minConns < 0 || minConns > maxConns {
		return config, fmt.Errorf("invalid pool size: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", minConns, maxConns)
	}
	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)

	switch config.Driver {
	case DriverSQLite:
		return config, nil
	case DriverPostgres:
	default:
		return config, fmt.Errorf("unsupported DB_DRIVER %q", config.Driver)
	}

	// required fields must be set
	if config.User == "" {
		return config, errors.New("DB_USER is required")
	}
	if config.Password == "" {
		return config, errors.New("DB_PASSWORD is required")
	}
	if config.Name == "" {
		return config, errors.New("DB_NAME is required")
	}

	return config, nil
}

func loadServerConfig() (ServerConfig, error) {
	timeout, err := getDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}
	requestTimeout, err := getDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: timeout,
		RequestTimeout:  requestTimeout,
		BodyLimit:       getEnvOrDefault("BODY_LIMIT", "64K"),
	}, nil
}

func loadRetentionConfig() (RetentionConfig, error) {
	maxAge, err := getDurationOrDefault("RETENTION_MAX_AGE", 0)
	if err != nil {
		return RetentionConfig{}, err
	}
	interval, err := getDurationOrDefault("RETENTION_INTERVAL", time.Hour)
	if err != nil {
		return RetentionConfig{}, err
	}
	if maxAge < 0 || interval <= 0 {
		return RetentionConfig{}, errors.New("RETENTION_MAX_AGE must not be negative and RETENTION_INTERVAL must be positive")
	}
	return RetentionConfig{MaxAge: maxAge, Interval: interval}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
