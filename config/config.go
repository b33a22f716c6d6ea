// Package config provides configuration management for CareerWise Hub.
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML file named by CONFIG_FILE is decoded on top of them.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Locker backends for per-learner serialization.
const (
	LockerNone   = "none"
	LockerMemory = "memory"
	LockerRedis  = "redis"
)

// Leaderboard peer sources.
const (
	PeersStatic   = "static"
	PeersPostgres = "postgres"
	PeersRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig           `yaml:"app"`
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Engine        EngineConfig        `yaml:"engine"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Mentor        MentorConfig        `yaml:"mentor"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	Name        string      `yaml:"name"`
	Environment Environment `yaml:"environment"`
	Debug       bool        `yaml:"debug"`
	Version     string      `yaml:"version"`

	// Timezone decides where a learner's calendar day starts.
	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HTTPConfig contains API server settings.
type HTTPConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RateLimit       int           `yaml:"rate_limit"` // requests per second per client IP, 0 disables
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // memory or postgres
	URL             string        `yaml:"url"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RedisConfig contains Redis settings.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LockTTL      time.Duration `yaml:"lock_ttl"`
	LessonTTL    time.Duration `yaml:"lesson_ttl"`
}

// AuthConfig contains credential and token settings.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// EngineConfig contains progress engine settings.
type EngineConfig struct {
	PlanVersion string `yaml:"plan_version"`
	Locker      string `yaml:"locker"` // none, memory or redis
	PeerSource  string `yaml:"peer_source"`
	PeerLimit   int    `yaml:"peer_limit"`
	EventsAsync bool   `yaml:"events_async"`

	// PeerRebuildInterval is how often the Redis peer set is rebuilt from
	// the progress store.
	PeerRebuildInterval time.Duration `yaml:"peer_rebuild_interval"`
}

// CatalogConfig points at the curriculum and achievement catalog.
type CatalogConfig struct {
	// Path is empty for the embedded catalog.
	Path   string `yaml:"path"`
	Strict bool   `yaml:"strict"`
}

// MentorConfig contains LLM settings for the mentor and lessons.
type MentorConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	Timeout          time.Duration `yaml:"timeout"`
	Retries          int           `yaml:"retries"`
	Backoff          time.Duration `yaml:"backoff"`
	BreakerThreshold int           `yaml:"circuit_failure_threshold"`
	BreakerReset     time.Duration `yaml:"circuit_reset"`
	HistoryLimit     int           `yaml:"history_limit"`
}

// ObservabilityConfig contains logging settings.
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Load loads configuration from environment variables, then applies the
// CONFIG_FILE overlay if one is set.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		HTTP:          loadHTTPConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Engine:        loadEngineConfig(),
		Catalog:       loadCatalogConfig(),
		Mentor:        loadMentorConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app timezone %q: %w", cfg.App.Timezone, err)
	}
	cfg.App.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyFile decodes a YAML document over the current values. Keys absent
// from the file keep their env or default value.
func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))

	return AppConfig{
		Name:            getEnv("APP_NAME", "careerwise-hub"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		Timezone:        getEnv("APP_TIMEZONE", "UTC"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:            getEnv("HTTP_HOST", "0.0.0.0"),
		Port:            getEnvInt("HTTP_PORT", 8080),
		ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		AllowedOrigins:  getEnvStringSlice("HTTP_ALLOWED_ORIGINS", []string{"*"}),
		RateLimit:       getEnvInt("HTTP_RATE_LIMIT", 20),
		RateLimitBurst:  getEnvInt("HTTP_RATE_LIMIT_BURST", 40),
		MaxRequestBytes: int64(getEnvInt("HTTP_MAX_REQUEST_BYTES", 1<<20)),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	url := getEnv("DATABASE_URL", "")
	if url == "" {
		// Try to build from individual components
		host := getEnv("DB_HOST", "")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "")
		pass := getEnv("DB_PASSWORD", "")
		name := getEnv("DB_NAME", "careerwise")
		sslmode := getEnv("DB_SSLMODE", "disable")

		if host != "" && user != "" {
			url = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
				user, pass, host, port, name, sslmode)
		}
	}

	driver := StorePostgres
	if url == "" {
		driver = StoreMemory
	}

	return DatabaseConfig{
		Driver:          getEnv("STORE_DRIVER", driver),
		URL:             url,
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns:        int32(getEnvInt("DB_MIN_CONNS", 2)),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      getEnvBool("REDIS_ENABLED", false),
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		LockTTL:      getEnvDuration("REDIS_LOCK_TTL", 30*time.Second),
		LessonTTL:    getEnvDuration("REDIS_LESSON_TTL", 24*time.Hour),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:  getEnv("JWT_SECRET", ""),
		TokenTTL:   getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 10),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		PlanVersion: getEnv("PLAN_VERSION", "v1"),
		Locker:      getEnv("ENGINE_LOCKER", LockerMemory),
		PeerSource:  getEnv("LEADERBOARD_PEERS", PeersStatic),
		PeerLimit:   getEnvInt("LEADERBOARD_PEER_LIMIT", 10),
		EventsAsync: getEnvBool("EVENTS_ASYNC", true),

		PeerRebuildInterval: getEnvDuration("LEADERBOARD_REBUILD_INTERVAL", 10*time.Minute),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Path:   getEnv("CATALOG_PATH", ""),
		Strict: getEnvBool("CATALOG_STRICT", true),
	}
}

func loadMentorConfig() MentorConfig {
	return MentorConfig{
		BaseURL:          getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		Model:            getEnv("OLLAMA_MODEL", "llama3.2"),
		Timeout:          getEnvDuration("OLLAMA_TIMEOUT", 60*time.Second),
		Retries:          getEnvInt("OLLAMA_RETRIES", 2),
		Backoff:          getEnvDuration("OLLAMA_BACKOFF", 500*time.Millisecond),
		BreakerThreshold: getEnvInt("OLLAMA_CB_THRESHOLD", 5),
		BreakerReset:     getEnvDuration("OLLAMA_CB_RESET", 30*time.Second),
		HistoryLimit:     getEnvInt("MENTOR_HISTORY_LIMIT", 20),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	switch c.Database.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be memory or postgres, got %q", c.Database.Driver))
	}

	if c.App.Environment == EnvProduction {
		if c.Database.Driver != StorePostgres {
			errs = append(errs, "STORE_DRIVER must be postgres in production")
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, "JWT_SECRET is required in production")
		}
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, "JWT_SECRET must be at least 16 bytes")
	}

	switch c.Engine.Locker {
	case LockerNone, LockerMemory:
	case LockerRedis:
		if !c.Redis.Enabled {
			errs = append(errs, "ENGINE_LOCKER=redis requires REDIS_ENABLED")
		}
	default:
		errs = append(errs, fmt.Sprintf("ENGINE_LOCKER must be none, memory or redis, got %q", c.Engine.Locker))
	}

	switch c.Engine.PeerSource {
	case PeersStatic:
	case PeersPostgres:
		if c.Database.Driver != StorePostgres {
			errs = append(errs, "LEADERBOARD_PEERS=postgres requires the postgres store")
		}
	case PeersRedis:
		if !c.Redis.Enabled {
			errs = append(errs, "LEADERBOARD_PEERS=redis requires REDIS_ENABLED")
		}
	default:
		errs = append(errs, fmt.Sprintf("LEADERBOARD_PEERS must be static, postgres or redis, got %q", c.Engine.PeerSource))
	}

	if c.Engine.PlanVersion == "" {
		errs = append(errs, "PLAN_VERSION must not be empty")
	}
	if c.Engine.PeerLimit < 0 {
		errs = append(errs, "LEADERBOARD_PEER_LIMIT must not be negative")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "HTTP_PORT must be 1-65535")
	}
	if c.Mentor.HistoryLimit < 0 {
		errs = append(errs, "MENTOR_HISTORY_LIMIT must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
