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

// Draft providers.
const (
	DraftProviderService = "service"
	DraftProviderOpenAI  = "openai"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	AgentAPI  UpstreamConfig
	AIService AIServiceConfig
	OpenAI    OpenAIConfig
	Session   SessionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN disables the audit store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the department cache.
type RedisConfig struct {
	Addr                   string
	Password               string
	DB                     int
	DepartmentCacheTTLSecs int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines bearer token validation parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// UpstreamConfig locates an HTTP collaborator.
type UpstreamConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// AIServiceConfig locates the AI service and selects the draft provider.
type AIServiceConfig struct {
	UpstreamConfig
	DraftPath     string
	DraftProvider string
}

// OpenAIConfig configures the optional OpenAI draft generator.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// SessionConfig controls workcenter session lifetime.
type SessionConfig struct {
	IdleTTLMinutes       int
	SweepIntervalSeconds int
	MaxPerAgent          int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-workcenter"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:                   os.Getenv("REDIS_ADDR"),
			Password:               os.Getenv("REDIS_PASSWORD"),
			DB:                     redisDB,
			DepartmentCacheTTLSecs: getEnvAsInt("DEPARTMENT_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		AgentAPI: UpstreamConfig{
			BaseURL:        getEnv("AGENT_API_BASE_URL", "http://127.0.0.1:8081/api"),
			TimeoutSeconds: getEnvAsInt("AGENT_API_TIMEOUT_SECONDS", 10),
		},
		AIService: AIServiceConfig{
			UpstreamConfig: UpstreamConfig{
				BaseURL:        getEnv("AI_SERVICE_BASE_URL", "http://127.0.0.1:8000/api"),
				TimeoutSeconds: getEnvAsInt("AI_SERVICE_TIMEOUT_SECONDS", 60),
			},
			DraftPath:     getEnv("AI_DRAFT_PATH", "/complaints/draft"),
			DraftProvider: strings.ToLower(getEnv("AI_DRAFT_PROVIDER", DraftProviderService)),
		},
		OpenAI: OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Session: SessionConfig{
			IdleTTLMinutes:       getEnvAsInt("SESSION_IDLE_TTL_MINUTES", 30),
			SweepIntervalSeconds: getEnvAsInt("SESSION_SWEEP_INTERVAL_SECONDS", 60),
			MaxPerAgent:          getEnvAsInt("SESSION_MAX_PER_AGENT", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AgentAPI.BaseURL) == "" {
		errs = append(errs, errors.New("AGENT_API_BASE_URL is required"))
	}
	if strings.TrimSpace(c.AIService.BaseURL) == "" {
		errs = append(errs, errors.New("AI_SERVICE_BASE_URL is required"))
	}
	switch c.AIService.DraftProvider {
	case DraftProviderService:
	case DraftProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when AI_DRAFT_PROVIDER=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AI_DRAFT_PROVIDER %q", c.AIService.DraftProvider))
	}
	if c.Session.IdleTTLMinutes <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TTL_MINUTES must be positive"))
	}
	if c.Session.MaxPerAgent <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_PER_AGENT must be positive"))
	}
	// Chat and draft routes run under the AI timeout; every other route
	// must outlive one agent API call.
	if timeout := c.App.RequestTimeout(); timeout > 0 && timeout < c.AgentAPI.Timeout() {
		errs = append(errs, fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS (%d) must not be shorter than AGENT_API_TIMEOUT_SECONDS (%d)",
			c.App.RequestTimeoutSeconds, c.AgentAPI.TimeoutSeconds))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout of the collaborator.
func (u UpstreamConfig) Timeout() time.Duration {
	return seconds(u.TimeoutSeconds)
}

// DepartmentCacheTTL returns how long department snapshots are cached.
func (r RedisConfig) DepartmentCacheTTL() time.Duration {
	return seconds(r.DepartmentCacheTTLSecs)
}

// IdleTTL returns how long an untouched session survives.
func (s SessionConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLMinutes) * time.Minute
}

// SweepInterval returns the janitor period.
func (s SessionConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return seconds(s.SweepIntervalSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
