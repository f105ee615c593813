package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Discord      DiscordConfig
	Ticket       TicketConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines how dashboard bearer tokens are verified.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// DiscordConfig holds the bot connection settings. An empty token runs the
// service without a gateway connection.
type DiscordConfig struct {
	BotToken              string
	MemberCacheTTLSeconds int
}

// TicketConfig holds engine defaults applied when a guild has not saved its own.
type TicketConfig struct {
	DefaultAutoCloseHours   int
	DefaultMaxOpen          int
	TranscriptMessageLimit  int
	SweepIntervalSeconds    int
	CategoryCacheTTLSeconds int
	WelcomeMessage          string
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
			Name:                  getEnv("APP_NAME", "ticket-engine"),
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
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:    os.Getenv("AUTH_JWT_ISSUER"),
		},
		Discord: DiscordConfig{
			BotToken:              os.Getenv("DISCORD_BOT_TOKEN"),
			MemberCacheTTLSeconds: getEnvAsInt("DISCORD_MEMBER_CACHE_TTL_SECONDS", 60),
		},
		Ticket: TicketConfig{
			DefaultAutoCloseHours:   getEnvAsInt("TICKET_DEFAULT_AUTO_CLOSE_HOURS", 24),
			DefaultMaxOpen:          getEnvAsInt("TICKET_DEFAULT_MAX_OPEN", 3),
			TranscriptMessageLimit:  getEnvAsInt("TICKET_TRANSCRIPT_MESSAGE_LIMIT", 500),
			SweepIntervalSeconds:    getEnvAsInt("TICKET_SWEEP_INTERVAL_SECONDS", 300),
			CategoryCacheTTLSeconds: getEnvAsInt("TICKET_CATEGORY_CACHE_TTL_SECONDS", 300),
			WelcomeMessage:          getEnv("TICKET_WELCOME_MESSAGE", "Thanks for reaching out! A member of the support team will be with you shortly."),
		},
	}

	if cfg.Ticket.TranscriptMessageLimit <= 0 {
		return nil, fmt.Errorf("invalid TICKET_TRANSCRIPT_MESSAGE_LIMIT: must be positive")
	}

	return cfg, nil
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

// SweepInterval returns how often the deletion sweep runs.
func (t TicketConfig) SweepInterval() time.Duration {
	if t.SweepIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(t.SweepIntervalSeconds) * time.Second
}

// CategoryCacheTTL returns how long resolved categories are reused.
func (t TicketConfig) CategoryCacheTTL() time.Duration {
	if t.CategoryCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(t.CategoryCacheTTLSeconds) * time.Second
}

// MemberCacheTTL returns how long member lookups are reused.
func (d DiscordConfig) MemberCacheTTL() time.Duration {
	return time.Duration(d.MemberCacheTTLSeconds) * time.Second
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
