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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Realtime RealtimeConfig
	Blob     BlobConfig
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

// AuthConfig defines token verification parameters. Tokens are minted by the
// platform's auth service; this service only verifies them.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAWindow holds the response/resolution windows for one priority.
type SLAWindow struct {
	Response   time.Duration
	Resolution time.Duration
}

// SLAConfig is the injected priority -> window table plus the policy switch
// for priority edits after creation. Deadlines are computed once at creation;
// with RecomputeOnPriorityChange enabled, a patch that changes priority
// recomputes both deadlines from the original creation time.
type SLAConfig struct {
	Critical                  SLAWindow
	High                      SLAWindow
	Medium                    SLAWindow
	Low                       SLAWindow
	RecomputeOnPriorityChange bool
}

// RealtimeConfig tunes the websocket push path.
type RealtimeConfig struct {
	Channel        string
	SessionBuffer  int
	WriteTimeoutMS int
}

// BlobConfig locates the attachment store.
type BlobConfig struct {
	Dir     string
	BaseURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escalation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			Critical: SLAWindow{
				Response:   getEnvAsDuration("SLA_CRITICAL_RESPONSE", time.Hour),
				Resolution: getEnvAsDuration("SLA_CRITICAL_RESOLUTION", 4*time.Hour),
			},
			High: SLAWindow{
				Response:   getEnvAsDuration("SLA_HIGH_RESPONSE", 4*time.Hour),
				Resolution: getEnvAsDuration("SLA_HIGH_RESOLUTION", 24*time.Hour),
			},
			Medium: SLAWindow{
				Response:   getEnvAsDuration("SLA_MEDIUM_RESPONSE", 8*time.Hour),
				Resolution: getEnvAsDuration("SLA_MEDIUM_RESOLUTION", 72*time.Hour),
			},
			Low: SLAWindow{
				Response:   getEnvAsDuration("SLA_LOW_RESPONSE", 24*time.Hour),
				Resolution: getEnvAsDuration("SLA_LOW_RESOLUTION", 168*time.Hour),
			},
			RecomputeOnPriorityChange: getEnvAsBool("SLA_RECOMPUTE_ON_PRIORITY_CHANGE", false),
		},
		Realtime: RealtimeConfig{
			Channel:        getEnv("REALTIME_CHANNEL", "notify:events"),
			SessionBuffer:  getEnvAsInt("REALTIME_SESSION_BUFFER", 32),
			WriteTimeoutMS: getEnvAsInt("REALTIME_WRITE_TIMEOUT_MS", 5000),
		},
		Blob: BlobConfig{
			Dir:     getEnv("BLOB_DIR", "attachments"),
			BaseURL: getEnv("BLOB_BASE_URL", "/attachments"),
		},
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
