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

// ErrMissingRequired is returned when a required setting is absent at startup.
var ErrMissingRequired = errors.New("missing required configuration")

// Identity providers.
const (
	IdentityProviderGoTrue = "gotrue"
	IdentityProviderLocal  = "local"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Identity IdentityConfig
	Session  SessionConfig
	Realtime RealtimeConfig
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
	MigrationsDir  string
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

// IdentityConfig points at the external identity platform.
type IdentityConfig struct {
	Provider       string
	URL            string
	AnonKey        string
	TimeoutSeconds int
	RetryCount     int

	// Local provider settings, used for development only.
	LocalJWTSecret           string
	LocalTokenTTLMinutes     int
	LocalRequireConfirmation bool
	LocalBcryptCost          int
}

// SessionConfig controls session cookies and the route guard.
type SessionConfig struct {
	AccessCookie         string
	RefreshCookie        string
	CookieDomain         string
	CookieSecure         bool
	RefreshTTLHours      int
	RefreshWindowSeconds int
	LoginPath            string
}

// RealtimeConfig controls change-notification streams.
type RealtimeConfig struct {
	ChannelPrefix    string
	HeartbeatSeconds int
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
			Name:                  getEnv("APP_NAME", "hms-gateway"),
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
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
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
		Identity: IdentityConfig{
			Provider:                 strings.ToLower(getEnv("IDENTITY_PROVIDER", IdentityProviderGoTrue)),
			URL:                      strings.TrimRight(os.Getenv("IDENTITY_URL"), "/"),
			AnonKey:                  os.Getenv("IDENTITY_ANON_KEY"),
			TimeoutSeconds:           getEnvAsInt("IDENTITY_TIMEOUT_SECONDS", 10),
			RetryCount:               getEnvAsInt("IDENTITY_RETRY_COUNT", 2),
			LocalJWTSecret:           getEnv("IDENTITY_LOCAL_JWT_SECRET", "dev-secret"),
			LocalTokenTTLMinutes:     getEnvAsInt("IDENTITY_LOCAL_TOKEN_TTL_MINUTES", 60),
			LocalRequireConfirmation: getEnvAsBool("IDENTITY_LOCAL_REQUIRE_CONFIRMATION", false),
			LocalBcryptCost:          getEnvAsInt("IDENTITY_LOCAL_BCRYPT_COST", 10),
		},
		Session: SessionConfig{
			AccessCookie:         getEnv("SESSION_ACCESS_COOKIE", "hms-access-token"),
			RefreshCookie:        getEnv("SESSION_REFRESH_COOKIE", "hms-refresh-token"),
			CookieDomain:         os.Getenv("SESSION_COOKIE_DOMAIN"),
			CookieSecure:         getEnvAsBool("SESSION_COOKIE_SECURE", false),
			RefreshTTLHours:      getEnvAsInt("SESSION_REFRESH_TTL_HOURS", 24*7),
			RefreshWindowSeconds: getEnvAsInt("SESSION_REFRESH_WINDOW_SECONDS", 60),
			LoginPath:            getEnv("SESSION_LOGIN_PATH", "/auth/login"),
		},
		Realtime: RealtimeConfig{
			ChannelPrefix:    getEnv("REALTIME_CHANNEL_PREFIX", "hms:changes:"),
			HeartbeatSeconds: getEnvAsInt("REALTIME_HEARTBEAT_SECONDS", 15),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Identity.Provider {
	case IdentityProviderGoTrue:
		var missing []string
		if c.Identity.URL == "" {
			missing = append(missing, "IDENTITY_URL")
		}
		if c.Identity.AnonKey == "" {
			missing = append(missing, "IDENTITY_ANON_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
		}
	case IdentityProviderLocal:
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.Identity.Provider)
	}
	return nil
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

// Timeout bounds a single call to the identity platform.
func (i IdentityConfig) Timeout() time.Duration {
	if i.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// RefreshWindow is how close to expiry an access token gets refreshed.
func (s SessionConfig) RefreshWindow() time.Duration {
	if s.RefreshWindowSeconds < 0 {
		return 0
	}
	return time.Duration(s.RefreshWindowSeconds) * time.Second
}

// RefreshTTL is the lifetime of the refresh cookie.
func (s SessionConfig) RefreshTTL() time.Duration {
	if s.RefreshTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.RefreshTTLHours) * time.Hour
}

// Heartbeat is the keep-alive interval of change streams.
func (r RealtimeConfig) Heartbeat() time.Duration {
	if r.HeartbeatSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(r.HeartbeatSeconds) * time.Second
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
