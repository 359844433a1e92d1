package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Session store kinds accepted by SESSION_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	BackendURL     string        `envconfig:"BACKEND_URL" required:"true"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"20s"`

	SessionStore  string        `envconfig:"SESSION_STORE" default:"memory"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionIdle   time.Duration `envconfig:"SESSION_IDLE" default:"168h"`
	CookieName    string        `envconfig:"COOKIE_NAME" default:"quizdash_session"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"true"`

	DatabaseURL      string `envconfig:"DATABASE_URL" default:""`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"5"`
	RedisAddr        string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix      string `envconfig:"REDIS_PREFIX" default:"quizdash:session:"`

	QueryTimeout    time.Duration `envconfig:"QUERY_TIMEOUT" default:"20s"`
	QueryStaleTime  time.Duration `envconfig:"QUERY_STALE_TIME" default:"30s"`
	CacheGCTime     time.Duration `envconfig:"CACHE_GC_TIME" default:"5m"`
	SearchDebounce  time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"500ms"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" default:"1m"`
	WorkspaceIdle   time.Duration `envconfig:"WORKSPACE_IDLE" default:"30m"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE must not be negative")
	}
	return nil
}
