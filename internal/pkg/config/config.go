package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port     int    `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth     AuthConfig
	Password PasswordConfig
	Throttle ThrottleConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type AuthConfig struct {
	Secret            string  `env:"JWT_SECRET"`
	Algorithm         string  `env:"JWT_ALGORITHM,             default=HS256"`
	SessionTTLMinutes int     `env:"SESSION_TTL_MIN,           default=15"`
	RefreshThreshold  float64 `env:"SESSION_REFRESH_THRESHOLD, default=0.5"`
	CookieSecure      bool    `env:"SESSION_COOKIE_SECURE,     default=true"`
}

type PasswordConfig struct {
	Pepper  string `env:"PASSWORD_PEPPER"`
	Cost    int    `env:"BCRYPT_COST,  default=12"`
	Workers int    `env:"HASH_WORKERS, default=2"`
}

type ThrottleConfig struct {
	MaxFailures int           `env:"LOGIN_MAX_FAILURES,   default=5"`
	Window      time.Duration `env:"LOGIN_FAILURE_WINDOW, default=15m"`
}

type PostgresConfig struct {
	Host            string        `env:"POSTGRES_HOST,     default=localhost"`
	Port            int           `env:"POSTGRES_PORT,     default=5432"`
	User            string        `env:"POSTGRES_USER,     default=postgres"`
	Password        string        `env:"POSTGRES_PASSWORD"`
	DB              string        `env:"POSTGRES_DB,       default=identity"`
	SSLMode         string        `env:"POSTGRES_SSLMODE,  default=disable"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS, default=20"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME, default=30m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity_audit"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

var validAlgorithms = map[string]struct{}{
	"HS256": {}, "HS384": {}, "HS512": {},
	"RS256": {}, "RS384": {}, "RS512": {},
}

var validEnvs = map[string]struct{}{
	"development": {}, "production": {}, "test": {},
}

// Load reads configuration from environment variables using go-envconfig and
// validates it. Any error is fatal at startup.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the range and presence checks.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if _, ok := validEnvs[c.Env]; !ok {
		errs = append(errs, fmt.Errorf("ENV must be one of development, production, test, got %q", c.Env))
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, ok := validAlgorithms[c.Auth.Algorithm]; !ok {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q is not supported", c.Auth.Algorithm))
	}
	if c.Auth.SessionTTLMinutes < 1 {
		errs = append(errs, errors.New("SESSION_TTL_MIN must be at least 1"))
	}
	if !(c.Auth.RefreshThreshold > 0 && c.Auth.RefreshThreshold < 1) {
		errs = append(errs, errors.New("SESSION_REFRESH_THRESHOLD must be between 0 and 1, exclusive"))
	}

	if c.Password.Pepper == "" {
		errs = append(errs, errors.New("PASSWORD_PEPPER is required"))
	}
	if c.Password.Cost < bcrypt.MinCost || c.Password.Cost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Password.Workers < 1 {
		errs = append(errs, errors.New("HASH_WORKERS must be at least 1"))
	}

	if c.Throttle.MaxFailures < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_FAILURES must be at least 1"))
	}
	if c.Throttle.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_FAILURE_WINDOW must be positive"))
	}

	if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
		errs = append(errs, fmt.Errorf("POSTGRES_PORT must be between 1 and 65535, got %d", c.Postgres.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// SessionTTL is the session lifetime as a duration.
func (c AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// DSN builds the lib/pq connection URL.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     c.DB,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// IsDevelopment enables pretty console logs.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }
