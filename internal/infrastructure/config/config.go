package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultJWTSecret is the development signing secret. Production refuses it.
const DefaultJWTSecret = "ChangeThisSecretForProd"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth         AuthConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Provisioning ProvisioningConfig
}

type AuthConfig struct {
	JWTSecret                  string `env:"JWT_SECRET,                    default=ChangeThisSecretForProd"`
	JWTExpirationMs            int64  `env:"JWT_EXPIRATION_MS,             default=3600000"`
	AllowAdminSelfRegistration bool   `env:"ALLOW_ADMIN_SELF_REGISTRATION, default=false"`
	BcryptCost                 int    `env:"BCRYPT_COST,                   default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=investments"`
}

type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"AUTH_RATE_LIMIT_RPS,   default=5"`
	Burst int     `env:"AUTH_RATE_LIMIT_BURST, default=10"`
}

type ProvisioningConfig struct {
	Workers  int           `env:"PROVISION_WORKERS,  default=4"`
	Attempts int           `env:"PROVISION_ATTEMPTS, default=5"`
	Backoff  time.Duration `env:"PROVISION_BACKOFF,  default=2s"`
}

// TokenTTL is the configured JWT lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationMs) * time.Millisecond
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Load reads a .env file when present and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.IsProduction() && c.Auth.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be overridden in production"))
	}
	if c.Auth.JWTExpirationMs <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MS must be positive"))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("auth rate limit must not be negative"))
	}
	if c.Provisioning.Workers < 0 || c.Provisioning.Attempts < 0 {
		errs = append(errs, errors.New("provisioning workers and attempts must not be negative"))
	}
	return errors.Join(errs...)
}
