package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
	StoreBlob     = "blob"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

type Config struct {
	Env  string
	Port int

	StoreMode    string
	StoreTimeout time.Duration
	SQLitePath   string
	DBURL        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BlobPrefix    string

	JWTSecret string
	JWTTTL    time.Duration
	AdminCode string

	BcryptCost       int
	IdentityCacheTTL time.Duration

	CORSOrigins     []string
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxBodyBytes    int64

	StaticDir    string
	SeedDemo     bool
	Demo         DemoConfig
	OTELEndpoint string
	ServiceName  string
}

// DemoConfig holds the seeded demo logins. Empty passwords skip the account.
type DemoConfig struct {
	AdminEmail    string
	AdminPassword string
	UserEmail     string
	UserPassword  string
}

func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	cfg := Config{
		Env:  env,
		Port: getEnvInt("PORT", 8080),

		StoreMode:    strings.ToLower(getEnv("STORE_MODE", StoreSQLite)),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 3*time.Second),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/taskhub.db"),
		DBURL:        buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		BlobPrefix:    getEnv("BLOB_PREFIX", "taskhub:"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		AdminCode: os.Getenv("ADMIN_CODE"),

		BcryptCost:       getEnvInt("BCRYPT_COST", 12),
		IdentityCacheTTL: getEnvDuration("IDENTITY_CACHE_TTL", 5*time.Second),

		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 10<<20)),

		StaticDir:    os.Getenv("STATIC_DIR"),
		SeedDemo:     getEnvBool("SEED_DEMO", env == "dev"),
		Demo: DemoConfig{
			AdminEmail:    getEnv("DEMO_ADMIN_EMAIL", "admin@taskhub.local"),
			AdminPassword: os.Getenv("DEMO_ADMIN_PASSWORD"),
			UserEmail:     getEnv("DEMO_USER_EMAIL", "user@taskhub.local"),
			UserPassword:  os.Getenv("DEMO_USER_PASSWORD"),
		},
		OTELEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("SERVICE_NAME", "taskhub"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}

	switch c.StoreMode {
	case StoreSQLite, StorePostgres, StoreMemory, StoreBlob:
	default:
		return fmt.Errorf("unknown STORE_MODE %q", c.StoreMode)
	}

	if c.JWTTTL <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}

	if c.RateLimitMax < 1 {
		return errors.New("RATE_LIMIT_MAX must be at least 1")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := os.Getenv("DB_PASSWORD")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fallback
		}
		return d
	}
	return fallback
}

// ParseDuration accepts Go durations ("15m", "1h30m"), a day suffix ("7d")
// or a bare number of seconds ("3600").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
