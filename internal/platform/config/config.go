package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "atti/pkg/platform/strings"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Numbering backends.
const (
	NumberingSQL    = "sql"
	NumberingRedis  = "redis"
	NumberingMemory = "memory"
)

// Transition policies.
const (
	TransitionsStrict     = "strict"
	TransitionsPermissive = "permissive"
)

// Config is the full runtime configuration.
type Config struct {
	Server    Server
	Auth      Auth
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	Keycloak  Keycloak
	Lifecycle Lifecycle
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Auth configures bearer token validation. One of SigningKey (HS256) or
// PublicKeyPEM (RS256, as issued by Keycloak) must be set.
type Auth struct {
	SigningKey   string
	PublicKeyPEM string
	Issuer       string
	Audience     string
}

type Database struct {
	Storage      string
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers []string
	Topic   string
}

// Keycloak configures the admin proxy. An empty URL selects the placeholder provider.
type Keycloak struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type Lifecycle struct {
	Numbering     string
	MaxRetries    int
	Transitions   string
	AuditEmission bool
}

// Load reads an optional .env file into the process environment. Variables
// already set take precedence over the file.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []error
	durations := func(key string, def time.Duration) time.Duration {
		d, err := envDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	ints := func(key string, def int) int {
		n, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := Config{
		Server: Server{
			Addr:            env("ATTI_ADDR", ":8080"),
			LogLevel:        env("LOG_LEVEL", "info"),
			RequestTimeout:  durations("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: durations("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: Auth{
			SigningKey:   os.Getenv("JWT_SIGNING_KEY"),
			PublicKeyPEM: os.Getenv("JWT_PUBLIC_KEY_PEM"),
			Issuer:       os.Getenv("JWT_ISSUER"),
			Audience:     os.Getenv("JWT_AUDIENCE"),
		},
		Database: Database{
			Storage:      env("STORAGE", StorageMemory),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: ints("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: ints("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     ints("REDIS_POOL_SIZE", 10),
			MinIdleConns: ints("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durations("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durations("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durations("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   env("KAFKA_TOPIC", "atti.determinazioni"),
		},
		Keycloak: Keycloak{
			URL:          strings.TrimRight(os.Getenv("KEYCLOAK_URL"), "/"),
			Realm:        env("KEYCLOAK_REALM", "atti"),
			ClientID:     os.Getenv("KEYCLOAK_CLIENT_ID"),
			ClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),
		},
		Lifecycle: Lifecycle{
			Numbering:     env("NUMBERING_BACKEND", ""),
			MaxRetries:    ints("NUMBERING_MAX_RETRIES", 3),
			Transitions:   env("LIFECYCLE_TRANSITIONS", TransitionsStrict),
			AuditEmission: env("AUDIT_EMISSION", "true") == "true",
		},
	}
	if cfg.Lifecycle.Numbering == "" {
		cfg.Lifecycle.Numbering = NumberingMemory
		if cfg.Database.Storage == StoragePostgres {
			cfg.Lifecycle.Numbering = NumberingSQL
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Storage {
	case StorageMemory:
		if c.Lifecycle.Numbering == NumberingSQL {
			errs = append(errs, errors.New("NUMBERING_BACKEND=sql requires STORAGE=postgres"))
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE %q", c.Database.Storage))
	}
	switch c.Lifecycle.Numbering {
	case NumberingSQL, NumberingMemory:
	case NumberingRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("NUMBERING_BACKEND=redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NUMBERING_BACKEND %q", c.Lifecycle.Numbering))
	}
	switch c.Lifecycle.Transitions {
	case TransitionsStrict, TransitionsPermissive:
	default:
		errs = append(errs, fmt.Errorf("unknown LIFECYCLE_TRANSITIONS %q", c.Lifecycle.Transitions))
	}
	if c.Lifecycle.MaxRetries < 1 {
		errs = append(errs, errors.New("NUMBERING_MAX_RETRIES must be at least 1"))
	}
	if c.Auth.SigningKey == "" && c.Auth.PublicKeyPEM == "" {
		errs = append(errs, errors.New("one of JWT_SIGNING_KEY or JWT_PUBLIC_KEY_PEM is required"))
	}
	if c.Keycloak.URL != "" && (c.Keycloak.ClientID == "" || c.Keycloak.ClientSecret == "") {
		errs = append(errs, errors.New("KEYCLOAK_CLIENT_ID and KEYCLOAK_CLIENT_SECRET are required with KEYCLOAK_URL"))
	}
	return errors.Join(errs...)
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(v, ","))
}
