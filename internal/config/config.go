package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Environment string

const (
	EnvLocal      Environment = "local"
	EnvDev        Environment = "dev"
	EnvStage      Environment = "stage"
	EnvProduction Environment = "production"
)

type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

type ConfigBasicClient struct {
	Username string
	Password string
}

type Config struct {
	App struct {
		Version  string      `env:"APP_VERSION" envDefault:"local"`
		Env      Environment `env:"APP_ENV" envDefault:"local"`
		Timezone string      `env:"APP_TIMEZONE" envDefault:"UTC"`
		LogLevel string      `env:"LOG_LEVEL" envDefault:"info"`
	}

	HTTP struct {
		Port            string        `env:"HTTP_SERVER_PORT" envDefault:"8080"`
		Host            string        `env:"HTTP_SERVER_HOST" envDefault:"localhost"`
		ShutdownTimeout time.Duration `env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	}

	SlotAPI struct {
		URL      string        `env:"SLOT_API_URL"`
		Username string        `env:"SLOT_API_USERNAME"`
		Password string        `env:"SLOT_API_PASSWORD"`
		Timeout  time.Duration `env:"SLOT_API_TIMEOUT" envDefault:"10s"`
		Mock     bool          `env:"SLOT_API_MOCK"`
	}

	Retry struct {
		Count               int     `env:"RETRY_COUNT" envDefault:"3"`
		InitialDelaySeconds float64 `env:"RETRY_INITIAL_DELAY_SECONDS" envDefault:"2"`
	}

	Cache struct {
		Backend CacheBackend  `env:"CACHE_BACKEND" envDefault:"memory"`
		TTL     time.Duration `env:"CACHE_TTL" envDefault:"5m"`
		Size    int           `env:"CACHE_SIZE" envDefault:"1024"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	RabbitMq struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED"`
		AmqpUri  string `env:"RABBITMQ_URL"`
		Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"slots.events"`
	}

	Auth struct {
		BasicClientsString string        `env:"AUTH_BASIC_CLIENTS" envDefault:"docplanner:docplanner"`
		BasicClients       []ConfigBasicClient
		JWTSecret          string        `env:"AUTH_JWT_SECRET"`
		JWTTTL             time.Duration `env:"AUTH_JWT_TTL" envDefault:"1h"`
	}

	RateLimit struct {
		Enabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
		Tokens  int           `env:"RATE_LIMIT_TOKENS" envDefault:"5"`
		Period  time.Duration `env:"RATE_LIMIT_PERIOD" envDefault:"10s"`
	}
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Приведение окружения и бэкенда кэша к нижнему регистру для унификации
	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))
	cfg.Cache.Backend = CacheBackend(strings.ToLower(string(cfg.Cache.Backend)))
	cfg.SlotAPI.URL = strings.TrimRight(cfg.SlotAPI.URL, "/")

	cfg.Auth.BasicClients = parseBasicClients(cfg.Auth.BasicClientsString)

	// Локально подписываем токены фиксированным ключом, чтобы не требовать его в .env
	if cfg.Auth.JWTSecret == "" && cfg.IsLocal() {
		cfg.Auth.JWTSecret = "local-development-secret"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if !c.SlotAPI.Mock && c.SlotAPI.URL == "" {
		errs = append(errs, errors.New("SLOT_API_URL is required unless SLOT_API_MOCK is set"))
	}
	if c.Retry.Count < 0 {
		errs = append(errs, fmt.Errorf("RETRY_COUNT must be >= 0, got %d", c.Retry.Count))
	}
	if c.Retry.InitialDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("RETRY_INITIAL_DELAY_SECONDS must be >= 0, got %v", c.Retry.InitialDelaySeconds))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL))
	}
	if c.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size))
	}
	if c.Cache.Backend != CacheBackendMemory && c.Cache.Backend != CacheBackendRedis {
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend))
	}
	if c.RabbitMq.Enabled && c.RabbitMq.AmqpUri == "" {
		errs = append(errs, errors.New("RABBITMQ_URL is required when RABBITMQ_ENABLED is set"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required outside the local environment"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Tokens <= 0 || c.RateLimit.Period <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_TOKENS and RATE_LIMIT_PERIOD must be positive"))
	}

	return errors.Join(errs...)
}

// parseBasicClients разбирает строку вида "user1:pass1,user2:pass2"
func parseBasicClients(raw string) []ConfigBasicClient {
	clients := []ConfigBasicClient{}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 && parts[0] != "" {
			clients = append(clients, ConfigBasicClient{
				Username: parts[0],
				Password: parts[1],
			})
		}
	}
	return clients
}

func (c *Config) IsLocal() bool {
	return c.App.Env == EnvLocal
}

func (c *Config) IsNotLocal() bool {
	return c.App.Env == EnvDev || c.App.Env == EnvStage || c.App.Env == EnvProduction
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
