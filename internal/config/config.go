package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"prod"`
	HTTPServer `yaml:"http_server"`

	Catalog     Catalog `yaml:"catalog"`
	Cache       Cache   `yaml:"cache"`
	CORS        CORS    `yaml:"cors"`
	FrontendDir string  `yaml:"frontend_dir" env:"FRONTEND_DIR"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"35s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type Catalog struct {
	SourceURL    string        `yaml:"source_url" env:"CATALOG_SOURCE_URL" env-required:"true"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" env-default:"15s"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env-default:"10485760"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"24h"`
}

type Cache struct {
	// Driver is "memory", "redis" or "none"
	Driver    string `yaml:"driver" env:"CACHE_DRIVER" env-default:"memory"`
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisDB   int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:8081,http://localhost:5173"`
}

// Load reads the yaml file at path and applies env overrides.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: config file %s: %w", op, path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch cfg.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return nil, fmt.Errorf("%s: unknown cache driver %q", op, cfg.Cache.Driver)
	}

	return &cfg, nil
}

// MustConfig loads CONFIG_PATH, falling back to ./config/local.yaml.
func MustConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}
