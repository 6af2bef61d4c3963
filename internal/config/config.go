package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Map       MapConfig       `yaml:"map"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// AllowedOrigin is the CORS origin of the map page. Defaults to "*".
	AllowedOrigin string `yaml:"allowed_origin"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	Key      string         `yaml:"key"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres DatabaseConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Migrations string `yaml:"migrations"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// MirrorEvents publishes every view event on the mapty:events channel.
	MirrorEvents bool `yaml:"mirror_events"`
}

type MapConfig struct {
	Zoom int `yaml:"zoom"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies defaults and environment
// variable overrides. Env vars use the prefix MAPTY_:
//
//	MAPTY_SERVER_HOST, MAPTY_SERVER_PORT, MAPTY_SERVER_ALLOWED_ORIGIN,
//	MAPTY_STORAGE_DRIVER, MAPTY_STORAGE_KEY, MAPTY_SQLITE_PATH,
//	MAPTY_DB_HOST, MAPTY_DB_PORT, MAPTY_DB_NAME,
//	MAPTY_DB_USER, MAPTY_DB_PASSWORD, MAPTY_DB_SSLMODE,
//	MAPTY_REDIS_ADDR, MAPTY_REDIS_PASSWORD, MAPTY_REDIS_DB,
//	MAPTY_REDIS_MIRROR_EVENTS,
//	MAPTY_MAP_ZOOM, MAPTY_TAILSCALE_ENABLED, MAPTY_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = "*"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = "workouts"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/mapty.db"
	}
	if cfg.Storage.Postgres.Migrations == "" {
		cfg.Storage.Postgres.Migrations = "migrations"
	}
	if cfg.Map.Zoom == 0 {
		cfg.Map.Zoom = 13
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "mapty"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAPTY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MAPTY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MAPTY_SERVER_ALLOWED_ORIGIN"); v != "" {
		cfg.Server.AllowedOrigin = v
	}
	if v := os.Getenv("MAPTY_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("MAPTY_STORAGE_KEY"); v != "" {
		cfg.Storage.Key = v
	}
	if v := os.Getenv("MAPTY_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("MAPTY_DB_HOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("MAPTY_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("MAPTY_DB_NAME"); v != "" {
		cfg.Storage.Postgres.Name = v
	}
	if v := os.Getenv("MAPTY_DB_USER"); v != "" {
		cfg.Storage.Postgres.User = v
	}
	if v := os.Getenv("MAPTY_DB_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("MAPTY_DB_SSLMODE"); v != "" {
		cfg.Storage.Postgres.SSLMode = v
	}
	if v := os.Getenv("MAPTY_REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
	}
	if v := os.Getenv("MAPTY_REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("MAPTY_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Redis.DB = db
		}
	}
	if v := os.Getenv("MAPTY_REDIS_MIRROR_EVENTS"); v != "" {
		if mirror, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.Redis.MirrorEvents = mirror
		}
	}
	if v := os.Getenv("MAPTY_MAP_ZOOM"); v != "" {
		if zoom, err := strconv.Atoi(v); err == nil {
			cfg.Map.Zoom = zoom
		}
	}
	if v := os.Getenv("MAPTY_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("MAPTY_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 19 {
		return fmt.Errorf("map.zoom must be between 0 and 19, got %d", c.Map.Zoom)
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		db := c.Storage.Postgres
		if db.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if db.Port == 0 {
			return fmt.Errorf("storage.postgres.port is required")
		}
		if db.Name == "" {
			return fmt.Errorf("storage.postgres.name is required")
		}
		if db.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres, redis", c.Storage.Driver)
	}
	return nil
}
