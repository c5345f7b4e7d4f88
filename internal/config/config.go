// Package config loads lighthttp settings from a TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, environment
// variables, command-line flags. Flags are applied by the CLI.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/lighthttp/pkg/cache"
	"github.com/matzehuels/lighthttp/pkg/errors"
)

const appName = "lighthttp"

// Environment variables that override file settings.
const (
	EnvBaseURL   = "LIGHTHTTP_BASE_URL"
	EnvRedisAddr = "LIGHTHTTP_REDIS_ADDR"
	EnvMongoURI  = "LIGHTHTTP_MONGO_URI"
)

// Cache backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Backends lists the accepted cache.backend values.
var Backends = []string{BackendNone, BackendMemory, BackendFile, BackendRedis, BackendMongo}

// Config is the top-level configuration.
type Config struct {
	BaseURL string            `toml:"base_url"`
	Timeout time.Duration     `toml:"timeout"`
	Headers map[string]string `toml:"headers"`
	Cache   CacheConfig       `toml:"cache"`
}

// CacheConfig selects and configures the response cache.
type CacheConfig struct {
	Backend string        `toml:"backend"`
	TTL     time.Duration `toml:"ttl"`
	Sliding time.Duration `toml:"sliding"`
	Dir     string        `toml:"dir"`    // file backend; defaults to the user cache dir
	Prefix  string        `toml:"prefix"` // redis key prefix
	Redis   RedisConfig   `toml:"redis"`
	Mongo   MongoConfig   `toml:"mongo"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoConfig configures the mongo backend.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Timeout: 30 * time.Second,
		Cache: CacheConfig{
			Backend: BackendNone,
			TTL:     5 * time.Minute,
			Prefix:  appName + ":",
			Redis:   RedisConfig{Addr: "localhost:6379"},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   appName,
				Collection: "cache",
			},
		},
	}
}

// Load reads the config file at path over the defaults and applies the
// environment. An empty path means DefaultPath; a missing default file is not
// an error, a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !explicit && os.IsNotExist(err) {
				err = nil
			} else {
				return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// DefaultPath returns $XDG_CONFIG_HOME/lighthttp/config.toml, falling back to
// ~/.config/lighthttp/config.toml. It returns "" if neither can be determined.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.Cache.Mongo.URI = v
	}
}

// Validate checks value ranges and the backend name.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "timeout must not be negative")
	}
	if c.Cache.TTL < 0 || c.Cache.Sliding < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl and sliding must not be negative")
	}
	if !slices.Contains(Backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want one of %v)", c.Cache.Backend, Backends)
	}
	for k, v := range c.Headers {
		if err := errors.ValidateHeader(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Expiration returns the cache lifetime configured for entries.
func (c CacheConfig) Expiration() cache.Expiration {
	return cache.Expiration{TTL: c.TTL, Sliding: c.Sliding}
}
