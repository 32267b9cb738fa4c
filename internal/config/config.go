// Package config loads tasksync settings from defaults, an optional TOML or
// YAML file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tasksync/internal/models"
	"tasksync/internal/store"
)

// DefaultEnvFile is read when present. A missing file is not an error.
const DefaultEnvFile = ".env"

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `toml:"server" yaml:"server"`
	Store  StoreConfig  `toml:"store" yaml:"store"`
	Client ClientConfig `toml:"client" yaml:"client"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ServerConfig configures the REST backend.
type ServerConfig struct {
	Port string `toml:"port" yaml:"port"`
}

// StoreConfig selects and configures the backend store.
type StoreConfig struct {
	Driver        string `toml:"driver" yaml:"driver"`
	Path          string `toml:"path" yaml:"path"`
	MongoURI      string `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database" yaml:"mongo_database"`
}

// ClientConfig configures the terminal client and its two task sources.
type ClientConfig struct {
	APIURL    string `toml:"api_url" yaml:"api_url"`
	LocalDir  string `toml:"local_dir" yaml:"local_dir"`
	LocalSlot string `toml:"local_slot" yaml:"local_slot"`
	PageLimit int    `toml:"page_limit" yaml:"page_limit"`
	Timeout   string `toml:"timeout" yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "4000"},
		Store: StoreConfig{
			Driver:        store.DriverSQLite,
			Path:          "./data/tasks.db",
			MongoURI:      "mongodb://127.0.0.1:27017",
			MongoDatabase: "tasks-demo",
		},
		Client: ClientConfig{
			APIURL:    "http://localhost:4000/api",
			LocalDir:  "./data",
			LocalSlot: "tasks",
			PageLimit: 100,
			Timeout:   "10s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Options controls where Load looks.
type Options struct {
	// File is an optional .toml, .yaml or .yml config file.
	File string
	// EnvFile is an optional dotenv file. Empty means DefaultEnvFile.
	EnvFile string
	// LookupEnv reads the process environment. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds the configuration and validates it. Real environment variables
// take precedence over values from the dotenv file.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := loadFile(opts.File, cfg); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}

	if err := applyEnv(cfg, get); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q: use .toml, .yaml or .yml", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, get func(string) (string, bool)) error {
	strVars := map[string]*string{
		"PORT":             &cfg.Server.Port,
		"STORE":            &cfg.Store.Driver,
		"DB_PATH":          &cfg.Store.Path,
		"MONGODB_URI":      &cfg.Store.MongoURI,
		"MONGODB_DATABASE": &cfg.Store.MongoDatabase,
		"API_URL":          &cfg.Client.APIURL,
		"LOCAL_DIR":        &cfg.Client.LocalDir,
		"LOCAL_SLOT":       &cfg.Client.LocalSlot,
		"HTTP_TIMEOUT":     &cfg.Client.Timeout,
		"LOG_LEVEL":        &cfg.Log.Level,
	}
	for key, dst := range strVars {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	if v, ok := get("PAGE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PAGE_LIMIT %q: %w", v, err)
		}
		cfg.Client.PageLimit = n
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	switch c.Store.Driver {
	case store.DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store path is required for sqlite")
		}
	case store.DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("mongo uri is required for mongo")
		}
	default:
		return fmt.Errorf("unknown store driver %q: must be %q or %q", c.Store.Driver, store.DriverSQLite, store.DriverMongo)
	}
	if c.Client.LocalSlot == "" {
		return errors.New("local slot name is required")
	}
	if c.Client.PageLimit < 1 || c.Client.PageLimit > models.MaxLimit {
		return fmt.Errorf("page limit must be between 1 and %d, got %d", models.MaxLimit, c.Client.PageLimit)
	}
	if d, err := time.ParseDuration(c.Client.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid client timeout %q", c.Client.Timeout)
	}
	return nil
}

// HTTPTimeout returns the parsed client timeout.
func (c ClientConfig) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// StoreOptions converts the store section for store.Open.
func (c StoreConfig) StoreOptions() store.Options {
	return store.Options{
		Driver:        c.Driver,
		SQLitePath:    c.Path,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}
