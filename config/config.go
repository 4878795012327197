package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed shortsdash.example.toml
var exampleConf []byte

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Session SessionConfig `toml:"session"`
	Storage StorageConfig `toml:"storage"`
	Limits  LimitsConfig  `toml:"limits"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Port            int           `toml:"port"`
	CSRFSecret      string        `toml:"csrf_secret"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	KeepAlive       time.Duration `toml:"keep_alive"`
}

type BackendConfig struct {
	URL       string        `toml:"url"`
	PublicURL string        `toml:"public_url"`
	Timeout   time.Duration `toml:"timeout"`
}

// SessionConfig drives the edge gate. Requests outside PublicPaths and
// PublicPrefixes need the session cookie.
type SessionConfig struct {
	CookieName     string   `toml:"cookie_name"`
	LoginPath      string   `toml:"login_path"`
	PublicPaths    []string `toml:"public_paths"`
	PublicPrefixes []string `toml:"public_prefixes"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
	// HistoryRetention is how long status history is kept. Zero keeps it forever.
	HistoryRetention time.Duration `toml:"history_retention"`
}

type LimitsConfig struct {
	CreatesPerMinute float64 `toml:"creates_per_minute"`
	CreateBurst      int     `toml:"create_burst"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the embedded example configuration.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load reads the configuration like Read and validates it for serving.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read starts from the defaults, applies the TOML file at path when path is
// not empty, then environment overrides. Only the client settings are
// checked, which is all the terminal commands need.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validateClient(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}

	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BACKEND_TIMEOUT: %w", err)
		}
		c.Backend.Timeout = timeout
	}

	if v := os.Getenv("CREATES_PER_MINUTE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid CREATES_PER_MINUTE: %w", err)
		}
		c.Limits.CreatesPerMinute = rate
	}

	if v := os.Getenv("HISTORY_RETENTION"); v != "" {
		retention, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HISTORY_RETENTION: %w", err)
		}
		c.Storage.HistoryRetention = retention
	}

	if v := os.Getenv("PUBLIC_PATHS"); v != "" {
		c.Session.PublicPaths = splitList(v)
	}

	c.Server.CSRFSecret = getEnv("CSRF_SECRET", c.Server.CSRFSecret)
	c.Backend.URL = getEnv("BACKEND_URL", c.Backend.URL)
	c.Backend.PublicURL = getEnv("BACKEND_PUBLIC_URL", c.Backend.PublicURL)
	c.Session.CookieName = getEnv("SESSION_COOKIE", c.Session.CookieName)
	c.Session.LoginPath = getEnv("LOGIN_PATH", c.Session.LoginPath)
	c.Storage.DataDir = getEnv("DATA_DIR", c.Storage.DataDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	return nil
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Server.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	}
	if !strings.HasPrefix(c.Session.LoginPath, "/") {
		errs = append(errs, fmt.Errorf("login path %q must be absolute", c.Session.LoginPath))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateClient() error {
	var errs []error
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("backend url is required"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session cookie name is required"))
	}
	if c.Storage.HistoryRetention < 0 {
		errs = append(errs, errors.New("history retention must not be negative"))
	}
	if c.Backend.PublicURL == "" {
		c.Backend.PublicURL = c.Backend.URL
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
