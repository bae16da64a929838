package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-mvc/framework/routing"
)

// Config is the central typed configuration struct. It satisfies
// container.Config, so it can seed a container directly.
type Config struct {
	App     AppConfig
	Log     LogConfig
	Session SessionConfig
	HTTP    HTTPConfig

	// Bindings are extra components registered by container.Create.
	Bindings map[string]any
}

type AppConfig struct {
	Name       string
	Env        string // local | production | testing
	Debug      bool
	URL        string
	Port       string
	Key        string
	ConfigFile string // YAML application file
}

type LogConfig struct {
	Level     string // debug | info | warn | error
	SentryDSN string
}

type SessionConfig struct {
	Driver   string        // memory | redis
	Cookie   string        // cookie name
	Lifetime time.Duration // idle time before the server forgets a session
	Secure   bool
	RedisURL string
}

// HTTPConfig is the part of the configuration read from the YAML
// application file.
//
//	routes:
//	  /: {controller: Home, action: index}
//	  /user/{id}: {controller: User, action: show}
//	headers:
//	  - "X-Frame-Options: DENY"
//	compression: 6
type HTTPConfig struct {
	Routes      map[string]routing.Target `yaml:"routes"`
	Headers     []string                  `yaml:"headers"`
	Compression int                       `yaml:"compression"`
	Views       string                    `yaml:"views"`
	Static      string                    `yaml:"static"`
	MetricsPath string                    `yaml:"metrics_path"`
}

// DefaultHTTP returns the HTTP settings used when nothing overrides them.
func DefaultHTTP() HTTPConfig {
	return HTTPConfig{
		Routes: map[string]routing.Target{
			"/": {Controller: "Home", Action: "index"},
		},
		Headers:     []string{"X-Content-Type-Options: nosniff"},
		Compression: 0,
		Views:       "./views",
		MetricsPath: "/metrics",
	}
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:       env("APP_NAME", "GoMVC"),
			Env:        env("APP_ENV", "local"),
			Debug:      envBool("APP_DEBUG", true),
			URL:        env("APP_URL", "http://localhost"),
			Port:       env("APP_PORT", "8000"),
			Key:        env("APP_KEY", ""),
			ConfigFile: env("APP_CONFIG", "config/app.yaml"),
		},
		Log: LogConfig{
			Level:     env("LOG_LEVEL", "info"),
			SentryDSN: env("SENTRY_DSN", ""),
		},
		Session: SessionConfig{
			Driver:   env("SESSION_DRIVER", "memory"),
			Cookie:   env("SESSION_COOKIE", "gomvc_session"),
			Lifetime: time.Duration(GetInt("SESSION_LIFETIME", 120)) * time.Minute,
			Secure:   envBool("SESSION_SECURE", false),
			RedisURL: env("REDIS_URL", "redis://localhost:6379/0"),
		},
		HTTP:     DefaultHTTP(),
		Bindings: make(map[string]any),
	}
}

// LoadFile merges the YAML application file at path over the current HTTP
// settings. A missing file yields an error wrapping os.ErrNotExist.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return fmt.Errorf("config file path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file HTTPConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	c.Configure(file)
	return nil
}

// Configure merges overrides over the current HTTP settings and returns the
// result. Non-empty fields replace; routes and headers are replaced whole.
// A compression of 0 keeps the current level, any level outside 1..9
// disables compression.
func (c *Config) Configure(overrides HTTPConfig) HTTPConfig {
	if overrides.Routes != nil {
		c.HTTP.Routes = maps.Clone(overrides.Routes)
	}
	if overrides.Headers != nil {
		c.HTTP.Headers = slices.Clone(overrides.Headers)
	}
	if overrides.Compression != 0 {
		c.HTTP.Compression = overrides.Compression
	}
	if overrides.Views != "" {
		c.HTTP.Views = overrides.Views
	}
	if overrides.Static != "" {
		c.HTTP.Static = overrides.Static
	}
	if overrides.MetricsPath != "" {
		c.HTTP.MetricsPath = overrides.MetricsPath
	}
	return c.HTTP
}

// Components returns the extra components to register alongside the config.
func (c *Config) Components() map[string]any {
	return maps.Clone(c.Bindings)
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
