// Package config loads the frappeforms runtime configuration from a YAML file
// and FRAPPEFORMS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jalsampada/go-frappeforms/pkg/frappe"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FRAPPEFORMS_"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full runtime configuration.
type Config struct {
	Env     string        `yaml:"env"`
	Server  ServerConfig  `yaml:"server"`
	Frappe  FrappeConfig  `yaml:"frappe"`
	Layouts LayoutsConfig `yaml:"layouts"`
	Log     LogConfig     `yaml:"log"`
	Submit  SubmitConfig  `yaml:"submit"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	FormsPath       string        `yaml:"formsPath"`
	AssetsPath      string        `yaml:"assetsPath"`
	TemplatesDir    string        `yaml:"templatesDir"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type FrappeConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"apiKey"`
	APISecret string        `yaml:"apiSecret"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LayoutsConfig points at site layouts merged over the embedded defaults and
// an optional preset document applied to every layout.
type LayoutsConfig struct {
	Dir     string `yaml:"dir"`
	Presets string `yaml:"presets"`
}

type LogConfig struct {
	Level       string   `yaml:"level"`
	OutputPaths []string `yaml:"outputPaths"`
}

// SubmitConfig tunes the submission pipeline.
type SubmitConfig struct {
	ChangedOnly bool `yaml:"changedOnly"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Addr:            ":8080",
			FormsPath:       "/forms",
			AssetsPath:      "/assets",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Frappe: FrappeConfig{Timeout: frappe.DefaultTimeout},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FRAPPEFORMS_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	get := func(key string) (string, bool) {
		value, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(value), ok && strings.TrimSpace(value) != ""
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"ENV", &c.Env},
		{"ADDR", &c.Server.Addr},
		{"FRAPPE_URL", &c.Frappe.URL},
		{"API_KEY", &c.Frappe.APIKey},
		{"API_SECRET", &c.Frappe.APISecret},
		{"LAYOUTS_DIR", &c.Layouts.Dir},
		{"TEMPLATES_DIR", &c.Server.TemplatesDir},
		{"PRESETS", &c.Layouts.Presets},
		{"LOG_LEVEL", &c.Log.Level},
	}
	for _, s := range strs {
		if value, ok := get(s.key); ok {
			*s.dst = value
		}
	}

	if value, ok := get("FRAPPE_TIMEOUT"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config: %sFRAPPE_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Frappe.Timeout = d
	}
	if value, ok := get("CHANGED_ONLY"); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: %sCHANGED_ONLY: %w", EnvPrefix, err)
		}
		c.Submit.ChangedOnly = b
	}
	return nil
}

// Validate checks the fields the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("env %q must be %s or %s", c.Env, EnvDevelopment, EnvProduction))
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !strings.HasPrefix(c.Server.FormsPath, "/") {
		errs = append(errs, fmt.Errorf("server.formsPath %q must start with /", c.Server.FormsPath))
	}

	if raw := strings.TrimSpace(c.Frappe.URL); raw == "" {
		errs = append(errs, errors.New("frappe.url is required"))
	} else if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("frappe.url %q must be an absolute http(s) URL", raw))
	}
	if (c.Frappe.APIKey == "") != (c.Frappe.APISecret == "") {
		errs = append(errs, errors.New("frappe.apiKey and frappe.apiSecret must be set together"))
	}
	if c.Env == EnvProduction && c.Frappe.APIKey == "" {
		errs = append(errs, errors.New("frappe credentials are required in production"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Development reports whether the development environment is selected.
func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}

// FrappeClient returns the REST client configuration.
func (c Config) FrappeClient() frappe.Config {
	return frappe.Config{
		BaseURL:   c.Frappe.URL,
		APIKey:    c.Frappe.APIKey,
		APISecret: c.Frappe.APISecret,
		Timeout:   c.Frappe.Timeout,
	}
}

// Logger returns the logger configuration.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.Development(),
		OutputPaths: c.Log.OutputPaths,
	}
}
