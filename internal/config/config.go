package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFile is read when present and no explicit file is given.
	DefaultFile = "docstatus.yaml"

	defaultAddr              = ":8080"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	defaultSiteDir           = "site"
	defaultMountID           = "doc-status"
	defaultManifestName      = "repo-versions.json"
	defaultFetchTimeout      = 5 * time.Second
	defaultLogLevel          = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Site   SiteConfig   `yaml:"site"`
	Widget WidgetConfig `yaml:"widget"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// SiteConfig locates the built documentation site.
type SiteConfig struct {
	// Dir is the build output directory (MkDocs "site/").
	Dir string `yaml:"dir"`
	// URL is the public address pages are served from. Empty means derive it from the request.
	URL string `yaml:"url"`
}

// WidgetConfig controls the status widget.
type WidgetConfig struct {
	MountID      string        `yaml:"mount_id"`
	ManifestName string        `yaml:"manifest_name"`
	Intro        string        `yaml:"intro"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// LogConfig sets logger behaviour.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              defaultAddr,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			RequestTimeout:    defaultRequestTimeout,
		},
		Site: SiteConfig{Dir: defaultSiteDir},
		Widget: WidgetConfig{
			MountID:      defaultMountID,
			ManifestName: defaultManifestName,
			FetchTimeout: defaultFetchTimeout,
		},
		Log: LogConfig{Level: defaultLogLevel},
	}
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	file         string
	fileRequired bool
	envMap       map[string]string
	useSystemEnv bool
}

// WithFile reads configuration from path, which must exist. An empty path disables file loading.
func WithFile(path string) Option {
	return func(o *loaderOptions) {
		o.file = path
		o.fileRequired = path != ""
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves configuration from defaults, an optional YAML file and the environment,
// in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		file:         DefaultFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Default()
	if err := mergeFile(&cfg, options.file, options.fileRequired); err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		return "", false
	}

	// Cloud Run style PORT is honoured below the explicit address variable.
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		cfg.Server.Addr = ":" + strings.TrimSpace(port)
	}
	cfg.Server.Addr = stringWithDefault(lookup, "DOCSTATUS_ADDR", cfg.Server.Addr)
	cfg.Server.RequestTimeout = durationWithDefault(lookup, "DOCSTATUS_REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Site.Dir = stringWithDefault(lookup, "DOCSTATUS_SITE_DIR", cfg.Site.Dir)
	cfg.Site.URL = stringWithDefault(lookup, "DOCSTATUS_SITE_URL", cfg.Site.URL)
	cfg.Widget.MountID = stringWithDefault(lookup, "DOCSTATUS_MOUNT_ID", cfg.Widget.MountID)
	cfg.Widget.ManifestName = stringWithDefault(lookup, "DOCSTATUS_MANIFEST_NAME", cfg.Widget.ManifestName)
	cfg.Widget.FetchTimeout = durationWithDefault(lookup, "DOCSTATUS_FETCH_TIMEOUT", cfg.Widget.FetchTimeout)
	cfg.Log.Level = stringWithDefault(lookup, "LOG_LEVEL", cfg.Log.Level)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports missing or invalid fields.
func Validate(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		invalid = append(invalid, "Server.Addr")
	}
	if cfg.Server.RequestTimeout <= 0 {
		invalid = append(invalid, "Server.RequestTimeout")
	}
	if strings.TrimSpace(cfg.Site.Dir) == "" {
		invalid = append(invalid, "Site.Dir")
	}
	if cfg.Site.URL != "" {
		u, err := url.Parse(cfg.Site.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "Site.URL")
		}
	}
	if strings.TrimSpace(cfg.Widget.MountID) == "" {
		invalid = append(invalid, "Widget.MountID")
	}
	if strings.Trim(strings.TrimSpace(cfg.Widget.ManifestName), "/") == "" {
		invalid = append(invalid, "Widget.ManifestName")
	}
	if cfg.Widget.FetchTimeout <= 0 {
		invalid = append(invalid, "Widget.FetchTimeout")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}
