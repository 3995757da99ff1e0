// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingHubURL is returned by Validate when no hub URL is configured.
	ErrMissingHubURL = errors.New("hub URL is required (WATCHTOWER_HUB_URL)")
	// ErrMissingToken is returned by Validate when no hub token is configured.
	ErrMissingToken = errors.New("hub token is required (WATCHTOWER_API_TOKEN)")
)

// Duration is a wrapper around time.Duration that reads and writes
// human-readable strings like "3s", "30s", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string. It is used when decoding from
// koanf, where every file and env value passes through mapstructure.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all beacon configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Hub         HubConfig         `yaml:"hub"`
	Database    DatabaseConfig    `yaml:"database"`
	Cache       CacheConfig       `yaml:"cache"`
	Session     SessionConfig     `yaml:"session"`
	Workload    WorkloadConfig    `yaml:"workload"`
	Performance PerformanceConfig `yaml:"performance"`
	Security    SecurityConfig    `yaml:"security"`
	Logs        LogsConfig        `yaml:"logs"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AppConfig identifies the monitored application.
type AppConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// HubConfig holds the collection endpoint settings.
type HubConfig struct {
	URL                string   `yaml:"url"`
	Token              string   `yaml:"token"`
	Timeout            Duration `yaml:"timeout"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	Compress           bool     `yaml:"compress"`
}

// DatabaseConfig names the connections the database probes use.
type DatabaseConfig struct {
	Default string `yaml:"default"`
	// SystemConnection is an optional elevated-privilege connection used
	// only for lock introspection. Empty means Default.
	SystemConnection string                      `yaml:"system_connection"`
	Connections      map[string]ConnectionConfig `yaml:"connections"`
	HealthThreshold  Duration                    `yaml:"health_threshold"`
	QueryTimeout     Duration                    `yaml:"query_timeout"`
}

// ConnectionConfig describes one named database connection.
type ConnectionConfig struct {
	// Driver is the driver identifier: mysql, mariadb, pgsql, sqlsrv, sqlite.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheConfig identifies the cache backend.
type CacheConfig struct {
	Driver   string `yaml:"driver"`
	RedisURL string `yaml:"redis_url"`
}

// SessionConfig identifies the session backend.
type SessionConfig struct {
	Driver       string   `yaml:"driver"`
	Path         string   `yaml:"path"`
	Table        string   `yaml:"table"`
	RedisURL     string   `yaml:"redis_url"`
	RedisPrefix  string   `yaml:"redis_prefix"`
	ActiveWindow Duration `yaml:"active_window"`
}

// WorkloadConfig names the background job tables.
type WorkloadConfig struct {
	FailedTable    string `yaml:"failed_table"`
	PendingTable   string `yaml:"pending_table"`
	ProcessedTable string `yaml:"processed_table"`
}

// PerformanceConfig locates recorded response-time samples.
type PerformanceConfig struct {
	SamplesTable string   `yaml:"samples_table"`
	Window       Duration `yaml:"window"`
}

// SecurityConfig holds the TLS target and the paths to audit.
type SecurityConfig struct {
	// TLSHost defaults to the host of App.URL.
	TLSHost       string            `yaml:"tls_host"`
	TLSPort       int               `yaml:"tls_port"`
	TLSTimeout    Duration          `yaml:"tls_timeout"`
	CriticalPaths map[string]string `yaml:"critical_paths"`
}

// LogsConfig locates application log files.
type LogsConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

// LoggingConfig holds beacon's own logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "beacon",
		},
		Hub: HubConfig{
			Timeout: Duration{10 * time.Second},
		},
		Database: DatabaseConfig{
			Connections:     map[string]ConnectionConfig{},
			HealthThreshold: Duration{3 * time.Second},
			QueryTimeout:    Duration{3 * time.Second},
		},
		Cache: CacheConfig{
			Driver: "file",
		},
		Session: SessionConfig{
			Driver:       "file",
			Path:         "storage/framework/sessions",
			Table:        "sessions",
			RedisPrefix:  "session:",
			ActiveWindow: Duration{5 * time.Minute},
		},
		Workload: WorkloadConfig{
			FailedTable:    "failed_jobs",
			PendingTable:   "jobs",
			ProcessedTable: "job_batches",
		},
		Performance: PerformanceConfig{
			SamplesTable: "beacon_response_times",
			Window:       Duration{time.Hour},
		},
		Security: SecurityConfig{
			TLSPort:    443,
			TLSTimeout: Duration{30 * time.Second},
			CriticalPaths: map[string]string{
				"env":     ".env",
				"storage": "storage",
				"logs":    "storage/logs",
			},
		},
		Logs: LogsConfig{
			Dir:     "storage/logs",
			Pattern: "*.log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// envKeys maps recognized environment variables onto config keys.
var envKeys = map[string]string{
	"WATCHTOWER_HUB_URL":    "hub.url",
	"WATCHTOWER_API_TOKEN":  "hub.token",
	"DB_MONITOR_CONNECTION": "database.system_connection",
	"DB_CONNECTION":         "database.default",
	"APP_NAME":              "app.name",
	"APP_URL":               "app.url",
	"CACHE_DRIVER":          "cache.driver",
	"REDIS_URL":             "cache.redis_url",
	"SESSION_DRIVER":        "session.driver",
	"BEACON_LOG_LEVEL":      "logging.level",
	"BEACON_LOG_FILE":       "logging.file",
}

// connectionEnv fills the default connection from DB_DRIVER and DB_DSN.
// Connection names are dynamic, so these cannot go through envKeys.
func connectionEnv(cfg *Config) {
	driver, dsn := os.Getenv("DB_DRIVER"), os.Getenv("DB_DSN")
	if driver == "" && dsn == "" {
		return
	}
	name := cfg.Database.Default
	if name == "" {
		name = "default"
		cfg.Database.Default = name
	}
	if cfg.Database.Connections == nil {
		cfg.Database.Connections = map[string]ConnectionConfig{}
	}
	conn := cfg.Database.Connections[name]
	if driver != "" {
		conn.Driver = driver
	}
	if conn.Driver == "" {
		conn.Driver = name
	}
	if dsn != "" {
		conn.DSN = dsn
	}
	cfg.Database.Connections[name] = conn
}

// envKey translates an environment variable for koanf. Unknown or empty
// variables are dropped.
func envKey(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return envKeys[key], value
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	URL   string
	Token string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > YAML file > defaults.
//
// An optional configPath argument controls file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no file)
func LoadLayered(cli CLIOverrides, configPath ...string) (*Config, error) {
	k := koanf.New(".")

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		if _, err := os.Stat(filePath); err == nil {
			if err := k.Load(file.Provider(filePath), koanfyaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           cfg,
			TagName:          "yaml",
			WeaklyTypedInput: true,
			// Maps present in the input replace the defaults instead of
			// merging into them.
			ZeroFields: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	connectionEnv(cfg)

	if cli.URL != "" {
		cfg.Hub.URL = cli.URL
	}
	if cli.Token != "" {
		cfg.Hub.Token = cli.Token
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the transmission preconditions. It must pass before any
// probe runs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hub.URL) == "" {
		return ErrMissingHubURL
	}
	if strings.TrimSpace(c.Hub.Token) == "" {
		return ErrMissingToken
	}
	u, err := url.Parse(c.Hub.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("hub URL %q must be an absolute http(s) URL", c.Hub.URL)
	}
	return nil
}

// TLSHost returns the host the certificate probe connects to: the explicit
// security.tls_host, else the host of app.url.
func (c *Config) TLSHost() string {
	if c.Security.TLSHost != "" {
		return c.Security.TLSHost
	}
	if c.App.URL == "" {
		return ""
	}
	u, err := url.Parse(c.App.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// SystemConnection returns the connection used for lock introspection.
func (c *Config) SystemConnection() string {
	if c.Database.SystemConnection != "" {
		return c.Database.SystemConnection
	}
	return c.Database.Default
}
