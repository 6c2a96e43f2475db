package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default values applied by DefaultConfig.
const (
	DefaultAPIBaseURL         = "http://127.0.0.1:8000"
	DefaultPageSize           = 10
	DefaultBind               = "127.0.0.1"
	DefaultPort               = 8080
	DefaultRegistryPort       = 8000
	DefaultHTTPTimeoutSeconds = 10
	DefaultPreviewRetention   = 20
	DefaultLogLevel           = "info"
)

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the client registry base URL. The CRM posts new clients to
	// APIBaseURL + "/clients/". Set to "local" to keep clients in memory only.
	APIBaseURL string `json:"api_base_url,omitempty"`

	// PageSize is the number of clients shown per list page.
	PageSize int `json:"page_size,omitempty"`

	// Bind and Port configure the admin UI listener.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// RegistryPort is the listener port for `funnel registry`.
	RegistryPort int `json:"registry_port,omitempty"`

	// HTTPTimeoutSeconds bounds a single registry request. There are no retries.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// ChartAssetsHost overrides where the analytics chart loads ECharts from.
	ChartAssetsHost string `json:"chart_assets_host,omitempty"`

	// PreviewRetention is how many generated CMS previews the UI keeps addressable.
	PreviewRetention int `json:"preview_retention,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "client". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:         DefaultAPIBaseURL,
		PageSize:           DefaultPageSize,
		Bind:               DefaultBind,
		Port:               DefaultPort,
		RegistryPort:       DefaultRegistryPort,
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		PreviewRetention:   DefaultPreviewRetention,
		LogLevel:           DefaultLogLevel,
	}
}

// LocalOnly reports whether created clients stay in memory instead of going
// through the registry.
func (c *Config) LocalOnly() bool {
	u := strings.TrimSpace(c.APIBaseURL)
	return u == "" || strings.EqualFold(u, "local")
}

// Load loads configuration from baseDir/config.json, then applies the
// baseDir/.env file and process environment on top.
// Returns default config if neither exists.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.funnel) and project (.funnel) directories.
// Project config is found by walking upward from startDir to find the nearest .funnel/config.json.
// Project config takes precedence for scalar values; arrays are merged (deduplicated).
// Environment variables are applied last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg, filepath.Join(globalDir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .funnel/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".funnel", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv loads envFile (if present) into the process environment without
// overriding variables that are already set, then copies FUNNEL_* variables
// into cfg.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v, ok := os.LookupEnv("FUNNEL_API_BASE_URL"); ok {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("FUNNEL_BIND")); v != "" {
		cfg.Bind = v
	}
	if v := strings.TrimSpace(os.Getenv("FUNNEL_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if err := envInt("FUNNEL_PORT", &cfg.Port); err != nil {
		return err
	}
	if err := envInt("FUNNEL_REGISTRY_PORT", &cfg.RegistryPort); err != nil {
		return err
	}
	if err := envInt("FUNNEL_PAGE_SIZE", &cfg.PageSize); err != nil {
		return err
	}
	return nil
}

// envInt parses a positive integer variable into dst when set.
func envInt(name string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	*dst = n
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.APIBaseURL = firstString(overlay.APIBaseURL, base.APIBaseURL)
	result.Bind = firstString(overlay.Bind, base.Bind)
	result.ChartAssetsHost = firstString(overlay.ChartAssetsHost, base.ChartAssetsHost)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.PageSize = firstInt(overlay.PageSize, base.PageSize)
	result.Port = firstInt(overlay.Port, base.Port)
	result.RegistryPort = firstInt(overlay.RegistryPort, base.RegistryPort)
	result.HTTPTimeoutSeconds = firstInt(overlay.HTTPTimeoutSeconds, base.HTTPTimeoutSeconds)
	result.PreviewRetention = firstInt(overlay.PreviewRetention, base.PreviewRetention)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
