// Package config loads visindex configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	verrors "github.com/Aman-CERP/visindex/internal/errors"
	"github.com/Aman-CERP/visindex/internal/logging"
	"github.com/Aman-CERP/visindex/internal/store"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

// ProjectConfigName is the project configuration file name.
const ProjectConfigName = "visindex.yaml"

// Config represents the complete visindex configuration.
type Config struct {
	Version   int            `yaml:"version" json:"version"`
	Database  DatabaseConfig `yaml:"database" json:"database"`
	Logging   LoggingConfig  `yaml:"logging" json:"logging"`
	CacheSize int            `yaml:"cache_size" json:"cache_size"`
	Watch     WatchConfig    `yaml:"watch" json:"watch"`
	Cron      CronConfig     `yaml:"cron" json:"cron"`
	Scopes    ScopesConfig   `yaml:"scopes" json:"scopes"`
}

// DatabaseConfig locates the catalog database.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// WatchConfig configures the config-file watcher.
type WatchConfig struct {
	// Debounce is a Go duration string, e.g. "500ms".
	Debounce string `yaml:"debounce" json:"debounce"`
}

// CronConfig names the job queued when the visibility allow-list changes.
type CronConfig struct {
	JobCode string `yaml:"job_code" json:"job_code"`
}

// ScopesConfig holds scoped configuration values keyed by path.
// Websites and Stores are keyed by scope id.
type ScopesConfig struct {
	Default  map[string]string           `yaml:"default,omitempty" json:"default,omitempty"`
	Websites map[int64]map[string]string `yaml:"websites,omitempty" json:"websites,omitempty"`
	Stores   map[int64]map[string]string `yaml:"stores,omitempty" json:"stores,omitempty"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Path: DefaultDatabasePath(),
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		CacheSize: 1024,
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Cron: CronConfig{
			JobCode: store.DefaultDiscoveryJobCode,
		},
		Scopes: ScopesConfig{
			// Every visibility is indexable until an administrator narrows it.
			Default: map[string]string{
				visibility.ConfigPathSyncVisibilities: "1,2,3,4",
			},
		},
	}
}

// DefaultDatabasePath returns ~/.visindex/visindex.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".visindex", "visindex.db")
	}
	return filepath.Join(home, ".visindex", "visindex.db")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/visindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/visindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "visindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "visindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "visindex", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var cfg Config
	if err := readYAML(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Load loads configuration for the project in dir. Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/visindex/config.yaml)
//  3. Project config (visindex.yaml in dir)
//  4. Environment variables (VISINDEX_*)
func Load(dir string) (*Config, error) {
	return LoadFile(ProjectConfigPath(dir))
}

// LoadFile is Load with an explicit project config path. A missing file is
// not an error.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if path != "" && fileExists(path) {
		var project Config
		if err := readYAML(path, &project); err != nil {
			return nil, err
		}
		cfg.mergeWith(&project)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, verrors.ConfigError("invalid configuration: "+err.Error(), err).
			WithSuggestion("fix " + path + " or the VISINDEX_* environment")
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, preferring
// visindex.yaml over visindex.yml.
func ProjectConfigPath(dir string) string {
	yamlPath := filepath.Join(dir, ProjectConfigName)
	if fileExists(yamlPath) {
		return yamlPath
	}
	ymlPath := filepath.Join(dir, "visindex.yml")
	if fileExists(ymlPath) {
		return ymlPath
	}
	return yamlPath
}

func readYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return verrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// mergeWith merges non-zero values from other into c. Scope values merge
// path by path.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Database.Path != "" {
		c.Database.Path = expandHome(other.Database.Path)
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = expandHome(other.Logging.File)
	}
	if other.Logging.MaxSizeMB > 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles > 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}

	if other.CacheSize != 0 {
		c.CacheSize = other.CacheSize
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Cron.JobCode != "" {
		c.Cron.JobCode = other.Cron.JobCode
	}

	c.Scopes.merge(other.Scopes)
}

func (s *ScopesConfig) merge(other ScopesConfig) {
	if len(other.Default) > 0 && s.Default == nil {
		s.Default = make(map[string]string)
	}
	for p, v := range other.Default {
		s.Default[p] = v
	}
	s.Websites = mergeScoped(s.Websites, other.Websites)
	s.Stores = mergeScoped(s.Stores, other.Stores)
}

func mergeScoped(dst, src map[int64]map[string]string) map[int64]map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[int64]map[string]string)
	}
	for id, values := range src {
		if dst[id] == nil {
			dst[id] = make(map[string]string)
		}
		for p, v := range values {
			dst[id][p] = v
		}
	}
	return dst
}

// applyEnvOverrides applies VISINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VISINDEX_DATABASE"); v != "" {
		c.Database.Path = expandHome(v)
	}
	if v := os.Getenv("VISINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VISINDEX_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CacheSize = n
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		return fmt.Errorf("watch.debounce must be a positive duration, got %q", c.Watch.Debounce)
	}

	return c.ValidateScopes()
}

// ValidateScopes checks every scoped value's scope id and path shape.
func (c *Config) ValidateScopes() error {
	for id, values := range c.Scopes.Websites {
		if err := validateScopeValues(visibility.ScopeWebsites, id, values); err != nil {
			return err
		}
	}
	for id, values := range c.Scopes.Stores {
		if err := validateScopeValues(visibility.ScopeStores, id, values); err != nil {
			return err
		}
	}
	return validateScopeValues(visibility.ScopeDefault, 0, c.Scopes.Default)
}

func validateScopeValues(scope visibility.ScopeType, id int64, values map[string]string) error {
	if err := store.ValidateScope(scope, id); err != nil {
		return fmt.Errorf("scopes.%s: %w", scope, err)
	}
	for p := range values {
		if strings.Count(p, "/") != 2 {
			return fmt.Errorf("scopes.%s: path %q must have the form section/group/field", scope, p)
		}
	}
	return nil
}

// DebounceDuration returns the parsed watch.debounce value.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ScopeValues flattens Scopes into rows ordered default, websites, stores,
// then by id and path.
func (c *Config) ScopeValues() []store.ConfigValue {
	var out []store.ConfigValue
	out = appendScope(out, visibility.ScopeDefault, 0, c.Scopes.Default)
	for _, id := range sortedIDs(c.Scopes.Websites) {
		out = appendScope(out, visibility.ScopeWebsites, id, c.Scopes.Websites[id])
	}
	for _, id := range sortedIDs(c.Scopes.Stores) {
		out = appendScope(out, visibility.ScopeStores, id, c.Scopes.Stores[id])
	}
	return out
}

func appendScope(out []store.ConfigValue, scope visibility.ScopeType, id int64, values map[string]string) []store.ConfigValue {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		out = append(out, store.ConfigValue{Scope: scope, ScopeID: id, Path: p, Value: values[p]})
	}
	return out
}

func sortedIDs(m map[int64]map[string]string) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetScopeValue records value for path at (scope, id).
func (c *Config) SetScopeValue(scope visibility.ScopeType, id int64, path, value string) error {
	if err := store.ValidateScope(scope, id); err != nil {
		return err
	}
	switch scope {
	case visibility.ScopeDefault:
		if c.Scopes.Default == nil {
			c.Scopes.Default = make(map[string]string)
		}
		c.Scopes.Default[path] = value
	case visibility.ScopeWebsites:
		c.Scopes.Websites = mergeScoped(c.Scopes.Websites, map[int64]map[string]string{id: {path: value}})
	case visibility.ScopeStores:
		c.Scopes.Stores = mergeScoped(c.Scopes.Stores, map[int64]map[string]string{id: {path: value}})
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
