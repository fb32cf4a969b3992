package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. YARI_SEARCH_HOSTS
	EnvPrefix = "YARI_SEARCH"

	// DefaultIndex is the index documents are loaded into and searched from
	DefaultIndex = "yari_doc"

	// DefaultSearchSize is the number of hits a search returns
	DefaultSearchSize = 10

	// SettingAnnotation marks a command flag with the setting key it overrides.
	SettingAnnotation = "yari-search/setting"

	fileScheme = "file://"
)

// SearchSettings configuration for queries
type SearchSettings struct {
	Size int `mapstructure:"size"`
}

// MCPSettings configuration for the MCP server
type MCPSettings struct {
	Name string `mapstructure:"name"`
}

// Settings application settings
type Settings struct {
	// Hosts are engine endpoints: index root directories, primary first.
	Hosts    []string       `mapstructure:"hosts"`
	Index    string         `mapstructure:"index"`
	StateDir string         `mapstructure:"state_dir"`
	LogLevel string         `mapstructure:"log_level"`
	Search   SearchSettings `mapstructure:"search"`
	MCP      MCPSettings    `mapstructure:"mcp"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("hosts", []string{filepath.Join(defaultBaseDir(), "data")})
	v.SetDefault("index", DefaultIndex)
	v.SetDefault("state_dir", filepath.Join(defaultBaseDir(), "state"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("search.size", DefaultSearchSize)
	v.SetDefault("mcp.name", "yari-search")

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("hosts", EnvPrefix+"_HOSTS")
	_ = v.BindEnv("index", EnvPrefix+"_INDEX")
	_ = v.BindEnv("state_dir", EnvPrefix+"_STATE_DIR")
	_ = v.BindEnv("log_level", EnvPrefix+"_LOG_LEVEL")
	_ = v.BindEnv("search.size", EnvPrefix+"_SEARCH_SIZE")
	_ = v.BindEnv("mcp.name", EnvPrefix+"_MCP_NAME")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("hosts", flags.Lookup("hosts"))
		_ = v.BindPFlag("index", flags.Lookup("index"))
		_ = v.BindPFlag("state_dir", flags.Lookup("state-dir"))
		_ = v.BindPFlag("log_level", flags.Lookup("log-level"))

		// Command flags that override a setting carry its key
		flags.VisitAll(func(f *pflag.Flag) {
			if keys := f.Annotations[SettingAnnotation]; len(keys) == 1 {
				_ = v.BindPFlag(keys[0], f)
			}
		})
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Comma-separated env var values arrive as a single element
	if hostsEnv := os.Getenv(EnvPrefix + "_HOSTS"); hostsEnv != "" {
		if len(settings.Hosts) == 0 || (len(settings.Hosts) == 1 && strings.Contains(settings.Hosts[0], ",")) {
			settings.Hosts = strings.Split(hostsEnv, ",")
		}
	}
	settings.Hosts = NormalizeHosts(settings.Hosts)

	settings.StateDir = expandHomeDir(strings.TrimSpace(settings.StateDir))
	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))

	return &settings, nil
}

// NormalizeHosts trims hosts, drops empty ones, strips a file:// scheme
// and expands ~. Hosts with any other scheme are kept for validation to reject.
func NormalizeHosts(hosts []string) []string {
	var result []string
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		host = strings.TrimPrefix(host, fileScheme)
		if host == "" {
			continue
		}
		result = append(result, expandHomeDir(host))
	}
	return result
}

// defaultBaseDir returns the default directory for data and state
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".yari-search"
	}
	return filepath.Join(home, ".yari-search")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for invalid configurations.
func ValidateSettings(s *Settings) error {
	if len(s.Hosts) == 0 {
		return errors.New("at least one host is required (hosts)")
	}
	for _, host := range s.Hosts {
		if scheme, _, found := strings.Cut(host, "://"); found {
			return fmt.Errorf("host %q has unsupported scheme %q: hosts are index directories", host, scheme)
		}
	}

	if s.Index == "" {
		return errors.New("index cannot be empty")
	}
	if strings.ContainsAny(s.Index, `/\`) || s.Index == "." || s.Index == ".." {
		return errors.New("index must be a plain name, got: " + s.Index)
	}

	if s.StateDir == "" {
		return errors.New("state-dir cannot be empty")
	}

	if s.Search.Size <= 0 {
		return errors.New("search size must be positive")
	}

	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}

	return nil
}
