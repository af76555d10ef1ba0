package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	SellerRegistry     SellerRegistry     `yaml:"seller_registry"`
	GovernmentRegistry GovernmentRegistry `yaml:"government_registry"`
	Storage            Storage            `yaml:"storage"`
	Sources            Sources            `yaml:"sources"`
	Bulk               Bulk               `yaml:"bulk"`
	Server             Server             `yaml:"server"`
	Logging            Logging            `yaml:"logging"`
}

// SellerRegistry configures the seller directory. URLs are templates; see
// registry.SellerClient.
type SellerRegistry struct {
	AliasURL       string `yaml:"alias_url"`
	DetailsURL     string `yaml:"details_url"`
	TokenEnv       string `yaml:"token_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GovernmentRegistry struct {
	URL            string `yaml:"url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Storage selects where call records live: "json" keeps a single JSON
// array file, "sqlite" an append log in the database.
type Storage struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

type Sources struct {
	Feeds  []Feed `yaml:"feeds"`
	CSVDir string `yaml:"csv_dir"`
}

type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type Bulk struct {
	Validate bool `yaml:"validate"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for tradecheck.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "tradecheck")
}

// DataDir returns the XDG data directory for tradecheck.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "tradecheck")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/tradecheck/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'tradecheck init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		SellerRegistry: SellerRegistry{
			TokenEnv:       "SELLER_REGISTRY_TOKEN",
			TimeoutSeconds: 10,
		},
		GovernmentRegistry: GovernmentRegistry{
			URL:            "https://sheet.gstincheck.co.in/check/{api_key}/{gstin}",
			APIKeyEnv:      "GST_API_KEY",
			TimeoutSeconds: 15,
		},
		Storage: Storage{Backend: BackendJSON},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return nil, fmt.Errorf("parsing config: unknown storage backend %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// CallsPath is the JSON call store used by the json backend.
func (c *Config) CallsPath() string {
	return filepath.Join(c.GetDataDir(), "calls.json")
}

// DBPath is the SQLite database holding validation history and, with the
// sqlite backend, call records.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "tradecheck.db")
}

// SellerToken reads the seller directory token from the environment.
func (c *Config) SellerToken() string {
	return os.Getenv(c.SellerRegistry.TokenEnv)
}

// GSTAPIKey reads the government registry key from the environment.
func (c *Config) GSTAPIKey() string {
	return os.Getenv(c.GovernmentRegistry.APIKeyEnv)
}

func (r SellerRegistry) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r GovernmentRegistry) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Verbose reports whether the log level asks for file and line output.
func (l Logging) Verbose() bool {
	return strings.EqualFold(l.Level, "DEBUG")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
