package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	News     News     `yaml:"news"`
	LLM      LLM      `yaml:"llm"`
	Analysis Analysis `yaml:"analysis"`
	Database Database `yaml:"database"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type News struct {
	Provider   string       `yaml:"provider"`
	MaxResults int          `yaml:"max_results"`
	Language   string       `yaml:"language"`
	Country    string       `yaml:"country"`
	GNews      APIKeyConfig `yaml:"gnews"`
	NewsAPI    APIKeyConfig `yaml:"newsapi"`
	Feeds      []Feed       `yaml:"feeds"`
}

type APIKeyConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type LLM struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	OllamaURL   string  `yaml:"ollama_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Analysis struct {
	FetchFullText       bool `yaml:"fetch_full_text"`
	FetchTimeoutSeconds int  `yaml:"fetch_timeout_seconds"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSNEnv string `yaml:"dsn_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for newsintellect.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsintellect")
}

// DataDir returns the XDG data directory for newsintellect.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsintellect")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsintellect/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsintellect init' to create a default config",
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

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		News: News{
			Provider:   "gnews",
			MaxResults: 10,
			Language:   "en",
			Country:    "us",
			GNews:      APIKeyConfig{APIKeyEnv: "GNEWS_API_KEY"},
			NewsAPI:    APIKeyConfig{APIKeyEnv: "NEWSAPI_KEY"},
		},
		LLM: LLM{
			Provider:    "openai",
			Model:       "gpt-4o",
			APIKeyEnv:   "OPENAI_API_KEY",
			OllamaURL:   "http://localhost:11434",
			MaxTokens:   150,
			Temperature: 0.3,
		},
		Analysis: Analysis{
			FetchFullText:       true,
			FetchTimeoutSeconds: 15,
		},
		Database: Database{Driver: "sqlite", DSNEnv: "DATABASE_URL"},
		Server:   Server{Host: "127.0.0.1", Port: 8000},
		Logging:  Logging{Level: "INFO", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.News.Provider) {
	case "gnews", "newsapi", "rss":
	default:
		return fmt.Errorf("unknown news provider %q", c.News.Provider)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "openrouter", "ollama", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.News.MaxResults <= 0 {
		c.News.MaxResults = 10
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabaseDSN returns the data source name for the configured driver.
// SQLite uses a file in the data directory; PostgreSQL reads the DSN from
// the environment variable named by dsn_env.
func (c *Config) DatabaseDSN() (string, error) {
	if strings.ToLower(c.Database.Driver) == "postgres" {
		dsn := os.Getenv(c.Database.DSNEnv)
		if dsn == "" {
			return "", fmt.Errorf("postgres driver selected but %s is not set", c.Database.DSNEnv)
		}
		return dsn, nil
	}
	return filepath.Join(c.GetDataDir(), "newsintellect.db"), nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
