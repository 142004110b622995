package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIConfig holds the REST endpoint settings for the marketplace backend.
type APIConfig struct {
	// BaseURL is the root URL of the REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every REST call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// PushConfig holds the websocket pub/sub settings.
type PushConfig struct {
	// URL is the websocket endpoint of the push broker.
	URL string `mapstructure:"url" yaml:"url"`
}

// PollConfig holds the polling-fallback cadences. Chat contacts are polled
// more often than service requests because message delivery is more
// latency-sensitive than status changes.
type PollConfig struct {
	RequestIntervalSec int `mapstructure:"request_interval_sec" yaml:"request_interval_sec"`
	ChatIntervalSec    int `mapstructure:"chat_interval_sec" yaml:"chat_interval_sec"`
}

// AppConfig is the top-level client configuration.
type AppConfig struct {
	API  APIConfig  `mapstructure:"api" yaml:"api"`
	Push PushConfig `mapstructure:"push" yaml:"push"`
	Poll PollConfig `mapstructure:"poll" yaml:"poll"`

	// DataDir holds the local notification ledger database and log file.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/craftlink/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "craftlink", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "https://api.craftlink.example",
			TimeoutSec: 30,
		},
		Push: PushConfig{
			URL: "wss://push.craftlink.example/ws",
		},
		Poll: PollConfig{
			RequestIntervalSec: 30,
			ChatIntervalSec:    10,
		},
		DataDir: filepath.Join(home, ".local", "share", "craftlink"),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("push.url", def.Push.URL)
	v.SetDefault("poll.request_interval_sec", def.Poll.RequestIntervalSec)
	v.SetDefault("poll.chat_interval_sec", def.Poll.ChatIntervalSec)
	v.SetDefault("data_dir", def.DataDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Poll.RequestIntervalSec <= 0 {
		cfg.Poll.RequestIntervalSec = def.Poll.RequestIntervalSec
	}
	if cfg.Poll.ChatIntervalSec <= 0 {
		cfg.Poll.ChatIntervalSec = def.Poll.ChatIntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("push", cfg.Push)
	v.Set("poll", cfg.Poll)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
