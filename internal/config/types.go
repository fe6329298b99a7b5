package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// PlaceholderAPIKey is written to a freshly created config file.
const PlaceholderAPIKey = "<your-deepseek-api-key>"

// Config holds all configuration for seekchat
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" json:"llm"`
	UI      UIConfig      `mapstructure:"ui" json:"ui"`
	Storage StorageConfig `mapstructure:"storage" json:"storage"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// LLMConfig holds API configuration
type LLMConfig struct {
	APIKey          string        `mapstructure:"api_key" json:"api_key"`
	Model           string        `mapstructure:"model" json:"model"`
	Endpoint        string        `mapstructure:"endpoint" json:"endpoint"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout" json:"response_timeout"` // 0 = wait forever for headers
	QueueSize       int           `mapstructure:"queue_size" json:"queue_size"`             // deltas buffered per turn
}

// UIConfig holds UI preferences
type UIConfig struct {
	Mode         string        `mapstructure:"mode" json:"mode"` // "tui" or "cli"
	TickInterval time.Duration `mapstructure:"tick_interval" json:"tick_interval"`
	Markdown     bool          `mapstructure:"markdown" json:"markdown"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	DataDir       string `mapstructure:"data_dir" json:"data_dir"`
	DialogFile    string `mapstructure:"dialog_file" json:"dialog_file"`       // relative paths resolve against DataDir
	EncryptionKey string `mapstructure:"encryption_key" json:"encryption_key"` // base64 AES key, empty = plaintext
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file"` // relative paths resolve against DataDir
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			APIKey:          PlaceholderAPIKey,
			Model:           "deepseek-chat",
			Endpoint:        "https://api.deepseek.com/chat/completions",
			ResponseTimeout: 60 * time.Second,
			QueueSize:       64,
		},
		UI: UIConfig{
			Mode:         "tui",
			TickInterval: 100 * time.Millisecond,
			Markdown:     true,
		},
		Storage: StorageConfig{
			Enabled:    true,
			DialogFile: "dialog.yaml",
		},
		Log: LogConfig{
			Level: "info",
			File:  "seekchat.log",
		},
	}
}

// HasAPIKey reports whether a real API key is configured
func (c *Config) HasAPIKey() bool {
	return c.LLM.APIKey != "" && c.LLM.APIKey != PlaceholderAPIKey
}

// DialogPath returns the absolute path of the seed dialog file
func (c *Config) DialogPath() string {
	return c.resolve(c.Storage.DialogFile)
}

// LogPath returns the absolute path of the log file
func (c *Config) LogPath() string {
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Storage.DataDir, path)
}

// String returns a JSON representation with secrets masked
func (c *Config) String() string {
	masked := *c
	if c.HasAPIKey() {
		masked.LLM.APIKey = maskSecret(c.LLM.APIKey)
	}
	if masked.Storage.EncryptionKey != "" {
		masked.Storage.EncryptionKey = "***"
	}
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("error marshaling config: %v", err)
	}
	return string(data)
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:3] + "***" + s[len(s)-4:]
}
