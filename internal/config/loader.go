package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yukin371/seekchat/pkg/utils"
)

// AppName is used for config/data directory names and the env prefix
const AppName = "seekchat"

// Loader loads configuration from a YAML file plus SEEKCHAT_* environment overrides
type Loader struct {
	v       *viper.Viper
	path    string
	created bool
	schema  *SchemaLoader
}

// NewLoader creates a loader for path. An empty path uses $SEEKCHAT_CONFIG
// or <config dir>/seekchat/config.yaml.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		path = os.Getenv("SEEKCHAT_CONFIG")
	}
	if path == "" {
		configDir, err := utils.GetConfigDir(AppName)
		if err != nil {
			return nil, fmt.Errorf("failed to get config dir: %w", err)
		}
		path = filepath.Join(configDir, "config.yaml")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Loader{v: v, path: path, schema: NewSchemaLoader()}, nil
}

// Path returns the config file path
func (l *Loader) Path() string {
	return l.path
}

// Created reports whether Load wrote a fresh default file
func (l *Loader) Created() bool {
	return l.created
}

// Load reads the config file, writing a default one first if it is missing
func (l *Loader) Load() (*Config, error) {
	_, err := os.Stat(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := l.Save(DefaultConfig()); err != nil {
			return nil, err
		}
		l.created = true
	case err != nil:
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := l.resolvePaths(&cfg); err != nil {
		return nil, err
	}

	if err := l.schema.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// resolvePaths fills in the data directory and expands "~"
func (l *Loader) resolvePaths(cfg *Config) error {
	if cfg.Storage.DataDir == "" {
		dataDir, err := utils.GetDataDir(AppName)
		if err != nil {
			return fmt.Errorf("failed to get data dir: %w", err)
		}
		cfg.Storage.DataDir = dataDir
	}

	for _, p := range []*string{&cfg.Storage.DataDir, &cfg.Storage.DialogFile, &cfg.Log.File} {
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// setDefaults sets default values in Viper
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.response_timeout", d.LLM.ResponseTimeout)
	v.SetDefault("llm.queue_size", d.LLM.QueueSize)

	v.SetDefault("ui.mode", d.UI.Mode)
	v.SetDefault("ui.tick_interval", d.UI.TickInterval)
	v.SetDefault("ui.markdown", d.UI.Markdown)

	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.dialog_file", d.Storage.DialogFile)
	v.SetDefault("storage.encryption_key", d.Storage.EncryptionKey)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Save writes configuration to the loader's file without touching the loader's viper state
func (l *Loader) Save(cfg *Config) error {
	if err := utils.EnsureDir(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	w := viper.New()
	w.SetConfigType("yaml")

	w.Set("llm.api_key", cfg.LLM.APIKey)
	w.Set("llm.model", cfg.LLM.Model)
	w.Set("llm.endpoint", cfg.LLM.Endpoint)
	w.Set("llm.response_timeout", cfg.LLM.ResponseTimeout.String())
	w.Set("llm.queue_size", cfg.LLM.QueueSize)

	w.Set("ui.mode", cfg.UI.Mode)
	w.Set("ui.tick_interval", cfg.UI.TickInterval.String())
	w.Set("ui.markdown", cfg.UI.Markdown)

	w.Set("storage.enabled", cfg.Storage.Enabled)
	w.Set("storage.data_dir", cfg.Storage.DataDir)
	w.Set("storage.dialog_file", cfg.Storage.DialogFile)
	w.Set("storage.encryption_key", cfg.Storage.EncryptionKey)

	w.Set("log.level", cfg.Log.Level)
	w.Set("log.file", cfg.Log.File)

	if err := w.WriteConfigAs(l.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
