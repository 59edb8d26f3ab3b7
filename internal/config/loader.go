package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultDataDirName = ".agentctl"
const defaultConfigFileName = "agentctl.json"

// Loader handles configuration loading from a JSON file, with
// AGENTCTL_-prefixed environment variable overrides and optional
// hot-reload on file change.
type Loader struct {
	configPath string

	mu      sync.RWMutex
	current *Config
	v       *viper.Viper
}

// NewLoader creates a new config loader bound to configPath. An empty
// configPath resolves to "~/.agentctl/agentctl.json".
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

func (l *Loader) resolvedPath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: get home directory: %w", err)
	}
	return filepath.Join(home, defaultDataDirName, defaultConfigFileName), nil
}

// Load reads the configuration file, applying environment overrides and
// filling derived defaults (data dir, log file, store paths). A missing
// file is not an error: Load returns DefaultConfig() with derived paths
// applied.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvedPath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("AGENTCTL")
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if _, statErr := os.Stat(configPath); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, fmt.Errorf("config: stat %s: %w", configPath, statErr)
	}

	if err := applyDerivedDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	l.mu.Lock()
	l.v = v
	l.current = cfg
	l.mu.Unlock()

	return cfg, nil
}

// applyDerivedDefaults fills DataDir-relative paths left unset by the
// caller or config file.
func applyDerivedDefaults(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, defaultDataDirName)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "agentctl.log")
	}
	if cfg.Stores.SessionStorePath == "" {
		cfg.Stores.SessionStorePath = filepath.Join(cfg.DataDir, "sessions.json")
	}
	if cfg.Stores.AuthStorePath == "" {
		cfg.Stores.AuthStorePath = filepath.Join(cfg.DataDir, "auth-profiles.json")
	}
	if cfg.Stores.TelemetryDBPath == "" {
		cfg.Stores.TelemetryDBPath = filepath.Join(cfg.DataDir, "telemetry.db")
	}
	return nil
}

// Current returns the most recently loaded config, or nil before the
// first Load.
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// WatchForChanges reloads the config on every write to the underlying
// file and invokes onReload with the freshly loaded Config. Reload
// errors are logged and do not replace the last-known-good config.
// Returns a stop function.
func (l *Loader) WatchForChanges(onReload func(*Config)) (func() error, error) {
	configPath, err := l.resolvedPath()
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", configPath, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := l.Load()
				if err != nil {
					log.Warn().Err(err).Str("path", configPath).Msg("config reload failed, keeping prior config")
					continue
				}
				if onReload != nil {
					onReload(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			case <-done:
				return
			}
		}
	}()

	stop := func() error {
		close(done)
		return watcher.Close()
	}
	return stop, nil
}

// Save writes cfg to the loader's config path as JSON.
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvedPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("data_dir", cfg.DataDir)
	v.Set("logging", cfg.Logging)
	v.Set("context", cfg.Context)
	v.Set("compact", cfg.Compact)
	v.Set("telemetry", cfg.Telemetry)
	v.Set("stores", cfg.Stores)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("config: write %s: %w", configPath, err)
			}
			return nil
		}
		return fmt.Errorf("config: write %s: %w", configPath, err)
	}
	return nil
}

// GetConfigPath returns the resolved config file path.
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvedPath()
	if err != nil {
		return ""
	}
	return path
}

// Load is a convenience function equivalent to NewLoader(configPath).Load().
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
