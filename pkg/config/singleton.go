package config

import (
	"fmt"
	"sync"
)

var (
	instance *Config
	mu       sync.RWMutex
	once     sync.Once
	initErr  error

	// configPath stores the path used for Initialize, enabling ReloadConfig.
	configPath string
)

// Initialize loads the configuration from the specified path and stores it
// as the global configuration instance. It is safe to call multiple times;
// only the first call loads the configuration.
func Initialize(path string) error {
	once.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		mu.Lock()
		instance = cfg
		configPath = path
		mu.Unlock()
	})

	return initErr
}

// GetConfig returns the global configuration instance. It returns an error
// if the configuration has not been initialized.
func GetConfig() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if instance == nil {
		return nil, fmt.Errorf("configuration not initialized: call Initialize first")
	}

	return instance, nil
}

// MustGetConfig returns the global configuration instance. It panics if the
// configuration has not been initialized. Intended for use after successful
// Initialize during startup.
func MustGetConfig() *Config {
	cfg, err := GetConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}

// SetConfig replaces the global configuration instance. Primarily used by
// tests and by ReloadConfig.
func SetConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// ReloadConfig re-reads the configuration from the path used by Initialize
// and atomically replaces the global instance. If reload fails, the previous
// configuration remains in effect.
func ReloadConfig() error {
	mu.RLock()
	path := configPath
	mu.RUnlock()

	if path == "" {
		return fmt.Errorf("configuration not initialized: call Initialize first")
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("reloading configuration: %w", err)
	}

	SetConfig(cfg)
	return nil
}

// resetForTesting clears the singleton state. Only for use in tests.
func resetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	configPath = ""
	once = sync.Once{}
	initErr = nil
}
