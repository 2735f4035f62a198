package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// --config wins over the search path
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	if err := applyFlags(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "THETAWARP_CONFIG"

// findConfigFile returns the first existing candidate: $THETAWARP_CONFIG,
// then thetawarp.yaml or config.yaml in the working directory, then the
// user config directory.
func findConfigFile() string {
	candidates := []string{
		os.Getenv(EnvConfig),
		"./thetawarp.yaml",
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "ThetaWarp")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ThetaWarp")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "thetawarp")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "thetawarp")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return nil
}

// filePaths lists the config fields holding file references.
func (c *Config) filePaths() []*string {
	return []*string{
		&c.Warp.TableLeft,
		&c.Warp.TableRight,
		&c.Warp.VertexShader,
		&c.Warp.FragmentShader,
		&c.Warp.ControlFile,
		&c.Source.Image,
	}
}

// resolvePaths makes file references in the config relative to its directory.
func (c *Config) resolvePaths(dir string) {
	for _, p := range c.filePaths() {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
