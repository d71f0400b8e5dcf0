package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Loader handles loading the configuration.
type Loader struct {
	Version      string // Build version, used to determine dev mode
	OverridePath string // Set by -config or at compile time
	Getenv       func(string) string
}

// NewLoader creates a new Loader.
func NewLoader(version string, overridePath string) *Loader {
	return &Loader{
		Version:      version,
		OverridePath: overridePath,
		Getenv:       os.Getenv,
	}
}

// Load reads the first configuration file found, then applies environment
// overrides.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.loadFile(l.GetConfigPath())
	if err != nil {
		return nil, err
	}
	if l.Getenv != nil {
		cfg.ApplyEnv(l.Getenv)
	}
	return cfg, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseByExt(path, f)
}

func parseByExt(path string, r io.Reader) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(r)
	}
	return Parse(r)
}

// DefaultPath is where `pixie config save` writes.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pixie", "config.rc")
}

// GetConfigPath returns the path to the configuration file, or empty string if not found.
func (l *Loader) GetConfigPath() string {
	if l.OverridePath != "" {
		if _, err := os.Stat(l.OverridePath); err == nil {
			return l.OverridePath
		}
	}

	if l.Version == "dev" {
		wd, _ := os.Getwd()
		localPath := filepath.Join(wd, ".pixierc")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}

	home, _ := os.UserHomeDir()
	for _, name := range []string{"config.rc", "pixie.rc", "config.yaml"} {
		p := filepath.Join(home, ".config", "pixie", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// Save writes cfg in RC format to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(cfg.String()), 0o600)
}
