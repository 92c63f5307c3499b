package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// cliConfig is read from a YAML file such as
//
//	server: http://localhost:8080
//	token: eyJhbGciOi...
//	debounce: 1s
type cliConfig struct {
	Server   string        `yaml:"server"`
	Token    string        `yaml:"token"`
	Debounce time.Duration `yaml:"debounce"`
	Timeout  time.Duration `yaml:"timeout"`
}

func defaultConfig() *cliConfig {
	return &cliConfig{
		Server:   "http://localhost:8080",
		Debounce: time.Second,
		Timeout:  30 * time.Second,
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "notetree.yaml"
	}
	return filepath.Join(dir, "notetree", "config.yaml")
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (*cliConfig, error) {
	c := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Debounce <= 0 {
		c.Debounce = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c, nil
}

// override applies NOTETREE_SERVER/NOTETREE_TOKEN, then non-empty flags.
func (c *cliConfig) override(server, token string) {
	if v := os.Getenv("NOTETREE_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("NOTETREE_TOKEN"); v != "" {
		c.Token = v
	}
	if server != "" {
		c.Server = server
	}
	if token != "" {
		c.Token = token
	}
}
