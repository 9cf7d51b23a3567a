// Package config loads the application configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file location, relative to the home dir.
const DefaultPath = "~/.platelog.yaml"

// Config is the full application configuration. The access token is the
// black-box credential for the remote log; refresh flows live outside
// this program.
type Config struct {
	DataDir       string `yaml:"data_dir"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`
	Context       string `yaml:"context"`
	AccessToken   string `yaml:"access_token"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DataDir:   "~/.platelog",
		SheetName: "Events",
	}
}

// Load reads the config file at path ("" means DefaultPath). A missing
// file yields defaults, not an error. PLATELOG_TOKEN in the environment
// overrides the file's access token.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(expanded)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.SheetName == "" {
		cfg.SheetName = Default().SheetName
	}
	if cfg.DataDir == "" {
		cfg.DataDir = Default().DataDir
	}
	if token := os.Getenv("PLATELOG_TOKEN"); token != "" {
		cfg.AccessToken = token
	}

	return cfg, nil
}

// EnsureDataDir expands and creates the data directory.
func (c Config) EnsureDataDir() (string, error) {
	dir, err := homedir.Expand(c.DataDir)
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}
