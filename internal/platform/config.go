package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional per-vault configuration file.
const ConfigFile = "tagvault.yaml"

// FileConfig is the content of tagvault.yaml. Every field is optional.
//
//	data_dir: data        # relative to the file
//	token_ttl: 8h
//	versioning: true
//	log_level: debug
type FileConfig struct {
	DataDir    string `yaml:"data_dir"`
	TokenTTL   string `yaml:"token_ttl"`
	Versioning *bool  `yaml:"versioning"`
	LogLevel   string `yaml:"log_level"`

	dir string
}

// LoadConfig reads tagvault.yaml from dir. A missing file yields an empty
// configuration.
func LoadConfig(dir string) (FileConfig, error) {
	cfg := FileConfig{dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
	}
	cfg.dir = dir
	if _, err := cfg.TTL(); err != nil {
		return cfg, err
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Dir resolves DataDir against the directory holding the file.
func (c FileConfig) Dir() string {
	switch {
	case c.DataDir == "":
		return c.dir
	case filepath.IsAbs(c.DataDir):
		return c.DataDir
	default:
		return filepath.Join(c.dir, c.DataDir)
	}
}

// TTL parses TokenTTL. Zero means the default.
func (c FileConfig) TTL() (time.Duration, error) {
	if c.TokenTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid token_ttl %q", c.TokenTTL)
	}
	return d, nil
}

// Level parses LogLevel. Empty means info.
func (c FileConfig) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return lvl, nil
}

// Options translates the file into vault options. Explicit options passed
// after these take precedence.
func (c FileConfig) Options() []Option {
	var opts []Option
	if ttl, _ := c.TTL(); ttl > 0 {
		opts = append(opts, WithTokenTTL(ttl))
	}
	if c.Versioning != nil {
		opts = append(opts, WithVersioning(*c.Versioning))
	}
	return opts
}
