package gemconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL  = "http://127.0.0.1:8080"
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultOutput     = "text"
)

type Config struct {
	ServerURL string        `yaml:"server_url"`
	Backend   BackendConfig `yaml:"backend"`
	CLI       CLIConfig     `yaml:"cli"`
}

type BackendConfig struct {
	DataPath   string `yaml:"data_path"`
	SQLitePath string `yaml:"sqlite_path"`
	BlobPath   string `yaml:"blob_path"`
}

type CLIConfig struct {
	Output string `yaml:"output"`
}

func Default(home string) Config {
	stateDir := filepath.Join(home, ".local", "state", "gemtracker")

	return Config{
		ServerURL: DefaultServerURL,
		Backend: BackendConfig{
			DataPath:   filepath.Join(stateDir, "data"),
			SQLitePath: filepath.Join(stateDir, "projection.db"),
			BlobPath:   filepath.Join(stateDir, "blobs"),
		},
		CLI: CLIConfig{
			Output: DefaultOutput,
		},
	}
}

func ConfigPath(home string) string {
	return filepath.Join(home, ".config", "gemtracker", "config.yaml")
}

// LoadOrInit reads the config file under home, writing defaults when it does
// not exist and back-filling fields missing from an older file. Backend paths
// in the result have a leading ~ expanded; the file keeps them as written.
func LoadOrInit(home string) (Config, error) {
	path := ConfigPath(home)
	defaults := Default(home)

	cfg, err := LoadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := SaveFile(path, defaults); err != nil {
			return Config{}, err
		}
		return defaults, nil
	case err != nil:
		return Config{}, err
	}

	merged := Merge(defaults, cfg)
	if merged != cfg {
		if err := SaveFile(path, merged); err != nil {
			return Config{}, err
		}
	}
	return merged.expandPaths(home), nil
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return normalize(cfg), nil
}

func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(normalize(cfg))
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Merge overlays the non-empty fields of user onto defaults.
func Merge(defaults Config, user Config) Config {
	out := normalize(defaults)
	in := normalize(user)

	overlay(&out.ServerURL, in.ServerURL)
	overlay(&out.Backend.DataPath, in.Backend.DataPath)
	overlay(&out.Backend.SQLitePath, in.Backend.SQLitePath)
	overlay(&out.Backend.BlobPath, in.Backend.BlobPath)
	overlay(&out.CLI.Output, in.CLI.Output)
	return out
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// ExpandHome replaces a leading "~" or "~/" in p with home.
func ExpandHome(home, p string) string {
	switch {
	case p == "~":
		return home
	case strings.HasPrefix(p, "~/"):
		return filepath.Join(home, p[2:])
	default:
		return p
	}
}

func (c Config) expandPaths(home string) Config {
	c.Backend.DataPath = ExpandHome(home, c.Backend.DataPath)
	c.Backend.SQLitePath = ExpandHome(home, c.Backend.SQLitePath)
	c.Backend.BlobPath = ExpandHome(home, c.Backend.BlobPath)
	return c
}

// ListenAddr derives the backend listen address from the configured server
// URL, filling in the scheme's default port. Unusable URLs yield
// DefaultListenAddr.
func ListenAddr(serverURL string) string {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil || u.Host == "" {
		return DefaultListenAddr
	}
	if _, _, err := net.SplitHostPort(u.Host); err == nil {
		return u.Host
	}
	switch u.Scheme {
	case "https":
		return net.JoinHostPort(u.Host, "443")
	case "http":
		return net.JoinHostPort(u.Host, "80")
	default:
		return DefaultListenAddr
	}
}

func ValidateOutput(output string) error {
	switch output {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid output %q: expected text or json", output)
	}
}

func normalize(cfg Config) Config {
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	cfg.Backend.DataPath = strings.TrimSpace(cfg.Backend.DataPath)
	cfg.Backend.SQLitePath = strings.TrimSpace(cfg.Backend.SQLitePath)
	cfg.Backend.BlobPath = strings.TrimSpace(cfg.Backend.BlobPath)
	cfg.CLI.Output = strings.ToLower(strings.TrimSpace(cfg.CLI.Output))
	return cfg
}
