package gemtracker

import (
	"strings"

	"github.com/simonjohansson/gemtracker/pkg/gemconfig"
)

const envPrefix = "GEMTRACKER_"

type Config struct {
	ServerURL  string `yaml:"server_url"`
	Output     Output `yaml:"output"`
	DataPath   string `yaml:"data_path"`
	SQLitePath string `yaml:"sqlite_path"`
	BlobPath   string `yaml:"blob_path"`
}

func DefaultConfig(home string) Config {
	return mapSharedToCLI(gemconfig.Default(home))
}

// envFields maps GEMTRACKER_<NAME> suffixes onto Config.
var envFields = map[string]func(*Config, string){
	"SERVER_URL":  func(c *Config, v string) { c.ServerURL = v },
	"DATA_PATH":   func(c *Config, v string) { c.DataPath = v },
	"SQLITE_PATH": func(c *Config, v string) { c.SQLitePath = v },
	"BLOB_PATH":   func(c *Config, v string) { c.BlobPath = v },
	"OUTPUT": func(c *Config, v string) {
		if isValidOutput(v) {
			c.Output = Output(v)
		}
	},
}

// ParseEnvConfig reads GEMTRACKER_* variables. Invalid output values are
// ignored rather than rejected.
func ParseEnvConfig(env []string) Config {
	var cfg Config
	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(key, envPrefix)
		if !ok {
			continue
		}
		if set, known := envFields[name]; known {
			set(&cfg, strings.TrimSpace(value))
		}
	}
	return cfg
}

// MergeConfig applies each layer's non-empty fields in order, so later
// layers win.
func MergeConfig(layers ...Config) Config {
	var out Config
	for _, layer := range layers {
		overlay(&out.ServerURL, layer.ServerURL)
		overlay(&out.DataPath, layer.DataPath)
		overlay(&out.SQLitePath, layer.SQLitePath)
		overlay(&out.BlobPath, layer.BlobPath)
		if layer.Output != "" {
			out.Output = layer.Output
		}
	}
	return out
}

func overlay(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func LoadOrInitConfig(home string) (Config, error) {
	shared, err := gemconfig.LoadOrInit(home)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(shared), nil
}

func ConfigPath(home string) string {
	return gemconfig.ConfigPath(home)
}

func LoadConfigFile(path string) (Config, error) {
	shared, err := gemconfig.LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(shared), nil
}

func SaveConfigFile(path string, cfg Config) error {
	shared, err := gemconfig.LoadFile(path)
	if err != nil {
		shared = gemconfig.Config{}
	}
	shared.ServerURL = strings.TrimSpace(cfg.ServerURL)
	shared.CLI.Output = strings.TrimSpace(string(cfg.Output))
	shared.Backend.DataPath = strings.TrimSpace(cfg.DataPath)
	shared.Backend.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	shared.Backend.BlobPath = strings.TrimSpace(cfg.BlobPath)
	return gemconfig.SaveFile(path, shared)
}

func mapSharedToCLI(shared gemconfig.Config) Config {
	cfg := Config{
		ServerURL:  strings.TrimSpace(shared.ServerURL),
		Output:     Output(strings.TrimSpace(shared.CLI.Output)),
		DataPath:   strings.TrimSpace(shared.Backend.DataPath),
		SQLitePath: strings.TrimSpace(shared.Backend.SQLitePath),
		BlobPath:   strings.TrimSpace(shared.Backend.BlobPath),
	}
	if cfg.Output != "" && gemconfig.ValidateOutput(string(cfg.Output)) != nil {
		cfg.Output = ""
	}
	return cfg
}
