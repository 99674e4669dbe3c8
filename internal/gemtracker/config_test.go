package gemtracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeConfigPrecedence(t *testing.T) {
	t.Parallel()

	defaults := Config{
		ServerURL:  "http://127.0.0.1:8080",
		Output:     OutputText,
		DataPath:   "/tmp/default-data",
		SQLitePath: "/tmp/default.db",
		BlobPath:   "/tmp/default-blobs",
	}
	fileCfg := Config{
		ServerURL:  "http://from-file:8080",
		DataPath:   "/tmp/file-data",
		SQLitePath: "/tmp/file.db",
	}
	envCfg := Config{
		ServerURL: "http://from-env:8080",
		Output:    OutputJSON,
		DataPath:  "/tmp/env-data",
	}
	flagCfg := Config{
		ServerURL: "http://from-flag:8080",
	}

	got := MergeConfig(defaults, fileCfg, envCfg, flagCfg)
	require.Equal(t, "http://from-flag:8080", got.ServerURL)
	require.Equal(t, OutputJSON, got.Output)
	require.Equal(t, "/tmp/env-data", got.DataPath)
	require.Equal(t, "/tmp/file.db", got.SQLitePath)
	require.Equal(t, "/tmp/default-blobs", got.BlobPath)
}

func TestLoadOrInitConfigWritesMissingFields(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfgDir := filepath.Join(home, ".config", "gemtracker")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(`
server_url: http://seed
cli:
  output: json
`), 0o644))

	got, err := LoadOrInitConfig(home)
	require.NoError(t, err)
	require.Equal(t, "http://seed", got.ServerURL)
	require.Equal(t, OutputJSON, got.Output)
	require.Equal(t, filepath.Join(home, ".local", "state", "gemtracker", "blobs"), got.BlobPath)
	require.Equal(t, filepath.Join(home, ".config", "gemtracker", "config.yaml"), ConfigPath(home))

	roundTrip, err := LoadConfigFile(filepath.Join(cfgDir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, got, roundTrip)
}

func TestLoadConfigFileDropsInvalidOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cli:\n  output: yaml\n"), 0o644))

	got, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, Output(""), got.Output)
}

func TestParseEnvConfig(t *testing.T) {
	t.Parallel()

	env := []string{
		"GEMTRACKER_SERVER_URL=http://env:9999",
		"GEMTRACKER_OUTPUT=json",
		"GEMTRACKER_DATA_PATH=/tmp/env-data",
		"GEMTRACKER_SQLITE_PATH=/tmp/env.db",
		"GEMTRACKER_BLOB_PATH=/tmp/env-blobs",
		"UNRELATED=1",
		"GEMTRACKER_BROKEN",
	}

	got := ParseEnvConfig(env)
	require.Equal(t, "http://env:9999", got.ServerURL)
	require.Equal(t, OutputJSON, got.Output)
	require.Equal(t, "/tmp/env-data", got.DataPath)
	require.Equal(t, "/tmp/env.db", got.SQLitePath)
	require.Equal(t, "/tmp/env-blobs", got.BlobPath)

	require.Equal(t, Output(""), ParseEnvConfig([]string{"GEMTRACKER_OUTPUT=xml"}).Output)
}

func TestFormatErrorJSON(t *testing.T) {
	t.Parallel()

	raw := FormatError(OutputJSON, 400, "bad request")
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	require.Equal(t, float64(400), body["status"])
	require.Equal(t, "bad request", body["error"])
}

func TestSaveConfigFileWritesScopedFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := SaveConfigFile(path, Config{
		ServerURL:  "http://127.0.0.1:9999",
		Output:     OutputJSON,
		DataPath:   "/tmp/data",
		SQLitePath: "/tmp/projection.db",
		BlobPath:   "/tmp/blobs",
	})
	require.NoError(t, err)

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9999", loaded.ServerURL)
	require.Equal(t, OutputJSON, loaded.Output)
	require.Equal(t, "/tmp/data", loaded.DataPath)
	require.Equal(t, "/tmp/projection.db", loaded.SQLitePath)
	require.Equal(t, "/tmp/blobs", loaded.BlobPath)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "blob_path: /tmp/blobs")
}
