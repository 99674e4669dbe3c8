package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/simonjohansson/gemtracker/internal/server"
	"github.com/simonjohansson/gemtracker/pkg/gemconfig"
)

type runtimeDefaults struct {
	Addr       string
	DataPath   string
	SQLitePath string
	BlobPath   string
}

func builtinDefaults() runtimeDefaults {
	dataPath := filepath.Join(os.TempDir(), "gemtracker-data")
	return runtimeDefaults{
		Addr:       gemconfig.DefaultListenAddr,
		DataPath:   dataPath,
		SQLitePath: filepath.Join(dataPath, "projection.db"),
	}
}

func loadRuntimeDefaults(home string) (runtimeDefaults, error) {
	cfg, err := gemconfig.LoadOrInit(home)
	if err != nil {
		return runtimeDefaults{}, err
	}
	return runtimeDefaults{
		Addr:       gemconfig.ListenAddr(cfg.ServerURL),
		DataPath:   cfg.Backend.DataPath,
		SQLitePath: cfg.Backend.SQLitePath,
		BlobPath:   cfg.Backend.BlobPath,
	}, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	defaults := builtinDefaults()
	if home, err := os.UserHomeDir(); err == nil {
		if loaded, err := loadRuntimeDefaults(home); err != nil {
			logger.Warn("load config failed, using built-in defaults", "error", err)
		} else {
			defaults = loaded
		}
	}

	addr := flag.String("addr", defaults.Addr, "server listen address")
	opts := server.Options{Logger: logger}
	flag.StringVar(&opts.DataDir, "data-path", defaults.DataPath, "directory for kit and pick documents")
	flag.StringVar(&opts.SQLitePath, "sqlite-path", defaults.SQLitePath, "sqlite projection database path")
	flag.StringVar(&opts.BlobDir, "blob-path", defaults.BlobPath, "directory for design photos")
	flag.StringVar(&opts.PublicURL, "public-url", "", "prefix for photo URLs (empty for server-relative URLs)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, *addr, opts); err != nil {
		logger.Error("backend exited", "error", err)
		os.Exit(1)
	}
}
