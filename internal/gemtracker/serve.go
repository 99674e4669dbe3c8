package gemtracker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/gemtracker/internal/server"
	"github.com/simonjohansson/gemtracker/pkg/gemconfig"
)

type serveSettings struct {
	Addr       string
	DataPath   string
	SQLitePath string
	BlobPath   string
	PublicURL  string
}

func (s serveSettings) validate() error {
	switch {
	case s.Addr == "":
		return errors.New("--addr cannot be empty")
	case s.DataPath == "":
		return errors.New("--data-path cannot be empty")
	case s.SQLitePath == "":
		return errors.New("--sqlite-path cannot be empty")
	}
	return nil
}

var runServeFunc = runServe

func newServeCommand(cfg *Config) *cobra.Command {
	var flags serveSettings

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gemtracker API server.",
		Long:  "Runs the API server with document storage, a photo blob directory and the sqlite projection. Unset flags fall back to the config file.",
		Example: strings.TrimSpace(`gemtracker serve
gemtracker serve --addr 127.0.0.1:8090
gemtracker --server-url http://127.0.0.1:9010 serve
gemtracker serve --data-path /tmp/gems/data --sqlite-path /tmp/gems/projection.db --blob-path /tmp/gems/blobs`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := serveSettings{
				Addr:       gemconfig.ListenAddr(cfg.ServerURL),
				DataPath:   cfg.DataPath,
				SQLitePath: cfg.SQLitePath,
				BlobPath:   cfg.BlobPath,
			}
			override := func(name string, dst *string, value string) {
				if cmd.Flags().Changed(name) {
					*dst = value
				}
			}
			override("addr", &settings.Addr, flags.Addr)
			override("data-path", &settings.DataPath, flags.DataPath)
			override("sqlite-path", &settings.SQLitePath, flags.SQLitePath)
			override("blob-path", &settings.BlobPath, flags.BlobPath)
			settings.PublicURL = flags.PublicURL

			settings = settings.trimmed()
			if err := settings.validate(); err != nil {
				return err
			}
			return runServeFunc(settings)
		},
	}

	cmd.Flags().StringVar(&flags.Addr, "addr", gemconfig.ListenAddr(cfg.ServerURL), "server listen address")
	cmd.Flags().StringVar(&flags.DataPath, "data-path", cfg.DataPath, "directory for kit and pick documents")
	cmd.Flags().StringVar(&flags.SQLitePath, "sqlite-path", cfg.SQLitePath, "sqlite projection database path")
	cmd.Flags().StringVar(&flags.BlobPath, "blob-path", cfg.BlobPath, "directory for design photos (default <data-path>/blobs)")
	cmd.Flags().StringVar(&flags.PublicURL, "public-url", "", "prefix for photo URLs (empty for server-relative URLs)")
	return cmd
}

func (s serveSettings) trimmed() serveSettings {
	s.Addr = strings.TrimSpace(s.Addr)
	s.DataPath = strings.TrimSpace(s.DataPath)
	s.SQLitePath = strings.TrimSpace(s.SQLitePath)
	s.BlobPath = strings.TrimSpace(s.BlobPath)
	s.PublicURL = strings.TrimSpace(s.PublicURL)
	return s
}

func runServe(settings serveSettings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, settings.Addr, server.Options{
		DataDir:    settings.DataPath,
		SQLitePath: settings.SQLitePath,
		BlobDir:    settings.BlobPath,
		PublicURL:  settings.PublicURL,
		Logger:     slog.New(slog.NewTextHandler(os.Stdout, nil)),
	})
}
