package gemtracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCommand(cfg *Config, stdout io.Writer) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"events", "stream"},
		Short:   "Stream change events over websocket.",
		Long:    "Connect to the backend websocket and print events until interrupted. resync.required means events were dropped and state should be reloaded.",
		Example: strings.TrimSpace(`gemtracker watch
gemtracker watch --kit $KIT
gemtracker events -k $KIT --output json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, _ := cmd.Flags().GetString("kit")
			wsURL, err := BuildWebsocketURL(cfg.ServerURL, strings.TrimSpace(kit))
			if err != nil {
				return &cliError{status: http.StatusBadRequest, message: err.Error()}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchEvents(ctx, wsURL, cfg.Output, stdout)
		},
	}

	watchCmd.Flags().StringP("kit", "k", "", "Optional kit id filter")
	return watchCmd
}

// BuildWebsocketURL maps the backend base URL onto its event stream endpoint.
// A base path such as /api is kept so proxied deployments keep working.
func BuildWebsocketURL(serverURL string, kit string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", err
	}
	if base.Host == "" {
		return "", errors.New("invalid server url")
	}

	var scheme string
	switch base.Scheme {
	case "http":
		scheme = "ws"
	case "https":
		scheme = "wss"
	default:
		return "", errors.New("server url must start with http:// or https://")
	}

	target := url.URL{
		Scheme: scheme,
		Host:   base.Host,
		Path:   strings.TrimRight(base.Path, "/") + "/ws",
	}
	if kit = strings.TrimSpace(kit); kit != "" {
		target.RawQuery = url.Values{"kit": []string{kit}}.Encode()
	}
	return target.String(), nil
}

// watchEvents prints one line per event until ctx is cancelled or the
// connection drops.
func watchEvents(ctx context.Context, wsURL string, output Output, stdout io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return &cliError{status: http.StatusBadGateway, message: err.Error()}
	}
	defer conn.Close()

	// ReadJSON ignores ctx; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(500 * time.Millisecond)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interrupt")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = conn.Close()
	})
	defer stop()

	for {
		var event map[string]any
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &cliError{status: http.StatusBadGateway, message: err.Error()}
		}
		line, err := FormatWatchLine(output, event)
		if err == nil {
			_, err = fmt.Fprintln(stdout, line)
		}
		if err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
	}
}
