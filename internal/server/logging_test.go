package server_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/gemtracker/internal/server"
)

// lockedBuffer lets the test read logs while the server may still be writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLoggedServer(t *testing.T) (*lockedBuffer, string) {
	t.Helper()
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo}))

	dataDir := t.TempDir()
	sqlitePath := filepath.Join(dataDir, "projection.db")
	app, err := server.New(server.Options{DataDir: dataDir, SQLitePath: sqlitePath, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	httpServer := newHTTPTestServer(t, app.Handler())
	return logs, httpServer.URL
}

func TestRequestLoggingMiddleware(t *testing.T) {
	logs, baseURL := newLoggedServer(t)

	resp := doJSON(t, baseURL+"/health", http.MethodGet, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	missing := doJSON(t, baseURL+"/kits/nope", http.MethodGet, nil)
	require.Equal(t, http.StatusNotFound, missing.StatusCode)

	// The request line is written after the response is flushed.
	require.Eventually(t, func() bool {
		out := logs.String()
		return strings.Contains(out, "path=/health") && strings.Contains(out, "path=/kits/nope")
	}, 2*time.Second, 10*time.Millisecond)

	out := logs.String()
	require.Contains(t, out, "http request")
	require.Contains(t, out, "method=GET")
	require.Contains(t, out, "path=/health")
	require.Contains(t, out, "status=200")
	require.Contains(t, out, "request_id=")
	require.Contains(t, out, "level=WARN msg=\"http request\"")
}

func TestOperationLoggingForKitLifecycle(t *testing.T) {
	logs, baseURL := newLoggedServer(t)

	kitID, designs := mustCreateKit(t, baseURL, 7, 1)
	mustTransition(t, baseURL, kitID, designs[0], "start")
	mustTransition(t, baseURL, kitID, designs[0], "advance")

	out := logs.String()
	require.Contains(t, out, "kit created")
	require.Contains(t, out, "kit_id="+kitID)
	require.Contains(t, out, "kit_number=7")
	require.Contains(t, out, "design transition applied")
	require.Contains(t, out, "celebrate=true")
}
