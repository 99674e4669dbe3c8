package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/simonjohansson/gemtracker/internal/server"
)

// jpegFixture carries the JPEG magic bytes, enough for content sniffing.
var jpegFixture = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

func newTestServer(t *testing.T) (dataDir string, sqlitePath string, httpServer *httptest.Server) {
	t.Helper()
	dataDir = t.TempDir()
	sqlitePath = filepath.Join(dataDir, "projection.db")
	app, err := server.New(server.Options{DataDir: dataDir, SQLitePath: sqlitePath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	httpServer = httptest.NewServer(app.Handler())
	t.Cleanup(httpServer.Close)
	return dataDir, sqlitePath, httpServer
}

func newHTTPTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	httpServer := httptest.NewServer(handler)
	t.Cleanup(httpServer.Close)
	return httpServer
}

func doJSON(t *testing.T, url, method string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func doRaw(t *testing.T, url, method, payload, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(payload))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeMap(t *testing.T, reader io.Reader) map[string]any {
	t.Helper()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	var out map[string]any
	err = json.Unmarshal(data, &out)
	require.NoError(t, err)
	return out
}

func readBody(t *testing.T, reader io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return data
}

// mustCreateKit creates a kit and returns its id and design ids in order.
func mustCreateKit(t *testing.T, baseURL string, number, designs int) (string, []string) {
	t.Helper()
	resp := doJSON(t, baseURL+"/kits", http.MethodPost, map[string]any{
		"number":      number,
		"designCount": designs,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	kit := decodeMap(t, resp.Body)["kit"].(map[string]any)

	ids := []string{}
	for _, raw := range kit["designs"].([]any) {
		ids = append(ids, raw.(map[string]any)["id"].(string))
	}
	return kit["id"].(string), ids
}

func designURL(baseURL, kitID, designID, action string) string {
	return baseURL + "/kits/" + kitID + "/designs/" + designID + "/" + action
}

func mustTransition(t *testing.T, baseURL, kitID, designID, action string) map[string]any {
	t.Helper()
	resp := doJSON(t, designURL(baseURL, kitID, designID, action), http.MethodPost, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeMap(t, resp.Body)
}

func designStatuses(t *testing.T, baseURL, kitID string) []string {
	t.Helper()
	resp := doJSON(t, baseURL+"/kits/"+kitID, http.MethodGet, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kit := decodeMap(t, resp.Body)["kit"].(map[string]any)

	out := []string{}
	for _, raw := range kit["designs"].([]any) {
		out = append(out, raw.(map[string]any)["status"].(string))
	}
	return out
}
