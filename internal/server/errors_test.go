package server_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKitAndDesignErrorPaths(t *testing.T) {
	t.Parallel()

	_, _, httpServer := newTestServer(t)

	badJSON := doRaw(t, httpServer.URL+"/kits", http.MethodPost, "{", "application/json")
	require.Equal(t, http.StatusBadRequest, badJSON.StatusCode)
	require.Contains(t, string(readBody(t, badJSON.Body)), "unexpected end of JSON input")

	negative := doJSON(t, httpServer.URL+"/kits", http.MethodPost, map[string]any{"number": 1, "designCount": -1})
	require.Equal(t, http.StatusUnprocessableEntity, negative.StatusCode)

	missingKit := doJSON(t, httpServer.URL+"/kits/missing", http.MethodGet, nil)
	require.Equal(t, http.StatusNotFound, missingKit.StatusCode)

	kitID, designs := mustCreateKit(t, httpServer.URL, 1, 2)

	missingDesign := doJSON(t, designURL(httpServer.URL, kitID, "missing", "start"), http.MethodPost, nil)
	require.Equal(t, http.StatusNotFound, missingDesign.StatusCode)

	advanceIdle := doJSON(t, designURL(httpServer.URL, kitID, designs[0], "advance"), http.MethodPost, nil)
	require.Equal(t, http.StatusConflict, advanceIdle.StatusCode)

	uncompleteIdle := doJSON(t, designURL(httpServer.URL, kitID, designs[0], "uncomplete"), http.MethodPost, nil)
	require.Equal(t, http.StatusConflict, uncompleteIdle.StatusCode)

	mustTransition(t, httpServer.URL, kitID, designs[0], "start")
	mustTransition(t, httpServer.URL, kitID, designs[0], "advance")
	mustTransition(t, httpServer.URL, kitID, designs[1], "start")
	mustTransition(t, httpServer.URL, kitID, designs[1], "advance")

	restart := doJSON(t, designURL(httpServer.URL, kitID, designs[0], "start"), http.MethodPost, nil)
	require.Equal(t, http.StatusConflict, restart.StatusCode)

	shrink := doJSON(t, httpServer.URL+"/kits/"+kitID, http.MethodPatch, map[string]any{"designCount": 1})
	require.Equal(t, http.StatusUnprocessableEntity, shrink.StatusCode)
	require.Len(t, designStatuses(t, httpServer.URL, kitID), 2)

	badBucket := doJSON(t, httpServer.URL+"/kits/summaries?bucket=bogus", http.MethodGet, nil)
	require.Equal(t, http.StatusUnprocessableEntity, badBucket.StatusCode)

	missingPick := doJSON(t, httpServer.URL+"/picks/missing", http.MethodDelete, nil)
	require.Equal(t, http.StatusNotFound, missingPick.StatusCode)

	emptyPhoto := doRaw(t, httpServer.URL+"/kits/"+kitID+"/designs/"+designs[0]+"/photo", http.MethodPut, "", "image/jpeg")
	require.Equal(t, http.StatusBadRequest, emptyPhoto.StatusCode)

	missingPhotoKit := doRaw(t, httpServer.URL+"/kits/missing/designs/x/photo", http.MethodPut, string(jpegFixture), "image/jpeg")
	require.Equal(t, http.StatusNotFound, missingPhotoKit.StatusCode)
}

func TestServerHandlesCorruptKitDocument(t *testing.T) {
	t.Parallel()

	dataDir, _, httpServer := newTestServer(t)
	kitID, _ := mustCreateKit(t, httpServer.URL, 1, 1)

	kitPath := filepath.Join(dataDir, "kits", kitID+".md")
	require.NoError(t, os.WriteFile(kitPath, []byte("not-frontmatter"), 0o644))

	list := doJSON(t, httpServer.URL+"/kits", http.MethodGet, nil)
	require.Equal(t, http.StatusInternalServerError, list.StatusCode)

	rebuild := doJSON(t, httpServer.URL+"/admin/rebuild", http.MethodPost, nil)
	require.Equal(t, http.StatusInternalServerError, rebuild.StatusCode)

	pick := doJSON(t, httpServer.URL+"/picks", http.MethodPost, nil)
	require.Equal(t, http.StatusInternalServerError, pick.StatusCode)
}

func TestUnusableIDsAreNotFound(t *testing.T) {
	t.Parallel()

	_, _, httpServer := newTestServer(t)
	base := httpServer.URL

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/kits/no.such", nil},
		{http.MethodPatch, "/kits/no.such", map[string]any{"name": "x"}},
		{http.MethodDelete, "/kits/no.such", nil},
		{http.MethodDelete, "/kits/no.such/designs/d1/photo", nil},
		{http.MethodDelete, "/picks/no.such", nil},
	}
	for _, tc := range cases {
		resp := doJSON(t, base+tc.path, tc.method, tc.body)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", tc.method, tc.path)
	}

	photo := doRaw(t, base+"/kits/no.such/designs/d1/photo", http.MethodPut, string(jpegFixture), "image/jpeg")
	require.Equal(t, http.StatusNotFound, photo.StatusCode)
}
