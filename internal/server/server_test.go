package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/azfs/internal/blobstore/memstore"
	"github.com/nimbusfs/azfs/internal/fsys/blob"
)

func testHandler(t *testing.T) (http.Handler, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.Seed("data", "raw/a.csv", []byte("aaaa"))
	store.Seed("data", "raw/sub/c.csv", []byte("cc"))
	store.Seed("data", "top.txt", []byte("hello"))
	fs := blob.New(store, nil)
	return New(nil, fs, nil).Handler(), store
}

func doRequest(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEntries(t *testing.T, rec *httptest.ResponseRecorder) []entryJSON {
	t.Helper()
	var entries []entryJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	return entries
}

func TestGetContainers(t *testing.T) {
	h, _ := testHandler(t)
	rec := doRequest(t, h, http.MethodGet, "/containers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decodeEntries(t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "data/", entries[0].Name)
	assert.Equal(t, "directory", entries[0].Type)
}

func TestGetLs(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/ls?path=data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeEntries(t, rec)
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Name
	}
	assert.ElementsMatch(t, []string{"data/raw/", "data/top.txt"}, got)

	// Name-only form.
	rec = doRequest(t, h, http.MethodGet, "/ls?path=data&detail=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.ElementsMatch(t, []string{"data/raw/", "data/top.txt"}, names)
}

func TestLsErrors(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/ls", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/ls?path=data/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
}

func TestGetFind(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/find?path=data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeEntries(t, rec)
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Name
	}
	assert.Equal(t, []string{"data/raw/a.csv", "data/raw/sub/c.csv", "data/top.txt"}, got)

	rec = doRequest(t, h, http.MethodGet, "/find?path=data&maxdepth=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries = decodeEntries(t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "data/top.txt", entries[0].Name)

	rec = doRequest(t, h, http.MethodGet, "/find?path=data&maxdepth=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGlob(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/glob?pattern=data/raw/*.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paths []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paths))
	assert.Equal(t, []string{"data/raw/a.csv"}, paths)

	// Zero matches is success with an empty list.
	rec = doRequest(t, h, http.MethodGet, "/glob?pattern=data/*.parquet", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paths))
	assert.Empty(t, paths)

	rec = doRequest(t, h, http.MethodGet, "/glob", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/files?path=data/top.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "5", rec.Header().Get("Content-Length"))

	rec = doRequest(t, h, http.MethodGet, "/files?path=data/ghost.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadThenDownload(t *testing.T) {
	h, _ := testHandler(t)
	payload := []byte(strings.Repeat("payload ", 100))

	rec := doRequest(t, h, http.MethodPut, "/files?path=data/up.bin", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "data/up.bin", resp["path"])
	assert.Equal(t, float64(len(payload)), resp["size"])

	rec = doRequest(t, h, http.MethodGet, "/files?path=data/up.bin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestDelete(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodDelete, "/files?path=data/top.txt", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/files?path=data/top.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting a missing file is silent.
	rec = doRequest(t, h, http.MethodDelete, "/files?path=data/top.txt", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
