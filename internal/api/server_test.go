package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/database"
	"github.com/reelvault/reelvault/internal/library/manager"
	"github.com/reelvault/reelvault/internal/library/scanner"
	"github.com/reelvault/reelvault/internal/library/sorter"
	"github.com/reelvault/reelvault/internal/library/store"
	libsync "github.com/reelvault/reelvault/internal/library/sync"
	"github.com/reelvault/reelvault/internal/metadata"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	st := store.New(db.Conn(), log)
	sc := scanner.New(st, log)
	so := sorter.New(log)
	resolver := metadata.NewResolver(map[metadata.Source]metadata.Catalog{}, log)
	sy := libsync.New(st, resolver, nil, log)
	lib := manager.New(t.TempDir(), st, sc, so, sy, log)

	return NewServer(config.Default(), lib, resolver, log)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

func TestLibraryStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/library/status", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status manager.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.False(t, status.Busy)
}

func TestScanEndpointReturnsInventory(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/library/scan", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var inv scanner.Inventory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.Empty(t, inv.Shows)
	require.Empty(t, inv.Movies)
}

func TestMetadataSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metadata/shows", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetadataSearchWithoutCatalogs(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metadata/shows?query=alien", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSetProgressValidation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/library/progress", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
