package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/censusview/internal/catalog"
	"github.com/sells-group/censusview/internal/census"
	"github.com/sells-group/censusview/internal/geostore"
	"github.com/sells-group/censusview/internal/viewer"
)

type paLister struct{}

func (paLister) ListStates(context.Context) ([]geostore.Area, error) {
	return []geostore.Area{{Name: "Pennsylvania", FIPS: "42"}}, nil
}

func (paLister) ListCounties(context.Context, string) ([]geostore.Area, error) {
	return []geostore.Area{
		{Name: "Allegheny County, Pennsylvania", FIPS: "003"},
		{Name: "Erie County, Pennsylvania", FIPS: "049"},
	}, nil
}

func testRouter(t *testing.T, upstream http.HandlerFunc) http.Handler {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "geos.db")
	require.NoError(t, geostore.Build(context.Background(), path, paLister{}))
	store, err := geostore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	cat, err := catalog.Parse([]byte(`[{
		"name": "Pct Non-White",
		"vars": ["B02001_001E", "B02001_002E"],
		"definition": "(B02001_001E - B02001_002E) / B02001_001E",
		"category": "Race"
	}]`))
	require.NoError(t, err)

	client := census.NewClient(census.ClientOptions{
		BaseURL: srv.URL, MaxAttempts: 1, RatePerSec: 1000,
	})
	v := viewer.New(cat, census.NewEngine(store, client, 4))
	return New(store, v).Router()
}

func okUpstream(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `[["NAME","B02001_001E","B02001_002E","state","county"],
		["Allegheny County, Pennsylvania","100","80","42","003"]]`)
}

func TestHealth(t *testing.T) {
	router := testRouter(t, okUpstream)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestStatesAndCounties(t *testing.T) {
	router := testRouter(t, okUpstream)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/states", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pennsylvania")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/states/Pennsylvania/counties", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Allegheny County")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/states/Atlantis/counties", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVariables(t *testing.T) {
	router := testRouter(t, okUpstream)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/variables", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pct Non-White")
}

func TestViewEndpoint(t *testing.T) {
	router := testRouter(t, okUpstream)

	body := `{"counties":[{"state":"Pennsylvania","county":"Allegheny County"}],"variable_ids":["0"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/view", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Columns    []string            `json:"columns"`
		Categories []string            `json:"categories"`
		Data       map[string][][]any  `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Column Name", "Allegheny County, Pennsylvania"}, resp.Columns)
	assert.Equal(t, []string{"Race"}, resp.Categories)
	require.Len(t, resp.Data["Race"], 1)
	assert.Equal(t, "Pct Non-White", resp.Data["Race"][0][0])
}

func TestViewEmptySelectionPlaceholder(t *testing.T) {
	router := testRouter(t, okUpstream)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/view",
		strings.NewReader(`{"counties":[],"variable_ids":["0"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No row data!")
	assert.Contains(t, rec.Body.String(), "No column data!")
}

func TestViewUpstreamFailure(t *testing.T) {
	router := testRouter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})

	body := `{"counties":[{"state":"Pennsylvania","county":"Allegheny County"}],"variable_ids":["0"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/view", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestViewExpressionFailure(t *testing.T) {
	// Upstream returns rows for a county whose required variable column is
	// entirely absent: the transform must surface it, not mask it.
	router := testRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[["NAME","B02001_001E","state","county"],
			["Allegheny County, Pennsylvania","100","42","003"]]`)
	})

	body := `{"counties":[{"state":"Pennsylvania","county":"Allegheny County"}],"variable_ids":["0"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/view", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "B02001_002E")
}

func TestExportCSV(t *testing.T) {
	router := testRouter(t, okUpstream)

	body := `{"counties":[{"state":"Pennsylvania","county":"Allegheny County"}],"variable_ids":["0"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export?format=csv", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "county,Pct Non-White"))
}

func TestExportXLSX(t *testing.T) {
	router := testRouter(t, okUpstream)

	body := `{"counties":[{"state":"Pennsylvania","county":"Allegheny County"}],"variable_ids":["0"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export?format=xlsx", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PK", rec.Body.String()[:2])
}

func TestExportBadRequest(t *testing.T) {
	router := testRouter(t, okUpstream)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export",
		strings.NewReader(`{"counties":[],"variable_ids":["0"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export?format=pdf",
		strings.NewReader(`{"counties":[{"state":"Pennsylvania","county":"Allegheny County"}]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
