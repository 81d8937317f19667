package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
)

type failingStore struct{}

func (failingStore) Name() string { return "failing" }

func (failingStore) Load(ctx context.Context) (*catalog.Snapshot, error) {
	return nil, errors.New("bucket unreachable")
}

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.NewSnapshot(catalog.Document{
		Version: "v-test",
		Skills: []catalog.Skill{
			{ID: "python", Name: "Python"},
			{ID: "react", Name: "React"},
		},
		Roles: []catalog.Role{
			{ID: "FE", Title: "Frontend Engineer", Required: []string{"react"}},
			{ID: "DA", Title: "Data Analyst", Required: []string{"python"}},
		},
	})
	require.NoError(t, err)
	return snap
}

func setupRouter(t *testing.T, reg *catalog.Registry, models ModelStatuser) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(reg, models).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestListRolesSortedByTitle(t *testing.T) {
	reg := catalog.NewRegistry(catalog.StaticStore{Snapshot: testSnapshot(t)}, nil)
	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)
	router := setupRouter(t, reg, engine.NewModelProvider(engine.ModelConfig{Embedder: "hashed", Dimensions: 16}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[{"role_id":"DA","title":"Data Analyst"},{"role_id":"FE","title":"Frontend Engineer"}]`, resp.Body.String())
}

func TestListRolesEmptyCatalog(t *testing.T) {
	router := setupRouter(t, catalog.NewRegistry(nil, nil), engine.NewModelProvider(engine.ModelConfig{}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestModelStatusBeforeLoad(t *testing.T) {
	router := setupRouter(t, catalog.NewRegistry(nil, nil), engine.NewModelProvider(engine.ModelConfig{}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/model/status", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "not_loaded", body["state"])
	assert.Contains(t, body, "catalog")
}

func TestRefreshFailureKeepsPreviousCatalog(t *testing.T) {
	reg := catalog.NewRegistry(failingStore{}, nil)
	router := setupRouter(t, reg, engine.NewModelProvider(engine.ModelConfig{}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/refresh", nil))

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "catalog_refresh_failed")
	assert.Equal(t, "bucket unreachable", reg.Status().LastError)
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	reg := catalog.NewRegistry(catalog.StaticStore{Snapshot: testSnapshot(t)}, nil)
	router := setupRouter(t, reg, engine.NewModelProvider(engine.ModelConfig{}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/refresh", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var st catalog.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &st))
	assert.Equal(t, "v-test", st.Version)
	assert.Equal(t, 2, st.Roles)
	assert.Equal(t, "static", st.Source)
}
