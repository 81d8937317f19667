package servicecatalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVCanonicalisesHeaders(t *testing.T) {
	data := []byte("API Name,HTTP-Method,Endpoint,Description,Request Body,Labels\n" +
		"Analyze, post ,/api/v1/resumes,Upload a resume,\"{\"\"file\"\":\"\"binary\"\"}\",\"[\"\"analysis\"\"]\"\n" +
		"Roles,,/api/v1/roles,List roles,,core\n")

	services, err := Parse(data, ".csv")
	require.NoError(t, err)
	require.Len(t, services, 2)

	assert.Equal(t, "Analyze", services[0].ServiceName)
	assert.Equal(t, "POST", services[0].Method)
	assert.Equal(t, "/api/v1/resumes", services[0].Path)
	assert.Equal(t, "Upload a resume", services[0].Summary)
	assert.Equal(t, map[string]any{"file": "binary"}, services[0].RequestSchema)
	assert.Equal(t, []any{"analysis"}, services[0].Tags)
	assert.Nil(t, services[0].ResponseSchema)

	assert.Equal(t, "GET", services[1].Method)
	assert.Nil(t, services[1].RequestSchema)
	assert.Equal(t, "core", services[1].Tags)
}

func TestParseCSVFallsBackToFirstThreeColumns(t *testing.T) {
	data := []byte("a,b,c,d\nHealth,get,/health,ignored\n")
	services, err := Parse(data, ".csv")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, Service{ServiceName: "Health", Method: "GET", Path: "/health"}, services[0])
}

func TestParseCSVTooFewColumns(t *testing.T) {
	services, err := Parse([]byte("a,b\nx,y\n"), ".csv")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestParseDropsRowsWithoutNameOrPath(t *testing.T) {
	data := []byte("service_name,method,path\n,GET,/x\nNoPath,GET,  \nOk,GET,/ok\n")
	services, err := Parse(data, ".csv")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Ok", services[0].ServiceName)
}

func TestParseJSONAndYAML(t *testing.T) {
	jsonData := []byte(`[{"name":"Roles","verb":"get","route":"/api/v1/roles","version":1,"tags":["catalog"]}]`)
	services, err := Parse(jsonData, ".json")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Roles", services[0].ServiceName)
	assert.Equal(t, "GET", services[0].Method)
	assert.Equal(t, "1", services[0].Version)
	assert.Equal(t, []any{"catalog"}, services[0].Tags)

	yamlData := []byte(`
- service: Status
  method: GET
  path: /api/v1/model/status
  team: platform
  response: '{"state":"string"}'
`)
	services, err = Parse(yamlData, ".yaml")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "platform", services[0].Owner)
	assert.Equal(t, map[string]any{"state": "string"}, services[0].ResponseSchema)
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("x"), ".txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistryMissingFileIsEmpty(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "missing.csv"))
	services, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, services)

	services, err = NewRegistry("").List()
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestRegistryReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.csv")
	require.NoError(t, os.WriteFile(path, []byte("service_name,method,path\nA,GET,/a\n"), 0o644))

	reg := NewRegistry(path)
	services, err := reg.List()
	require.NoError(t, err)
	require.Len(t, services, 1)

	require.NoError(t, os.WriteFile(path, []byte("service_name,method,path\nA,GET,/a\nB,POST,/b\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	services, err = reg.List()
	require.NoError(t, err)
	assert.Len(t, services, 2)
}
