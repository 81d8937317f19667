package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"skillgap-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Auth(false), Logging())
	router.GET("/analyses/:id", func(c *gin.Context) {
		c.Set("analysisId", "analysis-1")
		c.Set("roleId", "DA")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/analyses/analysis-1", nil)
	req.Header.Set("X-Guest-Id", "guest1")
	req.Header.Set("X-Request-Id", "req-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()

	for _, key := range []string{"request_id", "user_id", "analysis_id", "duration_ms", "status", "route"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "guest:guest1", fields["user_id"])
	assert.Equal(t, "analysis-1", fields["analysis_id"])
	assert.Equal(t, "DA", fields["role_id"])
	assert.Equal(t, "/analyses/:id", fields["route"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestLoggingSkipsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(Logging())
	router.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Zero(t, logs.Len())
}
