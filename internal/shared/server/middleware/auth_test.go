package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func identityRouter(requireIdentity bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(requireIdentity))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "anonymous": IsAnonymous(c)})
	})
	router.OPTIONS("/whoami", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := identityRouter(true)

	req := httptest.NewRequest(http.MethodOptions, "/whoami", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestAuthIdentity(t *testing.T) {
	cases := []struct {
		name     string
		require  bool
		guestID  string
		wantCode int
		wantBody string
	}{
		{name: "guest header", guestID: "abc-123", wantCode: http.StatusOK, wantBody: `{"anonymous":false,"userId":"guest:abc-123"}`},
		{name: "anonymous allowed", wantCode: http.StatusOK, wantBody: `{"anonymous":true,"userId":"anonymous"}`},
		{name: "anonymous rejected", require: true, wantCode: http.StatusUnauthorized},
		{name: "malformed guest id", guestID: "bad id!", wantCode: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := identityRouter(tc.require)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.guestID != "" {
				req.Header.Set("X-Guest-Id", tc.guestID)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, tc.wantCode, resp.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, resp.Body.String())
			}
		})
	}
}
