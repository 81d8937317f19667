package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/shared/server/respond"
)

// AdminToken guards operator endpoints with a static bearer token. An empty
// token disables the guarded routes.
func AdminToken(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			respond.Error(c, http.StatusForbidden, "admin_disabled", "operator endpoints are disabled", nil)
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid admin token", nil)
			return
		}
		c.Next()
	}
}
