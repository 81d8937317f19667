package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	isGuestKey   = "isGuest"
	anonymousKey = "isAnonymous"

	// AnonymousUserID owns analyses submitted without a guest header.
	AnonymousUserID = "anonymous"
)

var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Auth resolves the caller identity from the X-Guest-Id header. Without the
// header the caller is anonymous, or rejected when requireIdentity is set.
func Auth(requireIdentity bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			if requireIdentity {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
				return
			}
			c.Set(userIDKey, AnonymousUserID)
			c.Set(isGuestKey, true)
			c.Set(anonymousKey, true)
			c.Next()
			return
		}
		if !guestIDPattern.MatchString(guestID) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid X-Guest-Id", nil)
			return
		}

		c.Set(userIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Set(anonymousKey, false)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IsAnonymous reports whether the caller sent no identity.
func IsAnonymous(c *gin.Context) bool {
	if c == nil {
		return true
	}
	val, ok := c.Get(anonymousKey)
	if !ok {
		return UserIDFromContext(c) == ""
	}
	anon, _ := val.(bool)
	return anon
}
