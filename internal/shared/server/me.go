package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/shared/server/middleware"
	"skillgap-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return
	}

	anonymous := middleware.IsAnonymous(c)
	response := gin.H{
		"userId":    userID,
		"anonymous": anonymous,
	}
	if !anonymous {
		response["guestId"] = strings.TrimPrefix(userID, "guest:")
	}
	respond.JSON(c, http.StatusOK, response)
}
