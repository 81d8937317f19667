package servicecatalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/shared/server/respond"
	"skillgap-backend/internal/shared/telemetry"
)

// Handler exposes the service catalog.
type Handler struct {
	Registry *Registry
}

// NewHandler constructs a Handler.
func NewHandler(reg *Registry) *Handler {
	return &Handler{Registry: reg}
}

// RegisterRoutes attaches service catalog routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/services", h.list)
	rg.GET("/services/ping", h.ping)
}

func (h *Handler) list(c *gin.Context) {
	services, err := h.Registry.List()
	if err != nil {
		telemetry.Error("services.load_failed", map[string]any{"path": h.Registry.Path, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load service catalog", nil)
		return
	}
	respond.OK(c, services)
}

func (h *Handler) ping(c *gin.Context) {
	respond.OK(c, gin.H{"ok": true})
}
