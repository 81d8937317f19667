// Package catalogapi exposes the role catalog and the analysis model state
// over HTTP.
package catalogapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/shared/server/respond"
)

// Catalog is the registry surface the handler needs.
type Catalog interface {
	Current() *catalog.Snapshot
	Refresh(ctx context.Context) (*catalog.Snapshot, error)
	Status() catalog.Status
}

// ModelStatuser reports the analysis model state.
type ModelStatuser interface {
	Status() engine.ModelStatus
}

// Handler serves roles, model status and catalog refresh.
type Handler struct {
	Catalog      Catalog
	Models       ModelStatuser
	// RefreshGuard, when set, runs before POST /catalog/refresh.
	RefreshGuard gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(cat Catalog, models ModelStatuser) *Handler {
	return &Handler{Catalog: cat, Models: models}
}

// RegisterRoutes attaches catalog routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/roles", h.listRoles)
	rg.GET("/model/status", h.modelStatus)
	rg.GET("/catalog/status", h.catalogStatus)
	refresh := []gin.HandlerFunc{h.refresh}
	if h.RefreshGuard != nil {
		refresh = append([]gin.HandlerFunc{h.RefreshGuard}, refresh...)
	}
	rg.POST("/catalog/refresh", refresh...)
}

func (h *Handler) listRoles(c *gin.Context) {
	roles := h.Catalog.Current().RoleSummaries()
	if roles == nil {
		roles = []catalog.RoleSummary{}
	}
	respond.OK(c, roles)
}

func (h *Handler) modelStatus(c *gin.Context) {
	st := h.Models.Status()
	resp := gin.H{
		"state":      st.State,
		"model_ver":  st.Version,
		"embedder":   st.Embedder,
		"dimensions": st.Dimensions,
		"catalog":    h.Catalog.Status(),
	}
	if st.Message != "" {
		resp["note"] = st.Message
	}
	if !st.LoadedAt.IsZero() {
		resp["loaded_at"] = st.LoadedAt
	}
	respond.OK(c, resp)
}

func (h *Handler) catalogStatus(c *gin.Context) {
	respond.OK(c, h.Catalog.Status())
}

func (h *Handler) refresh(c *gin.Context) {
	if _, err := h.Catalog.Refresh(c.Request.Context()); err != nil {
		respond.Error(c, http.StatusBadGateway, "catalog_refresh_failed", "catalog could not be reloaded; the previous catalog stays active", []map[string]string{
			{"field": "catalog", "issue": err.Error()},
		})
		return
	}
	respond.OK(c, h.Catalog.Status())
}
