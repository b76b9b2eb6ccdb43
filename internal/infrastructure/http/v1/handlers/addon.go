package handlers

import (
	"github.com/gin-gonic/gin"

	"bottleworks/internal/domain/addon"
	"bottleworks/internal/infrastructure/http/v1/dto"
)

// AddonHandler handles add-on consolidation endpoints. All routes hang
// off the parent order: /orders/:id/addons/...
type AddonHandler struct {
	*BaseHandler
	service *addon.Service
}

// NewAddonHandler creates a new add-on handler.
func NewAddonHandler(base *BaseHandler, service *addon.Service) *AddonHandler {
	return &AddonHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders/:id/addons
func (h *AddonHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	parentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateAddonRequest
	if !h.BindJSON(c, &req) {
		return
	}

	child, err := h.service.Create(ctx, req.ToInput(parentID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, child)
}

// CheckWindow handles GET /orders/:id/addons/window
func (h *AddonHandler) CheckWindow(c *gin.Context) {
	ctx := c.Request.Context()

	parentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	status, err := h.service.CheckWindow(ctx, parentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, status)
}

// GetConsolidation handles GET /orders/:id/consolidation
func (h *AddonHandler) GetConsolidation(c *gin.Context) {
	ctx := c.Request.Context()

	parentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	view, err := h.service.GetConsolidation(ctx, parentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, view)
}

// Recalculate handles POST /orders/:id/consolidation/recalculate
func (h *AddonHandler) Recalculate(c *gin.Context) {
	ctx := c.Request.Context()

	parentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	parent, err := h.service.Recalculate(ctx, parentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, parent)
}

// RegisterRoutes registers add-on routes on the orders group.
func (h *AddonHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/addons", h.Create)
	rg.GET("/:id/addons/window", h.CheckWindow)
	rg.GET("/:id/consolidation", h.GetConsolidation)
	rg.POST("/:id/consolidation/recalculate", h.Recalculate)
}
