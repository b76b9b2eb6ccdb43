package handlers

import (
	"github.com/gin-gonic/gin"

	"bottleworks/internal/domain/settings"
	"bottleworks/internal/infrastructure/http/v1/dto"
)

// SettingsHandler handles system settings endpoints.
type SettingsHandler struct {
	*BaseHandler
	service *settings.Service
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(base *BaseHandler, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetAddonMaxPercent handles GET /settings/addon-max-percent
func (h *SettingsHandler) GetAddonMaxPercent(c *gin.Context) {
	ctx := c.Request.Context()

	pct, err := h.service.AddonMaxPercent(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AddonMaxPercentResponse{AddonMaxPercent: pct})
}

// SetAddonMaxPercent handles PUT /settings/addon-max-percent (admin only).
func (h *SettingsHandler) SetAddonMaxPercent(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SetAddonMaxPercentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetAddonMaxPercent(ctx, req.AddonMaxPercent); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AddonMaxPercentResponse{AddonMaxPercent: req.AddonMaxPercent})
}

// RegisterRoutes registers settings routes.
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/addon-max-percent", h.GetAddonMaxPercent)
	rg.PUT("/addon-max-percent", h.SetAddonMaxPercent)
}
