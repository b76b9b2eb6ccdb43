package dto

import (
	"bottleworks/internal/core/types"
)

// AddonMaxPercentResponse exposes the configured add-on size cap.
type AddonMaxPercentResponse struct {
	AddonMaxPercent types.Money `json:"addonMaxPercent"`
}

// SetAddonMaxPercentRequest updates the add-on size cap. Admin only.
type SetAddonMaxPercentRequest struct {
	AddonMaxPercent types.Money `json:"addonMaxPercent" binding:"required"`
}
