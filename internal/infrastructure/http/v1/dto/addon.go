package dto

import (
	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/addon"
)

// CreateAddonRequest requests an add-on order against a parent.
type CreateAddonRequest struct {
	CustomerName string             `json:"customerName"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1"`
	Reason       string             `json:"reason"`

	// Override requests the admin bypass when the add-on window is closed
	Override     bool   `json:"override"`
	OverrideNote string `json:"overrideNote"`
}

// ToInput maps to the domain input for the given parent.
func (r CreateAddonRequest) ToInput(parentID id.ID) addon.CreateInput {
	input := addon.CreateInput{
		ParentOrderID: parentID,
		CustomerName:  r.CustomerName,
		Reason:        r.Reason,
		Override:      r.Override,
		OverrideNote:  r.OverrideNote,
	}
	for _, line := range r.Lines {
		input.Lines = append(input.Lines, addon.LineInput{
			SKUCode:     line.SKUCode,
			BatchPrefix: line.BatchPrefix,
			BottleQty:   line.BottleQty,
			UnitPrice:   line.UnitPrice,
		})
	}
	return input
}
