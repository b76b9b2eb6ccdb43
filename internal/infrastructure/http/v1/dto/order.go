package dto

import (
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/order"
)

// OrderLineRequest is one SKU position on an order request.
type OrderLineRequest struct {
	SKUCode     string      `json:"skuCode" binding:"required"`
	BatchPrefix string      `json:"batchPrefix"`
	BottleQty   int         `json:"bottleQty" binding:"required,min=1"`
	UnitPrice   types.Money `json:"unitPrice"`
}

// CreateOrderRequest for creating sales orders.
type CreateOrderRequest struct {
	BrandID        string             `json:"brandId" binding:"required"`
	CustomerName   string             `json:"customerName" binding:"required"`
	DepositPercent types.Money        `json:"depositPercent"`
	RequiresLabels bool               `json:"requiresLabels"`
	Comment        string             `json:"comment"`
	Lines          []OrderLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity builds a draft order from the request.
func (r CreateOrderRequest) ToEntity() *order.Order {
	o := order.New(r.BrandID, r.CustomerName)
	o.DepositPercent = r.DepositPercent
	o.RequiresLabels = r.RequiresLabels
	o.Comment = r.Comment
	for _, line := range r.Lines {
		o.AddLine(line.SKUCode, line.BatchPrefix, line.BottleQty, line.UnitPrice)
	}
	return o
}

// UpdateOrderRequest for updating order header and lines.
// Only editable while the order has not entered production.
type UpdateOrderRequest struct {
	CustomerName   *string            `json:"customerName"`
	DepositPercent *types.Money       `json:"depositPercent"`
	RequiresLabels *bool              `json:"requiresLabels"`
	Comment        *string            `json:"comment"`
	Lines          []OrderLineRequest `json:"lines"`
	Version        int                `json:"version" binding:"required,min=1"`
}

// ApplyTo merges the request into an existing order.
func (r UpdateOrderRequest) ApplyTo(o *order.Order) {
	o.Version = r.Version
	if r.CustomerName != nil {
		o.CustomerName = *r.CustomerName
	}
	if r.DepositPercent != nil {
		o.DepositPercent = *r.DepositPercent
	}
	if r.RequiresLabels != nil {
		o.RequiresLabels = *r.RequiresLabels
	}
	if r.Comment != nil {
		o.Comment = *r.Comment
	}
	if r.Lines != nil {
		o.Lines = o.Lines[:0]
		for _, line := range r.Lines {
			o.AddLine(line.SKUCode, line.BatchPrefix, line.BottleQty, line.UnitPrice)
		}
	}
}

// ChangeStatusRequest moves an order along its lifecycle.
type ChangeStatusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}
