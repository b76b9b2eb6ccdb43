// Package order provides the sales order aggregate: quoting, the
// fulfillment lifecycle, and order lines consumed by batch planning.
package order

import (
	"context"
	"strings"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/entity"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// Order represents a sales order (quote through shipment).
// An add-on order carries ParentOrderID referencing its parent.
type Order struct {
	entity.BaseDocument

	// Number is the human-readable UID (auto-generated, e.g. SO-2026-00042)
	Number string `db:"number" json:"number"`

	// BrandID is the owning brand (multi-brand support)
	BrandID string `db:"brand_id" json:"brandId"`

	CustomerName string `db:"customer_name" json:"customerName"`

	Status Status `db:"status" json:"status"`

	// Subtotal is the sum of line subtotals for THIS order only
	Subtotal types.Money `db:"subtotal" json:"subtotal"`

	// ConsolidatedTotal is subtotal + all linked add-on subtotals.
	// Nil until the first add-on is consolidated onto the order.
	ConsolidatedTotal *types.Money `db:"consolidated_total" json:"consolidatedTotal,omitempty"`

	// Deposit terms
	DepositPercent types.Money `db:"deposit_percent" json:"depositPercent"`
	DepositPaid    bool        `db:"deposit_paid" json:"depositPaid"`

	// ParentOrderID is set iff this order is an add-on
	ParentOrderID *id.ID `db:"parent_order_id" json:"parentOrderId,omitempty"`

	// RequiresLabels controls whether batches get a labeling workflow step
	RequiresLabels bool `db:"requires_labels" json:"requiresLabels"`

	Comment string `db:"comment" json:"comment,omitempty"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// Line is one SKU position on an order.
type Line struct {
	LineID  id.ID `db:"line_id" json:"lineId"`
	OrderID id.ID `db:"order_id" json:"orderId"`
	LineNo  int   `db:"line_no" json:"lineNo"`

	// SKUCode identifies the product (allocation-matching key)
	SKUCode string `db:"sku_code" json:"skuCode"`

	// SKUBatchPrefix is the batch-number prefix for this SKU.
	// Falls back to SKUCode when empty.
	SKUBatchPrefix string `db:"sku_batch_prefix" json:"skuBatchPrefix,omitempty"`

	BottleQty int         `db:"bottle_qty" json:"bottleQty"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Subtotal  types.Money `db:"subtotal" json:"subtotal"`
}

// BatchPrefix returns the batch-number prefix for this line's SKU.
func (l Line) BatchPrefix() string {
	if p := strings.TrimSpace(l.SKUBatchPrefix); p != "" {
		return p
	}
	return l.SKUCode
}

// New creates a new draft order.
func New(brandID, customerName string) *Order {
	return &Order{
		BaseDocument: entity.NewBaseDocument(),
		BrandID:      brandID,
		CustomerName: customerName,
		Status:       StatusDraft,
		Subtotal:     types.Zero(),
		Lines:        make([]Line, 0),
	}
}

// IsAddon reports whether this order is an add-on to a parent order.
func (o *Order) IsAddon() bool {
	return o.ParentOrderID != nil && !id.IsNil(*o.ParentOrderID)
}

// AddLine appends a line and recalculates the order subtotal.
func (o *Order) AddLine(skuCode, batchPrefix string, bottleQty int, unitPrice types.Money) {
	line := Line{
		LineID:         id.New(),
		OrderID:        o.ID,
		LineNo:         len(o.Lines) + 1,
		SKUCode:        skuCode,
		SKUBatchPrefix: batchPrefix,
		BottleQty:      bottleQty,
		UnitPrice:      unitPrice,
		Subtotal:       unitPrice.Mul(types.NewMoney(float64(bottleQty))),
	}
	o.Lines = append(o.Lines, line)
	o.RecalculateSubtotal()
}

// RecalculateSubtotal updates the order subtotal from lines.
func (o *Order) RecalculateSubtotal() {
	total := types.Zero()
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal)
	}
	o.Subtotal = total
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if o.BrandID == "" {
		return apperror.NewValidation("brand is required").
			WithDetail("field", "brandId")
	}

	if strings.TrimSpace(o.CustomerName) == "" {
		return apperror.NewValidation("customer name is required").
			WithDetail("field", "customerName")
	}

	if !o.Status.IsValid() {
		return apperror.NewValidation("unknown order status").
			WithDetail("field", "status").
			WithDetail("status", string(o.Status))
	}

	if len(o.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range o.Lines {
		if strings.TrimSpace(line.SKUCode) == "" {
			return apperror.NewValidation("sku code is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.BottleQty <= 0 {
			return apperror.NewValidation("bottle quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// CanModify checks whether order header/lines may still be edited.
// Once production starts, orders change only via status transitions
// and the add-on flow.
func (o *Order) CanModify() error {
	switch o.Status {
	case StatusDraft, StatusAwaitingApproval, StatusQuoted:
		return nil
	}
	return apperror.NewBusinessRule(
		apperror.CodeBusinessRule,
		"Order can no longer be edited directly; use status transitions or add-ons",
	).WithDetail("order_id", o.ID.String()).WithDetail("status", string(o.Status))
}

// Snapshot returns the auditable state of the order header.
func (o *Order) Snapshot() map[string]any {
	snap := map[string]any{
		"number":   o.Number,
		"status":   string(o.Status),
		"subtotal": o.Subtotal.String(),
		"version":  o.Version,
	}
	if o.ConsolidatedTotal != nil {
		snap["consolidated_total"] = o.ConsolidatedTotal.String()
	}
	if o.ParentOrderID != nil {
		snap["parent_order_id"] = o.ParentOrderID.String()
	}
	return snap
}
