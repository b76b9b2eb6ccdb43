// Package invoice covers deposit and final invoices raised against
// sales orders, payment recording, and the legacy consolidated-total
// synchronization for unpaid final invoices.
package invoice

import (
	"context"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/entity"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

// Type distinguishes the two invoices an order may carry.
type Type string

const (
	// TypeDeposit is issued at quote acceptance for the deposit amount.
	TypeDeposit Type = "deposit"

	// TypeFinal is issued before shipment for the remaining balance.
	TypeFinal Type = "final"
)

// IsValid reports whether t is a known invoice type.
func (t Type) IsValid() bool {
	return t == TypeDeposit || t == TypeFinal
}

// Status of an invoice.
type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusVoid          Status = "void"
)

// Invoice is a billing document tied to one sales order.
// An order has at most one deposit and one final invoice.
type Invoice struct {
	entity.BaseDocument

	// Number is the human-readable UID (auto-generated, e.g. INV-2026-00042)
	Number string `db:"number" json:"number"`

	OrderID id.ID `db:"order_id" json:"orderId"`

	Type   Type   `db:"type" json:"type"`
	Status Status `db:"status" json:"status"`

	// Subtotal is the invoiced amount before tax. For a final invoice
	// this tracks the order's consolidated total (minus deposit) and is
	// rewritten by consolidation sync while the invoice is untouched by
	// payments.
	Subtotal types.Money `db:"subtotal" json:"subtotal"`

	Tax types.Money `db:"tax" json:"tax"`

	// Total is what the customer owes: subtotal plus tax. Kept stored
	// so payment checks never depend on recomputing it.
	Total types.Money `db:"total" json:"total"`

	// AmountPaid accumulates recorded payments.
	AmountPaid types.Money `db:"amount_paid" json:"amountPaid"`

	// PaymentCount guards consolidation sync: a final invoice with any
	// recorded payment is never rewritten automatically.
	PaymentCount int `db:"payment_count" json:"paymentCount"`

	IssuedAt time.Time  `db:"issued_at" json:"issuedAt"`
	DueAt    *time.Time `db:"due_at" json:"dueAt,omitempty"`

	Comment string `db:"comment" json:"comment,omitempty"`
}

// New creates an unpaid invoice for an order.
func New(orderID id.ID, invType Type, subtotal types.Money) *Invoice {
	return &Invoice{
		BaseDocument: entity.NewBaseDocument(),
		OrderID:      orderID,
		Type:         invType,
		Status:       StatusUnpaid,
		Subtotal:     subtotal,
		Tax:          types.Zero(),
		Total:        subtotal,
		AmountPaid:   types.Zero(),
		IssuedAt:     time.Now().UTC(),
	}
}

// Outstanding returns the unpaid remainder.
func (inv *Invoice) Outstanding() types.Money {
	return inv.Total.Sub(inv.AmountPaid)
}

// SyncEligible reports whether consolidation sync may rewrite this
// invoice: it must be an unpaid final invoice with zero payments.
func (inv *Invoice) SyncEligible() bool {
	return inv.Type == TypeFinal &&
		inv.Status == StatusUnpaid &&
		inv.PaymentCount == 0
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if id.IsNil(inv.OrderID) {
		return apperror.NewValidation("order is required").
			WithDetail("field", "orderId")
	}
	if !inv.Type.IsValid() {
		return apperror.NewValidation("unknown invoice type").
			WithDetail("field", "type").
			WithDetail("type", string(inv.Type))
	}
	if inv.Subtotal.IsNegative() {
		return apperror.NewValidation("invoice subtotal cannot be negative").
			WithDetail("field", "subtotal")
	}
	if inv.Tax.IsNegative() {
		return apperror.NewValidation("invoice tax cannot be negative").
			WithDetail("field", "tax")
	}
	if !inv.Total.Equal(inv.Subtotal.Add(inv.Tax)) {
		return apperror.NewValidation("invoice total must equal subtotal plus tax").
			WithDetail("field", "total")
	}
	return nil
}

// Snapshot returns the auditable state of the invoice.
func (inv *Invoice) Snapshot() map[string]any {
	return map[string]any{
		"number":        inv.Number,
		"order_id":      inv.OrderID.String(),
		"type":          string(inv.Type),
		"status":        string(inv.Status),
		"subtotal":      inv.Subtotal.String(),
		"tax":           inv.Tax.String(),
		"total":         inv.Total.String(),
		"amount_paid":   inv.AmountPaid.String(),
		"payment_count": inv.PaymentCount,
		"version":       inv.Version,
	}
}
