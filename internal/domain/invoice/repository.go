package invoice

import (
	"context"

	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain"
)

// Repository defines operations for invoices.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error

	// GetByOrder returns all invoices for an order (at most one per type).
	GetByOrder(ctx context.Context, orderID id.ID) ([]*Invoice, error)

	// GetByOrderAndType returns the invoice of the given type, or a
	// not-found error if none was issued yet.
	GetByOrderAndType(ctx context.Context, orderID id.ID, invType Type) (*Invoice, error)

	// ClaimConsolidationSync atomically rewrites the final invoice's
	// subtotal to newSubtotal if and only if the invoice is still
	// unpaid, has zero recorded payments, and its current subtotal is
	// within one cent of expectedSubtotal. Returns true when this call
	// performed the rewrite, false when another writer already did or
	// the guards no longer hold. Implemented as a single conditional
	// UPDATE so concurrent readers cannot double-apply the sync.
	ClaimConsolidationSync(ctx context.Context, orderID id.ID, expectedSubtotal, newSubtotal types.Money) (bool, error)

	// Locking
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	OrderID *id.ID
	Type    *Type
	Status  *Status
}
