// Package order provides the sales order repository contract.
package order

import (
	"context"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain"
)

// Repository defines operations for sales orders.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, orderID id.ID) error

	// Line operations
	GetLines(ctx context.Context, orderID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, orderID id.ID, lines []Line) error

	// Add-on relationships
	GetAddonOrders(ctx context.Context, parentID id.ID) ([]*Order, error)

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)

	// Locking
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
}

// ListFilter for filtering sales orders.
type ListFilter struct {
	domain.ListFilter

	// Order-specific filters
	BrandID       *string
	Status        *Status
	ParentOrderID *id.ID
	AddonsOnly    bool
}
