package batch

import (
	"context"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain"
)

// Repository defines operations for production batches.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, b *ProductionBatch) error
	GetByID(ctx context.Context, batchID id.ID) (*ProductionBatch, error)
	GetByNumber(ctx context.Context, number string) (*ProductionBatch, error)
	Update(ctx context.Context, b *ProductionBatch) error
	Delete(ctx context.Context, batchID id.ID) error

	// Item operations
	GetItems(ctx context.Context, batchID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, batchID id.ID, items []Item) error

	// GetItemsByOrder returns every batch item allocated to any line
	// of the given order.
	GetItemsByOrder(ctx context.Context, orderID id.ID) ([]Item, error)

	// Step operations
	GetSteps(ctx context.Context, batchID id.ID) ([]WorkflowStep, error)
	SaveSteps(ctx context.Context, batchID id.ID, steps []WorkflowStep) error

	// GetByOrder returns the order's batches, including legacy ones
	// that carry no explicit items.
	GetByOrder(ctx context.Context, orderID id.ID) ([]*ProductionBatch, error)

	// GetByPrefix returns the order's batches whose number starts with
	// prefix + "-". Used by the allocation backfill for pre-tracking
	// data.
	GetByPrefix(ctx context.Context, orderID id.ID, prefix string) ([]*ProductionBatch, error)

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*ProductionBatch], error)

	// Locking
	GetForUpdate(ctx context.Context, batchID id.ID) (*ProductionBatch, error)
}

// ListFilter for filtering production batches.
type ListFilter struct {
	domain.ListFilter

	SKUPrefix *string
	Status    *Status
	OrderID   *id.ID
}
