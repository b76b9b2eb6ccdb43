package addon

import (
	"context"

	"bottleworks/internal/core/id"
)

// Repository defines operations for add-on link records.
type Repository interface {
	Create(ctx context.Context, link *Link) error
	GetByID(ctx context.Context, linkID id.ID) (*Link, error)

	// GetByAddonOrder returns the link for an add-on order
	// (at most one per add-on order).
	GetByAddonOrder(ctx context.Context, addonOrderID id.ID) (*Link, error)

	// ListByParent returns all links for a parent order.
	ListByParent(ctx context.Context, parentID id.ID) ([]*Link, error)

	Delete(ctx context.Context, linkID id.ID) error
}
