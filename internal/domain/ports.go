// Package domain provides core business logic interfaces and types.
package domain

import (
	"context"

	"bottleworks/internal/core/id"
)

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search performs substring search on searchable fields (number, customer)
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// IncludeDeleted includes soft-deleted records
	IncludeDeleted bool

	// OrderBy specifies sorting (e.g., "number", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-created_at",
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- External collaborator ports ---

// AuditLogger is the append-only audit sink. Every state-changing
// operation records one entry with before/after snapshots.
// The PostgreSQL implementation lives in infrastructure/storage/postgres.
type AuditLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// DomainEvent represents an event published to the transactional outbox.
// The relay worker forwards it to notification dispatch (email/SMS).
type DomainEvent struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher writes domain events to the outbox.
// MUST be called inside a transaction context so the event commits
// atomically with the state change that produced it.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// NopAudit is an AuditLogger that discards entries. For tests.
type NopAudit struct{}

func (NopAudit) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	return nil
}

// NopPublisher is an EventPublisher that discards events. For tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event DomainEvent) error {
	return nil
}
