// Package order provides the sales order service.
package order

import (
	"context"
	"fmt"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/numerator"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/tx"
	"bottleworks/internal/domain"
	"bottleworks/pkg/logger"
)

const (
	// EntityType is the audit entity type for orders.
	EntityType = "SalesOrder"

	// NumberPrefix for generated order numbers (SO-2026-00001).
	NumberPrefix = "SO"
)

// Service provides business operations for sales orders.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     domain.AuditLogger
	events    domain.EventPublisher
}

// NewService creates a new order service.
func NewService(
	repo Repository,
	gen numerator.Generator,
	txManager tx.Manager,
	audit domain.AuditLogger,
	events domain.EventPublisher,
) *Service {
	return &Service{
		repo:      repo,
		numerator: gen,
		txManager: txManager,
		audit:     audit,
		events:    events,
	}
}

// Create creates a new sales order with its lines (quote time).
func (s *Service) Create(ctx context.Context, o *Order) error {
	o.RecalculateSubtotal()

	if err := o.Validate(ctx); err != nil {
		return err
	}

	// Generate number if empty
	if o.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, numerator.DefaultOptions(), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		o.Number = number
	}

	if actor := security.GetUserID(ctx); actor != "" {
		o.CreatedBy = actor
		o.UpdatedBy = actor
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := s.repo.SaveLines(ctx, o.ID, o.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if err := s.audit.LogChange(ctx, EntityType, o.ID, "created", map[string]any{
			"after": o.Snapshot(),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   o.ID,
			EventType:     "order.created",
			Payload:       map[string]any{"number": o.Number, "brand_id": o.BrandID},
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order created",
		"id", o.ID,
		"number", o.Number)

	return nil
}

// GetByID retrieves an order with lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	o.Lines = lines

	return o, nil
}

// Update updates an editable order (draft/awaiting_approval/quoted).
func (s *Service) Update(ctx context.Context, o *Order) error {
	if err := o.CanModify(); err != nil {
		return err
	}

	o.RecalculateSubtotal()

	if err := o.Validate(ctx); err != nil {
		return err
	}

	if actor := security.GetUserID(ctx); actor != "" {
		o.UpdatedBy = actor
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if err := s.repo.SaveLines(ctx, o.ID, o.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return s.audit.LogChange(ctx, EntityType, o.ID, "updated", map[string]any{
			"after": o.Snapshot(),
		})
	})
}

// ChangeStatus moves an order along its lifecycle.
// Invalid transitions are rejected; the change, audit entry and
// notification event commit atomically.
func (s *Service) ChangeStatus(ctx context.Context, orderID id.ID, to Status) (*Order, error) {
	if !to.IsValid() {
		return nil, apperror.NewValidation("unknown order status").
			WithDetail("status", string(to))
	}

	var o *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		from := o.Status
		if !CanTransition(from, to) {
			return apperror.NewInvalidTransition(string(from), string(to))
		}

		before := o.Snapshot()
		o.Status = to
		if actor := security.GetUserID(ctx); actor != "" {
			o.UpdatedBy = actor
		}

		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if err := s.audit.LogChange(ctx, EntityType, o.ID, "status_changed", map[string]any{
			"before": before,
			"after":  o.Snapshot(),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   o.ID,
			EventType:     "order.status_changed",
			Payload: map[string]any{
				"number": o.Number,
				"from":   string(from),
				"to":     string(to),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order status changed",
		"id", o.ID,
		"number", o.Number,
		"status", o.Status)

	return o, nil
}

// Delete soft-deletes an order. Admin action only.
func (s *Service) Delete(ctx context.Context, orderID id.ID) error {
	if err := security.RequireAdmin(ctx); err != nil {
		return err
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, orderID); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, EntityType, o.ID, "deleted", map[string]any{
			"before": o.Snapshot(),
		})
	})
}

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}
