package invoice

import (
	"context"
	"fmt"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/numerator"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/tx"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/order"
	"bottleworks/pkg/logger"
)

const (
	// EntityType is the audit entity type for invoices.
	EntityType = "Invoice"

	// NumberPrefix for generated invoice numbers (INV-2026-00001).
	NumberPrefix = "INV"
)

// Service provides business operations for invoices.
type Service struct {
	repo      Repository
	orders    order.Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     domain.AuditLogger
	events    domain.EventPublisher
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	orders order.Repository,
	gen numerator.Generator,
	txManager tx.Manager,
	audit domain.AuditLogger,
	events domain.EventPublisher,
) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		numerator: gen,
		txManager: txManager,
		audit:     audit,
		events:    events,
	}
}

// effectiveTotal is the amount billing works from: the consolidated
// total when add-ons have been folded in, otherwise the order subtotal.
func effectiveTotal(o *order.Order) types.Money {
	if o.ConsolidatedTotal != nil {
		return *o.ConsolidatedTotal
	}
	return o.Subtotal
}

// depositCredit returns the paid deposit amount to subtract from the
// final invoice, zero if no deposit was issued or it is unpaid.
func (s *Service) depositCredit(ctx context.Context, orderID id.ID) (types.Money, error) {
	dep, err := s.repo.GetByOrderAndType(ctx, orderID, TypeDeposit)
	if err != nil {
		if apperror.IsNotFound(err) {
			return types.Zero(), nil
		}
		return types.Zero(), err
	}
	if dep.Status == StatusVoid {
		return types.Zero(), nil
	}
	return dep.AmountPaid, nil
}

// IssueDeposit raises the deposit invoice for an order.
// An order has at most one deposit invoice.
func (s *Service) IssueDeposit(ctx context.Context, orderID id.ID) (*Invoice, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.DepositPercent.IsPositive() {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Order has no deposit terms").
			WithDetail("order_id", orderID.String())
	}

	if _, err := s.repo.GetByOrderAndType(ctx, orderID, TypeDeposit); err == nil {
		return nil, apperror.NewDuplicate("deposit invoice", "order", o.Number)
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	amount := types.Percent(effectiveTotal(o), o.DepositPercent)
	return s.issue(ctx, o, TypeDeposit, amount)
}

// IssueFinal raises the final invoice for an order: effective total
// minus the paid deposit. An order has at most one final invoice.
func (s *Service) IssueFinal(ctx context.Context, orderID id.ID) (*Invoice, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByOrderAndType(ctx, orderID, TypeFinal); err == nil {
		return nil, apperror.NewDuplicate("final invoice", "order", o.Number)
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	credit, err := s.depositCredit(ctx, orderID)
	if err != nil {
		return nil, err
	}

	amount := effectiveTotal(o).Sub(credit)
	if amount.IsNegative() {
		amount = types.Zero()
	}
	return s.issue(ctx, o, TypeFinal, amount)
}

func (s *Service) issue(ctx context.Context, o *order.Order, invType Type, amount types.Money) (*Invoice, error) {
	inv := New(o.ID, invType, amount)

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix), numerator.DefaultOptions(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	inv.Number = number

	if err := inv.Validate(ctx); err != nil {
		return nil, err
	}

	if actor := security.GetUserID(ctx); actor != "" {
		inv.CreatedBy = actor
		inv.UpdatedBy = actor
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		if err := s.audit.LogChange(ctx, EntityType, inv.ID, "issued", map[string]any{
			"after": inv.Snapshot(),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   inv.ID,
			EventType:     "invoice.issued",
			Payload: map[string]any{
				"number":       inv.Number,
				"order_number": o.Number,
				"type":         string(invType),
				"subtotal":     inv.Subtotal.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice issued",
		"id", inv.ID,
		"number", inv.Number,
		"type", invType,
		"subtotal", inv.Subtotal)

	return inv, nil
}

// GetByID retrieves an invoice.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return s.repo.GetByID(ctx, invoiceID)
}

// ListForOrder returns all invoices of an order after running
// consolidation sync, so callers always see totals that reflect
// already-consolidated add-ons.
func (s *Service) ListForOrder(ctx context.Context, orderID id.ID) ([]*Invoice, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.SyncConsolidatedTotal(ctx, o); err != nil {
		return nil, err
	}

	return s.repo.GetByOrder(ctx, orderID)
}

// SyncConsolidatedTotal rewrites the unpaid, payment-free final invoice
// of an order whose consolidated total has grown past its subtotal.
// The rewrite is a single conditional UPDATE, so concurrent callers
// apply it at most once; afterwards the invoice subtotal no longer
// matches the stale expected amount and repeat calls are no-ops.
// Returns true when this call performed the rewrite.
func (s *Service) SyncConsolidatedTotal(ctx context.Context, o *order.Order) (bool, error) {
	if o.ConsolidatedTotal == nil || !o.ConsolidatedTotal.GreaterThan(o.Subtotal) {
		return false, nil
	}

	credit, err := s.depositCredit(ctx, o.ID)
	if err != nil {
		return false, err
	}

	// The stale amount the final invoice would carry had it been
	// issued before consolidation.
	stale := o.Subtotal.Sub(credit)
	target := o.ConsolidatedTotal.Sub(credit)
	if target.IsNegative() {
		target = types.Zero()
	}

	var claimed bool
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		claimed, err = s.repo.ClaimConsolidationSync(ctx, o.ID, stale, target)
		if err != nil {
			return fmt.Errorf("claim consolidation sync: %w", err)
		}
		if !claimed {
			return nil
		}

		inv, err := s.repo.GetByOrderAndType(ctx, o.ID, TypeFinal)
		if err != nil {
			return err
		}

		if err := s.audit.LogChange(ctx, EntityType, inv.ID, "consolidation_synced", map[string]any{
			"before": map[string]any{"subtotal": stale.String()},
			"after":  inv.Snapshot(),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   inv.ID,
			EventType:     "invoice.consolidation_synced",
			Payload: map[string]any{
				"number":       inv.Number,
				"order_number": o.Number,
				"subtotal":     inv.Subtotal.String(),
			},
		})
	})
	if err != nil {
		return false, err
	}

	if claimed {
		logger.Info(ctx, "final invoice synced to consolidated total",
			"order_id", o.ID,
			"order_number", o.Number,
			"subtotal", target)
	}

	return claimed, nil
}

// RecordPayment applies a payment to an invoice.
// A fully paid deposit flips the order's deposit flag.
func (s *Service) RecordPayment(ctx context.Context, invoiceID id.ID, amount types.Money) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}

	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		if inv.Status == StatusVoid {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Cannot record payment against a void invoice").
				WithDetail("invoice", inv.Number)
		}
		if amount.GreaterThan(inv.Outstanding()) {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Payment exceeds outstanding amount").
				WithDetail("invoice", inv.Number).
				WithDetail("outstanding", inv.Outstanding().String()).
				WithDetail("amount", amount.String())
		}

		before := inv.Snapshot()
		inv.AmountPaid = inv.AmountPaid.Add(amount)
		inv.PaymentCount++
		if inv.Outstanding().IsZero() {
			inv.Status = StatusPaid
		} else {
			inv.Status = StatusPartiallyPaid
		}
		if actor := security.GetUserID(ctx); actor != "" {
			inv.UpdatedBy = actor
		}

		if err := s.repo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		if inv.Type == TypeDeposit && inv.Status == StatusPaid {
			o, err := s.orders.GetForUpdate(ctx, inv.OrderID)
			if err != nil {
				return err
			}
			if !o.DepositPaid {
				o.DepositPaid = true
				if err := s.orders.Update(ctx, o); err != nil {
					return fmt.Errorf("flag deposit paid: %w", err)
				}
			}
		}

		if err := s.audit.LogChange(ctx, EntityType, inv.ID, "payment_recorded", map[string]any{
			"before": before,
			"after":  inv.Snapshot(),
			"amount": amount.String(),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   inv.ID,
			EventType:     "invoice.payment_recorded",
			Payload: map[string]any{
				"number": inv.Number,
				"amount": amount.String(),
				"status": string(inv.Status),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment recorded",
		"id", inv.ID,
		"number", inv.Number,
		"amount", amount,
		"status", inv.Status)

	return inv, nil
}

// MarkPaid settles the full outstanding amount in one payment.
func (s *Service) MarkPaid(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusPaid {
		return inv, nil
	}
	return s.RecordPayment(ctx, invoiceID, inv.Outstanding())
}

// Void cancels an invoice that has no recorded payments. Admin action.
func (s *Service) Void(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	if err := security.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	var inv *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		if inv.PaymentCount > 0 {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Cannot void an invoice with recorded payments").
				WithDetail("invoice", inv.Number)
		}

		before := inv.Snapshot()
		inv.Status = StatusVoid
		if actor := security.GetUserID(ctx); actor != "" {
			inv.UpdatedBy = actor
		}

		if err := s.repo.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		return s.audit.LogChange(ctx, EntityType, inv.ID, "voided", map[string]any{
			"before": before,
			"after":  inv.Snapshot(),
		})
	})
	if err != nil {
		return nil, err
	}

	return inv, nil
}

// List retrieves invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}
