package batch

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
	"bottleworks/internal/domain/order"
	"bottleworks/pkg/logger"
)

// EntityType is the audit entity type for production batches.
const EntityType = "ProductionBatch"

// Service provides business operations for production batches.
type Service struct {
	repo      Repository
	orders    order.Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     domain.AuditLogger
	events    domain.EventPublisher
}

// NewService creates a new batch service.
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

// PlanInput requests batches against one order line.
type PlanInput struct {
	LineID id.ID `json:"lineId"`

	// Quantities, one per batch to create
	Quantities []int `json:"quantities"`

	// PlannedStart schedules the created batches. Optional.
	PlannedStart *time.Time `json:"plannedStart,omitempty"`
}

// PlanBatches creates production batches allocated to the order's
// lines. Every quantity is validated against the line's remaining
// unallocated quantity before anything is written; batches, items,
// workflow steps, audit and event commit in one transaction.
func (s *Service) PlanBatches(ctx context.Context, orderID id.ID, plans []PlanInput) ([]*ProductionBatch, error) {
	if len(plans) == 0 {
		return nil, apperror.NewValidation("at least one plan entry is required").
			WithDetail("field", "plans")
	}
	for _, p := range plans {
		if len(p.Quantities) == 0 {
			return nil, apperror.NewValidation("at least one batch quantity is required").
				WithDetail("line_id", p.LineID.String())
		}
		for _, q := range p.Quantities {
			if q <= 0 {
				return nil, apperror.NewValidation("batch quantity must be positive").
					WithDetail("line_id", p.LineID.String()).
					WithDetail("qty", q)
			}
		}
	}

	var created []*ProductionBatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := planningAllowed(o); err != nil {
			return err
		}

		lines, err := s.orders.GetLines(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		lineByID := make(map[id.ID]order.Line, len(lines))
		for _, l := range lines {
			lineByID[l.LineID] = l
		}

		allocations, err := s.lineAllocations(ctx, lines)
		if err != nil {
			return err
		}
		remaining := make(map[id.ID]int, len(allocations))
		for _, a := range allocations {
			remaining[a.LineID] = a.Remaining
		}

		// Validate every entry against remaining before writing.
		for _, p := range plans {
			line, ok := lineByID[p.LineID]
			if !ok {
				return apperror.NewNotFound("order line", p.LineID)
			}
			requested := 0
			for _, q := range p.Quantities {
				requested += q
			}
			if requested > remaining[line.LineID] {
				return apperror.NewOverAllocation(line.LineID.String(), requested, remaining[line.LineID])
			}
		}

		actor := security.GetUserID(ctx)
		for _, p := range plans {
			line := lineByID[p.LineID]
			for _, qty := range p.Quantities {
				b := New(orderID, line.BatchPrefix(), line.SKUCode, qty, o.RequiresLabels)
				b.PlannedStart = p.PlannedStart
				b.AddItem(line.LineID, qty)
				if actor != "" {
					b.CreatedBy = actor
					b.UpdatedBy = actor
				}

				number, err := s.numerator.GetNextNumber(ctx,
					numerator.BatchConfig(b.SKUPrefix), numerator.DefaultOptions(), time.Now())
				if err != nil {
					return fmt.Errorf("generate batch number: %w", err)
				}
				b.Number = number

				if err := b.Validate(ctx); err != nil {
					return err
				}
				if err := s.createBatch(ctx, b); err != nil {
					return err
				}
				created = append(created, b)
			}
		}

		numbers := make([]string, 0, len(created))
		for _, b := range created {
			numbers = append(numbers, b.Number)
		}
		if err := s.audit.LogChange(ctx, order.EntityType, orderID, "batches_planned", map[string]any{
			"order_number": o.Number,
			"batches":      numbers,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: order.EntityType,
			AggregateID:   orderID,
			EventType:     "batch.planned",
			Payload: map[string]any{
				"order_number": o.Number,
				"batches":      numbers,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batches planned",
		"order_id", orderID,
		"count", len(created))

	return created, nil
}

// QuickPlan creates one batch per line covering its full remaining
// unallocated quantity. Fully allocated lines are skipped.
func (s *Service) QuickPlan(ctx context.Context, orderID id.ID) ([]*ProductionBatch, error) {
	lines, err := s.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	allocations, err := s.lineAllocations(ctx, lines)
	if err != nil {
		return nil, err
	}

	var plans []PlanInput
	for _, a := range allocations {
		if a.Remaining > 0 {
			plans = append(plans, PlanInput{
				LineID:     a.LineID,
				Quantities: []int{a.Remaining},
			})
		}
	}
	if len(plans) == 0 {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Order is already fully allocated").
			WithDetail("order_id", orderID.String())
	}

	return s.PlanBatches(ctx, orderID, plans)
}

func (s *Service) createBatch(ctx context.Context, b *ProductionBatch) error {
	if err := s.repo.Create(ctx, b); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	if err := s.repo.SaveItems(ctx, b.ID, b.Items); err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	if err := s.repo.SaveSteps(ctx, b.ID, b.Steps); err != nil {
		return fmt.Errorf("save steps: %w", err)
	}
	return nil
}

// planningAllowed gates batch planning on the order lifecycle: the
// order must have entered the production queue and not be finished.
func planningAllowed(o *order.Order) error {
	if o.Status.IsTerminal() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Cannot plan batches for a finished order").
			WithDetail("order", o.Number).
			WithDetail("status", string(o.Status))
	}
	if o.Status.PipelinePosition() < order.StatusInQueue.PipelinePosition() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Order has not entered the production queue yet").
			WithDetail("order", o.Number).
			WithDetail("status", string(o.Status))
	}
	return nil
}

// lineAllocations gathers the order's explicit items and batches and
// computes the allocation state of the given lines. Only the order's
// own batches participate; other orders sharing a SKU prefix never
// consume this order's plannable quantity.
func (s *Service) lineAllocations(ctx context.Context, lines []order.Line) ([]LineAllocation, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	orderID := lines[0].OrderID
	items, err := s.repo.GetItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get batch items: %w", err)
	}

	batches, err := s.repo.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get batches: %w", err)
	}

	return AllocatedQuantities(lines, items, batches), nil
}

// Report is the allocation report for one order.
type Report struct {
	OrderID        id.ID            `json:"orderId"`
	OrderNumber    string           `json:"orderNumber"`
	Lines          []LineAllocation `json:"lines"`
	FullyAllocated bool             `json:"fullyAllocated"`
}

// AllocationReport computes the per-line allocation state of an order.
func (s *Service) AllocationReport(ctx context.Context, orderID id.ID) (*Report, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	lines, err := s.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	allocations, err := s.lineAllocations(ctx, lines)
	if err != nil {
		return nil, err
	}

	report := &Report{
		OrderID:        orderID,
		OrderNumber:    o.Number,
		Lines:          allocations,
		FullyAllocated: true,
	}
	for _, a := range allocations {
		if a.Remaining > 0 {
			report.FullyAllocated = false
			break
		}
	}
	return report, nil
}

// Split replaces a planned batch with several smaller ones whose
// quantities sum to the original's planned quantity. Item allocations
// are carved from the original's items in order, so line linkage is
// preserved. The original batch is removed; all changes commit in one
// transaction.
func (s *Service) Split(ctx context.Context, batchID id.ID, quantities []int) ([]*ProductionBatch, error) {
	if len(quantities) < 2 {
		return nil, apperror.NewValidation("split requires at least two quantities").
			WithDetail("field", "quantities")
	}
	total := 0
	for _, q := range quantities {
		if q <= 0 {
			return nil, apperror.NewValidation("split quantity must be positive").
				WithDetail("qty", q)
		}
		total += q
	}

	var created []*ProductionBatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		original, err := s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if original.Status != StatusPlanned {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Only planned batches can be split").
				WithDetail("batch", original.Number).
				WithDetail("status", string(original.Status))
		}
		if total != original.PlannedQty {
			return apperror.NewValidation("split quantities must sum to the planned quantity").
				WithDetail("batch", original.Number).
				WithDetail("planned", original.PlannedQty).
				WithDetail("sum", total)
		}

		items, err := s.repo.GetItems(ctx, batchID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		steps, err := s.repo.GetSteps(ctx, batchID)
		if err != nil {
			return fmt.Errorf("get steps: %w", err)
		}
		hasLabel := false
		for _, st := range steps {
			if st.Kind == StepLabel {
				hasLabel = true
				break
			}
		}

		actor := security.GetUserID(ctx)
		carve := items
		for _, qty := range quantities {
			b := New(original.OrderID, original.SKUPrefix, original.SKUCode, qty, hasLabel)
			b.PlannedStart = original.PlannedStart
			b.Comment = fmt.Sprintf("split from %s", original.Number)
			if actor != "" {
				b.CreatedBy = actor
				b.UpdatedBy = actor
			}

			// Carve allocations from the original's items in order.
			need := qty
			for need > 0 && len(carve) > 0 {
				it := carve[0]
				take := it.Qty
				if take > need {
					take = need
				}
				b.AddItem(it.LineID, take)
				need -= take
				if take == it.Qty {
					carve = carve[1:]
				} else {
					carve[0].Qty -= take
				}
			}

			number, err := s.numerator.GetNextNumber(ctx,
				numerator.BatchConfig(b.SKUPrefix), numerator.DefaultOptions(), time.Now())
			if err != nil {
				return fmt.Errorf("generate batch number: %w", err)
			}
			b.Number = number

			if err := b.Validate(ctx); err != nil {
				return err
			}
			if err := s.createBatch(ctx, b); err != nil {
				return err
			}
			created = append(created, b)
		}

		if err := s.repo.Delete(ctx, batchID); err != nil {
			return fmt.Errorf("remove original: %w", err)
		}

		numbers := make([]string, 0, len(created))
		for _, b := range created {
			numbers = append(numbers, b.Number)
		}
		if err := s.audit.LogChange(ctx, EntityType, batchID, "split", map[string]any{
			"before": original.Snapshot(),
			"into":   numbers,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   batchID,
			EventType:     "batch.split",
			Payload: map[string]any{
				"number": original.Number,
				"into":   numbers,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch split",
		"batch_id", batchID,
		"into", len(created))

	return created, nil
}

// Merge folds several planned batches of the same SKU prefix into the
// target batch. Source item allocations are re-pointed to the target,
// collapsing duplicates per order line, so no allocation is lost.
// Source batches are removed; all changes commit in one transaction.
func (s *Service) Merge(ctx context.Context, targetID id.ID, sourceIDs []id.ID) (*ProductionBatch, error) {
	if len(sourceIDs) == 0 {
		return nil, apperror.NewValidation("at least one source batch is required").
			WithDetail("field", "sourceIds")
	}
	for _, sid := range sourceIDs {
		if sid == targetID {
			return nil, apperror.NewValidation("target batch cannot be its own source").
				WithDetail("batch_id", sid.String())
		}
	}

	var target *ProductionBatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		target, err = s.repo.GetForUpdate(ctx, targetID)
		if err != nil {
			return err
		}
		if target.Status != StatusPlanned {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Only planned batches can be merged").
				WithDetail("batch", target.Number).
				WithDetail("status", string(target.Status))
		}

		items, err := s.repo.GetItems(ctx, targetID)
		if err != nil {
			return fmt.Errorf("get target items: %w", err)
		}
		target.Items = items
		before := target.Snapshot()

		itemIdx := make(map[id.ID]int, len(items))
		for i, it := range target.Items {
			itemIdx[it.LineID] = i
		}

		var merged []string
		for _, sourceID := range sourceIDs {
			src, err := s.repo.GetForUpdate(ctx, sourceID)
			if err != nil {
				return err
			}
			if src.Status != StatusPlanned {
				return apperror.NewBusinessRule(apperror.CodeBusinessRule,
					"Only planned batches can be merged").
					WithDetail("batch", src.Number).
					WithDetail("status", string(src.Status))
			}
			if src.SKUPrefix != target.SKUPrefix {
				return apperror.NewBusinessRule(apperror.CodeBusinessRule,
					"Batches of different SKUs cannot be merged").
					WithDetail("target", target.Number).
					WithDetail("source", src.Number)
			}
			if src.OrderID != target.OrderID {
				return apperror.NewBusinessRule(apperror.CodeBusinessRule,
					"Batches of different orders cannot be merged").
					WithDetail("target", target.Number).
					WithDetail("source", src.Number)
			}

			srcItems, err := s.repo.GetItems(ctx, sourceID)
			if err != nil {
				return fmt.Errorf("get source items: %w", err)
			}
			for _, it := range srcItems {
				if i, ok := itemIdx[it.LineID]; ok {
					target.Items[i].Qty += it.Qty
				} else {
					target.AddItem(it.LineID, it.Qty)
					itemIdx[it.LineID] = len(target.Items) - 1
				}
			}
			target.PlannedQty += src.PlannedQty

			if err := s.repo.Delete(ctx, sourceID); err != nil {
				return fmt.Errorf("remove source: %w", err)
			}
			merged = append(merged, src.Number)
		}

		if actor := security.GetUserID(ctx); actor != "" {
			target.UpdatedBy = actor
		}
		if err := target.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, target); err != nil {
			return fmt.Errorf("update target: %w", err)
		}
		if err := s.repo.SaveItems(ctx, targetID, target.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}

		if err := s.audit.LogChange(ctx, EntityType, targetID, "merged", map[string]any{
			"before": before,
			"after":  target.Snapshot(),
			"from":   merged,
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   targetID,
			EventType:     "batch.merged",
			Payload: map[string]any{
				"number": target.Number,
				"from":   merged,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batches merged",
		"target_id", targetID,
		"sources", len(sourceIDs))

	return target, nil
}

// CompleteStep marks the next pending workflow step done. Steps
// complete strictly in sequence; finishing the first step moves the
// batch to in_progress, finishing the last completes it.
func (s *Service) CompleteStep(ctx context.Context, batchID id.ID, kind StepKind) (*ProductionBatch, error) {
	var b *ProductionBatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status == StatusCancelled {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Batch is cancelled").
				WithDetail("batch", b.Number)
		}

		b.Steps, err = s.repo.GetSteps(ctx, batchID)
		if err != nil {
			return fmt.Errorf("get steps: %w", err)
		}

		next := b.NextStep()
		if next == nil {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Batch workflow is already complete").
				WithDetail("batch", b.Number)
		}
		if next.Kind != kind {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				fmt.Sprintf("Workflow step %s is not next; expected %s", kind, next.Kind)).
				WithDetail("batch", b.Number).
				WithDetail("expected", string(next.Kind)).
				WithDetail("got", string(kind))
		}

		now := time.Now().UTC()
		next.Status = StepDone
		next.CompletedAt = &now
		next.CompletedBy = security.GetUserID(ctx)

		before := b.Snapshot()
		if b.NextStep() == nil {
			b.Status = StatusCompleted
		} else {
			b.Status = StatusInProgress
		}
		if actor := security.GetUserID(ctx); actor != "" {
			b.UpdatedBy = actor
		}

		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
		if err := s.repo.SaveSteps(ctx, batchID, b.Steps); err != nil {
			return fmt.Errorf("save steps: %w", err)
		}

		if err := s.audit.LogChange(ctx, EntityType, batchID, "step_completed", map[string]any{
			"before": before,
			"after":  b.Snapshot(),
			"step":   string(kind),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: EntityType,
			AggregateID:   batchID,
			EventType:     "batch.step_completed",
			Payload: map[string]any{
				"number": b.Number,
				"step":   string(kind),
				"status": string(b.Status),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch step completed",
		"batch_id", batchID,
		"number", b.Number,
		"step", kind,
		"status", b.Status)

	return b, nil
}

// RecordOutput records the good and scrap bottle counts of a batch
// that has been run. The batch must have started its workflow.
func (s *Service) RecordOutput(ctx context.Context, batchID id.ID, goodQty, scrapQty int) (*ProductionBatch, error) {
	if goodQty < 0 || scrapQty < 0 {
		return nil, apperror.NewValidation("output quantities cannot be negative").
			WithDetail("good", goodQty).
			WithDetail("scrap", scrapQty)
	}

	var b *ProductionBatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status != StatusInProgress && b.Status != StatusCompleted {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Output can only be recorded for a batch in progress or completed").
				WithDetail("batch", b.Number).
				WithDetail("status", string(b.Status))
		}

		before := b.Snapshot()
		b.GoodQty = goodQty
		b.ScrapQty = scrapQty
		if actor := security.GetUserID(ctx); actor != "" {
			b.UpdatedBy = actor
		}

		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		return s.audit.LogChange(ctx, EntityType, batchID, "output_recorded", map[string]any{
			"before": before,
			"after":  b.Snapshot(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch output recorded",
		"batch_id", batchID,
		"number", b.Number,
		"good", goodQty,
		"scrap", scrapQty)

	return b, nil
}

// Cancel cancels a planned batch, freeing its allocations.
func (s *Service) Cancel(ctx context.Context, batchID id.ID) (*ProductionBatch, error) {
	var b *ProductionBatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status != StatusPlanned {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"Only planned batches can be cancelled").
				WithDetail("batch", b.Number).
				WithDetail("status", string(b.Status))
		}

		before := b.Snapshot()
		b.Status = StatusCancelled
		if actor := security.GetUserID(ctx); actor != "" {
			b.UpdatedBy = actor
		}

		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}
		if err := s.repo.SaveItems(ctx, batchID, nil); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}

		return s.audit.LogChange(ctx, EntityType, batchID, "cancelled", map[string]any{
			"before": before,
			"after":  b.Snapshot(),
		})
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// BackfillAllocations materializes inferred prefix-based allocations
// of an order as explicit batch items. After backfill the order's
// lines no longer depend on number matching. Idempotent: lines that
// already have explicit items are skipped.
func (s *Service) BackfillAllocations(ctx context.Context, orderID id.ID) (int, error) {
	if err := security.RequireAdmin(ctx); err != nil {
		return 0, err
	}

	createdItems := 0
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		lines, err := s.orders.GetLines(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		items, err := s.repo.GetItemsByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get batch items: %w", err)
		}
		explicit := make(map[id.ID]struct{}, len(items))
		for _, it := range items {
			explicit[it.LineID] = struct{}{}
		}

		for _, line := range lines {
			if _, ok := explicit[line.LineID]; ok {
				continue
			}

			matched, err := s.repo.GetByPrefix(ctx, orderID, line.BatchPrefix())
			if err != nil {
				return fmt.Errorf("get batches by prefix: %w", err)
			}

			remaining := line.BottleQty
			for _, b := range matched {
				if remaining == 0 {
					break
				}
				if b.Status == StatusCancelled {
					continue
				}

				batchItems, err := s.repo.GetItems(ctx, b.ID)
				if err != nil {
					return fmt.Errorf("get items: %w", err)
				}
				free := b.PlannedQty
				for _, it := range batchItems {
					free -= it.Qty
				}
				if free <= 0 {
					continue
				}

				take := free
				if take > remaining {
					take = remaining
				}
				batchItems = append(batchItems, Item{
					ItemID:   id.New(),
					BatchID:  b.ID,
					OrderID:  orderID,
					LineID:   line.LineID,
					Qty:      take,
					Inferred: true,
				})
				if err := s.repo.SaveItems(ctx, b.ID, batchItems); err != nil {
					return fmt.Errorf("save items: %w", err)
				}
				remaining -= take
				createdItems++
			}
		}

		if createdItems == 0 {
			return nil
		}
		return s.audit.LogChange(ctx, order.EntityType, orderID, "allocations_backfilled", map[string]any{
			"order_number": o.Number,
			"items":        createdItems,
		})
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "allocations backfilled",
		"order_id", orderID,
		"items", createdItems)

	return createdItems, nil
}

// GetByID retrieves a batch with items and steps.
func (s *Service) GetByID(ctx context.Context, batchID id.ID) (*ProductionBatch, error) {
	b, err := s.repo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	b.Items, err = s.repo.GetItems(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	b.Steps, err = s.repo.GetSteps(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get steps: %w", err)
	}
	return b, nil
}

// List retrieves batches with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*ProductionBatch], error) {
	return s.repo.List(ctx, filter)
}
