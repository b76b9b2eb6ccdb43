// Package batch implements the production batch tracker: planning
// batches against order lines, split/merge of planned batches, the
// bottling workflow steps, and allocation reporting.
package batch

import (
	"context"
	"strings"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/entity"
	"bottleworks/internal/core/id"
)

// Status of a production batch.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// StepKind identifies one stage of the bottling workflow.
type StepKind string

const (
	StepProduce   StepKind = "produce"
	StepBottleCap StepKind = "bottle_cap"
	StepLabel     StepKind = "label"
	StepPack      StepKind = "pack"
)

// StepStatus of one workflow step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepDone    StepStatus = "done"
)

// StepsFor returns the workflow for a batch. The labeling step is
// present only when the order requires labels.
func StepsFor(requiresLabels bool) []StepKind {
	if requiresLabels {
		return []StepKind{StepProduce, StepBottleCap, StepLabel, StepPack}
	}
	return []StepKind{StepProduce, StepBottleCap, StepPack}
}

// ProductionBatch is one bottling run of a single SKU, belonging to
// exactly one order. Its number encodes the SKU prefix and the
// planning month, e.g. GTB-2511-001.
type ProductionBatch struct {
	entity.BaseDocument

	// Number is the human-readable batch UID (auto-generated)
	Number string `db:"number" json:"number"`

	// OrderID is the owning order. Allocation and inference never look
	// past the order's own batches.
	OrderID id.ID `db:"order_id" json:"orderId"`

	// SKUPrefix is the batch-number prefix this batch was planned under
	SKUPrefix string `db:"sku_prefix" json:"skuPrefix"`

	SKUCode string `db:"sku_code" json:"skuCode"`

	// PlannedQty is the bottle count this batch will produce
	PlannedQty int `db:"planned_qty" json:"plannedQty"`

	// PlannedStart is the optional scheduled production start.
	PlannedStart *time.Time `db:"planned_start" json:"plannedStart,omitempty"`

	// GoodQty and ScrapQty record the actual output once the batch has
	// been run. Zero until production reports them.
	GoodQty  int `db:"good_qty" json:"goodQty"`
	ScrapQty int `db:"scrap_qty" json:"scrapQty"`

	Status Status `db:"status" json:"status"`

	Comment string `db:"comment" json:"comment,omitempty"`

	// Table parts
	Items []Item         `db:"-" json:"items"`
	Steps []WorkflowStep `db:"-" json:"steps"`
}

// Item allocates part of a batch's quantity to one order line.
type Item struct {
	ItemID  id.ID `db:"item_id" json:"itemId"`
	BatchID id.ID `db:"batch_id" json:"batchId"`
	OrderID id.ID `db:"order_id" json:"orderId"`
	LineID  id.ID `db:"line_id" json:"lineId"`
	Qty     int   `db:"qty" json:"qty"`

	// Inferred marks allocations materialized from prefix matching
	// rather than explicit planning.
	Inferred bool `db:"inferred" json:"inferred"`
}

// WorkflowStep is one stage of a batch's bottling workflow.
type WorkflowStep struct {
	StepID  id.ID      `db:"step_id" json:"stepId"`
	BatchID id.ID      `db:"batch_id" json:"batchId"`
	Seq     int        `db:"seq" json:"seq"`
	Kind    StepKind   `db:"kind" json:"kind"`
	Status  StepStatus `db:"status" json:"status"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CompletedBy string     `db:"completed_by" json:"completedBy,omitempty"`
}

// New creates a planned batch for an order with its workflow steps.
func New(orderID id.ID, skuPrefix, skuCode string, plannedQty int, requiresLabels bool) *ProductionBatch {
	b := &ProductionBatch{
		BaseDocument: entity.NewBaseDocument(),
		OrderID:      orderID,
		SKUPrefix:    skuPrefix,
		SKUCode:      skuCode,
		PlannedQty:   plannedQty,
		Status:       StatusPlanned,
	}
	for i, kind := range StepsFor(requiresLabels) {
		b.Steps = append(b.Steps, WorkflowStep{
			StepID:  id.New(),
			BatchID: b.ID,
			Seq:     i + 1,
			Kind:    kind,
			Status:  StepPending,
		})
	}
	return b
}

// AddItem allocates qty bottles of this batch to a line of its order.
func (b *ProductionBatch) AddItem(lineID id.ID, qty int) {
	b.Items = append(b.Items, Item{
		ItemID:  id.New(),
		BatchID: b.ID,
		OrderID: b.OrderID,
		LineID:  lineID,
		Qty:     qty,
	})
}

// AllocatedQty is the sum of item quantities.
func (b *ProductionBatch) AllocatedQty() int {
	total := 0
	for _, it := range b.Items {
		total += it.Qty
	}
	return total
}

// NextStep returns the first pending step, or nil when the workflow
// is complete.
func (b *ProductionBatch) NextStep() *WorkflowStep {
	for i := range b.Steps {
		if b.Steps[i].Status == StepPending {
			return &b.Steps[i]
		}
	}
	return nil
}

// Validate implements entity.Validatable.
func (b *ProductionBatch) Validate(ctx context.Context) error {
	if id.IsNil(b.OrderID) {
		return apperror.NewValidation("order is required").
			WithDetail("field", "orderId")
	}
	if strings.TrimSpace(b.SKUPrefix) == "" {
		return apperror.NewValidation("sku prefix is required").
			WithDetail("field", "skuPrefix")
	}
	if b.PlannedQty <= 0 {
		return apperror.NewValidation("planned quantity must be positive").
			WithDetail("field", "plannedQty").
			WithDetail("qty", b.PlannedQty)
	}
	if b.AllocatedQty() > b.PlannedQty {
		return apperror.NewValidation("allocated quantity exceeds planned quantity").
			WithDetail("planned", b.PlannedQty).
			WithDetail("allocated", b.AllocatedQty())
	}
	if b.GoodQty < 0 || b.ScrapQty < 0 {
		return apperror.NewValidation("output quantities cannot be negative").
			WithDetail("good", b.GoodQty).
			WithDetail("scrap", b.ScrapQty)
	}
	return nil
}

// Snapshot returns the auditable state of the batch header.
func (b *ProductionBatch) Snapshot() map[string]any {
	return map[string]any{
		"number":      b.Number,
		"order_id":    b.OrderID.String(),
		"sku_prefix":  b.SKUPrefix,
		"sku_code":    b.SKUCode,
		"planned_qty": b.PlannedQty,
		"good_qty":    b.GoodQty,
		"scrap_qty":   b.ScrapQty,
		"status":      string(b.Status),
		"version":     b.Version,
	}
}
