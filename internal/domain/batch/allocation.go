package batch

import (
	"strings"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/order"
)

// LineAllocation is the allocation state of one order line.
type LineAllocation struct {
	LineID    id.ID  `json:"lineId"`
	SKUCode   string `json:"skuCode"`
	BottleQty int    `json:"bottleQty"`

	// Allocated bottles, explicit plus inferred
	Allocated int `json:"allocated"`

	// Remaining = BottleQty - Allocated, never negative
	Remaining int `json:"remaining"`

	// Inferred marks allocations derived from batch-number prefix
	// matching instead of explicit batch items. Inferred totals are
	// capped at the line quantity.
	Inferred bool `json:"inferred"`

	// BatchNumbers contributing to this line's allocation
	BatchNumbers []string `json:"batchNumbers,omitempty"`
}

// AllocatedQuantities computes per-line allocations for an order.
//
// Explicit batch items are authoritative: a line with any explicit
// item gets the sum of its item quantities, uncapped, so genuine
// over-allocation stays visible in reports.
//
// Lines with no explicit items fall back to prefix inference for data
// predating item tracking: every untracked batch of the order whose
// number starts with the line's batch prefix contributes its planned
// quantity, capped at the line's bottle quantity. Batches that carry
// explicit items are fully accounted to their own lines and never feed
// inference. Inference never makes a line over-allocated.
//
// Callers pass the order's own batches and items; batches of other
// orders sharing a SKU prefix must not be included.
func AllocatedQuantities(lines []order.Line, items []Item, batches []*ProductionBatch) []LineAllocation {
	explicit := make(map[id.ID]int, len(lines))
	explicitBatches := make(map[id.ID][]id.ID, len(lines))
	tracked := make(map[id.ID]struct{}, len(items))
	for _, it := range items {
		explicit[it.LineID] += it.Qty
		explicitBatches[it.LineID] = append(explicitBatches[it.LineID], it.BatchID)
		tracked[it.BatchID] = struct{}{}
	}

	byID := make(map[id.ID]*ProductionBatch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}

	result := make([]LineAllocation, 0, len(lines))
	for _, line := range lines {
		alloc := LineAllocation{
			LineID:    line.LineID,
			SKUCode:   line.SKUCode,
			BottleQty: line.BottleQty,
		}

		if qty, ok := explicit[line.LineID]; ok {
			alloc.Allocated = qty
			for _, batchID := range explicitBatches[line.LineID] {
				if b, ok := byID[batchID]; ok {
					alloc.BatchNumbers = append(alloc.BatchNumbers, b.Number)
				}
			}
		} else {
			alloc.Inferred = true
			alloc.Allocated, alloc.BatchNumbers = inferAllocation(line, batches, tracked)
		}

		alloc.Remaining = line.BottleQty - alloc.Allocated
		if alloc.Remaining < 0 {
			alloc.Remaining = 0
		}
		result = append(result, alloc)
	}
	return result
}

// inferAllocation sums planned quantities of untracked batches whose
// number carries the line's batch prefix, capped at the line quantity.
func inferAllocation(line order.Line, batches []*ProductionBatch, tracked map[id.ID]struct{}) (int, []string) {
	prefix := line.BatchPrefix() + "-"

	total := 0
	var numbers []string
	for _, b := range batches {
		if b.Status == StatusCancelled {
			continue
		}
		if _, ok := tracked[b.ID]; ok {
			continue
		}
		if !strings.HasPrefix(b.Number, prefix) {
			continue
		}
		total += b.PlannedQty
		numbers = append(numbers, b.Number)
	}

	if total > line.BottleQty {
		total = line.BottleQty
	}
	return total, numbers
}
