package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/order"
)

func testLine(sku, prefix string, qty int) order.Line {
	return order.Line{
		LineID:         id.New(),
		OrderID:        id.New(),
		SKUCode:        sku,
		SKUBatchPrefix: prefix,
		BottleQty:      qty,
	}
}

func TestAllocatedQuantities_Explicit(t *testing.T) {
	line := testLine("GT-750", "GTB", 100)

	b := New(line.OrderID, "GTB", "GT-750", 40, false)
	b.Number = "GTB-2608-001"
	b.AddItem(line.LineID, 40)

	allocs := AllocatedQuantities([]order.Line{line}, b.Items, []*ProductionBatch{b})
	require.Len(t, allocs, 1)

	a := allocs[0]
	assert.Equal(t, 40, a.Allocated)
	assert.Equal(t, 60, a.Remaining)
	assert.False(t, a.Inferred)
	assert.Equal(t, []string{"GTB-2608-001"}, a.BatchNumbers)
}

func TestAllocatedQuantities_ExplicitOverAllocationStaysVisible(t *testing.T) {
	line := testLine("GT-750", "GTB", 100)

	b1 := New(line.OrderID, "GTB", "GT-750", 80, false)
	b1.AddItem(line.LineID, 80)
	b2 := New(line.OrderID, "GTB", "GT-750", 50, false)
	b2.AddItem(line.LineID, 50)

	items := append(append([]Item{}, b1.Items...), b2.Items...)
	allocs := AllocatedQuantities([]order.Line{line}, items, []*ProductionBatch{b1, b2})
	require.Len(t, allocs, 1)

	// Explicit totals are not capped; remaining bottoms out at zero.
	assert.Equal(t, 130, allocs[0].Allocated)
	assert.Equal(t, 0, allocs[0].Remaining)
	assert.False(t, allocs[0].Inferred)
}

func TestAllocatedQuantities_InferredCappedAtLineQty(t *testing.T) {
	line := testLine("GT-750", "GTB", 100)

	b1 := New(line.OrderID, "GTB", "GT-750", 90, false)
	b1.Number = "GTB-2608-001"
	b2 := New(line.OrderID, "GTB", "GT-750", 60, false)
	b2.Number = "GTB-2608-002"

	allocs := AllocatedQuantities([]order.Line{line}, nil, []*ProductionBatch{b1, b2})
	require.Len(t, allocs, 1)

	a := allocs[0]
	assert.True(t, a.Inferred)
	assert.Equal(t, 100, a.Allocated, "inference never over-allocates")
	assert.Equal(t, 0, a.Remaining)
	assert.Equal(t, []string{"GTB-2608-001", "GTB-2608-002"}, a.BatchNumbers)
}

func TestAllocatedQuantities_InferredIgnoresOtherPrefixesAndCancelled(t *testing.T) {
	line := testLine("GT-750", "GTB", 100)

	matched := New(line.OrderID, "GTB", "GT-750", 30, false)
	matched.Number = "GTB-2608-001"

	otherPrefix := New(line.OrderID, "RHB", "RH-750", 500, false)
	otherPrefix.Number = "RHB-2608-001"

	// GTBX shares the textual prefix but not the delimited one.
	lookalike := New(line.OrderID, "GTBX", "GT-750X", 500, false)
	lookalike.Number = "GTBX-2608-001"

	cancelled := New(line.OrderID, "GTB", "GT-750", 40, false)
	cancelled.Number = "GTB-2608-002"
	cancelled.Status = StatusCancelled

	allocs := AllocatedQuantities([]order.Line{line}, nil,
		[]*ProductionBatch{matched, otherPrefix, lookalike, cancelled})
	require.Len(t, allocs, 1)

	a := allocs[0]
	assert.Equal(t, 30, a.Allocated)
	assert.Equal(t, 70, a.Remaining)
	assert.Equal(t, []string{"GTB-2608-001"}, a.BatchNumbers)
}

func TestAllocatedQuantities_ExplicitItemsDisableInference(t *testing.T) {
	line := testLine("GT-750", "GTB", 100)

	explicit := New(line.OrderID, "GTB", "GT-750", 20, false)
	explicit.Number = "GTB-2608-001"
	explicit.AddItem(line.LineID, 20)

	// A prefix-matched batch that would contribute 90 if inferred.
	stray := New(line.OrderID, "GTB", "GT-750", 90, false)
	stray.Number = "GTB-2608-002"

	allocs := AllocatedQuantities([]order.Line{line}, explicit.Items,
		[]*ProductionBatch{explicit, stray})
	require.Len(t, allocs, 1)

	assert.Equal(t, 20, allocs[0].Allocated)
	assert.Equal(t, 80, allocs[0].Remaining)
	assert.False(t, allocs[0].Inferred)
}

func TestAllocatedQuantities_PlannedBatchDoesNotFeedSiblingInference(t *testing.T) {
	planned := testLine("GT-750", "GTB", 100)
	legacy := testLine("GT-750-GIFT", "GTB", 40)
	legacy.OrderID = planned.OrderID

	// The batch is explicitly planned for the first line. The sibling
	// line shares the GTB prefix but must not infer from it.
	b := New(planned.OrderID, "GTB", "GT-750", 100, false)
	b.Number = "GTB-2608-001"
	b.AddItem(planned.LineID, 100)

	allocs := AllocatedQuantities([]order.Line{planned, legacy}, b.Items, []*ProductionBatch{b})
	require.Len(t, allocs, 2)

	assert.Equal(t, 100, allocs[0].Allocated)
	assert.Equal(t, 0, allocs[0].Remaining)

	assert.True(t, allocs[1].Inferred)
	assert.Equal(t, 0, allocs[1].Allocated)
	assert.Equal(t, 40, allocs[1].Remaining)
	assert.Empty(t, allocs[1].BatchNumbers)
}

func TestAllocatedQuantities_MixedLines(t *testing.T) {
	explicitLine := testLine("GT-750", "GTB", 100)
	inferredLine := testLine("RH-750", "RHB", 50)
	inferredLine.OrderID = explicitLine.OrderID

	b := New(explicitLine.OrderID, "GTB", "GT-750", 40, false)
	b.Number = "GTB-2608-001"
	b.AddItem(explicitLine.LineID, 40)

	legacy := New(explicitLine.OrderID, "RHB", "RH-750", 20, false)
	legacy.Number = "RHB-2608-001"

	allocs := AllocatedQuantities(
		[]order.Line{explicitLine, inferredLine},
		b.Items,
		[]*ProductionBatch{b, legacy})
	require.Len(t, allocs, 2)

	assert.False(t, allocs[0].Inferred)
	assert.Equal(t, 40, allocs[0].Allocated)
	assert.True(t, allocs[1].Inferred)
	assert.Equal(t, 20, allocs[1].Allocated)
	assert.Equal(t, 30, allocs[1].Remaining)
}

func TestStepsFor(t *testing.T) {
	assert.Equal(t, []StepKind{StepProduce, StepBottleCap, StepPack}, StepsFor(false))
	assert.Equal(t, []StepKind{StepProduce, StepBottleCap, StepLabel, StepPack}, StepsFor(true))
}

func TestNextStep(t *testing.T) {
	b := New(id.New(), "GTB", "GT-750", 100, true)
	require.Len(t, b.Steps, 4)

	next := b.NextStep()
	require.NotNil(t, next)
	assert.Equal(t, StepProduce, next.Kind)

	b.Steps[0].Status = StepDone
	b.Steps[1].Status = StepDone
	next = b.NextStep()
	require.NotNil(t, next)
	assert.Equal(t, StepLabel, next.Kind)

	for i := range b.Steps {
		b.Steps[i].Status = StepDone
	}
	assert.Nil(t, b.NextStep())
}

func TestBatchValidate(t *testing.T) {
	ctx := context.Background()

	b := New(id.New(), "GTB", "GT-750", 100, false)
	require.NoError(t, b.Validate(ctx))

	b.AddItem(id.New(), 60)
	b.AddItem(id.New(), 40)
	require.NoError(t, b.Validate(ctx))

	b.AddItem(id.New(), 1)
	assert.Error(t, b.Validate(ctx), "allocations exceed planned quantity")

	orphan := New(id.Nil(), "GTB", "GT-750", 100, false)
	assert.Error(t, orphan.Validate(ctx), "batch without an order")

	empty := New(id.New(), "", "GT-750", 100, false)
	assert.Error(t, empty.Validate(ctx))

	zero := New(id.New(), "GTB", "GT-750", 0, false)
	assert.Error(t, zero.Validate(ctx))
}
