package batch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/numerator"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/order"
)

// --- in-memory fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders map[id.ID]*order.Order
}

func newFakeOrderRepo(orders ...*order.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: make(map[id.ID]*order.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("sales order", orderID)
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	for _, o := range r.orders {
		if o.Number == number {
			return o, nil
		}
	}
	return nil, apperror.NewNotFound("sales order", number)
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *order.Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	delete(r.orders, orderID)
	return nil
}

func (r *fakeOrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]order.Line, error) {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Lines, nil
}

func (r *fakeOrderRepo) SaveLines(ctx context.Context, orderID id.ID, lines []order.Line) error {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	o.Lines = lines
	return nil
}

func (r *fakeOrderRepo) GetAddonOrders(ctx context.Context, parentID id.ID) ([]*order.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error) {
	return domain.ListResult[*order.Order]{}, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.GetByID(ctx, orderID)
}

type fakeBatchRepo struct {
	batches map[id.ID]*ProductionBatch
	items   map[id.ID][]Item
	steps   map[id.ID][]WorkflowStep
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{
		batches: make(map[id.ID]*ProductionBatch),
		items:   make(map[id.ID][]Item),
		steps:   make(map[id.ID][]WorkflowStep),
	}
}

func (r *fakeBatchRepo) Create(ctx context.Context, b *ProductionBatch) error {
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*ProductionBatch, error) {
	b, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("production batch", batchID)
	}
	return b, nil
}

func (r *fakeBatchRepo) GetByNumber(ctx context.Context, number string) (*ProductionBatch, error) {
	for _, b := range r.batches {
		if b.Number == number {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("production batch", number)
}

func (r *fakeBatchRepo) Update(ctx context.Context, b *ProductionBatch) error {
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) Delete(ctx context.Context, batchID id.ID) error {
	delete(r.batches, batchID)
	delete(r.items, batchID)
	delete(r.steps, batchID)
	return nil
}

func (r *fakeBatchRepo) GetItems(ctx context.Context, batchID id.ID) ([]Item, error) {
	return append([]Item{}, r.items[batchID]...), nil
}

func (r *fakeBatchRepo) SaveItems(ctx context.Context, batchID id.ID, items []Item) error {
	r.items[batchID] = append([]Item{}, items...)
	return nil
}

func (r *fakeBatchRepo) GetItemsByOrder(ctx context.Context, orderID id.ID) ([]Item, error) {
	var out []Item
	for batchID, items := range r.items {
		if _, ok := r.batches[batchID]; !ok {
			continue
		}
		for _, it := range items {
			if it.OrderID == orderID {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) GetSteps(ctx context.Context, batchID id.ID) ([]WorkflowStep, error) {
	return append([]WorkflowStep{}, r.steps[batchID]...), nil
}

func (r *fakeBatchRepo) SaveSteps(ctx context.Context, batchID id.ID, steps []WorkflowStep) error {
	r.steps[batchID] = append([]WorkflowStep{}, steps...)
	return nil
}

func (r *fakeBatchRepo) GetByOrder(ctx context.Context, orderID id.ID) ([]*ProductionBatch, error) {
	var out []*ProductionBatch
	for _, b := range r.batches {
		if b.OrderID == orderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) GetByPrefix(ctx context.Context, orderID id.ID, prefix string) ([]*ProductionBatch, error) {
	var out []*ProductionBatch
	for _, b := range r.batches {
		if b.OrderID == orderID && strings.HasPrefix(b.Number, prefix+"-") {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*ProductionBatch], error) {
	return domain.ListResult[*ProductionBatch]{}, nil
}

func (r *fakeBatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*ProductionBatch, error) {
	return r.GetByID(ctx, batchID)
}

// --- fixtures ---

func testOrder(status order.Status) *order.Order {
	o := order.New("ridgeline", "Harbor Wine & Spirits")
	o.Number = "SO-2026-00001"
	o.Status = status
	o.AddLine("GT-750", "GTB", 100, types.MustMoney("10.00"))
	return o
}

func newTestService(orders ...*order.Order) (*Service, *fakeBatchRepo, *fakeOrderRepo) {
	batchRepo := newFakeBatchRepo()
	orderRepo := newFakeOrderRepo(orders...)
	svc := NewService(
		batchRepo,
		orderRepo,
		&numerator.MockGenerator{},
		fakeTxManager{},
		domain.NopAudit{},
		domain.NopPublisher{},
	)
	return svc, batchRepo, orderRepo
}

func adminCtx() context.Context {
	ctx := security.WithUserID(context.Background(), "admin-1")
	return security.WithScope(ctx, &security.AccessScope{
		UserID: "admin-1",
		Roles:  []security.Role{security.RoleAdmin},
	})
}

// --- tests ---

func TestPlanBatches(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, repo, _ := newTestService(o)

	line := o.Lines[0]
	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: line.LineID, Quantities: []int{60, 40}},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, 60, created[0].PlannedQty)
	assert.Equal(t, 40, created[1].PlannedQty)
	for _, b := range created {
		assert.Equal(t, "GTB", b.SKUPrefix)
		assert.Equal(t, StatusPlanned, b.Status)
		assert.True(t, strings.HasPrefix(b.Number, "GTB-"), "number %s", b.Number)

		items, _ := repo.GetItems(ctx, b.ID)
		require.Len(t, items, 1)
		assert.Equal(t, line.LineID, items[0].LineID)
		assert.Equal(t, b.PlannedQty, items[0].Qty)

		steps, _ := repo.GetSteps(ctx, b.ID)
		require.Len(t, steps, 3, "no labeling step for unlabeled order")
	}
}

func TestPlanBatches_OverAllocation(t *testing.T) {
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	_, err := svc.PlanBatches(context.Background(), o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{80, 40}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOverAllocation, appErr.Code)
	assert.Equal(t, 120, appErr.Details["requested"])
	assert.Equal(t, 100, appErr.Details["available"])
}

func TestPlanBatches_RespectsExistingAllocation(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	line := o.Lines[0]
	_, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: line.LineID, Quantities: []int{70}},
	})
	require.NoError(t, err)

	// 30 remaining: 40 must be rejected, 30 fits.
	_, err = svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: line.LineID, Quantities: []int{40}},
	})
	require.Error(t, err)

	_, err = svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: line.LineID, Quantities: []int{30}},
	})
	require.NoError(t, err)
}

func TestPlanBatches_OrderNotInQueueYet(t *testing.T) {
	o := testOrder(order.StatusQuoted)
	svc, _, _ := newTestService(o)

	_, err := svc.PlanBatches(context.Background(), o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{10}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestPlanBatches_LabelStepFollowsOrder(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	o.RequiresLabels = true
	svc, repo, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	steps, _ := repo.GetSteps(ctx, created[0].ID)
	require.Len(t, steps, 4)
	assert.Equal(t, StepLabel, steps[2].Kind)
}

func TestQuickPlan(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	o.AddLine("RH-750", "RHB", 50, types.MustMoney("9.00"))
	svc, _, _ := newTestService(o)

	// Pre-allocate part of the first line.
	_, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{70}},
	})
	require.NoError(t, err)

	created, err := svc.QuickPlan(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 30, created[0].PlannedQty)
	assert.Equal(t, 50, created[1].PlannedQty)

	// Everything allocated now.
	_, err = svc.QuickPlan(ctx, o.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, repo, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)
	original := created[0]

	parts, err := svc.Split(ctx, original.ID, []int{60, 40})
	require.NoError(t, err)
	require.Len(t, parts, 2)

	// Original removed, allocations carved in order.
	_, err = repo.GetByID(ctx, original.ID)
	assert.True(t, apperror.IsNotFound(err))

	items0, _ := repo.GetItems(ctx, parts[0].ID)
	items1, _ := repo.GetItems(ctx, parts[1].ID)
	require.Len(t, items0, 1)
	require.Len(t, items1, 1)
	assert.Equal(t, 60, items0[0].Qty)
	assert.Equal(t, 40, items1[0].Qty)
	assert.Equal(t, o.Lines[0].LineID, items1[0].LineID)
}

func TestSplit_QuantitiesMustSumToPlanned(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)

	_, err = svc.Split(ctx, created[0].ID, []int{60, 50})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.Split(ctx, created[0].ID, []int{100})
	require.Error(t, err, "single quantity is not a split")
}

func TestSplit_OnlyPlanned(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)

	_, err = svc.CompleteStep(ctx, created[0].ID, StepProduce)
	require.NoError(t, err)

	_, err = svc.Split(ctx, created[0].ID, []int{60, 40})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, repo, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{50, 30, 20}},
	})
	require.NoError(t, err)

	target, err := svc.Merge(ctx, created[0].ID, []id.ID{created[1].ID, created[2].ID})
	require.NoError(t, err)

	assert.Equal(t, 100, target.PlannedQty)

	// Same order line across sources collapses into one item.
	items, _ := repo.GetItems(ctx, target.ID)
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Qty)

	_, err = repo.GetByID(ctx, created[1].ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = repo.GetByID(ctx, created[2].ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestMerge_DifferentPrefixRejected(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	o.AddLine("RH-750", "RHB", 50, types.MustMoney("9.00"))
	svc, _, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
		{LineID: o.Lines[1].LineID, Quantities: []int{50}},
	})
	require.NoError(t, err)

	_, err = svc.Merge(ctx, created[0].ID, []id.ID{created[1].ID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestMerge_TargetCannotBeSource(t *testing.T) {
	svc, _, _ := newTestService()
	batchID := id.New()

	_, err := svc.Merge(context.Background(), batchID, []id.ID{batchID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestCompleteStep_Sequence(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)
	batchID := created[0].ID

	// Out of order: pack before produce.
	_, err = svc.CompleteStep(ctx, batchID, StepPack)
	require.Error(t, err)

	b, err := svc.CompleteStep(ctx, batchID, StepProduce)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, b.Status)

	b, err = svc.CompleteStep(ctx, batchID, StepBottleCap)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, b.Status)

	b, err = svc.CompleteStep(ctx, batchID, StepPack)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)

	// Workflow finished.
	_, err = svc.CompleteStep(ctx, batchID, StepPack)
	require.Error(t, err)
}

func TestRecordOutput(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)
	batchID := created[0].ID

	// Nothing to report while the batch is still planned.
	_, err = svc.RecordOutput(ctx, batchID, 95, 5)
	require.Error(t, err)

	_, err = svc.CompleteStep(ctx, batchID, StepProduce)
	require.NoError(t, err)

	_, err = svc.RecordOutput(ctx, batchID, -1, 0)
	require.Error(t, err)

	b, err := svc.RecordOutput(ctx, batchID, 95, 5)
	require.NoError(t, err)
	assert.Equal(t, 95, b.GoodQty)
	assert.Equal(t, 5, b.ScrapQty)
}

func TestPlanBatches_KeepsPlannedStart(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	start := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{60, 40}, PlannedStart: &start},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, b := range created {
		require.NotNil(t, b.PlannedStart)
		assert.True(t, b.PlannedStart.Equal(start))
	}
}

func TestCancel_FreesAllocation(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	created, err := svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)

	b, err := svc.Cancel(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)

	// The full line quantity is plannable again.
	_, err = svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)
}

func TestAllocation_OrdersSharingPrefixStayIndependent(t *testing.T) {
	ctx := context.Background()
	first := testOrder(order.StatusInQueue)
	second := testOrder(order.StatusInQueue)
	second.Number = "SO-2026-00002"
	svc, _, _ := newTestService(first, second)

	// The first order plans its full GTB line.
	_, err := svc.PlanBatches(ctx, first.ID, []PlanInput{
		{LineID: first.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)

	// The second order shares the SKU prefix but none of those batches.
	report, err := svc.AllocationReport(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	assert.Equal(t, 0, report.Lines[0].Allocated)
	assert.Equal(t, 100, report.Lines[0].Remaining)

	_, err = svc.PlanBatches(ctx, second.ID, []PlanInput{
		{LineID: second.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)
}

func TestBackfillAllocations_ScopedToOrder(t *testing.T) {
	ctx := adminCtx()
	mine := testOrder(order.StatusInQueue)
	other := testOrder(order.StatusInQueue)
	other.Number = "SO-2026-00002"
	svc, repo, _ := newTestService(mine, other)

	// A legacy prefix-matched batch of another order must stay untouched.
	foreign := New(other.ID, "GTB", "GT-750", 60, false)
	foreign.Number = "GTB-2601-001"
	require.NoError(t, repo.Create(ctx, foreign))

	created, err := svc.BackfillAllocations(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	items, _ := repo.GetItems(ctx, foreign.ID)
	assert.Empty(t, items)
}

func TestBackfillAllocations(t *testing.T) {
	ctx := adminCtx()
	o := testOrder(order.StatusInQueue)
	svc, repo, _ := newTestService(o)

	// Legacy batch carrying the line's prefix but no explicit items.
	legacy := New(o.ID, "GTB", "GT-750", 60, false)
	legacy.Number = "GTB-2601-001"
	require.NoError(t, repo.Create(ctx, legacy))

	created, err := svc.BackfillAllocations(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	items, _ := repo.GetItems(ctx, legacy.ID)
	require.Len(t, items, 1)
	assert.Equal(t, o.Lines[0].LineID, items[0].LineID)
	assert.Equal(t, 60, items[0].Qty)
	assert.True(t, items[0].Inferred)

	// Idempotent: the line now has explicit items.
	created, err = svc.BackfillAllocations(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestBackfillAllocations_RequiresAdmin(t *testing.T) {
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	ctx := security.WithScope(context.Background(), &security.AccessScope{
		UserID: "ops-1",
		Roles:  []security.Role{security.RoleOps},
	})
	_, err := svc.BackfillAllocations(ctx, o.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestAllocationReport(t *testing.T) {
	ctx := context.Background()
	o := testOrder(order.StatusInQueue)
	svc, _, _ := newTestService(o)

	report, err := svc.AllocationReport(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, report.FullyAllocated)
	require.Len(t, report.Lines, 1)
	assert.Equal(t, 100, report.Lines[0].Remaining)

	_, err = svc.PlanBatches(ctx, o.ID, []PlanInput{
		{LineID: o.Lines[0].LineID, Quantities: []int{100}},
	})
	require.NoError(t, err)

	report, err = svc.AllocationReport(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, report.FullyAllocated)
	assert.Equal(t, 0, report.Lines[0].Remaining)
}
