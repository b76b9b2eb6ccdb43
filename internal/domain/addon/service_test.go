package addon

import (
	"context"
	"testing"

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
	var addons []*order.Order
	for _, o := range r.orders {
		if o.ParentOrderID != nil && *o.ParentOrderID == parentID {
			addons = append(addons, o)
		}
	}
	return addons, nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error) {
	return domain.ListResult[*order.Order]{}, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.GetByID(ctx, orderID)
}

type fakeLinkRepo struct {
	links map[id.ID]*Link
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[id.ID]*Link)}
}

func (r *fakeLinkRepo) Create(ctx context.Context, link *Link) error {
	r.links[link.ID] = link
	return nil
}

func (r *fakeLinkRepo) GetByID(ctx context.Context, linkID id.ID) (*Link, error) {
	l, ok := r.links[linkID]
	if !ok {
		return nil, apperror.NewNotFound("addon link", linkID)
	}
	return l, nil
}

func (r *fakeLinkRepo) GetByAddonOrder(ctx context.Context, addonOrderID id.ID) (*Link, error) {
	for _, l := range r.links {
		if l.AddonOrderID == addonOrderID {
			return l, nil
		}
	}
	return nil, apperror.NewNotFound("addon link", addonOrderID)
}

func (r *fakeLinkRepo) ListByParent(ctx context.Context, parentID id.ID) ([]*Link, error) {
	var out []*Link
	for _, l := range r.links {
		if l.ParentOrderID == parentID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) Delete(ctx context.Context, linkID id.ID) error {
	delete(r.links, linkID)
	return nil
}

type fakeSettings struct {
	maxPercent types.Money
}

func (s fakeSettings) AddonMaxPercent(ctx context.Context) (types.Money, error) {
	return s.maxPercent, nil
}

type fakeSyncer struct {
	calls  int
	synced bool
}

func (s *fakeSyncer) SyncConsolidatedTotal(ctx context.Context, o *order.Order) (bool, error) {
	s.calls++
	return s.synced, nil
}

// --- fixtures ---

func testParent(status order.Status) *order.Order {
	parent := order.New("ridgeline", "Harbor Wine & Spirits")
	parent.Number = "SO-2026-00001"
	parent.Status = status
	parent.RequiresLabels = true
	parent.AddLine("GT-750", "GTB", 100, types.MustMoney("10.00"))
	return parent
}

func newTestService(parent *order.Order, maxPercent string) (*Service, *fakeOrderRepo, *fakeLinkRepo, *fakeSyncer) {
	orders := newFakeOrderRepo(parent)
	links := newFakeLinkRepo()
	syncer := &fakeSyncer{}
	svc := NewService(
		orders,
		links,
		fakeSettings{maxPercent: types.MustMoney(maxPercent)},
		syncer,
		&numerator.MockGenerator{},
		fakeTxManager{},
		domain.NopAudit{},
		domain.NopPublisher{},
	)
	return svc, orders, links, syncer
}

func adminCtx() context.Context {
	ctx := security.WithUserID(context.Background(), "admin-1")
	return security.WithScope(ctx, &security.AccessScope{
		UserID: "admin-1",
		Roles:  []security.Role{security.RoleAdmin},
	})
}

func opsCtx() context.Context {
	ctx := security.WithUserID(context.Background(), "ops-1")
	return security.WithScope(ctx, &security.AccessScope{
		UserID: "ops-1",
		Roles:  []security.Role{security.RoleOps},
	})
}

func addonLines() []LineInput {
	return []LineInput{
		{SKUCode: "GT-750", BatchPrefix: "GTB", BottleQty: 10, UnitPrice: types.MustMoney("10.00")},
	}
}

// --- tests ---

func TestCreateAddon(t *testing.T) {
	parent := testParent(order.StatusInProduction)
	svc, orders, links, syncer := newTestService(parent, "50")

	child, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
		Reason:        "customer called, wants 10 more",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, child.Number)
	assert.True(t, child.IsAddon())
	assert.Equal(t, parent.ID, *child.ParentOrderID)
	assert.Equal(t, parent.CustomerName, child.CustomerName)
	assert.Equal(t, parent.BrandID, child.BrandID)
	assert.True(t, child.RequiresLabels, "inherited from parent")

	// Parent already in fulfillment: the add-on skips quoting.
	assert.Equal(t, order.StatusInQueue, child.Status)

	// Consolidated total folded onto the parent and pushed to invoicing.
	stored, err := orders.GetByID(context.Background(), parent.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ConsolidatedTotal)
	assert.True(t, stored.ConsolidatedTotal.Equal(types.MustMoney("1100")),
		"got %s", stored.ConsolidatedTotal)
	assert.Equal(t, 1, syncer.calls)

	// Exactly one auto-approved link.
	linkList, err := links.ListByParent(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Len(t, linkList, 1)
	assert.Equal(t, child.ID, linkList[0].AddonOrderID)
	assert.Equal(t, ApprovalApproved, linkList[0].ApprovalStatus)
	assert.False(t, linkList[0].Override)
}

func TestCreateAddon_ParentStillQuoting(t *testing.T) {
	parent := testParent(order.StatusDraft)
	svc, _, _, _ := newTestService(parent, "50")

	child, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
	})
	require.NoError(t, err)

	// Parent has not entered fulfillment, so the add-on quotes normally.
	assert.Equal(t, order.StatusDraft, child.Status)
}

func TestCreateAddon_ToAddonRejected(t *testing.T) {
	parent := testParent(order.StatusInProduction)
	svc, _, _, _ := newTestService(parent, "50")

	first, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
	})
	require.NoError(t, err)

	_, err = svc.Create(opsCtx(), CreateInput{
		ParentOrderID: first.ID,
		Lines:         addonLines(),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestCreateAddon_WindowClosed(t *testing.T) {
	parent := testParent(order.StatusPacked)
	svc, _, _, _ := newTestService(parent, "50")

	_, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAddonWindowClosed, appErr.Code)
}

func TestCreateAddon_AdminOverride(t *testing.T) {
	parent := testParent(order.StatusPacked)
	svc, _, links, _ := newTestService(parent, "50")

	child, err := svc.Create(adminCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
		Override:      true,
		OverrideNote:  "shipment held at dock, customer approved extra cases",
	})
	require.NoError(t, err)

	// The override add-on joins the pipeline at the parent's stage.
	assert.Equal(t, order.StatusPacked, child.Status)

	link, err := links.GetByAddonOrder(context.Background(), child.ID)
	require.NoError(t, err)
	assert.True(t, link.Override)
	assert.Equal(t, "shipment held at dock, customer approved extra cases", link.OverrideNote)
}

func TestCreateAddon_OverrideRequiresAdmin(t *testing.T) {
	parent := testParent(order.StatusPacked)
	svc, _, _, _ := newTestService(parent, "50")

	_, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
		Override:      true,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestCreateAddon_OverrideIgnoredWhileWindowOpen(t *testing.T) {
	parent := testParent(order.StatusInProduction)
	svc, _, links, _ := newTestService(parent, "50")

	child, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
		Override:      true,
	})
	require.NoError(t, err)

	link, err := links.GetByAddonOrder(context.Background(), child.ID)
	require.NoError(t, err)
	assert.False(t, link.Override, "open window needs no bypass")
}

func TestCreateAddon_NoOverrideForShipped(t *testing.T) {
	parent := testParent(order.StatusShipped)
	svc, _, _, _ := newTestService(parent, "50")

	_, err := svc.Create(adminCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines:         addonLines(),
		Override:      true,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAddonWindowClosed, appErr.Code)
}

func TestCreateAddon_TooLarge(t *testing.T) {
	parent := testParent(order.StatusInProduction) // subtotal 1000
	svc, _, _, _ := newTestService(parent, "50")

	_, err := svc.Create(opsCtx(), CreateInput{
		ParentOrderID: parent.ID,
		Lines: []LineInput{
			{SKUCode: "GT-750", BatchPrefix: "GTB", BottleQty: 51, UnitPrice: types.MustMoney("10.00")},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAddonTooLarge, appErr.Code)
}

func TestRecalculate_ExcludesCancelledAddon(t *testing.T) {
	parent := testParent(order.StatusInProduction)
	svc, orders, _, _ := newTestService(parent, "100")

	a1, err := svc.Create(opsCtx(), CreateInput{ParentOrderID: parent.ID, Lines: addonLines()})
	require.NoError(t, err)
	_, err = svc.Create(opsCtx(), CreateInput{ParentOrderID: parent.ID, Lines: addonLines()})
	require.NoError(t, err)

	stored, _ := orders.GetByID(context.Background(), parent.ID)
	require.NotNil(t, stored.ConsolidatedTotal)
	assert.True(t, stored.ConsolidatedTotal.Equal(types.MustMoney("1200")))

	a1.Status = order.StatusCancelled
	recalced, err := svc.Recalculate(opsCtx(), parent.ID)
	require.NoError(t, err)
	require.NotNil(t, recalced.ConsolidatedTotal)
	assert.True(t, recalced.ConsolidatedTotal.Equal(types.MustMoney("1100")),
		"got %s", recalced.ConsolidatedTotal)
}

func TestCheckWindow(t *testing.T) {
	parent := testParent(order.StatusPacked)
	svc, _, _, _ := newTestService(parent, "50")

	status, err := svc.CheckWindow(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.Number, status.ParentNumber)
	assert.False(t, status.Open)
	assert.True(t, status.Overridable)
}

func TestGetConsolidation(t *testing.T) {
	parent := testParent(order.StatusInProduction)
	svc, _, _, _ := newTestService(parent, "100")

	child, err := svc.Create(opsCtx(), CreateInput{ParentOrderID: parent.ID, Lines: addonLines()})
	require.NoError(t, err)

	view, err := svc.GetConsolidation(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, view.Parent.ID)
	require.Len(t, view.Addons, 1)
	assert.Equal(t, child.ID, view.Addons[0].ID)
	require.Len(t, view.Links, 1)
	assert.True(t, view.ConsolidatedTotal.Equal(types.MustMoney("1100")))
}
