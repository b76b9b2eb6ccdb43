package order

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/numerator"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain"
)

// --- in-memory fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	orders map[id.ID]*Order
}

func newFakeRepo(orders ...*Order) *fakeRepo {
	r := &fakeRepo{orders: make(map[id.ID]*Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, o *Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("sales order", orderID)
	}
	return o, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	for _, o := range r.orders {
		if o.Number == number {
			return o, nil
		}
	}
	return nil, apperror.NewNotFound("sales order", number)
}

func (r *fakeRepo) Update(ctx context.Context, o *Order) error {
	r.orders[o.ID] = o
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, orderID id.ID) error {
	o, ok := r.orders[orderID]
	if !ok {
		return apperror.NewNotFound("sales order", orderID)
	}
	o.MarkDeleted()
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, orderID id.ID) ([]Line, error) {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Lines, nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, orderID id.ID, lines []Line) error {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	o.Lines = lines
	return nil
}

func (r *fakeRepo) GetAddonOrders(ctx context.Context, parentID id.ID) ([]*Order, error) {
	return nil, nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	return domain.ListResult[*Order]{}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return r.GetByID(ctx, orderID)
}

func newTestService(orders ...*Order) (*Service, *fakeRepo) {
	repo := newFakeRepo(orders...)
	svc := NewService(repo, &numerator.MockGenerator{}, fakeTxManager{}, domain.NopAudit{}, domain.NopPublisher{})
	return svc, repo
}

func draftOrder() *Order {
	o := New("ridgeline", "Harbor Wine & Spirits")
	o.AddLine("GT-750", "GTB", 100, types.MustMoney("10.00"))
	return o
}

// --- tests ---

func TestServiceCreate(t *testing.T) {
	ctx := security.WithUserID(context.Background(), "ops-1")
	svc, repo := newTestService()

	o := draftOrder()
	require.NoError(t, svc.Create(ctx, o))

	assert.True(t, strings.HasPrefix(o.Number, "SO-"), "number %s", o.Number)
	assert.Equal(t, "ops-1", o.CreatedBy)

	stored, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, stored.Number)
	require.Len(t, stored.Lines, 1)
}

func TestServiceCreate_KeepsExplicitNumber(t *testing.T) {
	svc, _ := newTestService()

	o := draftOrder()
	o.Number = "SO-2025-90001"
	require.NoError(t, svc.Create(context.Background(), o))
	assert.Equal(t, "SO-2025-90001", o.Number)
}

func TestServiceCreate_Invalid(t *testing.T) {
	svc, _ := newTestService()

	o := New("ridgeline", "Customer") // no lines
	err := svc.Create(context.Background(), o)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestServiceUpdate_RecalculatesSubtotal(t *testing.T) {
	ctx := context.Background()
	o := draftOrder()
	svc, _ := newTestService(o)

	o.Lines[0].BottleQty = 200
	o.Lines[0].Subtotal = o.Lines[0].UnitPrice.Mul(types.NewMoney(200))
	require.NoError(t, svc.Update(ctx, o))
	assert.True(t, o.Subtotal.Equal(types.MustMoney("2000")), "got %s", o.Subtotal)
}

func TestServiceUpdate_LockedAfterQuoting(t *testing.T) {
	o := draftOrder()
	o.Status = StatusInProduction
	svc, _ := newTestService(o)

	err := svc.Update(context.Background(), o)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()
	o := draftOrder()
	svc, _ := newTestService(o)

	updated, err := svc.ChangeStatus(ctx, o.ID, StatusInQueue)
	require.NoError(t, err)
	assert.Equal(t, StatusInQueue, updated.Status)

	// Backward move rejected.
	_, err = svc.ChangeStatus(ctx, o.ID, StatusDraft)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, string(StatusInQueue), appErr.Details["from"])

	// Hold and resume.
	_, err = svc.ChangeStatus(ctx, o.ID, StatusOnHold)
	require.NoError(t, err)
	updated, err = svc.ChangeStatus(ctx, o.ID, StatusInProduction)
	require.NoError(t, err)
	assert.Equal(t, StatusInProduction, updated.Status)
}

func TestChangeStatus_UnknownStatus(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ChangeStatus(context.Background(), id.New(), "archived")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestServiceDelete_RequiresAdmin(t *testing.T) {
	o := draftOrder()
	svc, repo := newTestService(o)

	err := svc.Delete(context.Background(), o.ID)
	require.Error(t, err)

	adminCtx := security.WithScope(context.Background(), &security.AccessScope{
		UserID: "admin-1",
		Roles:  []security.Role{security.RoleAdmin},
	})
	require.NoError(t, svc.Delete(adminCtx, o.ID))

	stored, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.DeletionMark)
}
