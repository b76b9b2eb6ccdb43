package invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
)

func TestOutstanding(t *testing.T) {
	inv := New(id.New(), TypeFinal, types.MustMoney("700"))
	assert.True(t, inv.Outstanding().Equal(types.MustMoney("700")))

	inv.AmountPaid = types.MustMoney("250.50")
	assert.True(t, inv.Outstanding().Equal(types.MustMoney("449.50")))

	inv.AmountPaid = types.MustMoney("700")
	assert.True(t, inv.Outstanding().IsZero())
}

func TestSyncEligible(t *testing.T) {
	inv := New(id.New(), TypeFinal, types.MustMoney("700"))
	assert.True(t, inv.SyncEligible())

	deposit := New(id.New(), TypeDeposit, types.MustMoney("300"))
	assert.False(t, deposit.SyncEligible(), "deposit invoices are never rewritten")

	paid := New(id.New(), TypeFinal, types.MustMoney("700"))
	paid.Status = StatusPaid
	assert.False(t, paid.SyncEligible())

	// Any recorded payment pins the amount, even while still unpaid
	// overall (payment later reversed out of band).
	touched := New(id.New(), TypeFinal, types.MustMoney("700"))
	touched.PaymentCount = 1
	assert.False(t, touched.SyncEligible())

	void := New(id.New(), TypeFinal, types.MustMoney("700"))
	void.Status = StatusVoid
	assert.False(t, void.SyncEligible())
}

func TestInvoiceValidate(t *testing.T) {
	ctx := context.Background()

	inv := New(id.New(), TypeDeposit, types.MustMoney("300"))
	require.NoError(t, inv.Validate(ctx))

	noOrder := New(id.Nil(), TypeFinal, types.MustMoney("1"))
	assert.Error(t, noOrder.Validate(ctx))

	badType := New(id.New(), Type("proforma"), types.MustMoney("1"))
	assert.Error(t, badType.Validate(ctx))

	negative := New(id.New(), TypeFinal, types.MustMoney("-1"))
	assert.Error(t, negative.Validate(ctx))

	taxed := New(id.New(), TypeFinal, types.MustMoney("500"))
	taxed.Tax = types.MustMoney("40")
	taxed.Total = types.MustMoney("540")
	require.NoError(t, taxed.Validate(ctx))

	drifted := New(id.New(), TypeFinal, types.MustMoney("500"))
	drifted.Tax = types.MustMoney("40")
	assert.Error(t, drifted.Validate(ctx), "total must track subtotal plus tax")
}

func TestWithinCent(t *testing.T) {
	assert.True(t, types.WithinCent(types.MustMoney("100.00"), types.MustMoney("100.01")))
	assert.True(t, types.WithinCent(types.MustMoney("100.01"), types.MustMoney("100.00")))
	assert.False(t, types.WithinCent(types.MustMoney("100.00"), types.MustMoney("100.02")))
}
