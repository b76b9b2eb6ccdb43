package addon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/order"
)

func TestCanCreateAddon(t *testing.T) {
	open := []order.Status{
		order.StatusDraft,
		order.StatusAwaitingApproval,
		order.StatusQuoted,
		order.StatusDepositDue,
		order.StatusInQueue,
		order.StatusInProduction,
		order.StatusInLabeling,
		order.StatusOnHold,
	}
	for _, s := range open {
		assert.True(t, CanCreateAddon(s), "status %s", s)
	}

	closed := []order.Status{
		order.StatusAwaitingInvoice,
		order.StatusAwaitingPayment,
		order.StatusInPacking,
		order.StatusPacked,
		order.StatusReadyToShip,
		order.StatusShipped,
		order.StatusCancelled,
	}
	for _, s := range closed {
		assert.False(t, CanCreateAddon(s), "status %s", s)
	}

	assert.False(t, CanCreateAddon("bogus"))
}

func TestCanAdminOverrideAddon(t *testing.T) {
	// Override only matters where the normal window is closed.
	for _, s := range order.AllStatuses() {
		if CanCreateAddon(s) {
			assert.False(t, CanAdminOverrideAddon(s), "status %s", s)
		}
	}

	assert.True(t, CanAdminOverrideAddon(order.StatusInPacking))
	assert.True(t, CanAdminOverrideAddon(order.StatusPacked))
	assert.True(t, CanAdminOverrideAddon(order.StatusReadyToShip))

	// Terminal states are never overridable.
	assert.False(t, CanAdminOverrideAddon(order.StatusShipped))
	assert.False(t, CanAdminOverrideAddon(order.StatusCancelled))
}

func TestValidateAddonSize(t *testing.T) {
	parent := types.MustMoney("1000")

	tests := []struct {
		name       string
		addonTotal string
		maxPercent string
		valid      bool
	}{
		{"well under limit", "100", "50", true},
		{"exactly at limit", "500", "50", true},
		{"just over limit", "500.01", "50", false},
		{"100 percent allows up to parent", "1000", "100", true},
		{"over parent at 100 percent", "1000.01", "100", false},
		{"zero percent blocks everything", "0.01", "0", false},
		{"zero addon always fine", "0", "0", true},
		{"negative percent misconfigured", "1", "-10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateAddonSize(types.MustMoney(tt.addonTotal), parent, types.MustMoney(tt.maxPercent))
			assert.Equal(t, tt.valid, v.Valid)
			if !tt.valid {
				assert.NotEmpty(t, v.Message)
			}
		})
	}
}

func TestConsolidatedTotal(t *testing.T) {
	parent := order.New("ridgeline", "Customer")
	parent.Subtotal = types.MustMoney("1000")

	a1 := order.New("ridgeline", "Customer")
	a1.Subtotal = types.MustMoney("200")

	a2 := order.New("ridgeline", "Customer")
	a2.Subtotal = types.MustMoney("50")
	a2.Status = order.StatusCancelled

	a3 := order.New("ridgeline", "Customer")
	a3.Subtotal = types.MustMoney("75")
	a3.DeletionMark = true

	total := ConsolidatedTotal(parent, []*order.Order{a1, a2, a3})
	assert.True(t, total.Equal(types.MustMoney("1200")), "got %s", total)

	// No add-ons: consolidated total equals the parent subtotal.
	total = ConsolidatedTotal(parent, nil)
	assert.True(t, total.Equal(parent.Subtotal))
}
