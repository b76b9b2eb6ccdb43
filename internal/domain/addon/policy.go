// Package addon implements the add-on consolidation engine: policy
// gates for creating add-on orders, size validation against configured
// policy, and consolidated-total recalculation.
package addon

import (
	"fmt"

	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/order"
)

// blockedStatuses are parent statuses in which normal add-on creation
// is closed: once packing/invoicing has started, adding items would
// re-open already-closed fulfillment steps.
var blockedStatuses = map[order.Status]struct{}{
	order.StatusInPacking:       {},
	order.StatusAwaitingInvoice: {},
	order.StatusAwaitingPayment: {},
	order.StatusPacked:          {},
	order.StatusReadyToShip:     {},
	order.StatusShipped:         {},
	order.StatusCancelled:       {},
}

// overridableStatuses are the blocked statuses an admin may still
// bypass. Shipped and cancelled are terminal and never overridable.
var overridableStatuses = map[order.Status]struct{}{
	order.StatusInPacking:       {},
	order.StatusAwaitingInvoice: {},
	order.StatusAwaitingPayment: {},
	order.StatusPacked:          {},
	order.StatusReadyToShip:     {},
}

// CanCreateAddon reports whether an add-on may be created against a
// parent order in the given status through the normal path.
func CanCreateAddon(status order.Status) bool {
	if !status.IsValid() {
		return false
	}
	_, blocked := blockedStatuses[status]
	return !blocked
}

// CanAdminOverrideAddon reports whether an admin may bypass the closed
// add-on window for the given status. Returns false wherever
// CanCreateAddon already returns true, and always for shipped/cancelled.
func CanAdminOverrideAddon(status order.Status) bool {
	_, ok := overridableStatuses[status]
	return ok
}

// Validation is the structured result of a policy check.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// ValidateAddonSize rejects an add-on whose total exceeds maxPercent%
// of the parent order's total. maxPercent = 100 means the add-on total
// must not exceed the parent total.
func ValidateAddonSize(addonTotal, parentTotal, maxPercent types.Money) Validation {
	if maxPercent.IsNegative() {
		return Validation{
			Valid:   false,
			Message: "add-on size limit is misconfigured (negative percent)",
		}
	}

	limit := types.Percent(parentTotal, maxPercent)
	if addonTotal.GreaterThan(limit) {
		return Validation{
			Valid: false,
			Message: fmt.Sprintf(
				"add-on total %s exceeds %s%% of parent order total %s (limit %s)",
				addonTotal.StringFixed(2),
				maxPercent.String(),
				parentTotal.StringFixed(2),
				limit.StringFixed(2),
			),
		}
	}

	return Validation{Valid: true}
}
