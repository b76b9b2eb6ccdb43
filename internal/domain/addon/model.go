package addon

import (
	"context"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/entity"
	"bottleworks/internal/core/id"
)

// ApprovalStatus of an add-on link. Ordinary add-ons are auto-approved;
// there is no separate approval workflow.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Link joins a parent order to its add-on order.
// One add-on order has exactly one link record (addon_so_id unique).
type Link struct {
	entity.BaseDocument

	ParentOrderID id.ID `db:"parent_so_id" json:"parentOrderId"`
	AddonOrderID  id.ID `db:"addon_so_id" json:"addonOrderId"`

	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approvalStatus"`

	// Reason given by the requester
	Reason string `db:"reason" json:"reason,omitempty"`

	// Override marks links created through the admin bypass
	Override bool `db:"override" json:"override"`

	// OverrideNote is the admin's justification for bypassing the window
	OverrideNote string `db:"override_note" json:"overrideNote,omitempty"`
}

// NewLink creates an auto-approved link between parent and add-on order.
func NewLink(parentID, addonID id.ID) *Link {
	return &Link{
		BaseDocument:   entity.NewBaseDocument(),
		ParentOrderID:  parentID,
		AddonOrderID:   addonID,
		ApprovalStatus: ApprovalApproved,
	}
}

// Validate implements entity.Validatable.
func (l *Link) Validate(ctx context.Context) error {
	if id.IsNil(l.ParentOrderID) {
		return apperror.NewValidation("parent order is required").
			WithDetail("field", "parentOrderId")
	}
	if id.IsNil(l.AddonOrderID) {
		return apperror.NewValidation("add-on order is required").
			WithDetail("field", "addonOrderId")
	}
	if l.ParentOrderID == l.AddonOrderID {
		return apperror.NewValidation("order cannot be an add-on to itself")
	}
	return nil
}
