package addon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/numerator"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/tx"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/order"
	"bottleworks/pkg/logger"
)

// EntityType is the audit entity type for add-on links.
const EntityType = "AddonLink"

// SettingsSource supplies the add-on size cap at call time.
// Reading it per operation means a changed limit applies immediately.
type SettingsSource interface {
	AddonMaxPercent(ctx context.Context) (types.Money, error)
}

// InvoiceSyncer pushes a grown consolidated total onto the parent's
// unpaid final invoice. Called inside the consolidation transaction.
type InvoiceSyncer interface {
	SyncConsolidatedTotal(ctx context.Context, o *order.Order) (bool, error)
}

// Service is the add-on consolidation engine.
type Service struct {
	orders    order.Repository
	links     Repository
	settings  SettingsSource
	invoices  InvoiceSyncer
	numerator numerator.Generator
	txManager tx.Manager
	audit     domain.AuditLogger
	events    domain.EventPublisher
}

// NewService creates the add-on service.
func NewService(
	orders order.Repository,
	links Repository,
	settings SettingsSource,
	invoices InvoiceSyncer,
	gen numerator.Generator,
	txManager tx.Manager,
	audit domain.AuditLogger,
	events domain.EventPublisher,
) *Service {
	return &Service{
		orders:    orders,
		links:     links,
		settings:  settings,
		invoices:  invoices,
		numerator: gen,
		txManager: txManager,
		audit:     audit,
		events:    events,
	}
}

// LineInput is one requested add-on position.
type LineInput struct {
	SKUCode     string      `json:"skuCode"`
	BatchPrefix string      `json:"batchPrefix"`
	BottleQty   int         `json:"bottleQty"`
	UnitPrice   types.Money `json:"unitPrice"`
}

// CreateInput describes an add-on order request.
type CreateInput struct {
	ParentOrderID id.ID       `json:"parentOrderId"`
	CustomerName  string      `json:"customerName"`
	Lines         []LineInput `json:"lines"`
	Reason        string      `json:"reason"`

	// Override requests the admin bypass when the parent's add-on
	// window is closed. Ignored while the window is open.
	Override     bool   `json:"override"`
	OverrideNote string `json:"overrideNote"`
}

// Create creates an add-on order against a parent, links it, and folds
// its subtotal into the parent's consolidated total. The child order,
// link, consolidated total, invoice sync, audit entries and outbox
// event commit in one transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (*order.Order, error) {
	parent, err := s.orders.GetByID(ctx, input.ParentOrderID)
	if err != nil {
		return nil, err
	}

	if parent.IsAddon() {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Cannot create an add-on to an add-on order").
			WithDetail("parent", parent.Number)
	}

	effectiveOverride, err := s.checkWindow(ctx, parent, input.Override)
	if err != nil {
		return nil, err
	}

	maxPercent, err := s.settings.AddonMaxPercent(ctx)
	if err != nil {
		return nil, err
	}

	child := s.buildChild(parent, input, effectiveOverride)
	if err := child.Validate(ctx); err != nil {
		return nil, err
	}

	if v := ValidateAddonSize(child.Subtotal, parent.Subtotal, maxPercent); !v.Valid {
		return nil, apperror.NewBusinessRule(apperror.CodeAddonTooLarge, v.Message).
			WithDetail("parent", parent.Number).
			WithDetail("addon_subtotal", child.Subtotal.String()).
			WithDetail("max_percent", maxPercent.String())
	}

	number, err := s.numerator.GetNextNumber(ctx,
		numerator.DefaultConfig(order.NumberPrefix), numerator.DefaultOptions(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	child.Number = number

	if actor := security.GetUserID(ctx); actor != "" {
		child.CreatedBy = actor
		child.UpdatedBy = actor
	}

	link := NewLink(parent.ID, child.ID)
	link.Reason = input.Reason
	link.Override = effectiveOverride
	link.OverrideNote = strings.TrimSpace(input.OverrideNote)
	if actor := security.GetUserID(ctx); actor != "" {
		link.CreatedBy = actor
		link.UpdatedBy = actor
	}
	if err := link.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Re-check the gate under lock: the parent may have moved on
		// between the read above and this transaction.
		locked, err := s.orders.GetForUpdate(ctx, parent.ID)
		if err != nil {
			return err
		}
		if locked.Status != parent.Status {
			if _, err := s.checkWindow(ctx, locked, input.Override); err != nil {
				return err
			}
			if effectiveOverride {
				child.Status = locked.Status
			}
		}

		if err := s.orders.Create(ctx, child); err != nil {
			return fmt.Errorf("create add-on order: %w", err)
		}
		if err := s.orders.SaveLines(ctx, child.ID, child.Lines); err != nil {
			return fmt.Errorf("save add-on lines: %w", err)
		}
		if err := s.links.Create(ctx, link); err != nil {
			return fmt.Errorf("create link: %w", err)
		}

		if err := s.consolidate(ctx, locked); err != nil {
			return err
		}

		action := "created"
		if effectiveOverride {
			action = "created_override"
		}
		changes := map[string]any{
			"after":  child.Snapshot(),
			"parent": parent.Number,
			"reason": input.Reason,
		}
		if effectiveOverride {
			changes["override_note"] = link.OverrideNote
			changes["parent_status"] = string(locked.Status)
		}
		if err := s.audit.LogChange(ctx, EntityType, link.ID, action, changes); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		return s.events.Publish(ctx, domain.DomainEvent{
			AggregateType: order.EntityType,
			AggregateID:   child.ID,
			EventType:     "order.addon_created",
			Payload: map[string]any{
				"number":        child.Number,
				"parent_number": parent.Number,
				"subtotal":      child.Subtotal.String(),
				"override":      effectiveOverride,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "add-on order created",
		"id", child.ID,
		"number", child.Number,
		"parent_number", parent.Number,
		"override", effectiveOverride)

	return child, nil
}

// checkWindow enforces the add-on window and the admin bypass.
// Returns whether the bypass was actually used.
func (s *Service) checkWindow(ctx context.Context, parent *order.Order, override bool) (bool, error) {
	if CanCreateAddon(parent.Status) {
		return false, nil
	}

	if !override {
		return false, apperror.NewBusinessRule(apperror.CodeAddonWindowClosed,
			fmt.Sprintf("Add-on window is closed for order in status %s", parent.Status)).
			WithDetail("parent", parent.Number).
			WithDetail("status", string(parent.Status))
	}

	if !CanAdminOverrideAddon(parent.Status) {
		return false, apperror.NewBusinessRule(apperror.CodeAddonWindowClosed,
			fmt.Sprintf("Add-on window cannot be overridden for order in status %s", parent.Status)).
			WithDetail("parent", parent.Number).
			WithDetail("status", string(parent.Status))
	}

	if err := security.RequireAdmin(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// buildChild constructs the add-on order from the request.
// Add-ons to parents already in fulfillment skip quoting and enter the
// production queue directly; an override add-on takes the parent's
// current status so it joins the pipeline at the parent's stage.
func (s *Service) buildChild(parent *order.Order, input CreateInput, override bool) *order.Order {
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		name = parent.CustomerName
	}

	child := order.New(parent.BrandID, name)
	parentID := parent.ID
	child.ParentOrderID = &parentID
	child.RequiresLabels = parent.RequiresLabels
	child.Comment = input.Reason

	switch {
	case override:
		child.Status = parent.Status
	case parent.Status.PipelinePosition() > order.StatusQuoted.PipelinePosition():
		child.Status = order.StatusInQueue
	}

	for _, l := range input.Lines {
		child.AddLine(l.SKUCode, l.BatchPrefix, l.BottleQty, l.UnitPrice)
	}
	return child
}

// consolidate recomputes and persists the parent's consolidated total
// from its current add-ons, then pushes the new total onto the unpaid
// final invoice. Must run inside a transaction with the parent locked.
func (s *Service) consolidate(ctx context.Context, parent *order.Order) error {
	addons, err := s.orders.GetAddonOrders(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("load add-ons: %w", err)
	}

	before := parent.Snapshot()
	total := ConsolidatedTotal(parent, addons)
	parent.ConsolidatedTotal = &total
	if actor := security.GetUserID(ctx); actor != "" {
		parent.UpdatedBy = actor
	}

	if err := s.orders.Update(ctx, parent); err != nil {
		return fmt.Errorf("update consolidated total: %w", err)
	}

	if _, err := s.invoices.SyncConsolidatedTotal(ctx, parent); err != nil {
		return fmt.Errorf("sync invoice: %w", err)
	}

	return s.audit.LogChange(ctx, order.EntityType, parent.ID, "consolidated", map[string]any{
		"before":      before,
		"after":       parent.Snapshot(),
		"addon_count": len(addons),
	})
}

// ConsolidatedTotal is the parent subtotal plus every linked add-on
// subtotal, regardless of the add-ons' statuses. Cancelled add-ons are
// excluded.
func ConsolidatedTotal(parent *order.Order, addons []*order.Order) types.Money {
	total := parent.Subtotal
	for _, a := range addons {
		if a.Status == order.StatusCancelled || a.DeletionMark {
			continue
		}
		total = total.Add(a.Subtotal)
	}
	return total
}

// Recalculate recomputes the parent's consolidated total from scratch.
// Used after an add-on is cancelled or corrected.
func (s *Service) Recalculate(ctx context.Context, parentID id.ID) (*order.Order, error) {
	var parent *order.Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		parent, err = s.orders.GetForUpdate(ctx, parentID)
		if err != nil {
			return err
		}
		return s.consolidate(ctx, parent)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "consolidated total recalculated",
		"id", parent.ID,
		"number", parent.Number,
		"consolidated_total", parent.ConsolidatedTotal)

	return parent, nil
}

// CheckWindow reports whether an add-on may currently be created
// against the parent, and whether an admin could override. Read-only,
// for UI gating.
func (s *Service) CheckWindow(ctx context.Context, parentID id.ID) (*WindowStatus, error) {
	parent, err := s.orders.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	return &WindowStatus{
		ParentNumber: parent.Number,
		ParentStatus: parent.Status,
		Open:         CanCreateAddon(parent.Status),
		Overridable:  CanAdminOverrideAddon(parent.Status),
	}, nil
}

// WindowStatus is the add-on window state of a parent order.
type WindowStatus struct {
	ParentNumber string       `json:"parentNumber"`
	ParentStatus order.Status `json:"parentStatus"`
	Open         bool         `json:"open"`
	Overridable  bool         `json:"overridable"`
}

// Consolidation is the consolidated view of a parent order.
type Consolidation struct {
	Parent            *order.Order   `json:"parent"`
	Addons            []*order.Order `json:"addons"`
	Links             []*Link        `json:"links"`
	ConsolidatedTotal types.Money    `json:"consolidatedTotal"`
}

// GetConsolidation returns the parent with its add-ons, links, and the
// current consolidated total.
func (s *Service) GetConsolidation(ctx context.Context, parentID id.ID) (*Consolidation, error) {
	parent, err := s.orders.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	addons, err := s.orders.GetAddonOrders(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("load add-ons: %w", err)
	}

	links, err := s.links.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}

	return &Consolidation{
		Parent:            parent,
		Addons:            addons,
		Links:             links,
		ConsolidatedTotal: ConsolidatedTotal(parent, addons),
	}, nil
}
