package handlers

import (
	"github.com/gin-gonic/gin"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/batch"
	"bottleworks/internal/infrastructure/http/v1/dto"
)

// BatchHandler handles production batch endpoints.
type BatchHandler struct {
	*BaseHandler
	service *batch.Service
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, service *batch.Service) *BatchHandler {
	return &BatchHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Plan handles POST /orders/:id/batches
func (h *BatchHandler) Plan(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PlanBatchesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	plans, err := req.ToInputs()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid line id").WithDetail("error", err.Error()))
		return
	}

	batches, err := h.service.PlanBatches(ctx, orderID, plans)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, gin.H{"items": batches})
}

// QuickPlan handles POST /orders/:id/batches/quick-plan
// Creates one batch per line covering the unallocated remainder.
func (h *BatchHandler) QuickPlan(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	batches, err := h.service.QuickPlan(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, gin.H{"items": batches})
}

// AllocationReport handles GET /orders/:id/allocation
func (h *BatchHandler) AllocationReport(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	report, err := h.service.AllocationReport(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// Backfill handles POST /orders/:id/allocation/backfill (admin only).
// Materializes prefix-inferred allocations into explicit batch items.
func (h *BatchHandler) Backfill(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	created, err := h.service.BackfillAllocations(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"created": created})
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetByID(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, b)
}

// Split handles POST /batches/:id/split
func (h *BatchHandler) Split(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SplitBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batches, err := h.service.Split(ctx, batchID, req.Quantities)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": batches})
}

// Merge handles POST /batches/:id/merge
func (h *BatchHandler) Merge(c *gin.Context) {
	ctx := c.Request.Context()

	targetID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.MergeBatchesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sourceIDs := make([]id.ID, 0, len(req.SourceIDs))
	for _, s := range req.SourceIDs {
		parsed, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid source batch id").WithDetail("id", s))
			return
		}
		sourceIDs = append(sourceIDs, parsed)
	}

	merged, err := h.service.Merge(ctx, targetID, sourceIDs)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, merged)
}

// CompleteStep handles POST /batches/:id/steps/complete
func (h *BatchHandler) CompleteStep(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CompleteStepRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.CompleteStep(ctx, batchID, req.Kind)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, b)
}

// RecordOutput handles POST /batches/:id/output
func (h *BatchHandler) RecordOutput(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordOutputRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.RecordOutput(ctx, batchID, req.GoodQty, req.ScrapQty)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, b)
}

// Cancel handles POST /batches/:id/cancel
func (h *BatchHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.Cancel(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, b)
}

// List handles GET /batches
func (h *BatchHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := batch.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "number")

	if prefix := c.Query("skuPrefix"); prefix != "" {
		filter.SKUPrefix = &prefix
	}

	if status := c.Query("status"); status != "" {
		st := batch.Status(status)
		filter.Status = &st
	}

	if orderID := c.Query("orderId"); orderID != "" {
		if parsed, err := id.Parse(orderID); err == nil {
			filter.OrderID = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterOrderRoutes registers the order-scoped batch routes.
func (h *BatchHandler) RegisterOrderRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/batches", h.Plan)
	rg.POST("/:id/batches/quick-plan", h.QuickPlan)
	rg.GET("/:id/allocation", h.AllocationReport)
	rg.POST("/:id/allocation/backfill", h.Backfill)
}

// RegisterRoutes registers standalone batch routes.
func (h *BatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/split", h.Split)
	rg.POST("/:id/merge", h.Merge)
	rg.POST("/:id/steps/complete", h.CompleteStep)
	rg.POST("/:id/output", h.RecordOutput)
	rg.POST("/:id/cancel", h.Cancel)
}
