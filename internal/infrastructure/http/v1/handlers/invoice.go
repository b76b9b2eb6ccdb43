package handlers

import (
	"github.com/gin-gonic/gin"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/invoice"
	"bottleworks/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// IssueDeposit handles POST /orders/:id/invoices/deposit
func (h *InvoiceHandler) IssueDeposit(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.IssueDeposit(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, inv)
}

// IssueFinal handles POST /orders/:id/invoices/final
func (h *InvoiceHandler) IssueFinal(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.IssueFinal(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, inv)
}

// ListForOrder handles GET /orders/:id/invoices
// Runs the consolidation sync before returning, so a final invoice that
// lags behind a grown consolidated total is corrected on read.
func (h *InvoiceHandler) ListForOrder(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	invoices, err := h.service.ListForOrder(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": invoices})
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// RecordPayment handles POST /invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.RecordPayment(ctx, invoiceID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// MarkPaid handles POST /invoices/:id/mark-paid
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.MarkPaid(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// Void handles POST /invoices/:id/void (admin only).
func (h *InvoiceHandler) Void(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.Void(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-created_at")

	if orderID := c.Query("orderId"); orderID != "" {
		if parsed, err := id.Parse(orderID); err == nil {
			filter.OrderID = &parsed
		}
	}

	if invType := c.Query("type"); invType != "" {
		t := invoice.Type(invType)
		filter.Type = &t
	}

	if status := c.Query("status"); status != "" {
		st := invoice.Status(status)
		filter.Status = &st
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

// RegisterOrderRoutes registers the order-scoped invoice routes.
func (h *InvoiceHandler) RegisterOrderRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/invoices/deposit", h.IssueDeposit)
	rg.POST("/:id/invoices/final", h.IssueFinal)
	rg.GET("/:id/invoices", h.ListForOrder)
}

// RegisterRoutes registers standalone invoice routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/payments", h.RecordPayment)
	rg.POST("/:id/mark-paid", h.MarkPaid)
	rg.POST("/:id/void", h.Void)
}
