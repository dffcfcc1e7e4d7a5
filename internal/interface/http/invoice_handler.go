package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/pkg/response"
	"github.com/oksasatya/go-ddd-billing/pkg/validation"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*entity.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	ListInvoices(ctx context.Context, filter entity.InvoiceFilter, limit, offset int) ([]entity.Invoice, int64, error)
	RequestPayment(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
}

type InvoiceHandler struct {
	Svc    InvoiceService
	Logger *logrus.Logger
}

func NewInvoiceHandler(svc InvoiceService, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc, Logger: logger}
}

type createInvoiceRequest struct {
	UserID string           `json:"user_id" binding:"required,uuid"`
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type invoiceListQuery struct {
	pageQuery
	UserID string `form:"user_id" binding:"omitempty,uuid"`
}

type invoiceResponse struct {
	ID        uuid.UUID            `json:"id"`
	UserID    uuid.UUID            `json:"user_id"`
	Amount    string               `json:"amount"`
	Status    entity.InvoiceStatus `json:"status"`
	PaidAt    *time.Time           `json:"paid_at"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func toInvoiceResponse(inv *entity.Invoice) *invoiceResponse {
	if inv == nil {
		return nil
	}
	return &invoiceResponse{
		ID:        inv.ID,
		UserID:    inv.UserID,
		Amount:    inv.Amount.StringFixed(2),
		Status:    inv.Status,
		PaidAt:    inv.PaidAt,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload", validation.ToDetails(err))
		return
	}
	inv, err := h.Svc.CreateInvoice(c.Request.Context(), uuid.MustParse(req.UserID), *req.Amount)
	if err != nil {
		respondError(c, h.Logger, err, toInvoiceResponse(inv))
		return
	}
	response.Success(c, http.StatusCreated, toInvoiceResponse(inv), "invoice created", nil)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	var q invoiceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", validation.ToDetails(err))
		return
	}
	var filter entity.InvoiceFilter
	if q.UserID != "" {
		uid := uuid.MustParse(q.UserID)
		filter.UserID = &uid
	}
	invoices, total, err := h.Svc.ListInvoices(c.Request.Context(), filter, q.limit(), q.offset())
	if err != nil {
		respondError[any](c, h.Logger, err, nil)
		return
	}
	out := make([]*invoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i]))
	}
	response.Success(c, http.StatusOK, out, "invoices fetched", response.NewPagination(q.Page, q.PageSize, total))
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.Svc.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError[any](c, h.Logger, err, nil)
		return
	}
	response.Success(c, http.StatusOK, toInvoiceResponse(inv), "invoice fetched", nil)
}

func (h *InvoiceHandler) RequestPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.Svc.RequestPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err, toInvoiceResponse(inv))
		return
	}
	response.Success(c, http.StatusOK, toInvoiceResponse(inv), "payment requested", nil)
}
