package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-billing/internal/interface/http"
)

type InvoiceModule struct {
	Handler *handlers.InvoiceHandler
}

func NewInvoiceModule(h *handlers.InvoiceHandler) *InvoiceModule {
	return &InvoiceModule{Handler: h}
}

func (m *InvoiceModule) Register(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", m.Handler.Create)
		invoices.GET("", m.Handler.List)
		invoices.GET("/:id", m.Handler.Get)
		invoices.POST("/:id/request-payment", m.Handler.RequestPayment)
	}
}
