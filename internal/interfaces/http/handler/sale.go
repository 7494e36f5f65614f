package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/pharmapos/backend/internal/application/identity"
	salesapp "github.com/pharmapos/backend/internal/application/sales"
	"github.com/pharmapos/backend/internal/infrastructure/logger"
	"github.com/pharmapos/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// CashierDirectory resolves the display name printed on receipts
type CashierDirectory interface {
	Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserInfo, error)
}

// SaleHandler handles checkout and sale history endpoints
type SaleHandler struct {
	BaseHandler
	saleService *salesapp.SaleService
	cashiers    CashierDirectory
}

// NewSaleHandler creates a new SaleHandler. cashiers may be nil, in which case the
// token email is used as the cashier name.
func NewSaleHandler(saleService *salesapp.SaleService, cashiers CashierDirectory) *SaleHandler {
	return &SaleHandler{saleService: saleService, cashiers: cashiers}
}

// Checkout godoc
// @ID           checkout
// @Summary      Checkout
// @Description  Completes a sale atomically: stock is deducted, movements are written and a receipt number is issued
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body salesapp.CheckoutRequest true "Cart"
// @Success      201 {object} APIResponse[salesapp.SaleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales [post]
func (h *SaleHandler) Checkout(c *gin.Context) {
	cashier, ok := h.cashier(c)
	if !ok {
		return
	}
	var req salesapp.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sale, err := h.saleService.Checkout(c.Request.Context(), cashier, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sale)
}

func (h *SaleHandler) cashier(c *gin.Context) (salesapp.Cashier, bool) {
	id, ok := h.currentUserID(c)
	if !ok {
		return salesapp.Cashier{}, false
	}
	cashier := salesapp.Cashier{ID: id}
	if claims := middleware.GetJWTClaims(c); claims != nil {
		cashier.Name = claims.Email
	}
	if h.cashiers == nil {
		return cashier, true
	}
	info, err := h.cashiers.Me(c.Request.Context(), id)
	if err != nil {
		logger.L(c.Request.Context()).Warn("Cashier lookup failed, using token email", zap.Error(err))
		return cashier, true
	}
	if info.FullName != "" {
		cashier.Name = info.FullName
	}
	return cashier, true
}

// GetByID godoc
// @ID           getSale
// @Summary      Get sale
// @Tags         sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} APIResponse[salesapp.SaleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id} [get]
func (h *SaleHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// GetByReceiptNumber godoc
// @ID           getSaleByReceipt
// @Summary      Find sale by receipt number
// @Tags         sales
// @Produce      json
// @Param        number path string true "Receipt number" example(RCP-20240115-4F2A9C)
// @Success      200 {object} APIResponse[salesapp.SaleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/receipt/{number} [get]
func (h *SaleHandler) GetByReceiptNumber(c *gin.Context) {
	sale, err := h.saleService.GetByReceiptNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// List godoc
// @ID           listSales
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Param        search query string false "Receipt number or customer name"
// @Param        status query string false "Status" Enums(pending, completed, voided, refunded)
// @Param        payment_method query string false "Payment method" Enums(cash, card, mobile_money, insurance)
// @Param        cashier_id query string false "Cashier" format(uuid)
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]salesapp.SaleResponse]
// @Security     BearerAuth
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	var filter salesapp.SaleListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	cashierID, ok := h.queryUUID(c, "cashier_id")
	if !ok {
		return
	}
	customerID, ok := h.queryUUID(c, "customer_id")
	if !ok {
		return
	}
	filter.CashierID = cashierID
	filter.CustomerID = customerID

	sales, total, err := h.saleService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sales, total, filter.Page, filter.PageSize)
}

// Void godoc
// @ID           voidSale
// @Summary      Void sale
// @Description  Cancels a completed sale within the void window and returns its stock
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body salesapp.ReverseSaleRequest true "Reason"
// @Success      200 {object} APIResponse[salesapp.SaleResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/void [post]
func (h *SaleHandler) Void(c *gin.Context) {
	h.reverse(c, h.saleService.Void)
}

// Refund godoc
// @ID           refundSale
// @Summary      Refund sale
// @Description  Refunds a completed sale in full and returns its stock
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Param        request body salesapp.ReverseSaleRequest true "Reason"
// @Success      200 {object} APIResponse[salesapp.SaleResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/refund [post]
func (h *SaleHandler) Refund(c *gin.Context) {
	h.reverse(c, h.saleService.Refund)
}

type reverseFunc func(ctx context.Context, actorID, id uuid.UUID, req salesapp.ReverseSaleRequest) (*salesapp.SaleResponse, error)

func (h *SaleHandler) reverse(c *gin.Context, apply reverseFunc) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req salesapp.ReverseSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sale, err := apply(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Today godoc
// @ID           todaySales
// @Summary      Today's summary
// @Description  Sale count and revenue for the signed-in cashier today
// @Tags         sales
// @Produce      json
// @Success      200 {object} APIResponse[salesapp.TodaySummaryResponse]
// @Security     BearerAuth
// @Router       /sales/today [get]
func (h *SaleHandler) Today(c *gin.Context) {
	cashierID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	summary, err := h.saleService.TodaySummary(c.Request.Context(), cashierID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Receipt godoc
// @ID           saleReceipt
// @Summary      Sale receipt
// @Description  Renders the receipt as HTML, or as PDF when headless Chrome is configured
// @Tags         sales
// @Produce      html
// @Produce      application/pdf
// @Param        id path string true "Sale ID" format(uuid)
// @Param        format query string false "Output format" Enums(html, pdf) default(html)
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sales/{id}/receipt [get]
func (h *SaleHandler) Receipt(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	format := salesapp.ReceiptFormat(c.DefaultQuery("format", string(salesapp.ReceiptHTML)))
	var contentType string
	switch format {
	case salesapp.ReceiptHTML:
		contentType = "text/html; charset=utf-8"
	case salesapp.ReceiptPDF:
		contentType = "application/pdf"
	default:
		h.BadRequest(c, "format must be html or pdf")
		return
	}

	body, err := h.saleService.Receipt(c.Request.Context(), id, format)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if format == salesapp.ReceiptPDF {
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt-"+id.String()+".pdf"))
	}
	c.Data(http.StatusOK, contentType, body)
}
