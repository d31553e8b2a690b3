package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/artsarchive/giving/internal/app/service/payment"
	"github.com/artsarchive/giving/internal/app/service/receipt"
	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	"github.com/artsarchive/giving/pkg/response"
)

// PaymentItem is the admin-facing projection of a payment record. Tokenized
// gateway references are included; there is no PII to redact because none
// is stored.
type PaymentItem struct {
	ID               uint       `json:"id"`
	UUID             string     `json:"uuid"`
	Code             string     `json:"code"`
	PaymentID        *string    `json:"payment_id"`
	CustomerID       *string    `json:"customer_id"`
	AuthorizedAmount string     `json:"authorized_amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	Recurring        bool       `json:"recurring"`
	RecurringActive  bool       `json:"recurring_active"`
	RecurringMax     int        `json:"recurring_max"`
	RecurringNext    *time.Time `json:"recurring_next"`
	ChargeCount      int        `json:"charge_count"`
	ParentID         *uint      `json:"parent_id"`
	Environment      string     `json:"environment"`
	OrderDetailsLong string     `json:"order_details_long"`
	DonationType     string     `json:"donation_type"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toPaymentItem(m *models.PaymentRecord) *PaymentItem {
	return &PaymentItem{
		ID:               m.ID,
		UUID:             m.UUID,
		Code:             m.Code,
		PaymentID:        m.PaymentID,
		CustomerID:       m.CustomerID,
		AuthorizedAmount: m.AuthorizedAmount,
		Currency:         m.Currency,
		Status:           m.Status,
		Recurring:        m.Recurring,
		RecurringActive:  m.RecurringActive,
		RecurringMax:     m.RecurringMax,
		RecurringNext:    m.RecurringNext,
		ChargeCount:      m.ChargeCount(),
		ParentID:         m.ParentID,
		Environment:      m.Environment,
		OrderDetailsLong: m.OrderDetailsLong,
		DonationType:     string(m.DonationType()),
		SubmittedAt:      m.SubmittedAt,
		CreatedAt:        m.CreatedAt,
	}
}

type ListPaymentsResponse struct {
	Items []*PaymentItem `json:"items"`
	Total int64          `json:"total"`
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payment records.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body payment.ListRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/payments/list [post]
func ApiListPayments(store *payment.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := store.List(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(m *models.PaymentRecord, _ int) *PaymentItem { return toPaymentItem(m) })
		c.JSON(http.StatusOK, response.OKT(&ListPaymentsResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      Payment Statistics (Admin)
// @Description  Aggregates record counts and authorized amounts by gateway status.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespPaymentStats
// @Router       /api/v1/admin/payments/stats [get]
func ApiPaymentStats(store *payment.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

type ResendReceiptRequest struct {
	// To overrides the bill-to recipient when set.
	To string `json:"to"`
}

type ResendReceiptResponse struct {
	Sent bool `json:"sent"`
}

// @Summary      Re-send a receipt (Admin)
// @Description  Attempts receipt delivery for a payment record; failures are queued for retry.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id       path  int  true  "Payment record id"
// @Param        request  body  handlers.ResendReceiptRequest  false  "Optional recipient override"
// @Success      200  {object}  handlers.RespResendReceipt
// @Router       /api/v1/admin/payments/{id}/receipt [post]
func ApiResendReceipt(store *payment.Store, receipts *receipt.Service, client *cybersource.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid payment record id"))
			return
		}

		var req ResendReceiptRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
		}

		rec, err := store.GetByID(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		sent := receipts.TrySendReceipt(c.Request.Context(), client, rec, "admin_receipt", req.To)
		c.JSON(http.StatusOK, response.OKT(&ResendReceiptResponse{Sent: sent}))
	}
}

// @Summary      Customer token lookup (Admin)
// @Description  Fetches the gateway's tokenized customer record backing a recurring series.
// @Tags         Admin
// @Produce      json
// @Param        id  path  int  true  "Payment record id"
// @Success      200  {object}  handlers.RespCustomer
// @Router       /api/v1/admin/payments/{id}/customer [get]
func ApiGetCustomer(store *payment.Store, client *cybersource.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid payment record id"))
			return
		}

		rec, err := store.GetByID(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if rec.CustomerID == nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "payment record has no stored customer"))
			return
		}

		cust, err := client.GetCustomer(c.Request.Context(), rec.Environment, *rec.CustomerID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(cust))
	}
}

func RegisterAdminRoutes(r gin.IRouter, store *payment.Store, receipts *receipt.Service, client *cybersource.Client) {
	r.POST("/payments/list", ApiListPayments(store))
	r.GET("/payments/stats", ApiPaymentStats(store))
	r.POST("/payments/:id/receipt", ApiResendReceipt(store, receipts, client))
	r.GET("/payments/:id/customer", ApiGetCustomer(store, client))
}
