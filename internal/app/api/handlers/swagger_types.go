package handlers

import (
	"github.com/artsarchive/giving/internal/app/service/checkout"
	"github.com/artsarchive/giving/internal/app/service/payment"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	"github.com/artsarchive/giving/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCheckout wraps a checkout result in the standard envelope.
type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    checkout.Result          `json:"data"`
}

// RespCaptureContext wraps the flex capture key in the standard envelope.
type RespCaptureContext struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    map[string]string        `json:"data"`
}

// RespListPayments wraps ListPaymentsResponse in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListPaymentsResponse     `json:"data"`
}

// RespPaymentStats wraps the status aggregation in the standard envelope.
type RespPaymentStats struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []*payment.StatusStat    `json:"data"`
}

// RespResendReceipt wraps ResendReceiptResponse in the standard envelope.
type RespResendReceipt struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ResendReceiptResponse    `json:"data"`
}

// RespCustomer wraps a tokenized customer record in the standard envelope.
type RespCustomer struct {
	Code    response.APIResponseCode      `json:"code"`
	Message string                        `json:"message"`
	Data    *cybersource.CustomerResponse `json:"data"`
}
