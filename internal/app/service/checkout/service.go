package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/artsarchive/giving/internal/app/service/payment"
	"github.com/artsarchive/giving/internal/app/service/receipt"
	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

// Gateway is the slice of the payment client checkout needs. Every call
// carries the environment it targets; the client holds no switchable state.
type Gateway interface {
	IsReady() bool
	CreatePayment(ctx context.Context, env string, req *cybersource.CreatePaymentRequest) (*cybersource.PaymentResponse, error)
	GetTransaction(ctx context.Context, env, id string) (*cybersource.TransactionDetails, error)
}

// Store persists checkout outcomes.
type Store interface {
	Create(ctx context.Context, rec *models.PaymentRecord) error
}

// ReceiptSender delivers or queues a receipt for a recorded payment.
type ReceiptSender interface {
	TrySendReceipt(ctx context.Context, gw receipt.Gateway, rec *models.PaymentRecord, mailKey, toOverride string) bool
}

var ErrClientNotReady = errors.New("checkout: payment client is not ready")

// Result reports a completed checkout. Declined outcomes carry a
// payer-facing message and are never persisted.
type Result struct {
	PaymentRecordID uint   `json:"payment_record_id,omitempty"`
	UUID            string `json:"uuid,omitempty"`
	Code            string `json:"code"`
	Status          string `json:"status"`
	Declined        bool   `json:"declined"`
	Message         string `json:"message,omitempty"`
}

// Service orchestrates one checkout submission: validate, exchange the
// transient token for a charge, interpret the outcome, persist the record,
// and hand off receipt delivery.
type Service struct {
	cfg      *cfgpkg.Config
	log      *zap.SugaredLogger
	gateway  Gateway
	store    Store
	receipts ReceiptSender
}

func NewService(cfg *cfgpkg.Config, log *zap.SugaredLogger, client *cybersource.Client, store *payment.Store, receipts *receipt.Service) *Service {
	return &Service{cfg: cfg, log: log, gateway: client, store: store, receipts: receipts}
}

// declineMessage maps a decline-family status to the payer-facing message.
func declineMessage(status string) string {
	switch status {
	case cybersource.StatusInvalidRequest:
		return "Your payment request was invalid."
	case cybersource.StatusServerError:
		return "The payment processor reported an error. Please try again later."
	default:
		return "Your payment request was declined."
	}
}

// generateCode builds the human-facing order reference. There is no
// collision check; the keyspace makes duplicates unlikely, not impossible.
func generateCode(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, 1000+rand.IntN(9000), 1000+rand.IntN(9000))
}

// Checkout runs the full submission flow. Local validation failures return a
// *ValidationError before any gateway call; gateway transport failures
// return a *cybersource.APIError; decline outcomes return a Result with
// Declined set and nothing persisted.
func (s *Service) Checkout(ctx context.Context, sub *Submission) (*Result, error) {
	if !s.gateway.IsReady() {
		return nil, ErrClientNotReady
	}

	if verr := sub.checkRequiredFields(); verr != nil {
		return nil, verr
	}

	amount, err := normalizeAmount(sub.Amount)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Message: "please specify an amount"}
	}

	if sub.Token == "" {
		return nil, &ValidationError{Field: "token", Message: "no payment detected"}
	}

	environment := s.cfg.FormEnvironment(sub.FormID)
	code := generateCode(s.cfg.FormCodePrefix(sub.FormID))

	billTo := sub.billTo()
	order := cybersource.OrderInformation{
		AmountDetails: cybersource.AmountDetails{TotalAmount: amount, Currency: "USD"},
		BillTo:        billTo,
	}

	req := &cybersource.CreatePaymentRequest{
		ClientReferenceInformation: cybersource.ClientReferenceInformation{Code: code},
		TokenInformation:           &cybersource.TokenInformation{TransientTokenJWT: sub.Token},
	}

	if sub.Recurring {
		// First charge of a card-on-file series: request tokens, derive the
		// shipping address from billing.
		req.ProcessingInformation = cybersource.NewProcessingOptions("")
		order.ShipTo = billTo.ShipTo()
	}
	req.OrderInformation = order

	info, detailLines := sub.merchantDefinedInfo()
	req.MerchantDefinedInformation = info

	resp, err := s.gateway.CreatePayment(ctx, environment, req)
	if err != nil {
		s.log.Warnw("payment creation failed", "code", code, "err", err)
		return nil, err
	}

	if cybersource.IsDeclineStatus(resp.Status) {
		if resp.ErrorInformation != nil {
			s.log.Warnw("payment declined", "code", code, "status", resp.Status, "message", resp.ErrorInformation.Message)
		} else {
			s.log.Warnw("payment declined", "code", code, "status", resp.Status)
		}
		return &Result{
			Code:     code,
			Status:   resp.Status,
			Declined: true,
			Message:  declineMessage(resp.Status),
		}, nil
	}

	submitted := resp.SubmitTime()
	paymentID := resp.ID
	rec := &models.PaymentRecord{
		Code:             code,
		PaymentID:        &paymentID,
		AuthorizedAmount: amount,
		Currency:         "USD",
		Status:           resp.Status,
		Recurring:        sub.Recurring,
		RecurringActive:  false,
		RecurringMax:     s.cfg.Recurring.MaxCharges,
		Environment:      environment,
		OrderDetailsLong: joinDetails(detailLines),
		SubmittedAt:      &submitted,
	}

	if sub.Recurring {
		if customerID := resp.CustomerID(); customerID != "" {
			rec.CustomerID = &customerID
		}
		rec.RecurringActive = true
		next := submitted.AddDate(0, 1, 0)
		rec.RecurringNext = &next
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Infow("payment recorded", "code", code, "status", resp.Status, "recurring", sub.Recurring)

	// PII now lives only in the gateway's tokens.
	sub.Sanitize()

	s.scheduleReceipt(rec, sub.FormID, sub.Email)

	return &Result{
		PaymentRecordID: rec.ID,
		UUID:            rec.UUID,
		Code:            code,
		Status:          resp.Status,
	}, nil
}

// scheduleReceipt delivers the receipt off the request path after waiting
// out the gateway's read-after-write lag.
func (s *Service) scheduleReceipt(rec *models.PaymentRecord, formID, to string) {
	if s.receipts == nil {
		return
	}

	delay := s.cfg.Receipt.SendDelay
	go func() {
		time.Sleep(delay)
		s.receipts.TrySendReceipt(context.Background(), s.gateway, rec, formID+"_receipt", to)
	}()
}

func joinDetails(lines []string) string {
	return strings.Join(lines, "; ")
}
