package recurring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artsarchive/giving/internal/app/service/payment"
	"github.com/artsarchive/giving/internal/app/service/receipt"
	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

// Gateway is the slice of the payment client the scheduler needs. Every
// call targets the environment the series was opened in.
type Gateway interface {
	IsReady() bool
	CreatePayment(ctx context.Context, env string, req *cybersource.CreatePaymentRequest) (*cybersource.PaymentResponse, error)
	GetTransaction(ctx context.Context, env, id string) (*cybersource.TransactionDetails, error)
}

// Store is the record access the scheduler needs.
type Store interface {
	ListDueRecurring(ctx context.Context, now time.Time) ([]*models.PaymentRecord, error)
	Create(ctx context.Context, rec *models.PaymentRecord) error
	Save(ctx context.Context, rec *models.PaymentRecord) error
}

// ReceiptSender delivers the receipt for a freshly billed cycle.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, gw receipt.Gateway, rec *models.PaymentRecord, mailKey, toOverride string) error
}

// Scheduler bills active recurring series. Each tick charges every due
// series root once, using the stored customer token and the root
// transaction id for the merchant-initiated request.
//
// The query-then-update on recurringNext is not locked; overlapping ticks
// could double-bill a record. Tick intervals are expected to be far longer
// than a drain, so a single scheduler instance per deployment is assumed.
type Scheduler struct {
	cfg      *cfgpkg.Config
	log      *zap.SugaredLogger
	gateway  Gateway
	store    Store
	receipts ReceiptSender
}

func NewScheduler(cfg *cfgpkg.Config, log *zap.SugaredLogger, client *cybersource.Client, store *payment.Store, receipts *receipt.Service) *Scheduler {
	return &Scheduler{cfg: cfg, log: log, gateway: client, store: store, receipts: receipts}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Recurring.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick bills every series due at the given time.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	due, err := s.store.ListDueRecurring(ctx, now)
	if err != nil {
		s.log.Errorw("due recurring query failed", "err", err)
		return
	}

	for _, rec := range due {
		s.processSeries(ctx, rec)
	}
}

// processSeries runs one billing cycle for a series root. A gateway failure
// leaves the root untouched so the next tick retries it.
func (s *Scheduler) processSeries(ctx context.Context, parent *models.PaymentRecord) {
	chained := len(parent.RecurringPayments)

	if chained+1 >= parent.RecurringMax {
		s.log.Warnw("recurring series reached its charge limit", "code", parent.Code, "charges", chained+1)
		parent.RecurringActive = false
		if err := s.store.Save(ctx, parent); err != nil {
			s.log.Errorw("recurring series disable failed", "code", parent.Code, "err", err)
		}
		return
	}

	if !s.gateway.IsReady() {
		s.log.Errorw("payment client not ready, skipping recurring charge", "code", parent.Code)
		return
	}

	childCode := fmt.Sprintf("%s-%d", parent.Code, chained+1)
	req := &cybersource.CreatePaymentRequest{
		ClientReferenceInformation: cybersource.ClientReferenceInformation{Code: childCode},
		OrderInformation: cybersource.OrderInformation{
			AmountDetails: cybersource.AmountDetails{
				TotalAmount: parent.AuthorizedAmount,
				Currency:    parent.Currency,
			},
		},
		PaymentInformation: &cybersource.PaymentInformation{
			Customer: &cybersource.PaymentInformationCustomer{CustomerID: *parent.CustomerID},
		},
		ProcessingInformation: cybersource.NewProcessingOptions(parent.GatewayPaymentID()),
	}

	resp, err := s.gateway.CreatePayment(ctx, parent.Environment, req)
	if err != nil {
		s.log.Warnw("recurring charge failed, will retry next tick", "code", childCode, "err", err)
		return
	}

	if cybersource.IsDeclineStatus(resp.Status) {
		s.log.Warnw("recurring charge declined, will retry next tick", "code", childCode, "status", resp.Status)
		return
	}

	submitted := resp.SubmitTime()
	paymentID := resp.ID
	child := &models.PaymentRecord{
		Code:             childCode,
		PaymentID:        &paymentID,
		AuthorizedAmount: parent.AuthorizedAmount,
		Currency:         parent.Currency,
		Status:           resp.Status,
		Recurring:        false,
		RecurringActive:  false,
		RecurringMax:     parent.RecurringMax,
		ParentID:         &parent.ID,
		Environment:      parent.Environment,
		SubmittedAt:      &submitted,
	}
	if err := s.store.Create(ctx, child); err != nil {
		s.log.Errorw("recurring child record save failed", "code", childCode, "err", err)
		return
	}

	parent.RecurringPayments = append(parent.RecurringPayments, child.ID)
	if len(parent.RecurringPayments)+1 >= parent.RecurringMax {
		parent.RecurringActive = false
		parent.RecurringNext = nil
	} else {
		next := submitted.AddDate(0, 1, 0)
		parent.RecurringNext = &next
	}
	if err := s.store.Save(ctx, parent); err != nil {
		s.log.Errorw("recurring series update failed", "code", parent.Code, "err", err)
		return
	}

	s.log.Infow("recurring charge recorded", "code", childCode, "status", resp.Status, "charges", len(parent.RecurringPayments)+1)

	s.sendCycleReceipt(ctx, child)
}

// sendCycleReceipt waits out the gateway's read-after-write lag, then sends
// the receipt directly. There is no queue fallback here; a missed cycle
// receipt is logged and dropped.
func (s *Scheduler) sendCycleReceipt(ctx context.Context, child *models.PaymentRecord) {
	if s.receipts == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.Receipt.SendDelay):
	}

	if err := s.receipts.SendReceipt(ctx, s.gateway, child, "recurring_receipt", ""); err != nil {
		s.log.Warnw("recurring cycle receipt failed", "code", child.Code, "err", err)
	}
}
