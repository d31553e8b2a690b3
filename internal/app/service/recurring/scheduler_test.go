package recurring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/artsarchive/giving/internal/app/service/receipt"
	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

type fakeGateway struct {
	ready bool

	resp    *cybersource.PaymentResponse
	err     error
	lastReq *cybersource.CreatePaymentRequest
	lastEnv string
	calls   int
}

func (g *fakeGateway) IsReady() bool { return g.ready }

func (g *fakeGateway) CreatePayment(ctx context.Context, env string, req *cybersource.CreatePaymentRequest) (*cybersource.PaymentResponse, error) {
	g.calls++
	g.lastEnv = env
	g.lastReq = req
	return g.resp, g.err
}

func (g *fakeGateway) GetTransaction(ctx context.Context, env, id string) (*cybersource.TransactionDetails, error) {
	return nil, cybersource.ErrTransactionNotFound
}

type fakeStore struct {
	due     []*models.PaymentRecord
	created []*models.PaymentRecord
	saved   []*models.PaymentRecord
	nextID  uint
}

func (s *fakeStore) ListDueRecurring(ctx context.Context, now time.Time) ([]*models.PaymentRecord, error) {
	return s.due, nil
}

func (s *fakeStore) Create(ctx context.Context, rec *models.PaymentRecord) error {
	s.nextID++
	rec.ID = s.nextID + 100
	s.created = append(s.created, rec)
	return nil
}

func (s *fakeStore) Save(ctx context.Context, rec *models.PaymentRecord) error {
	s.saved = append(s.saved, rec)
	return nil
}

type fakeReceipts struct {
	codes []string
	keys  []string
}

func (r *fakeReceipts) SendReceipt(ctx context.Context, gw receipt.Gateway, rec *models.PaymentRecord, mailKey, toOverride string) error {
	r.codes = append(r.codes, rec.Code)
	r.keys = append(r.keys, mailKey)
	return nil
}

func seriesRoot() *models.PaymentRecord {
	pid := "tx-root"
	cid := "cust-1"
	next := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &models.PaymentRecord{
		ID:                1,
		Code:              "AAA-1111-2222",
		PaymentID:         &pid,
		CustomerID:        &cid,
		AuthorizedAmount:  "50.00",
		Currency:          "USD",
		Status:            cybersource.StatusAuthorized,
		Recurring:         true,
		RecurringActive:   true,
		RecurringMax:      12,
		RecurringNext:     &next,
		RecurringPayments: datatypes.JSONSlice[uint]{101},
		Environment:       "production",
	}
}

func newTestScheduler(gw *fakeGateway, store *fakeStore, receipts ReceiptSender) *Scheduler {
	return &Scheduler{
		cfg: &cfgpkg.Config{
			Receipt:   cfgpkg.ReceiptConfig{SendDelay: 0},
			Recurring: cfgpkg.RecurringConfig{Interval: time.Hour, MaxCharges: 12},
		},
		log:      zap.NewNop().Sugar(),
		gateway:  gw,
		store:    store,
		receipts: receipts,
	}
}

func TestTick_MaxReachedDisablesWithoutCharge(t *testing.T) {
	parent := seriesRoot()
	parent.RecurringMax = 2

	gw := &fakeGateway{ready: true}
	store := &fakeStore{due: []*models.PaymentRecord{parent}}
	sched := newTestScheduler(gw, store, nil)

	sched.Tick(context.Background(), time.Now())

	require.Zero(t, gw.calls)
	require.False(t, parent.RecurringActive)
	require.Len(t, store.saved, 1)
	require.Empty(t, store.created)
}

func TestTick_BillsDueSeries(t *testing.T) {
	parent := seriesRoot()
	gw := &fakeGateway{ready: true, resp: &cybersource.PaymentResponse{
		ID:            "tx-child",
		SubmitTimeUTC: "2026-03-15T08:30:00Z",
		Status:        cybersource.StatusAuthorized,
	}}
	store := &fakeStore{due: []*models.PaymentRecord{parent}}
	receipts := &fakeReceipts{}
	sched := newTestScheduler(gw, store, receipts)

	sched.Tick(context.Background(), time.Now())

	require.Equal(t, "production", gw.lastEnv)
	require.Equal(t, 1, gw.calls)

	req := gw.lastReq
	require.Equal(t, "AAA-1111-2222-2", req.ClientReferenceInformation.Code)
	require.Equal(t, "50.00", req.OrderInformation.AmountDetails.TotalAmount)
	require.Equal(t, "cust-1", req.PaymentInformation.Customer.CustomerID)
	require.True(t, req.ProcessingInformation.AuthorizationOptions.Initiator.StoredCredentialUsed)
	require.Equal(t, "tx-root", req.ProcessingInformation.AuthorizationOptions.Initiator.MerchantInitiatedTransaction.PreviousTransactionID)
	require.Nil(t, req.TokenInformation)

	require.Len(t, store.created, 1)
	child := store.created[0]
	require.Equal(t, "AAA-1111-2222-2", child.Code)
	require.False(t, child.Recurring)
	require.False(t, child.RecurringActive)
	require.NotNil(t, child.ParentID)
	require.Equal(t, parent.ID, *child.ParentID)
	require.Equal(t, "tx-child", child.GatewayPaymentID())

	require.Len(t, store.saved, 1)
	require.Contains(t, []uint(parent.RecurringPayments), child.ID)
	require.True(t, parent.RecurringActive)
	require.NotNil(t, parent.RecurringNext)
	require.Equal(t, time.Date(2026, 4, 15, 8, 30, 0, 0, time.UTC), *parent.RecurringNext)

	require.Equal(t, []string{"AAA-1111-2222-2"}, receipts.codes)
	require.Equal(t, []string{"recurring_receipt"}, receipts.keys)
}

func TestTick_GatewayErrorLeavesStateUntouched(t *testing.T) {
	parent := seriesRoot()
	before := *parent.RecurringNext

	gw := &fakeGateway{ready: true, err: &cybersource.APIError{StatusCode: 502, Message: "bad gateway"}}
	store := &fakeStore{due: []*models.PaymentRecord{parent}}
	sched := newTestScheduler(gw, store, nil)

	sched.Tick(context.Background(), time.Now())

	require.Equal(t, 1, gw.calls)
	require.Empty(t, store.created)
	require.Empty(t, store.saved)
	require.True(t, parent.RecurringActive)
	require.Equal(t, before, *parent.RecurringNext)
	require.Len(t, parent.RecurringPayments, 1)
}

func TestTick_DeclineSkipsCycle(t *testing.T) {
	parent := seriesRoot()
	gw := &fakeGateway{ready: true, resp: &cybersource.PaymentResponse{ID: "tx-x", Status: cybersource.StatusDeclined}}
	store := &fakeStore{due: []*models.PaymentRecord{parent}}
	sched := newTestScheduler(gw, store, nil)

	sched.Tick(context.Background(), time.Now())

	require.Empty(t, store.created)
	require.Empty(t, store.saved)
	require.True(t, parent.RecurringActive)
}

func TestTick_FinalChargeDeactivatesSeries(t *testing.T) {
	parent := seriesRoot()
	parent.RecurringMax = 3

	gw := &fakeGateway{ready: true, resp: &cybersource.PaymentResponse{
		ID:            "tx-final",
		SubmitTimeUTC: "2026-03-15T08:30:00Z",
		Status:        cybersource.StatusAuthorized,
	}}
	store := &fakeStore{due: []*models.PaymentRecord{parent}}
	sched := newTestScheduler(gw, store, nil)

	sched.Tick(context.Background(), time.Now())

	require.Len(t, store.created, 1)
	require.False(t, parent.RecurringActive)
	require.Nil(t, parent.RecurringNext)
	require.Len(t, parent.RecurringPayments, 2)
}

func TestTick_NotReadySkips(t *testing.T) {
	parent := seriesRoot()
	gw := &fakeGateway{ready: false}
	store := &fakeStore{due: []*models.PaymentRecord{parent}}
	sched := newTestScheduler(gw, store, nil)

	sched.Tick(context.Background(), time.Now())

	require.Zero(t, gw.calls)
	require.Empty(t, store.saved)
	require.True(t, parent.RecurringActive)
}
