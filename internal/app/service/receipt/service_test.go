package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

type fakeGateway struct {
	tx  *cybersource.TransactionDetails
	err error

	// envs records the environment of every lookup, in order.
	envs []string
}

func (g *fakeGateway) GetTransaction(ctx context.Context, env, id string) (*cybersource.TransactionDetails, error) {
	g.envs = append(g.envs, env)
	return g.tx, g.err
}

type fakeMailer struct {
	err error

	key, to, subject, body string
	sends                  int
}

func (m *fakeMailer) SendMail(key, to, subject, body string) error {
	m.sends++
	m.key, m.to, m.subject, m.body = key, to, subject, body
	return m.err
}

type fakeQueue struct {
	jobs []*models.ReceiptJob
}

func (q *fakeQueue) Enqueue(ctx context.Context, job *models.ReceiptJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) HasPending(ctx context.Context, paymentRecordID uint) (bool, error) {
	for _, job := range q.jobs {
		if job.PaymentRecordID == paymentRecordID {
			return true, nil
		}
	}
	return false, nil
}

func sampleTransaction() *cybersource.TransactionDetails {
	return &cybersource.TransactionDetails{
		ID:            "tx-1",
		SubmitTimeUTC: "2026-03-15T08:30:00Z",
		OrderInformation: cybersource.TransactionOrderInformation{
			AmountDetails: cybersource.TransactionAmountDetails{TotalAmount: "50.00", AuthorizedAmount: "50", Currency: "USD"},
			BillTo: cybersource.BillTo{
				FirstName:          "Jane",
				LastName:           "Doe",
				Address1:           "1 Main St",
				Locality:           "New York",
				AdministrativeArea: "NY",
				PostalCode:         "10001",
				Email:              "jane@example.com",
				PhoneNumber:        "555-0100",
			},
		},
		PaymentInformation: cybersource.TransactionPaymentInformation{
			Card: cybersource.TransactionCard{Suffix: "1111", ExpirationMonth: "12", ExpirationYear: "2031", Type: "001"},
		},
	}
}

func donationRecord() *models.PaymentRecord {
	pid := "tx-1"
	return &models.PaymentRecord{
		ID:               7,
		Code:             "AAA-1234-5678",
		PaymentID:        &pid,
		AuthorizedAmount: "50.00",
		Currency:         "USD",
		Environment:      "development",
		OrderDetailsLong: "Direction of gift: Unrestricted; Recurring: monthly",
	}
}

func newTestService(mailer *fakeMailer, queue *fakeQueue) *Service {
	return &Service{cfg: &cfgpkg.Config{}, log: zap.NewNop().Sugar(), mailer: mailer, queue: queue}
}

func TestCardTypeName(t *testing.T) {
	require.Equal(t, "Visa", CardTypeName("001"))
	require.Equal(t, "Mastercard", CardTypeName("002"))
	require.Equal(t, "American Express", CardTypeName("003"))
	require.Equal(t, "Discover", CardTypeName("004"))
	require.Empty(t, CardTypeName("999"))
	require.Empty(t, CardTypeName(""))
}

func TestBuildEmailBody_Donation(t *testing.T) {
	body := buildEmailBody(donationRecord(), sampleTransaction())

	require.Contains(t, body, "Thank you for supporting the Arts Archive")
	require.NotContains(t, body, "Gala")
	require.Contains(t, body, "Date: March 15, 2026")
	require.Contains(t, body, "Order Number: AAA-1234-5678")
	require.Contains(t, body, "Jane Doe")
	require.Contains(t, body, "jane@example.com")
	require.Contains(t, body, "Card Type Visa")
	require.Contains(t, body, "Card Number xxxxxxxxxxxx1111")
	require.Contains(t, body, "Expiration 12-2031")
	require.Contains(t, body, "ORDER DETAILS")
	require.Contains(t, body, "Direction of gift: Unrestricted\n")
	require.Contains(t, body, "Recurring: monthly\n")
	require.Contains(t, body, "$ 50.00")
}

func TestBuildEmailBody_Gala(t *testing.T) {
	rec := donationRecord()
	rec.Code = "GALA24-1234-5678"
	rec.OrderDetailsLong = "Ticket 1: Jane Doe (Acme)"

	body := buildEmailBody(rec, sampleTransaction())
	require.Contains(t, body, "Arts Archive Gala")
	require.Contains(t, body, "Ticket 1: Jane Doe (Acme)")
}

func TestBuildEmailBody_NoDetailsSection(t *testing.T) {
	rec := donationRecord()
	rec.OrderDetailsLong = ""

	body := buildEmailBody(rec, sampleTransaction())
	require.NotContains(t, body, "ORDER DETAILS")
	require.Contains(t, body, "TOTAL AMOUNT")
}

func TestTrySendReceipt_Success(t *testing.T) {
	mailer := &fakeMailer{}
	queue := &fakeQueue{}
	svc := newTestService(mailer, queue)
	gw := &fakeGateway{tx: sampleTransaction()}

	sent := svc.TrySendReceipt(context.Background(), gw, donationRecord(), "donation_receipt", "")
	require.True(t, sent)
	require.Equal(t, 1, mailer.sends)
	require.Equal(t, "donation_receipt", mailer.key)
	require.Equal(t, "jane@example.com", mailer.to)
	require.Equal(t, Subject, mailer.subject)
	require.Empty(t, queue.jobs)
}

func TestTrySendReceipt_RecipientOverride(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer, &fakeQueue{})
	gw := &fakeGateway{tx: sampleTransaction()}

	sent := svc.TrySendReceipt(context.Background(), gw, donationRecord(), "admin_receipt", "audit@artsarchive.org")
	require.True(t, sent)
	require.Equal(t, "audit@artsarchive.org", mailer.to)
}

func TestTrySendReceipt_LookupFailureQueuesOnce(t *testing.T) {
	mailer := &fakeMailer{}
	queue := &fakeQueue{}
	svc := newTestService(mailer, queue)
	gw := &fakeGateway{err: cybersource.ErrTransactionNotFound}

	rec := donationRecord()
	rec.Environment = "production"

	sent := svc.TrySendReceipt(context.Background(), gw, rec, "donation_receipt", "someone@example.com")
	require.False(t, sent)
	require.Zero(t, mailer.sends)

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	require.Equal(t, uint(7), job.PaymentRecordID)
	require.Equal(t, "production", job.Environment)
	require.Equal(t, "donation_receipt", job.MailKey)
	require.Equal(t, "someone@example.com", job.RecipientOverride)

	// a second failed attempt while the job is still pending adds nothing
	require.False(t, svc.TrySendReceipt(context.Background(), gw, rec, "donation_receipt", "someone@example.com"))
	require.Len(t, queue.jobs, 1)
}

func TestTrySendReceipt_MailFailureQueuesOnce(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	queue := &fakeQueue{}
	svc := newTestService(mailer, queue)
	gw := &fakeGateway{tx: sampleTransaction()}

	require.False(t, svc.TrySendReceipt(context.Background(), gw, donationRecord(), "donation_receipt", ""))
	require.Len(t, queue.jobs, 1)

	// the pending job suppresses a second enqueue
	require.False(t, svc.TrySendReceipt(context.Background(), gw, donationRecord(), "donation_receipt", ""))
	require.Len(t, queue.jobs, 1)
}

func TestSendReceipt_LookupPinnedToRecordEnvironment(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer, &fakeQueue{})
	gw := &fakeGateway{tx: sampleTransaction()}

	rec := donationRecord()
	rec.Environment = "production"
	require.NoError(t, svc.SendReceipt(context.Background(), gw, rec, "donation_receipt", ""))

	rec2 := donationRecord()
	rec2.Environment = "development"
	require.NoError(t, svc.SendReceipt(context.Background(), gw, rec2, "donation_receipt", ""))

	// each lookup targets the environment its record was charged in
	require.Equal(t, []string{"production", "development"}, gw.envs)
}

func TestSendReceipt_NeverQueues(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	queue := &fakeQueue{}
	svc := newTestService(mailer, queue)
	gw := &fakeGateway{tx: sampleTransaction()}

	err := svc.SendReceipt(context.Background(), gw, donationRecord(), "donation_receipt", "")
	require.Error(t, err)
	require.Empty(t, queue.jobs)
}
