package receipt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/artsarchive/giving/internal/models"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

type fakeWorkerQueue struct {
	jobs    []*models.ReceiptJob
	deleted []uint
	bumped  []uint
}

func (q *fakeWorkerQueue) ListPending(ctx context.Context) ([]*models.ReceiptJob, error) {
	return q.jobs, nil
}

func (q *fakeWorkerQueue) Delete(ctx context.Context, id uint) error {
	q.deleted = append(q.deleted, id)
	return nil
}

func (q *fakeWorkerQueue) BumpAttempts(ctx context.Context, job *models.ReceiptJob) error {
	job.Attempts++
	q.bumped = append(q.bumped, job.ID)
	return nil
}

type fakeRecordStore struct {
	records map[uint]*models.PaymentRecord
}

func (s *fakeRecordStore) GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("failed to load payment record %d: %w", id, gorm.ErrRecordNotFound)
	}
	return rec, nil
}

func newTestWorker(queue *fakeWorkerQueue, store *fakeRecordStore, gw *fakeGateway, mailer *fakeMailer) *Worker {
	svc := newTestService(mailer, &fakeQueue{})
	return &Worker{
		cfg:      &cfgpkg.Config{},
		log:      zap.NewNop().Sugar(),
		queue:    queue,
		store:    store,
		gateway:  gw,
		receipts: svc,
	}
}

func TestDrain_DeliversAndDeletes(t *testing.T) {
	rec := donationRecord()
	rec.Environment = "production"
	queue := &fakeWorkerQueue{jobs: []*models.ReceiptJob{
		{ID: 1, PaymentRecordID: rec.ID, Environment: "production", MailKey: "donation_receipt"},
	}}
	store := &fakeRecordStore{records: map[uint]*models.PaymentRecord{rec.ID: rec}}
	gw := &fakeGateway{tx: sampleTransaction()}
	mailer := &fakeMailer{}

	w := newTestWorker(queue, store, gw, mailer)
	w.Drain(context.Background())

	// the retried lookup targets the record's environment
	require.Equal(t, []string{"production"}, gw.envs)
	require.Equal(t, 1, mailer.sends)
	require.Equal(t, []uint{1}, queue.deleted)
	require.Empty(t, queue.bumped)
}

func TestDrain_FailedSendStaysQueued(t *testing.T) {
	rec := donationRecord()
	job := &models.ReceiptJob{ID: 2, PaymentRecordID: rec.ID, Environment: "development", MailKey: "donation_receipt"}
	queue := &fakeWorkerQueue{jobs: []*models.ReceiptJob{job}}
	store := &fakeRecordStore{records: map[uint]*models.PaymentRecord{rec.ID: rec}}
	gw := &fakeGateway{tx: sampleTransaction()}
	mailer := &fakeMailer{err: errors.New("smtp down")}

	w := newTestWorker(queue, store, gw, mailer)
	w.Drain(context.Background())

	require.Empty(t, queue.deleted)
	require.Equal(t, []uint{2}, queue.bumped)
	require.Equal(t, 1, job.Attempts)
}

func TestDrain_DropsJobForMissingRecord(t *testing.T) {
	queue := &fakeWorkerQueue{jobs: []*models.ReceiptJob{
		{ID: 3, PaymentRecordID: 99, Environment: "development", MailKey: "donation_receipt"},
	}}
	store := &fakeRecordStore{records: map[uint]*models.PaymentRecord{}}
	gw := &fakeGateway{tx: sampleTransaction()}
	mailer := &fakeMailer{}

	w := newTestWorker(queue, store, gw, mailer)
	w.Drain(context.Background())

	require.Zero(t, mailer.sends)
	require.Equal(t, []uint{3}, queue.deleted)
}
