package receipt

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/artsarchive/giving/internal/models"
)

// Queue is the durable retry store for undeliverable receipts.
type Queue struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewQueue(db *gorm.DB, log *zap.SugaredLogger) *Queue {
	return &Queue{db: db, log: log}
}

func (q *Queue) Enqueue(ctx context.Context, job *models.ReceiptJob) error {
	return q.db.WithContext(ctx).Create(job).Error
}

// HasPending reports whether a job already waits for the given payment
// record. The check is a scan, not a constraint, so concurrent enqueues can
// still slip a duplicate through.
func (q *Queue) HasPending(ctx context.Context, paymentRecordID uint) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.ReceiptJob{}).
		Where("payment_record_id = ?", paymentRecordID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (q *Queue) ListPending(ctx context.Context) ([]*models.ReceiptJob, error) {
	var jobs []*models.ReceiptJob
	err := q.db.WithContext(ctx).Order("id").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (q *Queue) Delete(ctx context.Context, id uint) error {
	return q.db.WithContext(ctx).Delete(&models.ReceiptJob{}, id).Error
}

// BumpAttempts records one more failed delivery attempt, leaving the job in
// place for the next drain.
func (q *Queue) BumpAttempts(ctx context.Context, job *models.ReceiptJob) error {
	job.Attempts++
	return q.db.WithContext(ctx).
		Model(&models.ReceiptJob{}).
		Where("id = ?", job.ID).
		Update("attempts", job.Attempts).Error
}
