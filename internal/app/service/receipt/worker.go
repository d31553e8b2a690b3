package receipt

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/artsarchive/giving/internal/app/service/payment"
	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

type recordStore interface {
	GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error)
}

type workerQueue interface {
	ListPending(ctx context.Context) ([]*models.ReceiptJob, error)
	Delete(ctx context.Context, id uint) error
	BumpAttempts(ctx context.Context, job *models.ReceiptJob) error
}

// Worker periodically drains the retry queue. Delivery is at-least-once: a
// job is deleted only after its send succeeds, so a crash between send and
// delete can repeat a receipt.
type Worker struct {
	cfg      *cfgpkg.Config
	log      *zap.SugaredLogger
	queue    workerQueue
	store    recordStore
	gateway  Gateway
	receipts *Service
}

func NewWorker(cfg *cfgpkg.Config, log *zap.SugaredLogger, queue *Queue, store *payment.Store, client *cybersource.Client, receipts *Service) *Worker {
	return &Worker{cfg: cfg, log: log, queue: queue, store: store, gateway: client, receipts: receipts}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Receipt.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain walks every pending job once. Jobs whose payment record is gone are
// dropped; jobs that still fail to send stay queued with a bumped attempt
// count.
func (w *Worker) Drain(ctx context.Context) {
	jobs, err := w.queue.ListPending(ctx)
	if err != nil {
		w.log.Errorw("receipt queue drain failed", "err", err)
		return
	}

	for _, job := range jobs {
		rec, err := w.store.GetByID(ctx, job.PaymentRecordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				w.log.Warnw("dropping receipt job for missing payment record", "job_id", job.ID, "payment_record_id", job.PaymentRecordID)
				if delErr := w.queue.Delete(ctx, job.ID); delErr != nil {
					w.log.Errorw("receipt job delete failed", "job_id", job.ID, "err", delErr)
				}
			} else {
				w.log.Errorw("payment record load failed", "job_id", job.ID, "err", err)
			}
			continue
		}

		if err := w.receipts.SendReceipt(ctx, w.gateway, rec, job.MailKey, job.RecipientOverride); err != nil {
			w.log.Warnw("queued receipt still undeliverable", "job_id", job.ID, "code", rec.Code, "attempts", job.Attempts+1, "err", err)
			if bumpErr := w.queue.BumpAttempts(ctx, job); bumpErr != nil {
				w.log.Errorw("receipt attempt bump failed", "job_id", job.ID, "err", bumpErr)
			}
			continue
		}

		if err := w.queue.Delete(ctx, job.ID); err != nil {
			w.log.Errorw("receipt job delete failed", "job_id", job.ID, "err", err)
		}
	}
}
