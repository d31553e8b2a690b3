package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/artsarchive/giving/internal/models"
	"github.com/artsarchive/giving/pkg/tool"
	types "github.com/artsarchive/giving/pkg/types"
)

// Store is the durable home of payment records. Records are created by
// checkout and the recurring scheduler, updated by the scheduler, and never
// deleted here; removal is an external admin action.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Create(ctx context.Context, rec *models.PaymentRecord) error {
	if rec.UUID == "" {
		rec.UUID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create payment record: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, rec *models.PaymentRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save payment record: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load payment record %d: %w", id, err)
	}
	return &rec, nil
}

// ListDueRecurring returns the roots of recurring series eligible for a
// merchant-initiated charge: active, fully tokenized, and past their next
// charge time.
func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) ([]*models.PaymentRecord, error) {
	var recs []*models.PaymentRecord
	err := s.db.WithContext(ctx).
		Where("recurring = ? AND recurring_active = ?", true, true).
		Where("payment_id IS NOT NULL AND customer_id IS NOT NULL").
		Where("recurring_next < ?", now).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due recurring payments: %w", err)
	}
	return recs, nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ListRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ListResponse struct {
	Items []*models.PaymentRecord `json:"items"`
	Total int64                   `json:"total"`
}

// List implements paginated admin listing with filters.
func (s *Store) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.PaymentRecord{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payment records: %w", err)
	}

	var rows []*models.PaymentRecord

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}

	return &ListResponse{Items: rows, Total: total}, nil
}

type StatusStat struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Total  string `json:"total"`
}

// Stats aggregates record counts and authorized amounts by gateway status.
func (s *Store) Stats(ctx context.Context) ([]*StatusStat, error) {
	var stats []*StatusStat
	err := s.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Select("status, count(*) as count, coalesce(sum(authorized_amount::numeric), 0)::text as total").
		Group("status").
		Order("status").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payment stats: %w", err)
	}
	return stats, nil
}
