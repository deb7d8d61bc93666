package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// InvoiceRepository persists invoice series and consultancy invoices
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) GetSeries(ctx context.Context, buyerID string) (*model.InvoiceSeries, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var s model.InvoiceSeries
	if err := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// UpsertSeries creates or overwrites the series for s.BuyerID
func (r *InvoiceRepository) UpsertSeries(ctx context.Context, s *model.InvoiceSeries) error {
	defer prometheus.TrackDBOperation("upsert")(time.Now())
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "buyer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"prefix", "financial_year", "current_number", "initialized", "updated_at"}),
	}).Create(s).Error
	return translate(err)
}

// AdvanceSeries moves an initialized counter forward to n. It never moves it
// backwards and reports whether a row changed.
func (r *InvoiceRepository) AdvanceSeries(ctx context.Context, buyerID string, n int) (bool, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.InvoiceSeries{}).
		Where("buyer_id = ? AND initialized = ? AND current_number < ?", buyerID, true, n).
		Update("current_number", n)
	return result.RowsAffected > 0, translate(result.Error)
}

// InitializeSeries sets the starting counter once. Later calls are no-ops.
func (r *InvoiceRepository) InitializeSeries(ctx context.Context, buyerID string, n int) (bool, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.InvoiceSeries{}).
		Where("buyer_id = ? AND initialized = ?", buyerID, false).
		Updates(map[string]interface{}{
			"current_number": n,
			"initialized":    true,
		})
	return result.RowsAffected > 0, translate(result.Error)
}

// IncrementSeries bumps the counter by one in a single statement
func (r *InvoiceRepository) IncrementSeries(ctx context.Context, buyerID string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.InvoiceSeries{}).
		Where("buyer_id = ?", buyerID).
		Updates(map[string]interface{}{
			"current_number": gorm.Expr("current_number + ?", 1),
			"initialized":    true,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InvoiceNumberExists also sees soft-deleted invoices since the number stays taken
func (r *InvoiceRepository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&model.ConsultancyInvoice{}).
		Where("invoice_number = ?", number).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv *model.ConsultancyInvoice) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(r.db.WithContext(ctx).Create(inv).Error)
}

// ListInvoices returns invoices newest first, optionally for one buyer
func (r *InvoiceRepository) ListInvoices(ctx context.Context, buyerID string) ([]model.ConsultancyInvoice, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	invoices := []model.ConsultancyInvoice{}
	q := r.db.WithContext(ctx).Order("invoice_date desc, created_at desc")
	if buyerID != "" {
		q = q.Where("buyer_id = ?", buyerID)
	}
	err := q.Find(&invoices).Error
	return invoices, translate(err)
}
