package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// AlertRepository persists in-app alerts
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateBatch inserts all alerts in one statement
func (r *AlertRepository) CreateBatch(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(r.db.WithContext(ctx).Create(&alerts).Error)
}

func (r *AlertRepository) ListByPO(ctx context.Context, poID string) ([]model.Alert, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	alerts := []model.Alert{}
	err := r.db.WithContext(ctx).Where("po_id = ?", poID).Order("created_at").Find(&alerts).Error
	return alerts, translate(err)
}

// PatchSnapshots rewrites the snapshot of every alert referencing poID inside
// one transaction and returns the number of rows touched.
func (r *AlertRepository) PatchSnapshots(ctx context.Context, poID string, patch func(datatypes.JSONMap) datatypes.JSONMap) (int, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	touched := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alerts []model.Alert
		if err := tx.Where("po_id = ?", poID).Find(&alerts).Error; err != nil {
			return err
		}
		for _, a := range alerts {
			snapshot := patch(a.POSnapshot)
			if err := tx.Model(&model.Alert{}).Where("id = ?", a.ID).Update("po_snapshot", snapshot).Error; err != nil {
				return err
			}
			touched++
		}
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return touched, nil
}

// ListForRecipient returns the newest alerts for one recipient
func (r *AlertRepository) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Alert, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	alerts := []model.Alert{}
	q := r.db.WithContext(ctx).Where("recipient_user_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("created_at desc").Find(&alerts).Error
	return alerts, translate(err)
}

func (r *AlertRepository) MarkRead(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead returns how many alerts flipped to read
func (r *AlertRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.Alert{}).
		Where("recipient_user_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	return result.RowsAffected, translate(result.Error)
}
