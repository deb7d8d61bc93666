package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// POFilter selects visible purchase orders. Relational rows match LinkIDs, legacy
// rows match ShopifyCustomerID.
type POFilter struct {
	LinkIDs           []string
	ShopifyCustomerID string
}

// PurchaseOrderRepository persists purchase orders
type PurchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

func (r *PurchaseOrderRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Link").
		Preload("Link.Buyer").
		Preload("Link.Supplier")
}

func (r *PurchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(r.db.WithContext(ctx).Omit("Link").Create(po).Error)
}

// Get returns a visible (not soft-deleted) purchase order
func (r *PurchaseOrderRepository) Get(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var po model.PurchaseOrder
	if err := r.withRelations(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// GetUnscoped resolves a purchase order even after soft deletion
func (r *PurchaseOrderRepository) GetUnscoped(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var po model.PurchaseOrder
	if err := r.withRelations(ctx).Unscoped().Where("id = ?", id).First(&po).Error; err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// Update applies fields to a visible purchase order
func (r *PurchaseOrderRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUnconfirmed applies fields only while the PI is not confirmed. ErrNotFound
// is returned when the row is missing or was confirmed concurrently.
func (r *PurchaseOrderRepository) UpdateUnconfirmed(ctx context.Context, id string, fields map[string]interface{}) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Where("id = ? AND pi_confirmed = ?", id, false).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete hides the purchase order from listings
func (r *PurchaseOrderRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by_name": deletedBy,
			"deleted_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns visible purchase orders matching the filter, newest first
func (r *PurchaseOrderRepository) List(ctx context.Context, filter POFilter) ([]model.PurchaseOrder, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	pos := []model.PurchaseOrder{}
	if len(filter.LinkIDs) == 0 && filter.ShopifyCustomerID == "" {
		return pos, nil
	}

	cond := r.db.WithContext(ctx)
	switch {
	case len(filter.LinkIDs) > 0 && filter.ShopifyCustomerID != "":
		cond = cond.Where("link_id IN ?", filter.LinkIDs).
			Or("link_id IS NULL AND shopify_customer_id = ?", filter.ShopifyCustomerID)
	case len(filter.LinkIDs) > 0:
		cond = cond.Where("link_id IN ?", filter.LinkIDs)
	default:
		cond = cond.Where("link_id IS NULL AND shopify_customer_id = ?", filter.ShopifyCustomerID)
	}

	if err := r.withRelations(ctx).Where(cond).Order("created_at desc").Find(&pos).Error; err != nil {
		return nil, translate(err)
	}
	return pos, nil
}
