package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DateLayout is the stored representation of PO/PI dates ("June-15-2025")
const DateLayout = "January-02-2006"

// PurchaseOrder is a buyer purchase order. Exactly one of BuyerName (legacy rows)
// and LinkID (relational rows) is set.
type PurchaseOrder struct {
	ID                string          `json:"id" gorm:"type:uuid;primaryKey"`
	BuyerName         *string         `json:"buyer_name,omitempty" gorm:"type:varchar(200);index"`
	LinkID            *string         `json:"link_id,omitempty" gorm:"type:uuid;index"`
	ShopifyCustomerID string          `json:"shopify_customer_id,omitempty" gorm:"type:varchar(50);index"`
	PONumber          string          `json:"po_number" gorm:"type:varchar(100);index;not null"`
	ReceivedDate      string          `json:"received_date" gorm:"type:varchar(32);not null"`
	Quantity          int             `json:"quantity" gorm:"not null"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Currency          string          `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	POFileURL         string          `json:"po_file_url" gorm:"type:text"`
	PIFileURL         *string         `json:"pi_file_url,omitempty" gorm:"type:text"`
	PIConfirmed       bool            `json:"pi_confirmed" gorm:"not null;default:false"`
	PIReceivedDate    *string         `json:"pi_received_date,omitempty" gorm:"type:varchar(32)"`
	CreatedBy         string          `json:"created_by" gorm:"type:varchar(200)"`
	UpdatedByName     string          `json:"updated_by_name,omitempty" gorm:"type:varchar(200)"`
	DeletedByName     string          `json:"deleted_by_name,omitempty" gorm:"type:varchar(200)"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`

	Link *BuyerSupplierLink `json:"link,omitempty" gorm:"foreignKey:LinkID"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

func (po *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	newID(&po.ID)
	return nil
}

// IsLegacy reports whether the PO was created through the free-text buyer endpoints
func (po *PurchaseOrder) IsLegacy() bool {
	return po.LinkID == nil
}

// BuyerDisplayName returns the buyer name used in storage paths and messages
func (po *PurchaseOrder) BuyerDisplayName() string {
	if po.BuyerName != nil {
		return *po.BuyerName
	}
	if po.Link != nil && po.Link.Buyer != nil {
		return po.Link.Buyer.Name
	}
	return ""
}

// SupplierDisplayName is empty for legacy rows
func (po *PurchaseOrder) SupplierDisplayName() string {
	if po.Link != nil && po.Link.Supplier != nil {
		return po.Link.Supplier.Name
	}
	return ""
}

// BuyerOrgID is empty for legacy rows
func (po *PurchaseOrder) BuyerOrgID() string {
	if po.Link != nil {
		return po.Link.BuyerOrgID
	}
	return ""
}

// Received parses the stored received date
func (po *PurchaseOrder) Received() (time.Time, error) {
	return time.Parse(DateLayout, po.ReceivedDate)
}

// Snapshot is the denormalized copy of the PO stored on alert rows
func (po *PurchaseOrder) Snapshot() map[string]interface{} {
	s := map[string]interface{}{
		"id":            po.ID,
		"po_number":     po.PONumber,
		"buyer_name":    po.BuyerDisplayName(),
		"received_date": po.ReceivedDate,
		"quantity":      po.Quantity,
		"amount":        po.Amount.StringFixed(2),
		"currency":      po.Currency,
		"po_file_url":   po.POFileURL,
		"pi_confirmed":  po.PIConfirmed,
		"created_by":    po.CreatedBy,
	}
	if supplier := po.SupplierDisplayName(); supplier != "" {
		s["supplier_name"] = supplier
	}
	if po.PIFileURL != nil {
		s["pi_file_url"] = *po.PIFileURL
	}
	if po.PIReceivedDate != nil {
		s["pi_received_date"] = *po.PIReceivedDate
	}
	return s
}
