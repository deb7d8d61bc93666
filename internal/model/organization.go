package model

import (
	"time"

	"gorm.io/gorm"
)

// Organization types
const (
	OrgTypeBuyer    = "buyer"
	OrgTypeSupplier = "supplier"
	// OrgTypeMerchant is the oversight organization whose members receive PO/PI alerts
	OrgTypeMerchant = "merchant"
)

// Organization is a buyer, supplier or the merchant organization
type Organization struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(200);index;not null"`
	Type      string         `json:"type" gorm:"type:varchar(20);index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Organization) TableName() string { return "organizations" }

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	newID(&o.ID)
	return nil
}

// Member is a person belonging to one home organization
type Member struct {
	ID                string         `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID    string         `json:"organization_id" gorm:"type:uuid;index;not null"`
	Name              string         `json:"name" gorm:"type:varchar(200)"`
	Email             string         `json:"email" gorm:"type:varchar(200);index"`
	ShopifyCustomerID string         `json:"shopify_customer_id" gorm:"type:varchar(50);index"`
	FirebaseUID       string         `json:"firebase_uid" gorm:"type:varchar(128);index"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

func (Member) TableName() string { return "members" }

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// MemberAccess grants a member visibility over a buyer organization
type MemberAccess struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	MemberID       string         `json:"member_id" gorm:"type:uuid;index;not null"`
	OrganizationID string         `json:"organization_id" gorm:"type:uuid;index;not null"`
	CreatedAt      time.Time      `json:"created_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (MemberAccess) TableName() string { return "member_access" }

func (a *MemberAccess) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}

// Link statuses
const (
	LinkStatusActive   = "active"
	LinkStatusInactive = "inactive"
)

// BuyerSupplierLink is a relationship gating which buyer/supplier pairs may transact
type BuyerSupplierLink struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	BuyerOrgID    string         `json:"buyer_org_id" gorm:"type:uuid;index;not null"`
	SupplierOrgID string         `json:"supplier_org_id" gorm:"type:uuid;index;not null"`
	Status        string         `json:"status" gorm:"type:varchar(20);index;not null;default:'active'"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	Buyer    *Organization `json:"buyer,omitempty" gorm:"foreignKey:BuyerOrgID"`
	Supplier *Organization `json:"supplier,omitempty" gorm:"foreignKey:SupplierOrgID"`
}

func (BuyerSupplierLink) TableName() string { return "buyer_supplier_links" }

func (l *BuyerSupplierLink) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}
