package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceSeries holds the per-buyer invoice counter
type InvoiceSeries struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	BuyerID       string         `json:"buyer_id" gorm:"type:uuid;uniqueIndex;not null"`
	Prefix        string         `json:"prefix" gorm:"type:varchar(20);not null"`
	FinancialYear string         `json:"financial_year" gorm:"type:varchar(20);not null"`
	CurrentNumber int            `json:"current_number" gorm:"not null;default:0"`
	Initialized   bool           `json:"initialized" gorm:"not null;default:false"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

func (InvoiceSeries) TableName() string { return "invoice_series" }

func (s *InvoiceSeries) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// Invoice numbering modes
const (
	InvoiceModeSystem = "system"
	InvoiceModeManual = "manual"
)

// InvoiceLineItem is one row of a consultancy invoice
type InvoiceLineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// ConsultancyInvoice is a financial record tied 1:1 to a generated PDF
type ConsultancyInvoice struct {
	ID             string          `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceNumber  string          `json:"invoice_number" gorm:"type:varchar(100);uniqueIndex;not null"`
	BuyerID        string          `json:"buyer_id" gorm:"type:uuid;index;not null"`
	Mode           string          `json:"mode" gorm:"type:varchar(10);not null"`
	SequenceNumber *int            `json:"sequence_number,omitempty"`
	InvoiceDate    time.Time       `json:"invoice_date" gorm:"type:date;not null"`
	LineItems      datatypes.JSON  `json:"line_items" gorm:"type:jsonb"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:numeric(14,2);not null"`
	TaxRate        decimal.Decimal `json:"tax_rate" gorm:"type:numeric(5,2);not null;default:0"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:numeric(14,2);not null;default:0"`
	Total          decimal.Decimal `json:"total" gorm:"type:numeric(14,2);not null"`
	Currency       string          `json:"currency" gorm:"type:varchar(3);not null"`
	Notes          string          `json:"notes,omitempty" gorm:"type:text"`
	PDFPath        string          `json:"pdf_path" gorm:"type:text;not null"`
	CreatedBy      string          `json:"created_by" gorm:"type:varchar(200)"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (ConsultancyInvoice) TableName() string { return "consultancy_invoices" }

func (i *ConsultancyInvoice) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}
