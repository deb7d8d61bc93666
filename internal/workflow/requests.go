package workflow

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

// DateLayout is the request date format
const DateLayout = "2006-01-02"

// FileUpload is a file received from a multipart form
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LegacyPORequest is the /upload-po form: the buyer is a free-text name
type LegacyPORequest struct {
	BuyerName         string      `form:"buyerName" validate:"required"`
	PONumber          string      `form:"poNumber" validate:"required"`
	ReceivedDate      string      `form:"poReceivedDate" validate:"required,datetime=2006-01-02"`
	Quantity          string      `form:"quantity" validate:"required,number"`
	Amount            string      `form:"amount" validate:"required,numeric"`
	Currency          string      `form:"currency" validate:"omitempty,len=3,alpha"`
	ShopifyCustomerID string      `form:"shopifyCustomerId"`
	UploadedBy        string      `form:"uploadedBy"`
	File              *FileUpload `json:"poFile" validate:"required"`
}

// RelationalPORequest is the /upload-buyer-po form: buyer and supplier are
// organization names joined by an active link
type RelationalPORequest struct {
	BuyerName    string      `form:"buyerName" validate:"required"`
	SupplierName string      `form:"supplierName" validate:"required"`
	PONumber     string      `form:"poId" validate:"required"`
	ReceivedDate string      `form:"poReceivedDate" validate:"required,datetime=2006-01-02"`
	Quantity     string      `form:"quantity" validate:"required,number"`
	Value        string      `form:"value" validate:"required,numeric"`
	Currency     string      `form:"currency" validate:"omitempty,len=3,alpha"`
	UploadedBy   string      `form:"uploadedBy"`
	File         *FileUpload `json:"poFile" validate:"required"`
}

// UpdatePORequest carries the fields to change; empty fields are left alone.
// The PO number is accepted as poNumber or, like the create form, as poId.
type UpdatePORequest struct {
	PONumber     string      `form:"poNumber"`
	POID         string      `form:"poId"`
	ReceivedDate string      `form:"poReceivedDate" validate:"omitempty,datetime=2006-01-02"`
	Quantity     string      `form:"quantity" validate:"omitempty,number"`
	Value        string      `form:"value" validate:"omitempty,numeric"`
	Currency     string      `form:"currency" validate:"omitempty,len=3,alpha"`
	UpdatedBy    string      `form:"updatedBy"`
	File         *FileUpload `json:"poFile"`
}

func (r *UpdatePORequest) poNumber() string {
	if n := strings.TrimSpace(r.PONumber); n != "" {
		return n
	}
	return strings.TrimSpace(r.POID)
}

// PIRequest attaches a proforma invoice to a PO
type PIRequest struct {
	PIReceivedDate string      `form:"piReceivedDate" validate:"required,datetime=2006-01-02"`
	UploadedBy     string      `form:"uploadedBy"`
	File           *FileUpload `json:"piFile" validate:"required"`
}

// DeletePORequest names who deleted the PO
type DeletePORequest struct {
	DeletedBy string `json:"deletedBy" form:"deletedBy" validate:"required"`
}

// poDraft is a validated PO with parsed values
type poDraft struct {
	PONumber  string
	Received  time.Time
	Quantity  int
	Amount    decimal.Decimal
	Currency  string
	CreatedBy string
	File      *FileUpload
}

func (r *LegacyPORequest) parse() (*poDraft, error) {
	if err := validateRequest(r); err != nil {
		return nil, err
	}
	createdBy := r.UploadedBy
	if createdBy == "" {
		createdBy = r.BuyerName
	}
	return newDraft(r.PONumber, r.ReceivedDate, r.Quantity, "amount", r.Amount, r.Currency, createdBy, r.File)
}

func (r *RelationalPORequest) parse() (*poDraft, error) {
	if err := validateRequest(r); err != nil {
		return nil, err
	}
	createdBy := r.UploadedBy
	if createdBy == "" {
		createdBy = r.BuyerName
	}
	return newDraft(r.PONumber, r.ReceivedDate, r.Quantity, "value", r.Value, r.Currency, createdBy, r.File)
}

func newDraft(poNumber, received, quantity, amountField, amount, currency, createdBy string, file *FileUpload) (*poDraft, error) {
	d := &poDraft{
		PONumber:  strings.TrimSpace(poNumber),
		Currency:  normalizeCurrency(currency),
		CreatedBy: createdBy,
		File:      file,
	}
	var bad []string
	var err error
	if d.Received, err = time.Parse(DateLayout, received); err != nil {
		bad = append(bad, "poReceivedDate")
	}
	if d.Quantity, err = strconv.Atoi(quantity); err != nil || d.Quantity < 0 {
		bad = append(bad, "quantity")
	}
	if d.Amount, err = decimal.NewFromString(amount); err != nil || d.Amount.IsNegative() {
		bad = append(bad, amountField)
	}
	if len(file.Data) == 0 {
		bad = append(bad, "poFile")
	}
	if len(bad) > 0 {
		return nil, apperror.MissingFields(bad...)
	}
	return d, nil
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return "INR"
	}
	return c
}

// formatDate converts a parsed request date to the stored representation
func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}
