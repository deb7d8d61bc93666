package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/nishant-jng/shopify-backend-sub000/internal/invoice"
	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/internal/storage"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

type invoiceStore interface {
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	CreateInvoice(ctx context.Context, inv *model.ConsultancyInvoice) error
	ListInvoices(ctx context.Context, buyerID string) ([]model.ConsultancyInvoice, error)
}

type sequenceAllocator interface {
	PeekNext(ctx context.Context, buyerID string) (*invoice.Peek, error)
	Allocate(ctx context.Context, buyerID, mode, supplied string) (*invoice.Allocation, error)
	Commit(ctx context.Context, buyerID string) error
}

// LineItemRequest is one invoice row as sent by the client
type LineItemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    string `json:"quantity" validate:"omitempty,numeric"`
	Rate        string `json:"rate" validate:"omitempty,numeric"`
	Amount      string `json:"amount" validate:"omitempty,numeric"`
}

// GenerateInvoiceRequest is the /generate-invoice body. Either LineItems or
// Price must be given.
type GenerateInvoiceRequest struct {
	BuyerID       string            `json:"buyerId" validate:"required"`
	Mode          string            `json:"mode" validate:"required,oneof=system manual"`
	InvoiceNumber string            `json:"invoiceNumber" validate:"required"`
	InvoiceDate   string            `json:"invoiceDate" validate:"omitempty,datetime=2006-01-02"`
	Currency      string            `json:"currency" validate:"omitempty,len=3,alpha"`
	TaxRate       string            `json:"taxRate" validate:"omitempty,numeric"`
	LineItems     []LineItemRequest `json:"lineItems" validate:"required_without=Price,dive"`
	Price         string            `json:"price" validate:"omitempty,numeric"`
	Description   string            `json:"description"`
	Notes         string            `json:"notes"`
	BuyerAddress  string            `json:"buyerAddress"`
	BuyerTaxID    string            `json:"buyerTaxId"`
	CreatedBy     string            `json:"createdBy"`
}

// GeneratedInvoice is the result of Generate
type GeneratedInvoice struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber"`
	DownloadURL   string `json:"downloadUrl"`
}

// InvoiceView is a stored invoice with its download link
type InvoiceView struct {
	model.ConsultancyInvoice
	DownloadURL string `json:"download_url"`
}

type InvoiceService struct {
	invoices  invoiceStore
	allocator sequenceAllocator
	dir       directory
	store     storage.ObjectStore
	issuer    invoice.Party
	log       *zap.Logger
	now       func() time.Time
}

func NewInvoiceService(invoices invoiceStore, allocator sequenceAllocator, dir directory, store storage.ObjectStore, issuer invoice.Party, log *zap.Logger) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		allocator: allocator,
		dir:       dir,
		store:     store,
		issuer:    issuer,
		log:       log,
		now:       time.Now,
	}
}

// PeekNext returns the number the next system-mode invoice must carry
func (s *InvoiceService) PeekNext(ctx context.Context, buyerID string) (*invoice.Peek, error) {
	if buyerID == "" {
		return nil, apperror.MissingFields("buyerId")
	}
	return s.allocator.PeekNext(ctx, buyerID)
}

// Generate validates, numbers, renders and stores a consultancy invoice
func (s *InvoiceService) Generate(ctx context.Context, req GenerateInvoiceRequest) (*GeneratedInvoice, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	items, taxRate, err := req.lineItems()
	if err != nil {
		return nil, err
	}
	invoiceDate := s.now()
	if req.InvoiceDate != "" {
		if invoiceDate, err = time.Parse(DateLayout, req.InvoiceDate); err != nil {
			return nil, apperror.MissingFields("invoiceDate")
		}
	}
	number := strings.TrimSpace(req.InvoiceNumber)
	log := s.log.With(zap.String("buyer_id", req.BuyerID), zap.String("invoice_number", number), zap.String("mode", req.Mode))

	buyer, err := s.dir.GetOrganization(ctx, req.BuyerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Validation("invalid buyer").WithDetails(map[string]any{"buyerId": req.BuyerID})
	}
	if err != nil {
		return nil, apperror.Dependency("failed to resolve buyer", err)
	}

	exists, err := s.invoices.InvoiceNumberExists(ctx, number)
	if err != nil {
		return nil, apperror.Dependency("failed to check invoice number", err)
	}
	if exists {
		return nil, apperror.Conflict("invoice number already exists").WithDetails(map[string]any{"invoiceNumber": number})
	}

	alloc, err := s.allocator.Allocate(ctx, req.BuyerID, req.Mode, number)
	if err != nil {
		return nil, err
	}

	items, subtotal, tax, total := invoice.Totals(items, taxRate)
	currency := normalizeCurrency(req.Currency)
	pdf, err := invoice.RenderPDF(invoice.Document{
		InvoiceNumber: number,
		InvoiceDate:   invoiceDate,
		Issuer:        s.issuer,
		Buyer:         invoice.Party{Name: buyer.Name, Address: req.BuyerAddress, TaxID: req.BuyerTaxID},
		Currency:      currency,
		LineItems:     items,
		Subtotal:      subtotal,
		TaxRate:       taxRate,
		TaxAmount:     tax,
		Total:         total,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, apperror.Dependency("failed to render invoice", err)
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, apperror.Validation("invalid line items")
	}

	obj := storage.Object{
		Path: storage.BuildPath(storage.PathParams{
			Buyer:    buyer.Name,
			Date:     invoiceDate,
			Folder:   number,
			Kind:     storage.KindInvoice,
			Filename: number + ".pdf",
			At:       s.now(),
		}),
		ContentType: "application/pdf",
		Data:        pdf,
	}
	inv := &model.ConsultancyInvoice{
		InvoiceNumber:  number,
		BuyerID:        buyer.ID,
		Mode:           req.Mode,
		SequenceNumber: alloc.SequenceNumber,
		InvoiceDate:    invoiceDate,
		LineItems:      datatypes.JSON(itemsJSON),
		Subtotal:       subtotal,
		TaxRate:        taxRate,
		TaxAmount:      tax,
		Total:          total,
		Currency:       currency,
		Notes:          req.Notes,
		PDFPath:        obj.Path,
		CreatedBy:      req.CreatedBy,
	}

	err = commitWithCompensation(ctx, s.store, log, obj, func(ctx context.Context) error {
		err := s.invoices.CreateInvoice(ctx, inv)
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.Conflict("invoice number already exists").WithDetails(map[string]any{"invoiceNumber": number})
		}
		if err != nil {
			return apperror.Dependency("failed to save invoice", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to generate invoice", zap.Error(err))
		return nil, err
	}

	if alloc.NeedsCommit {
		if err := s.allocator.Commit(ctx, buyer.ID); err != nil {
			prometheus.SequenceCommitFailureCounter.Inc()
			log.Error("Invoice stored but sequence commit failed", zap.String("invoice_id", inv.ID), zap.Error(err))
		}
	}
	prometheus.InvoiceNumbersCounter.WithLabelValues(req.Mode).Inc()

	log.Info("Invoice generated", zap.String("invoice_id", inv.ID), zap.String("path", obj.Path))
	return &GeneratedInvoice{
		InvoiceID:     inv.ID,
		InvoiceNumber: number,
		DownloadURL:   s.store.PublicURL(obj.Path),
	}, nil
}

// List returns a buyer's invoices, newest first
func (s *InvoiceService) List(ctx context.Context, buyerID string) ([]InvoiceView, error) {
	if buyerID == "" {
		return nil, apperror.MissingFields("buyerId")
	}
	invoices, err := s.invoices.ListInvoices(ctx, buyerID)
	if err != nil {
		return nil, apperror.Dependency("failed to list invoices", err)
	}
	views := make([]InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, InvoiceView{ConsultancyInvoice: inv, DownloadURL: s.store.PublicURL(inv.PDFPath)})
	}
	return views, nil
}

// lineItems parses the request rows; a bare price becomes a single row
func (r *GenerateInvoiceRequest) lineItems() ([]model.InvoiceLineItem, decimal.Decimal, error) {
	taxRate := decimal.Zero
	if r.TaxRate != "" {
		var err error
		if taxRate, err = decimal.NewFromString(r.TaxRate); err != nil || taxRate.IsNegative() {
			return nil, decimal.Zero, apperror.MissingFields("taxRate")
		}
	}

	if len(r.LineItems) == 0 {
		price, err := decimal.NewFromString(r.Price)
		if err != nil || !price.IsPositive() {
			return nil, decimal.Zero, apperror.MissingFields("price")
		}
		desc := r.Description
		if desc == "" {
			desc = "Consultancy services"
		}
		return []model.InvoiceLineItem{{
			Description: desc,
			Quantity:    decimal.NewFromInt(1),
			Rate:        price,
			Amount:      price,
		}}, taxRate, nil
	}

	items := make([]model.InvoiceLineItem, 0, len(r.LineItems))
	var bad []string
	for i, li := range r.LineItems {
		item := model.InvoiceLineItem{Description: li.Description, Quantity: decimal.NewFromInt(1)}
		ok := true
		if li.Quantity != "" {
			q, err := decimal.NewFromString(li.Quantity)
			ok = ok && err == nil && q.IsPositive()
			item.Quantity = q
		}
		if li.Rate != "" {
			rate, err := decimal.NewFromString(li.Rate)
			ok = ok && err == nil && !rate.IsNegative()
			item.Rate = rate
		}
		var amount *decimal.Decimal
		if li.Amount != "" {
			a, err := decimal.NewFromString(li.Amount)
			ok = ok && err == nil && !a.IsNegative()
			amount = &a
		}
		if li.Rate == "" && li.Amount == "" {
			ok = false
		}
		if !ok {
			bad = append(bad, fmt.Sprintf("lineItems[%d]", i))
			continue
		}
		item.Amount = invoice.LineAmount(item.Quantity, item.Rate, amount)
		items = append(items, item)
	}
	if len(bad) > 0 {
		return nil, decimal.Zero, apperror.MissingFields(bad...)
	}
	return items, taxRate, nil
}
