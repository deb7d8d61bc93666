// Package invoice allocates per-buyer invoice numbers and renders invoice PDFs.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

var sequencePattern = regexp.MustCompile(`-(\d+)N-`)

// FormatNumber renders {prefix}-{NNN}N-{financialYear}
func FormatNumber(prefix string, n int, financialYear string) string {
	return fmt.Sprintf("%s-%03dN-%s", prefix, n, financialYear)
}

// ParseSequence extracts the sequence from an invoice number
func ParseSequence(invoiceNo string) (int, bool) {
	m := sequencePattern.FindStringSubmatch(invoiceNo)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

type seriesStore interface {
	GetSeries(ctx context.Context, buyerID string) (*model.InvoiceSeries, error)
	UpsertSeries(ctx context.Context, s *model.InvoiceSeries) error
	AdvanceSeries(ctx context.Context, buyerID string, n int) (bool, error)
	InitializeSeries(ctx context.Context, buyerID string, n int) (bool, error)
	IncrementSeries(ctx context.Context, buyerID string) error
}

// Peek is the next invoice number a buyer would receive
type Peek struct {
	Initialized   bool    `json:"initialized"`
	InvoiceNo     string  `json:"invoiceNo,omitempty"`
	Prefix        *string `json:"prefix"`
	FinancialYear string  `json:"financial_year,omitempty"`
}

// Allocation is the outcome of Allocate
type Allocation struct {
	InvoiceNumber  string
	SequenceNumber *int
	// NeedsCommit is set in system mode; call Commit once the invoice is stored
	NeedsCommit bool
}

// SeriesSettings configures a buyer's series
type SeriesSettings struct {
	BuyerID       string
	Prefix        string
	FinancialYear string
	CurrentNumber int
	Initialized   bool
}

type Allocator struct {
	series seriesStore
	log    *zap.Logger
}

func NewAllocator(series seriesStore, log *zap.Logger) *Allocator {
	return &Allocator{series: series, log: log}
}

func (a *Allocator) load(ctx context.Context, buyerID string) (*model.InvoiceSeries, error) {
	s, err := a.series.GetSeries(ctx, buyerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Dependency("failed to load invoice series", err)
	}
	return s, nil
}

// PeekNext reports the next system-mode number without changing anything
func (a *Allocator) PeekNext(ctx context.Context, buyerID string) (*Peek, error) {
	if buyerID == "" {
		return nil, apperror.MissingFields("buyerId")
	}
	s, err := a.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &Peek{Initialized: false}, nil
	}
	prefix := s.Prefix
	if !s.Initialized {
		return &Peek{Initialized: false, Prefix: &prefix, FinancialYear: s.FinancialYear}, nil
	}
	return &Peek{
		Initialized:   true,
		InvoiceNo:     FormatNumber(s.Prefix, s.CurrentNumber+1, s.FinancialYear),
		Prefix:        &prefix,
		FinancialYear: s.FinancialYear,
	}, nil
}

// Allocate validates supplied against the buyer's series. System mode never
// mutates the series; manual mode may advance or initialize it immediately,
// whether or not the invoice is later stored.
func (a *Allocator) Allocate(ctx context.Context, buyerID, mode, supplied string) (*Allocation, error) {
	s, err := a.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperror.Configuration("invoice series not configured")
	}

	switch mode {
	case model.InvoiceModeSystem:
		if !s.Initialized {
			return nil, apperror.Configuration("invoice series not initialized")
		}
		next := s.CurrentNumber + 1
		expected := FormatNumber(s.Prefix, next, s.FinancialYear)
		if supplied != expected {
			return nil, apperror.Conflict("invoice number mismatch").WithDetails(map[string]any{
				"expected": expected,
				"received": supplied,
			})
		}
		return &Allocation{InvoiceNumber: supplied, SequenceNumber: &next, NeedsCommit: true}, nil

	case model.InvoiceModeManual:
		n, ok := ParseSequence(supplied)
		if !ok {
			return &Allocation{InvoiceNumber: supplied}, nil
		}
		if s.Initialized {
			if n > s.CurrentNumber {
				if _, err := a.series.AdvanceSeries(ctx, buyerID, n); err != nil {
					return nil, apperror.Dependency("failed to advance invoice series", err)
				}
				a.log.Info("Invoice series caught up to manual number",
					zap.String("buyer_id", buyerID), zap.Int("from", s.CurrentNumber), zap.Int("to", n))
			}
		} else {
			if _, err := a.series.InitializeSeries(ctx, buyerID, n); err != nil {
				return nil, apperror.Dependency("failed to initialize invoice series", err)
			}
			a.log.Info("Invoice series initialized from manual number",
				zap.String("buyer_id", buyerID), zap.Int("current_number", n))
		}
		return &Allocation{InvoiceNumber: supplied, SequenceNumber: &n}, nil

	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown invoice mode %q", mode)).
			WithDetails(map[string]any{"fields": []string{"mode"}})
	}
}

// Commit increments the buyer's counter by one in a single statement
func (a *Allocator) Commit(ctx context.Context, buyerID string) error {
	start := time.Now()
	if err := a.series.IncrementSeries(ctx, buyerID); err != nil {
		return apperror.Dependency("failed to commit invoice sequence", err)
	}
	a.log.Debug("Invoice sequence committed", zap.String("buyer_id", buyerID), zap.Duration("took", time.Since(start)))
	return nil
}

// Configure creates or overwrites a buyer's series
func (a *Allocator) Configure(ctx context.Context, settings SeriesSettings) (*model.InvoiceSeries, error) {
	var missing []string
	if settings.BuyerID == "" {
		missing = append(missing, "buyerId")
	}
	if settings.Prefix == "" {
		missing = append(missing, "prefix")
	}
	if settings.FinancialYear == "" {
		missing = append(missing, "financialYear")
	}
	if settings.CurrentNumber < 0 {
		missing = append(missing, "currentNumber")
	}
	if len(missing) > 0 {
		return nil, apperror.MissingFields(missing...)
	}

	s := &model.InvoiceSeries{
		BuyerID:       settings.BuyerID,
		Prefix:        settings.Prefix,
		FinancialYear: settings.FinancialYear,
		CurrentNumber: settings.CurrentNumber,
		Initialized:   settings.Initialized,
	}
	if err := a.series.UpsertSeries(ctx, s); err != nil {
		return nil, apperror.Dependency("failed to save invoice series", err)
	}
	a.log.Info("Invoice series configured",
		zap.String("buyer_id", s.BuyerID),
		zap.String("prefix", s.Prefix),
		zap.String("financial_year", s.FinancialYear),
		zap.Int("current_number", s.CurrentNumber))
	saved, err := a.series.GetSeries(ctx, s.BuyerID)
	if err != nil {
		return nil, apperror.Dependency("failed to reload invoice series", err)
	}
	return saved, nil
}
