package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/nishant-jng/shopify-backend-sub000/internal/invoice"
	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/internal/storage"
	"github.com/nishant-jng/shopify-backend-sub000/internal/testutil"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

type flakyInvoiceStore struct {
	*repository.InvoiceRepository
	failCreate bool
}

func (s *flakyInvoiceStore) CreateInvoice(ctx context.Context, inv *model.ConsultancyInvoice) error {
	if s.failCreate {
		return errDBDown
	}
	return s.InvoiceRepository.CreateInvoice(ctx, inv)
}

type invoiceEnv struct {
	svc      *InvoiceService
	f        *testutil.Fixture
	invoices *flakyInvoiceStore
	store    *storage.MemoryStore
}

func newInvoiceEnv(t *testing.T, current int) *invoiceEnv {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	log := zaptest.NewLogger(t)
	repo := repository.NewInvoiceRepository(db)
	allocator := invoice.NewAllocator(repo, log)

	if _, err := allocator.Configure(context.Background(), invoice.SeriesSettings{
		BuyerID: f.Buyer.ID, Prefix: "ACM", FinancialYear: "25-26", CurrentNumber: current, Initialized: true,
	}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	env := &invoiceEnv{
		f:        f,
		invoices: &flakyInvoiceStore{InvoiceRepository: repo},
		store:    storage.NewMemoryStore("https://cdn.test"),
	}
	env.svc = NewInvoiceService(env.invoices, allocator, repository.NewDirectoryRepository(db), env.store,
		invoice.Party{Name: "Portal Consulting"}, log)
	env.svc.now = tick(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))
	return env
}

func (e *invoiceEnv) request(number string) GenerateInvoiceRequest {
	return GenerateInvoiceRequest{
		BuyerID:       e.f.Buyer.ID,
		Mode:          model.InvoiceModeSystem,
		InvoiceNumber: number,
		InvoiceDate:   "2025-07-01",
		TaxRate:       "18",
		LineItems: []LineItemRequest{
			{Description: "Sourcing", Quantity: "2", Rate: "1000"},
			{Description: "Audit", Amount: "500"},
		},
		CreatedBy: "Mo Merchant",
	}
}

func currentNumber(t *testing.T, e *invoiceEnv) int {
	t.Helper()
	s, err := e.invoices.GetSeries(context.Background(), e.f.Buyer.ID)
	if err != nil {
		t.Fatal(err)
	}
	return s.CurrentNumber
}

func TestGenerate_SystemMode(t *testing.T) {
	env := newInvoiceEnv(t, 4)
	ctx := context.Background()

	peek, err := env.svc.PeekNext(ctx, env.f.Buyer.ID)
	if err != nil || peek.InvoiceNo != "ACM-005N-25-26" {
		t.Fatalf("PeekNext = %+v, %v", peek, err)
	}

	out, err := env.svc.Generate(ctx, env.request(peek.InvoiceNo))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.InvoiceNumber != "ACM-005N-25-26" || out.InvoiceID == "" {
		t.Errorf("out = %+v", out)
	}
	if !strings.HasPrefix(out.DownloadURL, "https://cdn.test/Acme/July/01/ACM-005N-25-26/invoice_") {
		t.Errorf("DownloadURL = %q", out.DownloadURL)
	}
	if got := currentNumber(t, env); got != 5 {
		t.Errorf("current_number = %d, want 5", got)
	}

	list, err := env.svc.List(ctx, env.f.Buyer.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	inv := list[0]
	if !inv.Subtotal.Equal(decimal.NewFromInt(2500)) || !inv.Total.Equal(decimal.NewFromInt(2950)) {
		t.Errorf("subtotal/total = %s/%s", inv.Subtotal, inv.Total)
	}
	if inv.SequenceNumber == nil || *inv.SequenceNumber != 5 {
		t.Errorf("SequenceNumber = %v", inv.SequenceNumber)
	}
}

func TestGenerate_SystemMismatch(t *testing.T) {
	env := newInvoiceEnv(t, 4)

	_, err := env.svc.Generate(context.Background(), env.request("ACM-007N-25-26"))
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindConflict {
		t.Fatalf("err = %v, want mismatch", err)
	}
	if env.store.Uploads() != 0 {
		t.Error("pdf uploaded for rejected invoice")
	}
	if got := currentNumber(t, env); got != 4 {
		t.Errorf("current_number = %d, want 4", got)
	}
}

func TestGenerate_DuplicateNumber(t *testing.T) {
	env := newInvoiceEnv(t, 4)
	ctx := context.Background()

	req := env.request("EXT-1")
	req.Mode = model.InvoiceModeManual
	if _, err := env.svc.Generate(ctx, req); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	uploads := env.store.Uploads()

	_, err := env.svc.Generate(ctx, req)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if env.store.Uploads() != uploads {
		t.Error("pdf uploaded for duplicate")
	}
}

func TestGenerate_InsertFailureRollsBack(t *testing.T) {
	env := newInvoiceEnv(t, 4)
	env.invoices.failCreate = true

	_, err := env.svc.Generate(context.Background(), env.request("ACM-005N-25-26"))
	if !errors.Is(err, errDBDown) {
		t.Fatalf("err = %v, want insert failure", err)
	}
	if paths := env.store.Paths(); len(paths) != 0 {
		t.Errorf("orphaned pdf: %v", paths)
	}
	if got := currentNumber(t, env); got != 4 {
		t.Errorf("current_number = %d, want 4", got)
	}
}

func TestGenerate_ManualCatchUp(t *testing.T) {
	env := newInvoiceEnv(t, 4)
	req := env.request("ACM-009N-25-26")
	req.Mode = model.InvoiceModeManual

	if _, err := env.svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := currentNumber(t, env); got != 9 {
		t.Errorf("current_number = %d, want 9", got)
	}
}

func TestGenerate_PriceFallback(t *testing.T) {
	env := newInvoiceEnv(t, 0)
	req := env.request("ACM-001N-25-26")
	req.LineItems = nil
	req.TaxRate = ""
	req.Price = "1200"

	if _, err := env.svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	list, _ := env.svc.List(context.Background(), env.f.Buyer.ID)
	if len(list) != 1 || !list[0].Total.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("list = %+v", list)
	}
}

func TestGenerate_ZeroAmountLineIsNotBilled(t *testing.T) {
	env := newInvoiceEnv(t, 0)
	req := env.request("ACM-001N-25-26")
	req.TaxRate = ""
	req.LineItems = []LineItemRequest{
		{Description: "Sourcing", Quantity: "2", Rate: "1000"},
		{Description: "Setup (waived)", Quantity: "1", Rate: "750", Amount: "0"},
	}

	if _, err := env.svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	list, _ := env.svc.List(context.Background(), env.f.Buyer.ID)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
	if !list[0].Subtotal.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("subtotal = %s, want 2000", list[0].Subtotal)
	}
}

func TestGenerate_Validation(t *testing.T) {
	env := newInvoiceEnv(t, 0)

	tests := []struct {
		name   string
		mutate func(*GenerateInvoiceRequest)
		kind   apperror.Kind
	}{
		{"no items and no price", func(r *GenerateInvoiceRequest) { r.LineItems = nil }, apperror.KindValidation},
		{"bad mode", func(r *GenerateInvoiceRequest) { r.Mode = "auto" }, apperror.KindValidation},
		{"item without rate or amount", func(r *GenerateInvoiceRequest) {
			r.LineItems = []LineItemRequest{{Description: "x", Quantity: "1"}}
		}, apperror.KindValidation},
		{"unknown buyer", func(r *GenerateInvoiceRequest) { r.BuyerID = "6a1f1a8e-0000-4000-8000-000000000000" }, apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := env.request("ACM-001N-25-26")
			tt.mutate(&req)
			if _, err := env.svc.Generate(context.Background(), req); !apperror.IsKind(err, tt.kind) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
	if env.store.Uploads() != 0 {
		t.Error("pdf uploaded for invalid requests")
	}
}
