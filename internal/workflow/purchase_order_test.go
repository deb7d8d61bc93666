package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/nishant-jng/shopify-backend-sub000/internal/alert"
	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/internal/storage"
	"github.com/nishant-jng/shopify-backend-sub000/internal/testutil"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

type staticResolver struct {
	recipients []alert.Recipient
}

func (r staticResolver) Resolve(context.Context, *model.PurchaseOrder) ([]alert.Recipient, error) {
	return r.recipients, nil
}

type jobRecorder struct {
	jobs []alert.EmailJob
}

func (r *jobRecorder) Submit(job alert.EmailJob) bool {
	r.jobs = append(r.jobs, job)
	return true
}

// flakyPOStore fails writes on demand
type flakyPOStore struct {
	*repository.PurchaseOrderRepository
	failWrites bool
}

var errDBDown = errors.New("db down")

func (s *flakyPOStore) Create(ctx context.Context, po *model.PurchaseOrder) error {
	if s.failWrites {
		return errDBDown
	}
	return s.PurchaseOrderRepository.Create(ctx, po)
}

func (s *flakyPOStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if s.failWrites {
		return errDBDown
	}
	return s.PurchaseOrderRepository.Update(ctx, id, fields)
}

func (s *flakyPOStore) UpdateUnconfirmed(ctx context.Context, id string, fields map[string]interface{}) error {
	if s.failWrites {
		return errDBDown
	}
	return s.PurchaseOrderRepository.UpdateUnconfirmed(ctx, id, fields)
}

type poEnv struct {
	db     *gorm.DB
	svc    *PurchaseOrderService
	f      *testutil.Fixture
	pos    *flakyPOStore
	store  *storage.MemoryStore
	alerts *repository.AlertRepository
	emails *jobRecorder
}

// tick returns a clock advancing one second per call so object paths never collide
func tick(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newPOEnv(t *testing.T) *poEnv {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	log := zaptest.NewLogger(t)
	dir := repository.NewDirectoryRepository(db)

	env := &poEnv{
		db:     db,
		f:      f,
		pos:    &flakyPOStore{PurchaseOrderRepository: repository.NewPurchaseOrderRepository(db)},
		store:  storage.NewMemoryStore("https://cdn.test"),
		alerts: repository.NewAlertRepository(db),
		emails: &jobRecorder{},
	}
	alerts := alert.NewService(env.alerts, alert.Resolvers{
		Legacy:     staticResolver{recipients: []alert.Recipient{{UserID: "gid://shopify/Customer/9", Email: "admin@store.test"}}},
		Relational: alert.NewMerchantMembershipResolver(dir),
	}, env.emails, "https://portal.test", log)

	env.svc = NewPurchaseOrderService(env.pos, dir, env.store, alerts, log)
	env.svc.now = tick(time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC))
	return env
}

func pdfUpload(name string) *FileUpload {
	return &FileUpload{Filename: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4 " + name)}
}

func relationalRequest() RelationalPORequest {
	return RelationalPORequest{
		BuyerName:    "Acme",
		SupplierName: "Globex",
		PONumber:     "PO-100",
		ReceivedDate: "2025-06-15",
		Quantity:     "10",
		Value:        "2500.00",
		UploadedBy:   "Bea Buyer",
		File:         pdfUpload("order.pdf"),
	}
}

func (e *poEnv) createRelational(t *testing.T) *model.PurchaseOrder {
	t.Helper()
	res, err := e.svc.CreateRelational(context.Background(), relationalRequest())
	if err != nil {
		t.Fatalf("CreateRelational: %v", err)
	}
	return res.PO
}

func TestCreateRelational(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateRelational(ctx, relationalRequest())
	if err != nil {
		t.Fatalf("CreateRelational: %v", err)
	}
	if !strings.HasPrefix(res.PO.POFileURL, "Acme/June/15/PO-100/po_") || !strings.HasSuffix(res.PO.POFileURL, "_order.pdf") {
		t.Errorf("path = %q", res.PO.POFileURL)
	}
	if res.PO.ReceivedDate != "June-15-2025" || res.PO.Currency != "INR" {
		t.Errorf("stored date/currency = %q/%q", res.PO.ReceivedDate, res.PO.Currency)
	}
	if res.AlertsSent != len(env.f.Merchants) {
		t.Errorf("AlertsSent = %d, want %d", res.AlertsSent, len(env.f.Merchants))
	}
	if paths := env.store.Paths(); len(paths) != 1 || paths[0] != res.PO.POFileURL {
		t.Errorf("stored objects = %v", paths)
	}
	rows, _ := env.alerts.ListByPO(ctx, res.PO.ID)
	for _, a := range rows {
		if a.AlertType != model.AlertPOUpload {
			t.Errorf("alert type = %s", a.AlertType)
		}
	}
	if len(env.emails.jobs) != 1 || len(env.emails.jobs[0].Recipients) != 2 {
		t.Errorf("email jobs = %+v", env.emails.jobs)
	}
}

func TestCreateRelational_InvalidRelationship(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RelationalPORequest)
	}{
		{"unknown buyer", func(r *RelationalPORequest) { r.BuyerName = "Initech" }},
		{"unknown supplier", func(r *RelationalPORequest) { r.SupplierName = "Umbrella" }},
		{"buyer used as supplier", func(r *RelationalPORequest) { r.SupplierName = "Acme" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newPOEnv(t)
			req := relationalRequest()
			tt.mutate(&req)

			_, err := env.svc.CreateRelational(context.Background(), req)
			appErr, ok := apperror.As(err)
			if !ok || appErr.Kind != apperror.KindValidation || appErr.Message != "invalid relationship" {
				t.Fatalf("err = %v, want invalid relationship", err)
			}
			if env.store.Uploads() != 0 {
				t.Error("object uploaded for rejected request")
			}
		})
	}
}

func TestCreateRelational_InactiveLink(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()

	if err := env.db.WithContext(ctx).
		Model(&model.BuyerSupplierLink{}).Where("id = ?", env.f.Link.ID).
		Update("status", model.LinkStatusInactive).Error; err != nil {
		t.Fatal(err)
	}
	_, err := env.svc.CreateRelational(ctx, relationalRequest())
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCreate_MissingFields(t *testing.T) {
	env := newPOEnv(t)
	req := LegacyPORequest{BuyerName: "Acme", Quantity: "ten", Amount: "5", File: &FileUpload{Filename: "a.pdf"}}

	_, err := env.svc.CreateLegacy(context.Background(), req)
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindValidation {
		t.Fatalf("err = %v, want validation", err)
	}
	details, _ := appErr.Details.(map[string]any)
	fields, _ := details["fields"].([]string)
	want := map[string]bool{"poNumber": true, "poReceivedDate": true, "quantity": true}
	for _, f := range fields {
		delete(want, f)
	}
	if len(want) != 0 {
		t.Errorf("fields = %v, missing %v", fields, want)
	}
	if env.store.Uploads() != 0 {
		t.Error("object uploaded for invalid request")
	}
}

func TestCreate_CommitFailureRollsBackUpload(t *testing.T) {
	env := newPOEnv(t)
	env.pos.failWrites = true
	ctx := context.Background()

	_, err := env.svc.CreateRelational(ctx, relationalRequest())
	if !errors.Is(err, errDBDown) || !apperror.IsKind(err, apperror.KindDependency) {
		t.Fatalf("err = %v, want wrapped insert failure", err)
	}
	if env.store.Uploads() != 1 {
		t.Errorf("uploads = %d, want 1", env.store.Uploads())
	}
	if paths := env.store.Paths(); len(paths) != 0 {
		t.Errorf("orphaned objects: %v", paths)
	}
	if len(env.emails.jobs) != 0 {
		t.Error("alerts sent for failed create")
	}
}

func TestCreateLegacy(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreateLegacy(ctx, LegacyPORequest{
		BuyerName:         "Walk-in Buyer",
		PONumber:          "L-7",
		ReceivedDate:      "2025-03-02",
		Quantity:          "3",
		Amount:            "99.5",
		Currency:          "usd",
		ShopifyCustomerID: "gid://shopify/Customer/1001",
		File:              pdfUpload("legacy order.pdf"),
	})
	if err != nil {
		t.Fatalf("CreateLegacy: %v", err)
	}
	if !res.PO.IsLegacy() || res.PO.Currency != "USD" {
		t.Errorf("po = %+v", res.PO)
	}
	if !strings.HasPrefix(res.PO.POFileURL, "Walk-in_Buyer/March/02/L-7/po_") || !strings.HasSuffix(res.PO.POFileURL, "_legacy_order.pdf") {
		t.Errorf("path = %q", res.PO.POFileURL)
	}
	if res.AlertsSent != 1 {
		t.Errorf("AlertsSent = %d, want 1 (legacy resolver)", res.AlertsSent)
	}
}

func TestUpdate_LockedAfterPI(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	if _, err := env.svc.AttachPI(ctx, po.ID, PIRequest{PIReceivedDate: "2025-06-18", File: pdfUpload("pi.pdf")}); err != nil {
		t.Fatalf("AttachPI: %v", err)
	}
	uploads := env.store.Uploads()

	_, err := env.svc.Update(ctx, po.ID, UpdatePORequest{Quantity: "20", File: pdfUpload("new.pdf")})
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindConflict || appErr.Message != "cannot modify after PI confirmation" {
		t.Fatalf("err = %v, want PI conflict", err)
	}
	if env.store.Uploads() != uploads {
		t.Error("file uploaded for locked PO")
	}
	got, _ := env.pos.Get(ctx, po.ID)
	if got.Quantity != 10 {
		t.Errorf("quantity changed to %d", got.Quantity)
	}
}

func TestUpdate_FieldsPatchSnapshots(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	updated, err := env.svc.Update(ctx, po.ID, UpdatePORequest{Quantity: "25", Value: "3000", UpdatedBy: "Bea"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Quantity != 25 || updated.UpdatedByName != "Bea" {
		t.Errorf("updated = %+v", updated)
	}

	rows, _ := env.alerts.ListByPO(ctx, po.ID)
	if len(rows) == 0 {
		t.Fatal("no alerts to patch")
	}
	for _, a := range rows {
		if fmt.Sprint(a.POSnapshot["quantity"]) != "25" {
			t.Errorf("snapshot quantity = %v", a.POSnapshot["quantity"])
		}
		history, _ := a.POSnapshot["changes"].([]interface{})
		if len(history) != 1 {
			t.Errorf("changes = %v", a.POSnapshot["changes"])
		}
	}
}

func TestUpdate_NoChanges(t *testing.T) {
	env := newPOEnv(t)
	po := env.createRelational(t)

	_, err := env.svc.Update(context.Background(), po.ID, UpdatePORequest{Quantity: "10"})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	env := newPOEnv(t)
	_, err := env.svc.Update(context.Background(), "6a1f1a8e-0000-4000-8000-000000000000", UpdatePORequest{Quantity: "1"})
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestUpdate_RenameMovesFile(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	updated, err := env.svc.Update(ctx, po.ID, UpdatePORequest{PONumber: "PO-200"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.HasPrefix(updated.POFileURL, "Acme/June/15/PO-200/po_") || !strings.HasSuffix(updated.POFileURL, "_order.pdf") {
		t.Errorf("moved path = %q", updated.POFileURL)
	}
	paths := env.store.Paths()
	if len(paths) != 1 || paths[0] != updated.POFileURL {
		t.Errorf("stored objects = %v, want only the moved file", paths)
	}
	data, err := env.store.Download(ctx, updated.POFileURL)
	if err != nil || string(data) != "%PDF-1.4 order.pdf" {
		t.Errorf("moved content = %q, %v", data, err)
	}
}

func TestUpdate_RenameAcceptsCreateFieldName(t *testing.T) {
	env := newPOEnv(t)
	po := env.createRelational(t)

	updated, err := env.svc.Update(context.Background(), po.ID, UpdatePORequest{POID: " PO-300 "})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PONumber != "PO-300" || !strings.HasPrefix(updated.POFileURL, "Acme/June/15/PO-300/po_") {
		t.Errorf("updated = %q at %q", updated.PONumber, updated.POFileURL)
	}
}

func TestUpdate_MalformedStoredDateUsesCreationDate(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	if err := env.db.Model(&model.PurchaseOrder{}).Where("id = ?", po.ID).
		Update("received_date", "sometime in june").Error; err != nil {
		t.Fatalf("corrupt date: %v", err)
	}
	stored, err := env.pos.Get(ctx, po.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	updated, err := env.svc.Update(ctx, po.ID, UpdatePORequest{PONumber: "PO-400"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := fmt.Sprintf("Acme/%s/%02d/PO-400/po_", stored.CreatedAt.Month(), stored.CreatedAt.Day())
	if !strings.HasPrefix(updated.POFileURL, want) {
		t.Errorf("moved path = %q, want prefix %q", updated.POFileURL, want)
	}
}

func TestUpdate_ReplaceFile(t *testing.T) {
	t.Run("commit ok removes old file", func(t *testing.T) {
		env := newPOEnv(t)
		po := env.createRelational(t)

		updated, err := env.svc.Update(context.Background(), po.ID, UpdatePORequest{File: pdfUpload("v2.pdf")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		paths := env.store.Paths()
		if len(paths) != 1 || paths[0] != updated.POFileURL || !strings.HasSuffix(paths[0], "_v2.pdf") {
			t.Errorf("stored objects = %v", paths)
		}
	})

	t.Run("commit failure keeps old file", func(t *testing.T) {
		env := newPOEnv(t)
		po := env.createRelational(t)
		env.pos.failWrites = true

		if _, err := env.svc.Update(context.Background(), po.ID, UpdatePORequest{File: pdfUpload("v2.pdf")}); err == nil {
			t.Fatal("expected error")
		}
		paths := env.store.Paths()
		if len(paths) != 1 || paths[0] != po.POFileURL {
			t.Errorf("stored objects = %v, want original only", paths)
		}
	})
}

func TestAttachPI_ReplacesPrevious(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	first, err := env.svc.AttachPI(ctx, po.ID, PIRequest{PIReceivedDate: "2025-06-18", UploadedBy: "Sam", File: pdfUpload("pi.pdf")})
	if err != nil {
		t.Fatalf("AttachPI: %v", err)
	}
	if !first.PIConfirmed || *first.PIReceivedDate != "June-18-2025" {
		t.Errorf("po = %+v", first)
	}
	if !strings.HasPrefix(*first.PIFileURL, "Acme/June/18/PO-100/pi_") {
		t.Errorf("pi path = %q", *first.PIFileURL)
	}

	second, err := env.svc.AttachPI(ctx, po.ID, PIRequest{PIReceivedDate: "2025-06-19", File: pdfUpload("pi-v2.pdf")})
	if err != nil {
		t.Fatalf("AttachPI again: %v", err)
	}
	for _, p := range env.store.Paths() {
		if p == *first.PIFileURL {
			t.Errorf("superseded PI %q still stored", p)
		}
	}
	if !strings.HasSuffix(*second.PIFileURL, "_pi-v2.pdf") {
		t.Errorf("pi path = %q", *second.PIFileURL)
	}

	rows, _ := env.alerts.ListByPO(ctx, po.ID)
	piAlerts := 0
	for _, a := range rows {
		if a.AlertType == model.AlertPIUpload {
			piAlerts++
		}
		if a.POSnapshot["pi_confirmed"] != true {
			t.Errorf("snapshot not patched: %v", a.POSnapshot)
		}
	}
	if piAlerts != 2*len(env.f.Merchants) {
		t.Errorf("PI alerts = %d", piAlerts)
	}
}

func TestDelete(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	if err := env.svc.Delete(ctx, po.ID, DeletePORequest{}); !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("err = %v, want deletedBy required", err)
	}
	if err := env.svc.Delete(ctx, po.ID, DeletePORequest{DeletedBy: "Admin"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	views, err := env.svc.ListForCustomer(ctx, env.f.BuyerUser.ShopifyCustomerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Errorf("deleted PO listed: %+v", views)
	}
	v, err := env.svc.Get(ctx, po.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.Deleted || v.DeletedByName != "Admin" {
		t.Errorf("view = %+v", v)
	}
	if len(env.store.Paths()) != 1 {
		t.Error("stored file removed on soft delete")
	}
	if err := env.svc.Delete(ctx, po.ID, DeletePORequest{DeletedBy: "Admin"}); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}

	rows, _ := env.alerts.ListByPO(ctx, po.ID)
	deleted := 0
	for _, a := range rows {
		if a.AlertType == model.AlertPODeleted {
			deleted++
		}
		if a.POSnapshot["deleted"] != true {
			t.Errorf("snapshot not marked deleted: %v", a.POSnapshot)
		}
	}
	if deleted != len(env.f.Merchants) {
		t.Errorf("PO_DELETED alerts = %d", deleted)
	}
}

func TestListForCustomer_MixesVariants(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	env.createRelational(t)
	if _, err := env.svc.CreateLegacy(ctx, LegacyPORequest{
		BuyerName: "Acme", PONumber: "L-1", ReceivedDate: "2025-06-01", Quantity: "1", Amount: "1",
		ShopifyCustomerID: env.f.BuyerUser.ShopifyCustomerID, File: pdfUpload("l.pdf"),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.CreateLegacy(ctx, LegacyPORequest{
		BuyerName: "Other", PONumber: "L-2", ReceivedDate: "2025-06-01", Quantity: "1", Amount: "1",
		ShopifyCustomerID: "gid://shopify/Customer/2002", File: pdfUpload("o.pdf"),
	}); err != nil {
		t.Fatal(err)
	}

	views, err := env.svc.ListForCustomer(ctx, env.f.BuyerUser.ShopifyCustomerID)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	for _, v := range views {
		if v.BuyerName != "Acme" {
			t.Errorf("buyer name = %q", v.BuyerName)
		}
		if !strings.HasPrefix(v.POFilePublicURL, "https://cdn.test/Acme/") {
			t.Errorf("public url = %q", v.POFilePublicURL)
		}
	}

	stranger, err := env.svc.ListForCustomer(ctx, "gid://shopify/Customer/2002")
	if err != nil || len(stranger) != 1 {
		t.Errorf("unknown member listing = %v, %v", stranger, err)
	}
}

func TestListForMerchant(t *testing.T) {
	env := newPOEnv(t)
	ctx := context.Background()
	po := env.createRelational(t)

	views, err := env.svc.ListForMerchant(ctx, env.f.Merchants[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].ID != po.ID || views[0].SupplierName != "Globex" {
		t.Errorf("views = %+v", views)
	}
	if _, err := env.svc.ListForMerchant(ctx, "6a1f1a8e-0000-4000-8000-000000000000"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestOriginalFilename(t *testing.T) {
	tests := map[string]string{
		"Acme/June/15/PO-1/po_1718000000000_order_v2.pdf": "order_v2.pdf",
		"plain.pdf": "plain.pdf",
	}
	for in, want := range tests {
		if got := originalFilename(in); got != want {
			t.Errorf("originalFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
