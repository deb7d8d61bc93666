// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"testing"

	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/database"
)

// NewDB returns a migrated in-memory sqlite database closed at test cleanup
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig("silent"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture is a small buyer/supplier/merchant graph
type Fixture struct {
	Buyer    model.Organization
	Supplier model.Organization
	Merchant model.Organization
	Link     model.BuyerSupplierLink

	// BuyerUser belongs to the buyer org and carries a Shopify customer id
	BuyerUser model.Member
	// Merchants have access to the buyer org
	Merchants []model.Member
}

// Seed creates a buyer "Acme", a supplier "Globex", an active link between them
// and two merchant members with access to the buyer.
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()

	f := &Fixture{
		Buyer:    model.Organization{Name: "Acme", Type: model.OrgTypeBuyer},
		Supplier: model.Organization{Name: "Globex", Type: model.OrgTypeSupplier},
		Merchant: model.Organization{Name: "Portal Ops", Type: model.OrgTypeMerchant},
	}
	MustCreate(t, db, &f.Buyer)
	MustCreate(t, db, &f.Supplier)
	MustCreate(t, db, &f.Merchant)

	f.Link = model.BuyerSupplierLink{BuyerOrgID: f.Buyer.ID, SupplierOrgID: f.Supplier.ID, Status: model.LinkStatusActive}
	MustCreate(t, db, &f.Link)

	f.BuyerUser = model.Member{
		OrganizationID:    f.Buyer.ID,
		Name:              "Bea Buyer",
		Email:             "bea@acme.test",
		ShopifyCustomerID: "gid://shopify/Customer/1001",
		FirebaseUID:       "uid-bea",
	}
	MustCreate(t, db, &f.BuyerUser)
	MustCreate(t, db, &model.MemberAccess{MemberID: f.BuyerUser.ID, OrganizationID: f.Buyer.ID})

	for _, m := range []model.Member{
		{OrganizationID: f.Merchant.ID, Name: "Mo Merchant", Email: "mo@portal.test", FirebaseUID: "uid-mo"},
		{OrganizationID: f.Merchant.ID, Name: "Max Merchant", Email: "max@portal.test", FirebaseUID: "uid-max"},
	} {
		m := m
		MustCreate(t, db, &m)
		MustCreate(t, db, &model.MemberAccess{MemberID: m.ID, OrganizationID: f.Buyer.ID})
		f.Merchants = append(f.Merchants, m)
	}
	return f
}

// MustCreate inserts v or fails the test
func MustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
