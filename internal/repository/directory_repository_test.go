package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/testutil"
)

func TestDirectoryRepository_FindOrganizationByName(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	org, err := repo.FindOrganizationByName(ctx, "acme", model.OrgTypeBuyer)
	if err != nil {
		t.Fatalf("FindOrganizationByName: %v", err)
	}
	if org.ID != f.Buyer.ID {
		t.Errorf("got %s, want %s", org.ID, f.Buyer.ID)
	}

	if _, err := repo.FindOrganizationByName(ctx, "Acme", model.OrgTypeSupplier); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong type err = %v, want ErrNotFound", err)
	}

	testutil.MustCreate(t, db, &model.Organization{Name: "ACME", Type: model.OrgTypeBuyer})
	if _, err := repo.FindOrganizationByName(ctx, "Acme", model.OrgTypeBuyer); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("duplicate name err = %v, want ErrAmbiguous", err)
	}
}

func TestDirectoryRepository_FindActiveLink(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	link, err := repo.FindActiveLink(ctx, f.Buyer.ID, f.Supplier.ID)
	if err != nil {
		t.Fatalf("FindActiveLink: %v", err)
	}
	if link.Buyer == nil || link.Supplier == nil {
		t.Fatal("expected preloaded organizations")
	}

	if err := db.Model(&model.BuyerSupplierLink{}).Where("id = ?", f.Link.ID).Update("status", model.LinkStatusInactive).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindActiveLink(ctx, f.Buyer.ID, f.Supplier.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("inactive link err = %v, want ErrNotFound", err)
	}

	links, err := repo.ListLinksForBuyers(ctx, []string{f.Buyer.ID})
	if err != nil || len(links) != 1 {
		t.Errorf("ListLinksForBuyers = %v, %v; inactive links stay listed", links, err)
	}
}

func TestDirectoryRepository_ListMerchantContacts(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	// duplicate grant must not produce a duplicate recipient
	testutil.MustCreate(t, db, &model.MemberAccess{MemberID: f.Merchants[0].ID, OrganizationID: f.Buyer.ID})

	contacts, err := repo.ListMerchantContacts(ctx, f.Buyer.ID)
	if err != nil {
		t.Fatalf("ListMerchantContacts: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2: %+v", len(contacts), contacts)
	}
	for _, c := range contacts {
		if c.MemberID == f.BuyerUser.ID {
			t.Error("buyer member must not receive merchant alerts")
		}
	}

	none, err := repo.ListMerchantContacts(ctx, f.Supplier.ID)
	if err != nil || len(none) != 0 {
		t.Errorf("supplier contacts = %v, %v; want none", none, err)
	}
}

func TestDirectoryRepository_Members(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	m, err := repo.FindMemberByShopifyCustomerID(ctx, f.BuyerUser.ShopifyCustomerID)
	if err != nil || m.ID != f.BuyerUser.ID {
		t.Fatalf("FindMemberByShopifyCustomerID = %v, %v", m, err)
	}
	m, err = repo.FindMemberByFirebaseUID(ctx, "uid-mo")
	if err != nil || m.Organization == nil || m.Organization.Type != model.OrgTypeMerchant {
		t.Fatalf("FindMemberByFirebaseUID = %+v, %v", m, err)
	}

	ids, err := repo.ListAccessibleOrgIDs(ctx, f.BuyerUser.ID)
	if err != nil || len(ids) != 1 || ids[0] != f.Buyer.ID {
		t.Errorf("ListAccessibleOrgIDs = %v, %v", ids, err)
	}
	if _, err := repo.GetMember(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMember missing err = %v", err)
	}
}
