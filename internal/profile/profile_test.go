package profile

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/nishant-jng/shopify-backend-sub000/internal/shopify"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

// memoryDocs mimics the Firestore merge and array semantics
type memoryDocs struct {
	docs map[string]*Profile
}

func newMemoryDocs() *memoryDocs { return &memoryDocs{docs: map[string]*Profile{}} }

func (m *memoryDocs) Get(_ context.Context, id string) (*Profile, error) {
	p, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Wishlist = append([]string(nil), p.Wishlist...)
	cp.Favorites = append([]string(nil), p.Favorites...)
	return &cp, nil
}

func (m *memoryDocs) doc(id string) *Profile {
	p, ok := m.docs[id]
	if !ok {
		p = &Profile{CustomerID: id}
		m.docs[id] = p
	}
	return p
}

func (m *memoryDocs) Merge(_ context.Context, id string, fields map[string]interface{}) error {
	p := m.doc(id)
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "firstName":
			p.FirstName = s
		case "lastName":
			p.LastName = s
		case "email":
			p.Email = s
		case "phone":
			p.Phone = s
		case "companyName":
			p.CompanyName = s
		case "gstNumber":
			p.GSTNumber = s
		case "address":
			p.Address = s
		}
	}
	return nil
}

func (m *memoryDocs) list(p *Profile, field string) *[]string {
	if field == fieldWishlist {
		return &p.Wishlist
	}
	return &p.Favorites
}

func (m *memoryDocs) AddToList(_ context.Context, id, field, item string) error {
	l := m.list(m.doc(id), field)
	for _, existing := range *l {
		if existing == item {
			return nil
		}
	}
	*l = append(*l, item)
	return nil
}

func (m *memoryDocs) RemoveFromList(_ context.Context, id, field, item string) error {
	p, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	l := m.list(p, field)
	out := (*l)[:0]
	for _, existing := range *l {
		if existing != item {
			out = append(out, existing)
		}
	}
	*l = out
	return nil
}

type fakeMetafields struct {
	err   error
	calls [][]shopify.MetafieldInput
}

func (f *fakeMetafields) SetCustomerMetafields(_ context.Context, _ string, fields []shopify.MetafieldInput) error {
	f.calls = append(f.calls, fields)
	return f.err
}

func strPtr(s string) *string { return &s }

func TestGetProfile_NotFound(t *testing.T) {
	svc := NewService(newMemoryDocs(), nil, zaptest.NewLogger(t))
	if _, err := svc.GetProfile(context.Background(), "42"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestUpdateProfile_SyncsMetafields(t *testing.T) {
	meta := &fakeMetafields{}
	svc := NewService(newMemoryDocs(), meta, zaptest.NewLogger(t))

	res, err := svc.UpdateProfile(context.Background(), "42", Update{
		FirstName:   strPtr("Bea"),
		CompanyName: strPtr(" Acme Traders "),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if !res.MetafieldSynced || res.Profile.CompanyName != "Acme Traders" {
		t.Errorf("res = %+v", res)
	}
	if len(meta.calls) != 1 || len(meta.calls[0]) != 1 || meta.calls[0][0].Key != "company_name" {
		t.Errorf("metafield calls = %+v", meta.calls)
	}
}

func TestUpdateProfile_PartialSuccess(t *testing.T) {
	meta := &fakeMetafields{err: errors.New("shopify 502")}
	svc := NewService(newMemoryDocs(), meta, zaptest.NewLogger(t))

	res, err := svc.UpdateProfile(context.Background(), "42", Update{Phone: strPtr("+91 98")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if res.MetafieldSynced || res.SyncError == "" {
		t.Errorf("res = %+v, want unsynced with error", res)
	}
	if res.Profile.Phone != "+91 98" {
		t.Errorf("profile not saved: %+v", res.Profile)
	}
}

func TestUpdateProfile_NothingToUpdate(t *testing.T) {
	svc := NewService(newMemoryDocs(), nil, zaptest.NewLogger(t))
	if _, err := svc.UpdateProfile(context.Background(), "42", Update{}); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestWishlistAndFavorites(t *testing.T) {
	svc := NewService(newMemoryDocs(), nil, zaptest.NewLogger(t))
	ctx := context.Background()

	empty, err := svc.ListWishlist(ctx, "42")
	if err != nil || len(empty) != 0 || empty == nil {
		t.Fatalf("ListWishlist on new customer = %v, %v", empty, err)
	}

	svc.AddToWishlist(ctx, "42", "p1")
	list, err := svc.AddToWishlist(ctx, "42", "p1")
	if err != nil || len(list) != 1 {
		t.Fatalf("duplicate add = %v, %v", list, err)
	}
	svc.AddToWishlist(ctx, "42", "p2")
	list, err = svc.RemoveFromWishlist(ctx, "42", "p1")
	if err != nil || len(list) != 1 || list[0] != "p2" {
		t.Errorf("after remove = %v, %v", list, err)
	}

	favs, err := svc.AddToFavorites(ctx, "42", "p9")
	if err != nil || len(favs) != 1 {
		t.Errorf("favorites = %v, %v", favs, err)
	}
	if _, err := svc.RemoveFromFavorites(ctx, "missing", "p9"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
	if _, err := svc.AddToFavorites(ctx, "42", " "); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}
