// Package profile stores customer profiles, wishlists and favorites in
// Firestore and mirrors profile fields to Shopify customer metafields.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/shopify"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
)

// Firestore field names
const (
	fieldWishlist  = "wishlist"
	fieldFavorites = "favorites"
	fieldUpdatedAt = "updatedAt"
)

const metafieldNamespace = "custom"

// Profile is a customer document
type Profile struct {
	CustomerID  string    `firestore:"-" json:"customerId"`
	FirstName   string    `firestore:"firstName,omitempty" json:"firstName,omitempty"`
	LastName    string    `firestore:"lastName,omitempty" json:"lastName,omitempty"`
	Email       string    `firestore:"email,omitempty" json:"email,omitempty"`
	Phone       string    `firestore:"phone,omitempty" json:"phone,omitempty"`
	CompanyName string    `firestore:"companyName,omitempty" json:"companyName,omitempty"`
	GSTNumber   string    `firestore:"gstNumber,omitempty" json:"gstNumber,omitempty"`
	Address     string    `firestore:"address,omitempty" json:"address,omitempty"`
	Wishlist    []string  `firestore:"wishlist" json:"wishlist"`
	Favorites   []string  `firestore:"favorites" json:"favorites"`
	UpdatedAt   time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Update holds the editable fields; nil leaves a field untouched
type Update struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"companyName"`
	GSTNumber   *string `json:"gstNumber"`
	Address     *string `json:"address"`
}

// UpdateResult reports whether the Shopify mirror was written
type UpdateResult struct {
	Profile         *Profile `json:"profile"`
	MetafieldSynced bool     `json:"metafieldSynced"`
	SyncError       string   `json:"syncError,omitempty"`
}

type documentStore interface {
	Get(ctx context.Context, customerID string) (*Profile, error)
	Merge(ctx context.Context, customerID string, fields map[string]interface{}) error
	AddToList(ctx context.Context, customerID, field, item string) error
	RemoveFromList(ctx context.Context, customerID, field, item string) error
}

type metafieldWriter interface {
	SetCustomerMetafields(ctx context.Context, customerID string, fields []shopify.MetafieldInput) error
}

type Service struct {
	docs       documentStore
	metafields metafieldWriter
	log        *zap.Logger
}

// NewService builds a profile service. metafields may be nil, in which case
// profile updates are stored without a Shopify mirror.
func NewService(docs documentStore, metafields metafieldWriter, log *zap.Logger) *Service {
	return &Service{docs: docs, metafields: metafields, log: log}
}

func (s *Service) GetProfile(ctx context.Context, customerID string) (*Profile, error) {
	if err := requireID(customerID); err != nil {
		return nil, err
	}
	p, err := s.docs.Get(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperror.Dependency("failed to load profile", err)
	}
	normalize(p)
	return p, nil
}

// UpdateProfile stores the changed fields, then mirrors them to Shopify. A
// failed mirror is reported in the result, not as an error.
func (s *Service) UpdateProfile(ctx context.Context, customerID string, u Update) (*UpdateResult, error) {
	if err := requireID(customerID); err != nil {
		return nil, err
	}
	fields, metafields := u.changes()
	if len(fields) == 0 {
		return nil, apperror.Validation("no profile fields supplied")
	}
	if err := s.docs.Merge(ctx, customerID, fields); err != nil {
		return nil, apperror.Dependency("failed to save profile", err)
	}
	p, err := s.GetProfile(ctx, customerID)
	if err != nil {
		return nil, err
	}

	res := &UpdateResult{Profile: p, MetafieldSynced: true}
	if s.metafields == nil {
		res.MetafieldSynced = false
		return res, nil
	}
	if err := s.metafields.SetCustomerMetafields(ctx, customerID, metafields); err != nil {
		s.log.Warn("Profile saved but metafield sync failed", zap.String("customer_id", customerID), zap.Error(err))
		res.MetafieldSynced = false
		res.SyncError = err.Error()
	}
	return res, nil
}

func (s *Service) ListWishlist(ctx context.Context, customerID string) ([]string, error) {
	return s.list(ctx, customerID, func(p *Profile) []string { return p.Wishlist })
}

func (s *Service) AddToWishlist(ctx context.Context, customerID, productID string) ([]string, error) {
	return s.add(ctx, customerID, fieldWishlist, productID, func(p *Profile) []string { return p.Wishlist })
}

func (s *Service) RemoveFromWishlist(ctx context.Context, customerID, productID string) ([]string, error) {
	return s.remove(ctx, customerID, fieldWishlist, productID, func(p *Profile) []string { return p.Wishlist })
}

func (s *Service) ListFavorites(ctx context.Context, customerID string) ([]string, error) {
	return s.list(ctx, customerID, func(p *Profile) []string { return p.Favorites })
}

func (s *Service) AddToFavorites(ctx context.Context, customerID, productID string) ([]string, error) {
	return s.add(ctx, customerID, fieldFavorites, productID, func(p *Profile) []string { return p.Favorites })
}

func (s *Service) RemoveFromFavorites(ctx context.Context, customerID, productID string) ([]string, error) {
	return s.remove(ctx, customerID, fieldFavorites, productID, func(p *Profile) []string { return p.Favorites })
}

// list treats a missing profile as an empty list
func (s *Service) list(ctx context.Context, customerID string, pick func(*Profile) []string) ([]string, error) {
	if err := requireID(customerID); err != nil {
		return nil, err
	}
	p, err := s.docs.Get(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperror.Dependency("failed to load profile", err)
	}
	normalize(p)
	return pick(p), nil
}

func (s *Service) add(ctx context.Context, customerID, field, productID string, pick func(*Profile) []string) ([]string, error) {
	if err := requireItem(customerID, productID); err != nil {
		return nil, err
	}
	if err := s.docs.AddToList(ctx, customerID, field, strings.TrimSpace(productID)); err != nil {
		return nil, apperror.Dependency("failed to update "+field, err)
	}
	return s.list(ctx, customerID, pick)
}

func (s *Service) remove(ctx context.Context, customerID, field, productID string, pick func(*Profile) []string) ([]string, error) {
	if err := requireItem(customerID, productID); err != nil {
		return nil, err
	}
	err := s.docs.RemoveFromList(ctx, customerID, field, strings.TrimSpace(productID))
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperror.Dependency("failed to update "+field, err)
	}
	return s.list(ctx, customerID, pick)
}

// changes returns the Firestore fields and Shopify metafields for u
func (u Update) changes() (map[string]interface{}, []shopify.MetafieldInput) {
	fields := map[string]interface{}{}
	var metafields []shopify.MetafieldInput
	set := func(field, metaKey string, v *string) {
		if v == nil {
			return
		}
		val := strings.TrimSpace(*v)
		fields[field] = val
		if metaKey != "" && val != "" {
			metafields = append(metafields, shopify.MetafieldInput{
				Namespace: metafieldNamespace, Key: metaKey, Type: "single_line_text_field", Value: val,
			})
		}
	}
	set("firstName", "", u.FirstName)
	set("lastName", "", u.LastName)
	set("email", "", u.Email)
	set("phone", "phone_number", u.Phone)
	set("companyName", "company_name", u.CompanyName)
	set("gstNumber", "gst_number", u.GSTNumber)
	set("address", "address", u.Address)
	return fields, metafields
}

func normalize(p *Profile) {
	if p.Wishlist == nil {
		p.Wishlist = []string{}
	}
	if p.Favorites == nil {
		p.Favorites = []string{}
	}
}

func requireID(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return apperror.MissingFields("customerId")
	}
	return nil
}

func requireItem(customerID, productID string) error {
	var missing []string
	if strings.TrimSpace(customerID) == "" {
		missing = append(missing, "customerId")
	}
	if strings.TrimSpace(productID) == "" {
		missing = append(missing, "productId")
	}
	if len(missing) > 0 {
		return apperror.MissingFields(missing...)
	}
	return nil
}
