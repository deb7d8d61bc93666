package alert

import (
	"context"
	"strings"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/internal/shopify"
)

// Recipient is someone who gets an alert row and an email
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// RecipientResolver decides who hears about an event on po
type RecipientResolver interface {
	Resolve(ctx context.Context, po *model.PurchaseOrder) ([]Recipient, error)
}

type merchantDirectory interface {
	ListMerchantContacts(ctx context.Context, buyerOrgID string) ([]repository.MemberContact, error)
}

// MerchantMembershipResolver returns members of merchant organizations that hold
// an access grant to the PO's buyer organization. Used for relational POs.
type MerchantMembershipResolver struct {
	dir merchantDirectory
}

func NewMerchantMembershipResolver(dir merchantDirectory) *MerchantMembershipResolver {
	return &MerchantMembershipResolver{dir: dir}
}

func (r *MerchantMembershipResolver) Resolve(ctx context.Context, po *model.PurchaseOrder) ([]Recipient, error) {
	buyerOrgID := po.BuyerOrgID()
	if buyerOrgID == "" {
		return nil, nil
	}
	contacts, err := r.dir.ListMerchantContacts(ctx, buyerOrgID)
	if err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, Recipient{UserID: c.MemberID, Email: c.Email, Name: c.Name})
	}
	return out, nil
}

type adminCustomerLister interface {
	ListCustomersWithMetafield(ctx context.Context, namespace, key, value string) ([]shopify.Customer, error)
}

// ShopifyAdminResolver returns store customers flagged as admins by a customer
// metafield. Used for legacy POs, which have no buyer organization.
type ShopifyAdminResolver struct {
	customers adminCustomerLister
	namespace string
	key       string
	value     string
}

func NewShopifyAdminResolver(customers adminCustomerLister, namespace, key, value string) *ShopifyAdminResolver {
	return &ShopifyAdminResolver{customers: customers, namespace: namespace, key: key, value: value}
}

func (r *ShopifyAdminResolver) Resolve(ctx context.Context, _ *model.PurchaseOrder) ([]Recipient, error) {
	customers, err := r.customers.ListCustomersWithMetafield(ctx, r.namespace, r.key, r.value)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(customers))
	out := make([]Recipient, 0, len(customers))
	for _, c := range customers {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		name := c.DisplayName
		if name == "" {
			name = strings.TrimSpace(c.FirstName + " " + c.LastName)
		}
		out = append(out, Recipient{UserID: c.ID, Email: c.Email, Name: name})
	}
	return out, nil
}
