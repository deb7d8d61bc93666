package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// MemberContact is the addressable part of a member
type MemberContact struct {
	MemberID string
	Email    string
	Name     string
}

// DirectoryRepository reads organizations, members, access grants and links
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// FindOrganizationByName matches case-insensitively within one organization type.
// Returns ErrAmbiguous when more than one organization carries the name.
func (r *DirectoryRepository) FindOrganizationByName(ctx context.Context, name, orgType string) (*model.Organization, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var orgs []model.Organization
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND type = ?", name, orgType).
		Limit(2).
		Find(&orgs).Error
	if err != nil {
		return nil, translate(err)
	}
	switch len(orgs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &orgs[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

func (r *DirectoryRepository) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var org model.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

// FindActiveLink resolves the single active link between a buyer and a supplier
func (r *DirectoryRepository) FindActiveLink(ctx context.Context, buyerOrgID, supplierOrgID string) (*model.BuyerSupplierLink, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var links []model.BuyerSupplierLink
	err := r.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Supplier").
		Where("buyer_org_id = ? AND supplier_org_id = ? AND status = ?", buyerOrgID, supplierOrgID, model.LinkStatusActive).
		Limit(2).
		Find(&links).Error
	if err != nil {
		return nil, translate(err)
	}
	switch len(links) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &links[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// ListLinksForBuyers returns links of any status so POs on deactivated links stay visible
func (r *DirectoryRepository) ListLinksForBuyers(ctx context.Context, buyerOrgIDs []string) ([]model.BuyerSupplierLink, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	links := []model.BuyerSupplierLink{}
	if len(buyerOrgIDs) == 0 {
		return links, nil
	}
	err := r.db.WithContext(ctx).
		Where("buyer_org_id IN ?", buyerOrgIDs).
		Find(&links).Error
	return links, translate(err)
}

func (r *DirectoryRepository) GetMember(ctx context.Context, id string) (*model.Member, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var m model.Member
	if err := r.db.WithContext(ctx).Preload("Organization").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *DirectoryRepository) FindMemberByShopifyCustomerID(ctx context.Context, customerID string) (*model.Member, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var m model.Member
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("shopify_customer_id = ?", customerID).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *DirectoryRepository) FindMemberByFirebaseUID(ctx context.Context, uid string) (*model.Member, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var m model.Member
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("firebase_uid = ?", uid).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// ListAccessibleOrgIDs returns the organizations a member was granted access to
func (r *DirectoryRepository) ListAccessibleOrgIDs(ctx context.Context, memberID string) ([]string, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&model.MemberAccess{}).
		Where("member_id = ?", memberID).
		Distinct().
		Pluck("organization_id", &ids).Error
	return ids, translate(err)
}

// ListMerchantContacts finds members of merchant organizations holding access to
// the buyer organization. Members reachable through several grants appear once.
func (r *DirectoryRepository) ListMerchantContacts(ctx context.Context, buyerOrgID string) ([]MemberContact, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var memberIDs []string
	err := r.db.WithContext(ctx).
		Model(&model.MemberAccess{}).
		Where("organization_id = ?", buyerOrgID).
		Pluck("member_id", &memberIDs).Error
	if err != nil {
		return nil, translate(err)
	}
	if len(memberIDs) == 0 {
		return []MemberContact{}, nil
	}

	var members []model.Member
	err = r.db.WithContext(ctx).
		Joins("JOIN organizations ON organizations.id = members.organization_id AND organizations.deleted_at IS NULL").
		Where("members.id IN ? AND organizations.type = ?", memberIDs, model.OrgTypeMerchant).
		Order("members.created_at").
		Find(&members).Error
	if err != nil {
		return nil, translate(err)
	}

	seen := make(map[string]bool, len(members))
	contacts := make([]MemberContact, 0, len(members))
	for _, m := range members {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		contacts = append(contacts, MemberContact{MemberID: m.ID, Email: m.Email, Name: m.Name})
	}
	return contacts, nil
}
