// Package workflow coordinates object storage writes with relational commits
// for purchase orders, proforma invoices and consultancy invoices.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/alert"
	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/internal/storage"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

type purchaseOrderStore interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	Get(ctx context.Context, id string) (*model.PurchaseOrder, error)
	GetUnscoped(ctx context.Context, id string) (*model.PurchaseOrder, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateUnconfirmed(ctx context.Context, id string, fields map[string]interface{}) error
	SoftDelete(ctx context.Context, id, deletedBy string) error
	List(ctx context.Context, filter repository.POFilter) ([]model.PurchaseOrder, error)
}

type directory interface {
	FindOrganizationByName(ctx context.Context, name, orgType string) (*model.Organization, error)
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	FindActiveLink(ctx context.Context, buyerOrgID, supplierOrgID string) (*model.BuyerSupplierLink, error)
	ListLinksForBuyers(ctx context.Context, buyerOrgIDs []string) ([]model.BuyerSupplierLink, error)
	GetMember(ctx context.Context, id string) (*model.Member, error)
	FindMemberByShopifyCustomerID(ctx context.Context, customerID string) (*model.Member, error)
	ListAccessibleOrgIDs(ctx context.Context, memberID string) ([]string, error)
}

type notifier interface {
	Notify(ctx context.Context, ev alert.Event) int
	PatchSnapshots(ctx context.Context, poID string, changes map[string]interface{}, description string) int
}

// POView is a purchase order as returned to clients
type POView struct {
	model.PurchaseOrder
	BuyerName       string `json:"buyer_name"`
	SupplierName    string `json:"supplier_name,omitempty"`
	POFilePublicURL string `json:"po_file_public_url,omitempty"`
	PIFilePublicURL string `json:"pi_file_public_url,omitempty"`
	Deleted         bool   `json:"deleted"`
}

// CreateResult is returned by both create variants
type CreateResult struct {
	PO         *model.PurchaseOrder
	AlertsSent int
}

type PurchaseOrderService struct {
	pos    purchaseOrderStore
	dir    directory
	store  storage.ObjectStore
	alerts notifier
	log    *zap.Logger
	now    func() time.Time
}

func NewPurchaseOrderService(pos purchaseOrderStore, dir directory, store storage.ObjectStore, alerts notifier, log *zap.Logger) *PurchaseOrderService {
	return &PurchaseOrderService{
		pos:    pos,
		dir:    dir,
		store:  store,
		alerts: alerts,
		log:    log,
		now:    time.Now,
	}
}

// buyerIdentity is who a PO belongs to: a free-text name (legacy) or a link
type buyerIdentity struct {
	legacyName        string
	shopifyCustomerID string
	link              *model.BuyerSupplierLink
}

func (b buyerIdentity) displayName() string {
	if b.link != nil && b.link.Buyer != nil {
		return b.link.Buyer.Name
	}
	return b.legacyName
}

func (s *PurchaseOrderService) view(po *model.PurchaseOrder) POView {
	v := POView{
		PurchaseOrder: *po,
		BuyerName:     po.BuyerDisplayName(),
		SupplierName:  po.SupplierDisplayName(),
		Deleted:       po.DeletedAt.Valid,
	}
	if po.POFileURL != "" {
		v.POFilePublicURL = s.store.PublicURL(po.POFileURL)
	}
	if po.PIFileURL != nil && *po.PIFileURL != "" {
		v.PIFilePublicURL = s.store.PublicURL(*po.PIFileURL)
	}
	return v
}

// View renders po for a response
func (s *PurchaseOrderService) View(po *model.PurchaseOrder) POView {
	return s.view(po)
}

// CreateLegacy stores a PO whose buyer is a free-text name
func (s *PurchaseOrderService) CreateLegacy(ctx context.Context, req LegacyPORequest) (res *CreateResult, err error) {
	defer func() { prometheus.RecordPOOperation("create_legacy", err) }()

	draft, err := req.parse()
	if err != nil {
		return nil, err
	}
	return s.create(ctx, draft, buyerIdentity{
		legacyName:        strings.TrimSpace(req.BuyerName),
		shopifyCustomerID: strings.TrimSpace(req.ShopifyCustomerID),
	})
}

// CreateRelational stores a PO attached to the active link between the named
// buyer and supplier organizations
func (s *PurchaseOrderService) CreateRelational(ctx context.Context, req RelationalPORequest) (res *CreateResult, err error) {
	defer func() { prometheus.RecordPOOperation("create_relational", err) }()

	draft, err := req.parse()
	if err != nil {
		return nil, err
	}
	link, err := s.resolveLink(ctx, strings.TrimSpace(req.BuyerName), strings.TrimSpace(req.SupplierName))
	if err != nil {
		return nil, err
	}
	return s.create(ctx, draft, buyerIdentity{link: link})
}

func (s *PurchaseOrderService) resolveLink(ctx context.Context, buyerName, supplierName string) (*model.BuyerSupplierLink, error) {
	invalid := func(reason string) error {
		return apperror.Validation("invalid relationship").WithDetails(map[string]any{
			"buyerName":    buyerName,
			"supplierName": supplierName,
			"reason":       reason,
		})
	}

	buyer, err := s.dir.FindOrganizationByName(ctx, buyerName, model.OrgTypeBuyer)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, invalid("unknown buyer")
	case errors.Is(err, repository.ErrAmbiguous):
		return nil, invalid("buyer name matches several organizations")
	case err != nil:
		return nil, apperror.Dependency("failed to resolve buyer", err)
	}

	supplier, err := s.dir.FindOrganizationByName(ctx, supplierName, model.OrgTypeSupplier)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, invalid("unknown supplier")
	case errors.Is(err, repository.ErrAmbiguous):
		return nil, invalid("supplier name matches several organizations")
	case err != nil:
		return nil, apperror.Dependency("failed to resolve supplier", err)
	}

	link, err := s.dir.FindActiveLink(ctx, buyer.ID, supplier.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, invalid("no active link")
	case errors.Is(err, repository.ErrAmbiguous):
		return nil, invalid("more than one active link")
	case err != nil:
		return nil, apperror.Dependency("failed to resolve link", err)
	}
	return link, nil
}

// create is shared by both variants once the buyer identity is known
func (s *PurchaseOrderService) create(ctx context.Context, draft *poDraft, id buyerIdentity) (*CreateResult, error) {
	po := &model.PurchaseOrder{
		ShopifyCustomerID: id.shopifyCustomerID,
		PONumber:          draft.PONumber,
		ReceivedDate:      formatDate(draft.Received),
		Quantity:          draft.Quantity,
		Amount:            draft.Amount,
		Currency:          draft.Currency,
		CreatedBy:         draft.CreatedBy,
	}
	if id.link != nil {
		linkID := id.link.ID
		po.LinkID = &linkID
	} else {
		name := id.legacyName
		po.BuyerName = &name
	}

	obj := storage.Object{
		Path: storage.BuildPath(storage.PathParams{
			Buyer:    id.displayName(),
			Date:     draft.Received,
			Folder:   draft.PONumber,
			Kind:     storage.KindPO,
			Filename: draft.File.Filename,
			At:       s.now(),
		}),
		ContentType: fileContentType(draft.File),
		Data:        draft.File.Data,
	}
	po.POFileURL = obj.Path

	log := s.log.With(zap.String("po_number", po.PONumber), zap.String("buyer", id.displayName()))
	err := commitWithCompensation(ctx, s.store, log, obj, func(ctx context.Context) error {
		if err := s.pos.Create(ctx, po); err != nil {
			return apperror.Dependency("failed to save purchase order", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create purchase order", zap.Error(err))
		return nil, err
	}
	po.Link = id.link

	log.Info("Purchase order created", zap.String("po_id", po.ID), zap.String("path", obj.Path))
	sent := s.alerts.Notify(ctx, alert.Event{Type: model.AlertPOUpload, PO: po, Actor: draft.CreatedBy})
	return &CreateResult{PO: po, AlertsSent: sent}, nil
}

func (s *PurchaseOrderService) load(ctx context.Context, poID string) (*model.PurchaseOrder, error) {
	po, err := s.pos.Get(ctx, poID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("purchase order not found")
	}
	if err != nil {
		return nil, apperror.Dependency("failed to load purchase order", err)
	}
	return po, nil
}

var errLockedByPI = apperror.Conflict("cannot modify after PI confirmation")

// Update edits a PO until its PI is confirmed
func (s *PurchaseOrderService) Update(ctx context.Context, poID string, req UpdatePORequest) (po *model.PurchaseOrder, err error) {
	defer func() { prometheus.RecordPOOperation("update", err) }()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	po, err = s.load(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.PIConfirmed {
		return nil, errLockedByPI
	}

	fields := map[string]interface{}{}
	changes := map[string]interface{}{}
	var described []string
	received, perr := po.Received()
	if perr != nil {
		s.log.Warn("Stored received date is malformed, using creation date for file paths",
			zap.String("po_id", po.ID), zap.String("received_date", po.ReceivedDate), zap.Error(perr))
		received = po.CreatedAt
	}

	if n := req.poNumber(); n != "" && n != po.PONumber {
		fields["po_number"] = n
		changes["po_number"] = n
		described = append(described, fmt.Sprintf("PO number %s -> %s", po.PONumber, n))
	}
	if req.ReceivedDate != "" {
		t, err := time.Parse(DateLayout, req.ReceivedDate)
		if err != nil {
			return nil, apperror.MissingFields("poReceivedDate")
		}
		if d := formatDate(t); d != po.ReceivedDate {
			received = t
			fields["received_date"] = d
			changes["received_date"] = d
			described = append(described, fmt.Sprintf("received date %s -> %s", po.ReceivedDate, d))
		}
	}
	if req.Quantity != "" {
		q, err := parseQuantity(req.Quantity)
		if err != nil {
			return nil, err
		}
		if q != po.Quantity {
			fields["quantity"] = q
			changes["quantity"] = q
			described = append(described, fmt.Sprintf("quantity %d -> %d", po.Quantity, q))
		}
	}
	if req.Value != "" {
		a, err := decimal.NewFromString(req.Value)
		if err != nil || a.IsNegative() {
			return nil, apperror.MissingFields("value")
		}
		if !a.Equal(po.Amount) {
			fields["amount"] = a
			changes["amount"] = a.StringFixed(2)
			described = append(described, fmt.Sprintf("amount %s -> %s", po.Amount.StringFixed(2), a.StringFixed(2)))
		}
	}
	if req.Currency != "" {
		if c := normalizeCurrency(req.Currency); c != po.Currency {
			fields["currency"] = c
			changes["currency"] = c
			described = append(described, fmt.Sprintf("currency %s -> %s", po.Currency, c))
		}
	}
	hasFile := req.File != nil && len(req.File.Data) > 0
	if len(fields) == 0 && !hasFile {
		return nil, apperror.Validation("no changes supplied")
	}
	if req.UpdatedBy != "" {
		fields["updated_by_name"] = req.UpdatedBy
	}

	folder := po.PONumber
	if n, ok := fields["po_number"].(string); ok {
		folder = n
	}
	log := s.log.With(zap.String("po_id", po.ID))
	commit := func(ctx context.Context) error {
		return s.commitUnconfirmed(ctx, po.ID, fields)
	}

	switch {
	case hasFile:
		obj := storage.Object{
			Path: storage.BuildPath(storage.PathParams{
				Buyer: po.BuyerDisplayName(), Date: received, Folder: folder,
				Kind: storage.KindPO, Filename: req.File.Filename, At: s.now(),
			}),
			ContentType: fileContentType(req.File),
			Data:        req.File.Data,
		}
		fields["po_file_url"] = obj.Path
		changes["po_file_url"] = obj.Path
		described = append(described, "PO file replaced")
		err = replaceWithCompensation(ctx, s.store, log, obj, po.POFileURL, commit)

	case folder != po.PONumber && po.POFileURL != "":
		newPath := storage.BuildPath(storage.PathParams{
			Buyer: po.BuyerDisplayName(), Date: received, Folder: folder,
			Kind: storage.KindPO, Filename: originalFilename(po.POFileURL), At: s.now(),
		})
		fields["po_file_url"] = newPath
		changes["po_file_url"] = newPath
		err = moveWithCompensation(ctx, s.store, log, po.POFileURL, newPath, commit)

	default:
		err = commit(ctx)
	}
	if err != nil {
		log.Error("Failed to update purchase order", zap.Error(err))
		return nil, err
	}

	updated, err := s.load(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	description := strings.Join(described, "; ")
	if req.UpdatedBy != "" {
		description += " (by " + req.UpdatedBy + ")"
	}
	s.alerts.PatchSnapshots(ctx, po.ID, changes, description)

	log.Info("Purchase order updated", zap.Strings("changes", described))
	return updated, nil
}

// commitUnconfirmed maps a lost race with a PI upload to a conflict
func (s *PurchaseOrderService) commitUnconfirmed(ctx context.Context, poID string, fields map[string]interface{}) error {
	err := s.pos.UpdateUnconfirmed(ctx, poID, fields)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperror.Dependency("failed to update purchase order", err)
	}
	current, getErr := s.pos.Get(ctx, poID)
	if getErr == nil && current.PIConfirmed {
		return errLockedByPI
	}
	return apperror.NotFound("purchase order not found")
}

// AttachPI stores a proforma invoice and confirms the PO. A previous PI file
// is replaced.
func (s *PurchaseOrderService) AttachPI(ctx context.Context, poID string, req PIRequest) (po *model.PurchaseOrder, err error) {
	defer func() { prometheus.RecordPOOperation("attach_pi", err) }()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	piDate, err := time.Parse(DateLayout, req.PIReceivedDate)
	if err != nil {
		return nil, apperror.MissingFields("piReceivedDate")
	}
	if len(req.File.Data) == 0 {
		return nil, apperror.MissingFields("piFile")
	}
	po, err = s.load(ctx, poID)
	if err != nil {
		return nil, err
	}

	obj := storage.Object{
		Path: storage.BuildPath(storage.PathParams{
			Buyer: po.BuyerDisplayName(), Date: piDate, Folder: po.PONumber,
			Kind: storage.KindPI, Filename: req.File.Filename, At: s.now(),
		}),
		ContentType: fileContentType(req.File),
		Data:        req.File.Data,
	}
	fields := map[string]interface{}{
		"pi_confirmed":     true,
		"pi_received_date": formatDate(piDate),
		"pi_file_url":      obj.Path,
	}
	if req.UploadedBy != "" {
		fields["updated_by_name"] = req.UploadedBy
	}
	oldPath := ""
	if po.PIFileURL != nil {
		oldPath = *po.PIFileURL
	}

	log := s.log.With(zap.String("po_id", po.ID), zap.String("po_number", po.PONumber))
	err = replaceWithCompensation(ctx, s.store, log, obj, oldPath, func(ctx context.Context) error {
		if err := s.pos.Update(ctx, po.ID, fields); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.NotFound("purchase order not found")
			}
			return apperror.Dependency("failed to save PI", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to attach PI", zap.Error(err))
		return nil, err
	}

	updated, err := s.load(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	s.alerts.PatchSnapshots(ctx, po.ID, map[string]interface{}{
		"pi_confirmed":     true,
		"pi_received_date": fields["pi_received_date"],
		"pi_file_url":      obj.Path,
	}, "PI attached")
	s.alerts.Notify(ctx, alert.Event{Type: model.AlertPIUpload, PO: updated, Actor: req.UploadedBy})

	log.Info("PI attached", zap.String("path", obj.Path))
	return updated, nil
}

// Delete hides a PO from listings. Stored files and alert history remain.
func (s *PurchaseOrderService) Delete(ctx context.Context, poID string, req DeletePORequest) (err error) {
	defer func() { prometheus.RecordPOOperation("delete", err) }()

	if err := validateRequest(&req); err != nil {
		return err
	}
	po, err := s.load(ctx, poID)
	if err != nil {
		return err
	}
	if err := s.pos.SoftDelete(ctx, po.ID, req.DeletedBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("purchase order not found")
		}
		return apperror.Dependency("failed to delete purchase order", err)
	}
	po.DeletedByName = req.DeletedBy

	s.alerts.Notify(ctx, alert.Event{Type: model.AlertPODeleted, PO: po, Actor: req.DeletedBy})
	s.alerts.PatchSnapshots(ctx, po.ID, map[string]interface{}{
		"deleted":    true,
		"deleted_by": req.DeletedBy,
		"deleted_at": s.now().UTC().Format(time.RFC3339),
	}, "PO deleted by "+req.DeletedBy)

	s.log.Info("Purchase order deleted", zap.String("po_id", po.ID), zap.String("deleted_by", req.DeletedBy))
	return nil
}

// ListForCustomer returns relational POs of the customer's buyer organizations
// plus legacy POs the customer uploaded
func (s *PurchaseOrderService) ListForCustomer(ctx context.Context, shopifyCustomerID string) ([]POView, error) {
	if shopifyCustomerID == "" {
		return nil, apperror.MissingFields("shopifyCustomerId")
	}
	filter := repository.POFilter{ShopifyCustomerID: shopifyCustomerID}

	member, err := s.dir.FindMemberByShopifyCustomerID(ctx, shopifyCustomerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, apperror.Dependency("failed to resolve member", err)
	default:
		orgIDs, err := s.accessibleOrgs(ctx, member)
		if err != nil {
			return nil, err
		}
		if filter.LinkIDs, err = s.linkIDs(ctx, orgIDs); err != nil {
			return nil, err
		}
	}
	return s.list(ctx, filter)
}

// ListForMerchant returns POs of every buyer organization the member can see
func (s *PurchaseOrderService) ListForMerchant(ctx context.Context, memberID string) ([]POView, error) {
	if memberID == "" {
		return nil, apperror.MissingFields("memberId")
	}
	member, err := s.dir.GetMember(ctx, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("member not found")
	}
	if err != nil {
		return nil, apperror.Dependency("failed to resolve member", err)
	}
	orgIDs, err := s.accessibleOrgs(ctx, member)
	if err != nil {
		return nil, err
	}
	linkIDs, err := s.linkIDs(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.POFilter{LinkIDs: linkIDs})
}

// Get resolves a PO by id, soft-deleted ones included
func (s *PurchaseOrderService) Get(ctx context.Context, poID string) (*POView, error) {
	po, err := s.pos.GetUnscoped(ctx, poID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("purchase order not found")
	}
	if err != nil {
		return nil, apperror.Dependency("failed to load purchase order", err)
	}
	v := s.view(po)
	return &v, nil
}

func (s *PurchaseOrderService) accessibleOrgs(ctx context.Context, member *model.Member) ([]string, error) {
	orgIDs, err := s.dir.ListAccessibleOrgIDs(ctx, member.ID)
	if err != nil {
		return nil, apperror.Dependency("failed to load access grants", err)
	}
	if member.Organization != nil && member.Organization.Type == model.OrgTypeBuyer {
		orgIDs = appendUnique(orgIDs, member.OrganizationID)
	}
	return orgIDs, nil
}

func (s *PurchaseOrderService) linkIDs(ctx context.Context, orgIDs []string) ([]string, error) {
	links, err := s.dir.ListLinksForBuyers(ctx, orgIDs)
	if err != nil {
		return nil, apperror.Dependency("failed to load links", err)
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

func (s *PurchaseOrderService) list(ctx context.Context, filter repository.POFilter) ([]POView, error) {
	pos, err := s.pos.List(ctx, filter)
	if err != nil {
		return nil, apperror.Dependency("failed to list purchase orders", err)
	}
	views := make([]POView, 0, len(pos))
	for i := range pos {
		views = append(views, s.view(&pos[i]))
	}
	return views, nil
}

func parseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil || q < 0 {
		return 0, apperror.MissingFields("quantity")
	}
	return q, nil
}

func fileContentType(f *FileUpload) string {
	if f.ContentType != "" && f.ContentType != "application/octet-stream" {
		return f.ContentType
	}
	return storage.ContentType(f.Filename, f.Data)
}

// originalFilename recovers the uploaded name from {kind}_{millis}_{name}
func originalFilename(objectPath string) string {
	base := path.Base(objectPath)
	parts := strings.SplitN(base, "_", 3)
	if len(parts) == 3 {
		return parts[2]
	}
	return base
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
