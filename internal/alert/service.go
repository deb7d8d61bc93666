// Package alert fans PO and PI events out to in-app alerts and email.
package alert

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/repository"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

const listLimit = 100

// Event is something that happened to a purchase order
type Event struct {
	Type  model.AlertType
	PO    *model.PurchaseOrder
	Actor string
}

type alertStore interface {
	CreateBatch(ctx context.Context, alerts []model.Alert) error
	PatchSnapshots(ctx context.Context, poID string, patch func(datatypes.JSONMap) datatypes.JSONMap) (int, error)
	ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]model.Alert, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type emailSubmitter interface {
	Submit(job EmailJob) bool
}

// Resolvers picks a recipient policy per PO variant
type Resolvers struct {
	// Legacy handles POs created with a free-text buyer name
	Legacy RecipientResolver
	// Relational handles POs attached to a buyer-supplier link
	Relational RecipientResolver
}

type Service struct {
	alerts    alertStore
	resolvers Resolvers
	emails    emailSubmitter
	portalURL string
	log       *zap.Logger
	now       func() time.Time
}

func NewService(alerts alertStore, resolvers Resolvers, emails emailSubmitter, portalURL string, log *zap.Logger) *Service {
	return &Service{
		alerts:    alerts,
		resolvers: resolvers,
		emails:    emails,
		portalURL: portalURL,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) resolverFor(po *model.PurchaseOrder) RecipientResolver {
	if po.IsLegacy() {
		return s.resolvers.Legacy
	}
	return s.resolvers.Relational
}

// Notify persists one alert per recipient and queues the emails. Failures are
// logged and never returned; the result is the number of alert rows created.
func (s *Service) Notify(ctx context.Context, ev Event) int {
	log := s.log.With(zap.String("alert_type", string(ev.Type)), zap.String("po_id", ev.PO.ID))

	resolver := s.resolverFor(ev.PO)
	if resolver == nil {
		log.Warn("No recipient resolver configured for PO variant", zap.Bool("legacy", ev.PO.IsLegacy()))
		return 0
	}
	recipients, err := resolver.Resolve(ctx, ev.PO)
	if err != nil {
		log.Error("Failed to resolve alert recipients", zap.Error(err))
		return 0
	}
	if len(recipients) == 0 {
		log.Info("No alert recipients for PO")
		return 0
	}

	message := describe(ev)
	snapshot := datatypes.JSONMap(ev.PO.Snapshot())
	poID := ev.PO.ID

	rows := make([]model.Alert, 0, len(recipients))
	for _, r := range recipients {
		rows = append(rows, model.Alert{
			Message:         message,
			AlertType:       ev.Type,
			POID:            &poID,
			POSnapshot:      copySnapshot(snapshot),
			RecipientUserID: r.UserID,
		})
	}

	created := 0
	if err := s.alerts.CreateBatch(ctx, rows); err != nil {
		log.Error("Failed to persist alerts", zap.Int("recipients", len(rows)), zap.Error(err))
	} else {
		created = len(rows)
		prometheus.AlertsCreatedCounter.WithLabelValues(string(ev.Type)).Add(float64(created))
	}

	if s.emails != nil {
		subject, text, htmlBody := s.renderEmail(ev, message)
		s.emails.Submit(EmailJob{
			Event:      string(ev.Type),
			POID:       poID,
			Recipients: recipients,
			Subject:    subject,
			Text:       text,
			HTML:       htmlBody,
		})
	}

	log.Info("Alerts created", zap.Int("count", created))
	return created
}

// PatchSnapshots merges changes into the snapshot of every alert for poID and
// appends description to the snapshot's change history.
func (s *Service) PatchSnapshots(ctx context.Context, poID string, changes map[string]interface{}, description string) int {
	at := s.now().UTC().Format(time.RFC3339)
	n, err := s.alerts.PatchSnapshots(ctx, poID, func(snapshot datatypes.JSONMap) datatypes.JSONMap {
		if snapshot == nil {
			snapshot = datatypes.JSONMap{}
		}
		for k, v := range changes {
			snapshot[k] = v
		}
		if description != "" {
			history, _ := snapshot["changes"].([]interface{})
			snapshot["changes"] = append(history, map[string]interface{}{
				"at":          at,
				"description": description,
			})
		}
		return snapshot
	})
	if err != nil {
		s.log.Error("Failed to patch alert snapshots", zap.String("po_id", poID), zap.Error(err))
		return 0
	}
	return n
}

// List returns the newest alerts for a recipient
func (s *Service) List(ctx context.Context, recipientID string, unreadOnly bool) ([]model.Alert, error) {
	if recipientID == "" {
		return nil, apperror.MissingFields("userId")
	}
	alerts, err := s.alerts.ListForRecipient(ctx, recipientID, unreadOnly, listLimit)
	if err != nil {
		return nil, apperror.Dependency("failed to list alerts", err)
	}
	return alerts, nil
}

func (s *Service) MarkRead(ctx context.Context, alertID string) error {
	if err := s.alerts.MarkRead(ctx, alertID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("alert not found")
		}
		return apperror.Dependency("failed to mark alert read", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	if recipientID == "" {
		return 0, apperror.MissingFields("userId")
	}
	n, err := s.alerts.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, apperror.Dependency("failed to mark alerts read", err)
	}
	return n, nil
}

func describe(ev Event) string {
	po := ev.PO
	actor := ev.Actor
	if actor == "" {
		actor = "someone"
	}
	switch ev.Type {
	case model.AlertPOUpload:
		if supplier := po.SupplierDisplayName(); supplier != "" {
			return fmt.Sprintf("New PO %s uploaded by %s for %s (supplier %s)", po.PONumber, actor, po.BuyerDisplayName(), supplier)
		}
		return fmt.Sprintf("New PO %s uploaded by %s for %s", po.PONumber, actor, po.BuyerDisplayName())
	case model.AlertPIUpload:
		return fmt.Sprintf("PI uploaded for PO %s (%s)", po.PONumber, po.BuyerDisplayName())
	case model.AlertPODeleted:
		return fmt.Sprintf("PO %s for %s was deleted by %s", po.PONumber, po.BuyerDisplayName(), actor)
	default:
		return fmt.Sprintf("PO %s updated", po.PONumber)
	}
}

func (s *Service) renderEmail(ev Event, message string) (subject, text, htmlBody string) {
	po := ev.PO
	subject = message

	text = fmt.Sprintf("%s\n\nPO number: %s\nBuyer: %s\nReceived: %s\nQuantity: %d\nAmount: %s %s\n",
		message, po.PONumber, po.BuyerDisplayName(), po.ReceivedDate, po.Quantity, po.Amount.StringFixed(2), po.Currency)
	if s.portalURL != "" {
		text += "\nOpen the portal: " + s.portalURL + "\n"
	}

	htmlBody = fmt.Sprintf("<p>%s</p><table>"+
		"<tr><td>PO number</td><td>%s</td></tr>"+
		"<tr><td>Buyer</td><td>%s</td></tr>"+
		"<tr><td>Received</td><td>%s</td></tr>"+
		"<tr><td>Quantity</td><td>%d</td></tr>"+
		"<tr><td>Amount</td><td>%s %s</td></tr></table>",
		html.EscapeString(message),
		html.EscapeString(po.PONumber),
		html.EscapeString(po.BuyerDisplayName()),
		html.EscapeString(po.ReceivedDate),
		po.Quantity,
		po.Amount.StringFixed(2), html.EscapeString(po.Currency))
	if s.portalURL != "" {
		htmlBody += fmt.Sprintf(`<p><a href="%s">Open the portal</a></p>`, html.EscapeString(s.portalURL))
	}
	return subject, text, htmlBody
}

func copySnapshot(s datatypes.JSONMap) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
