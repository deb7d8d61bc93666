package repository

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/nishant-jng/shopify-backend-sub000/internal/model"
	"github.com/nishant-jng/shopify-backend-sub000/internal/testutil"
)

func TestAlertRepository_Lifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	poID := "0d1f7c9e-1111-4a2b-8c3d-5e6f7a8b9c0d"

	alerts := []model.Alert{
		{Message: "PO uploaded", AlertType: model.AlertPOUpload, POID: &poID, RecipientUserID: "u1", POSnapshot: datatypes.JSONMap{"po_number": "A", "quantity": 1}},
		{Message: "PO uploaded", AlertType: model.AlertPOUpload, POID: &poID, RecipientUserID: "u2", POSnapshot: datatypes.JSONMap{"po_number": "A", "quantity": 1}},
	}
	if err := repo.CreateBatch(ctx, alerts); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	n, err := repo.PatchSnapshots(ctx, poID, func(s datatypes.JSONMap) datatypes.JSONMap {
		s["po_number"] = "B"
		return s
	})
	if err != nil || n != 2 {
		t.Fatalf("PatchSnapshots = %d, %v", n, err)
	}
	stored, _ := repo.ListByPO(ctx, poID)
	for _, a := range stored {
		if a.POSnapshot["po_number"] != "B" {
			t.Errorf("snapshot not patched: %v", a.POSnapshot)
		}
		if a.POSnapshot["quantity"] == nil {
			t.Errorf("unpatched key lost: %v", a.POSnapshot)
		}
	}

	list, err := repo.ListForRecipient(ctx, "u1", true, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForRecipient = %d, %v", len(list), err)
	}
	if err := repo.MarkRead(ctx, list[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, _ := repo.ListForRecipient(ctx, "u1", true, 10)
	if len(unread) != 0 {
		t.Errorf("unread after MarkRead = %d", len(unread))
	}
	if err := repo.MarkRead(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRead missing err = %v", err)
	}

	flipped, err := repo.MarkAllRead(ctx, "u2")
	if err != nil || flipped != 1 {
		t.Errorf("MarkAllRead = %d, %v", flipped, err)
	}
}
