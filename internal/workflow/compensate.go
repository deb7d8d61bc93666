package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/internal/storage"
	"github.com/nishant-jng/shopify-backend-sub000/pkg/apperror"
	"github.com/nishant-jng/shopify-backend-sub000/prometheus"
)

// commitWithCompensation stores obj, then runs commit. If commit fails the new
// object is removed again and commit's error is returned.
func commitWithCompensation(ctx context.Context, store storage.ObjectStore, log *zap.Logger, obj storage.Object, commit func(context.Context) error) error {
	if err := store.Upload(ctx, obj.Path, obj.ContentType, obj.Data); err != nil {
		return apperror.Dependency("file upload failed", err)
	}
	if err := commit(ctx); err != nil {
		rollback(ctx, store, log, obj.Path)
		return err
	}
	return nil
}

// replaceWithCompensation behaves like commitWithCompensation and removes
// oldPath once the commit succeeded.
func replaceWithCompensation(ctx context.Context, store storage.ObjectStore, log *zap.Logger, obj storage.Object, oldPath string, commit func(context.Context) error) error {
	if err := commitWithCompensation(ctx, store, log, obj, commit); err != nil {
		return err
	}
	if oldPath != "" && oldPath != obj.Path {
		removeSuperseded(ctx, store, log, oldPath)
	}
	return nil
}

// moveWithCompensation copies from to to, runs commit, then removes whichever
// copy is no longer referenced.
func moveWithCompensation(ctx context.Context, store storage.ObjectStore, log *zap.Logger, from, to string, commit func(context.Context) error) error {
	if err := storage.Move(ctx, store, from, to); err != nil {
		return apperror.Dependency("failed to move file", err)
	}
	if err := commit(ctx); err != nil {
		rollback(ctx, store, log, to)
		return err
	}
	removeSuperseded(ctx, store, log, from)
	return nil
}

func rollback(ctx context.Context, store storage.ObjectStore, log *zap.Logger, path string) {
	err := store.Remove(context.WithoutCancel(ctx), path)
	prometheus.RecordRollback(err)
	if err != nil {
		log.Error("Compensating delete failed, object orphaned", zap.String("path", path), zap.Error(err))
		return
	}
	log.Warn("Removed uploaded object after failed commit", zap.String("path", path))
}

func removeSuperseded(ctx context.Context, store storage.ObjectStore, log *zap.Logger, path string) {
	if err := store.Remove(context.WithoutCancel(ctx), path); err != nil {
		log.Error("Failed to remove superseded object", zap.String("path", path), zap.Error(err))
	}
}
