package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"patlogger/internal/domain"
	"patlogger/internal/util"
)

// cleanupConcurrency bounds parallel object deletions during cleanup.
const cleanupConcurrency = 4

// ListAllBlobs returns every stored blob, newest first (admin use only).
func (a *App) ListAllBlobs() ([]domain.Blob, error) {
	return a.store.ListBlobs()
}

// ListOrphanedBlobs returns blobs no inspection references that have
// outlived the retention window (admin use only).
func (a *App) ListOrphanedBlobs() ([]domain.Blob, error) {
	return a.store.ListOrphanedBlobs(a.now().Add(-a.blobRetention))
}

// CleanupOrphanedBlobs purges unreferenced blobs older than the retention
// window and reports how many were removed. Blobs created within the
// window are left alone so in-flight uploads are never raced.
func (a *App) CleanupOrphanedBlobs(ctx context.Context) (int, error) {
	orphans, err := a.ListOrphanedBlobs()
	if err != nil {
		return 0, fmt.Errorf("list orphaned blobs: %w", err)
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cleanupConcurrency)
	for _, blob := range orphans {
		g.Go(func() error {
			if err := a.purgeBlob(ctx, blob.ID); err != nil {
				return fmt.Errorf("purge blob %s: %w", blob.ID, err)
			}
			util.LoggerFromContext(ctx).Info("purged orphaned blob",
				slog.String("blob_id", blob.ID),
				slog.String("filename", blob.Filename))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(orphans), nil
}
