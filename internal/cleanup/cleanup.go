package cleanup

import (
	"context"
	"fmt"

	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/repository"
)

// Cleanup events. Handlers receive the affected id.
const (
	EventImageDeleted = "image.deleted"
	EventHiveReset    = "hive.reset"
)

// CleanupService coordinates deletion of a hive's images and blobs
type CleanupService struct {
	store  repository.Store
	blobs  repository.BlobStore
	events *nuts.EventEmitter
}

// Result summarizes one ClearHiveImages run.
type Result struct {
	ImagesDeleted int `json:"imagesDeleted"`
	BlobFailures  int `json:"blobFailures"`
}

// New creates a new CleanupService
func New(store repository.Store, blobs repository.BlobStore) *CleanupService {
	return &CleanupService{
		store:  store,
		blobs:  blobs,
		events: nuts.NewEventEmitter(),
	}
}

// ClearHiveImages deletes every image of a hive and resets its detection
// state. Blob deletion is best-effort: a failed blob is logged and counted
// and the remaining images are still processed.
func (s *CleanupService) ClearHiveImages(ctx context.Context, userID, hiveID string) (*Result, error) {
	if _, err := s.store.Hives().Get(ctx, userID, hiveID); err != nil {
		return nil, err
	}

	images, err := s.store.Images().ListByHive(ctx, userID, hiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	result := &Result{}
	for _, image := range images {
		if image.StoragePath == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, image.StoragePath); err != nil {
			result.BlobFailures++
			nuts.L.Warnf("[Cleanup] Failed to delete blob %s: %v", image.StoragePath, err)
		}
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		hive, err := tx.Hives().GetForUpdate(ctx, userID, hiveID)
		if err != nil {
			return err
		}
		for _, image := range images {
			err := tx.Images().Delete(ctx, userID, hiveID, image.ID)
			if err != nil && !errors.IsNotFound(err) {
				return fmt.Errorf("failed to delete image %s: %w", image.ID, err)
			}
		}
		hive.ResetDetections()
		return tx.Hives().UpdateDetectionState(ctx, hive)
	})
	if err != nil {
		return nil, err
	}

	// Emit events after the reset is committed
	for _, image := range images {
		s.events.Emit(EventImageDeleted, image.ID)
	}
	result.ImagesDeleted = len(images)
	s.events.Emit(EventHiveReset, hiveID)

	nuts.L.Infof("[Cleanup] Cleared %d images of %s/%s (%d blob failures)", len(images), userID, hiveID, result.BlobFailures)
	return result, nil
}

// OnCleanup registers a callback for cleanup events
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	s.events.On(event, "cleanup_handler_"+event, func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}
