package hubservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/cleanup"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/notification"
	"github.com/varroawatch/hub/internal/repository"
)

const imageContentType = "image/jpeg"

// DetectionService handles detection images and their effect on hive risk
type DetectionService interface {
	ReportDetection(ctx context.Context, userID, hiveID, imageData string) (*models.DetectionResult, error)
	ReportFalseDetection(ctx context.Context, userID, hiveID, imageID string) (*models.Report, error)
	ListImages(ctx context.Context, userID, hiveID string) ([]models.ImageSummary, error)
	ClearHiveImages(ctx context.Context, userID, hiveID string) (*cleanup.Result, error)
}

// ReportDetection stores a detection image and counts it against the hive.
// The counter update is atomic per hive, so concurrent reports each add
// exactly one. Steps that already completed are not undone when a later
// step fails.
func (s *HubService) ReportDetection(ctx context.Context, userID, hiveID, imageData string) (*models.DetectionResult, error) {
	if err := validateIDs("userId", userID, "hiveId", hiveID); err != nil {
		return nil, err
	}
	data, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.Hives().Get(ctx, userID, hiveID); err != nil {
		return nil, err
	}

	now := s.Now()
	imageID := nuts.NID("img", 16)
	path := fmt.Sprintf("images/%s/%s/%d_%s.jpg", userID, hiveID, now.UnixMilli(), imageID)

	url, err := s.Blobs.Upload(ctx, path, data, imageContentType)
	if err != nil {
		return nil, err
	}

	image := &models.Image{
		ID:          imageID,
		UserID:      userID,
		HiveID:      hiveID,
		StoragePath: path,
		ImageURL:    url,
		CreatedAt:   now,
	}
	if err := s.Store.Images().Create(ctx, image); err != nil {
		nuts.L.Errorf("[DetectionService] Blob %s stored but its record failed: %v", path, err)
		return nil, err
	}

	var updated *models.Hive
	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		hive, err := tx.Hives().GetForUpdate(ctx, userID, hiveID)
		if err != nil {
			return err
		}
		hive.ApplyDetection(now)
		if err := tx.Hives().UpdateDetectionState(ctx, hive); err != nil {
			return err
		}
		updated = hive
		return nil
	})
	if err != nil {
		nuts.L.Errorf("[DetectionService] Image %s recorded but counter update failed for %s/%s: %v", imageID, userID, hiveID, err)
		return nil, err
	}

	nuts.L.Infof("[DetectionService] Detection %s on %s/%s: count=%d risk=%s",
		imageID, userID, hiveID, updated.DetectionCount, updated.RiskLevel)
	s.observer.DetectionRecorded(string(updated.RiskLevel))

	if models.IsAlertThreshold(updated.DetectionCount) {
		s.alertOwner(ctx, updated)
	}

	return &models.DetectionResult{
		Image:          image,
		DetectionCount: updated.DetectionCount,
		RiskLevel:      updated.RiskLevel,
	}, nil
}

// alertOwner queues a silent risk alert. It never fails the caller.
func (s *HubService) alertOwner(ctx context.Context, hive *models.Hive) {
	if s.Notifier == nil {
		return
	}
	user, err := s.Store.Users().Get(ctx, hive.UserID)
	if err != nil {
		nuts.L.Warnf("[DetectionService] Cannot alert owner of %s/%s: %v", hive.UserID, hive.ID, err)
		return
	}
	s.Notifier.Notify(user.Token(), notification.RiskAlert(hive))
}

// ReportFalseDetection archives a detection image as a report and takes the
// detection back off the hive's counter.
func (s *HubService) ReportFalseDetection(ctx context.Context, userID, hiveID, imageID string) (*models.Report, error) {
	if err := validateIDs("userId", userID, "hiveId", hiveID, "imageId", imageID); err != nil {
		return nil, err
	}

	image, err := s.Store.Images().Get(ctx, userID, hiveID, imageID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	archivePath := fmt.Sprintf("reports/%s/%s/%s_%d.jpg", userID, hiveID, imageID, now.UnixMilli())
	if err := s.Blobs.Copy(ctx, image.StoragePath, archivePath); err != nil {
		return nil, err
	}
	archivedURL, err := s.Blobs.Publish(ctx, archivePath)
	if err != nil {
		nuts.L.Errorf("[DetectionService] Archived %s but could not publish it: %v", archivePath, err)
		return nil, err
	}

	report := &models.Report{
		ID:                nuts.NID("rpt", 16),
		UserID:            userID,
		HiveID:            hiveID,
		ImageID:           imageID,
		OriginalTimestamp: image.CreatedAt,
		ReportedAt:        now,
		StoragePath:       archivePath,
		ImageURL:          archivedURL,
		Status:            models.ReportStatusReported,
	}

	err = s.Store.WithTx(ctx, func(tx repository.Store) error {
		hive, err := tx.Hives().GetForUpdate(ctx, userID, hiveID)
		if err != nil {
			return err
		}
		hive.RevertDetection()
		if err := tx.Hives().UpdateDetectionState(ctx, hive); err != nil {
			return err
		}
		if err := tx.Reports().Create(ctx, report); err != nil {
			return err
		}
		return tx.Images().Delete(ctx, userID, hiveID, imageID)
	})
	if err != nil {
		nuts.L.Errorf("[DetectionService] Report for %s failed, archive copy %s is orphaned: %v", imageID, archivePath, err)
		return nil, err
	}

	if err := s.Blobs.Delete(ctx, image.StoragePath); err != nil {
		nuts.L.Warnf("[DetectionService] Failed to delete original blob %s: %v", image.StoragePath, err)
	}

	nuts.L.Infof("[DetectionService] Image %s of %s/%s reported as false detection (%s)", imageID, userID, hiveID, report.ID)
	s.observer.FalseDetectionReported()
	return report, nil
}

// ListImages returns a hive's detection images, newest first
func (s *HubService) ListImages(ctx context.Context, userID, hiveID string) ([]models.ImageSummary, error) {
	if err := validateIDs("userId", userID, "hiveId", hiveID); err != nil {
		return nil, err
	}
	if _, err := s.Store.Hives().Get(ctx, userID, hiveID); err != nil {
		return nil, err
	}

	images, err := s.Store.Images().ListByHive(ctx, userID, hiveID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ImageSummary, 0, len(images))
	for _, image := range images {
		created := image.CreatedAt
		summaries = append(summaries, models.ImageSummary{
			ImageID:   image.ID,
			Timestamp: s.formatTime(&created),
			ImageURL:  image.ImageURL,
		})
	}
	return summaries, nil
}

// ClearHiveImages deletes every image of a hive and resets its counter
func (s *HubService) ClearHiveImages(ctx context.Context, userID, hiveID string) (*cleanup.Result, error) {
	if err := validateIDs("userId", userID, "hiveId", hiveID); err != nil {
		return nil, err
	}
	return s.Cleanup.ClearHiveImages(ctx, userID, hiveID)
}

// decodeImage accepts plain or data-URL base64, padded or not.
func decodeImage(imageData string) ([]byte, error) {
	payload := strings.TrimSpace(imageData)
	if i := strings.Index(payload, ";base64,"); strings.HasPrefix(payload, "data:") && i >= 0 {
		payload = payload[i+len(";base64,"):]
	}
	if payload == "" {
		return nil, errors.NewValidationError("imageData is required", nil)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, errors.NewValidationError("imageData is not valid base64", err)
	}
	if len(data) == 0 {
		return nil, errors.NewValidationError("imageData is empty", nil)
	}
	return data, nil
}
