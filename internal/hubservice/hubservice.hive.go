package hubservice

import (
	"context"
	"time"

	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/models"
)

// ownerRoles are the read roles of a user looking at their own hives.
var ownerRoles = []string{"owner"}

// HiveService handles hive-related business logic
type HiveService interface {
	CreateHive(ctx context.Context, hive *models.Hive) error
	ActivateHive(ctx context.Context, userID, hiveID string) (time.Time, error)
	ListHives(ctx context.Context, userID string) ([]models.HiveSummary, error)
}

// CreateHive registers a new hive for an existing user
func (s *HubService) CreateHive(ctx context.Context, hive *models.Hive) error {
	if hive.ID == "" {
		hive.ID = nuts.NID("hv", 12)
	}
	if err := validateIDs("userId", hive.UserID, "hiveId", hive.ID); err != nil {
		return err
	}

	hive.CreatedAt = s.Now()
	hive.IsActive = false
	hive.LastActivation = nil
	hive.ResetDetections()

	nuts.L.Infof("[HiveService] Creating new hive: %s (%s/%s)", hive.DisplayName(), hive.UserID, hive.ID)
	return s.Store.Hives().Create(ctx, hive)
}

// ActivateHive marks a hive active as of now. Repeating it only refreshes
// the activation stamp.
func (s *HubService) ActivateHive(ctx context.Context, userID, hiveID string) (time.Time, error) {
	if err := validateIDs("userId", userID, "hiveId", hiveID); err != nil {
		return time.Time{}, err
	}

	now := s.Now()
	if err := s.Store.Hives().Activate(ctx, userID, hiveID, now); err != nil {
		return time.Time{}, err
	}

	nuts.L.Infof("[HiveService] Activated hive %s/%s", userID, hiveID)
	return now, nil
}

// ListHives returns the summaries of every hive of a user
func (s *HubService) ListHives(ctx context.Context, userID string) ([]models.HiveSummary, error) {
	if err := validateIDs("userId", userID); err != nil {
		return nil, err
	}
	if _, err := s.Store.Users().Get(ctx, userID); err != nil {
		return nil, err
	}

	hives, err := s.Store.Hives().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.HiveSummary, 0, len(hives))
	for _, hive := range hives {
		summaries = append(summaries, s.summarize(filterHive(hive, ownerRoles)))
	}
	return summaries, nil
}

// filterHive drops the fields roles may not read. A hive that cannot be
// filtered is returned as is.
func filterHive(hive *models.Hive, roles []string) *models.Hive {
	filteredMap, err := struccy.StructToMapFieldsWithReadXS(hive, roles)
	if err != nil {
		nuts.L.Warnf("[HiveService] Failed to filter hive %s: %v", hive.ID, err)
		return hive
	}
	// struccy cannot assign a nil pointer; unset stamps stay nil in the copy.
	for field, value := range filteredMap {
		if stamp, ok := value.(*time.Time); ok && stamp == nil {
			delete(filteredMap, field)
		}
	}
	filtered := &models.Hive{}
	if _, err := struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles); err != nil {
		nuts.L.Warnf("[HiveService] Failed to map filtered fields to hive struct %s: %v", hive.ID, err)
		return hive
	}
	return filtered
}

func (s *HubService) summarize(hive *models.Hive) models.HiveSummary {
	risk := hive.RiskLevel
	if !risk.Valid() {
		risk = models.Classify(hive.DetectionCount)
	}
	return models.HiveSummary{
		HiveID:         hive.ID,
		DetectionCount: hive.DetectionCount,
		IsActive:       hive.IsActive,
		Location:       hive.Location,
		LastActivation: s.formatTime(hive.LastActivation),
		HiveName:       hive.DisplayName(),
		RiskLevel:      risk,
	}
}
