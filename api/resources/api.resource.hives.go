// FilePath: api/resources/api.resource.hives.go
package resources

import (
	"net/http"

	"github.com/varroawatch/hub/internal/hubservice"
	"github.com/varroawatch/hub/internal/models"
)

// HiveHandlers encapsulates the hive-related HTTP handlers
type HiveHandlers struct {
	hubservice *hubservice.HubService
	decoder    *requestDecoder
}

// @Summary Activate a hive
// @Description Mark a hive active and refresh its activation time
// @Tags hives
// @Accept json
// @Produce json
// @Param body body models.HiveRef true "Hive reference"
// @Success 200 {object} models.ActivateHiveResponse
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /activateHive [post]
func (h *HiveHandlers) ActivateHive(w http.ResponseWriter, r *http.Request) {
	var req models.HiveRef
	if apiErr := h.decoder.body(w, r, &req); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	at, err := h.hubservice.ActivateHive(r.Context(), req.UserID, req.HiveID)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to activate hive")
		return
	}

	respondWithJSON(w, http.StatusOK, models.ActivateHiveResponse{
		Message:        "Hive activated successfully",
		HiveID:         req.HiveID,
		IsActive:       true,
		LastActivation: at,
	})
}

// @Summary List a user's hives
// @Tags hives
// @Produce json
// @Param userId query string true "User ID"
// @Success 200 {array} models.HiveSummary
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /getUserHives [get]
func (h *HiveHandlers) ListHives(w http.ResponseWriter, r *http.Request) {
	var query models.UserQuery
	if apiErr := h.decoder.params(r, &query); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	hives, err := h.hubservice.ListHives(r.Context(), query.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to list hives")
		return
	}

	respondWithJSON(w, http.StatusOK, hives)
}

// @Summary Reset a hive
// @Description Delete every detection image of a hive and reset its counter
// @Tags hives
// @Accept json
// @Produce json
// @Param body body models.HiveRef true "Hive reference"
// @Success 200 {object} models.ClearHiveImagesResponse
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /clearHiveImages [post]
func (h *HiveHandlers) ClearHiveImages(w http.ResponseWriter, r *http.Request) {
	var req models.HiveRef
	if apiErr := h.decoder.body(w, r, &req); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	result, err := h.hubservice.ClearHiveImages(r.Context(), req.UserID, req.HiveID)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to clear hive images")
		return
	}

	respondWithJSON(w, http.StatusOK, models.ClearHiveImagesResponse{
		Message:       "All images deleted and hive reset successfully.",
		ImagesDeleted: result.ImagesDeleted,
		BlobFailures:  result.BlobFailures,
	})
}
