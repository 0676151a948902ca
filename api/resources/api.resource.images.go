// FilePath: api/resources/api.resource.images.go
package resources

import (
	"net/http"

	"github.com/varroawatch/hub/internal/hubservice"
	"github.com/varroawatch/hub/internal/models"
)

// ImageHandlers encapsulates the detection image HTTP handlers
type ImageHandlers struct {
	hubservice *hubservice.HubService
	decoder    *requestDecoder
}

// @Summary Upload a detection image
// @Description Store a base64 image and count it as one detection
// @Tags images
// @Accept json
// @Produce json
// @Param body body models.SaveImageRequest true "Detection image"
// @Success 200 {object} models.SaveImageResponse
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 413 {object} errors.APIError
// @Router /saveImage [post]
func (h *ImageHandlers) SaveImage(w http.ResponseWriter, r *http.Request) {
	var req models.SaveImageRequest
	if apiErr := h.decoder.body(w, r, &req); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	result, err := h.hubservice.ReportDetection(r.Context(), req.UserID, req.HiveID, req.ImageData)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to save image")
		return
	}

	respondWithJSON(w, http.StatusOK, models.SaveImageResponse{
		Message:        "Image uploaded",
		ImageID:        result.Image.ID,
		ImageURL:       result.Image.ImageURL,
		DetectionCount: result.DetectionCount,
		RiskLevel:      result.RiskLevel,
	})
}

// @Summary List a hive's detection images
// @Tags images
// @Produce json
// @Param userId query string true "User ID"
// @Param hiveId query string true "Hive ID"
// @Success 200 {array} models.ImageSummary
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /getHiveImages [get]
func (h *ImageHandlers) ListImages(w http.ResponseWriter, r *http.Request) {
	var query models.HiveRef
	if apiErr := h.decoder.params(r, &query); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	images, err := h.hubservice.ListImages(r.Context(), query.UserID, query.HiveID)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to list images")
		return
	}

	respondWithJSON(w, http.StatusOK, images)
}

// @Summary Report a false detection
// @Description Archive the image as a report and take the detection back
// @Tags images
// @Accept json
// @Produce json
// @Param body body models.FalseDetectionRequest true "Image reference"
// @Success 200 {object} models.FalseDetectionResponse
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /reportFalseDetection [post]
func (h *ImageHandlers) ReportFalseDetection(w http.ResponseWriter, r *http.Request) {
	var req models.FalseDetectionRequest
	if apiErr := h.decoder.body(w, r, &req); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	report, err := h.hubservice.ReportFalseDetection(r.Context(), req.UserID, req.HiveID, req.ImageID)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to report false detection")
		return
	}

	respondWithJSON(w, http.StatusOK, models.FalseDetectionResponse{
		Message:        "False detection reported successfully",
		ReportID:       report.ID,
		ReportImageURL: report.ImageURL,
	})
}
