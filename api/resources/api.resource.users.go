// FilePath: api/resources/api.resource.users.go
package resources

import (
	"net/http"

	"github.com/varroawatch/hub/internal/hubservice"
	"github.com/varroawatch/hub/internal/models"
)

// UserHandlers encapsulates the user-related HTTP handlers
type UserHandlers struct {
	hubservice *hubservice.HubService
	decoder    *requestDecoder
}

// @Summary Log a user in
// @Description Check credentials and register the device push token
// @Tags users
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} errors.APIError
// @Failure 401 {object} errors.APIError
// @Router /loginUser [post]
func (h *UserHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if apiErr := h.decoder.body(w, r, &req); apiErr != nil {
		respondWithError(w, r, apiErr)
		return
	}

	user, err := h.hubservice.Login(r.Context(), req.Email, req.Password, req.FCMToken)
	if err != nil {
		respondWithServiceError(w, r, err, "failed to log in")
		return
	}

	respondWithJSON(w, http.StatusOK, models.LoginResponse{
		Success: true,
		UserID:  user.ID,
		Email:   user.Email,
	})
}
