package http

import (
	"context"
	"encoding/json"
	"net/http"

	"budgetrelay/internal/domain/notification"
)

// DeviceRegistrar stores FCM tokens for push delivery.
type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, params notification.RegisterParams) (*notification.DeviceToken, error)
}

type DeviceHandler struct {
	registrar DeviceRegistrar
}

func NewDeviceHandler(registrar DeviceRegistrar) *DeviceHandler {
	return &DeviceHandler{registrar: registrar}
}

type RegisterDeviceRequest struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// HandleRegisterDevice handles POST /devices.
func (h *DeviceHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCallerError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, ok := resolveUserID(w, r, req.UserID)
	if !ok {
		return
	}

	_, err := h.registrar.RegisterDevice(r.Context(), notification.RegisterParams{
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
	})
	if err != nil {
		writeError(w, r, err, "Failed to register device")
		return
	}

	writeJSON(w, http.StatusCreated, SuccessResponse{Success: true})
}
