package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fitnease/comms/internal/application/notification"
	"github.com/fitnease/comms/internal/domain"
)

// SettingsHandler handles notification preference endpoints.
type SettingsHandler struct {
	svc notification.Service
}

func NewSettingsHandler(svc notification.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	settings, err := h.svc.GetSettings(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateNotificationSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), userID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
