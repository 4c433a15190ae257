package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fitnease/comms/internal/application/device"
	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/transport/http/middleware"
)

// DeviceHandler handles device-token endpoints.
type DeviceHandler struct {
	svc device.Service
}

func NewDeviceHandler(svc device.Service) *DeviceHandler { return &DeviceHandler{svc: svc} }

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterDeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.svc.Register(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DeviceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req domain.RemoveDeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	found, err := h.svc.Remove(r.Context(), req.Token)
	if err != nil {
		httpError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "token not registered"})
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "token removed"})
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	devices, err := h.svc.ListActive(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) DeactivateAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	count, err := h.svc.DeactivateAll(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}
