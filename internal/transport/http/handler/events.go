package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fitnease/comms/internal/application/notification"
	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/transport/http/middleware"
)

// EventHandler handles the service-to-service event endpoints other FitNEase
// services call when something notification-worthy happens.
type EventHandler struct {
	svc notification.Service
}

func NewEventHandler(svc notification.Service) *EventHandler {
	return &EventHandler{svc: svc}
}

func (h *EventHandler) GroupInvitation(w http.ResponseWriter, r *http.Request) {
	var req domain.GroupInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.svc.GroupInvitation(r.Context(), req, r.Header.Get(socketIDHeader))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *EventHandler) GroupInviteAccepted(w http.ResponseWriter, r *http.Request) {
	var req domain.GroupInviteAcceptedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.svc.GroupInviteAccepted(r.Context(), req, r.Header.Get(socketIDHeader))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *EventHandler) GroupInviteDeclined(w http.ResponseWriter, r *http.Request) {
	var req domain.GroupInviteDeclinedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.svc.GroupInviteDeclined(r.Context(), req, r.Header.Get(socketIDHeader))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *EventHandler) GroupMemberKicked(w http.ResponseWriter, r *http.Request) {
	var req domain.GroupMemberKickedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.svc.GroupMemberKicked(r.Context(), req, r.Header.Get(socketIDHeader))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *EventHandler) Achievement(w http.ResponseWriter, r *http.Request) {
	var req domain.AchievementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The caller's bearer is forwarded so the profile lookup runs with the
	// user's own credential.
	n, err := h.svc.Achievement(r.Context(), req, middleware.BearerFromRequest(r), r.Header.Get(socketIDHeader))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
