package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fitnease/comms/internal/application/email"
)

// EmailHandler handles transactional email endpoints. These are called by the
// auth service during signup, before the user holds a token, so they sit on
// the public (rate-limited) side of the router.
type EmailHandler struct {
	svc email.Service
}

func NewEmailHandler(svc email.Service) *EmailHandler { return &EmailHandler{svc: svc} }

func (h *EmailHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req email.SendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SendVerification(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification email sent"})
}

func (h *EmailHandler) SendWelcome(w http.ResponseWriter, r *http.Request) {
	var req email.SendWelcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SendWelcome(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "welcome email sent"})
}
