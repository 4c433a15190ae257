package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fitnease/comms/internal/application/notification"
	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// socketIDHeader carries the websocket connection ID of the originating
// client, so broadcasts can skip the socket that caused them.
const socketIDHeader = "X-Socket-ID"

// NotificationHandler handles notification store and event endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.svc.Send(r.Context(), req, r.Header.Get(socketIDHeader))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	notifications, err := h.svc.List(r.Context(), userID, page, perPage)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedNotificationsEnvelope{
		Page:    page,
		PerPage: perPage,
		Data:    notifications,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	count, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountEnvelope{UserID: userID, UnreadCount: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	count, err := h.svc.MarkAllRead(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notification deleted"})
}

func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	count, err := h.svc.DeleteAll(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}

// DeleteEmailVerifications clears pending email_verification rows once the
// auth service confirms the address.
func (h *NotificationHandler) DeleteEmailVerifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownedUserID(w, r)
	if !ok {
		return
	}
	count, err := h.svc.DeleteEmailVerifications(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Count: count})
}

// ownedUserID returns the {userID} path parameter after checking it matches
// the authenticated caller. User-scoped routes never operate across users.
func ownedUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	userID := chi.URLParam(r, "userID")
	if userID != claims.UserID {
		writeError(w, http.StatusForbidden, "cannot access another user's data")
		return "", false
	}
	return userID, true
}
