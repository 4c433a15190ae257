package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/infrastructure/identity"
	"github.com/fitnease/comms/internal/infrastructure/sns"
	"github.com/fitnease/comms/internal/pkg/id"
	"github.com/fitnease/comms/internal/pkg/validate"
)

const sideEffectTimeout = 10 * time.Second

// Service is the notification store plus the event scenarios that feed it.
// Every create flows through the same pipeline: persist, then broadcast the
// new row and the recomputed unread count, then push to the user's devices.
type Service interface {
	// Send creates a notification from a raw request. A future scheduled_time
	// defers delivery to the scheduler; otherwise the row is sent immediately.
	Send(ctx context.Context, req domain.SendNotificationRequest, originSocketID string) (*domain.Notification, error)

	List(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, callerUserID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID, callerUserID string) error
	DeleteAll(ctx context.Context, userID string) (int, error)
	// DeleteEmailVerifications clears the user's email_verification rows once
	// the address is confirmed.
	DeleteEmailVerifications(ctx context.Context, userID string) (int, error)

	GetSettings(ctx context.Context, userID string) ([]domain.NotificationSetting, error)
	UpdateSettings(ctx context.Context, userID string, req domain.UpdateNotificationSettingsRequest) ([]domain.NotificationSetting, error)

	// Event scenarios.
	GroupInvitation(ctx context.Context, req domain.GroupInvitationRequest, originSocketID string) (*domain.Notification, error)
	GroupInviteAccepted(ctx context.Context, req domain.GroupInviteAcceptedRequest, originSocketID string) (*domain.Notification, error)
	GroupInviteDeclined(ctx context.Context, req domain.GroupInviteDeclinedRequest, originSocketID string) (*domain.Notification, error)
	GroupMemberKicked(ctx context.Context, req domain.GroupMemberKickedRequest, originSocketID string) (*domain.Notification, error)
	Achievement(ctx context.Context, req domain.AchievementRequest, bearerToken, originSocketID string) (*domain.Notification, error)

	// DispatchDue delivers scheduled notifications that have come due and
	// returns how many were delivered.
	DispatchDue(ctx context.Context) (int, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, notificationID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	DeleteByType(ctx context.Context, userID string, t domain.NotificationType) (int, error)
	ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error)
	MarkSent(ctx context.Context, notificationID string, at time.Time) error
}

type settingStore interface {
	Get(ctx context.Context, userID string, t domain.NotificationType) (*domain.NotificationSetting, error)
	ListByUser(ctx context.Context, userID string) ([]domain.NotificationSetting, error)
	Upsert(ctx context.Context, s *domain.NotificationSetting) error
}

type pushSender interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) *domain.PushResult
}

type service struct {
	repo        notificationStore
	settings    settingStore
	broadcaster sns.Broadcaster
	push        pushSender
	identity    identity.Resolver

	// dispatch runs delivery side effects. Production wraps them in a
	// goroutine so request latency never depends on Expo or SNS.
	dispatch func(fn func())
	now      func() time.Time
}

func NewService(repo notificationStore, settings settingStore, broadcaster sns.Broadcaster, push pushSender, resolver identity.Resolver) Service {
	return &service{
		repo:        repo,
		settings:    settings,
		broadcaster: broadcaster,
		push:        push,
		identity:    resolver,
		dispatch:    func(fn func()) { go fn() },
		now:         time.Now,
	}
}

func (s *service) Send(ctx context.Context, req domain.SendNotificationRequest, originSocketID string) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", req.Type, domain.ErrBadRequest)
	}

	var action *domain.ActionData
	if len(req.ActionData) > 0 {
		action = domain.GenericAction(req.ActionData)
	}

	n := s.newNotification(req.UserID, req.Type, req.Title, req.Message, action)
	if req.ScheduledTime != nil && req.ScheduledTime.After(s.now()) {
		t := req.ScheduledTime.UTC()
		n.ScheduledTime = &t
		n.IsSent = false
		n.SentAt = nil
	}
	return s.create(ctx, n, originSocketID)
}

// newNotification builds an immediately-sent row; callers clear the sent
// fields when delivery is deferred.
func (s *service) newNotification(userID string, t domain.NotificationType, title, message string, action *domain.ActionData) *domain.Notification {
	now := s.now().UTC()
	return &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Type:           t,
		Title:          title,
		Message:        message,
		ActionData:     action,
		IsRead:         false,
		IsSent:         true,
		SentAt:         &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// create persists the row and, when it is sent immediately, kicks off the
// delivery side effects. Scheduled rows get their side effects at dispatch
// time instead.
func (s *service) create(ctx context.Context, n *domain.Notification, originSocketID string) (*domain.Notification, error) {
	if n.ActionData != nil {
		if err := n.ActionData.Validate(); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	slog.Info("notification created",
		"notification_id", n.NotificationID,
		"user_id", n.UserID,
		"notification_type", n.Type,
		"scheduled", n.ScheduledTime != nil)

	if n.IsSent {
		s.deliver(n, originSocketID)
	}
	return n, nil
}

// deliver runs the fire-and-forget side effects of a sent notification:
// realtime events plus a push. Failures are logged, never surfaced, so the
// stored row is always the durable outcome.
func (s *service) deliver(n *domain.Notification, originSocketID string) {
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		if err := s.broadcaster.NotificationCreated(ctx, n, originSocketID); err != nil {
			slog.Error("broadcast notification.created failed",
				"notification_id", n.NotificationID, "error", err)
		}
		s.broadcastUnreadCount(ctx, n.UserID)

		if s.pushAllowed(ctx, n.UserID, n.Type) {
			result := s.push.SendToUser(ctx, n.UserID, n.Title, n.Message, pushData(n))
			if !result.Success {
				slog.Warn("push delivery skipped or failed",
					"notification_id", n.NotificationID, "reason", result.Reason)
			}
		}
	})
}

// broadcastUnreadCount recomputes the badge count from the store and emits it.
func (s *service) broadcastUnreadCount(ctx context.Context, userID string) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		slog.Error("unread count failed", "user_id", userID, "error", err)
		return
	}
	if err := s.broadcaster.UnreadCountUpdated(ctx, userID, count); err != nil {
		slog.Error("broadcast unread.count.updated failed", "user_id", userID, "error", err)
	}
}

// pushAllowed checks the user's per-type setting. No row means defaults, and
// defaults allow push.
func (s *service) pushAllowed(ctx context.Context, userID string, t domain.NotificationType) bool {
	setting, err := s.settings.Get(ctx, userID, t)
	if err != nil {
		slog.Error("load notification setting failed", "user_id", userID, "error", err)
		return true
	}
	if setting == nil {
		return true
	}
	return setting.Enabled && setting.PushEnabled
}

// pushData is the deep-link payload attached to the push message.
func pushData(n *domain.Notification) map[string]string {
	data := map[string]string{
		"notification_id":   n.NotificationID,
		"notification_type": string(n.Type),
	}
	if n.ActionData != nil {
		data["action_type"] = string(n.ActionData.Type)
	}
	return data
}

func (s *service) List(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListByUser(ctx, userID, page, pageSize)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, notificationID, callerUserID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != callerUserID {
		return nil, fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	if n.IsRead {
		return n, nil // already read, nothing to update or broadcast
	}

	at := s.now().UTC()
	if err := s.repo.MarkRead(ctx, notificationID, at); err != nil {
		return nil, err
	}
	n.IsRead = true
	n.ReadAt = &at
	n.UpdatedAt = at

	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		s.broadcastUnreadCount(ctx, callerUserID)
	})
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			s.broadcastUnreadCount(ctx, userID)
		})
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, notificationID, callerUserID string) error {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != callerUserID {
		return fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, notificationID); err != nil {
		return err
	}
	if !n.IsRead {
		// Deleting an unread row changes the badge count.
		s.dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			s.broadcastUnreadCount(ctx, callerUserID)
		})
	}
	return nil
}

func (s *service) DeleteAll(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			s.broadcastUnreadCount(ctx, userID)
		})
	}
	return count, nil
}

func (s *service) DeleteEmailVerifications(ctx context.Context, userID string) (int, error) {
	return s.repo.DeleteByType(ctx, userID, domain.TypeEmailVerification)
}

func (s *service) GetSettings(ctx context.Context, userID string) ([]domain.NotificationSetting, error) {
	return s.settings.ListByUser(ctx, userID)
}

func (s *service) UpdateSettings(ctx context.Context, userID string, req domain.UpdateNotificationSettingsRequest) ([]domain.NotificationSetting, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	now := s.now().UTC()
	for _, in := range req.Settings {
		if !in.Type.Valid() {
			return nil, fmt.Errorf("unknown notification type %q: %w", in.Type, domain.ErrBadRequest)
		}
		setting := &domain.NotificationSetting{
			UserID:       userID,
			Type:         in.Type,
			Enabled:      *in.Enabled,
			EmailEnabled: boolOr(in.EmailEnabled, true),
			PushEnabled:  boolOr(in.PushEnabled, true),
			Preferences:  in.Preferences,
			UpdatedAt:    now,
		}
		if err := s.settings.Upsert(ctx, setting); err != nil {
			return nil, err
		}
	}
	return s.settings.ListByUser(ctx, userID)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
