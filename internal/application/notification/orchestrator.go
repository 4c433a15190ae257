package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/pkg/validate"
)

// Display-name fallbacks used when the auth service cannot resolve a user.
const (
	fallbackInviter  = "Someone"
	fallbackMember   = "Someone"
	fallbackKicker   = "Admin"
	fallbackGreeting = "there"
)

// achievementMessages keys the congratulation template by fitness level.
// Unknown levels fall back to beginner.
var achievementMessages = map[string]string{
	"beginner":     "Great job, %s! You've unlocked a new achievement. You're building great habits!",
	"intermediate": "Awesome work, %s! You've earned a new achievement. Your dedication is paying off!",
	"advanced":     "Outstanding, %s! You've reached a new milestone. You're setting a great example!",
}

func (s *service) GroupInvitation(ctx context.Context, req domain.GroupInvitationRequest, originSocketID string) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	inviter := s.usernameOr(ctx, req.InviterUserID, fallbackInviter)
	n := s.newNotification(
		req.InvitedUserID,
		domain.TypeGroupInvite,
		"Group Invitation",
		fmt.Sprintf("%s invited you to join %s", inviter, req.GroupName),
		domain.GroupInviteAction(req.GroupID, req.GroupName, req.GroupCode, req.InviterUserID),
	)
	return s.create(ctx, n, originSocketID)
}

func (s *service) GroupInviteAccepted(ctx context.Context, req domain.GroupInviteAcceptedRequest, originSocketID string) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	member := s.usernameOr(ctx, req.AcceptedUserID, fallbackMember)
	n := s.newNotification(
		req.InviterUserID,
		domain.TypeGroupInvite,
		"Invitation Accepted",
		fmt.Sprintf("%s accepted your invitation to join %s", member, req.GroupName),
		domain.GroupInviteAcceptedAction(req.GroupName, req.AcceptedUserID),
	)
	return s.create(ctx, n, originSocketID)
}

func (s *service) GroupInviteDeclined(ctx context.Context, req domain.GroupInviteDeclinedRequest, originSocketID string) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	member := s.usernameOr(ctx, req.DeclinedUserID, fallbackMember)
	n := s.newNotification(
		req.InviterUserID,
		domain.TypeGroupInvite,
		"Invitation Declined",
		fmt.Sprintf("%s declined your invitation to join %s", member, req.GroupName),
		domain.GroupInviteDeclinedAction(req.GroupName, req.DeclinedUserID),
	)
	return s.create(ctx, n, originSocketID)
}

func (s *service) GroupMemberKicked(ctx context.Context, req domain.GroupMemberKickedRequest, originSocketID string) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	kicker := s.usernameOr(ctx, req.KickedByUserID, fallbackKicker)
	n := s.newNotification(
		req.KickedUserID,
		domain.TypeGroupInvite,
		"Removed from Group",
		fmt.Sprintf("%s removed you from %s", kicker, req.GroupName),
		domain.GroupMemberKickedAction(req.GroupID, req.GroupName, req.KickedByUserID),
	)
	return s.create(ctx, n, originSocketID)
}

func (s *service) Achievement(ctx context.Context, req domain.AchievementRequest, bearerToken, originSocketID string) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	// Personalization is best-effort: a failed profile lookup degrades to the
	// generic greeting and level, never blocks the notification.
	name, level := fallbackGreeting, "beginner"
	if profile, err := s.identity.Profile(ctx, req.UserID, bearerToken); err != nil {
		slog.Warn("profile lookup failed", "user_id", req.UserID, "error", err)
	} else {
		if profile.Name != "" {
			name = profile.Name
		}
		if _, ok := achievementMessages[profile.FitnessLevel]; ok {
			level = profile.FitnessLevel
		}
	}

	n := s.newNotification(
		req.UserID,
		domain.TypeAchievement,
		"Achievement Unlocked!",
		fmt.Sprintf(achievementMessages[level], name),
		domain.AchievementUnlockAction(req.AchievementID),
	)
	return s.create(ctx, n, originSocketID)
}

// usernameOr resolves a display name, falling back when the auth service is
// unavailable or returns nothing.
func (s *service) usernameOr(ctx context.Context, userID, fallback string) string {
	name, err := s.identity.Username(ctx, userID)
	if err != nil || name == "" {
		slog.Warn("username lookup failed", "user_id", userID, "error", err)
		return fallback
	}
	return name
}
