package domain

import (
	"fmt"
	"time"
)

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	TypeWorkoutReminder   NotificationType = "workout_reminder"
	TypeAchievement       NotificationType = "achievement"
	TypeGroupInvite       NotificationType = "group_invite"
	TypeSystem            NotificationType = "system"
	TypeSocial            NotificationType = "social"
	TypeEmailVerification NotificationType = "email_verification"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeWorkoutReminder, TypeAchievement, TypeGroupInvite, TypeSystem, TypeSocial, TypeEmailVerification:
		return true
	}
	return false
}

type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	UserID         string           `json:"user_id" dynamodbav:"user_id"`
	Type           NotificationType `json:"notification_type" dynamodbav:"notification_type"`
	Title          string           `json:"title" dynamodbav:"title"`
	Message        string           `json:"message" dynamodbav:"message"`
	ActionData     *ActionData      `json:"action_data,omitempty" dynamodbav:"action_data,omitempty"`
	IsRead         bool             `json:"is_read" dynamodbav:"is_read"`
	IsSent         bool             `json:"is_sent" dynamodbav:"is_sent"`
	EmailSent      bool             `json:"email_sent" dynamodbav:"email_sent"`
	ScheduledTime  *time.Time       `json:"scheduled_time,omitempty" dynamodbav:"scheduled_time,omitempty"`
	SentAt         *time.Time       `json:"sent_at,omitempty" dynamodbav:"sent_at,omitempty"`
	ReadAt         *time.Time       `json:"read_at,omitempty" dynamodbav:"read_at,omitempty"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time        `json:"updated" dynamodbav:"updated_at"`
}

// ActionType names the deep-link payload variant carried by a notification.
type ActionType string

const (
	ActionGroupInvite         ActionType = "group_invite"
	ActionGroupInviteAccepted ActionType = "group_invite_accepted"
	ActionGroupInviteDeclined ActionType = "group_invite_declined"
	ActionGroupMemberKicked   ActionType = "group_member_kicked"
	ActionAchievementUnlock   ActionType = "achievement_unlock"
	ActionGeneric             ActionType = "generic"
)

// ActionData is the structured payload the client uses for deep-linking.
// It is a closed union keyed by Type: only the fields of the named variant are
// set, enforced by Validate before the notification is persisted. This replaces
// the loosely-typed map the mobile clients used to receive.
type ActionData struct {
	Type ActionType `json:"type" dynamodbav:"type"`

	GroupID        string `json:"group_id,omitempty" dynamodbav:"group_id,omitempty"`
	GroupName      string `json:"group_name,omitempty" dynamodbav:"group_name,omitempty"`
	GroupCode      string `json:"group_code,omitempty" dynamodbav:"group_code,omitempty"`
	InviterUserID  string `json:"inviter_user_id,omitempty" dynamodbav:"inviter_user_id,omitempty"`
	AcceptedUserID string `json:"accepted_user_id,omitempty" dynamodbav:"accepted_user_id,omitempty"`
	DeclinedUserID string `json:"declined_user_id,omitempty" dynamodbav:"declined_user_id,omitempty"`
	KickedByUserID string `json:"kicked_by_user_id,omitempty" dynamodbav:"kicked_by_user_id,omitempty"`
	AchievementID  string `json:"achievement_id,omitempty" dynamodbav:"achievement_id,omitempty"`

	// Extra is only populated on the generic variant (direct sends).
	Extra map[string]string `json:"extra,omitempty" dynamodbav:"extra,omitempty"`
}

func GroupInviteAction(groupID, groupName, groupCode, inviterUserID string) *ActionData {
	return &ActionData{
		Type:          ActionGroupInvite,
		GroupID:       groupID,
		GroupName:     groupName,
		GroupCode:     groupCode,
		InviterUserID: inviterUserID,
	}
}

func GroupInviteAcceptedAction(groupName, acceptedUserID string) *ActionData {
	return &ActionData{Type: ActionGroupInviteAccepted, GroupName: groupName, AcceptedUserID: acceptedUserID}
}

func GroupInviteDeclinedAction(groupName, declinedUserID string) *ActionData {
	return &ActionData{Type: ActionGroupInviteDeclined, GroupName: groupName, DeclinedUserID: declinedUserID}
}

func GroupMemberKickedAction(groupID, groupName, kickedByUserID string) *ActionData {
	return &ActionData{Type: ActionGroupMemberKicked, GroupID: groupID, GroupName: groupName, KickedByUserID: kickedByUserID}
}

func AchievementUnlockAction(achievementID string) *ActionData {
	return &ActionData{Type: ActionAchievementUnlock, AchievementID: achievementID}
}

func GenericAction(extra map[string]string) *ActionData {
	return &ActionData{Type: ActionGeneric, Extra: extra}
}

// Validate checks that the required fields of the variant named by Type are present.
func (a *ActionData) Validate() error {
	switch a.Type {
	case ActionGroupInvite:
		if a.GroupID == "" || a.GroupName == "" || a.GroupCode == "" || a.InviterUserID == "" {
			return fmt.Errorf("group_invite action requires group_id, group_name, group_code and inviter_user_id: %w", ErrBadRequest)
		}
	case ActionGroupInviteAccepted:
		if a.GroupName == "" || a.AcceptedUserID == "" {
			return fmt.Errorf("group_invite_accepted action requires group_name and accepted_user_id: %w", ErrBadRequest)
		}
	case ActionGroupInviteDeclined:
		if a.GroupName == "" || a.DeclinedUserID == "" {
			return fmt.Errorf("group_invite_declined action requires group_name and declined_user_id: %w", ErrBadRequest)
		}
	case ActionGroupMemberKicked:
		if a.GroupID == "" || a.GroupName == "" || a.KickedByUserID == "" {
			return fmt.Errorf("group_member_kicked action requires group_id, group_name and kicked_by_user_id: %w", ErrBadRequest)
		}
	case ActionAchievementUnlock:
		if a.AchievementID == "" {
			return fmt.Errorf("achievement_unlock action requires achievement_id: %w", ErrBadRequest)
		}
	case ActionGeneric:
		// Anything goes in Extra.
	default:
		return fmt.Errorf("unknown action type %q: %w", a.Type, ErrBadRequest)
	}
	return nil
}

// --- request DTOs ---

type SendNotificationRequest struct {
	UserID        string            `json:"user_id" validate:"required"`
	Type          NotificationType  `json:"notification_type" validate:"required"`
	Title         string            `json:"title" validate:"required"`
	Message       string            `json:"message" validate:"required"`
	ActionData    map[string]string `json:"action_data"`
	ScheduledTime *time.Time        `json:"scheduled_time"`
}

type GroupInvitationRequest struct {
	GroupID       string `json:"group_id" validate:"required"`
	GroupName     string `json:"group_name" validate:"required"`
	GroupCode     string `json:"group_code" validate:"required"`
	InvitedUserID string `json:"invited_user_id" validate:"required"`
	InviterUserID string `json:"inviter_user_id" validate:"required"`
}

type GroupInviteAcceptedRequest struct {
	InviterUserID  string `json:"inviter_user_id" validate:"required"`
	GroupName      string `json:"group_name" validate:"required"`
	AcceptedUserID string `json:"accepted_user_id" validate:"required"`
}

type GroupInviteDeclinedRequest struct {
	InviterUserID  string `json:"inviter_user_id" validate:"required"`
	GroupName      string `json:"group_name" validate:"required"`
	DeclinedUserID string `json:"declined_user_id" validate:"required"`
}

type GroupMemberKickedRequest struct {
	KickedUserID   string `json:"kicked_user_id" validate:"required"`
	GroupID        string `json:"group_id" validate:"required"`
	GroupName      string `json:"group_name" validate:"required"`
	KickedByUserID string `json:"kicked_by_user_id" validate:"required"`
}

type AchievementRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	AchievementID string `json:"achievement_id" validate:"required"`
}
