package domain

import "time"

// NotificationSetting is a per-user, per-type delivery preference. At most one
// row exists per (user_id, notification_type); writes are upserts.
type NotificationSetting struct {
	UserID       string            `json:"user_id" dynamodbav:"user_id"`
	Type         NotificationType  `json:"notification_type" dynamodbav:"notification_type"`
	Enabled      bool              `json:"enabled" dynamodbav:"enabled"`
	EmailEnabled bool              `json:"email_enabled" dynamodbav:"email_enabled"`
	PushEnabled  bool              `json:"push_enabled" dynamodbav:"push_enabled"`
	Preferences  map[string]string `json:"preferences,omitempty" dynamodbav:"preferences,omitempty"`
	CreatedAt    time.Time         `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time         `json:"updated" dynamodbav:"updated_at"`
}

type NotificationSettingInput struct {
	Type         NotificationType  `json:"notification_type" validate:"required"`
	Enabled      *bool             `json:"enabled" validate:"required"`
	EmailEnabled *bool             `json:"email_enabled"`
	PushEnabled  *bool             `json:"push_enabled"`
	Preferences  map[string]string `json:"preferences"`
}

type UpdateNotificationSettingsRequest struct {
	Settings []NotificationSettingInput `json:"settings" validate:"required,min=1,dive"`
}
