package domain

import (
	"strings"
	"time"
)

// Platform is the mobile platform a push token was issued on.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// DeviceToken is one push-capable app installation. The Expo token value is the
// primary key, so re-registering the same token always updates in place.
type DeviceToken struct {
	Token         string     `json:"expo_push_token" dynamodbav:"expo_push_token"`
	DeviceTokenID string     `json:"device_token_id" dynamodbav:"device_token_id"`
	UserID        string     `json:"user_id" dynamodbav:"user_id"`
	Platform      Platform   `json:"platform" dynamodbav:"platform"`
	IsActive      bool       `json:"is_active" dynamodbav:"is_active"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty" dynamodbav:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// IsExpoPushToken reports whether token has the Expo push token shape.
func IsExpoPushToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") ||
		strings.HasPrefix(token, "ExpoPushToken[")
}

type RegisterDeviceTokenRequest struct {
	UserID   string   `json:"user_id" validate:"required"`
	Token    string   `json:"expo_push_token" validate:"required"`
	Platform Platform `json:"platform" validate:"required,oneof=ios android"`
}

type RemoveDeviceTokenRequest struct {
	Token string `json:"expo_push_token" validate:"required"`
}
