package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/pkg/id"
	"github.com/fitnease/comms/internal/pkg/validate"
)

// Service is the device-token registry: it owns the activation lifecycle of
// push-capable app installations.
type Service interface {
	// Register upserts a token keyed by its value and marks it active.
	Register(ctx context.Context, callerUserID string, req domain.RegisterDeviceTokenRequest) (*domain.DeviceToken, error)
	// Remove deletes the registration. Absent tokens are reported via the
	// bool, not an error.
	Remove(ctx context.Context, token string) (bool, error)
	ListActive(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	// DeactivateAll disables every active token of the user (full logout)
	// and returns how many were active.
	DeactivateAll(ctx context.Context, userID string) (int, error)
}

type tokenStore interface {
	Upsert(ctx context.Context, userID, token string, platform domain.Platform, newID string, now time.Time) (*domain.DeviceToken, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	Remove(ctx context.Context, token string) (bool, error)
	DeactivateAllForUser(ctx context.Context, userID string, now time.Time) (int, error)
}

type service struct {
	repo tokenStore
	now  func() time.Time
}

func NewService(repo tokenStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Register(ctx context.Context, callerUserID string, req domain.RegisterDeviceTokenRequest) (*domain.DeviceToken, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if !domain.IsExpoPushToken(req.Token) {
		return nil, fmt.Errorf("not an Expo push token: %w", domain.ErrBadRequest)
	}
	if callerUserID != req.UserID {
		return nil, fmt.Errorf("cannot register a token for another user: %w", domain.ErrForbidden)
	}

	d, err := s.repo.Upsert(ctx, req.UserID, req.Token, req.Platform, id.New(), s.now().UTC())
	if err != nil {
		return nil, err
	}
	slog.Info("device token registered",
		"device_token_id", d.DeviceTokenID,
		"user_id", d.UserID,
		"platform", d.Platform)
	return d, nil
}

func (s *service) Remove(ctx context.Context, token string) (bool, error) {
	found, err := s.repo.Remove(ctx, token)
	if err != nil {
		return false, err
	}
	if found {
		slog.Info("device token removed", "token_prefix", tokenPrefix(token))
	}
	return found, nil
}

func (s *service) ListActive(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}

func (s *service) DeactivateAll(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.DeactivateAllForUser(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}
	slog.Info("all device tokens deactivated", "user_id", userID, "count", count)
	return count, nil
}

// tokenPrefix truncates a token for logging; full token values never hit logs.
func tokenPrefix(token string) string {
	if len(token) > 20 {
		return token[:20] + "..."
	}
	return token
}
