package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitnease/comms/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Upsert(ctx context.Context, userID, token string, platform domain.Platform, newID string, now time.Time) (*domain.DeviceToken, error) {
	args := m.Called(ctx, userID, token, platform, newID, now)
	if d, _ := args.Get(0).(*domain.DeviceToken); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.DeviceToken), args.Error(1)
}
func (m *mockTokenStore) Remove(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}
func (m *mockTokenStore) DeactivateAllForUser(ctx context.Context, userID string, now time.Time) (int, error) {
	args := m.Called(ctx, userID, now)
	return args.Int(0), args.Error(1)
}

// --- helpers ---

const validToken = "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"

func baseReq() domain.RegisterDeviceTokenRequest {
	return domain.RegisterDeviceTokenRequest{
		UserID:   "u1",
		Token:    validToken,
		Platform: domain.PlatformIOS,
	}
}

// --- Register tests ---

func TestRegister_MalformedToken(t *testing.T) {
	svc := NewService(&mockTokenStore{})
	req := baseReq()
	req.Token = "fcm-token-123"

	_, err := svc.Register(context.Background(), "u1", req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_UnknownPlatform(t *testing.T) {
	svc := NewService(&mockTokenStore{})
	req := baseReq()
	req.Platform = "web"

	_, err := svc.Register(context.Background(), "u1", req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_ForAnotherUser(t *testing.T) {
	svc := NewService(&mockTokenStore{})

	_, err := svc.Register(context.Background(), "u2", baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestRegister_HappyPath(t *testing.T) {
	ts := &mockTokenStore{}
	stored := &domain.DeviceToken{
		Token:         validToken,
		DeviceTokenID: "dt1",
		UserID:        "u1",
		Platform:      domain.PlatformIOS,
		IsActive:      true,
	}
	ts.On("Upsert", mock.Anything, "u1", validToken, domain.PlatformIOS, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(stored, nil)

	svc := NewService(ts)
	d, err := svc.Register(context.Background(), "u1", baseReq())

	require.NoError(t, err)
	assert.True(t, d.IsActive)
	assert.Equal(t, "u1", d.UserID)
	ts.AssertExpectations(t)
}

// --- Remove tests ---

func TestRemove_UnknownToken(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("Remove", mock.Anything, validToken).Return(false, nil)

	svc := NewService(ts)
	found, err := svc.Remove(context.Background(), validToken)

	require.NoError(t, err)
	assert.False(t, found)
	ts.AssertExpectations(t)
}

func TestRemove_HappyPath(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("Remove", mock.Anything, validToken).Return(true, nil)

	svc := NewService(ts)
	found, err := svc.Remove(context.Background(), validToken)

	require.NoError(t, err)
	assert.True(t, found)
	ts.AssertExpectations(t)
}

// --- DeactivateAll tests ---

func TestDeactivateAll_ReturnsCount(t *testing.T) {
	ts := &mockTokenStore{}
	ts.On("DeactivateAllForUser", mock.Anything, "u1", mock.AnythingOfType("time.Time")).Return(3, nil)

	svc := NewService(ts)
	count, err := svc.DeactivateAll(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	ts.AssertExpectations(t)
}

func TestDeactivateAll_PropagatesStoreError(t *testing.T) {
	ts := &mockTokenStore{}
	storeErr := errors.New("dynamo error")
	ts.On("DeactivateAllForUser", mock.Anything, "u1", mock.AnythingOfType("time.Time")).Return(0, storeErr)

	svc := NewService(ts)
	_, err := svc.DeactivateAll(context.Background(), "u1")

	require.Error(t, err)
	assert.Equal(t, storeErr, err)
}
