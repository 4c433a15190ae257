package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitnease/comms/internal/domain"
	"github.com/fitnease/comms/internal/infrastructure/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) MarkRead(ctx context.Context, notificationID string, at time.Time) error {
	return m.Called(ctx, notificationID, at).Error(0)
}
func (m *mockStore) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	args := m.Called(ctx, userID, at)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) Delete(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}
func (m *mockStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) DeleteByType(ctx context.Context, userID string, t domain.NotificationType) (int, error) {
	args := m.Called(ctx, userID, t)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockStore) MarkSent(ctx context.Context, notificationID string, at time.Time) error {
	return m.Called(ctx, notificationID, at).Error(0)
}

type mockSettings struct{ mock.Mock }

func (m *mockSettings) Get(ctx context.Context, userID string, t domain.NotificationType) (*domain.NotificationSetting, error) {
	args := m.Called(ctx, userID, t)
	if s, _ := args.Get(0).(*domain.NotificationSetting); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSettings) ListByUser(ctx context.Context, userID string) ([]domain.NotificationSetting, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.NotificationSetting), args.Error(1)
}
func (m *mockSettings) Upsert(ctx context.Context, s *domain.NotificationSetting) error {
	return m.Called(ctx, s).Error(0)
}

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) NotificationCreated(ctx context.Context, n *domain.Notification, exceptSocketID string) error {
	return m.Called(ctx, n, exceptSocketID).Error(0)
}
func (m *mockBroadcaster) UnreadCountUpdated(ctx context.Context, userID string, unreadCount int) error {
	return m.Called(ctx, userID, unreadCount).Error(0)
}

type mockPush struct{ mock.Mock }

func (m *mockPush) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) *domain.PushResult {
	args := m.Called(ctx, userID, title, body, data)
	return args.Get(0).(*domain.PushResult)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Username(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
func (m *mockResolver) Profile(ctx context.Context, userID, bearerToken string) (*identity.Profile, error) {
	args := m.Called(ctx, userID, bearerToken)
	if p, _ := args.Get(0).(*identity.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// newTestService builds the service with an inline dispatcher so side effects
// run synchronously inside the test.
func newTestService(repo *mockStore, settings *mockSettings, bc *mockBroadcaster, ps *mockPush, res *mockResolver) *service {
	s := NewService(repo, settings, bc, ps, res).(*service)
	s.dispatch = func(fn func()) { fn() }
	return s
}

func okPush() *domain.PushResult {
	return &domain.PushResult{Success: true, Sent: 1}
}

// expectDelivery wires the mocks for the standard post-create side effects.
func expectDelivery(repo *mockStore, settings *mockSettings, bc *mockBroadcaster, ps *mockPush, userID string, count int) {
	bc.On("NotificationCreated", mock.Anything, mock.AnythingOfType("*domain.Notification"), mock.Anything).Return(nil)
	repo.On("UnreadCount", mock.Anything, userID).Return(count, nil)
	bc.On("UnreadCountUpdated", mock.Anything, userID, count).Return(nil)
	settings.On("Get", mock.Anything, userID, mock.Anything).Return(nil, nil)
	ps.On("SendToUser", mock.Anything, userID, mock.Anything, mock.Anything, mock.Anything).Return(okPush())
}

// --- Send tests ---

func TestSend_HappyPath(t *testing.T) {
	repo, settings, bc, ps, res := &mockStore{}, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	expectDelivery(repo, settings, bc, ps, "u7", 4)

	svc := newTestService(repo, settings, bc, ps, res)
	n, err := svc.Send(context.Background(), domain.SendNotificationRequest{
		UserID:  "u7",
		Type:    domain.TypeSystem,
		Title:   "Maintenance",
		Message: "Scheduled downtime tonight",
	}, "socket-1")

	require.NoError(t, err)
	assert.True(t, n.IsSent)
	require.NotNil(t, n.SentAt)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)
	repo.AssertExpectations(t)
	bc.AssertExpectations(t)
	ps.AssertExpectations(t)
}

func TestSend_UnknownType(t *testing.T) {
	svc := newTestService(&mockStore{}, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{})

	_, err := svc.Send(context.Background(), domain.SendNotificationRequest{
		UserID:  "u7",
		Type:    "carrier_pigeon",
		Title:   "Hi",
		Message: "Hello",
	}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSend_ScheduledFuture_DefersDelivery(t *testing.T) {
	repo, bc, ps := &mockStore{}, &mockBroadcaster{}, &mockPush{}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)

	svc := newTestService(repo, &mockSettings{}, bc, ps, &mockResolver{})
	future := time.Now().Add(2 * time.Hour)
	n, err := svc.Send(context.Background(), domain.SendNotificationRequest{
		UserID:        "u7",
		Type:          domain.TypeWorkoutReminder,
		Title:         "Workout time",
		Message:       "Leg day in 5 minutes",
		ScheduledTime: &future,
	}, "")

	require.NoError(t, err)
	assert.False(t, n.IsSent)
	assert.Nil(t, n.SentAt)
	require.NotNil(t, n.ScheduledTime)
	bc.AssertNotCalled(t, "NotificationCreated", mock.Anything, mock.Anything, mock.Anything)
	ps.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_PastScheduledTime_SendsImmediately(t *testing.T) {
	repo, settings, bc, ps := &mockStore{}, &mockSettings{}, &mockBroadcaster{}, &mockPush{}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	expectDelivery(repo, settings, bc, ps, "u7", 1)

	svc := newTestService(repo, settings, bc, ps, &mockResolver{})
	past := time.Now().Add(-time.Minute)
	n, err := svc.Send(context.Background(), domain.SendNotificationRequest{
		UserID:        "u7",
		Type:          domain.TypeWorkoutReminder,
		Title:         "Workout time",
		Message:       "Leg day now",
		ScheduledTime: &past,
	}, "")

	require.NoError(t, err)
	assert.True(t, n.IsSent)
	bc.AssertExpectations(t)
}

func TestSend_PushSuppressedBySettings(t *testing.T) {
	repo, settings, bc, ps := &mockStore{}, &mockSettings{}, &mockBroadcaster{}, &mockPush{}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	bc.On("NotificationCreated", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("UnreadCount", mock.Anything, "u7").Return(1, nil)
	bc.On("UnreadCountUpdated", mock.Anything, "u7", 1).Return(nil)
	settings.On("Get", mock.Anything, "u7", domain.TypeSystem).
		Return(&domain.NotificationSetting{UserID: "u7", Type: domain.TypeSystem, Enabled: true, PushEnabled: false}, nil)

	svc := newTestService(repo, settings, bc, ps, &mockResolver{})
	_, err := svc.Send(context.Background(), domain.SendNotificationRequest{
		UserID:  "u7",
		Type:    domain.TypeSystem,
		Title:   "Hi",
		Message: "Hello",
	}, "")

	require.NoError(t, err)
	ps.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_BroadcastFailureDoesNotFailRequest(t *testing.T) {
	repo, settings, bc, ps := &mockStore{}, &mockSettings{}, &mockBroadcaster{}, &mockPush{}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	bc.On("NotificationCreated", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sns down"))
	repo.On("UnreadCount", mock.Anything, "u7").Return(0, errors.New("dynamo down"))
	settings.On("Get", mock.Anything, "u7", mock.Anything).Return(nil, nil)
	ps.On("SendToUser", mock.Anything, "u7", mock.Anything, mock.Anything, mock.Anything).Return(okPush())

	svc := newTestService(repo, settings, bc, ps, &mockResolver{})
	_, err := svc.Send(context.Background(), domain.SendNotificationRequest{
		UserID:  "u7",
		Type:    domain.TypeSystem,
		Title:   "Hi",
		Message: "Hello",
	}, "")

	require.NoError(t, err)
}

// --- MarkRead tests ---

func TestMarkRead_OwnedByAnotherUser(t *testing.T) {
	repo := &mockStore{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u2"}, nil)

	svc := newTestService(repo, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{})
	_, err := svc.MarkRead(context.Background(), "n1", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkRead_NotFound(t *testing.T) {
	repo := &mockStore{}
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	svc := newTestService(repo, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{})
	_, err := svc.MarkRead(context.Background(), "missing", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMarkRead_AlreadyRead_NoUpdateNoBroadcast(t *testing.T) {
	repo, bc := &mockStore{}, &mockBroadcaster{}
	readAt := time.Now().Add(-time.Hour)
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{
		NotificationID: "n1", UserID: "u1", IsRead: true, ReadAt: &readAt,
	}, nil)

	svc := newTestService(repo, &mockSettings{}, bc, &mockPush{}, &mockResolver{})
	n, err := svc.MarkRead(context.Background(), "n1", "u1")

	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.Equal(t, &readAt, n.ReadAt)
	repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	bc.AssertNotCalled(t, "UnreadCountUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkRead_HappyPath(t *testing.T) {
	repo, bc := &mockStore{}, &mockBroadcaster{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1"}, nil)
	repo.On("MarkRead", mock.Anything, "n1", mock.AnythingOfType("time.Time")).Return(nil)
	repo.On("UnreadCount", mock.Anything, "u1").Return(2, nil)
	bc.On("UnreadCountUpdated", mock.Anything, "u1", 2).Return(nil)

	svc := newTestService(repo, &mockSettings{}, bc, &mockPush{}, &mockResolver{})
	n, err := svc.MarkRead(context.Background(), "n1", "u1")

	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	repo.AssertExpectations(t)
	bc.AssertExpectations(t)
}

// --- MarkAllRead tests ---

func TestMarkAllRead_BroadcastsOnce(t *testing.T) {
	repo, bc := &mockStore{}, &mockBroadcaster{}
	repo.On("MarkAllRead", mock.Anything, "u1", mock.AnythingOfType("time.Time")).Return(3, nil)
	repo.On("UnreadCount", mock.Anything, "u1").Return(0, nil)
	bc.On("UnreadCountUpdated", mock.Anything, "u1", 0).Return(nil).Once()

	svc := newTestService(repo, &mockSettings{}, bc, &mockPush{}, &mockResolver{})
	count, err := svc.MarkAllRead(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	bc.AssertExpectations(t)
}

func TestMarkAllRead_NothingUnread_NoBroadcast(t *testing.T) {
	repo, bc := &mockStore{}, &mockBroadcaster{}
	repo.On("MarkAllRead", mock.Anything, "u1", mock.AnythingOfType("time.Time")).Return(0, nil)

	svc := newTestService(repo, &mockSettings{}, bc, &mockPush{}, &mockResolver{})
	count, err := svc.MarkAllRead(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	bc.AssertNotCalled(t, "UnreadCountUpdated", mock.Anything, mock.Anything, mock.Anything)
}

// --- Delete tests ---

func TestDelete_OwnedByAnotherUser(t *testing.T) {
	repo := &mockStore{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u2"}, nil)

	svc := newTestService(repo, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{})
	err := svc.Delete(context.Background(), "n1", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_UnreadRow_BroadcastsNewCount(t *testing.T) {
	repo, bc := &mockStore{}, &mockBroadcaster{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1", IsRead: false}, nil)
	repo.On("Delete", mock.Anything, "n1").Return(nil)
	repo.On("UnreadCount", mock.Anything, "u1").Return(1, nil)
	bc.On("UnreadCountUpdated", mock.Anything, "u1", 1).Return(nil)

	svc := newTestService(repo, &mockSettings{}, bc, &mockPush{}, &mockResolver{})
	err := svc.Delete(context.Background(), "n1", "u1")

	require.NoError(t, err)
	bc.AssertExpectations(t)
}

func TestDelete_ReadRow_NoBroadcast(t *testing.T) {
	repo, bc := &mockStore{}, &mockBroadcaster{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "u1", IsRead: true}, nil)
	repo.On("Delete", mock.Anything, "n1").Return(nil)

	svc := newTestService(repo, &mockSettings{}, bc, &mockPush{}, &mockResolver{})
	err := svc.Delete(context.Background(), "n1", "u1")

	require.NoError(t, err)
	bc.AssertNotCalled(t, "UnreadCountUpdated", mock.Anything, mock.Anything, mock.Anything)
}

// --- settings tests ---

func TestUpdateSettings_UnknownType(t *testing.T) {
	svc := newTestService(&mockStore{}, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{})
	enabled := true
	_, err := svc.UpdateSettings(context.Background(), "u1", domain.UpdateNotificationSettingsRequest{
		Settings: []domain.NotificationSettingInput{{Type: "smoke_signal", Enabled: &enabled}},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdateSettings_DefaultsUnsetFlagsToTrue(t *testing.T) {
	settings := &mockSettings{}
	settings.On("Upsert", mock.Anything, mock.MatchedBy(func(s *domain.NotificationSetting) bool {
		return s.UserID == "u1" && s.Type == domain.TypeAchievement &&
			!s.Enabled && s.EmailEnabled && s.PushEnabled
	})).Return(nil)
	settings.On("ListByUser", mock.Anything, "u1").Return([]domain.NotificationSetting{}, nil)

	svc := newTestService(&mockStore{}, settings, &mockBroadcaster{}, &mockPush{}, &mockResolver{})
	enabled := false
	_, err := svc.UpdateSettings(context.Background(), "u1", domain.UpdateNotificationSettingsRequest{
		Settings: []domain.NotificationSettingInput{{Type: domain.TypeAchievement, Enabled: &enabled}},
	})

	require.NoError(t, err)
	settings.AssertExpectations(t)
}

// --- cleanup tests ---

func TestDeleteEmailVerifications(t *testing.T) {
	repo := &mockStore{}
	repo.On("DeleteByType", mock.Anything, "u1", domain.TypeEmailVerification).Return(2, nil)

	svc := newTestService(repo, &mockSettings{}, &mockBroadcaster{}, &mockPush{}, &mockResolver{})
	count, err := svc.DeleteEmailVerifications(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	repo.AssertExpectations(t)
}
