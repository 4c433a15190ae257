package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionData_Validate_RequiredFieldsPerVariant(t *testing.T) {
	valid := []*ActionData{
		GroupInviteAction("g1", "Morning Crew", "MC-2026", "u1"),
		GroupInviteAcceptedAction("Morning Crew", "u7"),
		GroupInviteDeclinedAction("Morning Crew", "u7"),
		GroupMemberKickedAction("g1", "Morning Crew", "u9"),
		AchievementUnlockAction("ach-5k"),
		GenericAction(nil),
		GenericAction(map[string]string{"screen": "home"}),
	}
	for _, a := range valid {
		assert.NoError(t, a.Validate(), "variant %s", a.Type)
	}

	invalid := []*ActionData{
		GroupInviteAction("", "Morning Crew", "MC-2026", "u1"),
		GroupInviteAcceptedAction("Morning Crew", ""),
		GroupInviteDeclinedAction("", "u7"),
		GroupMemberKickedAction("g1", "Morning Crew", ""),
		AchievementUnlockAction(""),
		{Type: "teleport"},
	}
	for _, a := range invalid {
		err := a.Validate()
		require.Error(t, err, "variant %s", a.Type)
		assert.True(t, errors.Is(err, ErrBadRequest))
	}
}

func TestNotificationType_Valid(t *testing.T) {
	assert.True(t, TypeWorkoutReminder.Valid())
	assert.True(t, TypeEmailVerification.Valid())
	assert.False(t, NotificationType("carrier_pigeon").Valid())
}

func TestIsExpoPushToken(t *testing.T) {
	assert.True(t, IsExpoPushToken("ExponentPushToken[xxxx]"))
	assert.True(t, IsExpoPushToken("ExpoPushToken[xxxx]"))
	assert.False(t, IsExpoPushToken("fcm-token-123"))
	assert.False(t, IsExpoPushToken(""))
}
