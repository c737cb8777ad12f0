package main

import (
	"testing"

	"learning-platform/backend/models"
	"learning-platform/backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	first, err := seed(db)
	require.NoError(t, err)
	second, err := seed(db)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var courses, badges, chapters int64
	require.NoError(t, db.Model(&models.Course{}).Count(&courses).Error)
	require.NoError(t, db.Model(&models.Badge{}).Count(&badges).Error)
	require.NoError(t, db.Model(&models.Chapter{}).Count(&chapters).Error)
	assert.Equal(t, int64(1), courses)
	assert.Equal(t, int64(1), badges)
	assert.Equal(t, int64(2), chapters)
}

func TestCreateAdmin(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := createAdmin(db, "Ada", "", "ada@example.com", "short")
	assert.Error(t, err)

	user, err := createAdmin(db, "Ada", "Lovelace", "ada@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	_, err = createAdmin(db, "Ada", "Lovelace", "ada@example.com", "longenough")
	assert.Error(t, err)

	var prefs models.UserPreferences
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&prefs).Error)
	assert.True(t, prefs.NotificationsEnabled)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "create-admin", "seed"} {
		assert.True(t, names[want], want)
	}
}
