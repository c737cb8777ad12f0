package jobs

import (
	"context"
	"testing"
	"time"

	"learning-platform/backend/models"
	"learning-platform/backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderRunOnce(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	cfg.ReminderAfter = 48 * time.Hour
	job := NewReminderJob(db, testutil.Logger(), cfg)

	admin := testutil.CreateUser(t, db, models.RoleAdmin, "admin@example.com")
	idle := testutil.CreateUser(t, db, models.RoleStudent, "idle@example.com")
	active := testutil.CreateUser(t, db, models.RoleStudent, "active@example.com")
	done := testutil.CreateUser(t, db, models.RoleStudent, "done@example.com")
	module := testutil.CreateModule(t, db, "Filosofía")
	ethics := testutil.CreateCourse(t, db, module.ID, admin.ID, "Ética", "Uno", "Dos")
	logic := testutil.CreateCourse(t, db, module.ID, admin.ID, "Lógica", "Uno")

	now := time.Now().UTC()
	old := now.Add(-72 * time.Hour)
	recent := now.Add(-time.Hour)
	require.NoError(t, db.Model(idle).Update("last_active_at", old).Error)
	require.NoError(t, db.Model(active).Update("last_active_at", recent).Error)
	require.NoError(t, db.Model(done).Update("last_active_at", old).Error)

	require.NoError(t, db.Create(&[]models.Enrollment{
		{UserID: idle.ID, CourseID: ethics.ID, ProgressPct: 50},
		{UserID: idle.ID, CourseID: logic.ID, ProgressPct: 0},
		{UserID: active.ID, CourseID: ethics.ID, ProgressPct: 50},
		{UserID: done.ID, CourseID: logic.ID, ProgressPct: 100, CompletedAt: &old},
	}).Error)

	sent, err := job.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var reminders []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationReminder).Find(&reminders).Error)
	require.Len(t, reminders, 1)
	assert.Equal(t, idle.ID, reminders[0].UserID)
	assert.Contains(t, reminders[0].Message, "Ética")

	// same window: nothing new
	sent, err = job.RunOnce(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// next window
	sent, err = job.RunOnce(context.Background(), now.Add(49*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestReminderStartStops(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	cfg.ReminderInterval = 10 * time.Millisecond
	job := NewReminderJob(db, testutil.Logger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
}
