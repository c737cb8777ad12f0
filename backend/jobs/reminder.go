package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"learning-platform/backend/config"
	"learning-platform/backend/metrics"
	"learning-platform/backend/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ReminderJob nudges learners who left a course unfinished.
type ReminderJob struct {
	db       *gorm.DB
	logger   *log.Logger
	interval time.Duration
	after    time.Duration
	timeout  time.Duration
}

func NewReminderJob(db *gorm.DB, logger *log.Logger, cfg *config.Config) *ReminderJob {
	interval := cfg.ReminderInterval
	if interval <= 0 {
		interval = time.Hour
	}
	after := cfg.ReminderAfter
	if after <= 0 {
		after = 48 * time.Hour
	}
	return &ReminderJob{
		db:       db,
		logger:   logger,
		interval: interval,
		after:    after,
		timeout:  30 * time.Second,
	}
}

// Start runs the job on a ticker until ctx is cancelled.
func (j *ReminderJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, j.timeout)
				sent, err := j.RunOnce(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					j.logger.Printf("reminder job error: %v", err)
					continue
				}
				if sent > 0 {
					j.logger.Printf("reminder job sent %d reminders", sent)
				}
			}
		}
	}()
}

type staleEnrollment struct {
	UserID      uint
	CourseID    uint
	CourseTitle string
	ProgressPct int
}

// RunOnce creates a REMINDER for every learner inactive since now-after
// who has an unfinished course and no reminder inside that window.
func (j *ReminderJob) RunOnce(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-j.after)
	db := j.db.WithContext(ctx)

	var rows []staleEnrollment
	err := db.Table("enrollments").
		Select("enrollments.user_id, enrollments.course_id, courses.title AS course_title, enrollments.progress_pct").
		Joins("JOIN users ON users.id = enrollments.user_id").
		Joins("JOIN courses ON courses.id = enrollments.course_id AND courses.deleted_at IS NULL").
		Where("enrollments.completed_at IS NULL").
		Where("COALESCE(users.last_active_at, users.created_at) < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.user_id = enrollments.user_id AND n.type = ? AND n.created_at >= ?)",
			models.NotificationReminder, cutoff).
		Order("enrollments.user_id, enrollments.progress_pct DESC, enrollments.updated_at DESC").
		Scan(&rows).Error
	if err != nil {
		return 0, errors.Wrap(err, "list stale enrollments")
	}

	sent := 0
	seen := make(map[uint]bool, len(rows))
	for _, row := range rows {
		// one reminder per learner, for the furthest-along course
		if seen[row.UserID] {
			continue
		}
		seen[row.UserID] = true

		notification := models.Notification{
			ID:        uuid.NewString(),
			UserID:    row.UserID,
			Type:      models.NotificationReminder,
			Title:     "Retoma tu curso",
			Message:   fmt.Sprintf("Continúa con %q, llevas un %d%% completado", row.CourseTitle, row.ProgressPct),
			ActionURL: fmt.Sprintf("/courses/%d", row.CourseID),
			CreatedAt: now,
		}
		if err := db.Create(&notification).Error; err != nil {
			return sent, errors.Wrap(err, "create reminder")
		}
		sent++
		metrics.RemindersSent.Inc()
	}
	return sent, nil
}
