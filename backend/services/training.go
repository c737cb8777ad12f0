package services

import (
	"context"
	"fmt"
	"time"

	"learning-platform/backend/metrics"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VideoCompletionRatio is the share of a video that counts as watched.
const VideoCompletionRatio = 0.9

// TrainingService owns enrollments, chapter completions and badge awards.
type TrainingService struct {
	db       *gorm.DB
	notifier *Notifier
	now      func() time.Time
}

func NewTrainingService(db *gorm.DB, notifier *Notifier) *TrainingService {
	return &TrainingService{db: db, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// award is a badge granted inside a transaction, mailed after commit.
type award struct {
	userID uint
	course models.Course
	badge  models.Badge
}

func (s *TrainingService) sendAwards(awards []award) {
	for _, a := range awards {
		s.notifier.SendBadgeEmail(a.userID, a.course, a.badge)
	}
}

// Assign enrolls the user in the course. It returns the existing enrollment
// when there is one.
func (s *TrainingService) Assign(ctx context.Context, userID, courseID uint, allowDrafts bool) (*models.Enrollment, bool, error) {
	var (
		enrollment models.Enrollment
		created    bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
			return notFound(err, "user %d", userID)
		}
		course, err := loadCourse(tx, courseID)
		if err != nil {
			return err
		}
		if !course.Published && !allowDrafts {
			return errors.Wrapf(utils.ErrNotFound, "course %d", courseID)
		}
		enrollment, created, err = ensureEnrollment(tx, userID, courseID)
		if err != nil {
			return err
		}
		if created {
			return s.refresh(tx, &enrollment, nil)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &enrollment, created, nil
}

// CompleteChapter records the chapter as completed for the user and
// recomputes the course progress. Completing the final chapter awards the
// course badge. Repeated calls are harmless.
func (s *TrainingService) CompleteChapter(ctx context.Context, userID, courseID, chapterID uint, allowDrafts bool) (*models.CompletionResult, error) {
	result := &models.CompletionResult{CourseID: courseID, ChapterID: chapterID}
	var awards []award

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chapter, course, err := loadChapter(tx, courseID, chapterID)
		if err != nil {
			return err
		}
		if !course.Published && !allowDrafts {
			return errors.Wrapf(utils.ErrNotFound, "course %d", courseID)
		}

		enrollment, _, err := ensureEnrollment(tx, userID, courseID)
		if err != nil {
			return err
		}

		now := s.now()
		completion := models.ChapterCompletion{
			UserID:      userID,
			ChapterID:   chapter.ID,
			CourseID:    courseID,
			CompletedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion)
		if res.Error != nil {
			return errors.Wrap(res.Error, "record completion")
		}
		result.AlreadyCompleted = res.RowsAffected == 0
		if !result.AlreadyCompleted {
			metrics.ChaptersCompleted.Inc()
		}

		enrollment.LastChapterID = &chapter.ID
		enrollment.LastWatchedAt = &now
		if err := s.refresh(tx, &enrollment, &awards); err != nil {
			return err
		}
		if err := touchUser(tx, userID, now); err != nil {
			return err
		}

		result.ProgressPct = enrollment.ProgressPct
		result.CourseCompleted = enrollment.CompletedAt != nil
		result.TotalChapters, result.CompletedChapters, err = countProgress(tx, userID, courseID)
		if err != nil {
			return err
		}
		if result.CourseCompleted {
			badge, err := heldCourseBadge(tx, userID, courseID)
			if err != nil {
				return err
			}
			result.Badge = badge
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendAwards(awards)
	return result, nil
}

// ReportPosition stores where the viewer is in a chapter. A video watched to
// VideoCompletionRatio or a PDF opened on its last page completes the
// chapter, in which case the completion result is returned as well.
func (s *TrainingService) ReportPosition(ctx context.Context, userID, courseID, chapterID uint, report models.PositionReport, allowDrafts bool) (*models.ChapterPosition, *models.CompletionResult, error) {
	var (
		position models.ChapterPosition
		chapter  *models.Chapter
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			course *models.Course
			err    error
		)
		chapter, course, err = loadChapter(tx, courseID, chapterID)
		if err != nil {
			return err
		}
		if !course.Published && !allowDrafts {
			return errors.Wrapf(utils.ErrNotFound, "course %d", courseID)
		}

		now := s.now()
		position = models.ChapterPosition{
			UserID:          userID,
			ChapterID:       chapterID,
			CourseID:        courseID,
			PositionSeconds: report.PositionSeconds,
			DurationSeconds: report.DurationSeconds,
			Page:            report.Page,
			TotalPages:      report.TotalPages,
			UpdatedAt:       now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position_seconds", "duration_seconds", "page", "total_pages", "updated_at"}),
		}).Create(&position).Error
		if err != nil {
			return errors.Wrap(err, "save position")
		}

		enrollment, _, err := ensureEnrollment(tx, userID, courseID)
		if err != nil {
			return err
		}
		if err := tx.Model(&enrollment).Updates(map[string]interface{}{
			"last_chapter_id": chapterID,
			"last_watched_at": now,
		}).Error; err != nil {
			return errors.Wrap(err, "update enrollment")
		}
		return touchUser(tx, userID, now)
	})
	if err != nil {
		return nil, nil, err
	}

	if !ReachedEnd(chapter, report) {
		return &position, nil, nil
	}
	result, err := s.CompleteChapter(ctx, userID, courseID, chapterID, allowDrafts)
	if err != nil {
		return nil, nil, err
	}
	return &position, result, nil
}

// ReachedEnd reports whether the reported position finishes the chapter.
func ReachedEnd(chapter *models.Chapter, report models.PositionReport) bool {
	switch chapter.ContentType {
	case models.ContentPDF:
		total := report.TotalPages
		if total <= 0 {
			total = chapter.PageCount
		}
		return total > 0 && report.Page >= total
	default:
		duration := report.DurationSeconds
		if duration <= 0 {
			duration = float64(chapter.DurationSeconds)
		}
		return duration > 0 && report.PositionSeconds >= duration*VideoCompletionRatio
	}
}

// UserProgress lists the user's enrollments. status is all, in_progress or
// completed.
func (s *TrainingService) UserProgress(ctx context.Context, userID uint, status string) ([]models.CourseProgress, error) {
	query := s.db.WithContext(ctx).Table("enrollments").
		Select("enrollments.course_id, courses.title AS course_title, enrollments.progress_pct, enrollments.completed_at").
		Joins("JOIN courses ON courses.id = enrollments.course_id AND courses.deleted_at IS NULL").
		Where("enrollments.user_id = ?", userID)

	switch status {
	case "", "all":
	case "in_progress":
		query = query.Where("enrollments.progress_pct < 100")
	case "completed":
		query = query.Where("enrollments.progress_pct = 100")
	default:
		return nil, errors.Wrapf(utils.ErrInvalid, "unknown status %q", status)
	}

	rows := []models.CourseProgress{}
	if err := query.Order("enrollments.updated_at DESC").Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list progress")
	}
	return rows, nil
}

// CourseProgress returns the detailed progress of one course. A user who is
// not enrolled gets an empty 0% record.
func (s *TrainingService) CourseProgress(ctx context.Context, userID, courseID uint) (*models.DetailedCourseProgress, error) {
	db := s.db.WithContext(ctx)
	course, err := loadCourse(db, courseID)
	if err != nil {
		return nil, err
	}

	detail := &models.DetailedCourseProgress{
		CourseProgress: models.CourseProgress{
			CourseID:    course.ID,
			CourseTitle: course.Title,
		},
		CompletedChapters: []models.CompletedChapter{},
		Positions:         []models.ChapterPosition{},
	}

	var enrollment models.Enrollment
	err = db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	switch {
	case err == nil:
		detail.ProgressPct = enrollment.ProgressPct
		detail.CompletedAt = enrollment.CompletedAt
		detail.LastChapterID = enrollment.LastChapterID
		detail.LastWatchedAt = enrollment.LastWatchedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, errors.Wrap(err, "load enrollment")
	}

	if err := db.Table("chapter_completions").
		Select("chapters.id AS chapter_id, chapters.title AS chapter_title").
		Joins("JOIN chapters ON chapters.id = chapter_completions.chapter_id").
		Where("chapter_completions.user_id = ? AND chapter_completions.course_id = ?", userID, courseID).
		Order("chapters.order_index, chapters.id").
		Scan(&detail.CompletedChapters).Error; err != nil {
		return nil, errors.Wrap(err, "list completed chapters")
	}
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&detail.Positions).Error; err != nil {
		return nil, errors.Wrap(err, "list positions")
	}

	total, _, err := countProgress(db, userID, courseID)
	if err != nil {
		return nil, err
	}
	detail.TotalChapters = total
	return detail, nil
}

// RecalculateCourse re-derives every enrollment of the course, e.g. after
// chapters were added or removed.
func (s *TrainingService) RecalculateCourse(ctx context.Context, courseID uint) error {
	var awards []award
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enrollments []models.Enrollment
		if err := lockRows(tx).Where("course_id = ?", courseID).Find(&enrollments).Error; err != nil {
			return errors.Wrap(err, "list enrollments")
		}
		for i := range enrollments {
			if err := s.refresh(tx, &enrollments[i], &awards); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.sendAwards(awards)
	return nil
}

// AssignBadge grants a badge explicitly. Staff may grant any badge; other
// callers may only claim the badge of a course they completed.
func (s *TrainingService) AssignBadge(ctx context.Context, userID, badgeID, courseID uint, staff bool) (*models.BadgeAward, bool, error) {
	var (
		held    *models.BadgeAward
		created bool
		awards  []award
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var badge models.Badge
		if err := tx.First(&badge, badgeID).Error; err != nil {
			return notFound(err, "badge %d", badgeID)
		}
		if badge.CourseID != nil && courseID != 0 && *badge.CourseID != courseID {
			return errors.Wrapf(utils.ErrInvalid, "badge %d does not belong to course %d", badgeID, courseID)
		}
		if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
			return notFound(err, "user %d", userID)
		}

		var course models.Course
		if badge.CourseID != nil {
			c, err := loadCourse(tx, *badge.CourseID)
			if err != nil {
				return err
			}
			course = *c
		}

		if !staff {
			if badge.CourseID == nil {
				return errors.Wrap(utils.ErrForbidden, "badge is not tied to a course")
			}
			var enrollment models.Enrollment
			err := tx.Where("user_id = ? AND course_id = ?", userID, *badge.CourseID).First(&enrollment).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrap(err, "load enrollment")
			}
			if err != nil || enrollment.CompletedAt == nil {
				return errors.Wrap(utils.ErrForbidden, "course not completed")
			}
		}

		var err error
		created, err = s.grant(tx, userID, course, badge, &awards)
		if err != nil {
			return err
		}
		held, err = loadUserBadge(tx, userID, badge.ID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	s.sendAwards(awards)
	return held, created, nil
}

// refresh recounts completions for the enrollment, stores the new progress
// and awards the course badge when the course is complete. The caller's
// transaction must hold the enrollment row.
func (s *TrainingService) refresh(tx *gorm.DB, enrollment *models.Enrollment, awards *[]award) error {
	total, done, err := countProgress(tx, enrollment.UserID, enrollment.CourseID)
	if err != nil {
		return err
	}

	now := s.now()
	enrollment.ProgressPct = models.ProgressPercent(done, total)
	switch {
	case enrollment.ProgressPct == 100 && enrollment.CompletedAt == nil:
		enrollment.CompletedAt = &now
		metrics.CoursesCompleted.Inc()
	case enrollment.ProgressPct < 100:
		enrollment.CompletedAt = nil
	}
	if err := tx.Omit(clause.Associations).Save(enrollment).Error; err != nil {
		return errors.Wrap(err, "save enrollment")
	}

	if enrollment.ProgressPct < 100 {
		return nil
	}
	var badge models.Badge
	err = tx.Where("course_id = ?", enrollment.CourseID).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load course badge")
	}
	course, err := loadCourse(tx, enrollment.CourseID)
	if err != nil {
		return err
	}
	_, err = s.grant(tx, enrollment.UserID, *course, badge, awards)
	return err
}

// grant inserts the user badge once and emits the BADGE notification only
// for a new row.
func (s *TrainingService) grant(tx *gorm.DB, userID uint, course models.Course, badge models.Badge, awards *[]award) (bool, error) {
	ub := models.UserBadge{
		UserID:     userID,
		BadgeID:    badge.ID,
		CourseID:   badge.CourseID,
		AssignedAt: s.now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ub)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "grant badge")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	metrics.BadgesAwarded.Inc()

	message := fmt.Sprintf("Has ganado la insignia %s", badge.Name)
	if course.ID != 0 {
		message = fmt.Sprintf("Has completado %q y ganado la insignia %s", course.Title, badge.Name)
	}
	if _, err := s.notifier.Create(tx, userID, models.NotificationBadge, "¡Insignia obtenida!", message, "/me/profile"); err != nil {
		return false, err
	}
	if awards != nil {
		*awards = append(*awards, award{userID: userID, course: course, badge: badge})
	}
	return true, nil
}

func ensureEnrollment(tx *gorm.DB, userID, courseID uint) (models.Enrollment, bool, error) {
	enrollment := models.Enrollment{UserID: userID, CourseID: courseID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
	if res.Error != nil {
		return enrollment, false, errors.Wrap(res.Error, "create enrollment")
	}
	created := res.RowsAffected == 1

	// serializes concurrent completions for the same user and course
	if err := lockRows(tx).Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return enrollment, false, errors.Wrap(err, "load enrollment")
	}
	return enrollment, created, nil
}

// lockRows adds FOR UPDATE where the dialect supports it.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func countProgress(tx *gorm.DB, userID, courseID uint) (total, done int, err error) {
	var chapters, completed int64
	if err := tx.Model(&models.Chapter{}).Where("course_id = ?", courseID).Count(&chapters).Error; err != nil {
		return 0, 0, errors.Wrap(err, "count chapters")
	}
	if err := tx.Model(&models.ChapterCompletion{}).
		Joins("JOIN chapters ON chapters.id = chapter_completions.chapter_id").
		Where("chapter_completions.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Count(&completed).Error; err != nil {
		return 0, 0, errors.Wrap(err, "count completions")
	}
	return int(chapters), int(completed), nil
}

func heldCourseBadge(tx *gorm.DB, userID, courseID uint) (*models.BadgeAward, error) {
	var ub models.UserBadge
	err := tx.Preload("Badge").Where("user_id = ? AND course_id = ?", userID, courseID).First(&ub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user badge")
	}
	award := models.NewBadgeAward(ub)
	return &award, nil
}

func loadUserBadge(tx *gorm.DB, userID, badgeID uint) (*models.BadgeAward, error) {
	var ub models.UserBadge
	if err := tx.Preload("Badge").Where("user_id = ? AND badge_id = ?", userID, badgeID).First(&ub).Error; err != nil {
		return nil, errors.Wrap(err, "load user badge")
	}
	award := models.NewBadgeAward(ub)
	return &award, nil
}

func loadCourse(tx *gorm.DB, courseID uint) (*models.Course, error) {
	var course models.Course
	if err := tx.First(&course, courseID).Error; err != nil {
		return nil, notFound(err, "course %d", courseID)
	}
	return &course, nil
}

func loadChapter(tx *gorm.DB, courseID, chapterID uint) (*models.Chapter, *models.Course, error) {
	course, err := loadCourse(tx, courseID)
	if err != nil {
		return nil, nil, err
	}
	var chapter models.Chapter
	if err := tx.Where("id = ? AND course_id = ?", chapterID, courseID).First(&chapter).Error; err != nil {
		return nil, nil, notFound(err, "chapter %d in course %d", chapterID, courseID)
	}
	return &chapter, course, nil
}

func touchUser(tx *gorm.DB, userID uint, now time.Time) error {
	return errors.Wrap(tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("last_active_at", now).Error, "touch user")
}

// notFound turns gorm.ErrRecordNotFound into utils.ErrNotFound and wraps
// anything else as-is.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(utils.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
