package controllers

import (
	"time"

	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type OverviewController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Training *services.TrainingService
}

func NewOverviewController(db *gorm.DB, cfg *config.Config, training *services.TrainingService) *OverviewController {
	return &OverviewController{DB: db, Cfg: cfg, Training: training}
}

// GetDashboard godoc
// @Summary Learner dashboard
// @Description Counters, courses to continue and recommendations for the caller.
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.DashboardOverview
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (oc *OverviewController) GetDashboard(c *fiber.Ctx) error {
	userID := callerID(c)
	ctx := c.UserContext()

	all, err := oc.Training.UserProgress(ctx, userID, "all")
	if err != nil {
		return err
	}

	overview := models.DashboardOverview{
		Enrolled:         len(all),
		ContinueLearning: []models.CourseProgress{},
		Recommended:      []models.Course{},
	}
	enrolled := make([]uint, 0, len(all))
	for _, p := range all {
		enrolled = append(enrolled, p.CourseID)
		if p.ProgressPct == 100 {
			overview.Completed++
			continue
		}
		overview.InProgress++
		if len(overview.ContinueLearning) < 3 {
			overview.ContinueLearning = append(overview.ContinueLearning, p)
		}
	}

	var badges int64
	if err := oc.DB.WithContext(ctx).Model(&models.UserBadge{}).Where("user_id = ?", userID).Count(&badges).Error; err != nil {
		return errors.Wrap(err, "count badges")
	}
	overview.Badges = int(badges)

	if err := oc.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&overview.UnreadAlerts).Error; err != nil {
		return errors.Wrap(err, "count notifications")
	}

	var logins []time.Time
	if err := oc.DB.WithContext(ctx).Model(&models.LoginHistory{}).
		Where("user_id = ? AND login_time >= ?", userID, time.Now().UTC().AddDate(0, 0, -60)).
		Order("login_time DESC").
		Pluck("login_time", &logins).Error; err != nil {
		return errors.Wrap(err, "login history")
	}
	overview.StreakDays = StreakDays(logins, time.Now().UTC())

	// the most popular published courses the user has not started
	query := oc.DB.WithContext(ctx).Model(&models.Course{}).Preload("Module").
		Where("published = ?", true).
		Order("(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id) DESC").
		Order("courses.id DESC").
		Limit(4)
	if len(enrolled) > 0 {
		query = query.Where("courses.id NOT IN ?", enrolled)
	}
	if err := query.Find(&overview.Recommended).Error; err != nil {
		return errors.Wrap(err, "recommendations")
	}
	for i := range overview.Recommended {
		overview.Recommended[i].Prepare(oc.Cfg.PublicFilesURL)
	}

	return c.JSON(overview)
}

// StreakDays counts consecutive UTC days with a login, ending today or
// yesterday. logins must be sorted newest first.
func StreakDays(logins []time.Time, now time.Time) int {
	day := func(t time.Time) time.Time {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	expected := day(now)
	streak := 0
	for _, login := range logins {
		d := day(login)
		switch {
		case d.Equal(expected):
			streak++
			expected = expected.AddDate(0, 0, -1)
		case streak == 0 && d.Equal(expected.AddDate(0, 0, -1)):
			streak = 1
			expected = d.AddDate(0, 0, -1)
		case d.After(expected):
			// another login on a day already counted
		default:
			return streak
		}
	}
	return streak
}
