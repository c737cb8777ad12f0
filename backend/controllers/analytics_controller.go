package controllers

import (
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AnalyticsController struct {
	DB *gorm.DB
}

func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	return &AnalyticsController{DB: db}
}

// GetCourseAnalytics godoc
// @Summary Enrollment and completion statistics of a course
// @Description Available to the course author and administrators.
// @Tags analytics
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} models.CourseAnalytics
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/analytics [get]
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		return utils.HandleError(c, err)
	}
	if callerRole(c) != models.RoleAdmin && course.AuthorID != callerID(c) {
		return utils.Forbidden(c, "You don't have permission to view this analytics")
	}

	stats := models.CourseAnalytics{
		CourseID:    course.ID,
		CourseTitle: course.Title,
		Chapters:    []models.ChapterStat{},
	}

	var agg struct {
		Enrollments int64
		Completed   int64
		AvgProgress float64
	}
	if err := ac.DB.Model(&models.Enrollment{}).
		Select("COUNT(*) AS enrollments, "+
			"COALESCE(SUM(CASE WHEN completed_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(AVG(progress_pct), 0) AS avg_progress").
		Where("course_id = ?", courseID).
		Scan(&agg).Error; err != nil {
		return errors.Wrap(err, "aggregate enrollments")
	}
	stats.Enrollments = agg.Enrollments
	stats.Completed = agg.Completed
	stats.AvgProgressPct = agg.AvgProgress

	if err := ac.DB.Model(&models.UserBadge{}).Where("course_id = ?", courseID).
		Count(&stats.BadgesAwarded).Error; err != nil {
		return errors.Wrap(err, "count badges")
	}

	if err := ac.DB.Table("chapters").
		Select("chapters.id AS chapter_id, chapters.title AS chapter_title, chapters.order_index, COUNT(chapter_completions.id) AS completed").
		Joins("LEFT JOIN chapter_completions ON chapter_completions.chapter_id = chapters.id").
		Where("chapters.course_id = ?", courseID).
		Group("chapters.id, chapters.title, chapters.order_index").
		Order("chapters.order_index, chapters.id").
		Scan(&stats.Chapters).Error; err != nil {
		return errors.Wrap(err, "chapter stats")
	}

	return c.JSON(stats)
}
