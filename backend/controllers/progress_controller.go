package controllers

import (
	"learning-platform/backend/models"
	"learning-platform/backend/services"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Training *services.TrainingService
}

func NewProgressController(training *services.TrainingService) *ProgressController {
	return &ProgressController{Training: training}
}

type AssignRequest struct {
	UserID   uint `json:"userId"`
	CourseID uint `json:"courseId" validate:"required"`
}

type CompleteChapterRequest struct {
	UserID    uint `json:"userId"`
	CourseID  uint `json:"courseId" validate:"required"`
	ChapterID uint `json:"chapterId" validate:"required"`
}

type PositionRequest struct {
	CompleteChapterRequest
	models.PositionReport
}

// target resolves the user a training request acts for; an omitted userId
// means the caller.
func target(c *fiber.Ctx, userID uint) (uint, error) {
	if userID == 0 {
		return callerID(c), nil
	}
	return userID, selfOrAdmin(c, userID)
}

// AssignCourse godoc
// @Summary Enroll a user in a course
// @Tags training
// @Accept json
// @Produce json
// @Param input body AssignRequest true "Assignment"
// @Success 201 {object} models.Enrollment
// @Success 200 {object} models.Enrollment "Already enrolled"
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /training/coursesassign [post]
func (pc *ProgressController) AssignCourse(c *fiber.Ctx) error {
	var input AssignRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	userID, err := target(c, input.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	enrollment, created, err := pc.Training.Assign(c.UserContext(), userID, input.CourseID, callerRole(c).IsStaff())
	if err != nil {
		return utils.HandleError(c, err)
	}
	if created {
		return utils.Created(c, enrollment)
	}
	return c.JSON(enrollment)
}

// GetUserProgress godoc
// @Summary Progress of every course a user is enrolled in
// @Tags training
// @Produce json
// @Param userId path int true "User ID"
// @Param status query string false "all, in_progress or completed"
// @Success 200 {array} models.CourseProgress
// @Security ApiKeyAuth
// @Router /training/courses/progress/{userId} [get]
func (pc *ProgressController) GetUserProgress(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := selfOrAdmin(c, userID); err != nil {
		return utils.HandleError(c, err)
	}

	rows, err := pc.Training.UserProgress(c.UserContext(), userID, c.Query("status", "all"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(rows)
}

// GetCourseProgress godoc
// @Summary Detailed progress of one course
// @Tags training
// @Produce json
// @Param courseId path int true "Course ID"
// @Param userId path int true "User ID"
// @Success 200 {object} models.DetailedCourseProgress
// @Security ApiKeyAuth
// @Router /training/courses/{courseId}/progress/{userId} [get]
func (pc *ProgressController) GetCourseProgress(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := selfOrAdmin(c, userID); err != nil {
		return utils.HandleError(c, err)
	}

	detail, err := pc.Training.CourseProgress(c.UserContext(), userID, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(detail)
}

// CompleteChapter godoc
// @Summary Mark a chapter as completed
// @Description Idempotent. Completing the last chapter awards the course badge.
// @Tags training
// @Accept json
// @Produce json
// @Param input body CompleteChapterRequest true "Chapter"
// @Success 200 {object} models.CompletionResult
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /training/chapters/complete [post]
func (pc *ProgressController) CompleteChapter(c *fiber.Ctx) error {
	var input CompleteChapterRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	userID, err := target(c, input.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	res, err := pc.Training.CompleteChapter(c.UserContext(), userID, input.CourseID, input.ChapterID, callerRole(c).IsStaff())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(res)
}

// ReportPosition stores the viewer position and returns the completion
// result when the position finishes the chapter.
func (pc *ProgressController) ReportPosition(c *fiber.Ctx) error {
	var input PositionRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	userID, err := target(c, input.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	position, res, err := pc.Training.ReportPosition(c.UserContext(), userID, input.CourseID, input.ChapterID, input.PositionReport, callerRole(c).IsStaff())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"position":   position,
		"completion": res,
	})
}
