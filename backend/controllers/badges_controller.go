package controllers

import (
	"learning-platform/backend/models"
	"learning-platform/backend/services"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type BadgesController struct {
	DB       *gorm.DB
	Training *services.TrainingService
}

func NewBadgesController(db *gorm.DB, training *services.TrainingService) *BadgesController {
	return &BadgesController{DB: db, Training: training}
}

type BadgeRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl" validate:"omitempty,max=500"`
	Criterion   string `json:"criterion"`
	CourseID    *uint  `json:"courseId"`
}

// AssignBadgeRequest is the explicit award body. awardedAt is accepted from
// older clients and ignored; the server records its own time.
type AssignBadgeRequest struct {
	UserID    uint   `json:"userId"`
	BadgeID   uint   `json:"badgeId" validate:"required"`
	CourseID  uint   `json:"courseId"`
	AwardedAt string `json:"awardedAt"`
}

func (bc *BadgesController) GetMyBadges(c *fiber.Ctx) error {
	return bc.respondUserBadges(c, callerID(c))
}

// GetUserBadges godoc
// @Summary Badges held by a user
// @Tags badges
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {array} models.BadgeAward
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /badges/me/{userId} [get]
func (bc *BadgesController) GetUserBadges(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := selfOrAdmin(c, userID); err != nil {
		return utils.HandleError(c, err)
	}
	return bc.respondUserBadges(c, userID)
}

func (bc *BadgesController) respondUserBadges(c *fiber.Ctx, userID uint) error {
	var held []models.UserBadge
	if err := bc.DB.Preload("Badge").Where("user_id = ?", userID).
		Order("assigned_at DESC").Find(&held).Error; err != nil {
		return errors.Wrap(err, "list user badges")
	}
	awards := make([]models.BadgeAward, 0, len(held))
	for _, ub := range held {
		awards = append(awards, models.NewBadgeAward(ub))
	}
	return c.JSON(awards)
}

// GetCourseBadge returns the badge attached to a course.
func (bc *BadgesController) GetCourseBadge(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var badge models.Badge
	if err := bc.DB.Where("course_id = ?", courseID).First(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course has no badge")
		}
		return errors.Wrap(err, "load badge")
	}
	return c.JSON(badge)
}

// AssignBadge godoc
// @Summary Award a badge
// @Description Staff may award any badge. Learners may only claim the badge of a course they completed.
// @Tags badges
// @Accept json
// @Produce json
// @Param input body AssignBadgeRequest true "Award"
// @Success 201 {object} models.BadgeAward
// @Success 200 {object} models.BadgeAward "Already held"
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /badges/assignBadge [post]
func (bc *BadgesController) AssignBadge(c *fiber.Ctx) error {
	var input AssignBadgeRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	userID, err := target(c, input.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	award, created, err := bc.Training.AssignBadge(c.UserContext(), userID, input.BadgeID, input.CourseID, callerRole(c).IsStaff())
	if err != nil {
		return utils.HandleError(c, err)
	}
	if created {
		return utils.Created(c, award)
	}
	return c.JSON(award)
}

func (bc *BadgesController) ListBadges(c *fiber.Ctx) error {
	badges := []models.Badge{}
	if err := bc.DB.Order("id").Find(&badges).Error; err != nil {
		return errors.Wrap(err, "list badges")
	}
	return c.JSON(badges)
}

func (bc *BadgesController) CreateBadge(c *fiber.Ctx) error {
	var input BadgeRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if err := bc.checkCourse(input.CourseID); err != nil {
		return utils.HandleError(c, err)
	}
	badge := models.Badge{}
	input.apply(&badge)
	if err := bc.DB.Create(&badge).Error; err != nil {
		return utils.HandleError(c, badgeConflict(err))
	}
	return utils.Created(c, badge)
}

func (bc *BadgesController) UpdateBadge(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input BadgeRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if err := bc.checkCourse(input.CourseID); err != nil {
		return utils.HandleError(c, err)
	}

	var badge models.Badge
	if err := bc.DB.First(&badge, id).Error; err != nil {
		return utils.HandleError(c, err)
	}
	input.apply(&badge)
	if err := bc.DB.Save(&badge).Error; err != nil {
		return utils.HandleError(c, badgeConflict(err))
	}
	return c.JSON(badge)
}

// DeleteBadge removes the badge; awards cascade with it.
func (bc *BadgesController) DeleteBadge(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	err = bc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&models.UserBadge{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Badge{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(utils.ErrNotFound, "badge %d", id)
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

func (bc *BadgesController) checkCourse(courseID *uint) error {
	if courseID == nil {
		return nil
	}
	if err := bc.DB.Select("id").First(&models.Course{}, *courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrapf(utils.ErrInvalid, "course %d does not exist", *courseID)
		}
		return err
	}
	return nil
}

func badgeConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(utils.ErrConflict, "course already has a badge")
	}
	return err
}

func (r BadgeRequest) apply(b *models.Badge) {
	b.Name = r.Name
	b.Description = r.Description
	b.IconURL = r.IconURL
	b.Criterion = r.Criterion
	b.CourseID = r.CourseID
}
