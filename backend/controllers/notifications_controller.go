package controllers

import (
	"strings"

	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type NotificationsController struct {
	DB *gorm.DB
}

func NewNotificationsController(db *gorm.DB) *NotificationsController {
	return &NotificationsController{DB: db}
}

// ListNotifications godoc
// @Summary The caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Param type query string false "NEW_COURSE, BADGE or REMINDER"
// @Param unread query bool false "Only unread"
// @Success 200 {array} models.Notification
// @Security ApiKeyAuth
// @Router /notifications [get]
func (nc *NotificationsController) ListNotifications(c *fiber.Ctx) error {
	_, pageSize, offset := utils.PageParams(c)
	query := nc.DB.Where("user_id = ?", callerID(c))
	if typ := strings.ToUpper(c.Query("type")); typ != "" {
		query = query.Where("type = ?", typ)
	}
	if c.QueryBool("unread") {
		query = query.Where("read = ?", false)
	}

	notifications := []models.Notification{}
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).
		Find(&notifications).Error; err != nil {
		return errors.Wrap(err, "list notifications")
	}
	return c.JSON(notifications)
}

func (nc *NotificationsController) MarkRead(c *fiber.Ctx) error {
	res := nc.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Params("id"), callerID(c)).
		Update("read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Notification not found")
	}
	return utils.NoContent(c)
}

func (nc *NotificationsController) MarkAllRead(c *fiber.Ctx) error {
	res := nc.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", callerID(c), false).
		Update("read", true)
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notifications read")
	}
	return c.JSON(fiber.Map{"updated": res.RowsAffected})
}
