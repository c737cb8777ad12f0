package controllers

import (
	"context"
	"log"
	"strings"

	"learning-platform/backend/cache"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ModulesController struct {
	DB     *gorm.DB
	Cache  cache.Store
	Logger *log.Logger
}

func NewModulesController(db *gorm.DB, store cache.Store, logger *log.Logger) *ModulesController {
	return &ModulesController{DB: db, Cache: store, Logger: logger}
}

type ModuleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func (mc *ModulesController) ListModules(c *fiber.Ctx) error {
	modules := []models.Module{}
	if err := mc.DB.Order("name").Find(&modules).Error; err != nil {
		return errors.Wrap(err, "list modules")
	}
	return c.JSON(modules)
}

func (mc *ModulesController) CreateModule(c *fiber.Ctx) error {
	var input ModuleRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	module := models.Module{Name: strings.TrimSpace(input.Name), Description: input.Description}
	if err := mc.DB.Create(&module).Error; err != nil {
		return utils.HandleError(c, moduleConflict(err))
	}
	mc.invalidate(c.UserContext())
	return utils.Created(c, module)
}

func (mc *ModulesController) UpdateModule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input ModuleRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var module models.Module
	if err := mc.DB.First(&module, id).Error; err != nil {
		return utils.HandleError(c, err)
	}
	module.Name = strings.TrimSpace(input.Name)
	module.Description = input.Description
	if err := mc.DB.Save(&module).Error; err != nil {
		return utils.HandleError(c, moduleConflict(err))
	}
	mc.invalidate(c.UserContext())
	return c.JSON(module)
}

// DeleteModule refuses while any course, including soft-deleted ones,
// still points at the module.
func (mc *ModulesController) DeleteModule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	var inUse int64
	if err := mc.DB.Unscoped().Model(&models.Course{}).Where("module_id = ?", id).Count(&inUse).Error; err != nil {
		return errors.Wrap(err, "count courses")
	}
	if inUse > 0 {
		return utils.Conflict(c, "Module still has courses")
	}

	res := mc.DB.Delete(&models.Module{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete module")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Module not found")
	}
	mc.invalidate(c.UserContext())
	return utils.NoContent(c)
}

func (mc *ModulesController) invalidate(ctx context.Context) {
	if err := cache.InvalidateCatalog(ctx, mc.Cache); err != nil {
		mc.Logger.Printf("catalog cache invalidate: %v", err)
	}
}

func moduleConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(utils.ErrConflict, "module name already exists")
	}
	return err
}
