package controllers

import (
	"log"
	"strings"
	"time"

	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/storage"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type MaterialsController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Storage storage.Storage
	Logger  *log.Logger
}

func NewMaterialsController(db *gorm.DB, cfg *config.Config, store storage.Storage, logger *log.Logger) *MaterialsController {
	return &MaterialsController{DB: db, Cfg: cfg, Storage: store, Logger: logger}
}

func (mc *MaterialsController) ListMaterials(c *fiber.Ctx) error {
	query := mc.DB.Model(&models.Material{})
	if typ := strings.ToLower(c.Query("type")); typ != "" {
		query = query.Where("type = ?", typ)
	}
	materials := []models.Material{}
	if err := query.Order("uploaded_at DESC").Find(&materials).Error; err != nil {
		return errors.Wrap(err, "list materials")
	}
	return c.JSON(materials)
}

// UploadMaterial godoc
// @Summary Upload a learning material
// @Tags materials
// @Accept mpfd
// @Produce json
// @Param file formData file true "Material"
// @Param name formData string false "Display name, defaults to the file name"
// @Success 201 {object} models.Material
// @Security ApiKeyAuth
// @Router /materials [post]
func (mc *MaterialsController) UploadMaterial(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "Missing file")
	}

	up, err := saveUpload(mc.Storage, "materials", fh)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = fh.Filename
	}
	material := models.Material{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       models.MaterialTypeFor(fh.Filename, fh.Header.Get(fiber.HeaderContentType)),
		Size:       up.Size,
		URL:        models.ContentURL(mc.Cfg.PublicFilesURL, up.Key),
		StorageKey: up.Key,
		UploadedAt: time.Now().UTC(),
		UploadedBy: callerID(c),
	}
	if err := mc.DB.Create(&material).Error; err != nil {
		_ = mc.Storage.Delete(up.Key)
		return errors.Wrap(err, "create material")
	}
	return utils.Created(c, material)
}

// DeleteMaterial is allowed to the uploader and administrators.
func (mc *MaterialsController) DeleteMaterial(c *fiber.Ctx) error {
	var material models.Material
	if err := mc.DB.First(&material, "id = ?", c.Params("id")).Error; err != nil {
		return utils.HandleError(c, err)
	}
	if material.UploadedBy != callerID(c) && callerRole(c) != models.RoleAdmin {
		return utils.Forbidden(c, "Only the uploader or an admin may delete this material")
	}
	if err := mc.DB.Delete(&material).Error; err != nil {
		return errors.Wrap(err, "delete material")
	}
	if err := mc.Storage.Delete(material.StorageKey); err != nil {
		mc.Logger.Printf("delete material file %s: %v", material.StorageKey, err)
	}
	return utils.NoContent(c)
}
