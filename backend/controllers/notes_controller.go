package controllers

import (
	"time"

	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotesController struct {
	DB *gorm.DB
}

func NewNotesController(db *gorm.DB) *NotesController {
	return &NotesController{DB: db}
}

type NoteRequest struct {
	Content string `json:"content" validate:"max=20000"`
}

// GetNote godoc
// @Summary The caller's note on a chapter
// @Tags notes
// @Produce json
// @Param id path int true "Course ID"
// @Param chapterId path int true "Chapter ID"
// @Success 200 {object} models.ChapterNote
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/chapters/{chapterId}/notes [get]
func (nc *NotesController) GetNote(c *fiber.Ctx) error {
	courseID, chapterID, err := nc.chapter(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	note := models.ChapterNote{UserID: callerID(c), ChapterID: chapterID, CourseID: courseID}
	err = nc.DB.Where("user_id = ? AND chapter_id = ?", note.UserID, chapterID).First(&note).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(err, "load note")
	}
	return c.JSON(note)
}

// SaveNote godoc
// @Summary Create or replace the caller's note on a chapter
// @Tags notes
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param chapterId path int true "Chapter ID"
// @Param input body NoteRequest true "Note"
// @Success 200 {object} models.ChapterNote
// @Security ApiKeyAuth
// @Router /courses/{id}/chapters/{chapterId}/notes [put]
func (nc *NotesController) SaveNote(c *fiber.Ctx) error {
	courseID, chapterID, err := nc.chapter(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input NoteRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	note := models.ChapterNote{
		UserID:    callerID(c),
		ChapterID: chapterID,
		CourseID:  courseID,
		Content:   input.Content,
		UpdatedAt: time.Now().UTC(),
	}
	err = nc.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&note).Error
	if err != nil {
		return errors.Wrap(err, "save note")
	}
	return c.JSON(note)
}

func (nc *NotesController) chapter(c *fiber.Ctx) (uint, uint, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	chapterID, err := paramID(c, "chapterId")
	if err != nil {
		return 0, 0, err
	}
	var n int64
	if err := nc.DB.Model(&models.Chapter{}).
		Where("id = ? AND course_id = ?", chapterID, courseID).Count(&n).Error; err != nil {
		return 0, 0, err
	}
	if n == 0 {
		return 0, 0, errors.Wrapf(utils.ErrNotFound, "chapter %d in course %d", chapterID, courseID)
	}
	return courseID, chapterID, nil
}
