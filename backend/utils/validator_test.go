package utils

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type chapterInput struct {
	Title       string `json:"title" validate:"required"`
	ContentType string `json:"contentType" validate:"required,content_type"`
	OrderIndex  int    `json:"orderIndex" validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(&chapterInput{Title: "Intro", ContentType: "video"}))

	fields := Validate(&chapterInput{ContentType: "audio", OrderIndex: -1})
	assert.Equal(t, "title is required", fields["title"])
	assert.Equal(t, "contentType must be either video or pdf", fields["contentType"])
	assert.Contains(t, fields, "orderIndex")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, StatusFor(errors.Wrap(ErrNotFound, "course 3")))
	assert.Equal(t, fiber.StatusNotFound, StatusFor(gorm.ErrRecordNotFound))
	assert.Equal(t, fiber.StatusForbidden, StatusFor(errors.Wrap(ErrForbidden, "x")))
	assert.Equal(t, fiber.StatusConflict, StatusFor(ErrConflict))
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(errors.Wrap(ErrInvalid, "bad")))
	assert.Equal(t, fiber.StatusTeapot, StatusFor(fiber.NewError(fiber.StatusTeapot, "tea")))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(errors.New("boom")))
}
