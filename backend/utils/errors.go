package utils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusFor maps a (possibly wrapped) domain error to an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch cause := errors.Cause(err); {
	case cause == ErrNotFound, cause == gorm.ErrRecordNotFound:
		return fiber.StatusNotFound
	case cause == ErrForbidden:
		return fiber.StatusForbidden
	case cause == ErrConflict, cause == gorm.ErrDuplicatedKey:
		return fiber.StatusConflict
	case cause == ErrInvalid:
		return fiber.StatusBadRequest
	case cause == ErrUnauthorized:
		return fiber.StatusUnauthorized
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleError writes err using the error envelope. Internal errors are not
// echoed to the client.
func HandleError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		return err
	}
	return Error(c, status, err)
}
