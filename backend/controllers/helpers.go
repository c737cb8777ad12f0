package controllers

import (
	"strconv"

	"learning-platform/backend/middleware"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// paramID reads a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Wrapf(utils.ErrInvalid, "invalid %s", name)
	}
	return uint(id), nil
}

// selfOrAdmin allows acting on userID only for that user or an admin.
func selfOrAdmin(c *fiber.Ctx, userID uint) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return utils.ErrUnauthorized
	}
	if claims.UserID != userID && claims.Role != models.RoleAdmin {
		return errors.Wrap(utils.ErrForbidden, "not allowed to act for another user")
	}
	return nil
}

func callerID(c *fiber.Ctx) uint {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func callerRole(c *fiber.Ctx) models.Role {
	if claims := middleware.Claims(c); claims != nil {
		return claims.Role
	}
	return ""
}
