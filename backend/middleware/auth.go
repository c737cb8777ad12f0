package middleware

import (
	"learning-platform/backend/cache"
	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// AuthMiddleware rejects requests without a valid, unrevoked bearer token
// and stores the claims for the handlers.
func AuthMiddleware(cfg *config.Config, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authenticate(c, cfg, store)
		if err != nil {
			return utils.Unauthorized(c, err.Error())
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// OptionalAuth stores the claims when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(cfg *config.Config, store cache.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if utils.ExtractToken(c) == "" {
			return c.Next()
		}
		claims, err := authenticate(c, cfg, store)
		if err != nil {
			return utils.Unauthorized(c, err.Error())
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, cfg *config.Config, store cache.Store) (*utils.Claims, error) {
	token := utils.ExtractToken(c)
	if token == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}
	claims, err := utils.ParseJWTToken(token, cfg)
	if err != nil {
		return nil, err
	}
	revoked, err := cache.IsRevoked(c.UserContext(), store, claims.ID)
	if err != nil {
		// a cache outage must not lock everyone out
		return claims, nil
	}
	if revoked {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Token revoked")
	}
	return claims, nil
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "Insufficient role")
	}
}

func AdminMiddleware() fiber.Handler {
	return RequireRoles(models.RoleAdmin)
}

func StaffMiddleware() fiber.Handler {
	return RequireRoles(models.RoleAdmin, models.RoleInstructor)
}

// Claims returns the authenticated caller, or nil.
func Claims(c *fiber.Ctx) *utils.Claims {
	claims, _ := c.Locals(claimsKey).(*utils.Claims)
	return claims
}
