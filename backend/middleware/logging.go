package middleware

import (
	"log"
	"time"

	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware writes one access line per request. The status comes
// from the returned error when the handler did not write a response itself.
func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = utils.StatusFor(err)
		}

		var user uint
		if claims := Claims(c); claims != nil {
			user = claims.UserID
		}

		logger.Printf("%s %s %s %d %v user=%d",
			c.IP(),
			c.Method(),
			c.OriginalURL(),
			status,
			time.Since(start),
			user,
		)

		return err
	}
}
