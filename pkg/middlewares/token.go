package middlewares

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	//HeaderAuthorization bearer credential header name
	HeaderAuthorization = "Authorization"

	bearerPrefix = "Bearer "
)

// BearerAuth validates the bearer credential in the Authorization header
// against the configured secret. Runs before the body is parsed, so a bad
// credential never allocates any job resources.
func BearerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(HeaderAuthorization)

		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing token",
			})
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid token",
			})
		}

		return c.Next()
	}
}
