// middleware/auth.go
package middleware

import (
	"errors"

	"stampxl/services"
	"stampxl/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserIDKey is the fiber local holding the verified subject, "" when anonymous.
const UserIDKey = "user_id"

// IdentityMiddleware verifies the session JWT (bearer header or hanko cookie)
// and makes sure a user row exists for its subject. Requests without a token
// continue anonymously; the services decide whether that is allowed.
func IdentityMiddleware(verifier *utils.TokenVerifier, users *services.UserService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(UserIDKey, "")

		token := utils.ExtractToken(c.Get(fiber.HeaderAuthorization), c.Cookies(utils.SessionCookie))
		if token == "" {
			return c.Next()
		}

		subject, err := verifier.Subject(token)
		if err != nil {
			log.Debug("rejected session token", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid session token.",
			})
		}

		if _, err := users.EnsureUser(c.UserContext(), subject); err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session token."})
			}
			log.Error("failed to provision user", zap.String("user_id", subject), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error.",
			})
		}

		c.Locals(UserIDKey, subject)
		return c.Next()
	}
}

// UserID returns the verified subject of the request, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}
