// handlers/user.go
package handlers

import (
	"stampxl/middleware"
	"stampxl/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupUserRoutes(router fiber.Router, users *services.UserService, log *zap.Logger) {
	group := router.Group("/users")

	group.Get("/me", func(c *fiber.Ctx) error {
		user, err := users.Me(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(user)
	})

	group.Patch("/me", func(c *fiber.Ctx) error {
		var body struct {
			Username string `json:"username"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badBody(c)
		}
		user, err := users.UpdateUsername(c.UserContext(), middleware.UserID(c), body.Username)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(user)
	})

	group.Get("/roles", func(c *fiber.Ctx) error {
		roles, err := users.Roles(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(roles)
	})

	group.Get("/search", func(c *fiber.Ctx) error {
		found, err := users.SearchUsers(c.UserContext(), middleware.UserID(c), c.Query("q"), c.QueryInt("limit", 20))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(found)
	})
}
