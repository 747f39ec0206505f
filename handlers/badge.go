// handlers/badge.go
package handlers

import (
	"stampxl/middleware"
	"stampxl/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupBadgeRoutes(router fiber.Router, badges *services.BadgeService, log *zap.Logger) {
	group := router.Group("/badges")

	group.Post("/", func(c *fiber.Ctx) error {
		var in services.BadgeInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		badge, err := badges.Create(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": badge.ID})
	})

	group.Get("/created", func(c *fiber.Ctx) error {
		created, err := badges.ListCreated(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(created)
	})

	group.Get("/owned", func(c *fiber.Ctx) error {
		owned, err := badges.Owned(c.UserContext(), middleware.UserID(c), c.Query("userId"), c.Query("username"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(owned)
	})

	group.Post("/claim", func(c *fiber.Ctx) error {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badBody(c)
		}
		unit, err := badges.Claim(c.UserContext(), middleware.UserID(c), body.Token)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(unit)
	})

	group.Put("/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return badID(c)
		}
		var in services.BadgeInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		badge, err := badges.Update(c.UserContext(), middleware.UserID(c), id, in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(badge)
	})

	group.Post("/:id/disable", func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return badID(c)
		}
		if err := badges.Disable(c.UserContext(), middleware.UserID(c), id); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	group.Delete("/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return badID(c)
		}
		if err := badges.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	group.Post("/:id/claim-tokens", func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return badID(c)
		}
		token, err := badges.GenerateClaimToken(c.UserContext(), middleware.UserID(c), id)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token})
	})
}
