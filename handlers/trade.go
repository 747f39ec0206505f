// handlers/trade.go
package handlers

import (
	"context"

	"stampxl/middleware"
	"stampxl/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupTradeRoutes(router fiber.Router, engine *services.TradeEngine, log *zap.Logger) {
	trades := router.Group("/trades")

	trades.Post("/", func(c *fiber.Ctx) error {
		var in services.ProposeInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		trade, err := engine.Propose(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(trade)
	})

	trades.Get("/", func(c *fiber.Ctx) error {
		pending, err := engine.ListPending(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(pending)
	})

	resolve := func(op func(ctx context.Context, actor string, id uint) error) fiber.Handler {
		return func(c *fiber.Ctx) error {
			id, ok := paramID(c)
			if !ok {
				return badID(c)
			}
			if err := op(c.UserContext(), middleware.UserID(c), id); err != nil {
				return respondError(c, log, err)
			}
			return c.JSON(fiber.Map{"ok": true})
		}
	}

	trades.Post("/:id/accept", resolve(engine.Accept))
	trades.Post("/:id/reject", resolve(engine.Reject))
	trades.Post("/:id/cancel", resolve(engine.Cancel))
}
