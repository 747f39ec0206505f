// handlers/board.go
package handlers

import (
	"stampxl/middleware"
	"stampxl/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupBoardRoutes(router fiber.Router, boards *services.BoardService, log *zap.Logger) {
	router.Get("/board", func(c *fiber.Ctx) error {
		board, err := boards.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(board)
	})

	router.Put("/board/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return badID(c)
		}
		var body struct {
			UserBadgeIDs []*uint `json:"userBadgeIds"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badBody(c)
		}
		board, err := boards.Save(c.UserContext(), middleware.UserID(c), id, body.UserBadgeIDs)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(board)
	})
}
