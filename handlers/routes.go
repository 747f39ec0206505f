package handlers

import (
	"stampxl/middleware"
	"stampxl/services"
	"stampxl/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services bundles everything the HTTP API talks to.
type Services struct {
	Trades   *services.TradeEngine
	Users    *services.UserService
	Badges   *services.BadgeService
	Boards   *services.BoardService
	Verifier *utils.TokenVerifier
}

// SetupRoutes mounts /healthz, /metrics and the /api tree.
func SetupRoutes(app *fiber.App, svc Services, metricsToken string, log *zap.Logger) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", middleware.MetricsTokenMiddleware(metricsToken, log), adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.IdentityMiddleware(svc.Verifier, svc.Users, log))
	SetupTradeRoutes(api, svc.Trades, log)
	SetupUserRoutes(api, svc.Users, log)
	SetupBadgeRoutes(api, svc.Badges, log)
	SetupBoardRoutes(api, svc.Boards, log)
}
