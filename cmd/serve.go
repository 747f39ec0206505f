package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"stampxl/config"
	"stampxl/handlers"
	"stampxl/middleware"
	"stampxl/repositories"
	"stampxl/services"
	"stampxl/utils"
	"stampxl/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the stale trade sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		if err := cfg.RequireAuth(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, sweeper, err := wire(ctx, cfg, db, log)
		if err != nil {
			return err
		}
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = sweeper.Stop() }()

		app := newApp(cfg, svc, log)
		errc := make(chan error, 1)
		go func() {
			errc <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
		}()
		log.Info("server running", zap.Int("port", cfg.Port), zap.String("allowed_origins", cfg.AllowedOrigins))

		select {
		case err := <-errc:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		}

		log.Info("shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	},
}

// wire builds the services and the sweeper from configuration.
func wire(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (handlers.Services, *workers.TradeSweeper, error) {
	var images utils.ImageStore
	if cfg.R2.Enabled() {
		store, err := utils.NewR2ImageStore(ctx, cfg.R2)
		if err != nil {
			return handlers.Services{}, nil, err
		}
		images = store
	} else {
		log.Warn("R2 is not configured, badge images are stored inline")
	}

	var limiter utils.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err := utils.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return handlers.Services{}, nil, err
		}
		limiter = utils.NewRedisRateLimiter(rdb, "stampxl:ratelimit:", cfg.ClaimLimit, cfg.ClaimWindow)
	}

	var verifier *utils.TokenVerifier
	if cfg.HankoJWKSURL != "" {
		v, err := utils.NewJWKSVerifier(ctx, cfg.HankoJWKSURL, cfg.AuthAudience, utils.HTTPClient, log)
		if err != nil {
			return handlers.Services{}, nil, err
		}
		verifier = v
	} else {
		log.Warn("HANKO_JWKS_URL is not set, verifying session tokens with AUTH_HMAC_SECRET")
		verifier = utils.NewHMACVerifier(cfg.AuthHMACSecret, cfg.AuthAudience)
	}

	users := services.NewUserService(db, log)
	engine := services.NewTradeEngine(repositories.NewTradeRepository(db), log)
	svc := handlers.Services{
		Trades:   engine,
		Users:    users,
		Badges:   services.NewBadgeService(db, users, images, limiter, log),
		Boards:   services.NewBoardService(db, log),
		Verifier: verifier,
	}
	return svc, workers.NewTradeSweeper(engine, cfg.SweepInterval, log), nil
}

func newApp(cfg *config.Config, svc handlers.Services, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.AccessLog(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupRoutes(app, svc, cfg.MetricsToken, log)
	return app
}
