package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"
	recoverware "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	directory "github.com/campuskit/directory"
	"github.com/campuskit/directory/middleware/guard"
	"github.com/campuskit/directory/social"
	"github.com/campuskit/directory/social/providers/google"
)

func main() {
	// Missing .env is fine, the environment may be populated by the runtime.
	_ = godotenv.Load()

	zlog, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer zlog.Sync()

	if err := run(zlog); err != nil {
		zlog.Fatal("directoryd exited", zap.Error(err))
	}
}

func run(zlog *zap.Logger) error {
	cfg, err := directory.LoadConfig()
	if err != nil {
		return err
	}

	logger := directory.NewZapLogger(zlog)

	db, err := directory.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := directory.InitSchema(ctx, db); err != nil {
		return err
	}

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return err
	}

	if cfg.FederatedDefaultPassword == "" {
		logger.Info("federated accounts will be provisioned with random passwords (OAuth only)")
	} else {
		logger.Warn("federated accounts will be provisioned with the configured shared default password")
	}

	users := directory.NewUsersRepository(db, node)
	hasher := directory.NewHasher(cfg.BcryptCost)
	tokens := directory.NewTokenService(cfg, logger)

	auth := directory.NewAuthenticator(users, tokens, hasher, logger)
	refresher := directory.NewRefresher(users, tokens, logger)
	provisioner := directory.NewProvisioner(users, tokens, hasher, cfg, logger)

	if _, err := directory.SeedAdmin(ctx, users, hasher, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	state := social.NewStateManager([]byte(cfg.OAuthStateSecret), cfg.OAuthStateTTL)

	providers := []social.Provider{}
	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(google.Config{
			ClientID:      cfg.GoogleClientID,
			ClientSecret:  cfg.GoogleClientSecret,
			CallbackURL:   cfg.GoogleCallbackURL,
			VerifyIDToken: true,
		}))
	}

	authController := directory.NewAuthController(auth, refresher, provisioner, users, state, cfg, logger, providers...)
	usersController := directory.NewUsersController(users, hasher, logger)

	app := fiber.New(fiber.Config{
		AppName:      "directoryd",
		ErrorHandler: directory.RespondError,
	})

	app.Use(recoverware.New())
	app.Use(requestid.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return directory.RespondData(c, http.StatusOK, fiber.Map{"status": "ok"})
	})

	app.Post("/auth/login", authController.Login)
	app.Post("/auth/refresh", authController.Refresh)

	access := guard.New(guard.Config{
		Tokens: tokens,
		Users:  users,
		Logger: logger,
	})

	app.Get("/auth/me", access, authController.Me)
	app.Get("/auth/:provider", authController.Begin)
	app.Get("/auth/:provider/callback", authController.Callback)

	usersGroup := app.Group("/users", access)
	usersGroup.Get("/", usersController.List)
	usersGroup.Get("/:id", usersController.Get)

	manage := guard.RequireRoles(directory.RoleAdmin, directory.RolePresident)
	usersGroup.Post("/", manage, usersController.Create)
	usersGroup.Patch("/:id", manage, usersController.Update)
	usersGroup.Delete("/:id", manage, usersController.Delete)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("directoryd listening", "addr", cfg.ServerAddr)
		errCh <- app.Listen(cfg.ServerAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("directoryd shutting down", "signal", sig.String())
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}
