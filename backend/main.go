package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"studynotion/backend/config"
	"studynotion/backend/mail"
	"studynotion/backend/middleware"
	"studynotion/backend/payment"
	"studynotion/backend/repository"
	"studynotion/backend/routes"
	"studynotion/backend/storage"
	"studynotion/backend/utils"
)

// uploads carry lecture videos
const bodyLimit = 512 << 20

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	})

	// Initialize database
	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Error migrating database")
	}

	var uploader storage.Uploader = storage.DisabledUploader{}
	ossUploader, err := storage.NewOSSUploader(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey, cfg.OSSBucket, cfg.OutboundTimeout)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Warn().Msg("object storage is not configured, uploads are disabled")
	case err != nil:
		logger.Fatal().Err(err).Msg("Error initializing object storage")
	default:
		uploader = ossUploader
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          utils.FiberErrorHandler,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		IdleTimeout:           90 * time.Second,
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.CORSOrigins != "*",
	}))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Store:    repository.NewGormStore(db),
		Gateway:  payment.NewRazorpayGateway(cfg.RazorpayKey, cfg.RazorpaySecret, cfg.OutboundTimeout),
		Mailer:   mail.NewSMTPSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.OutboundTimeout),
		Uploader: uploader,
		Logger:   logger,
	})

	// Start server
	go func() {
		logger.Info().Str("port", cfg.ServerPort).Msg("server listening")
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	if err := utils.CloseDB(db); err != nil {
		logger.Error().Err(err).Msg("closing database")
	}
	logger.Info().Msg("server stopped")
}
