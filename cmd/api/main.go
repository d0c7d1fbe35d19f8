package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/config"
	"github.com/noah-isme/counseling-api/internal/database"
	"github.com/noah-isme/counseling-api/internal/handler"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/repository"
	"github.com/noah-isme/counseling-api/internal/router"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/pkg/mailer"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Redis and NATS are optional: stats go uncached and events are skipped without them.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache and pub/sub")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, continuing without event bus")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	transport := newMailer(cfg, logger)

	validate := service.NewValidator()
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)

	studentRepo := repository.NewStudentRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	deliveryRepo := repository.NewEmailDeliveryRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(studentRepo, adminRepo, tokens, hasher, validate, activityService, logger)
	studentService := service.NewStudentService(studentRepo, hasher, validate, activityService, logger)
	notificationService := service.NewNotificationService(appointmentRepo, studentRepo, deliveryRepo, transport, cfg.AppName, validate, logger)
	liveFeed := service.NewLiveFeed(redisClient, cfg.EventsChannel, logger)
	events := service.NewEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger, liveFeed)
	appointmentService := service.NewAppointmentService(appointmentRepo, studentRepo, adminRepo, validate, activityService, events, notificationService, cfg.EmailTimeout, logger)
	statsService := service.NewStatsService(statsRepo, redisClient, cfg.StatsCacheTTL, logger)

	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := authService.BootstrapAdmin(bootstrapCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	cancelBootstrap()
	if err != nil {
		logger.Error().Err(err).Msg("failed to bootstrap default admin")
	} else if created {
		logger.Info().Msg("default admin account created")
	}

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	liveFeed.Start(feedCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: handler.ErrorHandler(logger, cfg.IsProduction()),
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowedOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(authService, logger),
		StudentHandler:       handler.NewStudentHandler(studentService, logger),
		AppointmentHandler:   handler.NewAppointmentHandler(appointmentService, logger),
		StatsHandler:         handler.NewStatsHandler(statsService, logger),
		EmailHandler:         handler.NewEmailHandler(notificationService, logger),
		ActivityHandler:      handler.NewActivityHandler(activityService, logger),
		LiveFeedHandler:      handler.NewLiveFeedHandler(liveFeed, logger),
		Authenticate:         middleware.Authenticate(authService, logger),
		OptionalAuthenticate: middleware.OptionalAuthenticate(authService, logger),
		LoginLimiter:         middleware.RateLimit("auth", cfg.LoginRateLimit, cfg.LoginRateInterval),
		HealthProbes:         healthProbes(db, redisClient),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func newMailer(cfg config.Config, logger zerolog.Logger) mailer.Mailer {
	if !cfg.SMTP.Enabled() {
		logger.Warn().Msg("smtp host not configured, emails will only be logged")
		return mailer.NewLog(logger)
	}

	transport, err := mailer.NewSMTP(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		Secure:   cfg.SMTP.Secure,
		Timeout:  cfg.EmailTimeout,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("invalid smtp configuration, falling back to log transport")
		return mailer.NewLog(logger)
	}
	return transport
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
