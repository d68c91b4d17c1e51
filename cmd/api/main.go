package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/klasse-app/klasse-api/internal/config"
	"github.com/klasse-app/klasse-api/internal/database"
	"github.com/klasse-app/klasse-api/internal/handler"
	"github.com/klasse-app/klasse-api/internal/middleware"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
	"github.com/klasse-app/klasse-api/internal/router"
	"github.com/klasse-app/klasse-api/internal/service"
	"github.com/klasse-app/klasse-api/pkg/attachment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.ClassTeacher{},
		&models.Unit{},
		&models.Assignment{},
		&models.Enrollment{},
		&models.Submission{},
		&models.Grade{},
		&models.Notification{},
		&models.Comment{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var attachments *attachment.Store
	if cfg.CloudinaryCloudName != "" {
		attachments, err = attachment.New(attachment.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create attachment store: %v", err)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	classRepo := repository.NewClassRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, "klasse", natsConn, logger)
	classService := service.NewClassService(classRepo, validate, activityService, logger)
	unitService := service.NewUnitService(unitRepo, classRepo, validate, logger)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, classRepo, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, classRepo, enrollmentRepo, validate, notificationService, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, enrollmentRepo, classRepo, validate, notificationService, logger)
	gradingService := service.NewGradingService(gradeRepo, submissionRepo, classRepo, validate, notificationService, activityService, logger)
	reportService := service.NewReportService(assignmentRepo, enrollmentRepo, submissionRepo, classRepo, redisClient, cfg.ReportCacheTTL, logger)
	commentService := service.NewCommentService(commentRepo, submissionRepo, classRepo, validate, notificationService, logger)
	userService := service.NewUserService(userRepo, validate, logger)

	runCtx, stopFanOut := context.WithCancel(context.Background())
	defer stopFanOut()
	notificationService.Start(runCtx)

	var attachmentStore handler.AttachmentStore
	if attachments != nil {
		attachmentStore = attachments
	}

	deps := router.Dependencies{
		ClassHandler:        handler.NewClassHandler(classService, unitService, logger),
		UnitHandler:         handler.NewUnitHandler(unitService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		EnrollmentHandler:   handler.NewEnrollmentHandler(enrollmentService, logger),
		GradingHandler:      handler.NewGradingHandler(gradingService, logger),
		ReportHandler:       handler.NewReportHandler(reportService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 30*time.Second),
		CommentHandler:      handler.NewCommentHandler(commentService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	}
	deps.SubmissionHandler = handler.NewSubmissionHandler(submissionService, attachmentStore, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
