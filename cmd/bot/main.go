package main

import (
	"os"
	"os/signal"
	"syscall"

	"attendance_line_bot/internal/app"
	"attendance_line_bot/internal/domain/lesson"
	"attendance_line_bot/internal/infra/config"
	idb "attendance_line_bot/internal/infra/database"
	iline "attendance_line_bot/internal/infra/line"
	"attendance_line_bot/internal/infra/logger"
	"attendance_line_bot/internal/infra/scheduler"

	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	log := logger.Get()
	log.WithFields(map[string]interface{}{
		"logLevel":    cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	guardianRepo := idb.NewPostgresGuardianRepository(db)
	studentRepo := idb.NewPostgresStudentRepository(db)
	attendanceRepo := idb.NewPostgresAttendanceRepository(db)
	messageRepo := idb.NewPostgresMessageRepository(db)
	sessionRepo := idb.NewPostgresSessionRepository(db, cfg.SessionTTL)
	log.Info("Repositories initialized.")

	// Lesson calendar and LINE client
	calendar := lesson.NewCalendar(cfg.LessonWeekdays...)
	lineClient := iline.NewRestyClient(cfg.LineChannelAccessToken)

	// Flow engine
	flowService := app.NewFlowService(
		guardianRepo, studentRepo, attendanceRepo, messageRepo, sessionRepo,
		calendar, lineClient, log,
	)
	log.Info("Flow service initialized.")

	// Lesson-day reminder scheduler
	var reminderScheduler *scheduler.ReminderScheduler
	if cfg.ReminderEnabled {
		reminderService := app.NewReminderServiceImpl(
			guardianRepo, studentRepo, attendanceRepo, calendar, lineClient, log,
		)
		reminderScheduler = scheduler.NewReminderScheduler(reminderService, log, cfg.CronSpecReminder)
		reminderScheduler.Start()
	} else {
		log.Info("Lesson-day reminders disabled by configuration.")
	}

	// Webhook server
	server := fiber.New(fiber.Config{DisableStartupMessage: true})
	webhook := iline.NewWebhookHandler(flowService, lineClient, cfg.LineChannelSecret, log)
	webhook.Register(server)

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Webhook server listening")
		if err := server.Listen(cfg.HTTPAddr); err != nil {
			log.WithError(err).Fatal("Webhook server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	if reminderScheduler != nil {
		reminderScheduler.Stop()
	}
	if err := server.Shutdown(); err != nil {
		log.WithError(err).Error("Error during webhook server shutdown")
	}
	log.Info("Application shut down gracefully.")
}
