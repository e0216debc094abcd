package scheduler

import (
	"context"
	"time"

	"attendance_line_bot/internal/app" // For ReminderService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler drives the lesson-day reminder job. The job runs daily;
// the service itself decides whether today is a lesson day.
type ReminderScheduler struct {
	cronEngine       *cron.Cron
	reminderService  app.ReminderService
	logger           *logrus.Logger
	cronSpecReminder string
}

func NewReminderScheduler(
	reminderService app.ReminderService,
	logger *logrus.Logger,
	cronSpecReminder string, // e.g., "0 9 * * *" (9 AM daily)
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine:       cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		reminderService:  reminderService,
		logger:           logger,
		cronSpecReminder: cronSpecReminder,
	}
}

func (s *ReminderScheduler) Start() {
	s.logger.Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecReminder, func() {
		s.logger.Info("Cron job triggered for lesson-day reminders.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.reminderService.SendLessonDayReminders(ctx); err != nil {
			s.logger.WithError(err).Error("Error during lesson-day reminder processing")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add lesson-day reminder cron job")
	}

	s.cronEngine.Start()
	s.logger.Info("Reminder scheduler started.")
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops new runs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
