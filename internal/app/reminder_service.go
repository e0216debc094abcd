package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendance_line_bot/internal/domain/attendance"
	"attendance_line_bot/internal/domain/guardian"
	"attendance_line_bot/internal/domain/lesson"
	"attendance_line_bot/internal/domain/line"
	"attendance_line_bot/internal/domain/student"

	"github.com/sirupsen/logrus"
)

// ReminderService defines the scheduled jobs the cron scheduler drives.
type ReminderService interface {
	// SendLessonDayReminders pushes one reminder to every guardian who has
	// at least one child without an attendance answer for today. Does
	// nothing when today is not a lesson day.
	SendLessonDayReminders(ctx context.Context) error
}

// ReminderServiceImpl implements the ReminderService interface.
type ReminderServiceImpl struct {
	guardianRepo   guardian.Repository
	studentRepo    student.Repository
	attendanceRepo attendance.Repository
	calendar       *lesson.Calendar
	lineClient     line.Client
	logger         *logrus.Logger
	now            func() time.Time
}

func NewReminderServiceImpl(
	gr guardian.Repository,
	sr student.Repository,
	ar attendance.Repository,
	cal *lesson.Calendar,
	lc line.Client,
	logger *logrus.Logger,
) *ReminderServiceImpl {
	return &ReminderServiceImpl{
		guardianRepo:   gr,
		studentRepo:    sr,
		attendanceRepo: ar,
		calendar:       cal,
		lineClient:     lc,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *ReminderServiceImpl) SendLessonDayReminders(ctx context.Context) error {
	today := lesson.Truncate(s.now())
	if !s.calendar.IsLessonDay(today) {
		s.logger.Debug("not a lesson day, skipping attendance reminders")
		return nil
	}

	guardians, err := s.guardianRepo.ListWithLineUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to list guardians for reminders: %w", err)
	}

	sent := 0
	for _, g := range guardians {
		// A failure for one guardian never stops the sweep.
		if err := s.remindGuardian(ctx, g, today); err != nil {
			s.logger.WithError(err).WithField("guardianId", g.ID).Error("failed to send lesson-day reminder")
			continue
		}
		sent++
	}
	s.logger.WithField("count", sent).Info("lesson-day reminder sweep finished")
	return nil
}

func (s *ReminderServiceImpl) remindGuardian(ctx context.Context, g *guardian.Guardian, today time.Time) error {
	students, err := s.studentRepo.ListByGuardian(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}

	var unanswered []string
	for _, st := range students {
		records, err := s.attendanceRepo.RecordsFor(ctx, g.ID, st.ID, today, today)
		if err != nil {
			return fmt.Errorf("failed to check attendance for student %s: %w", st.ID, err)
		}
		if _, ok := records[today.Format("2006-01-02")]; !ok {
			unanswered = append(unanswered, st.Name)
		}
	}
	if len(unanswered) == 0 || !g.LineUserID.Valid {
		return nil
	}

	text := fmt.Sprintf("本日はレッスン日です。\n%sさんの出欠連絡がまだの場合は、メニューからお願いします。",
		strings.Join(unanswered, "さん、"))
	return s.lineClient.Push(ctx, g.LineUserID.String, []line.Message{menuMessage(text)})
}
