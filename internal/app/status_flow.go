package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendance_line_bot/internal/domain/flow"
	"attendance_line_bot/internal/domain/lesson"
	"attendance_line_bot/internal/domain/line"
)

// startStatus enters the read-only attendance lookup dialog, with the same
// empty-child-list diversion as the attendance flow.
func (s *FlowService) startStatus(ctx context.Context, sess *flow.Session) ([]line.Message, error) {
	students, err := s.studentRepo.ListByGuardian(ctx, sess.GuardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	if len(students) == 0 {
		return s.divertToSettings(ctx, sess, flow.FlowStatus)
	}

	sess.Flow = flow.FlowStatus
	sess.Step = flow.StatusChooseStudent
	sess.Data = flow.Data{Status: &flow.StatusDraft{}}
	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session entering status lookup: %w", err)
	}
	return []line.Message{{
		Text:         textStatusChooseStudent,
		QuickOptions: studentOptions(flow.FlowStatus, students),
	}}, nil
}

func (s *FlowService) handleStatus(ctx context.Context, sess *flow.Session, ev line.Event) ([]line.Message, error) {
	if sess.Data.Status == nil {
		sess.Data.Status = &flow.StatusDraft{}
	}
	draft := sess.Data.Status

	switch sess.Step {
	case flow.StatusChooseStudent:
		students, err := s.studentRepo.ListByGuardian(ctx, sess.GuardianID)
		if err != nil {
			return nil, fmt.Errorf("failed to list children: %w", err)
		}
		chosen := chooseStudent(ev, flow.FlowStatus, students)
		if chosen == nil {
			return []line.Message{{
				Text:         textStatusChooseStudent,
				QuickOptions: studentOptions(flow.FlowStatus, students),
			}}, nil
		}
		draft.StudentID = chosen.ID
		draft.StudentName = chosen.Name
		sess.Step = flow.StatusChooseRange
		if err := s.sessionRepo.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session after student choice: %w", err)
		}
		return []line.Message{{
			Text:         textChooseRange,
			QuickOptions: rangeOptions(),
		}}, nil

	case flow.StatusChooseRange:
		if draft.StudentID == "" || sess.GuardianID == "" {
			return s.resetWithApology(ctx, sess)
		}
		dates, ok := s.rangeAnswer(ev)
		if !ok {
			return []line.Message{{
				Text:         textChooseRangeRetry,
				QuickOptions: rangeOptions(),
			}}, nil
		}
		return s.renderStatusSummary(ctx, sess, draft, dates)
	}

	return s.resetWithApology(ctx, sess)
}

// rangeAnswer resolves the chosen range into a concrete ascending date
// sequence.
func (s *FlowService) rangeAnswer(ev line.Event) ([]time.Time, bool) {
	resolve := func(value string) ([]time.Time, bool) {
		switch value {
		case "next3", "直近3回":
			return s.calendar.NextLessonDates(3, s.now()), true
		case "month", "今月":
			first, last := lesson.MonthRange(s.now())
			return s.calendar.LessonDatesInRange(first, last), true
		}
		if date, ok := parseDateString(value); ok {
			return []time.Time{date}, true
		}
		return nil, false
	}

	switch ev.Kind {
	case line.EventPostback:
		if ev.PickedDate != "" {
			if date, ok := parseDateString(ev.PickedDate); ok {
				return []time.Time{date}, true
			}
			return nil, false
		}
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Flow != string(flow.FlowStatus) || p.Key != "range" {
			return nil, false
		}
		return resolve(p.Value)
	case line.EventText:
		return resolve(strings.TrimSpace(ev.Text))
	}
	return nil, false
}

func (s *FlowService) renderStatusSummary(ctx context.Context, sess *flow.Session, draft *flow.StatusDraft, dates []time.Time) ([]line.Message, error) {
	if len(dates) == 0 {
		if err := s.sessionRepo.Reset(ctx, sess.LineUserID, sess.GuardianID); err != nil {
			return nil, fmt.Errorf("failed to reset session after status lookup: %w", err)
		}
		return []line.Message{{Text: "対象のレッスン日がありません。"}}, nil
	}

	records, err := s.attendanceRepo.RecordsFor(ctx, sess.GuardianID, draft.StudentID, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sさんの出欠状況\n", draft.StudentName)
	for _, d := range dates {
		key := d.Format("2006-01-02")
		rec, found := records[key]
		row := fmt.Sprintf("%s: %s", formatDateJP(d), textUnanswered)
		if found {
			row = fmt.Sprintf("%s: %s", formatDateJP(d), rec.Status.Label())
			if rec.Reason != "" {
				row += fmt.Sprintf(" (%s)", rec.Reason)
			}
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	if err := s.sessionRepo.Reset(ctx, sess.LineUserID, sess.GuardianID); err != nil {
		return nil, fmt.Errorf("failed to reset session after status lookup: %w", err)
	}
	return []line.Message{{Text: strings.TrimRight(b.String(), "\n")}}, nil
}
