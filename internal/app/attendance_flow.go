package app

import (
	"context"
	"fmt"
	"strings"

	"attendance_line_bot/internal/domain/attendance"
	"attendance_line_bot/internal/domain/flow"
	"attendance_line_bot/internal/domain/line"
	"attendance_line_bot/internal/domain/message"
	"attendance_line_bot/internal/domain/student"
)

// startAttendance enters the attendance dialog. A guardian without any
// registered child is first diverted into settings; attendance resumes once
// a child exists.
func (s *FlowService) startAttendance(ctx context.Context, sess *flow.Session) ([]line.Message, error) {
	students, err := s.studentRepo.ListByGuardian(ctx, sess.GuardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	if len(students) == 0 {
		return s.divertToSettings(ctx, sess, flow.FlowAttendance)
	}

	sess.Flow = flow.FlowAttendance
	sess.Step = flow.AttendanceChooseStudent
	sess.Data = flow.Data{Attendance: &flow.AttendanceDraft{}}
	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session entering attendance: %w", err)
	}
	return []line.Message{{
		Text:         textChooseStudent,
		QuickOptions: studentOptions(flow.FlowAttendance, students),
	}}, nil
}

func (s *FlowService) handleAttendance(ctx context.Context, sess *flow.Session, ev line.Event) ([]line.Message, error) {
	if sess.Data.Attendance == nil {
		sess.Data.Attendance = &flow.AttendanceDraft{}
	}
	draft := sess.Data.Attendance

	switch sess.Step {
	case flow.AttendanceChooseStudent:
		students, err := s.studentRepo.ListByGuardian(ctx, sess.GuardianID)
		if err != nil {
			return nil, fmt.Errorf("failed to list children: %w", err)
		}
		chosen := chooseStudent(ev, flow.FlowAttendance, students)
		if chosen == nil {
			return []line.Message{{
				Text:         textChooseStudent,
				QuickOptions: studentOptions(flow.FlowAttendance, students),
			}}, nil
		}
		draft.StudentID = chosen.ID
		draft.StudentName = chosen.Name
		sess.Step = flow.AttendanceChooseDate
		if err := s.sessionRepo.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session after student choice: %w", err)
		}
		return []line.Message{{
			Text:         textChooseDate,
			QuickOptions: dateOptions(s.calendar.NextLessonDates(3, s.now())),
		}}, nil

	case flow.AttendanceChooseDate:
		date, ok := eventDate(ev, string(flow.FlowAttendance), "date")
		if !ok {
			return []line.Message{{
				Text:         textChooseDateRetry,
				QuickOptions: dateOptions(s.calendar.NextLessonDates(3, s.now())),
			}}, nil
		}
		draft.RequestedFor = date.Format("2006-01-02")
		sess.Step = flow.AttendanceChooseStatus
		if err := s.sessionRepo.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session after date choice: %w", err)
		}
		return []line.Message{{
			Text:         textChooseStatus,
			QuickOptions: statusOptions(),
		}}, nil

	case flow.AttendanceChooseStatus:
		st, ok := statusAnswer(ev)
		if !ok {
			// Unrecognized input leaves flow/step untouched; the same
			// question is asked again.
			return []line.Message{{
				Text:         textChooseStatusRetry,
				QuickOptions: statusOptions(),
			}}, nil
		}
		draft.Status = string(st)
		sess.Step = flow.AttendanceAskComment
		if err := s.sessionRepo.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session after status choice: %w", err)
		}
		return []line.Message{{
			Text:         textAskComment,
			QuickOptions: commentOptions(),
		}}, nil

	case flow.AttendanceAskComment:
		comment, fromText, ok := commentAnswer(ev)
		if !ok {
			return []line.Message{{
				Text:         textAskComment,
				QuickOptions: commentOptions(),
			}}, nil
		}
		return s.finalizeAttendance(ctx, sess, draft, comment, fromText, ev.Text)
	}

	return s.resetWithApology(ctx, sess)
}

// finalizeAttendance commits the accumulated draft. A draft missing required
// fields means the session record was corrupted somewhere; that resets the
// dialog instead of failing.
func (s *FlowService) finalizeAttendance(ctx context.Context, sess *flow.Session, draft *flow.AttendanceDraft, comment string, fromText bool, rawText string) ([]line.Message, error) {
	if draft.StudentID == "" || draft.RequestedFor == "" || draft.Status == "" || sess.GuardianID == "" {
		return s.resetWithApology(ctx, sess)
	}
	date, ok := parseDateString(draft.RequestedFor)
	if !ok {
		return s.resetWithApology(ctx, sess)
	}
	status := attendance.Status(draft.Status)

	if err := s.attendanceRepo.Upsert(ctx, sess.GuardianID, draft.StudentID, date, status, comment); err != nil {
		return nil, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	if fromText {
		s.recordMessage(ctx, sess.GuardianID, draft.StudentID, message.DirectionInbound, strings.TrimSpace(rawText))
	}

	confirmation := fmt.Sprintf("出欠を登録しました: %s %s %s", draft.StudentName, draft.RequestedFor, status.Label())
	if comment != "" {
		confirmation += fmt.Sprintf("\n連絡事項: %s", comment)
	}
	s.recordMessage(ctx, sess.GuardianID, draft.StudentID, message.DirectionOutbound, confirmation)

	if err := s.sessionRepo.Reset(ctx, sess.LineUserID, sess.GuardianID); err != nil {
		return nil, fmt.Errorf("failed to reset session after attendance: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"guardianId":   sess.GuardianID,
		"studentId":    draft.StudentID,
		"requestedFor": draft.RequestedFor,
		"status":       draft.Status,
	}).Info("attendance recorded via dialog")

	return []line.Message{{Text: confirmation}}, nil
}

// chooseStudent matches a student option by button id or exact typed name.
func chooseStudent(ev line.Event, f flow.Flow, students []*student.Student) *student.Student {
	switch ev.Kind {
	case line.EventPostback:
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Flow != string(f) || p.Key != "student" {
			return nil
		}
		for _, st := range students {
			if st.ID == p.Value {
				return st
			}
		}
	case line.EventText:
		name := strings.TrimSpace(ev.Text)
		for _, st := range students {
			if st.Name == name {
				return st
			}
		}
	}
	return nil
}

func statusAnswer(ev line.Event) (attendance.Status, bool) {
	switch ev.Kind {
	case line.EventPostback:
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Flow != string(flow.FlowAttendance) || p.Key != "status" {
			return "", false
		}
		return attendance.ParseStatus(p.Value)
	case line.EventText:
		return attendance.ParseStatus(strings.TrimSpace(ev.Text))
	}
	return "", false
}

// commentAnswer returns the reason text ("" for none), whether it arrived as
// free text, and whether the event was usable at all. The typed word なし
// means no reason, same as the button.
func commentAnswer(ev line.Event) (string, bool, bool) {
	switch ev.Kind {
	case line.EventPostback:
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Flow != string(flow.FlowAttendance) || p.Key != "comment" {
			return "", false, false
		}
		return "", false, true
	case line.EventText:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return "", false, false
		}
		if text == btnNone {
			return "", true, true
		}
		return text, true, true
	}
	return "", false, false
}
