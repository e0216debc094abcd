package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"attendance_line_bot/internal/domain/flow"
	"attendance_line_bot/internal/domain/line"
	"attendance_line_bot/internal/domain/student"
)

// The child-adding steps (ask_child_name → ask_child_grade →
// ask_more_children) are shared verbatim between the tail of registration
// and the settings dialog; only the flow prefix on buttons and the draft
// slot in the session differ.

func childDraft(sess *flow.Session, f flow.Flow) *flow.ChildDraft {
	switch f {
	case flow.FlowRegistration:
		if sess.Data.Registration == nil {
			sess.Data.Registration = &flow.ChildDraft{}
		}
		return sess.Data.Registration
	case flow.FlowSettings:
		if sess.Data.Settings == nil {
			sess.Data.Settings = &flow.ChildDraft{}
		}
		return sess.Data.Settings
	}
	return &flow.ChildDraft{}
}

// startSettings enters the add-a-child dialog directly, keeping whatever
// resume flow the caller has already recorded on the session data.
func (s *FlowService) startSettings(ctx context.Context, sess *flow.Session) ([]line.Message, error) {
	resume := sess.Data.ResumeFlow
	if sess.Flow != flow.FlowSettings {
		resume = "" // an explicit menu start is not a side-trip
	}
	sess.Flow = flow.FlowSettings
	sess.Step = flow.SettingsAskChildName
	sess.Data = flow.Data{Settings: &flow.ChildDraft{}, ResumeFlow: resume}
	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session entering settings: %w", err)
	}
	return []line.Message{{Text: textAskChildName}}, nil
}

// divertToSettings interrupts the given flow because the guardian has no
// registered children yet; the interrupted flow is resumed on completion.
func (s *FlowService) divertToSettings(ctx context.Context, sess *flow.Session, resume flow.Flow) ([]line.Message, error) {
	sess.Flow = flow.FlowSettings
	sess.Step = flow.SettingsAskChildName
	sess.Data = flow.Data{Settings: &flow.ChildDraft{}, ResumeFlow: resume}
	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session diverting to settings: %w", err)
	}
	return []line.Message{
		{Text: textNoChildren},
		{Text: textAskChildName},
	}, nil
}

func (s *FlowService) handleChildSteps(ctx context.Context, sess *flow.Session, ev line.Event, f flow.Flow) ([]line.Message, error) {
	draft := childDraft(sess, f)

	switch sess.Step {
	case flow.RegistrationAskChildName: // same value as SettingsAskChildName
		if ev.Kind != line.EventText || isBlank(ev.Text) {
			return []line.Message{{Text: textAskChildNameRetry}}, nil
		}
		draft.PendingName = strings.TrimSpace(ev.Text)
		sess.Step = flow.RegistrationAskChildGrade
		if err := s.sessionRepo.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session after child name: %w", err)
		}
		return []line.Message{{
			Text:         askChildGradeText(draft.PendingName),
			QuickOptions: gradeOptions(f),
		}}, nil

	case flow.RegistrationAskChildGrade:
		grade, ok := gradeAnswer(ev, f)
		if !ok {
			return []line.Message{{
				Text:         askChildGradeText(draft.PendingName),
				QuickOptions: gradeOptions(f),
			}}, nil
		}
		if sess.GuardianID == "" || draft.PendingName == "" {
			return s.resetWithApology(ctx, sess)
		}

		st := &student.Student{Name: draft.PendingName}
		if grade != "" {
			st.Grade = sql.NullString{String: grade, Valid: true}
		}
		if err := s.studentRepo.Create(ctx, sess.GuardianID, st); err != nil {
			return nil, fmt.Errorf("failed to create student: %w", err)
		}
		s.logger.WithFields(map[string]interface{}{
			"guardianId": sess.GuardianID,
			"studentId":  st.ID,
		}).Info("registered a child")

		draft.PendingName = ""
		sess.Step = flow.RegistrationAskMoreChildren
		if err := s.sessionRepo.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to save session after child grade: %w", err)
		}
		return []line.Message{{
			Text:         textAskMoreChildren,
			QuickOptions: yesNoOptions(f),
		}}, nil

	case flow.RegistrationAskMoreChildren:
		answer, ok := yesNoAnswer(ev, f)
		if !ok {
			return []line.Message{{
				Text:         textAskMoreChildren,
				QuickOptions: yesNoOptions(f),
			}}, nil
		}
		if answer {
			sess.Step = flow.RegistrationAskChildName
			if err := s.sessionRepo.Save(ctx, sess); err != nil {
				return nil, fmt.Errorf("failed to save session looping to child name: %w", err)
			}
			return []line.Message{{Text: textAskChildName}}, nil
		}
		return s.finishChildFlow(ctx, sess)
	}

	return s.resetWithApology(ctx, sess)
}

// finishChildFlow ends registration/settings: the session resets to idle,
// and a recorded resume flow is entered immediately with the now-existing
// guardian and children.
func (s *FlowService) finishChildFlow(ctx context.Context, sess *flow.Session) ([]line.Message, error) {
	resume := sess.Data.ResumeFlow
	if err := s.sessionRepo.Reset(ctx, sess.LineUserID, sess.GuardianID); err != nil {
		return nil, fmt.Errorf("failed to reset session after child flow: %w", err)
	}

	fresh := flow.NewIdle(sess.LineUserID, sess.GuardianID)
	switch resume {
	case flow.FlowAttendance:
		return s.startAttendance(ctx, fresh)
	case flow.FlowStatus:
		return s.startStatus(ctx, fresh)
	}
	return []line.Message{menuMessage(textRegistrationDone)}, nil
}

func gradeAnswer(ev line.Event, f flow.Flow) (string, bool) {
	var value string
	switch ev.Kind {
	case line.EventPostback:
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Flow != string(f) || p.Key != "grade" {
			return "", false
		}
		value = p.Value
	case line.EventText:
		if isBlank(ev.Text) {
			return "", false
		}
		value = strings.TrimSpace(ev.Text)
	default:
		return "", false
	}
	if value == "skip" || value == btnSkip {
		return "", true
	}
	return value, true
}

func yesNoAnswer(ev line.Event, f flow.Flow) (bool, bool) {
	var value string
	switch ev.Kind {
	case line.EventPostback:
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Flow != string(f) || p.Key != "more" {
			return false, false
		}
		value = p.Value
	case line.EventText:
		value = strings.TrimSpace(ev.Text)
	default:
		return false, false
	}
	switch strings.ToLower(value) {
	case "yes", btnYes:
		return true, true
	case "no", btnNo:
		return false, true
	}
	return false, false
}
