package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"attendance_line_bot/internal/domain/flow"
	"attendance_line_bot/internal/domain/guardian"
	"attendance_line_bot/internal/domain/line"
	idb "attendance_line_bot/internal/infra/database"
)

// startRegistration forces the session into the registration dialog. The
// action the user was attempting (a menu command or a one-shot attendance
// command) is preserved as the resume flow and re-entered once registration
// completes.
func (s *FlowService) startRegistration(ctx context.Context, sess *flow.Session, ev line.Event) ([]line.Message, error) {
	var resume flow.Flow
	if target, ok := menuTarget(ev); ok && (target == flow.FlowAttendance || target == flow.FlowStatus) {
		resume = target
	} else if ev.Kind == line.EventText {
		if _, ok := parseAttendanceCommand(ev.Text); ok {
			resume = flow.FlowAttendance
		}
	}

	sess.Flow = flow.FlowRegistration
	sess.Step = flow.RegistrationAskGuardianName
	sess.Data = flow.Data{ResumeFlow: resume}
	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session entering registration: %w", err)
	}
	return []line.Message{{Text: textWelcome}}, nil
}

func (s *FlowService) handleRegistration(ctx context.Context, sess *flow.Session, ev line.Event) ([]line.Message, error) {
	if sess.Step != flow.RegistrationAskGuardianName {
		return s.handleChildSteps(ctx, sess, ev, flow.FlowRegistration)
	}

	if ev.Kind != line.EventText || isBlank(ev.Text) {
		return []line.Message{{Text: textAskGuardianRetry}}, nil
	}
	name := strings.TrimSpace(ev.Text)

	// Find-or-create keyed by the LINE user id; a follow event may already
	// have created the record with the profile name.
	g, err := s.guardianRepo.GetByLineUserID(ctx, ev.SourceUserID)
	if err != nil {
		if err != idb.ErrGuardianNotFound {
			return nil, fmt.Errorf("failed to look up guardian during registration: %w", err)
		}
		g = &guardian.Guardian{
			Name:       name,
			LineUserID: sql.NullString{String: ev.SourceUserID, Valid: true},
		}
		if createErr := s.guardianRepo.Create(ctx, g); createErr != nil {
			if createErr != idb.ErrDuplicateLineUserID {
				return nil, fmt.Errorf("failed to create guardian during registration: %w", createErr)
			}
			if g, err = s.guardianRepo.GetByLineUserID(ctx, ev.SourceUserID); err != nil {
				return nil, fmt.Errorf("failed to load guardian after duplicate insert: %w", err)
			}
		}
	}
	if g.Name != name {
		if err := s.guardianRepo.Rename(ctx, g.ID, name); err != nil {
			return nil, fmt.Errorf("failed to rename guardian during registration: %w", err)
		}
	}

	sess.GuardianID = g.ID
	sess.Step = flow.RegistrationAskChildName
	sess.Data.Registration = &flow.ChildDraft{}
	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session after guardian name: %w", err)
	}
	return []line.Message{{Text: textAskChildName}}, nil
}
