package app

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"attendance_line_bot/internal/domain/flow"
	"attendance_line_bot/internal/domain/guardian"
	"attendance_line_bot/internal/domain/lesson"
	"attendance_line_bot/internal/domain/line"
	"attendance_line_bot/internal/domain/message"

	"attendance_line_bot/internal/domain/attendance"
	"attendance_line_bot/internal/domain/student"
	idb "attendance_line_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// EventHandler processes one normalized inbound event and returns the
// messages to send back on the event's reply channel.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev line.Event) ([]line.Message, error)
}

// FlowService is the conversational flow engine: it interprets one inbound
// event against the user's persisted (flow, step) position, advances the
// state machine, performs the needed domain writes, and returns the outbound
// prompts. Every transition saves the session before the prompts are
// returned, so a failed reply delivery never leaves the stored state behind
// what the user will see next.
type FlowService struct {
	guardianRepo   guardian.Repository
	studentRepo    student.Repository
	attendanceRepo attendance.Repository
	messageRepo    message.Repository
	sessionRepo    flow.Repository
	calendar       *lesson.Calendar
	lineClient     line.Client
	logger         *logrus.Logger
	now            func() time.Time
}

func NewFlowService(
	gr guardian.Repository,
	sr student.Repository,
	ar attendance.Repository,
	mr message.Repository,
	fr flow.Repository,
	cal *lesson.Calendar,
	lc line.Client,
	logger *logrus.Logger,
) *FlowService {
	return &FlowService{
		guardianRepo:   gr,
		studentRepo:    sr,
		attendanceRepo: ar,
		messageRepo:    mr,
		sessionRepo:    fr,
		calendar:       cal,
		lineClient:     lc,
		logger:         logger,
		now:            time.Now,
	}
}

// HandleEvent routes one inbound event to the user's current dialog.
func (s *FlowService) HandleEvent(ctx context.Context, ev line.Event) ([]line.Message, error) {
	if ev.SourceUserID == "" {
		return nil, nil // group/system events carry no user id; nothing to do
	}

	sess, err := s.sessionRepo.Load(ctx, ev.SourceUserID)
	if err != nil {
		if err != idb.ErrSessionNotFound {
			return nil, fmt.Errorf("failed to load flow session: %w", err)
		}
		sess = flow.NewIdle(ev.SourceUserID, "")
	}

	g, err := s.guardianRepo.GetByLineUserID(ctx, ev.SourceUserID)
	if err != nil && err != idb.ErrGuardianNotFound {
		return nil, fmt.Errorf("failed to resolve guardian: %w", err)
	}

	if g == nil {
		// Unknown LINE user: everything lands in registration, whatever
		// the session claims and whatever was typed. The action the user
		// attempted is kept as the resume flow.
		if ev.Kind == line.EventFollow {
			if g, err = s.bootstrapGuardian(ctx, ev.SourceUserID); err != nil {
				return nil, err
			}
			sess.GuardianID = g.ID
		}
		if sess.Flow != flow.FlowRegistration {
			return s.startRegistration(ctx, sess, ev)
		}
		return s.handleRegistration(ctx, sess, ev)
	}
	sess.GuardianID = g.ID

	// Top-level menu commands always restart their flow, discarding any
	// dialog in progress.
	if target, ok := menuTarget(ev); ok {
		switch target {
		case flow.FlowAttendance:
			return s.startAttendance(ctx, sess)
		case flow.FlowStatus:
			return s.startStatus(ctx, sess)
		case flow.FlowSettings:
			return s.startSettings(ctx, sess)
		}
	}

	switch sess.Flow {
	case flow.FlowRegistration:
		return s.handleRegistration(ctx, sess, ev)
	case flow.FlowSettings:
		return s.handleChildSteps(ctx, sess, ev, flow.FlowSettings)
	case flow.FlowAttendance:
		return s.handleAttendance(ctx, sess, ev)
	case flow.FlowStatus:
		return s.handleStatus(ctx, sess, ev)
	}

	return s.handleIdle(ctx, g, ev)
}

// handleIdle deals with events outside any dialog: the one-shot attendance
// command, the follow greeting, and plain chatter.
func (s *FlowService) handleIdle(ctx context.Context, g *guardian.Guardian, ev line.Event) ([]line.Message, error) {
	switch ev.Kind {
	case line.EventFollow:
		return []line.Message{menuMessage(textGreet)}, nil
	case line.EventText:
		if cmd, ok := parseAttendanceCommand(ev.Text); ok {
			return s.handleAttendanceCommand(ctx, g, cmd, ev.Text)
		}
		s.recordMessage(ctx, g.ID, "", message.DirectionInbound, ev.Text)
		return []line.Message{menuMessage(textFallback)}, nil
	}
	// Stray postbacks from stale buttons after a completed dialog.
	return []line.Message{menuMessage(textFallback)}, nil
}

// bootstrapGuardian creates the guardian record on first contact, named from
// the LINE profile when it can be fetched.
func (s *FlowService) bootstrapGuardian(ctx context.Context, lineUserID string) (*guardian.Guardian, error) {
	name := fallbackGuardianName(lineUserID)
	if profile, err := s.lineClient.Profile(ctx, lineUserID); err != nil {
		s.logger.WithError(err).Warn("failed to fetch LINE profile, using fallback name")
	} else if profile.DisplayName != "" {
		name = profile.DisplayName
	}

	g := &guardian.Guardian{
		Name:       name,
		LineUserID: sql.NullString{String: lineUserID, Valid: true},
	}
	if err := s.guardianRepo.Create(ctx, g); err != nil {
		if err != idb.ErrDuplicateLineUserID {
			return nil, fmt.Errorf("failed to create guardian: %w", err)
		}
		// A racing delivery created it first; use the existing row.
		existing, getErr := s.guardianRepo.GetByLineUserID(ctx, lineUserID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load guardian after duplicate insert: %w", getErr)
		}
		return existing, nil
	}
	return g, nil
}

func fallbackGuardianName(lineUserID string) string {
	suffix := lineUserID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("LINEユーザー (%s)", suffix)
}

// menuTarget recognizes the persistent-menu commands, both as postbacks
// and as their typed text labels.
func menuTarget(ev line.Event) (flow.Flow, bool) {
	var name string
	switch ev.Kind {
	case line.EventPostback:
		p, ok := line.ParsePostback(ev.PostbackData)
		if !ok || p.Key != "start" {
			return "", false
		}
		name = p.Flow
	case line.EventText:
		switch strings.TrimSpace(ev.Text) {
		case menuLabelAttendance:
			name = string(flow.FlowAttendance)
		case menuLabelStatus:
			name = string(flow.FlowStatus)
		case menuLabelSettings:
			name = string(flow.FlowSettings)
		default:
			return "", false
		}
	default:
		return "", false
	}

	switch flow.Flow(name) {
	case flow.FlowAttendance, flow.FlowStatus, flow.FlowSettings:
		return flow.Flow(name), true
	}
	return "", false
}

// resetWithApology recovers a corrupted session: reset to idle and ask the
// user to start over from the menu. Never propagates as a handler failure.
func (s *FlowService) resetWithApology(ctx context.Context, sess *flow.Session) ([]line.Message, error) {
	if err := s.sessionRepo.Reset(ctx, sess.LineUserID, sess.GuardianID); err != nil {
		return nil, fmt.Errorf("failed to reset corrupted session: %w", err)
	}
	s.logger.WithField("lineUserId", sess.LineUserID).Warn("flow session was missing required draft fields, reset to idle")
	return []line.Message{menuMessage(textSessionExpired)}, nil
}

// recordMessage appends to the conversation log. The log is best-effort
// telemetry: failures are logged and swallowed, never surfaced to the flow.
func (s *FlowService) recordMessage(ctx context.Context, guardianID, studentID string, dir message.Direction, body string) {
	m := &message.Message{
		GuardianID: guardianID,
		Direction:  dir,
		Body:       body,
	}
	if studentID != "" {
		m.StudentID = sql.NullString{String: studentID, Valid: true}
	}
	if err := s.messageRepo.Create(ctx, m); err != nil {
		s.logger.WithError(err).WithField("guardianId", guardianID).Warn("failed to record message log entry")
	}
}

var dateRx = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func parseDateString(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if !dateRx.MatchString(value) {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// eventDate extracts a date answer from a shortcut button, a date picker
// result, or free text.
func eventDate(ev line.Event, flowName, key string) (time.Time, bool) {
	switch ev.Kind {
	case line.EventPostback:
		if ev.PickedDate != "" {
			return parseDateString(ev.PickedDate)
		}
		if p, ok := line.ParsePostback(ev.PostbackData); ok && p.Flow == flowName && p.Key == key && p.Value != "" {
			return parseDateString(p.Value)
		}
	case line.EventText:
		return parseDateString(ev.Text)
	}
	return time.Time{}, false
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
