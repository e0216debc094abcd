package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"attendance_line_bot/internal/domain/attendance"
	"attendance_line_bot/internal/domain/guardian"
	"attendance_line_bot/internal/domain/line"
	"attendance_line_bot/internal/domain/message"
)

// The one-shot command lets a guardian skip the dialog entirely:
//
//	出欠 出席 2026-02-14 一郎 [理由]
//
// Status accepts the Japanese labels or the storage keys.
var attendanceCommandRx = regexp.MustCompile(`^出欠\s+(\S+)\s+(\d{4}-\d{2}-\d{2})\s+(\S+)(?:\s+(.+))?$`)

type attendanceCommand struct {
	Status      attendance.Status
	Date        string
	StudentName string
	Reason      string
}

func parseAttendanceCommand(text string) (attendanceCommand, bool) {
	m := attendanceCommandRx.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return attendanceCommand{}, false
	}
	status, ok := attendance.ParseStatus(m[1])
	if !ok {
		return attendanceCommand{}, false
	}
	if _, ok := parseDateString(m[2]); !ok {
		return attendanceCommand{}, false
	}
	return attendanceCommand{
		Status:      status,
		Date:        m[2],
		StudentName: m[3],
		Reason:      strings.TrimSpace(m[4]),
	}, true
}

// handleAttendanceCommand resolves the named child among the guardian's own
// children and records the answer in one turn. An unknown child name is
// guidance territory, not a reason to create a student: the dialogs own
// child creation.
func (s *FlowService) handleAttendanceCommand(ctx context.Context, g *guardian.Guardian, cmd attendanceCommand, rawText string) ([]line.Message, error) {
	students, err := s.studentRepo.ListByGuardian(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	for _, st := range students {
		if st.Name != cmd.StudentName {
			continue
		}
		date, _ := parseDateString(cmd.Date)
		if err := s.attendanceRepo.Upsert(ctx, g.ID, st.ID, date, cmd.Status, cmd.Reason); err != nil {
			return nil, fmt.Errorf("failed to upsert attendance from command: %w", err)
		}

		s.recordMessage(ctx, g.ID, st.ID, message.DirectionInbound, strings.TrimSpace(rawText))
		confirmation := fmt.Sprintf("出欠を登録しました: %s %s %s", st.Name, cmd.Date, cmd.Status.Label())
		if cmd.Reason != "" {
			confirmation += fmt.Sprintf("\n連絡事項: %s", cmd.Reason)
		}
		s.recordMessage(ctx, g.ID, st.ID, message.DirectionOutbound, confirmation)

		s.logger.WithFields(map[string]interface{}{
			"guardianId":   g.ID,
			"studentId":    st.ID,
			"requestedFor": cmd.Date,
			"status":       string(cmd.Status),
		}).Info("attendance recorded via one-shot command")
		return []line.Message{{Text: confirmation}}, nil
	}

	s.recordMessage(ctx, g.ID, "", message.DirectionInbound, strings.TrimSpace(rawText))
	return []line.Message{menuMessage(fmt.Sprintf("「%s」さんが見つかりませんでした。先に子どもの登録をお願いします。", cmd.StudentName))}, nil
}
