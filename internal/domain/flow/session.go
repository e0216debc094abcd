package flow

import (
	"time"
)

// Flow names one guided multi-turn dialog. A session is in exactly one flow
// at a time; FlowIdle means no dialog is in progress.
type Flow string

const (
	FlowIdle         Flow = "idle"
	FlowRegistration Flow = "registration"
	FlowSettings     Flow = "settings"
	FlowAttendance   Flow = "attendance"
	FlowStatus       Flow = "status"
)

// Step is the current prompt position inside a flow. Step values are scoped
// to their flow: AttendanceChooseStudent and StatusChooseStudent share the
// stored value "choose_student" but are distinct transitions, dispatched on
// the (Flow, Step) pair, never on Step alone.
type Step string

const (
	StepIdle Step = "idle"

	// registration
	RegistrationAskGuardianName Step = "ask_guardian_name"
	RegistrationAskChildName    Step = "ask_child_name"
	RegistrationAskChildGrade   Step = "ask_child_grade"
	RegistrationAskMoreChildren Step = "ask_more_children"

	// settings (the child-adding tail of registration, entered directly)
	SettingsAskChildName    Step = "ask_child_name"
	SettingsAskChildGrade   Step = "ask_child_grade"
	SettingsAskMoreChildren Step = "ask_more_children"

	// attendance
	AttendanceChooseStudent Step = "choose_student"
	AttendanceChooseDate    Step = "choose_date"
	AttendanceChooseStatus  Step = "choose_status"
	AttendanceAskComment    Step = "ask_comment"

	// status
	StatusChooseStudent Step = "choose_student"
	StatusChooseRange   Step = "choose_range"
)

// ChildDraft holds the partially collected answers while adding one child.
type ChildDraft struct {
	PendingName string `json:"pendingName,omitempty"`
}

// AttendanceDraft accumulates one attendance answer across the attendance
// flow's steps. It lives only inside the session; it becomes a durable
// attendance request at the ask_comment step.
type AttendanceDraft struct {
	StudentID    string `json:"studentId,omitempty"`
	StudentName  string `json:"studentName,omitempty"`
	RequestedFor string `json:"requestedFor,omitempty"` // YYYY-MM-DD
	Status       string `json:"status,omitempty"`
}

// StatusDraft accumulates the status-lookup target.
type StatusDraft struct {
	StudentID   string `json:"studentId,omitempty"`
	StudentName string `json:"studentName,omitempty"`
}

// Data is the session's answer accumulator, a union keyed by the session's
// Flow: each variant carries only the fields its own dialog needs.
// ResumeFlow marks a flow to re-enter once a forced side-trip (registering a
// still-missing child) completes.
type Data struct {
	Registration *ChildDraft      `json:"registration,omitempty"`
	Settings     *ChildDraft      `json:"settings,omitempty"`
	Attendance   *AttendanceDraft `json:"attendance,omitempty"`
	Status       *StatusDraft     `json:"status,omitempty"`
	ResumeFlow   Flow             `json:"resumeFlow,omitempty"`
}

// Session is the persisted per-LINE-user conversation position. At most one
// live session exists per LINE user id (upsert by that key); an expired
// session is treated as absent and lazily deleted on the next load.
type Session struct {
	LineUserID string
	GuardianID string // empty until a guardian record exists
	Flow       Flow
	Step       Step
	Data       Data
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

// NewIdle returns the empty session every completed or abandoned dialog
// resets to.
func NewIdle(lineUserID, guardianID string) *Session {
	return &Session{
		LineUserID: lineUserID,
		GuardianID: guardianID,
		Flow:       FlowIdle,
		Step:       StepIdle,
	}
}
