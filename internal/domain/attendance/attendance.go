package attendance

import (
	"database/sql"
	"time"
)

// Status is the answer a guardian gives for one student on one lesson date.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusUnknown Status = "unknown"
)

// Label returns the Japanese display label used in prompts and summaries.
func (s Status) Label() string {
	switch s {
	case StatusPresent:
		return "出席"
	case StatusAbsent:
		return "欠席"
	case StatusLate:
		return "遅刻"
	case StatusUnknown:
		return "未定"
	}
	return string(s)
}

// ParseStatus resolves either the storage key or the Japanese label,
// case-insensitively for the ASCII keys. ok is false for anything else.
func ParseStatus(input string) (Status, bool) {
	switch input {
	case "present", "Present", "PRESENT", "出席":
		return StatusPresent, true
	case "absent", "Absent", "ABSENT", "欠席":
		return StatusAbsent, true
	case "late", "Late", "LATE", "遅刻":
		return StatusLate, true
	case "unknown", "Unknown", "UNKNOWN", "未定":
		return StatusUnknown, true
	}
	return "", false
}

// AllStatuses in the order they are presented as quick options.
func AllStatuses() []Status {
	return []Status{StatusPresent, StatusAbsent, StatusLate, StatusUnknown}
}

// Request is one attendance answer, unique per (student, requested_for).
type Request struct {
	ID           string
	GuardianID   string
	StudentID    string
	RequestedFor time.Time // date, UTC midnight
	Status       Status
	Reason       sql.NullString
	CreatedAt    time.Time
}

// Record is the per-date view the status flow renders.
type Record struct {
	Status Status
	Reason string // empty when no reason was given
}
