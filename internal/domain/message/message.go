package message

import (
	"database/sql"
	"time"
)

// Direction of a logged message relative to the school's official account.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one row of the append-only conversation log. The log is
// telemetry for the staff dashboard; writing it must never fail a flow.
type Message struct {
	ID         string
	GuardianID string
	StudentID  sql.NullString
	Direction  Direction
	Body       string
	CreatedAt  time.Time
}
