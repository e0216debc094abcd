package guardian

import (
	"database/sql"
	"time"
)

// Guardian represents a parent/guardian of one or more students.
// The LINE user id is the external identity the bot sees; the mapping is
// created on first contact and never changes afterwards.
type Guardian struct {
	ID         string
	Name       string
	Phone      sql.NullString
	LineUserID sql.NullString
	CreatedAt  time.Time
}
