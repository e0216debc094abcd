package student

import (
	"database/sql"
	"time"
)

// Student represents a child attending the school. Students are linked to
// guardians through a many-to-many table; the bot only ever creates the link
// for the guardian driving the conversation.
type Student struct {
	ID        string
	Name      string
	Grade     sql.NullString
	Notes     sql.NullString
	CreatedAt time.Time
}
