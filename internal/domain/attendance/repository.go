package attendance

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and querying attendance answers.
type Repository interface {
	// Upsert inserts or replaces the answer keyed by (studentID, date).
	// reason == "" stores NULL. Fails with database.ErrConstraintViolation
	// when guardianID or studentID do not reference existing rows.
	Upsert(ctx context.Context, guardianID, studentID string, date time.Time, status Status, reason string) error
	// RecordsFor returns the answers for one student in the closed date
	// interval [from, to], keyed by the date formatted as 2006-01-02.
	RecordsFor(ctx context.Context, guardianID, studentID string, from, to time.Time) (map[string]Record, error)
}
