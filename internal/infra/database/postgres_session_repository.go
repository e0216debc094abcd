package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"attendance_line_bot/internal/domain/flow"
)

// ErrSessionNotFound covers both a missing row and an expired one: an
// expired session is treated as absent.
var ErrSessionNotFound = fmt.Errorf("flow session not found")

// DefaultSessionTTL is how long an abandoned dialog survives before the next
// load discards it.
const DefaultSessionTTL = 48 * time.Hour

type PostgresSessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresSessionRepository(db *sql.DB, ttl time.Duration) *PostgresSessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &PostgresSessionRepository{db: db, ttl: ttl, now: time.Now}
}

// Load returns the live session for the LINE user id. An expired row is
// deleted on the way out (lazy cleanup, no background sweep) and reported as
// not found.
func (r *PostgresSessionRepository) Load(ctx context.Context, lineUserID string) (*flow.Session, error) {
	query := `SELECT line_user_id, guardian_id, flow, step, data, expires_at, updated_at
               FROM flow_sessions WHERE line_user_id = $1`

	s := &flow.Session{}
	var guardianID sql.NullString
	var rawData []byte
	err := r.db.QueryRowContext(ctx, query, lineUserID).
		Scan(&s.LineUserID, &guardianID, &s.Flow, &s.Step, &rawData, &s.ExpiresAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("error loading flow session: %w", err)
	}
	s.GuardianID = guardianID.String

	if r.now().After(s.ExpiresAt) {
		if _, delErr := r.db.ExecContext(ctx, `DELETE FROM flow_sessions WHERE line_user_id = $1`, lineUserID); delErr != nil {
			return nil, fmt.Errorf("error deleting expired flow session: %w", delErr)
		}
		return nil, ErrSessionNotFound
	}

	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &s.Data); err != nil {
			return nil, fmt.Errorf("error decoding flow session data: %w", err)
		}
	}
	return s, nil
}

// Save upserts by LINE user id, refreshing the expiry and update stamps.
// Last write wins; racing webhook deliveries for the same user are rare
// enough that no locking is attempted.
func (r *PostgresSessionRepository) Save(ctx context.Context, s *flow.Session) error {
	rawData, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("error encoding flow session data: %w", err)
	}

	now := r.now()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(r.ttl)

	var guardianID sql.NullString
	if s.GuardianID != "" {
		guardianID = sql.NullString{String: s.GuardianID, Valid: true}
	}

	query := `INSERT INTO flow_sessions (line_user_id, guardian_id, flow, step, data, expires_at, updated_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               ON CONFLICT (line_user_id)
               DO UPDATE SET guardian_id = EXCLUDED.guardian_id,
                             flow = EXCLUDED.flow,
                             step = EXCLUDED.step,
                             data = EXCLUDED.data,
                             expires_at = EXCLUDED.expires_at,
                             updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		s.LineUserID, guardianID, string(s.Flow), string(s.Step), rawData, s.ExpiresAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving flow session: %w", err)
	}
	return nil
}

// Reset writes the idle session for the user, dropping any dialog state.
func (r *PostgresSessionRepository) Reset(ctx context.Context, lineUserID, guardianID string) error {
	return r.Save(ctx, flow.NewIdle(lineUserID, guardianID))
}
