package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attendance_line_bot/internal/domain/attendance"

	"github.com/google/uuid"
)

type PostgresAttendanceRepository struct {
	db *sql.DB
}

func NewPostgresAttendanceRepository(db *sql.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{db: db}
}

// Upsert inserts or replaces the answer keyed by (student_id, requested_for).
func (r *PostgresAttendanceRepository) Upsert(ctx context.Context, guardianID, studentID string, date time.Time, status attendance.Status, reason string) error {
	var reasonValue sql.NullString
	if reason != "" {
		reasonValue = sql.NullString{String: reason, Valid: true}
	}

	query := `INSERT INTO attendance_requests (id, guardian_id, student_id, requested_for, status, reason)
               VALUES ($1, $2, $3, $4, $5, $6)
               ON CONFLICT (student_id, requested_for)
               DO UPDATE SET guardian_id = EXCLUDED.guardian_id,
                             status = EXCLUDED.status,
                             reason = EXCLUDED.reason`

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), guardianID, studentID, date.UTC().Format("2006-01-02"), string(status), reasonValue)
	if err != nil {
		if isPqErrorCode(err, pgForeignKeyViolation) {
			return ErrConstraintViolation
		}
		return fmt.Errorf("error upserting attendance: %w", err)
	}
	return nil
}

// RecordsFor returns the stored answers for one student over the closed date
// interval, keyed by the YYYY-MM-DD date string.
func (r *PostgresAttendanceRepository) RecordsFor(ctx context.Context, guardianID, studentID string, from, to time.Time) (map[string]attendance.Record, error) {
	query := `SELECT requested_for, status, reason
               FROM attendance_requests
               WHERE guardian_id = $1 AND student_id = $2
                 AND requested_for BETWEEN $3 AND $4
               ORDER BY requested_for`

	rows, err := r.db.QueryContext(ctx, query,
		guardianID, studentID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("error querying attendance records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]attendance.Record)
	for rows.Next() {
		var requestedFor time.Time
		var status string
		var reason sql.NullString
		if err := rows.Scan(&requestedFor, &status, &reason); err != nil {
			return nil, fmt.Errorf("error scanning attendance record: %w", err)
		}
		records[requestedFor.UTC().Format("2006-01-02")] = attendance.Record{
			Status: attendance.Status(status),
			Reason: reason.String,
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance records: %w", err)
	}
	return records, nil
}
