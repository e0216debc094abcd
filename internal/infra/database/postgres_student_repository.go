package database

import (
	"context"
	"database/sql"
	"fmt"

	"attendance_line_bot/internal/domain/student"

	"github.com/google/uuid"
)

// ErrConstraintViolation is returned when a write references a guardian or
// student row that does not exist.
var ErrConstraintViolation = fmt.Errorf("referenced row does not exist")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

// Create resolves the child by name among the guardian's children before
// inserting: re-adding an already-registered child yields the existing row
// instead of a duplicate student. A unique violation on the link insert
// (racing deliveries registering the same pair) is treated as success.
func (r *PostgresStudentRepository) Create(ctx context.Context, guardianID string, s *student.Student) error {
	existing, err := r.findByName(ctx, guardianID, s.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		*s = *existing
		return nil
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := `INSERT INTO students (id, name, grade, notes)
               VALUES ($1, $2, $3, $4)
               RETURNING created_at`
	err = r.db.QueryRowContext(ctx, query, s.ID, s.Name, s.Grade, s.Notes).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating student: %w", err)
	}

	linkQuery := `INSERT INTO guardian_students (guardian_id, student_id) VALUES ($1, $2)`
	_, err = r.db.ExecContext(ctx, linkQuery, guardianID, s.ID)
	if err != nil {
		if isPqErrorCode(err, pgUniqueViolation) {
			return nil
		}
		if isPqErrorCode(err, pgForeignKeyViolation) {
			return ErrConstraintViolation
		}
		return fmt.Errorf("error linking guardian and student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) findByName(ctx context.Context, guardianID, name string) (*student.Student, error) {
	query := `SELECT s.id, s.name, s.grade, s.notes, s.created_at
               FROM students s
               JOIN guardian_students gs ON gs.student_id = s.id
               WHERE gs.guardian_id = $1 AND s.name = $2
               LIMIT 1`

	st := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, guardianID, name).
		Scan(&st.ID, &st.Name, &st.Grade, &st.Notes, &st.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding student by name: %w", err)
	}
	return st, nil
}

func (r *PostgresStudentRepository) ListByGuardian(ctx context.Context, guardianID string) ([]*student.Student, error) {
	query := `SELECT s.id, s.name, s.grade, s.notes, s.created_at
               FROM students s
               JOIN guardian_students gs ON gs.student_id = s.id
               WHERE gs.guardian_id = $1
               ORDER BY s.created_at`

	rows, err := r.db.QueryContext(ctx, query, guardianID)
	if err != nil {
		return nil, fmt.Errorf("error listing students of guardian: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Grade, &s.Notes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}
	return students, nil
}
