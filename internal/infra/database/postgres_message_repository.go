package database

import (
	"context"
	"database/sql"
	"fmt"

	"attendance_line_bot/internal/domain/message"

	"github.com/google/uuid"
)

type PostgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `INSERT INTO messages (id, guardian_id, student_id, direction, body)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, m.ID, m.GuardianID, m.StudentID, string(m.Direction), m.Body).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return nil
}
