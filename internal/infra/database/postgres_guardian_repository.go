package database

import (
	"context"
	"database/sql"
	"fmt"

	"attendance_line_bot/internal/domain/guardian"

	"github.com/google/uuid"
)

// Custom errors
var ErrGuardianNotFound = fmt.Errorf("guardian not found")
var ErrDuplicateLineUserID = fmt.Errorf("guardian with this LINE user id already exists")

type PostgresGuardianRepository struct {
	db *sql.DB
}

func NewPostgresGuardianRepository(db *sql.DB) *PostgresGuardianRepository {
	return &PostgresGuardianRepository{db: db}
}

func (r *PostgresGuardianRepository) Create(ctx context.Context, g *guardian.Guardian) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	query := `INSERT INTO guardians (id, name, phone, line_user_id)
               VALUES ($1, $2, $3, $4)
               RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, g.ID, g.Name, g.Phone, g.LineUserID).Scan(&g.CreatedAt)
	if err != nil {
		if isPqErrorCode(err, pgUniqueViolation) {
			return ErrDuplicateLineUserID
		}
		return fmt.Errorf("error creating guardian: %w", err)
	}
	return nil
}

func (r *PostgresGuardianRepository) GetByID(ctx context.Context, id string) (*guardian.Guardian, error) {
	query := `SELECT id, name, phone, line_user_id, created_at
               FROM guardians WHERE id = $1`
	g := &guardian.Guardian{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Phone, &g.LineUserID, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuardianNotFound
		}
		return nil, fmt.Errorf("error getting guardian by ID: %w", err)
	}
	return g, nil
}

func (r *PostgresGuardianRepository) GetByLineUserID(ctx context.Context, lineUserID string) (*guardian.Guardian, error) {
	query := `SELECT id, name, phone, line_user_id, created_at
               FROM guardians WHERE line_user_id = $1`
	g := &guardian.Guardian{}
	err := r.db.QueryRowContext(ctx, query, lineUserID).Scan(&g.ID, &g.Name, &g.Phone, &g.LineUserID, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuardianNotFound
		}
		return nil, fmt.Errorf("error getting guardian by LINE user id: %w", err)
	}
	return g, nil
}

func (r *PostgresGuardianRepository) Rename(ctx context.Context, id string, name string) error {
	query := `UPDATE guardians SET name = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("error renaming guardian: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrGuardianNotFound
	}
	return nil
}

func (r *PostgresGuardianRepository) ListWithLineUserID(ctx context.Context) ([]*guardian.Guardian, error) {
	query := `SELECT id, name, phone, line_user_id, created_at
               FROM guardians WHERE line_user_id IS NOT NULL ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing guardians: %w", err)
	}
	defer rows.Close()

	guardians := make([]*guardian.Guardian, 0)
	for rows.Next() {
		g := &guardian.Guardian{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Phone, &g.LineUserID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning guardian: %w", err)
		}
		guardians = append(guardians, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guardians: %w", err)
	}
	return guardians, nil
}
