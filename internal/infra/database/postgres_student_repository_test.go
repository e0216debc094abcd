package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"attendance_line_bot/internal/domain/student"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var studentColumns = []string{"id", "name", "grade", "notes", "created_at"}

func expectStudentLookupMiss(mock sqlmock.Sqlmock, guardianID, name string) {
	mock.ExpectQuery(`SELECT s.id, s.name, s.grade, s.notes, s.created_at`).
		WithArgs(guardianID, name).
		WillReturnRows(sqlmock.NewRows(studentColumns))
}

func TestStudentCreate_InsertsAndLinks(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewPostgresStudentRepository(db)

	createdAt := time.Date(2026, time.February, 13, 12, 0, 0, 0, time.UTC)
	s := &student.Student{Name: "一郎", Grade: sql.NullString{String: "小3", Valid: true}}

	expectStudentLookupMiss(mock, "g1", "一郎")
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(sqlmock.AnyArg(), "一郎", s.Grade, s.Notes).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectExec(`INSERT INTO guardian_students`).
		WithArgs("g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), "g1", s))
	assert.NotEmpty(t, s.ID, "a generated id must be assigned")
	assert.Equal(t, createdAt, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCreate_ExistingChildIsReturnedNotDuplicated(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewPostgresStudentRepository(db)

	createdAt := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT s.id, s.name, s.grade, s.notes, s.created_at`).
		WithArgs("g1", "一郎").
		WillReturnRows(sqlmock.NewRows(studentColumns).
			AddRow("s-existing", "一郎", "小3", nil, createdAt))

	// The caller re-adds the child with a different grade; the stored row
	// wins and no insert is issued.
	s := &student.Student{Name: "一郎", Grade: sql.NullString{String: "小4", Valid: true}}
	require.NoError(t, repo.Create(context.Background(), "g1", s))

	assert.Equal(t, "s-existing", s.ID)
	assert.Equal(t, "小3", s.Grade.String)
	assert.Equal(t, createdAt, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCreate_RacingLinkInsertIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewPostgresStudentRepository(db)

	s := &student.Student{Name: "一郎"}

	expectStudentLookupMiss(mock, "g1", "一郎")
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(sqlmock.AnyArg(), "一郎", s.Grade, s.Notes).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO guardian_students`).
		WithArgs("g1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})

	assert.NoError(t, repo.Create(context.Background(), "g1", s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCreate_MissingGuardianIsConstraintViolation(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewPostgresStudentRepository(db)

	s := &student.Student{Name: "一郎"}

	expectStudentLookupMiss(mock, "missing", "一郎")
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(sqlmock.AnyArg(), "一郎", s.Grade, s.Notes).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO guardian_students`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pgForeignKeyViolation})

	err := repo.Create(context.Background(), "missing", s)
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentListByGuardian(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	repo := NewPostgresStudentRepository(db)

	rows := sqlmock.NewRows(studentColumns).
		AddRow("s1", "一郎", "小3", nil, time.Now()).
		AddRow("s2", "二郎", nil, nil, time.Now())

	mock.ExpectQuery(`JOIN guardian_students`).
		WithArgs("g1").
		WillReturnRows(rows)

	students, err := repo.ListByGuardian(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "一郎", students[0].Name)
	assert.Equal(t, "小3", students[0].Grade.String)
	assert.False(t, students[1].Grade.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
