package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
)

const sessionColumns = `id, subject_id, faculty_id, room_id, batch, section, day_of_week, time_slot, session_type, academic_year, updated_at`

// SessionRepository reads the generated timetable and mirrors committed
// changes back to the class_sessions table.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions matching the filter ordered by day and slot columns.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE ($1 = '' OR academic_year = $1)
	AND ($2 = '' OR faculty_id = $2) AND ($3 = '' OR batch = $3) AND ($4 = '' OR section = $4)
	ORDER BY id`
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, filter.AcademicYear, filter.FacultyID, filter.Batch, filter.Section); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	timetable.SortSessions(sessions)
	return sessions, nil
}

// PersistChanges writes a committed batch in one transaction. Placements are
// inserted, removals deleted and moves updated in place.
func (r *SessionRepository) PersistChanges(ctx context.Context, changes []timetable.Change) (err error) {
	if len(changes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persist sessions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, change := range changes {
		switch {
		case change.After == nil:
			if _, err = tx.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, change.Before.ID); err != nil {
				return fmt.Errorf("delete class session %s: %w", change.Before.ID, err)
			}
		case change.Before == nil:
			row := withUpdatedAt(*change.After)
			if _, err = tx.NamedExecContext(ctx, `INSERT INTO class_sessions (`+sessionColumns+`)
			VALUES (:id, :subject_id, :faculty_id, :room_id, :batch, :section, :day_of_week, :time_slot, :session_type, :academic_year, :updated_at)`, &row); err != nil {
				return fmt.Errorf("insert class session %s: %w", row.ID, err)
			}
		default:
			row := withUpdatedAt(*change.After)
			if _, err = tx.NamedExecContext(ctx, `UPDATE class_sessions SET faculty_id = :faculty_id, room_id = :room_id,
			day_of_week = :day_of_week, time_slot = :time_slot, updated_at = :updated_at WHERE id = :id`, &row); err != nil {
				return fmt.Errorf("update class session %s: %w", row.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit persist sessions: %w", err)
	}
	return nil
}

func withUpdatedAt(session models.ClassSession) models.ClassSession {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	return session
}
