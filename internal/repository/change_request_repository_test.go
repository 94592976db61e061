package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var changeRequestRowColumns = []string{"id", "kind", "status", "requested_by", "faculty_id", "reason", "admin_notes", "reviewed_by", "details", "last_report", "created_at", "updated_at"}

func TestChangeRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.ChangeRequest{
		Kind:        models.RequestKindSwap,
		RequestedBy: "fac-1",
		FacultyID:   "fac-1",
		Reason:      "conference",
		Swap: &models.SwapDetails{
			RequestingFacultyID: "fac-1",
			TargetFacultyID:     "fac-1",
			OriginalSessionID:   "s-1",
			RequestedDay:        models.DayWednesday,
			RequestedTimeSlot:   "10:00-11:00",
		},
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.False(t, request.CreatedAt.IsZero())

	now := time.Now()
	rows := sqlmock.NewRows(changeRequestRowColumns).
		AddRow(request.ID, "SWAP", "VALIDATED", "fac-1", "fac-1", "conference", nil, nil,
			`{"requesting_faculty_id":"fac-1","target_faculty_id":"fac-1","original_session_id":"s-1","requested_day":"WEDNESDAY","requested_time_slot":"10:00-11:00"}`,
			`{"conflicts":[],"suggestions":[],"recommendation":"APPROVE","generated_at":"2024-01-01T00:00:00Z"}`,
			now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE id = $1")).
		WithArgs(request.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusValidated, found.Status)
	require.NotNil(t, found.Swap)
	assert.Equal(t, "s-1", found.Swap.OriginalSessionID)
	assert.Equal(t, models.DayWednesday, found.Swap.RequestedDay)
	require.NotNil(t, found.LastReport)
	assert.Equal(t, models.RecommendationApprove, found.LastReport.Recommendation)
	assert.Nil(t, found.Leave)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryCreateUnknownKind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	err := repo.Create(context.Background(), &models.ChangeRequest{Kind: "TRANSFER"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryGetLeaveWithoutReport(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(changeRequestRowColumns).
		AddRow("req-2", "LEAVE", "PENDING", "fac-2", "fac-2", "flu", nil, nil,
			`{"faculty_id":"fac-2","leave_type":"SICK","start_date":"2024-03-04T00:00:00Z","end_date":"2024-03-05T00:00:00Z","affected_session_ids":["s-4"]}`,
			`null`, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE id = $1")).
		WithArgs("req-2").
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), "req-2")
	require.NoError(t, err)
	require.NotNil(t, found.Leave)
	assert.Equal(t, models.LeaveTypeSick, found.Leave.LeaveType)
	assert.Equal(t, []string{"s-4"}, found.Leave.AffectedSessionIDs)
	assert.Nil(t, found.LastReport)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(changeRequestRowColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(changeRequestRowColumns).
		AddRow("req-1", "SWAP", "SUBMITTED", "fac-1", "fac-1", "conference", nil, nil,
			`{"original_session_id":"s-1","requested_day":"FRIDAY","requested_time_slot":"09:00-10:00"}`, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE kind = $1 AND status IN ($2,$3) AND faculty_id = $4 ORDER BY created_at DESC LIMIT 10 OFFSET 5")).
		WithArgs("SWAP", "SUBMITTED", "VALIDATED", "fac-1").
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), models.ChangeRequestFilter{
		Kind:      models.RequestKindSwap,
		Status:    []models.RequestStatus{models.RequestStatusSubmitted, models.RequestStatusValidated},
		FacultyID: "fac-1",
		Limit:     10,
		Offset:    5,
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.DayFriday, requests[0].Swap.RequestedDay)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListDefaultsPaging(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM change_requests ORDER BY created_at DESC LIMIT 50 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(changeRequestRowColumns))

	requests, err := repo.List(context.Background(), models.ChangeRequestFilter{Limit: 1000, Offset: -3})
	require.NoError(t, err)
	assert.Empty(t, requests)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryTransitionStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	notes := "approved in committee"
	reviewer := "admin-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests SET status = ?, updated_at = ?, admin_notes = ?, reviewed_by = ? WHERE id = ? AND status IN (?)")).
		WithArgs("APPROVED", sqlmock.AnyArg(), notes, reviewer, "req-1", "SUBMITTED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionStatus(context.Background(), models.StatusTransition{
		ID:         "req-1",
		From:       []models.RequestStatus{models.RequestStatusSubmitted},
		To:         models.RequestStatusApproved,
		AdminNotes: &notes,
		ReviewedBy: &reviewer,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryTransitionStatusLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status IN (?,?)")).
		WithArgs("VALIDATED", sqlmock.AnyArg(), sqlmock.AnyArg(), "req-1", "PENDING", "VALIDATED").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionStatus(context.Background(), models.StatusTransition{
		ID:         "req-1",
		From:       []models.RequestStatus{models.RequestStatusPending, models.RequestStatusValidated},
		To:         models.RequestStatusValidated,
		LastReport: &models.ValidationReport{Recommendation: models.RecommendationApprove},
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryTransitionStatusErrors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	err := repo.TransitionStatus(context.Background(), models.StatusTransition{ID: "req-1", To: models.RequestStatusApplied})
	require.Error(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE change_requests")).
		WillReturnError(errors.New("connection reset"))
	err = repo.TransitionStatus(context.Background(), models.StatusTransition{
		ID:   "req-1",
		From: []models.RequestStatus{models.RequestStatusApproved},
		To:   models.RequestStatusApplied,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
