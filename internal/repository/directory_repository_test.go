package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRepositoryListFacultyAttachesSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department, max_weekly_hours FROM faculty")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department", "max_weekly_hours"}).
			AddRow("fac-1", "Ada", "CS", 18).
			AddRow("fac-2", "Grace", "CS", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT faculty_id, subject_id FROM faculty_subjects")).
		WillReturnRows(sqlmock.NewRows([]string{"faculty_id", "subject_id"}).
			AddRow("fac-1", "ALGO").
			AddRow("fac-1", "MATH").
			AddRow("fac-9", "GHOST"))

	faculty, err := repo.ListFaculty(context.Background())
	require.NoError(t, err)
	require.Len(t, faculty, 2)
	assert.Equal(t, []string{"ALGO", "MATH"}, faculty[0].SubjectIDs)
	assert.Empty(t, faculty[1].SubjectIDs)
	assert.Equal(t, 18, faculty[0].MaxWeeklyHours)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryListFacultySubjectError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM faculty ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department", "max_weekly_hours"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM faculty_subjects")).
		WillReturnError(errors.New("relation does not exist"))

	_, err := repo.ListFaculty(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list faculty subjects")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryRoomsAndEnrollments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity FROM rooms")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity"}).AddRow("R101", "Hall A", 60))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT batch, section, students FROM section_enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"batch", "section", "students"}).AddRow("2024", "A", 45))

	rooms, err := repo.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 60, rooms[0].Capacity)

	enrollments, err := repo.ListEnrollments(context.Background())
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 45, enrollments[0].Students)
	require.NoError(t, mock.ExpectationsWereMet())
}
