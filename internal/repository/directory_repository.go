package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

// DirectoryRepository reads faculty, room and enrollment master data.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// ListFaculty returns faculty profiles with their teachable subjects attached.
func (r *DirectoryRepository) ListFaculty(ctx context.Context) ([]models.FacultyProfile, error) {
	const query = `SELECT id, name, department, max_weekly_hours FROM faculty ORDER BY id`
	var faculty []models.FacultyProfile
	if err := r.db.SelectContext(ctx, &faculty, query); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}

	const assignmentQuery = `SELECT faculty_id, subject_id FROM faculty_subjects ORDER BY faculty_id, subject_id`
	var assignments []models.SubjectAssignment
	if err := r.db.SelectContext(ctx, &assignments, assignmentQuery); err != nil {
		return nil, fmt.Errorf("list faculty subjects: %w", err)
	}

	index := make(map[string]int, len(faculty))
	for i := range faculty {
		index[faculty[i].ID] = i
	}
	for _, assignment := range assignments {
		if i, ok := index[assignment.FacultyID]; ok {
			faculty[i].SubjectIDs = append(faculty[i].SubjectIDs, assignment.SubjectID)
		}
	}
	return faculty, nil
}

// ListRooms returns every bookable room.
func (r *DirectoryRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, capacity FROM rooms ORDER BY id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListEnrollments returns the head count of every batch/section.
func (r *DirectoryRepository) ListEnrollments(ctx context.Context) ([]models.SectionEnrollment, error) {
	const query = `SELECT batch, section, students FROM section_enrollments ORDER BY batch, section`
	var enrollments []models.SectionEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return enrollments, nil
}
