package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
)

const fixtureYear = "2024-25"

type sessionOpt func(*models.ClassSession)

func withSubject(subject string) sessionOpt {
	return func(s *models.ClassSession) { s.SubjectID = subject }
}

func withSection(batch, section string) sessionOpt {
	return func(s *models.ClassSession) {
		s.Batch = batch
		s.Section = section
	}
}

func classSession(id, faculty, room string, day models.Day, slot models.TimeSlot, opts ...sessionOpt) models.ClassSession {
	s := models.ClassSession{
		ID:           id,
		SubjectID:    "CS301",
		FacultyID:    faculty,
		RoomID:       room,
		Batch:        "2022",
		Section:      "A",
		DayOfWeek:    day,
		TimeSlot:     slot,
		SessionType:  models.SessionTypeLecture,
		AcademicYear: fixtureYear,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func snapshotOf(t *testing.T, sessions ...models.ClassSession) *timetable.Snapshot {
	t.Helper()
	snap, err := timetable.NewSnapshot(sessions)
	require.NoError(t, err)
	return snap
}

func storeOf(t *testing.T, sessions ...models.ClassSession) *timetable.Store {
	t.Helper()
	store := timetable.NewStore()
	require.NoError(t, store.Load(sessions))
	return store
}

func faculty(id string, maxHours int, subjects ...string) models.FacultyProfile {
	return models.FacultyProfile{ID: id, Name: "Faculty " + id, MaxWeeklyHours: maxHours, SubjectIDs: subjects}
}

func directoryOf(faculty []models.FacultyProfile, rooms []models.Room, enrollments []models.SectionEnrollment) *models.Directory {
	return models.NewDirectory(faculty, rooms, enrollments, 0)
}

// fillRoom books every cell of room on the given days with filler sessions.
func fillRoom(room string, days ...models.Day) []models.ClassSession {
	var sessions []models.ClassSession
	for _, day := range days {
		for i, slot := range models.TimeSlots {
			id := fmt.Sprintf("fill-%s-%s-%d", room, day, i)
			sessions = append(sessions, classSession(id, id, room, day, slot, withSubject("FILL"), withSection("2099", "Z")))
		}
	}
	return sessions
}

func conflictTypes(conflicts []models.Conflict) []models.ConflictType {
	types := make([]models.ConflictType, 0, len(conflicts))
	for _, c := range conflicts {
		types = append(types, c.Type)
	}
	return types
}
