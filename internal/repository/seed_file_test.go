package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

const seedFixture = `
academic_year: "2024-2025"
default_max_weekly_hours: 16
faculty:
  - id: fac-1
    name: Ada
    max_weekly_hours: 12
    subject_ids: [MATH]
  - id: fac-2
    name: Grace
rooms:
  - id: R101
    name: Hall A
    capacity: 40
enrollments:
  - batch: "2024"
    section: A
    students: 35
sessions:
  - id: " s-1 "
    subject_id: MATH
    faculty_id: fac-1
    room_id: R101
    batch: "2024"
    section: A
    day_of_week: mon
    time_slot: "9:00 - 10:00"
  - id: s-2
    subject_id: MATH
    faculty_id: fac-1
    room_id: R101
    batch: "2024"
    section: A
    day_of_week: THURSDAY
    time_slot: "14:00-15:00"
    session_type: lab
    academic_year: "2023-2024"
`

func TestParseSeedNormalisesSessions(t *testing.T) {
	seed, err := ParseSeed([]byte(seedFixture))
	require.NoError(t, err)
	require.Len(t, seed.Sessions, 2)

	first := seed.Sessions[0]
	assert.Equal(t, "s-1", first.ID)
	assert.Equal(t, models.DayMonday, first.DayOfWeek)
	assert.Equal(t, models.TimeSlot("09:00-10:00"), first.TimeSlot)
	assert.Equal(t, models.SessionTypeLecture, first.SessionType)
	assert.Equal(t, "2024-2025", first.AcademicYear)

	second := seed.Sessions[1]
	assert.Equal(t, models.SessionTypeLab, second.SessionType)
	assert.Equal(t, "2023-2024", second.AcademicYear)
}

func TestSeedDirectory(t *testing.T) {
	seed, err := ParseSeed([]byte(seedFixture))
	require.NoError(t, err)

	dir := seed.Directory(20)
	assert.Equal(t, 16, dir.DefaultMaxWeeklyHours)
	assert.Equal(t, 12, dir.MaxWeeklyHours("fac-1"))
	assert.Equal(t, 16, dir.MaxWeeklyHours("fac-2"))
	capacity, ok := dir.RoomCapacity("R101")
	require.True(t, ok)
	assert.Equal(t, 40, capacity)
	students, ok := dir.Enrollment("2024", "A")
	require.True(t, ok)
	assert.Equal(t, 35, students)
	assert.True(t, dir.HasFaculty("fac-2"))
}

func TestParseSeedRejectsInvalidGrid(t *testing.T) {
	_, err := ParseSeed([]byte(`sessions:
  - id: s-1
    day_of_week: SUNDAY
    time_slot: "09:00-10:00"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid day")

	_, err = ParseSeed([]byte(`sessions:
  - id: s-1
    day_of_week: MONDAY
    time_slot: "13:00-14:00"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time slot")

	_, err = ParseSeed([]byte(`sessions: [`))
	require.Error(t, err)
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedFixture), 0o600))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)
	assert.Len(t, seed.Faculty, 2)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
