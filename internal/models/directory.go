package models

import "sort"

// FacultyProfile is the directory view of a faculty member.
type FacultyProfile struct {
	ID             string   `db:"id" json:"id" yaml:"id"`
	Name           string   `db:"name" json:"name" yaml:"name"`
	Department     string   `db:"department" json:"department" yaml:"department"`
	MaxWeeklyHours int      `db:"max_weekly_hours" json:"max_weekly_hours" yaml:"max_weekly_hours"`
	SubjectIDs     []string `db:"-" json:"subject_ids" yaml:"subject_ids"`
}

// Room is a bookable teaching space.
type Room struct {
	ID       string `db:"id" json:"id" yaml:"id"`
	Name     string `db:"name" json:"name" yaml:"name"`
	Capacity int    `db:"capacity" json:"capacity" yaml:"capacity"`
}

// SectionEnrollment records head count for a batch/section.
type SectionEnrollment struct {
	Batch    string `db:"batch" json:"batch" yaml:"batch"`
	Section  string `db:"section" json:"section" yaml:"section"`
	Students int    `db:"students" json:"students" yaml:"students"`
}

// SubjectAssignment links a faculty member to a subject they may teach.
type SubjectAssignment struct {
	FacultyID string `db:"faculty_id" json:"faculty_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// Directory is a read-only snapshot of master data used by validation.
type Directory struct {
	Faculty     map[string]FacultyProfile `json:"faculty"`
	Rooms       map[string]Room           `json:"rooms"`
	Enrollments map[string]int            `json:"enrollments"`
	// DefaultMaxWeeklyHours applies to faculty without a configured limit.
	DefaultMaxWeeklyHours int `json:"default_max_weekly_hours"`
}

// NewDirectory indexes master data into a Directory.
func NewDirectory(faculty []FacultyProfile, rooms []Room, enrollments []SectionEnrollment, defaultMaxHours int) *Directory {
	dir := &Directory{
		Faculty:               make(map[string]FacultyProfile, len(faculty)),
		Rooms:                 make(map[string]Room, len(rooms)),
		Enrollments:           make(map[string]int, len(enrollments)),
		DefaultMaxWeeklyHours: defaultMaxHours,
	}
	for _, f := range faculty {
		dir.Faculty[f.ID] = f
	}
	for _, r := range rooms {
		dir.Rooms[r.ID] = r
	}
	for _, e := range enrollments {
		dir.Enrollments[EnrollmentKey(e.Batch, e.Section)] = e.Students
	}
	return dir
}

// EnrollmentKey builds the lookup key for a batch/section pair.
func EnrollmentKey(batch, section string) string {
	return batch + "/" + section
}

// MaxWeeklyHours returns the weekly limit for a faculty member; zero means unlimited.
func (d *Directory) MaxWeeklyHours(facultyID string) int {
	if d == nil {
		return 0
	}
	if profile, ok := d.Faculty[facultyID]; ok && profile.MaxWeeklyHours > 0 {
		return profile.MaxWeeklyHours
	}
	return d.DefaultMaxWeeklyHours
}

// RoomCapacity returns the capacity of a room when known.
func (d *Directory) RoomCapacity(roomID string) (int, bool) {
	if d == nil {
		return 0, false
	}
	room, ok := d.Rooms[roomID]
	if !ok || room.Capacity <= 0 {
		return 0, false
	}
	return room.Capacity, true
}

// Enrollment returns the head count of a batch/section when known.
func (d *Directory) Enrollment(batch, section string) (int, bool) {
	if d == nil {
		return 0, false
	}
	students, ok := d.Enrollments[EnrollmentKey(batch, section)]
	return students, ok && students > 0
}

// FacultyName returns a display name, falling back to the id.
func (d *Directory) FacultyName(facultyID string) string {
	if d != nil {
		if profile, ok := d.Faculty[facultyID]; ok && profile.Name != "" {
			return profile.Name
		}
	}
	return facultyID
}

// HasFaculty reports whether the faculty member is known.
func (d *Directory) HasFaculty(facultyID string) bool {
	if d == nil {
		return false
	}
	_, ok := d.Faculty[facultyID]
	return ok
}

// FacultyForSubject lists faculty assigned to a subject, sorted by id.
func (d *Directory) FacultyForSubject(subjectID string) []string {
	if d == nil {
		return nil
	}
	var ids []string
	for id, profile := range d.Faculty {
		for _, subject := range profile.SubjectIDs {
			if subject == subjectID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}
