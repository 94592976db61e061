package repository

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

// SeedFile is a self-contained timetable and directory used when no database
// is configured.
type SeedFile struct {
	AcademicYear          string                     `yaml:"academic_year"`
	DefaultMaxWeeklyHours int                        `yaml:"default_max_weekly_hours"`
	Faculty               []models.FacultyProfile    `yaml:"faculty"`
	Rooms                 []models.Room              `yaml:"rooms"`
	Enrollments           []models.SectionEnrollment `yaml:"enrollments"`
	Sessions              []models.ClassSession      `yaml:"sessions"`
}

// LoadSeedFile reads and normalises a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes seed YAML. Days and slots are normalised to the grid and
// sessions without a year inherit the file's academic year.
func ParseSeed(raw []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range seed.Sessions {
		session := &seed.Sessions[i]
		day, ok := models.ParseDay(string(session.DayOfWeek))
		if !ok {
			return nil, fmt.Errorf("session %s: invalid day %q", session.ID, session.DayOfWeek)
		}
		slot, ok := models.ParseTimeSlot(string(session.TimeSlot))
		if !ok {
			return nil, fmt.Errorf("session %s: invalid time slot %q", session.ID, session.TimeSlot)
		}
		sessionType, ok := models.ParseSessionType(string(session.SessionType))
		if !ok {
			return nil, fmt.Errorf("session %s: invalid session type %q", session.ID, session.SessionType)
		}
		session.DayOfWeek = day
		session.TimeSlot = slot
		session.SessionType = sessionType
		session.ID = strings.TrimSpace(session.ID)
		if session.AcademicYear == "" {
			session.AcademicYear = seed.AcademicYear
		}
	}
	return &seed, nil
}

// Directory indexes the seed's master data.
func (s *SeedFile) Directory(defaultMaxHours int) *models.Directory {
	if s.DefaultMaxWeeklyHours > 0 {
		defaultMaxHours = s.DefaultMaxWeeklyHours
	}
	return models.NewDirectory(s.Faculty, s.Rooms, s.Enrollments, defaultMaxHours)
}
