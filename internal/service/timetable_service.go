package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/dto"
	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

// SessionSource lists persisted sessions.
type SessionSource interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, error)
}

type timetableLoader interface {
	Load(sessions []models.ClassSession) error
	Snapshot() *timetable.Snapshot
}

// TimetableService serves read views of the live timetable.
type TimetableService struct {
	store     timetableLoader
	source    SessionSource
	directory DirectoryProvider
	logger    *zap.Logger
	year      string
	limit     int
}

// TimetableServiceOption configures the service.
type TimetableServiceOption func(*TimetableService)

// WithTimetableSuggestionLimit sets the default number of suggestions.
func WithTimetableSuggestionLimit(limit int) TimetableServiceOption {
	return func(s *TimetableService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewTimetableService constructs the service; source may be nil when the
// timetable is seeded from a file.
func NewTimetableService(store timetableLoader, source SessionSource, directory DirectoryProvider, year string, logger *zap.Logger, opts ...TimetableServiceOption) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TimetableService{store: store, source: source, directory: directory, logger: logger, year: year, limit: DefaultSuggestionLimit}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Reload replaces the live timetable with the persisted one.
func (s *TimetableService) Reload(ctx context.Context) error {
	if s.source == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "no session source configured")
	}
	sessions, err := s.source.List(ctx, models.SessionFilter{AcademicYear: s.year})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	if err := s.store.Load(sessions); err != nil {
		return err
	}
	s.logger.Info("timetable loaded", zap.Int("sessions", len(sessions)), zap.String("academic_year", s.year))
	return nil
}

// FacultyTimetable lists a faculty member's week.
func (s *TimetableService) FacultyTimetable(ctx context.Context, facultyID, year string) (*dto.TimetableView, error) {
	facultyID = strings.TrimSpace(facultyID)
	if facultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty id is required")
	}
	year = s.resolveYear(year)
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
	}
	sessions := s.store.Snapshot().SessionsByFaculty(facultyID, year)
	if len(sessions) == 0 && !dir.HasFaculty(facultyID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("faculty %s not found", facultyID))
	}
	return &dto.TimetableView{
		Owner:          facultyID,
		Name:           dir.FacultyName(facultyID),
		AcademicYear:   year,
		WeeklyHours:    len(sessions),
		MaxWeeklyHours: dir.MaxWeeklyHours(facultyID),
		Sessions:       sessions,
	}, nil
}

// SectionTimetable lists a batch/section's week.
func (s *TimetableService) SectionTimetable(ctx context.Context, batch, section, year string) (*dto.TimetableView, error) {
	batch = strings.TrimSpace(batch)
	section = strings.TrimSpace(section)
	if batch == "" || section == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch and section are required")
	}
	year = s.resolveYear(year)
	sessions := s.store.Snapshot().SessionsBySection(batch, section, year)
	return &dto.TimetableView{
		Owner:        models.EnrollmentKey(batch, section),
		Name:         fmt.Sprintf("Batch %s section %s", batch, section),
		AcademicYear: year,
		WeeklyHours:  len(sessions),
		Sessions:     sessions,
	}, nil
}

// SessionSuggestions ranks alternative cells for a session. facultyID
// defaults to the session's own faculty.
func (s *TimetableService) SessionSuggestions(ctx context.Context, sessionID, facultyID string, limit int) ([]models.SlotSuggestion, error) {
	snap := s.store.Snapshot()
	session, ok := snap.Session(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", sessionID))
	}
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
	}
	if strings.TrimSpace(facultyID) == "" {
		facultyID = session.FacultyID
	}
	if limit <= 0 || limit > 20 {
		limit = s.limit
	}
	return RankSlots(snap, dir, session, facultyID, limit), nil
}

func (s *TimetableService) resolveYear(year string) string {
	if strings.TrimSpace(year) == "" {
		return s.year
	}
	return strings.TrimSpace(year)
}
