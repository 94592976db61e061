package timetable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-change-api/internal/models"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

// KeyKind distinguishes the two uniqueness dimensions.
type KeyKind string

const (
	KeyFaculty KeyKind = "FACULTY"
	KeyRoom    KeyKind = "ROOM"
)

// Key identifies one (resource, day, slot) cell within an academic year.
type Key struct {
	Kind       KeyKind
	Year       string
	ResourceID string
	Day        models.Day
	Slot       models.TimeSlot
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", k.Kind, k.Year, k.ResourceID, k.Day, k.Slot)
}

// FacultyKey returns the faculty cell for a placement.
func FacultyKey(year, facultyID string, day models.Day, slot models.TimeSlot) Key {
	return Key{Kind: KeyFaculty, Year: year, ResourceID: facultyID, Day: day, Slot: slot}
}

// RoomKey returns the room cell for a placement.
func RoomKey(year, roomID string, day models.Day, slot models.TimeSlot) Key {
	return Key{Kind: KeyRoom, Year: year, ResourceID: roomID, Day: day, Slot: slot}
}

// KeysOf lists the cells a session occupies.
func KeysOf(s models.ClassSession) []Key {
	keys := []Key{FacultyKey(s.AcademicYear, s.FacultyID, s.DayOfWeek, s.TimeSlot)}
	if s.RoomID != "" {
		keys = append(keys, RoomKey(s.AcademicYear, s.RoomID, s.DayOfWeek, s.TimeSlot))
	}
	return keys
}

var (
	// ErrSlotOccupied marks a uniqueness violation.
	ErrSlotOccupied = errors.New("slot already occupied")
	// ErrVersionConflict marks a cell that changed since it was read.
	ErrVersionConflict = errors.New("timetable changed since read")
)

// SlotConflict describes the cell a write collided on.
type SlotConflict struct {
	Key      Key
	HolderID string
	Err      error
}

func (c *SlotConflict) Error() string {
	if c.HolderID != "" {
		return fmt.Sprintf("%v: %s held by session %s", c.Err, c.Key, c.HolderID)
	}
	return fmt.Sprintf("%v: %s", c.Err, c.Key)
}

func (c *SlotConflict) Unwrap() error { return c.Err }

func conflictError(key Key, holder string, cause error) error {
	message := "timetable slot conflict"
	if errors.Is(cause, ErrVersionConflict) {
		message = "timetable changed concurrently"
	}
	return appErrors.Wrap(&SlotConflict{Key: key, HolderID: holder, Err: cause}, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
}

func notFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", id))
}

// Write records the commit that last changed a cell.
type Write struct {
	Revision uint64
	Origin   string
}

// state holds sessions plus the occupancy index that enforces uniqueness.
type state struct {
	sessions  map[string]models.ClassSession
	occupancy map[Key]string
	versions  map[Key]uint64
	writes    map[Key]Write
	revision  uint64
}

func newState() *state {
	return &state{
		sessions:  make(map[string]models.ClassSession),
		occupancy: make(map[Key]string),
		versions:  make(map[Key]uint64),
		writes:    make(map[Key]Write),
	}
}

func (s *state) clone() *state {
	c := &state{
		sessions:  make(map[string]models.ClassSession, len(s.sessions)),
		occupancy: make(map[Key]string, len(s.occupancy)),
		versions:  make(map[Key]uint64, len(s.versions)),
		writes:    make(map[Key]Write, len(s.writes)),
		revision:  s.revision,
	}
	for key, w := range s.writes {
		c.writes[key] = w
	}
	for id, session := range s.sessions {
		c.sessions[id] = session
	}
	for key, id := range s.occupancy {
		c.occupancy[key] = id
	}
	for key, v := range s.versions {
		c.versions[key] = v
	}
	return c
}

// Session returns a session by id.
func (s *state) Session(id string) (models.ClassSession, bool) {
	session, ok := s.sessions[id]
	return session, ok
}

// Occupant returns the session holding a cell.
func (s *state) Occupant(key Key) (string, bool) {
	id, ok := s.occupancy[key]
	return id, ok
}

// Version returns how many times a cell has changed.
func (s *state) Version(key Key) uint64 {
	return s.versions[key]
}

// LastWrite returns the commit that last changed a cell. Cells untouched
// since the last Load report false.
func (s *state) LastWrite(key Key) (Write, bool) {
	w, ok := s.writes[key]
	return w, ok
}

// Revision increases with every committed change.
func (s *state) Revision() uint64 {
	return s.revision
}

// Len returns the number of sessions.
func (s *state) Len() int {
	return len(s.sessions)
}

// Sessions returns sessions for a year ordered by grid position.
func (s *state) Sessions(year string) []models.ClassSession {
	return s.filter(func(c models.ClassSession) bool { return year == "" || c.AcademicYear == year })
}

// SessionsByFaculty returns a faculty member's sessions for a year.
func (s *state) SessionsByFaculty(facultyID, year string) []models.ClassSession {
	return s.filter(func(c models.ClassSession) bool {
		return c.FacultyID == facultyID && c.AcademicYear == year
	})
}

// SessionsByFacultyDay returns a faculty member's sessions on one day.
func (s *state) SessionsByFacultyDay(facultyID string, day models.Day, year string) []models.ClassSession {
	return s.filter(func(c models.ClassSession) bool {
		return c.FacultyID == facultyID && c.DayOfWeek == day && c.AcademicYear == year
	})
}

// SessionsByRoomSlot returns the sessions booked in a room cell.
func (s *state) SessionsByRoomSlot(roomID string, day models.Day, slot models.TimeSlot, year string) []models.ClassSession {
	id, ok := s.occupancy[RoomKey(year, roomID, day, slot)]
	if !ok {
		return nil
	}
	return []models.ClassSession{s.sessions[id]}
}

// SessionsBySection returns sessions of one batch/section.
func (s *state) SessionsBySection(batch, section, year string) []models.ClassSession {
	return s.filter(func(c models.ClassSession) bool {
		return c.Batch == batch && c.Section == section && c.AcademicYear == year
	})
}

func (s *state) filter(keep func(models.ClassSession) bool) []models.ClassSession {
	result := make([]models.ClassSession, 0)
	for _, session := range s.sessions {
		if keep(session) {
			result = append(result, session)
		}
	}
	SortSessions(result)
	return result
}

// SortSessions orders sessions by day, slot, then id.
func SortSessions(sessions []models.ClassSession) {
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if a.DayOfWeek.Index() != b.DayOfWeek.Index() {
			return a.DayOfWeek.Index() < b.DayOfWeek.Index()
		}
		if a.TimeSlot.Index() != b.TimeSlot.Index() {
			return a.TimeSlot.Index() < b.TimeSlot.Index()
		}
		return a.ID < b.ID
	})
}

func validatePlacement(session models.ClassSession) error {
	switch {
	case session.ID == "":
		return appErrors.Clone(appErrors.ErrValidation, "session id is required")
	case session.FacultyID == "":
		return appErrors.Clone(appErrors.ErrValidation, "session faculty is required")
	case session.AcademicYear == "":
		return appErrors.Clone(appErrors.ErrValidation, "session academic year is required")
	case !session.DayOfWeek.Valid():
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", session.DayOfWeek))
	case !session.TimeSlot.Valid():
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time slot %q", session.TimeSlot))
	}
	return nil
}

// undo reverts one applied step.
type undo func()

// place inserts a session, failing without side effects when a cell is taken.
func (s *state) place(session models.ClassSession, touched map[Key]struct{}) (undo, error) {
	if err := validatePlacement(session); err != nil {
		return nil, err
	}
	if _, exists := s.sessions[session.ID]; exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session %s already exists", session.ID))
	}
	keys := KeysOf(session)
	for _, key := range keys {
		if holder, taken := s.occupancy[key]; taken {
			return nil, conflictError(key, holder, ErrSlotOccupied)
		}
	}
	s.sessions[session.ID] = session
	for _, key := range keys {
		s.occupancy[key] = session.ID
		touched[key] = struct{}{}
	}
	return func() {
		delete(s.sessions, session.ID)
		for _, key := range keys {
			delete(s.occupancy, key)
		}
	}, nil
}

// remove deletes a session and frees its cells.
func (s *state) remove(id string, touched map[Key]struct{}) (undo, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	keys := KeysOf(session)
	delete(s.sessions, id)
	for _, key := range keys {
		delete(s.occupancy, key)
		touched[key] = struct{}{}
	}
	return func() {
		s.sessions[id] = session
		for _, key := range keys {
			s.occupancy[key] = id
		}
	}, nil
}

// move relocates a session; the removal is undone if the new cells are taken.
func (s *state) move(id string, day models.Day, slot models.TimeSlot, facultyID *string, touched map[Key]struct{}) (undo, error) {
	current, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	next := current
	next.DayOfWeek = day
	next.TimeSlot = slot
	if facultyID != nil && *facultyID != "" {
		next.FacultyID = *facultyID
	}
	freed := make(map[Key]struct{})
	undoRemove, err := s.remove(id, freed)
	if err != nil {
		return nil, err
	}
	taken := make(map[Key]struct{})
	undoPlace, err := s.place(next, taken)
	if err != nil {
		undoRemove()
		return nil, err
	}
	for key := range freed {
		touched[key] = struct{}{}
	}
	for key := range taken {
		touched[key] = struct{}{}
	}
	return func() {
		undoPlace()
		undoRemove()
	}, nil
}

func (s *state) apply(op Op, touched map[Key]struct{}) (undo, error) {
	switch op.Kind {
	case OpPlace:
		return s.place(op.Session, touched)
	case OpRemove:
		return s.remove(op.SessionID, touched)
	case OpMove:
		return s.move(op.SessionID, op.Day, op.Slot, op.FacultyID, touched)
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timetable operation %q", op.Kind))
}
