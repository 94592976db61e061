package timetable

import (
	"github.com/noah-isme/timetable-change-api/internal/models"
)

// View is the read surface shared by snapshots and drafts.
type View interface {
	Session(id string) (models.ClassSession, bool)
	Occupant(key Key) (string, bool)
	Sessions(year string) []models.ClassSession
	SessionsByFaculty(facultyID, year string) []models.ClassSession
	SessionsByFacultyDay(facultyID string, day models.Day, year string) []models.ClassSession
	SessionsByRoomSlot(roomID string, day models.Day, slot models.TimeSlot, year string) []models.ClassSession
	SessionsBySection(batch, section, year string) []models.ClassSession
}

// Snapshot is an immutable, internally consistent copy of the store.
type Snapshot struct {
	*state
}

// NewSnapshot indexes sessions into a standalone snapshot. Sessions violating
// uniqueness are rejected.
func NewSnapshot(sessions []models.ClassSession) (*Snapshot, error) {
	st := newState()
	touched := make(map[Key]struct{})
	for _, session := range sessions {
		if _, err := st.place(session, touched); err != nil {
			return nil, err
		}
	}
	return &Snapshot{state: st}, nil
}

// Fork returns a mutable working copy for what-if evaluation.
func (s *Snapshot) Fork() *Draft {
	return &Draft{state: s.state.clone()}
}

// Versions returns the versions of the given keys as observed by this snapshot.
func (s *Snapshot) Versions(keys ...Key) map[Key]uint64 {
	versions := make(map[Key]uint64, len(keys))
	for _, key := range keys {
		versions[key] = s.state.Version(key)
	}
	return versions
}

// Draft is a private working copy; changes never reach the store.
type Draft struct {
	*state
}

// Apply runs one operation against the draft. A failed operation leaves the
// draft unchanged.
func (d *Draft) Apply(op Op) error {
	_, err := d.state.apply(op, make(map[Key]struct{}))
	return err
}
