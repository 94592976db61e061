package timetable

import "github.com/noah-isme/timetable-change-api/internal/models"

// OpKind names a store mutation.
type OpKind string

const (
	OpPlace  OpKind = "PLACE"
	OpRemove OpKind = "REMOVE"
	OpMove   OpKind = "MOVE"
)

// Op is one step of a batch.
type Op struct {
	Kind      OpKind
	Session   models.ClassSession
	SessionID string
	Day       models.Day
	Slot      models.TimeSlot
	FacultyID *string
}

// PlaceOp inserts a new session.
func PlaceOp(session models.ClassSession) Op {
	return Op{Kind: OpPlace, Session: session, SessionID: session.ID}
}

// RemoveOp deletes a session.
func RemoveOp(sessionID string) Op {
	return Op{Kind: OpRemove, SessionID: sessionID}
}

// MoveOp relocates a session and optionally reassigns its faculty.
func MoveOp(sessionID string, day models.Day, slot models.TimeSlot, facultyID *string) Op {
	return Op{Kind: OpMove, SessionID: sessionID, Day: day, Slot: slot, FacultyID: facultyID}
}

// Batch is an all-or-nothing group of operations. Expect pins key versions
// read by the caller; a mismatch aborts the batch with ErrVersionConflict.
// Origin names the writer, such as a change request id, and is recorded on
// every cell the batch touches.
type Batch struct {
	Ops    []Op
	Expect map[Key]uint64
	Origin string
}

// Change records a session before and after a committed batch. Before is nil
// for placements and After is nil for removals.
type Change struct {
	Before *models.ClassSession
	After  *models.ClassSession
}

// CommitResult describes a successful commit.
type CommitResult struct {
	Revision uint64
	Changes  []Change
}
