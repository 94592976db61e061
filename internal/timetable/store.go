package timetable

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/models"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

// Persister receives committed changes while the store still holds its write
// lock. Returning an error rolls the in-memory change back.
type Persister interface {
	PersistChanges(ctx context.Context, changes []Change) error
}

// Store is the authoritative, shared timetable.
type Store struct {
	mu        sync.RWMutex
	state     *state
	persister Persister
	logger    *zap.Logger
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPersister writes every commit through to durable storage.
func WithPersister(p Persister) StoreOption {
	return func(s *Store) {
		s.persister = p
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:  newState(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store contents with a seed produced by the generation
// engine. Nothing is persisted.
func (s *Store) Load(sessions []models.ClassSession) error {
	snap, err := NewSnapshot(sessions)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.state.revision = s.state.revision + 1
	for key := range snap.state.occupancy {
		snap.state.versions[key] = s.state.versions[key] + 1
	}
	for key, version := range s.state.versions {
		if _, ok := snap.state.versions[key]; !ok {
			snap.state.versions[key] = version + 1
		}
	}
	s.state = snap.state
	s.logger.Info("timetable loaded", zap.Int("sessions", len(sessions)))
	return nil
}

// Snapshot returns an immutable copy of the current timetable.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{state: s.state.clone()}
}

// Revision returns the current commit counter.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.revision
}

// Session returns a session by id.
func (s *Store) Session(id string) (models.ClassSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.state.Session(id)
	if !ok {
		return models.ClassSession{}, notFound(id)
	}
	return session, nil
}

// List returns every session of a year; an empty year lists all.
func (s *Store) List(year string) []models.ClassSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Sessions(year)
}

// SessionsByFacultyDay returns a faculty member's sessions on one day.
func (s *Store) SessionsByFacultyDay(facultyID string, day models.Day, year string) []models.ClassSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SessionsByFacultyDay(facultyID, day, year)
}

// SessionsByRoomSlot returns the session booked in a room cell, if any.
func (s *Store) SessionsByRoomSlot(roomID string, day models.Day, slot models.TimeSlot, year string) []models.ClassSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SessionsByRoomSlot(roomID, day, slot, year)
}

// Place inserts a session.
func (s *Store) Place(ctx context.Context, session models.ClassSession) (*CommitResult, error) {
	return s.Commit(ctx, Batch{Ops: []Op{PlaceOp(session)}})
}

// Remove deletes a session.
func (s *Store) Remove(ctx context.Context, sessionID string) (*CommitResult, error) {
	return s.Commit(ctx, Batch{Ops: []Op{RemoveOp(sessionID)}})
}

// Move relocates a session atomically: either the old cells are released and
// the new ones taken, or nothing changes.
func (s *Store) Move(ctx context.Context, sessionID string, day models.Day, slot models.TimeSlot, facultyID *string) (*CommitResult, error) {
	return s.Commit(ctx, Batch{Ops: []Op{MoveOp(sessionID, day, slot, facultyID)}})
}

// Commit applies a batch all-or-nothing under the write lock.
func (s *Store) Commit(ctx context.Context, batch Batch) (*CommitResult, error) {
	if len(batch.Ops) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable batch has no operations")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersions(batch.Expect); err != nil {
		return nil, err
	}

	before := make(map[string]*models.ClassSession)
	for _, op := range batch.Ops {
		if _, seen := before[op.SessionID]; seen {
			continue
		}
		if current, ok := s.state.sessions[op.SessionID]; ok {
			copied := current
			before[op.SessionID] = &copied
		} else {
			before[op.SessionID] = nil
		}
	}

	touched := make(map[Key]struct{})
	undos := make([]undo, 0, len(batch.Ops))
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}
	for _, op := range batch.Ops {
		u, err := s.state.apply(op, touched)
		if err != nil {
			rollback()
			s.logger.Debug("timetable batch rejected", zap.String("op", string(op.Kind)), zap.String("session_id", op.SessionID), zap.Error(err))
			return nil, err
		}
		undos = append(undos, u)
	}

	now := s.now().UTC()
	changes := make([]Change, 0, len(before))
	for _, id := range sortedIDs(before) {
		change := Change{Before: before[id]}
		if current, ok := s.state.sessions[id]; ok {
			current.UpdatedAt = now
			s.state.sessions[id] = current
			after := current
			change.After = &after
		}
		if change.Before == nil && change.After == nil {
			continue
		}
		changes = append(changes, change)
	}

	if s.persister != nil {
		if err := s.persister.PersistChanges(ctx, changes); err != nil {
			rollback()
			s.logger.Error("timetable persist failed, change rolled back", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable change")
		}
	}

	s.state.revision++
	for key := range touched {
		s.state.versions[key]++
		s.state.writes[key] = Write{Revision: s.state.revision, Origin: batch.Origin}
	}
	s.logger.Debug("timetable batch committed", zap.Int("ops", len(batch.Ops)), zap.Uint64("revision", s.state.revision))
	return &CommitResult{Revision: s.state.revision, Changes: changes}, nil
}

func (s *Store) checkVersions(expect map[Key]uint64) error {
	if len(expect) == 0 {
		return nil
	}
	keys := make([]Key, 0, len(expect))
	for key := range expect {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		if s.state.versions[key] != expect[key] {
			holder, _ := s.state.Occupant(key)
			return conflictError(key, holder, ErrVersionConflict)
		}
	}
	return nil
}

func sortedIDs(m map[string]*models.ClassSession) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
