package timetable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/models"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

const testYear = "2024-25"

func session(id, faculty, room string, day models.Day, slot models.TimeSlot) models.ClassSession {
	return models.ClassSession{
		ID:           id,
		SubjectID:    "CS301",
		FacultyID:    faculty,
		RoomID:       room,
		Batch:        "2022",
		Section:      "A",
		DayOfWeek:    day,
		TimeSlot:     slot,
		SessionType:  models.SessionTypeLecture,
		AcademicYear: testYear,
	}
}

func seededStore(t *testing.T, sessions ...models.ClassSession) *Store {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.Load(sessions))
	return store
}

func assertUnique(t *testing.T, sessions []models.ClassSession) {
	t.Helper()
	seen := make(map[Key]string)
	for _, s := range sessions {
		for _, key := range KeysOf(s) {
			if holder, ok := seen[key]; ok {
				t.Fatalf("sessions %s and %s share %s", holder, s.ID, key)
			}
			seen[key] = s.ID
		}
	}
}

type failingPersister struct {
	calls int
	err   error
}

func (p *failingPersister) PersistChanges(ctx context.Context, changes []Change) error {
	p.calls++
	return p.err
}

func TestStorePlaceRejectsDoubleBooking(t *testing.T) {
	store := seededStore(t, session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"))

	_, err := store.Place(context.Background(), session("s2", "fA", "R202", models.DayMonday, "09:00-10:00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.True(t, errors.Is(err, ErrSlotOccupied))

	var slotErr *SlotConflict
	require.True(t, errors.As(err, &slotErr))
	assert.Equal(t, "s1", slotErr.HolderID)
	assert.Equal(t, KeyFaculty, slotErr.Key.Kind)

	_, err = store.Place(context.Background(), session("s3", "fB", "R101", models.DayMonday, "09:00-10:00"))
	require.Error(t, err)
	require.True(t, errors.As(err, &slotErr))
	assert.Equal(t, KeyRoom, slotErr.Key.Kind)

	assert.Len(t, store.List(testYear), 1)
}

func TestStoreSameCellDifferentYearIsAllowed(t *testing.T) {
	store := seededStore(t, session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"))
	other := session("s2", "fA", "R101", models.DayMonday, "09:00-10:00")
	other.AcademicYear = "2025-26"

	_, err := store.Place(context.Background(), other)
	require.NoError(t, err)
	assert.Len(t, store.List(""), 2)
	assert.Len(t, store.List(testYear), 1)
}

func TestStoreMoveIsAtomic(t *testing.T) {
	store := seededStore(t,
		session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"),
		session("s2", "fB", "R202", models.DayTuesday, "10:00-11:00"),
	)

	// target faculty busy: the session must stay where it was
	target := "fB"
	_, err := store.Move(context.Background(), "s1", models.DayTuesday, "10:00-11:00", &target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	current, err := store.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, models.DayMonday, current.DayOfWeek)
	assert.Equal(t, "fA", current.FacultyID)
	assert.Len(t, store.SessionsByRoomSlot("R101", models.DayMonday, "09:00-10:00", testYear), 1)

	result, err := store.Move(context.Background(), "s1", models.DayTuesday, "11:00-12:00", &target)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, models.DayMonday, result.Changes[0].Before.DayOfWeek)
	assert.Equal(t, "fB", result.Changes[0].After.FacultyID)

	assert.Empty(t, store.SessionsByRoomSlot("R101", models.DayMonday, "09:00-10:00", testYear))
	assert.Len(t, store.SessionsByFacultyDay("fB", models.DayTuesday, testYear), 2)
	assertUnique(t, store.List(testYear))
}

func TestStoreMoveIntoOwnCell(t *testing.T) {
	store := seededStore(t, session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"))

	_, err := store.Move(context.Background(), "s1", models.DayMonday, "09:00-10:00", nil)
	require.NoError(t, err)
	assert.Len(t, store.List(testYear), 1)
}

func TestStoreRemoveUnknownSession(t *testing.T) {
	store := seededStore(t)

	_, err := store.Remove(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStoreCommitRollsBackWholeBatch(t *testing.T) {
	store := seededStore(t,
		session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"),
		session("s2", "fA", "R101", models.DayMonday, "10:00-11:00"),
		session("s3", "fB", "R303", models.DayWednesday, "09:00-10:00"),
	)
	before := store.Revision()

	_, err := store.Commit(context.Background(), Batch{Ops: []Op{
		RemoveOp("s2"),
		MoveOp("s1", models.DayTuesday, "09:00-10:00", nil),
		MoveOp("s3", models.DayTuesday, "09:00-10:00", strPtr("fA")),
	}})
	require.Error(t, err)

	assert.Equal(t, before, store.Revision())
	got, err := store.Session("s2")
	require.NoError(t, err)
	assert.Equal(t, models.TimeSlot("10:00-11:00"), got.TimeSlot)
	got, err = store.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, models.DayMonday, got.DayOfWeek)
	assert.Len(t, store.List(testYear), 3)
	assertUnique(t, store.List(testYear))
}

func TestStoreCommitDetectsStaleVersions(t *testing.T) {
	store := seededStore(t, session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"))
	snap := store.Snapshot()
	cell := RoomKey(testYear, "R101", models.DayMonday, "10:00-11:00")
	expect := snap.Versions(cell)

	_, err := store.Place(context.Background(), session("s2", "fB", "R101", models.DayMonday, "10:00-11:00"))
	require.NoError(t, err)
	_, err = store.Remove(context.Background(), "s2")
	require.NoError(t, err)

	// the cell is free again but it changed since the snapshot
	_, err = store.Commit(context.Background(), Batch{
		Ops:    []Op{MoveOp("s1", models.DayMonday, "10:00-11:00", nil)},
		Expect: expect,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionConflict))
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	got, _ := store.Session("s1")
	assert.Equal(t, models.TimeSlot("09:00-10:00"), got.TimeSlot)
}

func TestStorePersisterFailureRollsBack(t *testing.T) {
	persister := &failingPersister{err: fmt.Errorf("db down")}
	store := NewStore(WithPersister(persister))
	require.NoError(t, store.Load([]models.ClassSession{session("s1", "fA", "R101", models.DayMonday, "09:00-10:00")}))

	_, err := store.Move(context.Background(), "s1", models.DayFriday, "16:00-17:00", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, 1, persister.calls)

	got, _ := store.Session("s1")
	assert.Equal(t, models.DayMonday, got.DayOfWeek)
	assert.Len(t, store.SessionsByRoomSlot("R101", models.DayMonday, "09:00-10:00", testYear), 1)
	assert.Empty(t, store.SessionsByRoomSlot("R101", models.DayFriday, "16:00-17:00", testYear))
}

func TestStoreConcurrentPlacementHasOneWinner(t *testing.T) {
	store := seededStore(t)
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := session(fmt.Sprintf("s%d", i), fmt.Sprintf("f%d", i), "R101", models.DayMonday, "10:00-11:00")
			_, err := store.Place(context.Background(), candidate)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, appErrors.ErrConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assertUnique(t, store.List(testYear))
}

func TestSnapshotIsIsolatedFromWrites(t *testing.T) {
	store := seededStore(t, session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"))
	snap := store.Snapshot()

	_, err := store.Move(context.Background(), "s1", models.DayTuesday, "09:00-10:00", nil)
	require.NoError(t, err)

	got, ok := snap.Session("s1")
	require.True(t, ok)
	assert.Equal(t, models.DayMonday, got.DayOfWeek)

	draft := snap.Fork()
	require.NoError(t, draft.Apply(RemoveOp("s1")))
	_, ok = snap.Session("s1")
	assert.True(t, ok)
}

func TestLoadRejectsInvariantViolations(t *testing.T) {
	store := NewStore()
	err := store.Load([]models.ClassSession{
		session("s1", "fA", "R101", models.DayMonday, "09:00-10:00"),
		session("s2", "fA", "R102", models.DayMonday, "09:00-10:00"),
	})
	require.Error(t, err)
	assert.Empty(t, store.List(""))
}

func strPtr(v string) *string { return &v }

func TestStoreRecordsLastWriteOrigin(t *testing.T) {
	store := seededStore(t, session("s1", "fA", "R1", models.DayMonday, "09:00-10:00"))
	ctx := context.Background()
	target := RoomKey(testYear, "R1", models.DayTuesday, "10:00-11:00")

	_, seeded := store.Snapshot().LastWrite(RoomKey(testYear, "R1", models.DayMonday, "09:00-10:00"))
	assert.False(t, seeded)

	committed, err := store.Commit(ctx, Batch{
		Ops:    []Op{MoveOp("s1", models.DayTuesday, "10:00-11:00", nil)},
		Origin: "req-1",
	})
	require.NoError(t, err)

	snap := store.Snapshot()
	write, ok := snap.LastWrite(target)
	require.True(t, ok)
	assert.Equal(t, Write{Revision: committed.Revision, Origin: "req-1"}, write)
	freed, ok := snap.LastWrite(RoomKey(testYear, "R1", models.DayMonday, "09:00-10:00"))
	require.True(t, ok)
	assert.Equal(t, "req-1", freed.Origin)

	_, err = store.Place(ctx, session("s2", "fB", "R2", models.DayTuesday, "10:00-11:00"))
	require.NoError(t, err)
	write, ok = store.Snapshot().LastWrite(FacultyKey(testYear, "fB", models.DayTuesday, "10:00-11:00"))
	require.True(t, ok)
	assert.Empty(t, write.Origin)
	assert.Greater(t, write.Revision, committed.Revision)
}
