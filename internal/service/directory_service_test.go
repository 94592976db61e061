package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/models"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

type directoryRepoStub struct {
	calls   int
	faculty []models.FacultyProfile
	err     error
}

func (r *directoryRepoStub) ListFaculty(ctx context.Context) ([]models.FacultyProfile, error) {
	r.calls++
	return r.faculty, r.err
}

func (r *directoryRepoStub) ListRooms(ctx context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "R1", Name: "Hall", Capacity: 40}}, nil
}

func (r *directoryRepoStub) ListEnrollments(ctx context.Context) ([]models.SectionEnrollment, error) {
	return []models.SectionEnrollment{{Batch: "2022", Section: "A", Students: 35}}, nil
}

type memoryCache struct {
	items  map[string][]byte
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.items, key)
	return nil
}

type cacheMetricsStub struct {
	hits, misses int
}

func (m *cacheMetricsStub) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func TestDirectoryServiceCachesMasterData(t *testing.T) {
	repo := &directoryRepoStub{faculty: []models.FacultyProfile{faculty("F1", 0, "CS301")}}
	cache := newMemoryCache()
	metrics := &cacheMetricsStub{}
	svc := NewDirectoryService(repo, cache, metrics, time.Minute, 18, nil)

	first, err := svc.Directory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18, first.MaxWeeklyHours("F1"))

	second, err := svc.Directory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
	capacity, ok := second.RoomCapacity("R1")
	assert.True(t, ok)
	assert.Equal(t, 40, capacity)
	students, ok := second.Enrollment("2022", "A")
	assert.True(t, ok)
	assert.Equal(t, 35, students)

	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.Directory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestDirectoryServiceFallsBackWhenCacheFails(t *testing.T) {
	repo := &directoryRepoStub{faculty: []models.FacultyProfile{faculty("F1", 10)}}
	cache := newMemoryCache()
	cache.getErr = errors.New("redis unavailable")
	svc := NewDirectoryService(repo, cache, nil, time.Minute, 18, nil)

	dir, err := svc.Directory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, dir.MaxWeeklyHours("F1"))
}

func TestDirectoryServiceWithoutCache(t *testing.T) {
	repo := &directoryRepoStub{err: errors.New("db down")}
	svc := NewDirectoryService(repo, nil, nil, 0, 18, nil)

	_, err := svc.Directory(context.Background())
	require.Error(t, err)
	assert.NoError(t, svc.Invalidate(context.Background()))
}

func TestStaticDirectory(t *testing.T) {
	_, err := NewStaticDirectory(nil).Directory(context.Background())
	require.Error(t, err)

	dir := directoryOf([]models.FacultyProfile{faculty("F1", 12)}, nil, nil)
	got, err := NewStaticDirectory(dir).Directory(context.Background())
	require.NoError(t, err)
	assert.Same(t, dir, got)
}
