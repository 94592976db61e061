package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/models"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

const directoryCacheKey = "directory:v1"

type directoryRepository interface {
	ListFaculty(ctx context.Context) ([]models.FacultyProfile, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListEnrollments(ctx context.Context) ([]models.SectionEnrollment, error)
}

// DirectoryCache abstracts persistence for cached payloads.
type DirectoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// DirectoryService assembles master data from Postgres, fronted by Redis.
type DirectoryService struct {
	repo            directoryRepository
	cache           DirectoryCache
	metrics         cacheMetrics
	ttl             time.Duration
	defaultMaxHours int
	logger          *zap.Logger
}

// NewDirectoryService constructs the service. cache and metrics may be nil.
func NewDirectoryService(repo directoryRepository, cache DirectoryCache, metrics cacheMetrics, ttl time.Duration, defaultMaxHours int, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DirectoryService{
		repo:            repo,
		cache:           cache,
		metrics:         metrics,
		ttl:             ttl,
		defaultMaxHours: defaultMaxHours,
		logger:          logger,
	}
}

// Directory returns the current master data. Cache failures fall back to the
// database.
func (s *DirectoryService) Directory(ctx context.Context) (*models.Directory, error) {
	if s.cache != nil {
		start := time.Now()
		var cached models.Directory
		err := s.cache.Get(ctx, directoryCacheKey, &cached)
		hit := err == nil
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(hit, time.Since(start))
		}
		if hit {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache get failed", zap.Error(err))
		}
	}

	dir, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, directoryCacheKey, dir, s.ttl); err != nil {
			s.logger.Warn("directory cache set failed", zap.Error(err))
		}
	}
	return dir, nil
}

// Invalidate drops the cached directory so the next read hits the database.
func (s *DirectoryService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, directoryCacheKey)
}

func (s *DirectoryService) load(ctx context.Context) (*models.Directory, error) {
	faculty, err := s.repo.ListFaculty(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.repo.ListEnrollments(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewDirectory(faculty, rooms, enrollments, s.defaultMaxHours), nil
}

// StaticDirectory serves a fixed directory, e.g. one loaded from a seed file.
type StaticDirectory struct {
	dir *models.Directory
}

// NewStaticDirectory wraps dir.
func NewStaticDirectory(dir *models.Directory) *StaticDirectory {
	return &StaticDirectory{dir: dir}
}

// Directory returns the wrapped directory.
func (s *StaticDirectory) Directory(ctx context.Context) (*models.Directory, error) {
	if s.dir == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "directory not loaded")
	}
	return s.dir, nil
}
