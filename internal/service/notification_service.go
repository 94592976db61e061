package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/pkg/jobs"
)

// JobTypeOutcome tags queued outcome notifications.
const JobTypeOutcome = "change_request.outcome"

// DefaultEnqueueTimeout bounds how long Notify waits for queue space.
const DefaultEnqueueTimeout = 200 * time.Millisecond

type jobDispatcher interface {
	EnqueueContext(ctx context.Context, job jobs.Job) error
}

type outcomePublisher interface {
	PublishOutcome(ctx context.Context, event models.OutcomeEvent) error
}

// NotificationService hands request outcomes to the background queue so the
// approval path never waits on delivery.
type NotificationService struct {
	queue   jobDispatcher
	logger  *zap.Logger
	timeout time.Duration
}

// NotificationOption configures NotificationService.
type NotificationOption func(*NotificationService)

// WithEnqueueTimeout overrides DefaultEnqueueTimeout.
func WithEnqueueTimeout(timeout time.Duration) NotificationOption {
	return func(s *NotificationService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewNotificationService constructs the service. A nil queue only logs.
func NewNotificationService(queue jobDispatcher, logger *zap.Logger, opts ...NotificationOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{queue: queue, logger: logger, timeout: DefaultEnqueueTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Notify enqueues an outcome event. It waits at most the enqueue timeout, or
// less when ctx ends first; a full queue drops the event with a warning.
func (s *NotificationService) Notify(ctx context.Context, event models.OutcomeEvent) {
	s.logger.Info("change request outcome",
		zap.String("request_id", event.RequestID),
		zap.String("kind", string(event.Kind)),
		zap.String("status", string(event.Status)),
		zap.String("faculty_id", event.FacultyID),
	)
	if s.queue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.queue.EnqueueContext(ctx, jobs.Job{ID: uuid.NewString(), Type: JobTypeOutcome, Payload: event}); err != nil {
		s.logger.Warn("outcome notification dropped", zap.String("request_id", event.RequestID), zap.Error(err))
	}
}

// OutcomeWorker publishes queued outcome events.
type OutcomeWorker struct {
	publisher outcomePublisher
	logger    *zap.Logger
}

// NewOutcomeWorker constructs a worker.
func NewOutcomeWorker(publisher outcomePublisher, logger *zap.Logger) *OutcomeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeWorker{publisher: publisher, logger: logger}
}

// Handle processes one queue job; returning an error schedules a retry.
func (w *OutcomeWorker) Handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.OutcomeEvent)
	if !ok {
		w.logger.Error("dropping malformed outcome job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := w.publisher.PublishOutcome(ctx, event); err != nil {
		return fmt.Errorf("publish outcome for %s: %w", event.RequestID, err)
	}
	w.logger.Debug("outcome published", zap.String("request_id", event.RequestID), zap.Int("attempt", job.Attempt))
	return nil
}
