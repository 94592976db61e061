package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

// DefaultMaxCommitAttempts bounds commit retries after a version race.
const DefaultMaxCommitAttempts = 3

// Apply outcomes recorded in metrics.
const (
	ApplyOutcomeApplied = "applied"
	ApplyOutcomeStale   = "stale"
	ApplyOutcomeRace    = "race_lost"
	ApplyOutcomeFailed  = "failed"
)

type timetableCommitter interface {
	Snapshot() *timetable.Snapshot
	Commit(ctx context.Context, batch timetable.Batch) (*timetable.CommitResult, error)
}

// ApplyResult describes a committed request.
type ApplyResult struct {
	Request        *models.ChangeRequest
	UpdatedSession *models.ClassSession
	Plan           *models.RemediationPlan
	Changes        []timetable.Change
}

// ChangeApplier commits approved requests to the timetable, re-validating
// against the live store immediately before each commit.
type ChangeApplier struct {
	store        timetableCommitter
	repo         changeRequestStore
	directory    DirectoryProvider
	audit        auditLogger
	notifier     outcomeNotifier
	metrics      changeMetrics
	logger       *zap.Logger
	year         string
	maxAttempts  int
	limit        int
	now          func() time.Time
	beforeCommit func(ctx context.Context, attempt int)
}

// ChangeApplierOption configures the applier.
type ChangeApplierOption func(*ChangeApplier)

// WithApplierAcademicYear selects the year leave plans are computed for.
func WithApplierAcademicYear(year string) ChangeApplierOption {
	return func(a *ChangeApplier) {
		if year != "" {
			a.year = year
		}
	}
}

// WithMaxCommitAttempts bounds retries after a version race.
func WithMaxCommitAttempts(attempts int) ChangeApplierOption {
	return func(a *ChangeApplier) {
		if attempts > 0 {
			a.maxAttempts = attempts
		}
	}
}

// WithApplierNotifier sets the outcome event sink.
func WithApplierNotifier(notifier outcomeNotifier) ChangeApplierOption {
	return func(a *ChangeApplier) {
		if notifier != nil {
			a.notifier = notifier
		}
	}
}

// WithApplierMetrics records apply outcomes.
func WithApplierMetrics(metrics changeMetrics) ChangeApplierOption {
	return func(a *ChangeApplier) {
		if metrics != nil {
			a.metrics = metrics
		}
	}
}

// WithApplierClock overrides the time source.
func WithApplierClock(now func() time.Time) ChangeApplierOption {
	return func(a *ChangeApplier) {
		if now != nil {
			a.now = now
		}
	}
}

// NewChangeApplier constructs the applier.
func NewChangeApplier(store timetableCommitter, repo changeRequestStore, directory DirectoryProvider, audit auditLogger, logger *zap.Logger, opts ...ChangeApplierOption) *ChangeApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &ChangeApplier{
		store:       store,
		repo:        repo,
		directory:   directory,
		audit:       audit,
		notifier:    noopNotifier{},
		metrics:     noopChangeMetrics{},
		logger:      logger,
		year:        "2024-25",
		maxAttempts: DefaultMaxCommitAttempts,
		limit:       DefaultSuggestionLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Apply commits an APPROVED request. On success the request becomes APPLIED;
// on a stale validation or a lost race it returns to VALIDATED and nothing in
// the timetable changes.
func (a *ChangeApplier) Apply(ctx context.Context, request *models.ChangeRequest, reviewerID string) (*ApplyResult, error) {
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is required")
	}
	if request.Status != models.RequestStatusApproved {
		return nil, stateTransitionError(request.Status, "apply")
	}
	dir, err := a.directory.Directory(ctx)
	if err != nil {
		a.revert(ctx, request, nil, reviewerID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
	}

	var result *ApplyResult
	switch request.Kind {
	case models.RequestKindSwap:
		result, err = a.applySwap(ctx, request, dir, reviewerID)
	case models.RequestKindLeave:
		result, err = a.applyLeave(ctx, request, dir, reviewerID)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request kind %q", request.Kind))
		a.revert(ctx, request, nil, reviewerID, err)
	}
	if err != nil {
		a.metrics.ObserveApply(request.Kind, applyOutcome(err))
		return nil, err
	}
	a.metrics.ObserveApply(request.Kind, ApplyOutcomeApplied)
	return result, nil
}

func (a *ChangeApplier) applySwap(ctx context.Context, request *models.ChangeRequest, dir *models.Directory, reviewerID string) (*ApplyResult, error) {
	swap := request.Swap
	for attempt := 1; ; attempt++ {
		snap := a.store.Snapshot()
		original, ok := snap.Session(swap.OriginalSessionID)
		if !ok {
			err := appErrors.Clone(appErrors.ErrStaleValidation, fmt.Sprintf("session %s no longer exists", swap.OriginalSessionID))
			a.revert(ctx, request, nil, reviewerID, err)
			return nil, err
		}
		candidate := swapCandidate(original, swap)
		conflicts := DetectConflicts(snap, dir, candidate, original.ID)
		if models.HasHighSeverity(conflicts) {
			report := NewValidationReport(conflicts, RankSlots(snap, dir, original, candidate.FacultyID, a.limit), a.now())
			report.Revision = snap.Revision()
			var err error
			if attempt == 1 && !lostToApproval(snap, request, candidate, original.ID) {
				err = appErrors.WithDetails(appErrors.ErrStaleValidation, "timetable changed since validation, re-validate the request", report)
			} else {
				err = appErrors.WithDetails(appErrors.ErrConflict, "a concurrent change took the requested slot", report)
			}
			a.revert(ctx, request, report, reviewerID, err)
			return nil, err
		}

		keys := append(timetable.KeysOf(original), timetable.KeysOf(candidate)...)
		batch := timetable.Batch{
			Ops:    []timetable.Op{timetable.MoveOp(original.ID, candidate.DayOfWeek, candidate.TimeSlot, &candidate.FacultyID)},
			Expect: snap.Versions(keys...),
			Origin: request.ID,
		}
		if a.beforeCommit != nil {
			a.beforeCommit(ctx, attempt)
		}
		committed, err := a.store.Commit(ctx, batch)
		if err == nil {
			updated := candidate
			if len(committed.Changes) > 0 && committed.Changes[0].After != nil {
				updated = *committed.Changes[0].After
			}
			return a.finish(ctx, request, reviewerID, &ApplyResult{UpdatedSession: &updated, Changes: committed.Changes}, nil)
		}
		if !errors.Is(err, appErrors.ErrConflict) {
			a.revert(ctx, request, nil, reviewerID, err)
			return nil, err
		}
		a.metrics.IncCommitRace(request.Kind)
		a.logger.Info("swap commit lost a race", zap.String("request_id", request.ID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt >= a.maxAttempts {
			conflict := appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "timetable kept changing during apply, re-validate the request")
			a.revert(ctx, request, nil, reviewerID, conflict)
			return nil, conflict
		}
	}
}

func (a *ChangeApplier) applyLeave(ctx context.Context, request *models.ChangeRequest, dir *models.Directory, reviewerID string) (*ApplyResult, error) {
	leave := request.Leave
	for attempt := 1; ; attempt++ {
		snap := a.store.Snapshot()
		plan, err := AnalyzeLeave(snap, dir, a.year, leave.FacultyID, leave.StartDate, leave.EndDate)
		if err != nil {
			a.revert(ctx, request, nil, reviewerID, err)
			return nil, err
		}
		if len(plan.Items) == 0 {
			return a.finish(ctx, request, reviewerID, &ApplyResult{Plan: plan}, plan)
		}
		batch, err := PlanBatch(snap, plan)
		if err != nil {
			a.revert(ctx, request, nil, reviewerID, err)
			return nil, err
		}
		batch.Origin = request.ID
		if a.beforeCommit != nil {
			a.beforeCommit(ctx, attempt)
		}
		committed, err := a.store.Commit(ctx, batch)
		if err == nil {
			return a.finish(ctx, request, reviewerID, &ApplyResult{Plan: plan, Changes: committed.Changes}, plan)
		}
		if !errors.Is(err, appErrors.ErrConflict) {
			a.revert(ctx, request, nil, reviewerID, err)
			return nil, err
		}
		a.metrics.IncCommitRace(request.Kind)
		a.logger.Info("leave commit lost a race", zap.String("request_id", request.ID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt >= a.maxAttempts {
			stale := appErrors.Wrap(err, appErrors.ErrStaleValidation.Code, appErrors.ErrStaleValidation.Status, "timetable changed while applying leave, re-validate the request")
			a.revert(ctx, request, nil, reviewerID, stale)
			return nil, stale
		}
	}
}

func (a *ChangeApplier) finish(ctx context.Context, request *models.ChangeRequest, reviewerID string, result *ApplyResult, plan *models.RemediationPlan) (*ApplyResult, error) {
	now := a.now().UTC()
	transition := models.StatusTransition{
		ID:   request.ID,
		From: []models.RequestStatus{models.RequestStatusApproved},
		To:   models.RequestStatusApplied,
		At:   now,
	}
	if plan != nil && request.Leave != nil {
		leave := *request.Leave
		leave.RemediationPlan = plan
		leave.AffectedSessionIDs = plan.SessionIDs()
		transition.Leave = &leave
		request.Leave = &leave
	}
	if err := transitionRequest(ctx, a.repo, transition); err != nil {
		// The timetable already holds the change; the record must be repaired by hand.
		a.logger.Error("timetable change applied but request status not updated", zap.String("request_id", request.ID), zap.Error(err))
		return nil, err
	}
	request.Status = models.RequestStatusApplied
	request.UpdatedAt = now
	result.Request = request

	a.auditApply(ctx, request, reviewerID, result)
	a.notifier.Notify(ctx, models.OutcomeEvent{
		RequestID:  request.ID,
		Kind:       request.Kind,
		Status:     request.Status,
		FacultyID:  request.FacultyID,
		ReviewedBy: reviewerID,
		Notes:      derefString(request.AdminNotes),
		OccurredAt: now,
	})
	a.logger.Info("change request applied",
		zap.String("request_id", request.ID),
		zap.String("kind", string(request.Kind)),
		zap.Int("changes", len(result.Changes)),
	)
	return result, nil
}

// revert returns an APPROVED request to VALIDATED after an aborted apply.
func (a *ChangeApplier) revert(ctx context.Context, request *models.ChangeRequest, report *models.ValidationReport, reviewerID string, cause error) {
	now := a.now().UTC()
	if err := transitionRequest(ctx, a.repo, models.StatusTransition{
		ID:         request.ID,
		From:       []models.RequestStatus{models.RequestStatusApproved},
		To:         models.RequestStatusValidated,
		LastReport: report,
		At:         now,
	}); err != nil {
		a.logger.Error("failed to revert change request", zap.String("request_id", request.ID), zap.Error(err))
	} else {
		request.Status = models.RequestStatusValidated
		request.UpdatedAt = now
		if report != nil {
			request.LastReport = report
		}
	}
	if a.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"reason": cause.Error()})
	log := &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionChangeRequestAbort,
		Resource:   models.AuditResourceChangeRequest,
		ResourceID: &request.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  models.AuditActorApplier,
	}
	if err := a.audit.CreateAuditLog(ctx, log); err != nil {
		a.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (a *ChangeApplier) auditApply(ctx context.Context, request *models.ChangeRequest, reviewerID string, result *ApplyResult) {
	if a.audit == nil {
		return
	}
	before := make([]*models.ClassSession, 0, len(result.Changes))
	after := make([]*models.ClassSession, 0, len(result.Changes))
	for _, change := range result.Changes {
		before = append(before, change.Before)
		after = append(after, change.After)
	}
	oldValues, err := marshalAudit(before)
	if err != nil {
		a.logger.Warn("failed to encode audit payload", zap.Error(err))
	}
	newValues, err := marshalAudit(map[string]interface{}{
		"request_id": request.ID,
		"kind":       request.Kind,
		"sessions":   after,
		"plan":       result.Plan,
	})
	if err != nil {
		a.logger.Warn("failed to encode audit payload", zap.Error(err))
	}
	resourceID := request.ID
	resource := models.AuditResourceChangeRequest
	if result.UpdatedSession != nil {
		resourceID = result.UpdatedSession.ID
		resource = models.AuditResourceTimetableSession
	}
	log := &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionChangeRequestApply,
		Resource:   resource,
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  models.AuditActorApplier,
	}
	if err := a.audit.CreateAuditLog(ctx, log); err != nil {
		a.logger.Warn("failed to persist audit log", zap.Error(err), zap.String("request_id", request.ID))
	}
}

// lostToApproval reports whether a cell the candidate needs was taken by
// another request's apply after this request was last validated.
func lostToApproval(snap *timetable.Snapshot, request *models.ChangeRequest, candidate models.ClassSession, selfID string) bool {
	var since uint64
	if request.LastReport != nil {
		since = request.LastReport.Revision
	}
	for _, key := range timetable.KeysOf(candidate) {
		holder, taken := snap.Occupant(key)
		if !taken || holder == selfID {
			continue
		}
		write, ok := snap.LastWrite(key)
		if ok && write.Origin != "" && write.Origin != request.ID && write.Revision > since {
			return true
		}
	}
	return false
}

func applyOutcome(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrStaleValidation):
		return ApplyOutcomeStale
	case errors.Is(err, appErrors.ErrConflict):
		return ApplyOutcomeRace
	default:
		return ApplyOutcomeFailed
	}
}

func marshalAudit(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
