package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/dto"
	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

type changeRequestStore interface {
	Create(ctx context.Context, request *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	TransitionStatus(ctx context.Context, transition models.StatusTransition) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type timetableSource interface {
	Snapshot() *timetable.Snapshot
}

// DirectoryProvider yields the current master data snapshot.
type DirectoryProvider interface {
	Directory(ctx context.Context) (*models.Directory, error)
}

type requestApplier interface {
	Apply(ctx context.Context, request *models.ChangeRequest, reviewerID string) (*ApplyResult, error)
}

type outcomeNotifier interface {
	Notify(ctx context.Context, event models.OutcomeEvent)
}

type changeMetrics interface {
	ObserveValidation(kind models.RequestKind, recommendation models.Recommendation, elapsed time.Duration)
	ObserveApply(kind models.RequestKind, outcome string)
	IncCommitRace(kind models.RequestKind)
}

type noopChangeMetrics struct{}

func (noopChangeMetrics) ObserveValidation(models.RequestKind, models.Recommendation, time.Duration) {
}

func (noopChangeMetrics) ObserveApply(models.RequestKind, string) {}

func (noopChangeMetrics) IncCommitRace(models.RequestKind) {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.OutcomeEvent) {}

// ChangeRequestConfig tunes validation.
type ChangeRequestConfig struct {
	AcademicYear    string
	SuggestionLimit int
}

// ChangeRequestService runs the swap/leave request state machine.
type ChangeRequestService struct {
	repo      changeRequestStore
	timetable timetableSource
	directory DirectoryProvider
	applier   requestApplier
	audit     auditLogger
	notifier  outcomeNotifier
	metrics   changeMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ChangeRequestConfig
	now       func() time.Time
}

// ChangeRequestServiceOption configures the service.
type ChangeRequestServiceOption func(*ChangeRequestService)

// WithChangeRequestConfig overrides validation settings.
func WithChangeRequestConfig(cfg ChangeRequestConfig) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if cfg.AcademicYear != "" {
			s.cfg.AcademicYear = cfg.AcademicYear
		}
		if cfg.SuggestionLimit > 0 {
			s.cfg.SuggestionLimit = cfg.SuggestionLimit
		}
	}
}

// WithChangeRequestNotifier sets the outcome event sink.
func WithChangeRequestNotifier(notifier outcomeNotifier) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithChangeRequestMetrics records validation outcomes.
func WithChangeRequestMetrics(metrics changeMetrics) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithChangeRequestClock overrides the time source.
func WithChangeRequestClock(now func() time.Time) ChangeRequestServiceOption {
	return func(s *ChangeRequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewChangeRequestService constructs the service with defaults.
func NewChangeRequestService(repo changeRequestStore, tt timetableSource, directory DirectoryProvider, applier requestApplier, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...ChangeRequestServiceOption) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ChangeRequestService{
		repo:      repo,
		timetable: tt,
		directory: directory,
		applier:   applier,
		audit:     audit,
		notifier:  noopNotifier{},
		metrics:   noopChangeMetrics{},
		validator: validate,
		logger:    logger,
		cfg:       ChangeRequestConfig{AcademicYear: "2024-25", SuggestionLimit: DefaultSuggestionLimit},
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	registerChangeRequestValidations(svc.validator)
	return svc
}

func registerChangeRequestValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("grid_day", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseDay(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("grid_slot", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseTimeSlot(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("leave_type", func(fl validator.FieldLevel) bool {
		switch models.LeaveType(strings.ToUpper(strings.TrimSpace(fl.Field().String()))) {
		case models.LeaveTypeSick, models.LeaveTypeCasual, models.LeaveTypeAcademic, models.LeaveTypePersonal, models.LeaveTypeOther:
			return true
		default:
			return false
		}
	})
}

// ValidateSwapPayload evaluates a proposed swap without storing it.
func (s *ChangeRequestService) ValidateSwapPayload(ctx context.Context, payload dto.SwapRequestPayload, actor *models.JWTClaims) (*models.ValidationReport, error) {
	swap, err := s.parseSwap(payload, actor)
	if err != nil {
		return nil, err
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}
	started := s.now()
	report, err := s.evaluateSwap(s.timetable.Snapshot(), dir, swap)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveValidation(models.RequestKindSwap, report.Recommendation, s.now().Sub(started))
	return report, nil
}

// CreateSwap stores a new swap request in PENDING.
func (s *ChangeRequestService) CreateSwap(ctx context.Context, payload dto.SwapRequestPayload, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	swap, err := s.parseSwap(payload, actor)
	if err != nil {
		return nil, err
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.swapOriginal(s.timetable.Snapshot(), dir, swap); err != nil {
		return nil, err
	}
	request := &models.ChangeRequest{
		Kind:        models.RequestKindSwap,
		Status:      models.RequestStatusPending,
		RequestedBy: actor.UserID,
		FacultyID:   swap.RequestingFacultyID,
		Reason:      strings.TrimSpace(payload.Reason),
		Swap:        swap,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create swap request")
	}
	s.auditRequest(ctx, actor.UserID, models.AuditActionChangeRequestCreate, request)
	return request, nil
}

// CreateLeave computes the impact of a leave and stores the request already
// VALIDATED. Nothing is stored when the impact cannot be computed.
func (s *ChangeRequestService) CreateLeave(ctx context.Context, payload dto.LeaveRequestPayload, actor *models.JWTClaims) (*models.ChangeRequest, *models.ValidationReport, error) {
	leave, err := s.parseLeave(payload, actor)
	if err != nil {
		return nil, nil, err
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, nil, err
	}
	if dir != nil && len(dir.Faculty) > 0 && !dir.HasFaculty(leave.FacultyID) {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("faculty %s not found", leave.FacultyID))
	}
	started := s.now()
	leave, report, err := s.evaluateLeave(s.timetable.Snapshot(), dir, leave)
	if err != nil {
		return nil, nil, err
	}
	request := &models.ChangeRequest{
		Kind:        models.RequestKindLeave,
		Status:      models.RequestStatusValidated,
		RequestedBy: actor.UserID,
		FacultyID:   leave.FacultyID,
		Reason:      strings.TrimSpace(payload.Reason),
		Leave:       leave,
		LastReport:  report,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	s.auditRequest(ctx, actor.UserID, models.AuditActionChangeRequestCreate, request)
	s.metrics.ObserveValidation(models.RequestKindLeave, report.Recommendation, s.now().Sub(started))
	return request, report, nil
}

// Validate recomputes the report for a stored request against the current
// timetable. A REJECT verdict on an already validated or submitted request
// sends it back to PENDING.
func (s *ChangeRequestService) Validate(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.ChangeRequest, *models.ValidationReport, error) {
	request, err := s.load(ctx, kind, id, actor)
	if err != nil {
		return nil, nil, err
	}
	return s.validate(ctx, request)
}

// Submit forwards a validated request for approval.
func (s *ChangeRequestService) Submit(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	request, err := s.load(ctx, kind, id, actor)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusValidated {
		return nil, stateTransitionError(request.Status, "submit")
	}
	if request.LastReport == nil || request.LastReport.Recommendation == models.RecommendationReject {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "request with a REJECT recommendation cannot be submitted; re-validate after resolving conflicts")
	}
	now := s.now().UTC()
	if err := s.transition(ctx, models.StatusTransition{
		ID:   request.ID,
		From: []models.RequestStatus{models.RequestStatusValidated},
		To:   models.RequestStatusSubmitted,
		At:   now,
	}); err != nil {
		return nil, err
	}
	request.Status = models.RequestStatusSubmitted
	request.UpdatedAt = now
	return request, nil
}

// Approve accepts a submitted request and applies it to the timetable.
func (s *ChangeRequestService) Approve(ctx context.Context, kind models.RequestKind, id, notes string, actor *models.JWTClaims) (*ApplyResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	request, err := s.load(ctx, kind, id, actor)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusSubmitted {
		return nil, stateTransitionError(request.Status, "approve")
	}
	now := s.now().UTC()
	reviewer := actor.UserID
	transition := models.StatusTransition{
		ID:         request.ID,
		From:       []models.RequestStatus{models.RequestStatusSubmitted},
		To:         models.RequestStatusApproved,
		ReviewedBy: &reviewer,
		AdminNotes: optionalString(notes),
		At:         now,
	}
	if err := s.transition(ctx, transition); err != nil {
		return nil, err
	}
	request.Status = models.RequestStatusApproved
	request.ReviewedBy = &reviewer
	if transition.AdminNotes != nil {
		request.AdminNotes = transition.AdminNotes
	}
	request.UpdatedAt = now
	return s.applier.Apply(ctx, request, reviewer)
}

// Reject closes a request that has not started applying. Notes are required.
func (s *ChangeRequestService) Reject(ctx context.Context, kind models.RequestKind, id, notes string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	reason := optionalString(notes)
	if reason == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admin_notes is required when rejecting")
	}
	request, err := s.load(ctx, kind, id, actor)
	if err != nil {
		return nil, err
	}
	if !rejectable(request.Status) {
		return nil, stateTransitionError(request.Status, "reject")
	}
	now := s.now().UTC()
	reviewer := actor.UserID
	if err := s.transition(ctx, models.StatusTransition{
		ID:         request.ID,
		From:       []models.RequestStatus{models.RequestStatusPending, models.RequestStatusValidated, models.RequestStatusSubmitted},
		To:         models.RequestStatusRejected,
		AdminNotes: reason,
		ReviewedBy: &reviewer,
		At:         now,
	}); err != nil {
		return nil, err
	}
	request.Status = models.RequestStatusRejected
	request.AdminNotes = reason
	request.ReviewedBy = &reviewer
	request.UpdatedAt = now

	s.auditRequest(ctx, reviewer, models.AuditActionChangeRequestReject, request)
	s.notifier.Notify(ctx, models.OutcomeEvent{
		RequestID:  request.ID,
		Kind:       request.Kind,
		Status:     request.Status,
		FacultyID:  request.FacultyID,
		ReviewedBy: reviewer,
		Notes:      *reason,
		OccurredAt: now,
	})
	return request, nil
}

// UpdateLeave drives a leave request to the requested status.
func (s *ChangeRequestService) UpdateLeave(ctx context.Context, id string, req dto.UpdateLeaveRequest, actor *models.JWTClaims) (*dto.UpdateLeaveResponse, error) {
	var (
		request *models.ChangeRequest
		err     error
	)
	switch models.RequestStatus(strings.ToUpper(strings.TrimSpace(string(req.Status)))) {
	case models.RequestStatusValidated:
		request, _, err = s.Validate(ctx, models.RequestKindLeave, id, actor)
	case models.RequestStatusSubmitted:
		request, err = s.Submit(ctx, models.RequestKindLeave, id, actor)
	case models.RequestStatusApproved:
		var result *ApplyResult
		result, err = s.Approve(ctx, models.RequestKindLeave, id, req.AdminNotes, actor)
		if result != nil {
			request = result.Request
		}
	case models.RequestStatusRejected:
		request, err = s.Reject(ctx, models.RequestKindLeave, id, req.AdminNotes, actor)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of VALIDATED, SUBMITTED, APPROVED, REJECTED")
	}
	if err != nil {
		return nil, err
	}
	resp := &dto.UpdateLeaveResponse{ID: request.ID, Status: request.Status}
	if request.Leave != nil && request.Leave.RemediationPlan != nil {
		resp.RescheduleStats = request.Leave.RemediationPlan.Summary
	}
	return resp, nil
}

// List returns request views; faculty only see their own requests.
func (s *ChangeRequestService) List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.RequestView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ChangeRequestFilter{
		Kind:      query.Kind,
		Status:    query.Status,
		FacultyID: strings.TrimSpace(query.FacultyID),
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	switch {
	case actor.Role.IsAdmin():
	case actor.Role == models.RoleFaculty:
		filter.FacultyID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list change requests")
	}
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		s.logger.Warn("directory unavailable, listing without names", zap.Error(err))
		dir = nil
	}
	snap := s.timetable.Snapshot()
	views := make([]models.RequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, requestView(request, dir, snap))
	}
	return views, nil
}

// Get returns one request view.
func (s *ChangeRequestService) Get(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.RequestView, error) {
	request, err := s.load(ctx, kind, id, actor)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		dir = nil
	}
	view := requestView(*request, dir, s.timetable.Snapshot())
	return &view, nil
}

func (s *ChangeRequestService) validate(ctx context.Context, request *models.ChangeRequest) (*models.ChangeRequest, *models.ValidationReport, error) {
	if !validatable(request.Status) {
		return nil, nil, stateTransitionError(request.Status, "validate")
	}
	dir, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, nil, err
	}
	started := s.now()
	snap := s.timetable.Snapshot()

	var (
		report *models.ValidationReport
		leave  *models.LeaveDetails
	)
	switch request.Kind {
	case models.RequestKindSwap:
		report, err = s.evaluateSwap(snap, dir, request.Swap)
	case models.RequestKindLeave:
		leave, report, err = s.evaluateLeave(snap, dir, request.Leave)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown request kind %q", request.Kind))
	}
	if err != nil {
		return nil, nil, err
	}

	next := models.RequestStatusValidated
	if report.Recommendation == models.RecommendationReject && request.Status != models.RequestStatusPending {
		next = models.RequestStatusPending
	}
	now := s.now().UTC()
	if err := s.transition(ctx, models.StatusTransition{
		ID:         request.ID,
		From:       []models.RequestStatus{request.Status},
		To:         next,
		LastReport: report,
		Leave:      leave,
		At:         now,
	}); err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveValidation(request.Kind, report.Recommendation, s.now().Sub(started))

	request.Status = next
	request.LastReport = report
	request.UpdatedAt = now
	if leave != nil {
		request.Leave = leave
	}
	return request, report, nil
}

func (s *ChangeRequestService) evaluateSwap(snap *timetable.Snapshot, dir *models.Directory, swap *models.SwapDetails) (*models.ValidationReport, error) {
	original, err := s.swapOriginal(snap, dir, swap)
	if err != nil {
		return nil, err
	}
	candidate := swapCandidate(original, swap)
	conflicts := DetectConflicts(snap, dir, candidate, original.ID)
	var suggestions []models.SlotSuggestion
	if models.RecommendationFor(conflicts) != models.RecommendationApprove {
		suggestions = RankSlots(snap, dir, original, candidate.FacultyID, s.cfg.SuggestionLimit)
	}
	report := NewValidationReport(conflicts, suggestions, s.now())
	report.Revision = snap.Revision()
	return report, nil
}

func (s *ChangeRequestService) evaluateLeave(snap *timetable.Snapshot, dir *models.Directory, leave *models.LeaveDetails) (*models.LeaveDetails, *models.ValidationReport, error) {
	plan, err := AnalyzeLeave(snap, dir, s.cfg.AcademicYear, leave.FacultyID, leave.StartDate, leave.EndDate)
	if err != nil {
		return nil, nil, err
	}
	updated := *leave
	updated.RemediationPlan = plan
	updated.AffectedSessionIDs = plan.SessionIDs()
	report := leaveReport(plan, s.now())
	report.Revision = snap.Revision()
	return &updated, report, nil
}

// leaveReport approves plans that keep every session and asks for review
// when any session would be cancelled.
func leaveReport(plan *models.RemediationPlan, at time.Time) *models.ValidationReport {
	report := NewValidationReport(nil, nil, at)
	if plan.Summary.Cancelled > 0 {
		report.Recommendation = models.RecommendationReview
	}
	return report
}

func (s *ChangeRequestService) swapOriginal(snap *timetable.Snapshot, dir *models.Directory, swap *models.SwapDetails) (models.ClassSession, error) {
	original, ok := snap.Session(swap.OriginalSessionID)
	if !ok {
		return models.ClassSession{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", swap.OriginalSessionID))
	}
	if original.FacultyID != swap.RequestingFacultyID {
		return models.ClassSession{}, appErrors.Clone(appErrors.ErrValidation, "session is not taught by the requesting faculty")
	}
	if swap.TargetFacultyID != "" && dir != nil && len(dir.Faculty) > 0 && !dir.HasFaculty(swap.TargetFacultyID) {
		return models.ClassSession{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("faculty %s not found", swap.TargetFacultyID))
	}
	return original, nil
}

func swapCandidate(original models.ClassSession, swap *models.SwapDetails) models.ClassSession {
	candidate := original
	candidate.DayOfWeek = swap.RequestedDay
	candidate.TimeSlot = swap.RequestedTimeSlot
	if swap.TargetFacultyID != "" {
		candidate.FacultyID = swap.TargetFacultyID
	}
	return candidate
}

func (s *ChangeRequestService) parseSwap(payload dto.SwapRequestPayload, actor *models.JWTClaims) (*models.SwapDetails, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid swap request payload")
	}
	day, _ := models.ParseDay(payload.RequestedDay)
	slot, _ := models.ParseTimeSlot(payload.RequestedTimeSlot)
	swap := &models.SwapDetails{
		RequestingFacultyID: strings.TrimSpace(payload.RequestingFacultyID),
		TargetFacultyID:     strings.TrimSpace(payload.TargetFacultyID),
		OriginalSessionID:   strings.TrimSpace(payload.OriginalSessionID),
		RequestedDay:        day,
		RequestedTimeSlot:   slot,
	}
	if !actor.Role.IsAdmin() && swap.RequestingFacultyID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty may only request swaps for their own sessions")
	}
	return swap, nil
}

func (s *ChangeRequestService) parseLeave(payload dto.LeaveRequestPayload, actor *models.JWTClaims) (*models.LeaveDetails, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave request payload")
	}
	start, err := parseDate(payload.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	end, err := parseDate(payload.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	leave := &models.LeaveDetails{
		FacultyID: strings.TrimSpace(payload.FacultyID),
		LeaveType: models.LeaveType(strings.ToUpper(strings.TrimSpace(payload.LeaveType))),
		StartDate: start,
		EndDate:   end,
	}
	if !actor.Role.IsAdmin() && leave.FacultyID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty may only request leave for themselves")
	}
	return leave, nil
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDate(t), nil
}

func (s *ChangeRequestService) load(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load change request")
	}
	if kind != "" && request.Kind != kind {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
	}
	if !actor.Role.IsAdmin() && request.FacultyID != actor.UserID && request.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

func (s *ChangeRequestService) loadDirectory(ctx context.Context) (*models.Directory, error) {
	dir, err := s.directory.Directory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load directory")
	}
	return dir, nil
}

func (s *ChangeRequestService) transition(ctx context.Context, transition models.StatusTransition) error {
	return transitionRequest(ctx, s.repo, transition)
}

func transitionRequest(ctx context.Context, repo changeRequestStore, transition models.StatusTransition) error {
	if err := repo.TransitionStatus(ctx, transition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStateTransition, "change request was modified concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update change request")
	}
	return nil
}

func (s *ChangeRequestService) auditRequest(ctx context.Context, userID, action string, request *models.ChangeRequest) {
	if s.audit == nil {
		return
	}
	payload, err := marshalAudit(request)
	if err != nil {
		s.logger.Warn("failed to encode audit payload", zap.Error(err))
	}
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   models.AuditResourceChangeRequest,
		ResourceID: &request.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  models.AuditActorLifecycle,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err), zap.String("request_id", request.ID))
	}
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Role.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may review change requests")
	}
	return nil
}

func validatable(status models.RequestStatus) bool {
	switch status {
	case models.RequestStatusPending, models.RequestStatusValidated, models.RequestStatusSubmitted:
		return true
	}
	return false
}

func rejectable(status models.RequestStatus) bool {
	return validatable(status)
}

func stateTransitionError(status models.RequestStatus, action string) error {
	return appErrors.Clone(appErrors.ErrStateTransition, fmt.Sprintf("cannot %s a request in %s", action, status))
}

func requestView(request models.ChangeRequest, dir *models.Directory, snap *timetable.Snapshot) models.RequestView {
	view := models.RequestView{ChangeRequest: request, FacultyName: dir.FacultyName(request.FacultyID)}
	if request.Swap != nil {
		if request.Swap.TargetFacultyID != "" {
			view.TargetFacultyName = dir.FacultyName(request.Swap.TargetFacultyID)
		}
		if session, ok := snap.Session(request.Swap.OriginalSessionID); ok {
			view.Session = &models.SessionView{
				ID:          session.ID,
				SubjectID:   session.SubjectID,
				FacultyID:   session.FacultyID,
				FacultyName: dir.FacultyName(session.FacultyID),
				RoomID:      session.RoomID,
				Batch:       session.Batch,
				Section:     session.Section,
				Day:         session.DayOfWeek,
				TimeSlot:    session.TimeSlot,
			}
		}
	}
	return view
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
