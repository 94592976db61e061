package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

type changeRepoStub struct {
	mu       sync.Mutex
	requests map[string]*models.ChangeRequest
	filter   models.ChangeRequestFilter
	seq      int
}

func newChangeRepoStub() *changeRepoStub {
	return &changeRepoStub{requests: make(map[string]*models.ChangeRequest)}
}

func (r *changeRepoStub) Create(ctx context.Context, request *models.ChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID == "" {
		r.seq++
		request.ID = fmt.Sprintf("req-%d", r.seq)
	}
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *changeRepoStub) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (r *changeRepoStub) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = filter
	result := make([]models.ChangeRequest, 0, len(r.requests))
	for _, request := range r.requests {
		if filter.FacultyID != "" && request.FacultyID != filter.FacultyID {
			continue
		}
		result = append(result, *request)
	}
	return result, nil
}

func (r *changeRepoStub) TransitionStatus(ctx context.Context, transition models.StatusTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[transition.ID]
	if !ok {
		return sql.ErrNoRows
	}
	allowed := false
	for _, from := range transition.From {
		if request.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return sql.ErrNoRows
	}
	request.Status = transition.To
	request.UpdatedAt = transition.At
	if transition.AdminNotes != nil {
		request.AdminNotes = transition.AdminNotes
	}
	if transition.ReviewedBy != nil {
		request.ReviewedBy = transition.ReviewedBy
	}
	if transition.LastReport != nil {
		request.LastReport = transition.LastReport
	}
	if transition.Leave != nil {
		request.Leave = transition.Leave
	}
	return nil
}

func (r *changeRepoStub) status(id string) models.RequestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[id].Status
}

func (r *changeRepoStub) seed(request models.ChangeRequest) *models.ChangeRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[request.ID] = &request
	copied := request
	return &copied
}

type auditRecorder struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]string, 0, len(a.logs))
	for _, log := range a.logs {
		actions = append(actions, log.Action)
	}
	return actions
}

type staticDirectory struct {
	dir *models.Directory
	err error
}

func (s staticDirectory) Directory(ctx context.Context) (*models.Directory, error) {
	return s.dir, s.err
}

type notifierStub struct {
	mu     sync.Mutex
	events []models.OutcomeEvent
}

func (n *notifierStub) Notify(ctx context.Context, event models.OutcomeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type metricsRecorder struct {
	mu          sync.Mutex
	validations int
	outcomes    []string
	races       int
}

func (m *metricsRecorder) ObserveValidation(kind models.RequestKind, recommendation models.Recommendation, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations++
}

func (m *metricsRecorder) ObserveApply(kind models.RequestKind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *metricsRecorder) IncCommitRace(kind models.RequestKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.races++
}

var (
	adminActor = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	fixedNow   = time.Date(2024, time.August, 30, 8, 0, 0, 0, time.UTC)
)

func facultyActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleFaculty}
}

func fixedClock() time.Time { return fixedNow }

func approvedSwap(id, facultyID, sessionID string, day models.Day, slot models.TimeSlot) models.ChangeRequest {
	return models.ChangeRequest{
		ID:          id,
		Kind:        models.RequestKindSwap,
		Status:      models.RequestStatusApproved,
		RequestedBy: facultyID,
		FacultyID:   facultyID,
		Swap: &models.SwapDetails{
			RequestingFacultyID: facultyID,
			OriginalSessionID:   sessionID,
			RequestedDay:        day,
			RequestedTimeSlot:   slot,
		},
	}
}
