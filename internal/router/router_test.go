package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-change-api/internal/handler"
	"github.com/noah-isme/timetable-change-api/internal/middleware"
	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/repository"
	"github.com/noah-isme/timetable-change-api/internal/service"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
)

const seedYAML = `
academic_year: "2024-25"
default_max_weekly_hours: 18
faculty:
  - id: fA
    name: Dr. Rao
    subject_ids: [CS301]
  - id: fB
    name: Dr. Iyer
    subject_ids: [CS301]
rooms:
  - id: R1
    name: Lecture Hall 1
    capacity: 60
enrollments:
  - batch: "2022"
    section: A
    students: 45
sessions:
  - id: s1
    subject_id: CS301
    faculty_id: fA
    room_id: R1
    batch: "2022"
    section: A
    day_of_week: monday
    time_slot: "09:00-10:00"
`

type memoryRequests struct {
	mu       sync.Mutex
	seq      int
	requests map[string]models.ChangeRequest
}

func (m *memoryRequests) Create(ctx context.Context, request *models.ChangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	request.ID = fmt.Sprintf("req-%d", m.seq)
	m.requests[request.ID] = *request
	return nil
}

func (m *memoryRequests) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &request, nil
}

func (m *memoryRequests) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.ChangeRequest
	for _, request := range m.requests {
		if filter.FacultyID == "" || filter.FacultyID == request.FacultyID {
			result = append(result, request)
		}
	}
	return result, nil
}

func (m *memoryRequests) TransitionStatus(ctx context.Context, t models.StatusTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.requests[t.ID]
	if !ok {
		return sql.ErrNoRows
	}
	matched := false
	for _, from := range t.From {
		matched = matched || request.Status == from
	}
	if !matched {
		return sql.ErrNoRows
	}
	request.Status = t.To
	if t.LastReport != nil {
		request.LastReport = t.LastReport
	}
	if t.Leave != nil {
		request.Leave = t.Leave
	}
	if t.AdminNotes != nil {
		request.AdminNotes = t.AdminNotes
	}
	if t.ReviewedBy != nil {
		request.ReviewedBy = t.ReviewedBy
	}
	m.requests[t.ID] = request
	return nil
}

type discardAudit struct{}

func (discardAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

type app struct {
	engine *gin.Engine
	tokens *service.TokenService
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seed, err := repository.ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	store := timetable.NewStore()
	require.NoError(t, store.Load(seed.Sessions))
	directory := service.NewStaticDirectory(seed.Directory(18))
	requests := &memoryRequests{requests: make(map[string]models.ChangeRequest)}
	metrics := service.NewMetricsService()
	tokens := service.NewTokenService(service.TokenConfig{Secret: "test", Expiry: time.Hour})

	applier := service.NewChangeApplier(store, requests, directory, discardAudit{}, nil,
		service.WithApplierAcademicYear(seed.AcademicYear), service.WithApplierMetrics(metrics))
	changes := service.NewChangeRequestService(requests, store, directory, applier, discardAudit{}, nil, nil,
		service.WithChangeRequestConfig(service.ChangeRequestConfig{AcademicYear: seed.AcademicYear}),
		service.WithChangeRequestMetrics(metrics))
	timetableSvc := service.NewTimetableService(store, nil, directory, seed.AcademicYear, nil)

	engine := New(Options{
		Tokens:      tokens,
		RateLimiter: middleware.NewRateLimiter(100, 100, nil),
		Observer:    metrics,
		Swaps:       handler.NewSwapRequestHandler(changes),
		Leaves:      handler.NewLeaveRequestHandler(changes),
		Requests:    handler.NewRequestHandler(changes),
		Timetable:   handler.NewTimetableHandler(timetableSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"timetable": func(context.Context) error { return nil },
		}),
	})
	return &app{engine: engine, tokens: tokens}
}

func (a *app) token(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	token, _, err := a.tokens.Issue(userID, role, userID+"@example.edu", userID)
	require.NoError(t, err)
	return token
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	var env map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec.Code, env
}

func data(env map[string]interface{}) map[string]interface{} {
	d, _ := env["data"].(map[string]interface{})
	return d
}

func TestSwapRequestEndToEnd(t *testing.T) {
	a := newApp(t)
	faculty := a.token(t, "fA", models.RoleFaculty)
	admin := a.token(t, "admin", models.RoleAdmin)
	payload := map[string]string{
		"requesting_faculty_id": "fA",
		"original_session_id":   "s1",
		"requested_day":         "WEDNESDAY",
		"requested_time_slot":   "14:00-15:00",
		"reason":                "department meeting",
	}

	code, env := a.do(t, http.MethodPost, "/api/v1/swap-requests/validate", faculty, payload)
	require.Equal(t, http.StatusOK, code, env)
	assert.Equal(t, "APPROVE", data(env)["recommendation"])

	code, env = a.do(t, http.MethodPost, "/api/v1/swap-requests", faculty, payload)
	require.Equal(t, http.StatusCreated, code, env)
	id, _ := data(env)["id"].(string)
	require.NotEmpty(t, id)

	code, env = a.do(t, http.MethodPost, "/api/v1/swap-requests/"+id+"/validate", faculty, nil)
	require.Equal(t, http.StatusOK, code, env)
	assert.Equal(t, "VALIDATED", data(env)["status"])

	code, _ = a.do(t, http.MethodPost, "/api/v1/swap-requests/"+id+"/submit", faculty, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodPost, "/api/v1/swap-requests/"+id+"/approve", faculty, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(t, http.MethodPost, "/api/v1/swap-requests/"+id+"/approve", admin, map[string]string{"admin_notes": "fine"})
	require.Equal(t, http.StatusOK, code, env)
	assert.Equal(t, "APPLIED", data(env)["status"])
	updated, _ := data(env)["updated_session"].(map[string]interface{})
	assert.Equal(t, "WEDNESDAY", updated["day"])

	code, env = a.do(t, http.MethodGet, "/api/v1/timetable/faculty/fA", faculty, nil)
	require.Equal(t, http.StatusOK, code)
	sessions, _ := data(env)["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "WEDNESDAY", sessions[0].(map[string]interface{})["day_of_week"])

	code, env = a.do(t, http.MethodGet, "/api/v1/stats", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, data(env)["applied"])
}

func TestRouterGuards(t *testing.T) {
	a := newApp(t)

	code, _ := a.do(t, http.MethodGet, "/api/v1/requests/detailed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	faculty := a.token(t, "fB", models.RoleFaculty)
	code, _ = a.do(t, http.MethodGet, "/api/v1/stats", faculty, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := a.do(t, http.MethodGet, "/api/v1/timetable/sessions/s1/suggestions?limit=2", faculty, nil)
	require.Equal(t, http.StatusOK, code)
	suggestions, _ := data(env)["suggestions"].([]interface{})
	assert.Len(t, suggestions, 2)
}
