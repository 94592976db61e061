package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-change-api/internal/models"
)

const changeRequestColumns = `id, kind, status, requested_by, faculty_id, reason, admin_notes, reviewed_by,
       details, last_report, created_at, updated_at`

// ChangeRequestRepository persists swap and leave requests in one table; the
// kind-specific payload and the last validation report are JSON columns.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

// Create inserts a new request row.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.ChangeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = request.CreatedAt

	record, err := toChangeRequestRecord(request)
	if err != nil {
		return err
	}
	const query = `INSERT INTO change_requests
	(id, kind, status, requested_by, faculty_id, reason, admin_notes, reviewed_by, details, last_report, created_at, updated_at)
	VALUES (:id, :kind, :status, :requested_by, :faculty_id, :reason, :admin_notes, :reviewed_by, :details, :last_report, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a request; sql.ErrNoRows when absent.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM change_requests WHERE id = $1`
	var record models.ChangeRequestRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return fromChangeRequestRecord(record)
}

// List returns requests matching the filter, newest first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + changeRequestColumns + ` FROM change_requests`)

	conditions := make([]string, 0, 3)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.ChangeRequestRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	requests := make([]models.ChangeRequest, 0, len(records))
	for _, record := range records {
		request, err := fromChangeRequestRecord(record)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	return requests, nil
}

// TransitionStatus moves a request to a new status only while it is still in
// one of the expected states. It returns sql.ErrNoRows when another writer
// got there first.
func (r *ChangeRequestRepository) TransitionStatus(ctx context.Context, transition models.StatusTransition) error {
	if len(transition.From) == 0 {
		return fmt.Errorf("transition change request %s: no source status", transition.ID)
	}
	at := transition.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	params := map[string]interface{}{
		"id":         transition.ID,
		"status":     transition.To,
		"updated_at": at,
	}
	setParts := []string{"status = :status", "updated_at = :updated_at"}
	if transition.AdminNotes != nil {
		setParts = append(setParts, "admin_notes = :admin_notes")
		params["admin_notes"] = *transition.AdminNotes
	}
	if transition.ReviewedBy != nil {
		setParts = append(setParts, "reviewed_by = :reviewed_by")
		params["reviewed_by"] = *transition.ReviewedBy
	}
	if transition.LastReport != nil {
		report, err := json.Marshal(transition.LastReport)
		if err != nil {
			return fmt.Errorf("encode validation report: %w", err)
		}
		setParts = append(setParts, "last_report = :last_report")
		params["last_report"] = types.JSONText(report)
	}
	if transition.Leave != nil {
		details, err := json.Marshal(transition.Leave)
		if err != nil {
			return fmt.Errorf("encode leave details: %w", err)
		}
		setParts = append(setParts, "details = :details")
		params["details"] = types.JSONText(details)
	}

	from := make([]string, len(transition.From))
	for i, status := range transition.From {
		name := fmt.Sprintf("from%d", i)
		from[i] = ":" + name
		params[name] = status
	}
	query := fmt.Sprintf("UPDATE change_requests SET %s WHERE id = :id AND status IN (%s)",
		strings.Join(setParts, ", "),
		strings.Join(from, ","),
	)
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("transition change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check change request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func toChangeRequestRecord(request *models.ChangeRequest) (*models.ChangeRequestRecord, error) {
	var (
		details []byte
		err     error
	)
	switch request.Kind {
	case models.RequestKindSwap:
		details, err = json.Marshal(request.Swap)
	case models.RequestKindLeave:
		details, err = json.Marshal(request.Leave)
	default:
		return nil, fmt.Errorf("encode change request: unknown kind %q", request.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("encode change request details: %w", err)
	}
	record := &models.ChangeRequestRecord{
		ID:          request.ID,
		Kind:        request.Kind,
		Status:      request.Status,
		RequestedBy: request.RequestedBy,
		FacultyID:   request.FacultyID,
		Reason:      request.Reason,
		AdminNotes:  request.AdminNotes,
		ReviewedBy:  request.ReviewedBy,
		Details:     types.JSONText(details),
		LastReport:  types.JSONText("null"),
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
	if request.LastReport != nil {
		report, err := json.Marshal(request.LastReport)
		if err != nil {
			return nil, fmt.Errorf("encode validation report: %w", err)
		}
		record.LastReport = types.JSONText(report)
	}
	return record, nil
}

func fromChangeRequestRecord(record models.ChangeRequestRecord) (*models.ChangeRequest, error) {
	request := &models.ChangeRequest{
		ID:          record.ID,
		Kind:        record.Kind,
		Status:      record.Status,
		RequestedBy: record.RequestedBy,
		FacultyID:   record.FacultyID,
		Reason:      record.Reason,
		AdminNotes:  record.AdminNotes,
		ReviewedBy:  record.ReviewedBy,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	switch record.Kind {
	case models.RequestKindSwap:
		var swap models.SwapDetails
		if err := record.Details.Unmarshal(&swap); err != nil {
			return nil, fmt.Errorf("decode swap details for %s: %w", record.ID, err)
		}
		request.Swap = &swap
	case models.RequestKindLeave:
		var leave models.LeaveDetails
		if err := record.Details.Unmarshal(&leave); err != nil {
			return nil, fmt.Errorf("decode leave details for %s: %w", record.ID, err)
		}
		request.Leave = &leave
	default:
		return nil, fmt.Errorf("decode change request %s: unknown kind %q", record.ID, record.Kind)
	}
	if !emptyJSON(record.LastReport) {
		var report models.ValidationReport
		if err := record.LastReport.Unmarshal(&report); err != nil {
			return nil, fmt.Errorf("decode validation report for %s: %w", record.ID, err)
		}
		request.LastReport = &report
	}
	return request, nil
}

func emptyJSON(value types.JSONText) bool {
	trimmed := strings.TrimSpace(string(value))
	return trimmed == "" || trimmed == "null" || trimmed == "{}"
}
