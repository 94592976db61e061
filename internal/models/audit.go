package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionChangeRequestCreate = "CHANGE_REQUEST_CREATE"
	AuditActionChangeRequestReject = "CHANGE_REQUEST_REJECT"
	AuditActionChangeRequestApply  = "CHANGE_REQUEST_APPLY"
	AuditActionChangeRequestAbort  = "CHANGE_REQUEST_APPLY_ABORTED"
	AuditResourceTimetableSession  = "class_session"
	AuditResourceChangeRequest     = "change_request"
	AuditActorApplier              = "change-applier"
	AuditActorLifecycle            = "change-request-service"
)

// AuditLog represents an append-only audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// OutcomeEvent is emitted when a request reaches a decision; delivery is external.
type OutcomeEvent struct {
	RequestID  string        `json:"request_id"`
	Kind       RequestKind   `json:"kind"`
	Status     RequestStatus `json:"status"`
	FacultyID  string        `json:"faculty_id"`
	ReviewedBy string        `json:"reviewed_by,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
