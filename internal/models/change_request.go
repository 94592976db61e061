package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RequestKind tags the change request union.
type RequestKind string

const (
	RequestKindSwap  RequestKind = "SWAP"
	RequestKindLeave RequestKind = "LEAVE"
)

// RequestStatus captures lifecycle states shared by swap and leave requests.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusValidated RequestStatus = "VALIDATED"
	RequestStatusSubmitted RequestStatus = "SUBMITTED"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusApplied   RequestStatus = "APPLIED"
	RequestStatusRejected  RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApplied || s == RequestStatusRejected
}

// LeaveType classifies a leave request.
type LeaveType string

const (
	LeaveTypeSick     LeaveType = "SICK"
	LeaveTypeCasual   LeaveType = "CASUAL"
	LeaveTypeAcademic LeaveType = "ACADEMIC"
	LeaveTypePersonal LeaveType = "PERSONAL"
	LeaveTypeOther    LeaveType = "OTHER"
)

// SwapDetails moves one session to another day/slot, optionally to another faculty.
type SwapDetails struct {
	RequestingFacultyID string   `json:"requesting_faculty_id"`
	TargetFacultyID     string   `json:"target_faculty_id"`
	OriginalSessionID   string   `json:"original_session_id"`
	RequestedDay        Day      `json:"requested_day"`
	RequestedTimeSlot   TimeSlot `json:"requested_time_slot"`
}

// LeaveDetails describes an absence interval and its computed remediation.
type LeaveDetails struct {
	FacultyID          string           `json:"faculty_id"`
	LeaveType          LeaveType        `json:"leave_type"`
	StartDate          time.Time        `json:"start_date"`
	EndDate            time.Time        `json:"end_date"`
	AffectedSessionIDs []string         `json:"affected_session_ids"`
	RemediationPlan    *RemediationPlan `json:"remediation_plan,omitempty"`
}

// ChangeRequest is a swap or leave request; exactly one of Swap/Leave is set
// according to Kind.
type ChangeRequest struct {
	ID          string            `json:"id"`
	Kind        RequestKind       `json:"kind"`
	Status      RequestStatus     `json:"status"`
	RequestedBy string            `json:"requested_by"`
	FacultyID   string            `json:"faculty_id"`
	Reason      string            `json:"reason"`
	AdminNotes  *string           `json:"admin_notes,omitempty"`
	ReviewedBy  *string           `json:"reviewed_by,omitempty"`
	LastReport  *ValidationReport `json:"last_report,omitempty"`
	Swap        *SwapDetails      `json:"swap,omitempty"`
	Leave       *LeaveDetails     `json:"leave,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ChangeRequestRecord is the persisted row shape; details and reports are JSON columns.
type ChangeRequestRecord struct {
	ID          string         `db:"id"`
	Kind        RequestKind    `db:"kind"`
	Status      RequestStatus  `db:"status"`
	RequestedBy string         `db:"requested_by"`
	FacultyID   string         `db:"faculty_id"`
	Reason      string         `db:"reason"`
	AdminNotes  *string        `db:"admin_notes"`
	ReviewedBy  *string        `db:"reviewed_by"`
	Details     types.JSONText `db:"details"`
	LastReport  types.JSONText `db:"last_report"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ChangeRequestFilter constrains listing queries.
type ChangeRequestFilter struct {
	Kind      RequestKind
	Status    []RequestStatus
	FacultyID string
	Limit     int
	Offset    int
}

// StatusTransition is a compare-and-set update on a request.
type StatusTransition struct {
	ID         string
	From       []RequestStatus
	To         RequestStatus
	AdminNotes *string
	ReviewedBy *string
	LastReport *ValidationReport
	Leave      *LeaveDetails
	At         time.Time
}

// SessionView is the compact session description embedded in request views.
type SessionView struct {
	ID          string   `json:"id"`
	SubjectID   string   `json:"subject_id"`
	FacultyID   string   `json:"faculty_id"`
	FacultyName string   `json:"faculty_name,omitempty"`
	RoomID      string   `json:"room_id"`
	Batch       string   `json:"batch"`
	Section     string   `json:"section"`
	Day         Day      `json:"day"`
	TimeSlot    TimeSlot `json:"time_slot"`
}

// RequestView enriches a request with display names and the live session state.
type RequestView struct {
	ChangeRequest
	FacultyName       string       `json:"faculty_name,omitempty"`
	TargetFacultyName string       `json:"target_faculty_name,omitempty"`
	Session           *SessionView `json:"session,omitempty"`
}
