package dto

import "github.com/noah-isme/timetable-change-api/internal/models"

// SwapRequestPayload is the loosely typed swap body accepted over HTTP.
type SwapRequestPayload struct {
	RequestingFacultyID string `json:"requesting_faculty_id" validate:"required"`
	TargetFacultyID     string `json:"target_faculty_id"`
	OriginalSessionID   string `json:"original_session_id" validate:"required"`
	RequestedDay        string `json:"requested_day" validate:"required,grid_day"`
	RequestedTimeSlot   string `json:"requested_time_slot" validate:"required,grid_slot"`
	Reason              string `json:"reason" validate:"max=1000"`
}

// LeaveRequestPayload is the leave body; dates are YYYY-MM-DD.
type LeaveRequestPayload struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	LeaveType string `json:"leave_type" validate:"required,leave_type"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

// ReviewRequest carries the admin decision notes.
type ReviewRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// UpdateLeaveRequest drives a leave request through the lifecycle.
type UpdateLeaveRequest struct {
	Status     models.RequestStatus `json:"status" validate:"required"`
	AdminNotes string               `json:"admin_notes"`
}

// ChangeRequestQuery mirrors supported listing filters.
type ChangeRequestQuery struct {
	Kind      models.RequestKind
	Status    []models.RequestStatus
	FacultyID string
	Limit     int
	Offset    int
}

// CreateSwapResponse is returned after a swap request is stored.
type CreateSwapResponse struct {
	ID     string               `json:"id"`
	Status models.RequestStatus `json:"status"`
}

// SessionPlacement is the post-apply position of a session.
type SessionPlacement struct {
	ID        string          `json:"id"`
	Day       models.Day      `json:"day"`
	TimeSlot  models.TimeSlot `json:"time_slot"`
	FacultyID string          `json:"faculty_id"`
	RoomID    string          `json:"room_id"`
}

// ApproveSwapResponse reports the applied move.
type ApproveSwapResponse struct {
	ID             string               `json:"id"`
	Status         models.RequestStatus `json:"status"`
	UpdatedSession SessionPlacement     `json:"updated_session"`
}

// ValidateRequestResponse pairs a stored request with its fresh report.
type ValidateRequestResponse struct {
	ID     string                   `json:"id"`
	Status models.RequestStatus     `json:"status"`
	Report *models.ValidationReport `json:"report"`
}

// CreateLeaveResponse carries the impact analysis of a new leave request.
type CreateLeaveResponse struct {
	ID              string                    `json:"id"`
	Status          models.RequestStatus      `json:"status"`
	ImpactAnalysis  models.RemediationSummary `json:"impact_analysis"`
	RemediationPlan *models.RemediationPlan   `json:"remediation_plan"`
	Recommendation  models.Recommendation     `json:"recommendation"`
}

// UpdateLeaveResponse reports the lifecycle move and, once applied, the
// remediation that was committed.
type UpdateLeaveResponse struct {
	ID              string                    `json:"id"`
	Status          models.RequestStatus      `json:"status"`
	RescheduleStats models.RemediationSummary `json:"reschedule_stats"`
}
