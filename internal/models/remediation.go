package models

// Disposition is the single outcome assigned to a session affected by leave.
type Disposition string

const (
	DispositionSubstituted Disposition = "SUBSTITUTED"
	DispositionRescheduled Disposition = "RESCHEDULED"
	DispositionCancelled   Disposition = "CANCELLED"
)

// RemediationItem describes how one affected session is handled.
type RemediationItem struct {
	SessionID           string      `json:"session_id"`
	SubjectID           string      `json:"subject_id"`
	Day                 Day         `json:"day"`
	TimeSlot            TimeSlot    `json:"time_slot"`
	Disposition         Disposition `json:"disposition"`
	SubstituteFacultyID *string     `json:"substitute_faculty_id,omitempty"`
	NewDay              *Day        `json:"new_day,omitempty"`
	NewTimeSlot         *TimeSlot   `json:"new_time_slot,omitempty"`
	Rationale           string      `json:"rationale"`
}

// RemediationSummary aggregates a plan.
type RemediationSummary struct {
	SubstitutesAssigned int `json:"substitutes_assigned"`
	Rescheduled         int `json:"rescheduled"`
	Cancelled           int `json:"cancelled"`
	TotalAffected       int `json:"total_affected"`
}

// RemediationPlan is the per-session disposition for a leave interval.
type RemediationPlan struct {
	FacultyID string             `json:"faculty_id"`
	LeaveDays []Day              `json:"leave_days"`
	Items     []RemediationItem  `json:"items"`
	Summary   RemediationSummary `json:"summary"`
}

// Add appends an item and keeps the summary in step.
func (p *RemediationPlan) Add(item RemediationItem) {
	p.Items = append(p.Items, item)
	p.Summary.TotalAffected++
	switch item.Disposition {
	case DispositionSubstituted:
		p.Summary.SubstitutesAssigned++
	case DispositionRescheduled:
		p.Summary.Rescheduled++
	case DispositionCancelled:
		p.Summary.Cancelled++
	}
}

// SessionIDs lists the affected sessions in plan order.
func (p *RemediationPlan) SessionIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.SessionID)
	}
	return ids
}
