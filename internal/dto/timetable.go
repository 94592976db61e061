package dto

import "github.com/noah-isme/timetable-change-api/internal/models"

// TimetableView is a weekly timetable for one faculty member or section.
type TimetableView struct {
	Owner          string                `json:"owner"`
	Name           string                `json:"name"`
	AcademicYear   string                `json:"academic_year"`
	WeeklyHours    int                   `json:"weekly_hours"`
	MaxWeeklyHours int                   `json:"max_weekly_hours,omitempty"`
	Sessions       []models.ClassSession `json:"sessions"`
}

// SuggestionsResponse lists ranked alternative cells for a session.
type SuggestionsResponse struct {
	SessionID   string                  `json:"session_id"`
	Suggestions []models.SlotSuggestion `json:"suggestions"`
}
