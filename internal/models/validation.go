package models

import "time"

// ConflictType enumerates the rule checks run against a proposed placement.
// Declaration order is the tie-break order for equal severities.
type ConflictType string

const (
	ConflictFacultyDoubleBooking   ConflictType = "FACULTY_DOUBLE_BOOKING"
	ConflictRoomDoubleBooking      ConflictType = "ROOM_DOUBLE_BOOKING"
	ConflictTargetFacultyOverload  ConflictType = "TARGET_FACULTY_OVERLOAD"
	ConflictSubjectDayGapViolation ConflictType = "SUBJECT_DAY_GAP_VIOLATION"
	ConflictCapacityExceeded       ConflictType = "CAPACITY_EXCEEDED"
)

var conflictTypeOrder = map[ConflictType]int{
	ConflictFacultyDoubleBooking:   0,
	ConflictRoomDoubleBooking:      1,
	ConflictTargetFacultyOverload:  2,
	ConflictSubjectDayGapViolation: 3,
	ConflictCapacityExceeded:       4,
}

// Rank returns the enumeration position used for deterministic ordering.
func (t ConflictType) Rank() int {
	if rank, ok := conflictTypeOrder[t]; ok {
		return rank
	}
	return len(conflictTypeOrder)
}

// Severity grades a conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Weight orders severities, high first.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Recommendation is the three-tier verdict derived from conflicts.
type Recommendation string

const (
	RecommendationApprove Recommendation = "APPROVE"
	RecommendationReview  Recommendation = "REVIEW"
	RecommendationReject  Recommendation = "REJECT"
)

// Conflict is a rule violation a proposed placement would cause.
type Conflict struct {
	Type              ConflictType `json:"type"`
	Severity          Severity     `json:"severity"`
	Message           string       `json:"message"`
	AffectedSessionID *string      `json:"affected_session_id,omitempty"`
}

// SlotSuggestion is an alternative placement with its score.
type SlotSuggestion struct {
	Day       Day      `json:"day"`
	TimeSlot  TimeSlot `json:"time_slot"`
	Score     float64  `json:"score"`
	Rationale string   `json:"rationale"`
}

// ValidationReport is recomputed on every validate call.
type ValidationReport struct {
	Conflicts      []Conflict       `json:"conflicts"`
	Suggestions    []SlotSuggestion `json:"suggestions"`
	Recommendation Recommendation   `json:"recommendation"`
	GeneratedAt    time.Time        `json:"generated_at"`
	// Revision is the timetable revision the report was computed against.
	Revision uint64 `json:"revision,omitempty"`
}

// RecommendationFor derives the verdict: any high conflict rejects, any other
// conflict asks for review, none approves.
func RecommendationFor(conflicts []Conflict) Recommendation {
	result := RecommendationApprove
	for _, conflict := range conflicts {
		if conflict.Severity == SeverityHigh {
			return RecommendationReject
		}
		result = RecommendationReview
	}
	return result
}

// HasHighSeverity reports whether any conflict blocks the change.
func HasHighSeverity(conflicts []Conflict) bool {
	for _, conflict := range conflicts {
		if conflict.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
