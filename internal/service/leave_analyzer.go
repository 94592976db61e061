package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
)

// LeaveDays maps an inclusive date range onto grid days, in grid order.
// Sundays are ignored.
func LeaveDays(start, end time.Time) ([]models.Day, error) {
	start = truncateDate(start)
	end = truncateDate(end)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	seen := make(map[models.Day]bool, len(models.WeekDays))
	for d, i := start, 0; !d.After(end) && i < 7; d, i = d.AddDate(0, 0, 1), i+1 {
		if day, ok := models.DayFromWeekday(d.Weekday()); ok {
			seen[day] = true
		}
	}
	days := make([]models.Day, 0, len(seen))
	for _, day := range models.WeekDays {
		if seen[day] {
			days = append(days, day)
		}
	}
	return days, nil
}

// AnalyzeLeave builds a remediation plan for every session of facultyID that
// falls on a leave day. Each session is substituted, rescheduled later in the
// week, or cancelled, evaluated in day/slot order against a working copy so
// earlier dispositions constrain later ones.
func AnalyzeLeave(snap *timetable.Snapshot, dir *models.Directory, year, facultyID string, start, end time.Time) (*models.RemediationPlan, error) {
	if facultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty id is required")
	}
	days, err := LeaveDays(start, end)
	if err != nil {
		return nil, err
	}
	onLeave := make(map[models.Day]bool, len(days))
	for _, day := range days {
		onLeave[day] = true
	}

	plan := &models.RemediationPlan{FacultyID: facultyID, LeaveDays: days, Items: []models.RemediationItem{}}
	draft := snap.Fork()

	for _, session := range snap.SessionsByFaculty(facultyID, year) {
		if !onLeave[session.DayOfWeek] {
			continue
		}
		item := models.RemediationItem{
			SessionID: session.ID,
			SubjectID: session.SubjectID,
			Day:       session.DayOfWeek,
			TimeSlot:  session.TimeSlot,
		}

		if substitute, ok := findSubstitute(draft, dir, session); ok {
			item.Disposition = models.DispositionSubstituted
			item.SubstituteFacultyID = stringPtr(substitute)
			item.Rationale = fmt.Sprintf("%s teaches %s and is free at %s %s", dir.FacultyName(substitute), session.SubjectID, session.DayOfWeek, session.TimeSlot)
			plan.Add(item)
			continue
		}

		if slot, ok := findLaterSlot(draft, dir, session, onLeave); ok {
			day, timeSlot := slot.Day, slot.TimeSlot
			item.Disposition = models.DispositionRescheduled
			item.NewDay = &day
			item.NewTimeSlot = &timeSlot
			item.Rationale = fmt.Sprintf("moved to %s %s (%s)", day, timeSlot, slot.Rationale)
			plan.Add(item)
			continue
		}

		_ = draft.Apply(timetable.RemoveOp(session.ID))
		item.Disposition = models.DispositionCancelled
		item.Rationale = "no substitute available and no free slot later in the week"
		plan.Add(item)
	}
	return plan, nil
}

func findSubstitute(draft *timetable.Draft, dir *models.Directory, session models.ClassSession) (string, bool) {
	for _, candidateID := range dir.FacultyForSubject(session.SubjectID) {
		if candidateID == session.FacultyID {
			continue
		}
		candidate := session
		candidate.FacultyID = candidateID
		eligible := true
		for _, conflict := range DetectConflicts(draft, dir, candidate, session.ID) {
			if conflict.Type == models.ConflictFacultyDoubleBooking || conflict.Type == models.ConflictTargetFacultyOverload {
				eligible = false
				break
			}
		}
		if !eligible {
			continue
		}
		id := candidateID
		if err := draft.Apply(timetable.MoveOp(session.ID, session.DayOfWeek, session.TimeSlot, &id)); err != nil {
			continue
		}
		return candidateID, true
	}
	return "", false
}

func findLaterSlot(draft *timetable.Draft, dir *models.Directory, session models.ClassSession, onLeave map[models.Day]bool) (models.SlotSuggestion, bool) {
	from := session.DayOfWeek.Index()
	later := func(day models.Day, _ models.TimeSlot) bool {
		return day.Index() > from && !onLeave[day]
	}
	for _, suggestion := range rankSlots(draft, dir, session, session.FacultyID, len(models.WeekDays)*len(models.TimeSlots), later) {
		if err := draft.Apply(timetable.MoveOp(session.ID, suggestion.Day, suggestion.TimeSlot, nil)); err == nil {
			return suggestion, true
		}
	}
	return models.SlotSuggestion{}, false
}

// PlanBatch converts a plan into store operations plus the key versions the
// plan was computed against.
func PlanBatch(snap *timetable.Snapshot, plan *models.RemediationPlan) (timetable.Batch, error) {
	batch := timetable.Batch{Expect: make(map[timetable.Key]uint64)}
	watch := func(keys ...timetable.Key) {
		for key, version := range snap.Versions(keys...) {
			batch.Expect[key] = version
		}
	}
	for _, item := range plan.Items {
		session, ok := snap.Session(item.SessionID)
		if !ok {
			return timetable.Batch{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", item.SessionID))
		}
		watch(timetable.KeysOf(session)...)
		switch item.Disposition {
		case models.DispositionSubstituted:
			target := session
			target.FacultyID = *item.SubstituteFacultyID
			watch(timetable.KeysOf(target)...)
			batch.Ops = append(batch.Ops, timetable.MoveOp(session.ID, session.DayOfWeek, session.TimeSlot, item.SubstituteFacultyID))
		case models.DispositionRescheduled:
			target := session
			target.DayOfWeek = *item.NewDay
			target.TimeSlot = *item.NewTimeSlot
			watch(timetable.KeysOf(target)...)
			batch.Ops = append(batch.Ops, timetable.MoveOp(session.ID, *item.NewDay, *item.NewTimeSlot, nil))
		case models.DispositionCancelled:
			batch.Ops = append(batch.Ops, timetable.RemoveOp(session.ID))
		}
	}
	return batch, nil
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
