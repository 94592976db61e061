package models

import (
	"strings"
	"time"
)

// Day enumerates teaching days of the weekly grid.
type Day string

const (
	DayMonday    Day = "MONDAY"
	DayTuesday   Day = "TUESDAY"
	DayWednesday Day = "WEDNESDAY"
	DayThursday  Day = "THURSDAY"
	DayFriday    Day = "FRIDAY"
	DaySaturday  Day = "SATURDAY"
)

// WeekDays lists the grid days in order.
var WeekDays = []Day{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}

// TimeSlot is one discrete teaching interval of the weekly grid.
type TimeSlot string

// TimeSlots lists the grid slots in order. 13:00-14:00 is the lunch break.
var TimeSlots = []TimeSlot{
	"09:00-10:00",
	"10:00-11:00",
	"11:00-12:00",
	"12:00-13:00",
	"14:00-15:00",
	"15:00-16:00",
	"16:00-17:00",
}

// SessionType classifies a session.
type SessionType string

const (
	SessionTypeLecture  SessionType = "LECTURE"
	SessionTypeLab      SessionType = "LAB"
	SessionTypeTutorial SessionType = "TUTORIAL"
)

// ClassSession is one scheduled occurrence of a subject for a batch/section.
type ClassSession struct {
	ID           string      `db:"id" json:"id" yaml:"id"`
	SubjectID    string      `db:"subject_id" json:"subject_id" yaml:"subject_id"`
	FacultyID    string      `db:"faculty_id" json:"faculty_id" yaml:"faculty_id"`
	RoomID       string      `db:"room_id" json:"room_id" yaml:"room_id"`
	Batch        string      `db:"batch" json:"batch" yaml:"batch"`
	Section      string      `db:"section" json:"section" yaml:"section"`
	DayOfWeek    Day         `db:"day_of_week" json:"day_of_week" yaml:"day_of_week"`
	TimeSlot     TimeSlot    `db:"time_slot" json:"time_slot" yaml:"time_slot"`
	SessionType  SessionType `db:"session_type" json:"session_type" yaml:"session_type"`
	AcademicYear string      `db:"academic_year" json:"academic_year" yaml:"academic_year"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at" yaml:"-"`
}

// Index returns the zero-based grid position of the day, or -1.
func (d Day) Index() int {
	for i, day := range WeekDays {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is a grid day.
func (d Day) Valid() bool { return d.Index() >= 0 }

// Index returns the zero-based grid position of the slot, or -1.
func (t TimeSlot) Index() int {
	for i, slot := range TimeSlots {
		if slot == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is a grid slot.
func (t TimeSlot) Valid() bool { return t.Index() >= 0 }

// ParseDay normalises free-form input ("monday", "Mon") into a grid day.
func ParseDay(raw string) (Day, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for _, day := range WeekDays {
		if string(day) == value || (len(value) >= 3 && strings.HasPrefix(string(day), value)) {
			return day, true
		}
	}
	return "", false
}

// ParseTimeSlot normalises slot input, accepting both "09:00-10:00" and "9:00 - 10:00".
func ParseTimeSlot(raw string) (TimeSlot, bool) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if len(value) > 0 && len(value) < 11 && strings.Index(value, ":") == 1 {
		value = "0" + value
	}
	slot := TimeSlot(value)
	return slot, slot.Valid()
}

// DayFromWeekday maps a calendar weekday onto the grid; Sunday has no slot.
func DayFromWeekday(w time.Weekday) (Day, bool) {
	if w == time.Sunday {
		return "", false
	}
	return WeekDays[int(w)-1], true
}

// ParseSessionType normalises the session type, defaulting to lecture.
func ParseSessionType(raw string) (SessionType, bool) {
	switch SessionType(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", SessionTypeLecture:
		return SessionTypeLecture, true
	case SessionTypeLab:
		return SessionTypeLab, true
	case SessionTypeTutorial:
		return SessionTypeTutorial, true
	}
	return "", false
}

// SessionFilter constrains session listing.
type SessionFilter struct {
	AcademicYear string
	FacultyID    string
	Batch        string
	Section      string
}
