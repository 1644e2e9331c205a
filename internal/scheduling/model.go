package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqBiweekly Frequency = "biweekly"
	FreqMonthly  Frequency = "monthly"
	FreqCustom   Frequency = "custom"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

// SessionOrigin marks how a session came to exist. Recurring sessions are
// owned by the materializer and may be deleted and rebuilt in bulk; manual
// sessions are user-placed (or user-moved) and bulk regeneration must leave
// them alone.
type SessionOrigin string

const (
	OriginRecurring SessionOrigin = "recurring"
	OriginManual    SessionOrigin = "manual"
)

type ExceptionType string

const (
	ExceptionMove ExceptionType = "move"
)

// RecurrenceRule describes a repeating session pattern. Which fields are
// required depends on Frequency; Validate enforces that.
type RecurrenceRule struct {
	Frequency  Frequency
	Interval   int            // days between occurrences for daily/custom, months for monthly
	DaysOfWeek []time.Weekday // weekly/biweekly: exactly one; custom: at least one
	StartDate  time.Time      // date component only; anchors the pattern
	StartTime  string         // "HH:MM", applied to every occurrence
}

type Patient struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Name       string
	ArchivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Schedule is a persisted recurring series for one patient.
type Schedule struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	PatientID       uuid.UUID
	Rule            RecurrenceRule
	DurationMinutes int
	SessionType     string
	DefaultValue    int64 // cents
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Session is one concrete occurrence. ScheduleID is nil for standalone
// sessions created outside any series.
type Session struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	PatientID       uuid.UUID
	ScheduleID      *uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	SessionType     string
	Status          SessionStatus
	Paid            bool
	Value           int64
	Origin          SessionOrigin
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Exception records a deviation applied to one occurrence of a series. It is
// an audit trail only; generation never reads it back.
type Exception struct {
	ID            int64
	ScheduleID    uuid.UUID
	Type          ExceptionType
	ExceptionDate time.Time
	NewDatetime   time.Time
	CreatedAt     time.Time
}
