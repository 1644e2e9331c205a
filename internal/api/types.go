package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/practice-scheduler/internal/scheduling"
)

type RecurrenceRuleDTO struct {
	Frequency  string `json:"frequency"`
	Interval   int    `json:"interval"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	StartTime  string `json:"start_time"` // HH:MM
}

type CreateScheduleRequest struct {
	UserID          string            `json:"user_id"`
	PatientID       string            `json:"patient_id"`
	Rule            RecurrenceRuleDTO `json:"rule"`
	DurationMinutes int               `json:"duration_minutes"`
	SessionType     string            `json:"session_type"`
	DefaultValue    int64             `json:"default_value"`
}

type UpdateScheduleRequest struct {
	Rule            RecurrenceRuleDTO `json:"rule"`
	DurationMinutes int               `json:"duration_minutes"`
	SessionType     string            `json:"session_type"`
	DefaultValue    int64             `json:"default_value"`
}

type MoveSeriesRequest struct {
	OriginalOccurrence time.Time `json:"original_occurrence"`
	Target             time.Time `json:"target"`
}

type MoveSessionRequest struct {
	ScheduleID     string    `json:"schedule_id"`
	OccurrenceDate time.Time `json:"occurrence_date"`
	Target         time.Time `json:"target"`
}

type ScheduleResponse struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	PatientID        uuid.UUID         `json:"patient_id"`
	Rule             RecurrenceRuleDTO `json:"rule"`
	DurationMinutes  int               `json:"duration_minutes"`
	SessionType      string            `json:"session_type"`
	DefaultValue     int64             `json:"default_value"`
	IsActive         bool              `json:"is_active"`
	SessionsInserted int               `json:"sessions_inserted,omitempty"`
	Notice           string            `json:"notice,omitempty"`
}

type SessionResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	ScheduleID      *uuid.UUID `json:"schedule_id,omitempty"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	SessionType     string     `json:"session_type"`
	Status          string     `json:"status"`
	Paid            bool       `json:"paid"`
	Value           int64      `json:"value"`
	Origin          string     `json:"origin"`
}

type MaterializeResponse struct {
	ScheduleID       uuid.UUID `json:"schedule_id"`
	SessionsInserted int       `json:"sessions_inserted"`
}

type RegenerateResponse struct {
	PatientID        uuid.UUID `json:"patient_id"`
	SessionsInserted int       `json:"sessions_inserted"`
}

type DriftedResponse struct {
	Drifted []uuid.UUID `json:"drifted"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (d RecurrenceRuleDTO) toRule() (scheduling.RecurrenceRule, error) {
	startDate, err := time.Parse("2006-01-02", d.StartDate)
	if err != nil {
		return scheduling.RecurrenceRule{}, fmt.Errorf("start_date must be YYYY-MM-DD, got %q", d.StartDate)
	}

	days := make([]time.Weekday, len(d.DaysOfWeek))
	for i, v := range d.DaysOfWeek {
		days[i] = time.Weekday(v)
	}
	if len(days) == 0 {
		days = nil
	}

	return scheduling.RecurrenceRule{
		Frequency:  scheduling.Frequency(d.Frequency),
		Interval:   d.Interval,
		DaysOfWeek: days,
		StartDate:  startDate,
		StartTime:  d.StartTime,
	}, nil
}

func ruleToDTO(r scheduling.RecurrenceRule) RecurrenceRuleDTO {
	var days []int
	for _, d := range r.DaysOfWeek {
		days = append(days, int(d))
	}
	return RecurrenceRuleDTO{
		Frequency:  string(r.Frequency),
		Interval:   r.Interval,
		DaysOfWeek: days,
		StartDate:  r.StartDate.Format("2006-01-02"),
		StartTime:  r.StartTime,
	}
}

func scheduleToResponse(s *scheduling.Schedule, inserted int, notice string) ScheduleResponse {
	return ScheduleResponse{
		ID:               s.ID,
		UserID:           s.UserID,
		PatientID:        s.PatientID,
		Rule:             ruleToDTO(s.Rule),
		DurationMinutes:  s.DurationMinutes,
		SessionType:      s.SessionType,
		DefaultValue:     s.DefaultValue,
		IsActive:         s.IsActive,
		SessionsInserted: inserted,
		Notice:           notice,
	}
}

func sessionToResponse(s scheduling.Session) SessionResponse {
	return SessionResponse{
		ID:              s.ID,
		PatientID:       s.PatientID,
		ScheduleID:      s.ScheduleID,
		ScheduledAt:     s.ScheduledAt,
		DurationMinutes: s.DurationMinutes,
		SessionType:     s.SessionType,
		Status:          string(s.Status),
		Paid:            s.Paid,
		Value:           s.Value,
		Origin:          string(s.Origin),
	}
}
