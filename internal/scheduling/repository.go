package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrNoActiveSchedule     = errors.New("patient has no active schedule")
	ErrActiveScheduleExists = errors.New("patient already has an active schedule")

	// ErrDuplicateSession maps the storage uniqueness constraint on
	// (patient_id, scheduled_at). Materialization treats it as a benign
	// no-op; see Service.Materialize.
	ErrDuplicateSession = errors.New("session already exists at that instant")
)

// Repository contains all DB interactions needed by the service and auditor.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	CreateSchedule(ctx context.Context, s *Schedule) (*Schedule, error)
	GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetActiveScheduleForPatient(ctx context.Context, patientID uuid.UUID) (*Schedule, error)
	UpdateSchedule(ctx context.Context, s *Schedule) (*Schedule, error)
	DeactivateSchedule(ctx context.Context, id uuid.UUID) error

	// Sessions
	GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)
	InsertSession(ctx context.Context, s Session) error
	ListFutureSessions(ctx context.Context, patientID uuid.UUID, from time.Time) ([]Session, error)
	ListSessionsInRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Session, error)
	MoveSession(ctx context.Context, id uuid.UUID, newAt time.Time) error
	DeleteRecurringSessionsFrom(ctx context.Context, scheduleID uuid.UUID, cutoff time.Time) (int64, error)

	// Exceptions (audit trail, write-only from the core's side)
	InsertException(ctx context.Context, e Exception) error

	// Drift audit
	FindDriftedPatients(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
