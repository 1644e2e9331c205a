package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Narrowed to an
// interface so tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var archivedAt *time.Time

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&archivedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.ArchivedAt = archivedAt
	return &p, nil
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	var days []int32

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PatientID,
		&s.Rule.Frequency,
		&s.Rule.Interval,
		&days,
		&s.Rule.StartDate,
		&s.Rule.StartTime,
		&s.DurationMinutes,
		&s.SessionType,
		&s.DefaultValue,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	s.Rule.DaysOfWeek = weekdaysFromInts(days)
	return &s, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var scheduleID *uuid.UUID

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PatientID,
		&scheduleID,
		&s.ScheduledAt,
		&s.DurationMinutes,
		&s.SessionType,
		&s.Status,
		&s.Paid,
		&s.Value,
		&s.Origin,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	s.ScheduleID = scheduleID
	return &s, nil
}

func weekdaysFromInts(in []int32) []time.Weekday {
	if in == nil {
		return nil
	}
	out := make([]time.Weekday, len(in))
	for i, v := range in {
		out[i] = time.Weekday(v)
	}
	return out
}

func intsFromWeekdays(in []time.Weekday) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

const scheduleColumns = `id, user_id, patient_id, frequency, recur_interval, days_of_week, start_date, start_time,
	       duration_minutes, session_type, default_value, is_active, created_at, updated_at`

const sessionColumns = `id, user_id, patient_id, schedule_id, scheduled_at, duration_minutes, session_type,
	       status, paid, value, origin, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, archived_at, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) CreateSchedule(ctx context.Context, s *Schedule) (*Schedule, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO schedules (id, user_id, patient_id, frequency, recur_interval, days_of_week, start_date, start_time,
		                       duration_minutes, session_type, default_value, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true, now(), now())
		RETURNING `+scheduleColumns+`
	`, id, s.UserID, s.PatientID, s.Rule.Frequency, s.Rule.Interval, intsFromWeekdays(s.Rule.DaysOfWeek),
		s.Rule.StartDate, s.Rule.StartTime, s.DurationMinutes, s.SessionType, s.DefaultValue)

	created, err := scanSchedule(row)
	if err != nil {
		// Partial unique index: one active schedule per patient.
		if isUniqueViolation(err) {
			return nil, ErrActiveScheduleExists
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetScheduleByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE id = $1
	`, id)
	return scanSchedule(row)
}

func (r *PgRepository) GetActiveScheduleForPatient(ctx context.Context, patientID uuid.UUID) (*Schedule, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE patient_id = $1 AND is_active
	`, patientID)

	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			return nil, ErrNoActiveSchedule
		}
		return nil, err
	}
	return s, nil
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, s *Schedule) (*Schedule, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE schedules
		SET frequency = $2,
		    recur_interval = $3,
		    days_of_week = $4,
		    start_date = $5,
		    start_time = $6,
		    duration_minutes = $7,
		    session_type = $8,
		    default_value = $9,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+scheduleColumns+`
	`, s.ID, s.Rule.Frequency, s.Rule.Interval, intsFromWeekdays(s.Rule.DaysOfWeek),
		s.Rule.StartDate, s.Rule.StartTime, s.DurationMinutes, s.SessionType, s.DefaultValue)
	return scanSchedule(row)
}

func (r *PgRepository) DeactivateSchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schedules
		SET is_active = false,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

func (r *PgRepository) InsertSession(ctx context.Context, s Session) error {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, patient_id, schedule_id, scheduled_at, duration_minutes, session_type,
		                      status, paid, value, origin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	`, id, s.UserID, s.PatientID, s.ScheduleID, s.ScheduledAt, s.DurationMinutes, s.SessionType,
		s.Status, s.Paid, s.Value, s.Origin)
	if err != nil {
		// Unique (patient_id, scheduled_at): a concurrent materialization
		// already placed this instant.
		if isUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}

func (r *PgRepository) ListFutureSessions(ctx context.Context, patientID uuid.UUID, from time.Time) ([]Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE patient_id = $1
		  AND scheduled_at >= $2
		ORDER BY scheduled_at
	`, patientID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (r *PgRepository) ListSessionsInRange(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE patient_id = $1
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at
	`, patientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]Session, error) {
	var result []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// MoveSession reschedules one session and stamps it manual, detaching it from
// bulk regeneration.
func (r *PgRepository) MoveSession(ctx context.Context, id uuid.UUID, newAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET scheduled_at = $2,
		    origin = 'manual',
		    updated_at = now()
		WHERE id = $1
	`, id, newAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteRecurringSessionsFrom removes the regenerable tail of a series.
// Manual sessions are excluded even when they still carry the schedule_id.
func (r *PgRepository) DeleteRecurringSessionsFrom(ctx context.Context, scheduleID uuid.UUID, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM sessions
		WHERE schedule_id = $1
		  AND origin = 'recurring'
		  AND scheduled_at >= $2
	`, scheduleID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) InsertException(ctx context.Context, e Exception) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO schedule_exceptions (schedule_id, type, exception_date, new_datetime, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, e.ScheduleID, e.Type, e.ExceptionDate, e.NewDatetime)
	if err != nil {
		return fmt.Errorf("insert schedule exception: %w", err)
	}
	return nil
}

// FindDriftedPatients returns patients whose active schedule has produced no
// future recurring sessions. Archived patients are excluded; the partial
// unique index guarantees at most one active schedule per patient.
func (r *PgRepository) FindDriftedPatients(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.patient_id
		FROM schedules s
		JOIN patients p ON p.id = s.patient_id
		WHERE s.is_active
		  AND p.archived_at IS NULL
		  AND NOT EXISTS (
			SELECT 1
			FROM sessions x
			WHERE x.schedule_id = s.id
			  AND x.origin = 'recurring'
			  AND x.scheduled_at >= $1
		  )
		ORDER BY s.patient_id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
