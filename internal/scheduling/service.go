package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/practice-scheduler/internal/config"
	"github.com/psiagenda/practice-scheduler/internal/notify"
	redisclient "github.com/psiagenda/practice-scheduler/internal/redis"
)

var (
	ErrPatientArchived = errors.New("patient is archived")
	ErrScheduleRetired = errors.New("schedule is no longer active")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	clock    Clock
	cfg      config.Config
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, clock Clock, cfg config.Config) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
	}
}

// CreateSchedule validates the rule, persists the schedule and materializes
// its first horizon of sessions. The repository rejects a second active
// schedule for the same patient.
func (s *Service) CreateSchedule(ctx context.Context, sched *Schedule) (*Schedule, int, error) {
	if err := sched.Rule.Validate(); err != nil {
		return nil, 0, err
	}

	patient, err := s.repo.GetPatientByID(ctx, sched.PatientID)
	if err != nil {
		return nil, 0, fmt.Errorf("load patient: %w", err)
	}
	if patient.ArchivedAt != nil {
		return nil, 0, ErrPatientArchived
	}

	created, err := s.repo.CreateSchedule(ctx, sched)
	if err != nil {
		if errors.Is(err, ErrActiveScheduleExists) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("create schedule: %w", err)
	}

	inserted, err := s.Materialize(ctx, created)
	if err != nil {
		return created, inserted, fmt.Errorf("materialize new schedule: %w", err)
	}

	return created, inserted, nil
}

// UpdateSchedule replaces the rule and defaults of a live series, then
// rebuilds its regenerable tail from now.
func (s *Service) UpdateSchedule(ctx context.Context, sched *Schedule) (*Schedule, int, error) {
	if err := sched.Rule.Validate(); err != nil {
		return nil, 0, err
	}

	var updated *Schedule
	var inserted int

	err := s.locker.WithScheduleLock(ctx, sched.ID, func(lockCtx context.Context) error {
		var err error
		updated, err = s.repo.UpdateSchedule(lockCtx, sched)
		if err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}

		now := s.clock.Now()
		if _, err := s.repo.DeleteRecurringSessionsFrom(lockCtx, updated.ID, now); err != nil {
			return fmt.Errorf("delete future recurring sessions: %w", err)
		}

		inserted, err = s.Materialize(lockCtx, updated)
		if err != nil {
			return fmt.Errorf("rematerialize schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return updated, inserted, nil
}

// DeactivateSchedule retires a series. The schedule row stays (sessions still
// reference it); only its future recurring sessions are removed.
func (s *Service) DeactivateSchedule(ctx context.Context, scheduleID uuid.UUID) error {
	return s.locker.WithScheduleLock(ctx, scheduleID, func(lockCtx context.Context) error {
		if err := s.repo.DeactivateSchedule(lockCtx, scheduleID); err != nil {
			return err
		}
		if _, err := s.repo.DeleteRecurringSessionsFrom(lockCtx, scheduleID, s.clock.Now()); err != nil {
			return fmt.Errorf("delete future recurring sessions: %w", err)
		}
		return nil
	})
}

// Materialize reconciles the schedule's generated occurrences against the
// patient's persisted sessions and inserts only the missing ones. Idempotent:
// an immediate second call inserts nothing. A uniqueness conflict from a
// concurrent materialization of the same instant is swallowed; any other
// storage error aborts the loop, leaving a partial (retryable) result.
func (s *Service) Materialize(ctx context.Context, sched *Schedule) (int, error) {
	now := s.clock.Now()

	candidates, err := Generate(sched.Rule, now, s.cfg.HorizonMonths)
	if err != nil {
		return 0, err
	}

	// Read-then-decide-then-write: the existing set is fetched in full
	// before any insert decision.
	existing, err := s.repo.ListFutureSessions(ctx, sched.PatientID, now)
	if err != nil {
		return 0, fmt.Errorf("list existing sessions: %w", err)
	}

	taken := make(map[int64]struct{}, len(existing))
	for _, sess := range existing {
		taken[sess.ScheduledAt.UTC().UnixNano()] = struct{}{}
	}

	inserted := 0
	for _, occ := range candidates {
		if occ.Before(now) {
			continue
		}
		if _, ok := taken[occ.UTC().UnixNano()]; ok {
			continue
		}

		scheduleID := sched.ID
		err := s.repo.InsertSession(ctx, Session{
			UserID:          sched.UserID,
			PatientID:       sched.PatientID,
			ScheduleID:      &scheduleID,
			ScheduledAt:     occ,
			DurationMinutes: sched.DurationMinutes,
			SessionType:     sched.SessionType,
			Status:          SessionScheduled,
			Paid:            false,
			Value:           sched.DefaultValue,
			Origin:          OriginRecurring,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateSession) {
				// Lost a benign race; the instant exists either way.
				continue
			}
			return inserted, fmt.Errorf("insert session at %s: %w", occ, err)
		}
		inserted++
	}

	return inserted, nil
}

// MaterializeSchedule is the UI-triggered entry point: it reloads the
// schedule and refuses archived patients and retired schedules.
func (s *Service) MaterializeSchedule(ctx context.Context, scheduleID uuid.UUID) (int, error) {
	sched, err := s.repo.GetScheduleByID(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	if !sched.IsActive {
		return 0, ErrScheduleRetired
	}

	patient, err := s.repo.GetPatientByID(ctx, sched.PatientID)
	if err != nil {
		return 0, fmt.Errorf("load patient: %w", err)
	}
	if patient.ArchivedAt != nil {
		return 0, ErrPatientArchived
	}

	return s.Materialize(ctx, sched)
}

// UpdateSeriesFromOccurrence redefines the whole series from one dragged
// occurrence onward. The new rule is derived from the target datetime; every
// recurring session at or after the original occurrence is purged and the
// series regenerated. Returns the updated schedule and whether the rule had
// to be downgraded to weekly.
func (s *Service) UpdateSeriesFromOccurrence(ctx context.Context, scheduleID uuid.UUID, originalAt, targetAt time.Time) (*Schedule, bool, error) {
	sched, err := s.repo.GetScheduleByID(ctx, scheduleID)
	if err != nil {
		return nil, false, err
	}

	newRule, downgraded := deriveRuleFromTarget(sched.Rule, targetAt)
	sched.Rule = newRule

	var updated *Schedule
	err = s.locker.WithScheduleLock(ctx, scheduleID, func(lockCtx context.Context) error {
		var err error
		updated, err = s.repo.UpdateSchedule(lockCtx, sched)
		if err != nil {
			return fmt.Errorf("persist derived rule: %w", err)
		}

		// Cutoff is the original occurrence, not now: the edited point and
		// everything after it is rebuilt, earlier occurrences stay.
		if _, err := s.repo.DeleteRecurringSessionsFrom(lockCtx, scheduleID, originalAt); err != nil {
			return fmt.Errorf("delete recurring sessions from cutoff: %w", err)
		}

		if _, err := s.Materialize(lockCtx, updated); err != nil {
			return fmt.Errorf("rematerialize series: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if downgraded {
		log.Printf("schedule %s: recurrence %s downgraded to weekly on series move", scheduleID, sched.Rule.Frequency)
		s.publishNotice(ctx, notify.Notice{
			Type:       notify.NoticeRecurrenceDowngraded,
			UserID:     updated.UserID,
			ScheduleID: updated.ID,
			Message:    "custom recurrence was converted to weekly when the series was moved",
		})
	}

	return updated, downgraded, nil
}

// deriveRuleFromTarget recomputes the rule anchor from the drag target.
// Monthly keeps its frequency (day-of-month inherited from the new date),
// weekly and biweekly keep theirs with the weekday recomputed; anything else
// is narrowed to weekly, which the caller must surface to the user.
func deriveRuleFromTarget(old RecurrenceRule, target time.Time) (RecurrenceRule, bool) {
	startDate := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location())
	startTime := target.Format("15:04")

	switch old.Frequency {
	case FreqMonthly:
		return RecurrenceRule{
			Frequency: FreqMonthly,
			Interval:  old.Interval,
			StartDate: startDate,
			StartTime: startTime,
		}, false
	case FreqWeekly, FreqBiweekly:
		return RecurrenceRule{
			Frequency:  old.Frequency,
			Interval:   old.Interval,
			DaysOfWeek: []time.Weekday{target.Weekday()},
			StartDate:  startDate,
			StartTime:  startTime,
		}, false
	default:
		return RecurrenceRule{
			Frequency:  FreqWeekly,
			Interval:   1,
			DaysOfWeek: []time.Weekday{target.Weekday()},
			StartDate:  startDate,
			StartTime:  startTime,
		}, true
	}
}

// MoveSingleOccurrence detaches one session from its series and reschedules
// it. The session becomes origin=manual so later bulk regenerations leave it
// alone; there is no path back to recurring.
func (s *Service) MoveSingleOccurrence(ctx context.Context, sessionID, scheduleID uuid.UUID, occurrenceDate, targetAt time.Time) error {
	sess, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.ScheduleID == nil || *sess.ScheduleID != scheduleID {
		return ErrSessionNotFound
	}

	if err := s.repo.MoveSession(ctx, sessionID, targetAt); err != nil {
		return fmt.Errorf("move session: %w", err)
	}

	// Audit trail only; the rescheduled session row is what drives the
	// calendar, so a failed exception write must not fail the move.
	err = s.repo.InsertException(ctx, Exception{
		ScheduleID:    scheduleID,
		Type:          ExceptionMove,
		ExceptionDate: occurrenceDate,
		NewDatetime:   targetAt,
	})
	if err != nil {
		log.Printf("failed to record move exception for schedule %s: %v", scheduleID, err)
	}

	return nil
}

// RegenerateForPatient rebuilds the future recurring sessions of the
// patient's single active schedule. Used as an explicit user action and as
// the audit repair path.
func (s *Service) RegenerateForPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	patient, err := s.repo.GetPatientByID(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("load patient: %w", err)
	}
	if patient.ArchivedAt != nil {
		return 0, ErrPatientArchived
	}

	sched, err := s.repo.GetActiveScheduleForPatient(ctx, patientID)
	if err != nil {
		return 0, err
	}

	var inserted int
	err = s.locker.WithScheduleLock(ctx, sched.ID, func(lockCtx context.Context) error {
		if _, err := s.repo.DeleteRecurringSessionsFrom(lockCtx, sched.ID, s.clock.Now()); err != nil {
			return fmt.Errorf("delete future recurring sessions: %w", err)
		}
		var err error
		inserted, err = s.Materialize(lockCtx, sched)
		return err
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// ListSessions exposes a calendar range query for UI consumers.
func (s *Service) ListSessions(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Session, error) {
	sessions, err := s.repo.ListSessionsInRange(ctx, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) publishNotice(ctx context.Context, n notify.Notice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, n); err != nil {
		log.Printf("failed to publish notice %s for schedule %s: %v", n.Type, n.ScheduleID, err)
	}
}
