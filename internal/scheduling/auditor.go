package scheduling

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// SeriesRegenerator is the repair action the auditor delegates to. Satisfied
// by *Service.
type SeriesRegenerator interface {
	RegenerateForPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}

// Auditor finds schedules that are active but have produced no future
// recurring sessions (drift) and repairs them through the normal
// regeneration path.
type Auditor struct {
	repo  Repository
	regen SeriesRegenerator
	clock Clock
}

func NewAuditor(repo Repository, regen SeriesRegenerator, clock Clock) *Auditor {
	return &Auditor{
		repo:  repo,
		regen: regen,
		clock: clock,
	}
}

// FindDrifted is read-only: running it twice without repairing reports the
// same set unless external state changed.
func (a *Auditor) FindDrifted(ctx context.Context) ([]uuid.UUID, error) {
	drifted, err := a.repo.FindDriftedPatients(ctx, a.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("find drifted patients: %w", err)
	}
	return drifted, nil
}

func (a *Auditor) Repair(ctx context.Context, patientID uuid.UUID) error {
	inserted, err := a.regen.RegenerateForPatient(ctx, patientID)
	if err != nil {
		return fmt.Errorf("repair patient %s: %w", patientID, err)
	}
	log.Printf("repaired drifted patient %s, inserted %d sessions", patientID, inserted)
	return nil
}

// RunOnce is intended to be called by the worker periodically. Per-patient
// failures are logged and skipped so one broken schedule cannot stall the
// sweep.
func (a *Auditor) RunOnce(ctx context.Context) error {
	drifted, err := a.FindDrifted(ctx)
	if err != nil {
		return err
	}

	for _, patientID := range drifted {
		if err := a.Repair(ctx, patientID); err != nil {
			log.Printf("drift repair failed for patient %s: %v", patientID, err)
			continue
		}
	}

	return nil
}
