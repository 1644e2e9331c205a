package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuditorDetectsAndRepairsDrift(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	auditor := NewAuditor(repo, svc, fixedClock{now: testNow})

	created, _ := mustCreateWeeklySchedule(t, svc, repo)

	// A freshly materialized schedule is not drifted.
	drifted, err := auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifted)

	// Wipe its future sessions: the schedule is now active with nothing
	// materialized, which is exactly the drift condition.
	_, err = repo.DeleteRecurringSessionsFrom(context.Background(), created.ID, testNow)
	require.NoError(t, err)

	drifted, err = auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	require.Equal(t, created.PatientID, drifted[0])

	// The audit is read-only: a second run reports the same set.
	again, err := auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Equal(t, drifted, again)

	// Repair regenerates through the normal path.
	require.NoError(t, auditor.Repair(context.Background(), created.PatientID))
	require.NotEmpty(t, repo.sessionsForSchedule(created.ID))

	drifted, err = auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifted)
}

func TestAuditorIgnoresArchivedPatients(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	auditor := NewAuditor(repo, svc, fixedClock{now: testNow})

	created, _ := mustCreateWeeklySchedule(t, svc, repo)
	_, err := repo.DeleteRecurringSessionsFrom(context.Background(), created.ID, testNow)
	require.NoError(t, err)

	// Archive the patient afterwards: the drifted schedule must drop out
	// of the audit.
	repo.mu.Lock()
	p := repo.patients[created.PatientID]
	archivedAt := testNow
	p.ArchivedAt = &archivedAt
	repo.patients[created.PatientID] = p
	repo.mu.Unlock()

	drifted, err := auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifted)
}

func TestAuditorIgnoresInactiveSchedules(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	auditor := NewAuditor(repo, svc, fixedClock{now: testNow})

	created, _ := mustCreateWeeklySchedule(t, svc, repo)
	require.NoError(t, svc.DeactivateSchedule(context.Background(), created.ID))

	drifted, err := auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifted)
}

func TestAuditorRunOnceRepairsEverything(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	auditor := NewAuditor(repo, svc, fixedClock{now: testNow})

	first, _ := mustCreateWeeklySchedule(t, svc, repo)
	second, _ := mustCreateWeeklySchedule(t, svc, repo)

	for _, sched := range []*Schedule{first, second} {
		_, err := repo.DeleteRecurringSessionsFrom(context.Background(), sched.ID, testNow)
		require.NoError(t, err)
	}

	require.NoError(t, auditor.RunOnce(context.Background()))

	require.NotEmpty(t, repo.sessionsForSchedule(first.ID))
	require.NotEmpty(t, repo.sessionsForSchedule(second.ID))

	drifted, err := auditor.FindDrifted(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifted)
}
