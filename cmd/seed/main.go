package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psiagenda/practice-scheduler/internal/config"
	"github.com/psiagenda/practice-scheduler/internal/db"
	"github.com/psiagenda/practice-scheduler/internal/notify"
	"github.com/psiagenda/practice-scheduler/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	userID := uuid.New()

	patientIDs, err := seedPatients(context.Background(), pool, userID, 200)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, userID, patientIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 50

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, user_id, name, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, userID, name)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return ids, nil
}

// seedSchedules gives roughly half the patients a weekly recurring schedule
// and materializes the first horizon of sessions for each.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID, patientIDs []uuid.UUID) error {
	repo := scheduling.NewPgRepository(pool)
	cfg := config.Config{HorizonMonths: 3}
	svc := scheduling.NewService(repo, noopLocker{}, notify.LogNotifier{}, scheduling.NewRealClock(), cfg)

	sessionTypes := []string{"in_person", "online"}

	seeded := 0
	for _, patientID := range patientIDs {
		if gofakeit.Bool() {
			continue
		}

		start := time.Now().AddDate(0, 0, gofakeit.Number(0, 6))
		sched := &scheduling.Schedule{
			UserID:    userID,
			PatientID: patientID,
			Rule: scheduling.RecurrenceRule{
				Frequency:  scheduling.FreqWeekly,
				Interval:   1,
				DaysOfWeek: []time.Weekday{start.Weekday()},
				StartDate:  time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local),
				StartTime:  gofakeit.RandomString([]string{"08:00", "09:00", "10:30", "14:00", "16:30"}),
			},
			DurationMinutes: 50,
			SessionType:     sessionTypes[gofakeit.Number(0, len(sessionTypes)-1)],
			DefaultValue:    int64(gofakeit.Number(100, 300)) * 100,
		}

		_, inserted, err := svc.CreateSchedule(ctx, sched)
		if err != nil {
			return err
		}
		seeded++
		if seeded%20 == 0 {
			log.Printf("schedules seeded: %d (last inserted %d sessions)", seeded, inserted)
		}
	}

	log.Printf("schedules seeded: %d", seeded)
	return nil
}

// noopLocker is enough for a single-process seed run.
type noopLocker struct{}

func (noopLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
