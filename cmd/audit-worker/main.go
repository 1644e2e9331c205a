package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/psiagenda/practice-scheduler/internal/config"
	"github.com/psiagenda/practice-scheduler/internal/db"
	"github.com/psiagenda/practice-scheduler/internal/notify"
	redisclient "github.com/psiagenda/practice-scheduler/internal/redis"
	"github.com/psiagenda/practice-scheduler/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("audit-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running audit worker in env=%s interval=%s", cfg.Env, cfg.AuditInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	clock := scheduling.NewRealClock()
	svc := scheduling.NewService(repo, locker, notify.LogNotifier{}, clock, cfg)
	auditor := scheduling.NewAuditor(repo, svc, clock)

	// Run once at startup
	runOnce(rootCtx, auditor)

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping audit worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, auditor)
		}
	}
}

func runOnce(ctx context.Context, auditor *scheduling.Auditor) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	if err := auditor.RunOnce(runCtx); err != nil {
		log.Printf("audit run error: %v", err)
		return
	}
	log.Printf("audit run complete in %s", time.Since(start))
}
