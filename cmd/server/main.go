package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/router"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stemsi/exstem-proctor/internal/worker"
)

const sweepInterval = time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("bank", cfg.QuestionBank).
		Dur("exam_duration", cfg.ExamDuration).
		Dur("grace_period", cfg.GracePeriod).
		Msg("Starting ExStem Proctor")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	questionService := service.NewQuestionService(questionRepo, rdb, cfg.QuestionBank, log)
	resultService := service.NewResultService(rdb, log)
	violationService := service.NewViolationService(rdb)
	monitorService := service.NewMonitorService(rdb, log)
	operatorAuth := service.NewOperatorAuth(cfg.OperatorPasscodeHash)
	if !operatorAuth.Enabled() {
		log.Warn().Msg("OPERATOR_PASSCODE_HASH not set: operator exit and monitor are disabled")
	}

	policy := proctor.PolicyFromConfig(cfg)
	registry := service.NewSessionRegistry(service.RegistryOptions{
		Questions:  questionService,
		Results:    resultService,
		Violations: violationService,
		Observer:   monitorService,
		Policy:     policy,
		Secret:     cfg.SessionSecret,
		TokenTTL:   cfg.SessionTokenTTL,
		Retention:  cfg.SessionRetention,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session:  handler.NewSessionHandler(registry, log),
		Question: handler.NewQuestionHandler(questionService, policy.ExamDuration, policy.GracePeriod, log),
		Stream:   handler.NewStreamHandler(registry, operatorAuth, log, cfg.AllowedOrigins),
		Monitor:  handler.NewMonitorHandler(monitorService, resultRepo, violationRepo, log),
		System:   handler.NewSystemHandler(pool, rdb, registry, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	resultWorker := worker.NewResultWorker(resultRepo, rdb, log)
	violationWorker := worker.NewViolationWorker(violationRepo, rdb, log)

	workers.Add(3)
	go func() { defer workers.Done(); resultWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); violationWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); registry.Start(workerCtx, sweepInterval) }()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load the question bank into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := questionService.Prewarm(ctx); err != nil {
		log.Warn().Err(err).Msg("Question cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, router.Guards{Tokens: registry, Operator: operatorAuth}, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Release every session's timers and wait for in-flight persistence
	//    so queued results reach Redis before the workers stop.
	registry.Shutdown()

	// 3. Stop background workers; each flushes its pending batch.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
