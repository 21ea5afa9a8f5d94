package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aquasense/orchestrator/internal/answer"
	"github.com/aquasense/orchestrator/internal/assembler"
	"github.com/aquasense/orchestrator/internal/cache"
	"github.com/aquasense/orchestrator/internal/config"
	"github.com/aquasense/orchestrator/internal/contextstore"
	"github.com/aquasense/orchestrator/internal/dispatch"
	"github.com/aquasense/orchestrator/internal/health"
	"github.com/aquasense/orchestrator/internal/search"
	"github.com/aquasense/orchestrator/internal/service"
	"github.com/aquasense/orchestrator/internal/store"
	"github.com/aquasense/orchestrator/internal/supervisor"
	"github.com/aquasense/orchestrator/internal/tools"
	transport "github.com/aquasense/orchestrator/internal/transport/http"
	"github.com/aquasense/orchestrator/policy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("database", cfg.DatabaseURL).
		Str("answer_service", cfg.AnswerServiceURL).
		Msg("starting orchestrator")

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer db.Close()

	semantic := search.NewKeywordSemanticSearcher(db)
	external := search.NewStaticExternalSearcher()
	generator := answer.NewGenerator(log, cfg.AnswerServiceURL, cfg.AnswerServiceKey, cfg.AnswerModel, cfg.AnswerTimeout)

	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewStructuredSearchTool(db, cfg.StructuredResultCap))
	registry.MustRegister(tools.NewDocumentContentTool(db, semantic))
	registry.MustRegister(tools.NewScoreExplainTool(db))
	registry.MustRegister(tools.NewExternalLookupTool(external))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize policy engine")
	}

	dispatcher := dispatch.New(registry, gate, cfg.FanOutDispatch, log)
	sup := supervisor.New(dispatcher, db, cfg.IterationBudget, log)
	asm := assembler.New(generator, log)

	answerCache := cache.New(log)
	go answerCache.RunSweeper(ctx, cfg.CacheSweepInterval)

	contexts := contextstore.New(cfg.ContextWindow)

	monitor := health.NewMonitor(generator, registry, cfg.ProbeInterval, log)
	go monitor.Run(ctx)

	svc := service.New(cfg, db, sup, asm, answerCache, contexts, monitor, gate, log)

	server := transport.NewServer(svc)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Msg("orchestrator started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down orchestrator")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down server gracefully")
	}
	svc.Shutdown()

	log.Info().Msg("orchestrator stopped")
}
