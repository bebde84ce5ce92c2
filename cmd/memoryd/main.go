// memoryd serves the persistent memory API: HTTP transport over the
// recorder, retrieval, decision-ledger, capsule, orchestrator and handoff
// services, plus a background consolidation worker.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/callin2/agent-memory-sub006/pkg/api"
	"github.com/callin2/agent-memory-sub006/pkg/capsules"
	"github.com/callin2/agent-memory-sub006/pkg/config"
	"github.com/callin2/agent-memory-sub006/pkg/consolidation"
	"github.com/callin2/agent-memory-sub006/pkg/database"
	"github.com/callin2/agent-memory-sub006/pkg/decisions"
	"github.com/callin2/agent-memory-sub006/pkg/handoff"
	"github.com/callin2/agent-memory-sub006/pkg/metrics"
	"github.com/callin2/agent-memory-sub006/pkg/orchestrator"
	"github.com/callin2/agent-memory-sub006/pkg/recorder"
	"github.com/callin2/agent-memory-sub006/pkg/redaction"
	"github.com/callin2/agent-memory-sub006/pkg/retrieval"
	"github.com/callin2/agent-memory-sub006/pkg/storage"
	"github.com/callin2/agent-memory-sub006/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func loadDatabaseConfig() database.Config {
	return database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "agent_memory"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),

		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	cfg, err := config.Load(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Printf("starting %s", version.Full())
	log.Printf("http port: %s", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := database.NewClient(ctx, loadDatabaseConfig())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to postgres, migrations applied")

	store := storage.New(dbClient)
	reg := metrics.New()
	redactor := redaction.NewService()

	rec := recorder.New(store, redactor, cfg.RedactionMinSensitivity)
	retriever := retrieval.New(store, cfg)
	ledger := decisions.New(store)
	capsuleSvc := capsules.New(store)
	handoffSvc := handoff.New(store, reg)
	builder := orchestrator.New(retriever, ledger, capsuleSvc, store, store, cfg, reg)
	worker := consolidation.New(store, cfg, reg)

	worker.Start(ctx)

	srv := api.New(cfg, dbClient, store, rec, retriever, ledger, capsuleSvc, builder, handoffSvc, worker, reg)

	go func() {
		log.Printf("http server listening on :%s", cfg.HTTPPort)
		if err := srv.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}

	log.Println("memoryd stopped")
}
