// Command contactminer runs the contact-discovery mining engine: an HTTP
// API for job results/import management (§6) plus a background worker
// pool that drives FlowOrchestrator.ExecuteJob over pending jobs (§4.4)
// and a retention sweep (§3 lifecycle summary, §4.12 Cleanup).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/contactminer/engine/pkg/aggregator"
	"github.com/contactminer/engine/pkg/api"
	"github.com/contactminer/engine/pkg/circuit"
	"github.com/contactminer/engine/pkg/cleanup"
	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/database"
	"github.com/contactminer/engine/pkg/eventbus"
	"github.com/contactminer/engine/pkg/extractor"
	"github.com/contactminer/engine/pkg/htmlcache"
	"github.com/contactminer/engine/pkg/importpipeline"
	"github.com/contactminer/engine/pkg/orchestrator"
	"github.com/contactminer/engine/pkg/paginate"
	"github.com/contactminer/engine/pkg/router"
	"github.com/contactminer/engine/pkg/scout"
	"github.com/contactminer/engine/pkg/ttlstore"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	db := dbClient.DB()
	slog.Info("connected to postgres")

	pubConn := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: os.Getenv("REDIS_PASSWORD"), DB: cfg.Redis.DB,
	})
	subConn := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: os.Getenv("REDIS_PASSWORD"), DB: cfg.Redis.DB,
	})
	defer pubConn.Close()
	defer subConn.Close()
	if err := pubConn.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	slog.Info("connected to redis", "addr", cfg.Redis.Addr)

	store := ttlstore.New(pubConn)
	bus := eventbus.New(pubConn, subConn)
	cache := htmlcache.New(store)
	tracker := cost.New()
	breaker := circuit.New(cfg.Circuit.FailureThreshold, cfg.Circuit.OpenDuration, cfg.Circuit.HalfOpenSuccessThreshold)

	analyzer := scout.New(cache)
	rt := router.New(analyzer, tracker)
	paginator := paginate.New(cfg.Flow)
	agg := aggregator.New(store, bus, db, cfg.Canonical)

	httpBasic := extractor.NewHTTPBasic(cache)
	registry := extractor.NewRegistry(
		httpBasic,
		extractor.NewDirectory(httpBasic),
		extractor.NewPlaywright(),
		extractor.NewPlaywrightTable(),
		extractor.NewWebsiteScraper(),
	)

	orch := orchestrator.New(registry, tracker, analyzer, rt, paginator, agg, breaker, cfg.Flow)

	workerID := getEnv("WORKER_ID", "contactminer")
	pool := orchestrator.NewWorkerPool(workerID, db, orch, orchestrator.PoolConfig{
		WorkerCount:        cfg.Queue.WorkerCount,
		PollInterval:       cfg.Queue.PollInterval,
		StaleThreshold:     cfg.Queue.OrphanThreshold,
		OrphanScanInterval: cfg.Queue.OrphanDetectionInterval,
	})
	pool.Start(ctx)
	defer pool.Stop()

	importer := importpipeline.New(db)

	cleaner := cleanup.NewService(cfg.Retention, db, breaker.Cleanup)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	authCfg := config.LoadAuthConfig()
	if authCfg.WorkerID == "" {
		authCfg.WorkerID = workerID
	}
	server := api.NewServer(db, importer, cfg.Canonical, authCfg)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}
