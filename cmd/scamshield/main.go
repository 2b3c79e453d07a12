// ScamShield - scam-risk assessment for phone numbers, URLs, and messages.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/api"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/assessor"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/bus"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/cache"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/lookup"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/repository"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/rules"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SCAMSHIELD_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting scamshield",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SCAMSHIELD_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	loadLookupEnv(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load rules from database (no hardcoded defaults - configure via API)
	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize external lookup clients. Empty API keys leave a client
	// nil; the assessor degrades to default enrichment.
	externalTimeout := time.Duration(cfg.Lookup.ExternalTimeoutSecs) * time.Second

	var phoneClient *lookup.PhoneClient
	if cfg.Lookup.NumLookupAPIKey != "" {
		phoneClient = lookup.NewPhoneClient(cfg.Lookup.NumLookupAPIKey, externalTimeout)
	}

	var urlClient *lookup.SafeBrowsingClient
	if cfg.Lookup.SafeBrowsingAPIKey != "" {
		urlClient = lookup.NewSafeBrowsingClient(cfg.Lookup.SafeBrowsingAPIKey, externalTimeout)
	}

	var modelClient *lookup.CompletionClient
	if cfg.Lookup.ModelAPIKey != "" {
		modelClient = lookup.NewCompletionClient(cfg.Lookup.ModelAPIKey, cfg.Lookup.ModelBaseURL, cfg.Lookup.ModelName, 3*externalTimeout)
	}

	// Initialize the Risk Assessor
	riskAssessor := assessor.New(repo, cacheImpl,
		nilablePhone(phoneClient),
		nilableURL(urlClient),
		nilableModel(modelClient),
		engine,
	)
	riskAssessor.ExternalTimeout = externalTimeout
	riskAssessor.CacheTTL = cfg.Cache.VerdictTTL
	slog.Info("risk assessor initialized",
		"phone_lookup", phoneClient != nil,
		"url_lookup", urlClient != nil,
		"model", modelClient != nil,
	)

	// Initialize async Worker for ingest and cache invalidation
	asyncWorker := worker.NewWorker(busImpl, repo, cacheImpl)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start async worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, riskAssessor, repo, cacheImpl, busImpl, engine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("scamshield is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop async worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("scamshield shutdown complete")
}

// loadLookupEnv fills external service credentials from the environment.
func loadLookupEnv(cfg *domain.Config) {
	if key := os.Getenv("NUMLOOKUP_API_KEY"); key != "" {
		cfg.Lookup.NumLookupAPIKey = key
	}
	if key := os.Getenv("SAFE_BROWSING_API_KEY"); key != "" {
		cfg.Lookup.SafeBrowsingAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Lookup.ModelAPIKey = key
	}
	if base := os.Getenv("OPENAI_API_BASE"); base != "" {
		cfg.Lookup.ModelBaseURL = base
	}
	if model := os.Getenv("SCAMSHIELD_MODEL"); model != "" {
		cfg.Lookup.ModelName = model
	}
}

// loadRulesFromDatabase loads enabled rules into the engine.
// All rules must be configured via POST /rules API - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListRiskRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no rules in database - configure via POST /rules API")
	return nil
}

// Typed-nil guards: a nil *Client stored in an interface is non-nil, so the
// assessor would call through it. These keep the interface value truly nil.
func nilablePhone(c *lookup.PhoneClient) domain.PhoneValidator {
	if c == nil {
		return nil
	}
	return c
}

func nilableURL(c *lookup.SafeBrowsingClient) domain.URLChecker {
	if c == nil {
		return nil
	}
	return c
}

func nilableModel(c *lookup.CompletionClient) domain.Completer {
	if c == nil {
		return nil
	}
	return c
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🛡  SCAMSHIELD                ║")
	fmt.Println("  ║       Scam-Risk Assessment Engine         ║")
	fmt.Println("  ║      Check before you call back.          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /check                        - Assess scam risk for a query")
	fmt.Println("    POST /reports                      - Submit a community report")
	fmt.Println("    GET  /reports/{target}             - List confirmed reports for a target")
	fmt.Println("    POST /numbers                      - Ingest crawler-discovered entries")
	fmt.Println("    POST /carriers                     - Upsert carrier reference data")
	fmt.Println("    GET  /rules                        - List loaded risk rules")
	fmt.Println("    POST /rules                        - Create a risk rule")
	fmt.Println("    POST /rules/reload                 - Hot-reload rules from database")
	fmt.Println("    GET  /admin/reports                - Moderation queue")
	fmt.Println("    PUT  /admin/reports/{id}/status    - Confirm or reject a report")
	fmt.Println("    GET  /admin/searches               - Verdict audit trail")
	fmt.Println("    GET  /health                       - Health check")
	fmt.Println()
}
