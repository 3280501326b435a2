package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omnitrack/ledger/internal/accounts"
	"github.com/omnitrack/ledger/internal/api/handlers"
	"github.com/omnitrack/ledger/internal/api/middleware"
	"github.com/omnitrack/ledger/internal/calendar"
	calmemory "github.com/omnitrack/ledger/internal/calendar/memory"
	"github.com/omnitrack/ledger/internal/calendar/notion"
	"github.com/omnitrack/ledger/internal/categorize"
	"github.com/omnitrack/ledger/internal/config"
	"github.com/omnitrack/ledger/internal/invalidation"
	"github.com/omnitrack/ledger/internal/ledger"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/pockets"
	"github.com/omnitrack/ledger/internal/projection"
	projinmemory "github.com/omnitrack/ledger/internal/projection/inmemory"
	"github.com/omnitrack/ledger/internal/recurrence"
	"github.com/omnitrack/ledger/internal/store"
	"github.com/omnitrack/ledger/internal/store/inmemory"
	"github.com/omnitrack/ledger/internal/store/postgres"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Ledger store
	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		pgStore, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to postgres")
		}
		defer pgStore.Close()
		st = pgStore
		log.Info().Msg("Using postgres store")
	default:
		st = inmemory.NewStore()
		log.Info().Msg("Using in-memory store")
	}

	// Projection calendar
	var cal calendar.Calendar
	if cfg.NotionToken != "" {
		cal = notion.New(notion.NewClient(cfg.NotionToken), cfg.NotionDatabaseID)
		log.Info().Msg("Using Notion calendar")
	} else {
		cal = calmemory.New()
		log.Info().Msg("Using in-memory calendar")
	}

	// Projection queue and workers
	projector := recurrence.NewProjector(cal)
	jobStore := projinmemory.NewStore()
	jobQueue := projinmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	projectionHandler := func(ctx context.Context, job *projection.Job) error {
		return projector.Project(ctx, job.Transaction)
	}
	if err := jobQueue.Start(workerCtx, projectionHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start projection workers")
	}

	// Category suggester (optional)
	var suggester *categorize.Suggester
	if cfg.GenAIModel != "" {
		suggester, err = categorize.NewSuggester(ctx, cfg.GenAIModel, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create category suggester")
		}
		log.Info().Str("model", cfg.GenAIModel).Msg("Category suggestions enabled")
	}

	// Core services
	inv := invalidation.LogInvalidator{}
	accountSvc := accounts.NewService(st, inv)
	allocator := pockets.NewAllocator(st, inv)
	ledgerSvc := ledger.NewService(st, projection.NewQueueDispatcher(jobQueue), cal, inv)

	// Handlers
	accountsHandler := handlers.NewAccountsHandler(accountSvc, allocator, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledgerSvc, suggester, log)
	pocketsHandler := handlers.NewPocketsHandler(allocator, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	// Accounts endpoints
	mux.HandleFunc("GET /api/accounts", accountsHandler.List)
	mux.HandleFunc("POST /api/accounts", accountsHandler.Create)
	mux.HandleFunc("GET /api/accounts/{id}", accountsHandler.Get)
	mux.HandleFunc("PUT /api/accounts/{id}", accountsHandler.Update)
	mux.HandleFunc("DELETE /api/accounts/{id}", accountsHandler.Delete)
	mux.HandleFunc("GET /api/accounts/{id}/pockets", accountsHandler.ListPockets)
	mux.HandleFunc("GET /api/accounts/{id}/unallocated", accountsHandler.Unallocated)

	// Transactions endpoints
	mux.HandleFunc("GET /api/transactions", transactionsHandler.List)
	mux.HandleFunc("POST /api/transactions", transactionsHandler.Create)
	mux.HandleFunc("GET /api/transactions/{id}", transactionsHandler.Get)
	mux.HandleFunc("PUT /api/transactions/{id}", transactionsHandler.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.Delete)
	mux.HandleFunc("POST /api/transactions/suggest-category", transactionsHandler.SuggestCategory)

	// Pockets endpoints
	mux.HandleFunc("POST /api/pockets", pocketsHandler.Create)
	mux.HandleFunc("GET /api/pockets/{id}", pocketsHandler.Get)
	mux.HandleFunc("PUT /api/pockets/{id}/allocation", pocketsHandler.SetAllocation)
	mux.HandleFunc("POST /api/pockets/transfer", pocketsHandler.Transfer)
	mux.HandleFunc("DELETE /api/pockets/{id}", pocketsHandler.Delete)

	// Projection jobs endpoints
	mux.HandleFunc("GET /api/projection-jobs", jobsHandler.List)
	mux.HandleFunc("GET /api/projection-jobs/{id}", jobsHandler.Get)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()

	// Drain in-flight projection jobs before exiting
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping projection queue")
	}

	log.Info().Msg("Server exited")
}
