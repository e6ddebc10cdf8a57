package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/ddmitrov/fincore/internal/api/handlers"
	"github.com/ddmitrov/fincore/internal/api/middleware"
	"github.com/ddmitrov/fincore/internal/auth"
	"github.com/ddmitrov/fincore/internal/blobstore"
	"github.com/ddmitrov/fincore/internal/config"
	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/events"
	"github.com/ddmitrov/fincore/internal/goals"
	"github.com/ddmitrov/fincore/internal/ingest"
	"github.com/ddmitrov/fincore/internal/logger"
	"github.com/ddmitrov/fincore/internal/match"
	"github.com/ddmitrov/fincore/internal/notify"
	"github.com/ddmitrov/fincore/internal/store/sqlite"
)

func main() {
	log := logger.New("fincore-api")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := sqlite.RunMigrations(cfg.SQLiteDBPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	db, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.TokenExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth")
	}

	matcher := match.New(db, db)

	var notifier notify.Notifier
	if cfg.MailgunConfigured() {
		notifier, err = notify.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.SenderEmail, cfg.SenderName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Mailgun")
		}
	} else {
		log.Warn().Msg("Mailgun not configured - goal notifications will only be logged")
		notifier = notify.NewLog(log)
	}

	// With a broker configured, events go to the queue and the worker
	// processes them. Without one, an in-process dispatcher runs the same
	// listeners in this binary.
	var publisher events.Publisher
	var dispatcher *events.Dispatcher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP")
		}
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("AMQP publisher initialized")
	} else {
		dispatcher = events.NewDispatcher(log)
		publisher = dispatcher

		evaluator := goals.NewEvaluator(db, dispatcher, log)
		dispatcher.Subscribe(events.NameTransactionCreated, func(ctx context.Context, e events.Event) error {
			created, ok := e.(events.TransactionCreated)
			if !ok {
				return nil
			}
			return evaluator.OnTransactionCreated(ctx, &created.Transaction)
		})
		dispatcher.Subscribe(events.NameSavingsGoalCompleted, func(ctx context.Context, e events.Event) error {
			completed, ok := e.(events.SavingsGoalCompleted)
			if !ok {
				return nil
			}
			return notifyGoalCompleted(ctx, db, notifier, &completed.Goal)
		})
	}
	defer publisher.Close()

	var blobs ingest.BlobStore
	if cfg.GCSBucket != "" {
		gcs, err := blobstore.NewGCS(cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize blob store")
		}
		blobs = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured - upload archiving disabled")
	}

	parser := ingest.NewGeminiParser(cfg.GeminiModel, cfg.DefaultCurrency)
	ingestor := ingest.NewIngestor(parser, matcher, db, publisher, blobs, log)

	authHandler := handlers.NewAuthHandler(db, authService, log)
	ingestHandler := handlers.NewIngestHandler(ingestor, log)
	transactionsHandler := handlers.NewTransactionsHandler(db, db, publisher, log)
	accountsHandler := handlers.NewAccountsHandler(db, matcher, log)
	categoriesHandler := handlers.NewCategoriesHandler(db, matcher, log)
	goalsHandler := handlers.NewGoalsHandler(db, db, log)

	protected := http.NewServeMux()

	protected.HandleFunc("/api/ingest/voice", postOnly(ingestHandler.Voice))
	protected.HandleFunc("/api/ingest/receipt", postOnly(ingestHandler.Receipt))
	protected.HandleFunc("/api/ingest/text", postOnly(ingestHandler.Text))
	protected.HandleFunc("/api/ingest/text-image", postOnly(ingestHandler.TextWithImage))

	protected.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	protected.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.Get(w, r, id)
		case http.MethodPut:
			transactionsHandler.Update(w, r, id)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	protected.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.List(w, r)
		case http.MethodPost:
			accountsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	protected.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			categoriesHandler.List(w, r)
		case http.MethodPost:
			categoriesHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	protected.HandleFunc("/api/goals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			goalsHandler.List(w, r)
		case http.MethodPost:
			goalsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
	protected.HandleFunc("/api/goals/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/goals/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Goal ID is required")
			return
		}
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		goalsHandler.Get(w, r, id)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", postOnly(authHandler.Register))
	mux.HandleFunc("/api/auth/login", postOnly(authHandler.Login))
	mux.Handle("/api/", middleware.Auth(authService)(protected))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.RateLimit(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func notifyGoalCompleted(ctx context.Context, db *sqlite.Store, notifier notify.Notifier, goal *domain.SavingsGoal) error {
	user, err := db.GetUserByID(ctx, goal.UserID)
	if err != nil {
		return err
	}
	return notifier.GoalCompleted(ctx, user, goal)
}
