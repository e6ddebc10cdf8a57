package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ddmitrov/fincore/internal/config"
	"github.com/ddmitrov/fincore/internal/events"
	"github.com/ddmitrov/fincore/internal/goals"
	"github.com/ddmitrov/fincore/internal/logger"
	"github.com/ddmitrov/fincore/internal/notify"
	"github.com/ddmitrov/fincore/internal/store/sqlite"
)

func main() {
	log := logger.New("fincore-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the worker")
	}

	db, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

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

	client, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to AMQP")
	}
	defer client.Close()

	// Goal completion events produced here go back onto the queue, so the
	// same consumer loop also delivers the notification.
	evaluator := goals.NewEvaluator(db, client, log)

	handler := func(ctx context.Context, env *events.Envelope) error {
		switch env.Event {
		case events.NameTransactionCreated:
			var created events.TransactionCreated
			if err := json.Unmarshal(env.Payload, &created); err != nil {
				return fmt.Errorf("decode %s payload: %w", env.Event, err)
			}
			return evaluator.OnTransactionCreated(ctx, &created.Transaction)

		case events.NameSavingsGoalCompleted:
			var completed events.SavingsGoalCompleted
			if err := json.Unmarshal(env.Payload, &completed); err != nil {
				return fmt.Errorf("decode %s payload: %w", env.Event, err)
			}
			user, err := db.GetUserByID(ctx, completed.Goal.UserID)
			if err != nil {
				return fmt.Errorf("load goal owner: %w", err)
			}
			return notifier.GoalCompleted(ctx, user, &completed.Goal)

		default:
			log.Warn().Str("event", env.Event).Msg("Skipping unknown event")
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down")
		cancel()
	}()

	log.Info().Str("queue", cfg.AMQPQueue).Msg("Worker consuming events")
	if err := client.Consume(ctx, handler); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Consumer stopped")
	}
}
