package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fairway/config"
	"fairway/database"
	"fairway/events"
	"fairway/repository"
	"fairway/server"
	"fairway/service"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// subscribeEventLogging attaches operational logging to the domain
// events that matter for support: matches made, money returned,
// instances cancelled.
func subscribeEventLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeInstanceFilled, func(ctx context.Context, event events.Event) {
		e := event.(events.InstanceFilledEvent)
		log.WithFields(log.Fields{
			"instanceID":   e.InstanceID,
			"templateID":   e.TemplateID,
			"tournamentID": e.TournamentID,
			"userIDs":      e.UserIDs,
		}).Info("Match made")
	})
	bus.Subscribe(events.EventTypeEntryRefunded, func(ctx context.Context, event events.Event) {
		e := event.(events.EntryRefundedEvent)
		log.WithFields(log.Fields{
			"entryID":    e.EntryID,
			"instanceID": e.InstanceID,
			"userID":     e.UserID,
			"amount":     e.Amount,
		}).Info("Entry fee refunded")
	})
	bus.Subscribe(events.EventTypeInstanceCancelled, func(ctx context.Context, event events.Event) {
		e := event.(events.InstanceCancelledEvent)
		log.WithFields(log.Fields{
			"instanceID": e.InstanceID,
			"reason":     e.Reason,
		}).Info("Instance cancelled")
	})
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Get()

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	eventBus := events.NewBus()
	subscribeEventLogging(eventBus)
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	validator := service.NewValidatorClient(cfg.ValidatorURL, cfg.ValidatorToken)
	matchmaking := service.NewMatchmakingService(uowFactory, validator, cfg.StartingBalance)
	sweeper := service.NewSweeperService(uowFactory, cfg.PendingGracePeriod)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), cfg.SweepInterval)
			defer cancel()
			if _, err := sweeper.Run(sweepCtx); err != nil {
				log.WithError(err).Error("Scheduled sweep failed")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Warn("Scheduler shutdown failed")
		}
	}()

	srv := server.New(matchmaking, sweeper, cfg.SweepToken)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	log.WithFields(log.Fields{
		"addr":          cfg.HTTPAddr,
		"environment":   cfg.Environment,
		"sweepInterval": cfg.SweepInterval,
	}).Info("Matchmaking engine is running")

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown failed")
	}

	return nil
}
