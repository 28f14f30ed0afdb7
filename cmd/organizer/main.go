package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mcarneiro/airbnb-organizer/internal/amqp"
	"github.com/mcarneiro/airbnb-organizer/internal/backend"
	"github.com/mcarneiro/airbnb-organizer/internal/cli"
	"github.com/mcarneiro/airbnb-organizer/internal/config"
	"github.com/mcarneiro/airbnb-organizer/internal/coordinator"
	apphttp "github.com/mcarneiro/airbnb-organizer/internal/http"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/metrics"
	"github.com/mcarneiro/airbnb-organizer/internal/notify"
	"github.com/mcarneiro/airbnb-organizer/internal/scheduler"
	"github.com/mcarneiro/airbnb-organizer/internal/session"
	"github.com/mcarneiro/airbnb-organizer/internal/tax"
	"github.com/mcarneiro/airbnb-organizer/internal/websocket"
	"github.com/mcarneiro/airbnb-organizer/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Organizer stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	kv := cli.OpenSessionStore(logger, cfg.SessionDBPath)
	defer kv.Close()
	sess := session.NewManager(kv, time.Now)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	be, err := backend.NewFactory(logger, nil).CreateBackend(ctx, bcfg, sess.Credentials)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	calc, err := tax.Get(tax.Jurisdiction(cfg.TaxJurisdiction))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := websocket.NewHub()
	notifiers := notify.Multi{hub}
	if cfg.AMQPURL != "" {
		pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
		logger.WithComponent(log.ComponentAMQP).Info("Publishing events", "exchange", cfg.AMQPExchange)
	}

	coord, err := coordinator.New(coordinator.Options{
		Identity:     be.Identity,
		Open:         be.Open,
		Session:      sess,
		Calculator:   calc,
		Clock:        scheduler.SystemClock(),
		Notifier:     notifiers,
		Metrics:      metrics.New(reg),
		Logger:       logger,
		QuietPeriod:  cfg.WriteDebounce,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return err
	}
	defer coord.Close()

	// A failed restore leaves the coordinator usable; the user can sign in
	// again from the API.
	if err := coord.Restore(ctx); err != nil {
		logger.Warn("Session restore failed", log.FieldOperation, log.OpRestore, log.FieldError, err)
	}
	if cfg.GoogleSpreadsheetID != "" && coord.State().SpreadsheetID == "" {
		if err := coord.SetStoreID(ctx, cfg.GoogleSpreadsheetID); err != nil {
			logger.Warn("Initial spreadsheet load failed", log.FieldSpreadsheetID, cfg.GoogleSpreadsheetID, log.FieldError, err)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Organizer:     coord,
		Logger:        logger,
		Notifications: hub.Handler(),
		Gatherer:      reg,
	})
	// No write timeout: sign-in waits on the browser and /api/ws stays open.
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if cfg.RefreshSchedule != "" {
		refresher, err := worker.NewRefresher(coord, cfg.RefreshSchedule, cfg.WriteTimeout, logger)
		if err != nil {
			return err
		}
		if err := refresher.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return refresher.Stop(stopCtx)
		})
	}

	g.Go(func() error {
		logger.Info("Starting organizer server",
			"port", cfg.Port,
			"backend", cfg.RemoteBackend,
			"identity", cfg.IdentityProvider,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
