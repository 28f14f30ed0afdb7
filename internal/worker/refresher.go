// Package worker runs background jobs next to the API server.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mcarneiro/airbnb-organizer/internal/log"
)

// Reloader is the part of the coordinator the refresher drives.
type Reloader interface {
	Ready() bool
	Reload(ctx context.Context) error
}

// Refresher reloads the remote spreadsheet on a cron schedule. A tick is
// skipped unless the coordinator is Ready, which also makes it the retry
// after a failed load or write.
type Refresher struct {
	reloader Reloader
	schedule string
	timeout  time.Duration
	log      *log.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewRefresher validates schedule, e.g. "@every 5m" or "*/10 * * * *".
func NewRefresher(reloader Reloader, schedule string, timeout time.Duration, logger *log.Logger) (*Refresher, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", schedule, err)
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Refresher{
		reloader: reloader,
		schedule: schedule,
		timeout:  timeout,
		log:      logger.WithComponent(log.ComponentWorker),
	}, nil
}

// Start schedules the job. It returns an error if already running.
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("refresher is already running")
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.schedule, func() { r.Tick(context.Background()) }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	c.Start()
	r.cron = c
	r.running = true
	r.log.Info("refresher started", "schedule", r.schedule)
	return nil
}

// Stop waits for a running tick to finish or ctx to end.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	r.running = false
	r.mu.Unlock()

	select {
	case <-c.Stop().Done():
		r.log.Info("refresher stopped")
		return nil
	case <-ctx.Done():
		r.log.Warn("refresher stop timed out")
		return ctx.Err()
	}
}

// Tick runs one refresh. It reports whether a reload was attempted.
func (r *Refresher) Tick(ctx context.Context) bool {
	if !r.reloader.Ready() {
		r.log.Debug("refresh skipped, not ready", log.FieldOperation, log.OpRefresh)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.reloader.Reload(ctx); err != nil {
		r.log.WarnContext(ctx, "refresh failed", log.FieldOperation, log.OpRefresh, log.FieldError, err)
		return true
	}
	r.log.DebugContext(ctx, "refresh finished", log.FieldOperation, log.OpRefresh)
	return true
}
