package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"soundframe/internal/api"
	"soundframe/internal/assetstore"
	"soundframe/internal/bus"
	"soundframe/internal/compositor"
	"soundframe/internal/config"
	"soundframe/internal/logging"
	"soundframe/internal/publisher"
	"soundframe/internal/saga"
	"soundframe/internal/session"
	"soundframe/internal/workers"
)

const defaultSweepInterval = time.Minute

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store  *session.Store
	assets *assetstore.Store
	comp   *compositor.Compositor
	bus    *bus.Bus
	pub    *publisher.Publisher
	orch   *saga.Orchestrator
	svc    *api.SessionService

	runners []*workers.Runner
	apiSrv  *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	SessionDBPath  string
	LockFilePath   string
	ActiveSessions int
	Workers        []workers.Health
}

// New constructs a daemon with initialized dependencies. The stage
// workers are built in Start, once a lifetime context exists.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	assets, err := assetstore.New(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open asset store: %w", err)
	}
	pub, err := publisher.New(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	comp := compositor.New(cfg, assets, logger)
	stageBus := bus.New(cfg.Workflow.RequestQueueSize)
	orch := saga.New(cfg, store, stageBus, pub, logger)
	svc := api.NewSessionService(store, orch, pub)

	lockPath := filepath.Join(cfg.Paths.LogDir, "soundframed.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		assets:   assets,
		comp:     comp,
		bus:      stageBus,
		pub:      pub,
		orch:     orch,
		svc:      svc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.apiSrv, err = newAPIServer(cfg, d, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create api server: %w", err)
	}
	return d, nil
}

// Start acquires the daemon lock and launches the workers, the response
// pump, the sweeper, and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soundframe daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	runners, err := workers.BuildRunners(d.ctx, d.cfg, d.bus, d.assets, d.comp, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("build workers: %w", err)
	}
	d.runners = runners

	for _, runner := range d.runners {
		d.wg.Add(1)
		go func(r *workers.Runner) {
			defer d.wg.Done()
			_ = r.Run(d.ctx)
		}(runner)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.orch.Pump(d.ctx, d.bus.Responses())
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweepLoop(d.ctx)
	}()

	if err := d.apiSrv.start(d.ctx); err != nil {
		d.stopLocked()
		return err
	}

	d.running.Store(true)
	d.logger.Info("soundframe daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopLocked()
	d.running.Store(false)
	d.logger.Info("soundframe daemon stopped")
}

func (d *Daemon) stopLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiSrv.stop()
	d.orch.Close()
	d.bus.Close()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// SessionService exposes the API service layer for transports.
func (d *Daemon) SessionService() *api.SessionService {
	return d.svc
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	health := make([]workers.Health, 0, len(d.runners))
	for _, runner := range d.runners {
		health = append(health, runner.Health())
	}
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		SessionDBPath:  d.store.Path(),
		LockFilePath:   d.lockPath,
		ActiveSessions: d.orch.ActiveSessions(),
		Workers:        health,
	}
}

// sweepLoop removes acknowledged and stale sessions on an interval,
// together with any published artifacts they left behind.
func (d *Daemon) sweepLoop(ctx context.Context) {
	ttl := time.Duration(d.cfg.Workflow.SessionTTLSeconds) * time.Second
	if ttl <= 0 {
		return
	}
	interval := time.Duration(d.cfg.Workflow.SweepInterval) * time.Second
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce(ctx, ttl)
		}
	}
}

func (d *Daemon) sweepOnce(ctx context.Context, ttl time.Duration) {
	removed, err := d.store.DeleteExpired(ctx, ttl)
	if err != nil {
		d.logger.Warn("session sweep failed", logging.Error(err))
		return
	}
	for _, sessionID := range removed {
		if err := d.pub.RemoveArtifact(sessionID); err != nil {
			d.logger.Warn("failed to remove stale artifact",
				logging.String(logging.FieldSessionID, sessionID), logging.Error(err))
		}
	}
	if len(removed) > 0 {
		d.logger.Info("swept expired sessions", logging.Int("count", len(removed)))
	}
}
