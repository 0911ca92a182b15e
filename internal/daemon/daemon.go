package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"overseer/internal/config"
	"overseer/internal/logging"
	"overseer/internal/notifications"
	"overseer/internal/orchestrator"
	"overseer/internal/server"
	"overseer/internal/store"
)

// Daemon wires the supervisor and API server together and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	sup      *orchestrator.Supervisor
	api      *server.Server
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, sup *orchestrator.Supervisor, api *server.Server, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || sup == nil || api == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, supervisor, api server, and logger")
	}

	lockPath := filepath.Join(cfg.DataDir, "overseerd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		sup:      sup,
		api:      api,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, settles interrupted work, and brings the
// API up. Recovery runs before the first request can arrive.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another overseer daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.sup.RecoverInterrupted(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		if d.notifier != nil {
			if notifyErr := d.notifier.NotifyError(context.Background(), err, "startup recovery"); notifyErr != nil {
				d.logger.Warn("notify startup failure", logging.Error(notifyErr))
			}
		}
		return fmt.Errorf("startup recovery: %w", err)
	}

	if err := d.api.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("overseer daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()))
	return nil
}

// Stop winds down live runs, shuts the API, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.sup.Stop(stopCtx); err != nil {
		d.logger.Warn("supervisor stop", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("overseer daemon stopped")
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// APIAddr reports the bound API address once started.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}
