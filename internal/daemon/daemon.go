package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/logging"
	"scribe/internal/store"
)

// Runner is the long-lived consumer loop the daemon supervises.
type Runner interface {
	Run(ctx context.Context) error
}

// Broker is the slice of the task queue the daemon needs for health and
// status reporting.
type Broker interface {
	Ping(ctx context.Context) error
	Depth(ctx context.Context) (high, low int64, err error)
}

// Daemon supervises the worker loop and enforces single-instance execution
// through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	broker Broker
	worker Runner

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc

	// doneMu serializes the receive from done so that concurrent Wait and
	// Stop callers all observe the worker's exit error.
	doneMu   sync.Mutex
	done     chan error
	doneErr  error
	launched bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Queue        api.StatusSnapshot
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, broker Broker, worker Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || broker == nil || worker == nil {
		return nil, errors.New("daemon requires config, store, broker, and worker")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		broker:   broker,
		worker:   worker,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, verifies the queue connection, and
// launches the worker loop in the background.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	if err := d.broker.Ping(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("redis unavailable: %w", err)
	}

	for _, status := range deps.Check(d.cfg) {
		if !status.Available {
			d.logger.Warn("external tool unavailable",
				logging.String("tool", status.Name),
				logging.String("command", status.Command),
				logging.String("detail", status.Detail),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.doneMu.Lock()
	d.done = make(chan error, 1)
	d.doneErr = nil
	d.launched = true
	d.doneMu.Unlock()
	go func() {
		d.done <- d.worker.Run(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
	)
	return nil
}

// Wait blocks until the worker loop exits and returns its error. Context
// cancellation is reported as a clean shutdown. Wait is safe to call
// alongside Stop; both observe the same exit error.
func (d *Daemon) Wait() error {
	d.doneMu.Lock()
	launched := d.launched
	d.doneMu.Unlock()
	if !launched {
		return errors.New("daemon not started")
	}
	err := d.waitWorker()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// waitWorker receives the worker's exit error exactly once and caches it so
// Wait and Stop can both report it.
func (d *Daemon) waitWorker() error {
	d.doneMu.Lock()
	defer d.doneMu.Unlock()
	if d.done != nil {
		d.doneErr = <-d.done
		d.done = nil
	}
	return d.doneErr
}

// Stop cancels the worker loop and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	_ = d.waitWorker()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close stops background processing and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the worker loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status reports runtime information for CLI display.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	snapshot, err := api.BuildStatus(ctx, d.store, d.broker)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Queue:        snapshot,
	}, nil
}
