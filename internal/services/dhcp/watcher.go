package dhcp

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
	"monolith.network/netpkg/internal/services"
)

// DefaultDebounce coalesces the burst of events dhcpd produces when it
// rewrites the lease file.
const DefaultDebounce = 500 * time.Millisecond

// LeaseWatcher re-syncs the lease file whenever it changes. It watches the
// parent directory so the file being replaced or created later is seen.
type LeaseWatcher struct {
	path       string
	reconciler *Reconciler
	debounce   time.Duration
	logger     *logging.Logger

	mu       sync.Mutex
	running  bool
	lastErr  error
	lastSync ReconcileResult
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewLeaseWatcher creates a watcher for path. A debounce of zero selects
// DefaultDebounce.
func NewLeaseWatcher(path string, reconciler *Reconciler, debounce time.Duration) *LeaseWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &LeaseWatcher{
		path:       path,
		reconciler: reconciler,
		debounce:   debounce,
		logger:     logging.WithComponent("leases"),
	}
}

// Name implements services.Service.
func (w *LeaseWatcher) Name() string {
	return "lease-watcher"
}

// Start performs an initial sync and begins watching.
func (w *LeaseWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New(errors.KindValidation, "lease watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create file watcher")
	}
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, errors.KindIO, "failed to watch %s", dir)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(ctx, watcher)
	w.logger.Info("watching lease file", "path", w.path)
	return nil
}

// Stop ends watching and waits for an in-flight sync to finish.
func (w *LeaseWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status implements services.Service.
func (w *LeaseWatcher) Status() services.ServiceStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := services.ServiceStatus{Name: w.Name(), Running: w.running, Enabled: true, Status: "stopped"}
	if w.running {
		st.Status = "running"
	}
	if w.lastErr != nil {
		st.Message = w.lastErr.Error()
	}
	return st
}

// LastSync returns the result of the most recent sync.
func (w *LeaseWatcher) LastSync() ReconcileResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

func (w *LeaseWatcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		watcher.Close()
		w.mu.Lock()
		w.running = false
		close(w.done)
		w.mu.Unlock()
	}()

	w.sync(ctx)

	name := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("lease file watcher error")

		case <-timer.C:
			w.sync(ctx)
		}
	}
}

func (w *LeaseWatcher) sync(ctx context.Context) {
	res, err := w.reconciler.SyncFile(ctx, w.path)
	if err != nil {
		w.logger.WithError(err).Warn("lease sync failed", "path", w.path)
	}

	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.lastSync = res
	}
	w.mu.Unlock()
}
