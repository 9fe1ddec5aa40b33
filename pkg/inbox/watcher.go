package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// Watcher captures files as they appear in the inbox directory.
// It is a lifecycle worker and can run under a supervisor.
type Watcher struct {
	*worker.BaseWorker
	inbox     *Inbox
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc

	mu       sync.Mutex
	captured int
}

// NewWatcher returns a worker watching the inbox directory.
func (in *Inbox) NewWatcher() *Watcher {
	return &Watcher{
		BaseWorker: worker.NewBaseWorker("inbox-watcher"),
		inbox:      in,
	}
}

// Start begins watching. Existing files are not captured; call Inbox.Scan for that.
func (w *Watcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.inbox.config.Dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.inbox.config.Dir, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.inbox.config.Debounce)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

// Stop ends the watch loop. Debounced files not yet captured are dropped.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

// State reports the worker state with the inbox directory and capture count.
func (w *Watcher) State() worker.State {
	w.mu.Lock()
	captured := w.captured
	w.mu.Unlock()
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"dir":               w.inbox.config.Dir,
			"captured":          fmt.Sprint(captured),
		}
	})
}

// Captured returns how many files the watcher captured.
func (w *Watcher) Captured() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.captured
}

func (w *Watcher) run(ctx context.Context) (err error) {
	logger := w.inbox.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			var stack string
			if logger.Enabled(ctx, slog.LevelDebug) {
				stack = string(debug.Stack())
			}
			logger.Error("inbox watcher panic", "error", recovered, "stack", stack)
			err = fmt.Errorf("inbox watcher panic: %v", recovered)
		}
	}()
	defer w.watcher.Close()

	err = w.loop(ctx)
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *Watcher) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.report(fmt.Errorf("fsnotify: %w", wErr))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.inbox.Matches(event.Name) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}

	path := event.Name
	w.debouncer.add(path, func() {
		lifecycle.Go(ctx, func(ctx context.Context) error {
			if _, err := os.Stat(path); err != nil {
				return nil
			}
			if _, err := w.inbox.CaptureFile(ctx, path); err != nil {
				w.report(err)
				return nil
			}
			w.mu.Lock()
			w.captured++
			w.mu.Unlock()
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			w.report(fmt.Errorf("capture panic: %w", err))
		}))
	})
}

func (w *Watcher) report(err error) {
	if w.inbox.config.ErrorHandler != nil {
		w.inbox.config.ErrorHandler(err)
		return
	}
	w.inbox.config.Logger.Error("inbox capture failed", "error", err)
}

// debouncer runs fn once per key after the key stayed quiet for delay.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	d.timers[key] = t
}

// stopAndWait cancels pending timers and waits for running callbacks.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
