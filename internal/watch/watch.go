// Package watch schedules periodic baseline captures so orientation picks
// have recent snapshots to compare against.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/ops"
)

// Watcher runs scheduled captures, one cron entry per subject.
type Watcher struct {
	cron     *cron.Cron
	store    ops.SnapshotStore
	source   follower.Source
	maxFetch int
	timeout  time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a Watcher. timeout bounds each scheduled capture.
func New(store ops.SnapshotStore, source follower.Source, maxFetch int, timeout time.Duration) *Watcher {
	return &Watcher{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		store:    store,
		source:   source,
		maxFetch: maxFetch,
		timeout:  timeout,
		entries:  make(map[string]cron.EntryID),
	}
}

// Watch schedules captures of subject on a standard five-field cron
// expression (or a descriptor like "@every 15m"). An existing schedule for
// the same subject is replaced.
func (w *Watcher) Watch(subject, schedule string, full bool) error {
	subject = follower.NormalizeSubject(subject)
	if !follower.ValidSubject(subject) {
		return errors.NewInvalidRequest(fmt.Sprintf("%q is not a valid username", subject))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id, err := w.cron.AddFunc(schedule, func() {
		_ = w.RunOnce(context.Background(), subject, full)
	})
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid schedule %q: %v", schedule, err))
	}

	if prev, ok := w.entries[subject]; ok {
		w.cron.Remove(prev)
	}
	w.entries[subject] = id
	slog.Info("capture scheduled", "subject", subject, "schedule", schedule, "full", full)
	return nil
}

// Unwatch removes the schedule for subject, if any.
func (w *Watcher) Unwatch(subject string) {
	subject = follower.NormalizeSubject(subject)

	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.entries[subject]; ok {
		w.cron.Remove(id)
		delete(w.entries, subject)
	}
}

// Subjects returns the currently watched subjects.
func (w *Watcher) Subjects() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.entries))
	for s := range w.entries {
		out = append(out, s)
	}
	return out
}

// RunOnce captures subject immediately. Failures are logged and returned.
func (w *Watcher) RunOnce(ctx context.Context, subject string, full bool) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	out, err := ops.Capture(ctx, w.store, w.source, ops.CaptureInput{
		Subject:  subject,
		Full:     full,
		MaxFetch: w.maxFetch,
	})
	if err != nil {
		slog.Error("scheduled capture failed", "subject", subject, "error", err)
		return err
	}
	slog.Debug("scheduled capture done", "subject", subject, "snapshot_id", out.Snapshot.ID)
	return nil
}

// Start begins running scheduled captures in the background.
func (w *Watcher) Start() {
	w.cron.Start()
}

// Stop halts the scheduler and waits for running captures to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
}
