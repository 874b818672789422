// Package backfill runs the guarded, asynchronous full-history indexing job.
// At most one job runs per user; the guard transition happens synchronously
// before the job is spawned, and the indexing flag is released on every exit
// path, including panics.
package backfill

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/openrecall/vectord/internal/history"
	"github.com/openrecall/vectord/internal/state"
)

// Status is the outcome of a trigger attempt.
type Status int

const (
	// Started means this call won the guard and a job is now running.
	Started Status = iota
	// AlreadyIndexed means the user's history is already fully indexed.
	AlreadyIndexed
	// Conflict means another job is currently indexing this user.
	Conflict
)

// Ingestor re-ingests a single history item. Implemented by the ingestion
// pipeline's extracted-text path.
type Ingestor interface {
	IndexText(ctx context.Context, userID, url, title, text string) error
}

// Runner owns the backfill guard and job execution.
type Runner struct {
	state  state.Store
	source history.Source
	ingest Ingestor
	wg     sync.WaitGroup
}

// New creates a backfill runner.
func New(st state.Store, source history.Source, ingest Ingestor) *Runner {
	return &Runner{state: st, source: source, ingest: ingest}
}

// Trigger starts a backfill for the user unless one already ran or is
// running. The caller gets an answer immediately; the job itself is
// fire-and-forget.
func (r *Runner) Trigger(ctx context.Context, userID string) (Status, error) {
	full, err := r.state.IsFullyIndexed(ctx, userID)
	if err != nil {
		return Conflict, err
	}
	if full {
		return AlreadyIndexed, nil
	}

	won, err := r.state.TryMarkIndexing(ctx, userID)
	if err != nil {
		return Conflict, err
	}
	if !won {
		return Conflict, nil
	}

	r.wg.Add(1)
	go r.run(userID)
	return Started, nil
}

// Wait blocks until all running jobs finish. Used by shutdown and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// run executes the job body. The triggering request has already returned,
// so failures are logged, never propagated; the indexing flag is always
// released so a failed run can be retried.
func (r *Runner) run(userID string) {
	defer r.wg.Done()

	ctx := context.Background()
	defer func() {
		if err := r.state.ClearIndexing(ctx, userID); err != nil {
			slog.Error("failed to clear indexing state",
				"service", "backfill", "action", "clear-indexing", "user", userID, "error", err)
		}
	}()

	var err error
	if recovered := panics.Try(func() { err = r.walk(ctx, userID) }); recovered != nil {
		slog.Error("backfill job panicked",
			"service", "backfill", "action", "history-full-index", "user", userID, "panic", recovered.String())
		return
	}
	if err != nil {
		slog.Error("backfill job failed",
			"service", "backfill", "action", "history-full-index", "user", userID, "error", err)
		return
	}

	if err := r.state.MarkFullyIndexed(ctx, userID); err != nil {
		slog.Error("failed to mark user fully indexed",
			"service", "backfill", "action", "mark-full-indexed", "user", userID, "error", err)
	}
}

// walk pushes every history item through the ingestion pipeline. A failing
// item is recorded as an error URL and skipped; only a failure to list the
// history fails the job.
func (r *Runner) walk(ctx context.Context, userID string) error {
	items, err := r.source.List(ctx, userID)
	if err != nil {
		return err
	}
	slog.Info("backfill started", "user", userID, "items", len(items))

	for _, item := range items {
		if err := r.ingest.IndexText(ctx, userID, item.URL, item.Title, item.Text); err != nil {
			slog.Error("failed to index history item",
				"service", "backfill", "action", "index-history-item", "user", userID, "url", item.URL, "error", err)
			if stateErr := r.state.AddErrorURL(ctx, userID, item.URL); stateErr != nil {
				slog.Error("failed to record error url",
					"service", "backfill", "action", "add-error-url", "user", userID, "url", item.URL, "error", stateErr)
			}
			continue
		}
		if _, err := r.state.AddURL(ctx, userID, item.URL); err != nil {
			slog.Error("failed to record indexed url",
				"service", "backfill", "action", "add-url", "user", userID, "url", item.URL, "error", err)
		}
	}

	slog.Info("backfill complete", "user", userID, "items", len(items))
	return nil
}
