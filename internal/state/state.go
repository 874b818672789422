// Package state tracks per-user indexing progress: whether a full-history
// backfill is running or complete, which URLs are indexed, and which failed.
// The store lives outside the process so concurrent gateway instances share
// one view.
package state

import "context"

// Store is the per-user indexing state machine. Implementations must make
// TryMarkIndexing atomic: of any number of concurrent callers for the same
// user, exactly one wins.
//
// Invariant: a user is never both indexing and fully indexed. Both
// MarkFullyIndexed and ClearIndexing release the indexing flag.
type Store interface {
	IsFullyIndexed(ctx context.Context, userID string) (bool, error)
	IsIndexing(ctx context.Context, userID string) (bool, error)

	// TryMarkIndexing atomically transitions NOT_INDEXED -> INDEXING and
	// reports whether this caller performed the transition.
	TryMarkIndexing(ctx context.Context, userID string) (bool, error)
	MarkFullyIndexed(ctx context.Context, userID string) error
	ClearIndexing(ctx context.Context, userID string) error

	// AddURL records an indexed URL and returns the cumulative count of
	// distinct URLs indexed for the user.
	AddURL(ctx context.Context, userID, url string) (int64, error)
	URLCount(ctx context.Context, userID string) (int64, error)
	URLExists(ctx context.Context, userID, url string) (bool, error)
	AddErrorURL(ctx context.Context, userID, url string) error
}
