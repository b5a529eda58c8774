package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"team-mail/contract"
	"team-mail/errors"
	"team-mail/mailbox"
	"team-mail/observability"
	"team-mail/repositories"
	"team-mail/search"
)

// PresenceSyncWorker periodically pulls the remote roster and message log
// and merges them into the session's mailbox. Remote observation is the
// sole source of truth for presence; the message merge is additive and
// deduplicated by id, so replaying the same snapshot converges.
//
// The pull is best-effort: a failed tick is logged and swallowed, the
// loop carries on. The worker stops when its context is canceled and
// never merges into a store after that point.
type PresenceSyncWorker struct {
	log      *slog.Logger
	dir      contract.IDirectory
	box      *mailbox.Store
	selfID   string
	interval time.Duration
	stats    *observability.SyncStats
	archive  *repositories.Archive
	index    *search.Index
}

func NewPresenceSyncWorker(
	log *slog.Logger,
	dir contract.IDirectory,
	box *mailbox.Store,
	selfID string,
	interval time.Duration,
	stats *observability.SyncStats,
) *PresenceSyncWorker {
	return &PresenceSyncWorker{
		log:      log,
		dir:      dir,
		box:      box,
		selfID:   selfID,
		interval: interval,
		stats:    stats,
	}
}

// WithArchive also persists every merged message and roster record.
func (w *PresenceSyncWorker) WithArchive(archive repositories.Archive) *PresenceSyncWorker {
	w.archive = &archive
	return w
}

// WithIndex also feeds merged messages into the search index.
func (w *PresenceSyncWorker) WithIndex(index *search.Index) *PresenceSyncWorker {
	w.index = index
	return w
}

// Run executes the reconciliation loop until the context is canceled.
// Each tick performs one bounded pull inline, so ticks never overlap: if
// a pull outlasts the interval, the ticker drops the missed ticks instead
// of queueing them.
func (w *PresenceSyncWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence sync", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.stats.IncrTick()
			if err := w.SyncOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.stats.IncrPullFailure()
				w.log.Warn("Sync pull failed, will retry next tick", "err", err)
			}
		}
	}
}

// SyncOnce performs a single pull-and-merge. It is also called directly
// at login so the first timeline does not wait a full interval.
func (w *PresenceSyncWorker) SyncOnce(ctx context.Context) error {
	users, err := w.dir.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing users: %v", errors.ErrSync, err)
	}
	messages, err := w.dir.ListMessages(ctx, w.selfID)
	if err != nil {
		return fmt.Errorf("%w: listing messages: %v", errors.ErrSync, err)
	}

	// The session may have been torn down while the pull was in flight.
	// A canceled synchronizer must not merge into a store it no longer
	// owns.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, u := range users {
		w.box.ApplyRemoteUser(u)
		if w.archive != nil {
			if err := w.archive.StoreUser(u); err != nil {
				w.log.Warn("Archiving user failed", "id", u.ID, "err", err)
			}
		}
	}

	var added int
	for _, m := range messages {
		if w.box.MergeRemoteMessage(m) {
			added++
		}
		if w.archive != nil {
			if err := w.archive.StoreMessage(m); err != nil {
				w.log.Warn("Archiving message failed", "id", m.ID, "err", err)
			}
		}
		if w.index != nil {
			if err := w.index.Add(m); err != nil {
				w.log.Warn("Indexing message failed", "id", m.ID, "err", err)
			}
		}
	}

	w.stats.AddUsersMerged(len(users))
	w.stats.AddMessagesMerged(added)
	w.stats.MarkPull(time.Now().UTC())
	return nil
}
