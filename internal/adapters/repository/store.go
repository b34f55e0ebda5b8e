// Package repository holds the published aggregation snapshots.
package repository

import (
	"context"
	"time"

	"github.com/okian/competence/internal/domain/aggregate"
)

// Snapshot is one published aggregation run.
type Snapshot struct {
	ID        string            // unique id of the run
	Seq       uint64            // order in which the run started
	Source    string            // URL or path the data came from
	FetchedAt time.Time         // when the document was fetched
	Result    *aggregate.Result // read-only
}

// Store provides read/write access to the latest snapshot.
type Store interface {
	// NextSeq reserves the sequence number for a run that is about to start.
	NextSeq() uint64

	// Put publishes snap if it is newer than the current snapshot.
	// Returns false when snap is stale and was dropped.
	Put(ctx context.Context, snap Snapshot) (bool, error)

	// Latest returns the current snapshot or ErrNotFound.
	Latest(ctx context.Context) (Snapshot, error)
}
