package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/competence/pkg/metrics"
)

// SnapshotStore keeps the latest snapshot in memory.
//
// Readers load an atomic pointer and never block. Writers serialise on a
// mutex so that the newest sequence number always wins, whatever order
// concurrent runs finish in.
type SnapshotStore struct {
	mu       sync.Mutex
	seq      atomic.Uint64
	snapshot atomic.Pointer[Snapshot]
	now      func() time.Time
}

// NewSnapshotStore constructs an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextSeq implements Store.NextSeq.
func (s *SnapshotStore) NextSeq() uint64 {
	return s.seq.Add(1)
}

// Put implements Store.Put.
func (s *SnapshotStore) Put(_ context.Context, snap Snapshot) (bool, error) {
	if snap.Result == nil {
		return false, ErrInvalidResult
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.snapshot.Load(); cur != nil && cur.Seq >= snap.Seq {
		return false, nil
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}
	s.snapshot.Store(&snap)

	res := snap.Result
	metrics.UpdateSnapshot(snap.Seq, res.Len(), res.CompetencyCount(), res.GrandTotal(), snap.FetchedAt.Unix())
	return true, nil
}

// Latest implements Store.Latest.
func (s *SnapshotStore) Latest(_ context.Context) (Snapshot, error) {
	cur := s.snapshot.Load()
	if cur == nil {
		return Snapshot{}, ErrNotFound
	}
	return *cur, nil
}

// Age returns how long ago the current snapshot was fetched, or false if
// there is none.
func (s *SnapshotStore) Age() (time.Duration, bool) {
	cur := s.snapshot.Load()
	if cur == nil {
		return 0, false
	}
	return s.now().Sub(cur.FetchedAt), true
}
