package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	OriginSource = "source"
	OriginCache  = "cache"
)

// Snapshot is one immutable catalog version. Records must not be modified
// after the snapshot is published.
type Snapshot struct {
	ID       uuid.UUID       `json:"id"`
	Version  uint64          `json:"version"`
	LoadedAt time.Time       `json:"loaded_at"`
	Source   string          `json:"source"`
	Origin   string          `json:"origin"`
	Records  []CatalogRecord `json:"records"`
}

// SnapshotStore publishes catalog snapshots. Replace swaps the whole snapshot
// in one step, so a reader that called Current once sees one consistent version.
// Readers never lock; writers are serialized so versions are published in order.
type SnapshotStore struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	version uint64
	now     func() time.Time
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{now: time.Now}
}

// Current returns nil until the first Replace.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

func (s *SnapshotStore) Ready() bool {
	return s.current.Load() != nil
}

func (s *SnapshotStore) Replace(records []CatalogRecord, source, origin string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.publish(records, source, origin)
}

// ReplaceIfEmpty publishes only when no snapshot exists yet.
func (s *SnapshotStore) ReplaceIfEmpty(records []CatalogRecord, source, origin string) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.current.Load(); cur != nil {
		return cur, false
	}
	return s.publish(records, source, origin), true
}

func (s *SnapshotStore) publish(records []CatalogRecord, source, origin string) *Snapshot {
	copied := make([]CatalogRecord, len(records))
	for i, r := range records {
		copied[i] = r.Clone()
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}

	s.version++
	snap := &Snapshot{
		ID:       uuid.New(),
		Version:  s.version,
		LoadedAt: now().UTC(),
		Source:   source,
		Origin:   origin,
		Records:  copied,
	}
	s.current.Store(snap)

	return snap
}
