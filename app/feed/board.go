package feed

import (
	"sync"
	"time"

	"github.com/lysyi3m/quake-report/app/quake"
)

// Board holds the latest Snapshot per feed. Each delivery replaces the
// previous snapshot wholesale.
type Board struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	now       func() time.Time
}

func NewBoard() *Board {
	return &Board{
		snapshots: make(map[string]Snapshot),
		now:       time.Now,
	}
}

// Replace stores the outcome of a load. ok=false clears the records and
// marks the feed as having no data.
func (b *Board) Replace(feedName string, records []quake.Record, ok bool) {
	snapshot := Snapshot{
		Available: ok,
		UpdatedAt: b.now(),
	}
	if ok {
		snapshot.Records = make([]quake.Record, len(records))
		copy(snapshot.Records, records)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[feedName] = snapshot
}

// FeedNames lists the feeds that currently hold a snapshot.
func (b *Board) FeedNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.snapshots))
	for name := range b.snapshots {
		names = append(names, name)
	}
	return names
}

func (b *Board) Clear(feedName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.snapshots, feedName)
}

// Get returns the snapshot for feedName and whether any load has been
// delivered for it yet.
func (b *Board) Get(feedName string) (Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot, ok := b.snapshots[feedName]
	return snapshot, ok
}
