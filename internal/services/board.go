package services

import (
	"sync"
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
)

// Snapshot is one applied server list. It is replaced wholesale and never
// mutated after Apply.
type Snapshot struct {
	Seq       uint64
	Servers   []models.ServerView
	FetchedAt time.Time
}

// Board holds the most recent applied snapshot and fans it out to listeners.
type Board struct {
	mu          sync.RWMutex
	snapshot    Snapshot
	lastError   error
	lastErrorAt time.Time
	listeners   []func(Snapshot)
}

func NewBoard() *Board {
	return &Board{}
}

// Apply replaces the snapshot unless a fetch with a higher sequence number
// was applied already. It reports whether the snapshot was replaced.
func (b *Board) Apply(seq uint64, servers []models.ServerView, fetchedAt time.Time) bool {
	b.mu.Lock()
	if seq <= b.snapshot.Seq {
		b.mu.Unlock()
		return false
	}
	if servers == nil {
		servers = []models.ServerView{}
	}
	b.snapshot = Snapshot{Seq: seq, Servers: servers, FetchedAt: fetchedAt}
	b.lastError = nil
	snap := b.snapshot
	listeners := append([]func(Snapshot){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return true
}

// RecordError keeps the previous snapshot in place and remembers the failure
// for diagnostics.
func (b *Board) RecordError(err error, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastError = err
	b.lastErrorAt = at
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// LastError returns the most recent poll failure since the last successful
// apply, if any.
func (b *Board) LastError() (error, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError, b.lastErrorAt
}

// Subscribe registers fn to run after every applied snapshot. Listeners run
// on the applying goroutine and must not block.
func (b *Board) Subscribe(fn func(Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}
