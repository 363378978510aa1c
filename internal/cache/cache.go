// Package cache keeps short-lived computed views, such as weekly summaries,
// in memory between writes.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the read-through store used by the HTTP layer
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval
type Manager struct {
	caches []Cleaner
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{caches: caches}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Sweep runs one cleanup pass and returns how many entries were dropped.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("Cache sweep", "component", "cache", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
