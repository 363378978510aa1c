// Package memory keeps published payouts in process. It backs the export
// worker when no spreadsheet is configured and stands in for Sheets in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"planilla/internal/core"
	ports "planilla/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	tabs map[string][][]any
	puts int
}

var _ ports.PayoutPublisher = (*Store)(nil)

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// PublishPayout replaces the tab for the week and returns a synthetic reference.
func (s *Store) PublishPayout(_ context.Context, summary core.WeeklySummary) (string, error) {
	title := ports.TabTitle(summary.Week)
	values := ports.PayoutValues(summary)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[title] = values
	s.puts++
	return fmt.Sprintf("mem:%s!A1:E%d", title, len(values)), nil
}

// Tab returns a copy of the rows last written for title.
func (s *Store) Tab(title string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.tabs[title]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), values...), true
}

// Writes counts PublishPayout calls, including rewrites of the same tab.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
