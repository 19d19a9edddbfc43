// Package memory is an in-process transaction source seeded from JSON
// fixtures. It backs tests and the "memory" source of the server.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"finreport/internal/core"
	ports "finreport/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	batches map[string][]core.Transaction
}

var _ ports.TransactionLoader = (*Store)(nil)

func New() *Store {
	return &Store{batches: make(map[string][]core.Transaction)}
}

// NewFromFile reads a fixture file shaped as {"<name>": [record, ...]}
// where each record uses the statement column names as keys.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var batches map[string][]core.Transaction
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	s := New()
	for name, txs := range batches {
		s.Put(name, txs)
	}
	return s, nil
}

// Put replaces the batch stored under name.
func (s *Store) Put(name string, txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[name] = append([]core.Transaction(nil), txs...)
}

func (s *Store) Load(ctx context.Context, name string) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, ok := s.batches[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrSourceNotFound, name)
	}
	return append([]core.Transaction(nil), txs...), nil
}

// Names returns the stored batch names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.batches))
	for name := range s.batches {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
