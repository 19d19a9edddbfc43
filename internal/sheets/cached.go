package sheets

import (
	"context"

	"finreport/internal/cache"
	"finreport/internal/core"
	"finreport/internal/log"
)

// CachedLoader keeps recently loaded batches in an LRU+TTL cache.
type CachedLoader struct {
	next   TransactionLoader
	cache  cache.Cache[[]core.Transaction]
	logger *log.Logger
}

var _ TransactionLoader = (*CachedLoader)(nil)

func NewCachedLoader(next TransactionLoader, c cache.Cache[[]core.Transaction], logger *log.Logger) *CachedLoader {
	if logger == nil {
		logger = log.Discard()
	}
	return &CachedLoader{next: next, cache: c, logger: logger.WithComponent(log.ComponentCache)}
}

// Load returns a cached copy of the batch or loads and caches it. Failed
// loads are not cached.
func (l *CachedLoader) Load(ctx context.Context, name string) ([]core.Transaction, error) {
	if txs, ok := l.cache.Get(name); ok {
		l.logger.DebugContext(ctx, "Transaction batch served from cache", log.FieldSource, name, log.FieldRecords, len(txs))
		return append([]core.Transaction(nil), txs...), nil
	}
	txs, err := l.next.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	l.cache.Set(name, append([]core.Transaction(nil), txs...))
	return txs, nil
}

// Invalidate drops name from the cache.
func (l *CachedLoader) Invalidate(name string) {
	l.cache.Delete(name)
}
