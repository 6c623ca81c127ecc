package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jichang0619/aitrade/internal/domain"
)

// RulesFetcher is the slice of the exchange facade the cache needs.
type RulesFetcher interface {
	SymbolRules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error)
}

// RulesCache caches per-symbol trading rules for the lifetime of the
// process. Rules are assumed stable; a fetch failure aborts the cycle
// rather than operating on guessed constraints, so there is no retry and
// no background refresh. Read-only after first populate.
type RulesCache struct {
	fetcher RulesFetcher

	mu    sync.RWMutex
	rules map[string]domain.SymbolTradingRules
}

// NewRulesCache creates an empty cache backed by the given fetcher.
func NewRulesCache(fetcher RulesFetcher) *RulesCache {
	return &RulesCache{
		fetcher: fetcher,
		rules:   make(map[string]domain.SymbolTradingRules),
	}
}

// Rules returns the cached rule set for symbol, fetching on first access.
func (c *RulesCache) Rules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error) {
	c.mu.RLock()
	r, ok := c.rules[symbol]
	c.mu.RUnlock()
	if ok {
		return r, nil
	}

	r, err := c.fetcher.SymbolRules(ctx, symbol)
	if err != nil {
		return domain.SymbolTradingRules{}, fmt.Errorf("%w: %s: %v", domain.ErrRulesUnavailable, symbol, err)
	}
	if err := r.Validate(); err != nil {
		return domain.SymbolTradingRules{}, fmt.Errorf("%w: %v", domain.ErrRulesUnavailable, err)
	}

	c.mu.Lock()
	c.rules[symbol] = r
	c.mu.Unlock()

	slog.Info("Trading rules cached",
		slog.String("symbol", symbol),
		slog.String("step", r.StepSize.String()),
		slog.String("tick", r.TickSize.String()),
		slog.String("min_notional", r.MinNotional.String()),
		slog.Int("max_leverage", r.MaxLeverage))
	return r, nil
}

// Invalidate drops the cached entry for symbol. The next Rules call
// refetches from the exchange.
func (c *RulesCache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.rules, symbol)
	c.mu.Unlock()
}
