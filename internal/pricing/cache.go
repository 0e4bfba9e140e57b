// Package pricing maintains the live price cache for traded symbols and the
// periodic refresh workflow that fills it from the external quote provider.
package pricing

import (
	"strings"
	"sync"
	"time"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// Cache holds the latest known price per traded symbol.
//
// Single-writer (the refresh task), multi-reader (live valuation and the
// snapshot task). Absence is a valid, expected state for untracked symbols;
// no operation returns an error.
type Cache struct {
	mu      sync.RWMutex
	records map[string]domain.PriceRecord
}

// NewCache creates an empty price cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]domain.PriceRecord)}
}

// Upsert overwrites the stored record for symbol unconditionally.
// Last write wins by call order; callers only pass freshly fetched quotes.
func (c *Cache) Upsert(symbol string, price float64, at time.Time) {
	symbol = normalizeSymbol(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[symbol] = domain.PriceRecord{
		Symbol:    symbol,
		Price:     price,
		UpdatedAt: at,
	}
}

// Get returns the stored record for symbol, if any.
func (c *Cache) Get(symbol string) (domain.PriceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[normalizeSymbol(symbol)]
	return rec, ok
}

// Len returns the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
