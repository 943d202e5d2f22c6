package cms

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const taxSettingsFlightKey = "tax_settings"

// TaxSettingsFetcher is satisfied by Client and by TaxSettingsCache itself.
type TaxSettingsFetcher interface {
	FetchTaxSettings(ctx context.Context) (*TaxSettings, error)
}

// TaxSettingsCache shares one tax settings fetch across all sessions per TTL window.
// A nil result ("not configured") is cached like any other; errors are not.
type TaxSettingsCache struct {
	source TaxSettingsFetcher
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	value     *TaxSettings
	fetchedAt time.Time
	loaded    bool

	group singleflight.Group
}

// NewTaxSettingsCache wraps source with a TTL cache. A non-positive ttl disables caching.
func NewTaxSettingsCache(source TaxSettingsFetcher, ttl time.Duration) *TaxSettingsCache {
	return &TaxSettingsCache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// FetchTaxSettings returns the cached settings or fetches them once for all waiters.
func (c *TaxSettingsCache) FetchTaxSettings(ctx context.Context) (*TaxSettings, error) {
	if settings, ok := c.cached(); ok {
		return settings, nil
	}

	// The shared fetch must outlive any single caller's cancellation.
	ch := c.group.DoChan(taxSettingsFlightKey, func() (any, error) {
		settings, err := c.source.FetchTaxSettings(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(settings)
		return settings, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		settings, _ := res.Val.(*TaxSettings)
		return settings, nil
	}
}

// Invalidate drops the cached value.
func (c *TaxSettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.loaded = false
}

func (c *TaxSettingsCache) cached() (*TaxSettings, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.value, true
}

func (c *TaxSettingsCache) store(settings *TaxSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = settings
	c.fetchedAt = c.now()
	c.loaded = true
}
