package cms

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls    int32
	settings *TaxSettings
	err      error
	release  chan struct{}
}

func (s *stubFetcher) FetchTaxSettings(ctx context.Context) (*TaxSettings, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.release != nil {
		<-s.release
	}
	return s.settings, s.err
}

func TestTaxSettingsCacheServesWithinTTL(t *testing.T) {
	source := &stubFetcher{settings: &TaxSettings{Enabled: true, DefaultRate: decimal.NewFromInt(10)}}
	cache := NewTaxSettingsCache(source, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		got, err := cache.FetchTaxSettings(context.Background())
		require.NoError(t, err)
		assert.True(t, got.Enabled)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))

	now = now.Add(2 * time.Minute)
	_, err := cache.FetchTaxSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))

	cache.Invalidate()
	_, err = cache.FetchTaxSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&source.calls))
}

func TestTaxSettingsCacheCachesNotConfigured(t *testing.T) {
	source := &stubFetcher{}
	cache := NewTaxSettingsCache(source, time.Minute)

	for i := 0; i < 2; i++ {
		got, err := cache.FetchTaxSettings(context.Background())
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))
}

func TestTaxSettingsCacheDoesNotCacheErrors(t *testing.T) {
	source := &stubFetcher{err: errors.New("cms down")}
	cache := NewTaxSettingsCache(source, time.Minute)

	_, err := cache.FetchTaxSettings(context.Background())
	require.Error(t, err)
	_, err = cache.FetchTaxSettings(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
}

func TestTaxSettingsCacheCollapsesConcurrentFetches(t *testing.T) {
	source := &stubFetcher{settings: &TaxSettings{Enabled: true}, release: make(chan struct{})}
	cache := NewTaxSettingsCache(source, time.Minute)

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			got, err := cache.FetchTaxSettings(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, got)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.calls) == 1 }, time.Second, 5*time.Millisecond)
	close(source.release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))
}

func TestTaxSettingsCacheHonoursCallerCancellation(t *testing.T) {
	source := &stubFetcher{settings: &TaxSettings{}, release: make(chan struct{})}
	defer close(source.release)
	cache := NewTaxSettingsCache(source, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.FetchTaxSettings(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
