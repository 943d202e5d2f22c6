package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "cart-storage:session-1"

type memStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memStorage) Save(ctx context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = append([]byte(nil), payload...)
	return nil
}

func (m *memStorage) saved(t *testing.T, key string) State {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	require.True(t, ok, "no state saved under %s", key)
	state, err := decodeState(data)
	require.NoError(t, err)
	return state
}

func (m *memStorage) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type stubDiscounts struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req DiscountRequest) (*DiscountVerdict, error)
}

func (s *stubDiscounts) ValidateDiscount(ctx context.Context, req DiscountRequest) (*DiscountVerdict, error) {
	s.mu.Lock()
	s.calls++
	fn := s.fn
	s.mu.Unlock()
	if fn == nil {
		return &DiscountVerdict{Valid: false, Reason: "unknown code"}, nil
	}
	return fn(ctx, req)
}

func (s *stubDiscounts) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func acceptDiscount(id string, amount string) func(context.Context, DiscountRequest) (*DiscountVerdict, error) {
	return func(_ context.Context, req DiscountRequest) (*DiscountVerdict, error) {
		return &DiscountVerdict{Valid: true, Discount: &AppliedDiscount{
			ID:     id,
			Name:   "Promo " + req.Code,
			Type:   enums.DiscountTypeFixedAmount,
			Value:  decimal.RequireFromString(amount),
			Amount: decimal.RequireFromString(amount),
			Code:   req.Code,
		}}, nil
	}
}

type stubTax struct {
	mu       sync.Mutex
	settings *TaxSettings
	err      error
	calls    int
}

func (s *stubTax) FetchTaxSettings(ctx context.Context) (*TaxSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.settings, s.err
}

type testDeps struct {
	storage   *memStorage
	discounts *stubDiscounts
	tax       *stubTax
}

func newDeps() *testDeps {
	return &testDeps{storage: newMemStorage(), discounts: &stubDiscounts{}, tax: &stubTax{}}
}

func (d *testDeps) params() Params {
	return Params{
		Key:             testKey,
		Storage:         d.storage,
		Discounts:       d.discounts,
		Tax:             d.tax,
		PersistTimeout:  time.Second,
		DiscountTimeout: time.Second,
		TaxTimeout:      time.Second,
		Now:             func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func newHydratedEngine(t *testing.T, deps *testDeps) *Engine {
	t.Helper()
	engine, err := New(deps.params())
	require.NoError(t, err)
	engine.Hydrate(context.Background())
	return engine
}

func testProduct(id string) Product {
	return Product{ID: id, Name: "Product " + id}
}

func testVariant(id, price string, stock int) Variant {
	return Variant{
		ID:    id,
		Size:  "M",
		Price: decimal.RequireFromString(price),
		SKU:   "SKU-" + id,
		ColorVariants: []ColorVariant{
			{Color: "red", ColorCode: "#ff0000", Stock: stock, Images: []string{"https://cdn.test/" + id + "-red.png"}},
			{Color: "blue", ColorCode: "#0000ff", Stock: stock},
		},
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	deps := newDeps()

	p := deps.params()
	p.Key = " "
	_, err := New(p)
	require.Error(t, err)

	p = deps.params()
	p.Storage = nil
	_, err = New(p)
	require.Error(t, err)

	p = deps.params()
	p.Discounts = nil
	_, err = New(p)
	require.Error(t, err)

	p = deps.params()
	p.Tax = nil
	_, err = New(p)
	require.Error(t, err)
}

func TestHydrationGatesReadsAndMutations(t *testing.T) {
	deps := newDeps()
	seed, err := encodeState(State{Items: []LineItem{{
		ProductID: "p1", VariantID: "v1", ProductName: "Tee", Quantity: 2,
		UnitPrice: decimal.NewFromInt(20), Color: "red", Stock: 5,
	}}})
	require.NoError(t, err)
	deps.storage.data[testKey] = seed

	engine, err := New(deps.params())
	require.NoError(t, err)

	assert.False(t, engine.Hydrated())
	assert.Empty(t, engine.Items())
	assert.Equal(t, 0, engine.TotalItems())
	assert.False(t, engine.Summary().Hydrated)
	select {
	case <-engine.Ready():
		t.Fatal("ready closed before hydration")
	default:
	}

	err = engine.AddItem(context.Background(), testProduct("p1"), testVariant("v1", "20", 5), "red", 1, "")
	assert.Equal(t, ReasonCartNotReady, ReasonOf(err))
	err = engine.ClearCart(context.Background())
	assert.Equal(t, ReasonCartNotReady, ReasonOf(err))
	_, err = engine.ApplyDiscount(context.Background(), "SAVE", "")
	assert.Equal(t, ReasonCartNotReady, ReasonOf(err))

	engine.Hydrate(context.Background())

	select {
	case <-engine.Ready():
	default:
		t.Fatal("ready not closed after hydration")
	}
	assert.True(t, engine.Hydrated())
	require.Len(t, engine.Items(), 1)
	assert.Equal(t, 2, engine.TotalItems())
}

func TestHydrateStartsEmptyOnCorruptPayload(t *testing.T) {
	deps := newDeps()
	deps.storage.data[testKey] = []byte("{not json")

	engine, err := New(deps.params())
	require.NoError(t, err)
	require.NoError(t, engine.Hydrate(context.Background()))
	assert.True(t, engine.Hydrated())
	assert.Empty(t, engine.Items())
	assert.Empty(t, engine.AppliedDiscounts())
}

func TestHydrateStartsEmptyOnFutureVersion(t *testing.T) {
	deps := newDeps()
	deps.storage.data[testKey] = []byte(`{"version":99,"state":{"items":[{"productId":"p","variantId":"v","quantity":1}]}}`)

	engine := newHydratedEngine(t, deps)
	assert.Empty(t, engine.Items())
}

func TestHydrateStartsEmptyOnStorageError(t *testing.T) {
	deps := newDeps()
	deps.storage.loadErr = errors.New("redis unavailable")

	engine, err := New(deps.params())
	require.NoError(t, err)
	err = engine.Hydrate(context.Background())
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.True(t, engine.Hydrated())
	assert.Empty(t, engine.Items())

	require.NoError(t, engine.AddItem(context.Background(), testProduct("p1"), testVariant("v1", "10", 3), "red", 1, ""))
	assert.Equal(t, 1, engine.TotalItems())
}

func TestHydrateFetchesTaxSettingsAndPersistsThem(t *testing.T) {
	deps := newDeps()
	deps.tax.settings = &TaxSettings{Enabled: true, DefaultRate: decimal.NewFromInt(10)}

	engine := newHydratedEngine(t, deps)
	require.NotNil(t, engine.TaxSettings())
	assert.True(t, engine.TaxSettings().Enabled)
	assert.Equal(t, 1, deps.tax.calls)

	saved := deps.storage.saved(t, testKey)
	require.NotNil(t, saved.TaxSettings)
	assert.True(t, saved.TaxSettings.DefaultRate.Equal(decimal.NewFromInt(10)))
}

func TestHydrateKeepsPreviousTaxSettingsOnFailure(t *testing.T) {
	deps := newDeps()
	seed, err := encodeState(State{TaxSettings: &TaxSettings{Enabled: true, DefaultRate: decimal.NewFromInt(7)}})
	require.NoError(t, err)
	deps.storage.data[testKey] = seed
	deps.tax.err = errors.New("cms timeout")

	engine := newHydratedEngine(t, deps)
	require.True(t, engine.Hydrated())
	require.NotNil(t, engine.TaxSettings())
	assert.True(t, engine.TaxSettings().DefaultRate.Equal(decimal.NewFromInt(7)))
}

func TestHydrateLeavesTaxNilOnFreshCartFailure(t *testing.T) {
	deps := newDeps()
	deps.tax.err = errors.New("cms timeout")

	engine := newHydratedEngine(t, deps)
	assert.Nil(t, engine.TaxSettings())
	assert.True(t, engine.TaxAmount().IsZero())
}

func TestHydrateRunsOnce(t *testing.T) {
	deps := newDeps()
	engine := newHydratedEngine(t, deps)
	require.NoError(t, engine.Hydrate(context.Background()))
	assert.Equal(t, 1, deps.tax.calls)
}

func TestMutationsPersistWholeState(t *testing.T) {
	deps := newDeps()
	engine := newHydratedEngine(t, deps)
	ctx := context.Background()

	require.NoError(t, engine.AddItem(ctx, testProduct("p1"), testVariant("v1", "12.50", 4), "red", 2, ""))
	saved := deps.storage.saved(t, testKey)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, 2, saved.Items[0].Quantity)
	assert.True(t, saved.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))

	restored, err := New(deps.params())
	require.NoError(t, err)
	restored.Hydrate(ctx)
	items := restored.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "SKU-v1", items[0].SKU)
	assert.Equal(t, "#ff0000", items[0].ColorCode)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("12.5")))
}

func TestPersistFailureIsNotSurfaced(t *testing.T) {
	deps := newDeps()
	engine := newHydratedEngine(t, deps)
	deps.storage.saveErr = errors.New("disk full")

	err := engine.AddItem(context.Background(), testProduct("p1"), testVariant("v1", "5", 2), "red", 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, engine.TotalItems())
}

func TestSnapshotIsIsolatedFromEngine(t *testing.T) {
	deps := newDeps()
	engine := newHydratedEngine(t, deps)
	require.NoError(t, engine.AddItem(context.Background(), testProduct("p1"), testVariant("v1", "5", 2), "red", 1, ""))

	snap := engine.Snapshot()
	snap.Items[0].Quantity = 99
	assert.Equal(t, 1, engine.ItemQuantity("p1", "v1", "red"))
}
