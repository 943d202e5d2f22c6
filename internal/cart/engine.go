package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultPersistTimeout  = 2 * time.Second
	defaultDiscountTimeout = 5 * time.Second
	defaultTaxTimeout      = 5 * time.Second

	opAddItem        = "add_item"
	opUpdateQuantity = "update_quantity"
	opRemoveItem     = "remove_item"
	opClearCart      = "clear_cart"
	opApplyDiscount  = "apply_discount"
	opRemoveDiscount = "remove_discount"
	opRefreshTax     = "refresh_tax_settings"
	opCheckout       = "checkout"
)

// Params wires an Engine to its collaborators.
type Params struct {
	// Key addresses the durable copy of this cart.
	Key       string
	Storage   Storage
	Discounts DiscountValidator
	Tax       TaxSettingsSource
	Logger    *logger.Logger
	Metrics   MetricsRecorder
	Currency  enums.Currency

	PersistTimeout  time.Duration
	DiscountTimeout time.Duration
	TaxTimeout      time.Duration

	Now func() time.Time
}

// Engine owns one shopper's cart state. All methods are safe for concurrent use.
type Engine struct {
	key       string
	storage   Storage
	discounts DiscountValidator
	tax       TaxSettingsSource
	logg      *logger.Logger
	metrics   MetricsRecorder
	currency  enums.Currency
	now       func() time.Time

	persistTimeout  time.Duration
	discountTimeout time.Duration
	taxTimeout      time.Duration

	mu       sync.Mutex
	state    State
	hydrated bool

	ready       chan struct{}
	hydrateOnce sync.Once
	restoreErr  error
	taxOnce     sync.Once
}

// New builds an unhydrated engine. Call Hydrate before mutating it.
func New(p Params) (*Engine, error) {
	if strings.TrimSpace(p.Key) == "" {
		return nil, fmt.Errorf("storage key required")
	}
	if p.Storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	if p.Discounts == nil {
		return nil, fmt.Errorf("discount validator required")
	}
	if p.Tax == nil {
		return nil, fmt.Errorf("tax settings source required")
	}

	e := &Engine{
		key:             p.Key,
		storage:         p.Storage,
		discounts:       p.Discounts,
		tax:             p.Tax,
		logg:            p.Logger,
		metrics:         p.Metrics,
		currency:        p.Currency,
		now:             p.Now,
		persistTimeout:  p.PersistTimeout,
		discountTimeout: p.DiscountTimeout,
		taxTimeout:      p.TaxTimeout,
		state:           emptyState(),
		ready:           make(chan struct{}),
	}
	if e.logg == nil {
		e.logg = logger.Nop()
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.currency == "" {
		e.currency = enums.CurrencyUSD
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.persistTimeout <= 0 {
		e.persistTimeout = defaultPersistTimeout
	}
	if e.discountTimeout <= 0 {
		e.discountTimeout = defaultDiscountTimeout
	}
	if e.taxTimeout <= 0 {
		e.taxTimeout = defaultTaxTimeout
	}
	return e, nil
}

// Key returns the storage key backing this engine.
func (e *Engine) Key() string {
	return e.key
}

// Ready is closed once the saved state has been restored.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Hydrated reports whether restoration has completed.
func (e *Engine) Hydrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hydrated
}

// Hydrate restores the saved state, opens the engine for mutation and then
// fetches tax settings. Each step runs once; later calls return the restore
// result without repeating work. Corrupt payloads and tax failures are logged
// and never block hydration. A storage failure still opens the engine empty,
// and the returned error wraps ErrStorageUnavailable so callers holding
// engines across requests can discard this one.
func (e *Engine) Hydrate(ctx context.Context) error {
	err := e.restore(ctx)
	e.loadTaxOnce(ctx)
	return err
}

func (e *Engine) restore(ctx context.Context) error {
	e.hydrateOnce.Do(func() {
		ctx = e.logg.WithField(ctx, "cart_key", e.key)

		restored, err := e.load(ctx)
		e.metrics.ObserveHydration(err)
		if err != nil {
			e.logg.Error(ctx, "cart state restore failed, starting empty", err)
		}
		if errors.Is(err, ErrStorageUnavailable) {
			e.restoreErr = err
		}

		e.mu.Lock()
		e.state = restored
		e.hydrated = true
		e.mu.Unlock()
		close(e.ready)
	})
	return e.restoreErr
}

func (e *Engine) loadTaxOnce(ctx context.Context) {
	e.taxOnce.Do(func() {
		if err := e.RefreshTaxSettings(ctx); err != nil {
			ctx = e.logg.WithFields(ctx, map[string]any{"cart_key": e.key, "error": err.Error()})
			e.logg.Warn(ctx, "tax settings unavailable, keeping previous value")
		}
	})
}

func (e *Engine) load(ctx context.Context) (State, error) {
	loadCtx, cancel := context.WithTimeout(ctx, e.persistTimeout)
	defer cancel()

	data, err := e.storage.Load(loadCtx, e.key)
	if errors.Is(err, ErrStateNotFound) {
		return emptyState(), nil
	}
	if err != nil {
		return emptyState(), fmt.Errorf("load cart state: %w: %w", ErrStorageUnavailable, err)
	}
	return decodeState(data)
}

// persist writes the whole state. Callers hold e.mu so saves land in mutation order.
func (e *Engine) persist(ctx context.Context) {
	data, err := encodeState(e.state)
	if err != nil {
		e.logg.Error(ctx, "encode cart state", err)
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.persistTimeout)
	defer cancel()
	if err := e.storage.Save(saveCtx, e.key, data); err != nil {
		e.logg.Error(e.logg.WithField(ctx, "cart_key", e.key), "persist cart state", err)
	}
}

// view returns a copy of the state, or the empty default before hydration.
func (e *Engine) view() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return emptyState()
	}
	out := e.state.clone()
	out.Hydrated = true
	return out
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() State {
	return e.view()
}

// Items returns the line items.
func (e *Engine) Items() []LineItem {
	return e.view().Items
}

// AppliedDiscounts returns the discount ledger.
func (e *Engine) AppliedDiscounts() []AppliedDiscount {
	return e.view().AppliedDiscounts
}

// TaxSettings returns the current tax configuration, or nil.
func (e *Engine) TaxSettings() *TaxSettings {
	return e.view().TaxSettings
}

// TotalItems sums quantities across lines.
func (e *Engine) TotalItems() int {
	return e.view().TotalItems()
}

// TotalPrice is the subtotal before discounts and tax.
func (e *Engine) TotalPrice() decimal.Decimal {
	return e.view().TotalPrice()
}

// ItemQuantity returns the quantity committed for the identity triple.
func (e *Engine) ItemQuantity(productID, variantID, color string) int {
	return e.view().ItemQuantity(productID, variantID, color)
}

// DiscountTotal sums applied discount amounts.
func (e *Engine) DiscountTotal() decimal.Decimal {
	return e.view().DiscountTotal()
}

// TaxableAmount is the subtotal net of discounts, never negative.
func (e *Engine) TaxableAmount() decimal.Decimal {
	return e.view().TaxableAmount()
}

// TaxAmount is the tax owed on the cart.
func (e *Engine) TaxAmount() decimal.Decimal {
	return e.view().TaxAmount()
}

// FinalPrice is what the shopper pays.
func (e *Engine) FinalPrice() decimal.Decimal {
	return e.view().FinalPrice()
}

// Summary is a consistent read of the state and every derived total.
type Summary struct {
	Items            []LineItem
	AppliedDiscounts []AppliedDiscount
	TotalItems       int
	Subtotal         decimal.Decimal
	DiscountTotal    decimal.Decimal
	TaxableAmount    decimal.Decimal
	TaxAmount        decimal.Decimal
	FinalPrice       decimal.Decimal
	TaxEnabled       bool
	TaxIncluded      bool
	DisplayTaxes     bool
	Hydrated         bool
}

// Summary computes all totals from a single snapshot.
func (e *Engine) Summary() Summary {
	return summarize(e.view())
}

func summarize(s State) Summary {
	out := Summary{
		Items:            s.Items,
		AppliedDiscounts: s.AppliedDiscounts,
		TotalItems:       s.TotalItems(),
		Subtotal:         s.TotalPrice(),
		DiscountTotal:    s.DiscountTotal(),
		TaxableAmount:    s.TaxableAmount(),
		TaxAmount:        s.TaxAmount(),
		FinalPrice:       s.FinalPrice(),
		Hydrated:         s.Hydrated,
	}
	if s.TaxSettings != nil {
		out.TaxEnabled = s.TaxSettings.Enabled
		out.TaxIncluded = s.TaxSettings.TaxIncluded
		out.DisplayTaxes = s.TaxSettings.DisplayTaxes
	}
	return out
}

// mutate runs fn under the lock on a hydrated engine and persists when fn
// reports a change.
func (e *Engine) mutate(ctx context.Context, op string, fn func(s *State) (bool, error)) (err error) {
	defer func() { e.metrics.ObserveOperation(op, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hydrated {
		return errNotReady()
	}

	changed, err := fn(&e.state)
	if err != nil {
		return err
	}
	if changed {
		e.persist(ctx)
	}
	return nil
}
