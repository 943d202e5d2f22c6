package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrStateNotFound is returned by Storage.Load when no state was saved under the key.
var ErrStateNotFound = errors.New("cart state not found")

// ErrStorageUnavailable marks a restore that failed because storage could not
// be read, as opposed to a missing or unreadable payload.
var ErrStorageUnavailable = errors.New("cart storage unavailable")

// Storage is the durable key-value substrate for serialized cart state.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// DiscountRequest describes the cart a discount code is validated against.
type DiscountRequest struct {
	Code       string
	CustomerID string
	Items      []LineItem
	Subtotal   decimal.Decimal
}

// DiscountVerdict is the remote validator's answer.
type DiscountVerdict struct {
	Valid    bool
	Reason   string
	Discount *AppliedDiscount
}

// DiscountValidator validates discount codes remotely.
type DiscountValidator interface {
	ValidateDiscount(ctx context.Context, req DiscountRequest) (*DiscountVerdict, error)
}

// TaxSettingsSource supplies the store tax configuration; nil means not configured.
type TaxSettingsSource interface {
	FetchTaxSettings(ctx context.Context) (*TaxSettings, error)
}

// Catalog resolves a product variant to its current name, price and stock.
// Shoppers never supply these values.
type Catalog interface {
	LookupVariant(ctx context.Context, productID, variantID string) (Product, Variant, error)
}

// MetricsRecorder is satisfied by *metrics.CartMetrics.
type MetricsRecorder interface {
	ObserveOperation(operation string, err error)
	ObserveHydration(err error)
	SetActiveSessions(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, error) {}
func (nopMetrics) ObserveHydration(error)         {}
func (nopMetrics) SetActiveSessions(int)          {}
