package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderDraft is the hand-off to order submission. The engine neither submits
// it nor clears the cart.
type OrderDraft struct {
	Items         []LineItem
	Discounts     []AppliedDiscount
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxAmount     decimal.Decimal
	FinalPrice    decimal.Decimal
	TaxIncluded   bool
	Currency      enums.Currency
	CreatedAt     time.Time
}

// Checkout builds an order draft from the current state.
func (e *Engine) Checkout(ctx context.Context) (draft *OrderDraft, err error) {
	defer func() { e.metrics.ObserveOperation(opCheckout, err) }()

	if !e.Hydrated() {
		return nil, errNotReady()
	}
	s := e.view()
	if len(s.Items) == 0 {
		return nil, newError(ReasonCartEmpty, "cart is empty", nil)
	}

	draft = &OrderDraft{
		Items:         s.Items,
		Discounts:     s.AppliedDiscounts,
		Subtotal:      s.TotalPrice(),
		DiscountTotal: s.DiscountTotal(),
		TaxAmount:     s.TaxAmount(),
		FinalPrice:    s.FinalPrice(),
		TaxIncluded:   s.TaxSettings != nil && s.TaxSettings.TaxIncluded,
		Currency:      e.currency,
		CreatedAt:     e.now().UTC(),
	}
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"items":       len(draft.Items),
		"final_price": draft.FinalPrice.StringFixed(2),
	}), "order draft built")
	return draft, nil
}
