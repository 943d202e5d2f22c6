package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxableAmount is max(0, subtotal - discounts).
func (s State) TaxableAmount() decimal.Decimal {
	taxable := s.TotalPrice().Sub(s.DiscountTotal())
	if taxable.IsNegative() {
		return decimal.Zero
	}
	return taxable
}

// TaxAmount derives the tax owed. With tax-inclusive pricing the tax is
// extracted from the taxable amount using the rate as a fraction. Otherwise
// the discount is prorated over non-exempt lines and the rate is applied as a
// whole-number percentage. Only product exemptions are consulted.
func (s State) TaxAmount() decimal.Decimal {
	settings := s.TaxSettings
	if settings == nil || !settings.Enabled {
		return decimal.Zero
	}
	rate := settings.effectiveRate()

	if settings.TaxIncluded {
		r := rate.Div(hundred)
		return s.TaxableAmount().Mul(r).Div(decimal.NewFromInt(1).Add(r))
	}

	exempt := make(map[string]struct{}, len(settings.ExemptProducts))
	for _, id := range settings.ExemptProducts {
		exempt[id] = struct{}{}
	}

	taxableItemsTotal := decimal.Zero
	for _, item := range s.Items {
		if _, ok := exempt[item.ProductID]; ok {
			continue
		}
		taxableItemsTotal = taxableItemsTotal.Add(item.Total())
	}

	subtotal := s.TotalPrice()
	prorated := decimal.Zero
	if subtotal.IsPositive() {
		prorated = s.DiscountTotal().Mul(taxableItemsTotal).Div(subtotal)
	}

	// Floored so a discount larger than the taxable lines cannot produce negative tax.
	finalTaxable := taxableItemsTotal.Sub(prorated)
	if finalTaxable.IsNegative() {
		finalTaxable = decimal.Zero
	}
	return finalTaxable.Mul(rate).Div(hundred)
}

// FinalPrice adds tax on top unless prices already include it.
func (s State) FinalPrice() decimal.Decimal {
	taxable := s.TaxableAmount()
	if s.TaxSettings != nil && s.TaxSettings.TaxIncluded {
		return taxable
	}
	return taxable.Add(s.TaxAmount())
}

// effectiveRate picks the rule flagged default, else the first rule, else DefaultRate.
func (t *TaxSettings) effectiveRate() decimal.Decimal {
	for _, rule := range t.TaxRules {
		if rule.IsDefault {
			return rule.Rate
		}
	}
	if len(t.TaxRules) > 0 {
		return t.TaxRules[0].Rate
	}
	return t.DefaultRate
}

// RefreshTaxSettings fetches the tax configuration and stores it. On failure
// the previous settings are kept and the error is returned.
func (e *Engine) RefreshTaxSettings(ctx context.Context) (err error) {
	defer func() { e.metrics.ObserveOperation(opRefreshTax, err) }()

	if !e.Hydrated() {
		return errNotReady()
	}

	callCtx, cancel := context.WithTimeout(ctx, e.taxTimeout)
	defer cancel()
	start := time.Now()
	settings, err := e.tax.FetchTaxSettings(callCtx)
	if err != nil {
		return err
	}
	e.logg.Debug(e.logg.WithField(ctx, "elapsed_ms", time.Since(start).Milliseconds()), "tax settings fetched")

	e.mu.Lock()
	defer e.mu.Unlock()
	if settings == nil && e.state.TaxSettings == nil {
		return nil
	}
	e.state.TaxSettings = settings.clone()
	e.persist(ctx)
	return nil
}
