package cart

import (
	"context"
	"strings"
)

// equalCode compares codes exactly after trimming; the CMS owns case rules.
func equalCode(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// ApplyDiscount validates code remotely and appends the returned discount.
// The duplicate check runs before the call and again under the lock before
// committing, since another request may have applied the code meanwhile.
func (e *Engine) ApplyDiscount(ctx context.Context, code, customerID string) (applied *AppliedDiscount, err error) {
	defer func() { e.metrics.ObserveOperation(opApplyDiscount, err) }()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(ReasonDiscountInvalid, "discount code is required", nil)
	}

	e.mu.Lock()
	if !e.hydrated {
		e.mu.Unlock()
		return nil, errNotReady()
	}
	if e.state.hasDiscount(code, "") {
		e.mu.Unlock()
		return nil, errAlreadyApplied(code)
	}
	req := DiscountRequest{
		Code:       code,
		CustomerID: strings.TrimSpace(customerID),
		Items:      append([]LineItem{}, e.state.Items...),
		Subtotal:   e.state.TotalPrice(),
	}
	e.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, e.discountTimeout)
	defer cancel()
	verdict, err := e.discounts.ValidateDiscount(callCtx, req)
	if err != nil {
		return nil, wrapError(ReasonDiscountServiceUnavailable, err,
			"discount service is unavailable, try again later", map[string]any{"code": code})
	}
	if verdict == nil || !verdict.Valid {
		msg := "discount code is not valid"
		if verdict != nil && strings.TrimSpace(verdict.Reason) != "" {
			msg = verdict.Reason
		}
		return nil, newError(ReasonDiscountInvalid, msg, map[string]any{"code": code})
	}
	if verdict.Discount == nil {
		return nil, newError(ReasonDiscountServiceUnavailable,
			"discount service returned an incomplete response", map[string]any{"code": code})
	}

	discount := *verdict.Discount
	if discount.Code == "" {
		discount.Code = code
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.hasDiscount(code, discount.ID) || e.state.hasDiscount(discount.Code, "") {
		return nil, errAlreadyApplied(code)
	}
	e.state.AppliedDiscounts = append(e.state.AppliedDiscounts, discount)
	e.persist(ctx)

	out := discount
	return &out, nil
}

func errAlreadyApplied(code string) error {
	return newError(ReasonDiscountAlreadyApplied, "discount code is already applied", map[string]any{"code": code})
}

// RemoveDiscount drops the discount with the given id. Removing an absent
// discount is a no-op.
func (e *Engine) RemoveDiscount(ctx context.Context, discountID string) error {
	return e.mutate(ctx, opRemoveDiscount, func(s *State) (bool, error) {
		kept := s.AppliedDiscounts[:0:0]
		for _, d := range s.AppliedDiscounts {
			if d.ID != discountID {
				kept = append(kept, d)
			}
		}
		if len(kept) == len(s.AppliedDiscounts) {
			return false, nil
		}
		s.AppliedDiscounts = kept
		return true, nil
	})
}
