package cart

import (
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

// Reason identifies why a cart operation failed.
type Reason string

const (
	ReasonColorVariantNotFound       Reason = "COLOR_VARIANT_NOT_FOUND"
	ReasonInvalidQuantity            Reason = "INVALID_QUANTITY"
	ReasonInsufficientStock          Reason = "INSUFFICIENT_STOCK"
	ReasonItemNotFound               Reason = "ITEM_NOT_FOUND"
	ReasonProductNotFound            Reason = "PRODUCT_NOT_FOUND"
	ReasonDiscountInvalid            Reason = "DISCOUNT_INVALID"
	ReasonDiscountAlreadyApplied     Reason = "DISCOUNT_ALREADY_APPLIED"
	ReasonDiscountServiceUnavailable Reason = "DISCOUNT_SERVICE_UNAVAILABLE"
	ReasonCartNotReady               Reason = "CART_NOT_READY"
	ReasonCartEmpty                  Reason = "CART_EMPTY"
)

var codeByReason = map[Reason]pkgerrors.Code{
	ReasonColorVariantNotFound:       pkgerrors.CodeValidation,
	ReasonInvalidQuantity:            pkgerrors.CodeValidation,
	ReasonInsufficientStock:          pkgerrors.CodeConflict,
	ReasonItemNotFound:               pkgerrors.CodeNotFound,
	ReasonProductNotFound:            pkgerrors.CodeNotFound,
	ReasonDiscountInvalid:            pkgerrors.CodeValidation,
	ReasonDiscountAlreadyApplied:     pkgerrors.CodeConflict,
	ReasonDiscountServiceUnavailable: pkgerrors.CodeDependency,
	ReasonCartNotReady:               pkgerrors.CodeStateConflict,
	ReasonCartEmpty:                  pkgerrors.CodeValidation,
}

const detailReason = "reason"

// Code maps the reason onto the platform error code.
func (r Reason) Code() pkgerrors.Code {
	if code, ok := codeByReason[r]; ok {
		return code
	}
	return pkgerrors.CodeInternal
}

func newError(reason Reason, msg string, details map[string]any) *pkgerrors.Error {
	return pkgerrors.New(reason.Code(), msg).WithDetails(withReason(reason, details))
}

func wrapError(reason Reason, cause error, msg string, details map[string]any) *pkgerrors.Error {
	return pkgerrors.Wrap(reason.Code(), cause, msg).WithDetails(withReason(reason, details))
}

func withReason(reason Reason, details map[string]any) map[string]any {
	out := map[string]any{detailReason: string(reason)}
	for k, v := range details {
		out[k] = v
	}
	return out
}

// ReasonOf extracts the cart reason from err, or "" when err is not a cart failure.
func ReasonOf(err error) Reason {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	raw, _ := details[detailReason].(string)
	return Reason(raw)
}

func errNotReady() *pkgerrors.Error {
	return newError(ReasonCartNotReady, "cart is still loading, try again shortly", nil)
}
