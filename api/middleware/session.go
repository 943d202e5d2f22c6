package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const (
	SessionHeader  = "X-Cart-Session"
	CustomerHeader = "X-Customer-Id"

	maxHeaderIDLen = 128
)

// CartSession requires the shopper's cart session header and attaches it,
// along with the optional customer id, to the request context and logger.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := r.Header.Get(SessionHeader)
			if len(raw) > maxHeaderIDLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session header too long").
					WithDetails(map[string]any{"header": SessionHeader, "max": maxHeaderIDLen}))
				return
			}
			sessionID := validators.SanitizeString(raw, maxHeaderIDLen)
			if sessionID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session header required").
					WithDetails(map[string]any{"header": SessionHeader}))
				return
			}

			ctx = WithSessionID(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			if customerID := validators.SanitizeString(r.Header.Get(CustomerHeader), maxHeaderIDLen); customerID != "" {
				ctx = WithCustomerID(ctx, customerID)
				if logg != nil {
					ctx = logg.WithCustomerID(ctx, customerID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
