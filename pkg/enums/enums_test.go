package enums

import "testing"

func TestParseDiscountType(t *testing.T) {
	for _, raw := range []string{"percentage", "fixed_amount", "buy_x_get_y", "free_shipping"} {
		got, err := ParseDiscountType(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !got.IsValid() || got.String() != raw {
			t.Fatalf("unexpected discount type %q", got)
		}
	}
	if _, err := ParseDiscountType("bogus"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestParseCurrency(t *testing.T) {
	if c, err := ParseCurrency("USD"); err != nil || c != CurrencyUSD {
		t.Fatalf("expected USD, got %q err=%v", c, err)
	}
	if Currency("BTC").IsValid() {
		t.Fatalf("BTC should not be valid")
	}
}
