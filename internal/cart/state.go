package cart

import (
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry a shopper adds to the cart.
type Product struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Variant is one size/price option of a product.
type Variant struct {
	ID            string          `json:"id" validate:"required"`
	Size          string          `json:"size"`
	Price         decimal.Decimal `json:"price"`
	SKU           string          `json:"sku"`
	ColorVariants []ColorVariant  `json:"colorVariants" validate:"dive"`
}

// ColorVariant carries the stock, image and swatch for one color of a variant.
type ColorVariant struct {
	Color     string   `json:"color" validate:"required"`
	ColorCode string   `json:"colorCode,omitempty"`
	Stock     int      `json:"stock" validate:"gte=0"`
	Images    []string `json:"images,omitempty"`
}

func (v Variant) colorVariant(color string) (ColorVariant, bool) {
	for _, cv := range v.ColorVariants {
		if cv.Color == color {
			return cv, true
		}
	}
	return ColorVariant{}, false
}

// LineItem is one cart entry, unique per (product, variant, color).
type LineItem struct {
	ProductID   string          `json:"productId"`
	VariantID   string          `json:"variantId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Size        string          `json:"size"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	SKU         string          `json:"sku"`
	Color       string          `json:"color"`
	ColorCode   string          `json:"colorCode,omitempty"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

// Total is unit price times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l LineItem) matches(productID, variantID string) bool {
	return l.ProductID == productID && l.VariantID == variantID
}

func (l LineItem) is(productID, variantID, color string) bool {
	return l.matches(productID, variantID) && l.Color == color
}

// AppliedDiscount is a discount redeemed against the cart. Amount is fixed at
// application time.
type AppliedDiscount struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Type   enums.DiscountType `json:"type"`
	Value  decimal.Decimal    `json:"value"`
	Amount decimal.Decimal    `json:"amount"`
	Code   string             `json:"code"`
}

// TaxRule is a named regional rate. Rates are whole-number percentages.
type TaxRule struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	Regions   []string        `json:"regions,omitempty"`
	IsDefault bool            `json:"isDefault"`
}

// TaxSettings is the store tax configuration. A nil *TaxSettings means tax is inactive.
type TaxSettings struct {
	Enabled          bool            `json:"enabled"`
	DefaultRate      decimal.Decimal `json:"defaultRate"`
	TaxRules         []TaxRule       `json:"taxRules,omitempty"`
	ExemptCategories []string        `json:"exemptCategories,omitempty"`
	ExemptProducts   []string        `json:"exemptProducts,omitempty"`
	TaxIncluded      bool            `json:"taxIncluded"`
	DisplayTaxes     bool            `json:"displayTaxes"`
}

func (t *TaxSettings) clone() *TaxSettings {
	if t == nil {
		return nil
	}
	out := *t
	if t.TaxRules != nil {
		out.TaxRules = make([]TaxRule, len(t.TaxRules))
		for i, rule := range t.TaxRules {
			rule.Regions = append([]string(nil), rule.Regions...)
			out.TaxRules[i] = rule
		}
	}
	out.ExemptCategories = append([]string(nil), t.ExemptCategories...)
	out.ExemptProducts = append([]string(nil), t.ExemptProducts...)
	return &out
}

// State is the whole cart aggregate.
type State struct {
	Items            []LineItem        `json:"items"`
	AppliedDiscounts []AppliedDiscount `json:"appliedDiscounts"`
	TaxSettings      *TaxSettings      `json:"taxSettings"`
	Hydrated         bool              `json:"-"`
}

func emptyState() State {
	return State{Items: []LineItem{}, AppliedDiscounts: []AppliedDiscount{}}
}

func (s State) clone() State {
	out := State{
		Items:            append([]LineItem{}, s.Items...),
		AppliedDiscounts: append([]AppliedDiscount{}, s.AppliedDiscounts...),
		TaxSettings:      s.TaxSettings.clone(),
		Hydrated:         s.Hydrated,
	}
	return out
}

// TotalItems sums line quantities.
func (s State) TotalItems() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the cart subtotal.
func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Total())
	}
	return total
}

// ItemQuantity returns the committed quantity for the identity triple, or 0.
func (s State) ItemQuantity(productID, variantID, color string) int {
	for _, item := range s.Items {
		if item.is(productID, variantID, color) {
			return item.Quantity
		}
	}
	return 0
}

// DiscountTotal sums the applied discount amounts.
func (s State) DiscountTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.AppliedDiscounts {
		total = total.Add(d.Amount)
	}
	return total
}

func (s State) hasDiscount(code, id string) bool {
	for _, d := range s.AppliedDiscounts {
		if equalCode(d.Code, code) || (id != "" && d.ID == id) {
			return true
		}
	}
	return false
}
