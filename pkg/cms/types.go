package cms

import "github.com/shopspring/decimal"

// DiscountLine describes one cart line sent for discount validation.
type DiscountLine struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ValidateDiscountRequest is the body posted to the discount validation endpoint.
type ValidateDiscountRequest struct {
	Code       string          `json:"code"`
	CustomerID string          `json:"customer_id,omitempty"`
	Items      []DiscountLine  `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Discount is the redeemed discount returned on a successful validation.
type Discount struct {
	ID     string          `json:"id" validate:"required"`
	Name   string          `json:"name"`
	Type   string          `json:"type" validate:"required,oneof=percentage fixed_amount buy_x_get_y free_shipping"`
	Value  decimal.Decimal `json:"value"`
	Amount decimal.Decimal `json:"amount"`
	Code   string          `json:"code" validate:"required"`
}

// ValidateDiscountResponse is the validation verdict.
type ValidateDiscountResponse struct {
	Valid    bool      `json:"valid"`
	Reason   string    `json:"reason,omitempty"`
	Discount *Discount `json:"discount,omitempty" validate:"required_if=Valid true"`
}

// TaxRule is one regional rate.
type TaxRule struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	Regions   []string        `json:"regions,omitempty"`
	IsDefault bool            `json:"isDefault"`
}

// TaxSettings is the store-wide tax configuration.
type TaxSettings struct {
	Enabled          bool            `json:"enabled"`
	DefaultRate      decimal.Decimal `json:"defaultRate"`
	TaxRules         []TaxRule       `json:"taxRules,omitempty" validate:"dive"`
	ExemptCategories []string        `json:"exemptCategories,omitempty"`
	ExemptProducts   []string        `json:"exemptProducts,omitempty"`
	TaxIncluded      bool            `json:"taxIncluded"`
	DisplayTaxes     bool            `json:"displayTaxes"`
}

// ColorVariant is the stock and imagery for one color of a variant.
type ColorVariant struct {
	Color     string   `json:"color" validate:"required"`
	ColorCode string   `json:"colorCode,omitempty"`
	Stock     int      `json:"stock" validate:"gte=0"`
	Images    []string `json:"images,omitempty"`
}

// Variant is a purchasable size of a product.
type Variant struct {
	ID            string          `json:"id" validate:"required"`
	Size          string          `json:"size"`
	Price         decimal.Decimal `json:"price"`
	SKU           string          `json:"sku"`
	ColorVariants []ColorVariant  `json:"colorVariants" validate:"dive"`
}

// Product is the catalog entry with its variants.
type Product struct {
	ID       string    `json:"id" validate:"required"`
	Name     string    `json:"name" validate:"required"`
	Variants []Variant `json:"variants" validate:"dive"`
}
