package cartdto

import "time"

// Money fields are rendered as fixed two-decimal strings.

// CartSummary is the cart snapshot returned by every cart endpoint.
type CartSummary struct {
	Items            []LineItem        `json:"items"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts"`
	TotalItems       int               `json:"total_items"`
	Subtotal         string            `json:"subtotal"`
	DiscountTotal    string            `json:"discount_total"`
	TaxableAmount    string            `json:"taxable_amount"`
	TaxAmount        string            `json:"tax_amount"`
	FinalPrice       string            `json:"final_price"`
	TaxEnabled       bool              `json:"tax_enabled"`
	TaxIncluded      bool              `json:"tax_included"`
	DisplayTaxes     bool              `json:"display_taxes"`
	Hydrated         bool              `json:"hydrated"`
}

type LineItem struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Size        string `json:"size"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
	SKU         string `json:"sku"`
	Color       string `json:"color"`
	ColorCode   string `json:"color_code,omitempty"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url,omitempty"`
}

type AppliedDiscount struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Amount string `json:"amount"`
	Code   string `json:"code"`
}

// ItemQuantity reports how many units of a product variant color are in the cart.
type ItemQuantity struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// OrderDraft is the checkout payload handed to the order flow.
type OrderDraft struct {
	Items         []LineItem        `json:"items"`
	Discounts     []AppliedDiscount `json:"discounts"`
	Subtotal      string            `json:"subtotal"`
	DiscountTotal string            `json:"discount_total"`
	TaxAmount     string            `json:"tax_amount"`
	FinalPrice    string            `json:"final_price"`
	TaxIncluded   bool              `json:"tax_included"`
	Currency      string            `json:"currency"`
	CreatedAt     time.Time         `json:"created_at"`
}
