package cartdto

// AddItemRequest names the product variant color to add. Price and stock are
// resolved from the catalog.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	VariantID string `json:"variant_id" validate:"required,max=128"`
	Color     string `json:"color" validate:"max=64"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty" validate:"omitempty,max=2048"`
}

// UpdateQuantityRequest sets the quantity of every line for a product variant.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ApplyDiscountRequest carries the code typed by the shopper.
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
