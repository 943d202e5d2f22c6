package cart

import (
	"strings"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/internal/cart"
)

func toAddItemInput(payload cartdto.AddItemRequest) cart.AddItemInput {
	return cart.AddItemInput{
		ProductID: strings.TrimSpace(payload.ProductID),
		VariantID: strings.TrimSpace(payload.VariantID),
		Color:     payload.Color,
		Quantity:  payload.Quantity,
		ImageURL:  strings.TrimSpace(payload.ImageURL),
	}
}
