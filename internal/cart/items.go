package cart

import (
	"context"
	"fmt"
)

// AddItem adds quantity units of the product variant in the given color,
// merging into an existing line for the same (product, variant, color).
// The stock check and the write happen in one critical section.
func (e *Engine) AddItem(ctx context.Context, product Product, variant Variant, color string, quantity int, imageURL string) error {
	return e.mutate(ctx, opAddItem, func(s *State) (bool, error) {
		if quantity < 1 {
			return false, newError(ReasonInvalidQuantity, "quantity must be at least 1", map[string]any{"quantity": quantity})
		}

		cv, ok := variant.colorVariant(color)
		if !ok {
			return false, newError(ReasonColorVariantNotFound,
				fmt.Sprintf("color %q is not available for this variant", color),
				map[string]any{"color": color, "variant_id": variant.ID})
		}

		stock := cv.Stock
		current := s.ItemQuantity(product.ID, variant.ID, color)
		if current+quantity > stock {
			available := stock - current
			if available < 0 {
				available = 0
			}
			return false, newError(ReasonInsufficientStock,
				fmt.Sprintf("cannot add %d items, only %d more available", quantity, available),
				map[string]any{"requested": quantity, "available": available})
		}

		for i := range s.Items {
			if s.Items[i].is(product.ID, variant.ID, color) {
				s.Items[i].Quantity += quantity
				s.Items[i].Stock = stock
				return true, nil
			}
		}

		s.Items = append(s.Items, LineItem{
			ProductID:   product.ID,
			VariantID:   variant.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			Size:        variant.Size,
			UnitPrice:   variant.Price,
			SKU:         variant.SKU,
			Color:       cv.Color,
			ColorCode:   cv.ColorCode,
			Stock:       stock,
			ImageURL:    resolveImage(imageURL, cv),
		})
		return true, nil
	})
}

func resolveImage(explicit string, cv ColorVariant) string {
	if explicit != "" {
		return explicit
	}
	if len(cv.Images) > 0 {
		return cv.Images[0]
	}
	return ""
}

// UpdateQuantity sets the quantity of every line for the product variant.
// Color is not part of the lookup. Each matching line's recorded stock must
// cover the new quantity.
func (e *Engine) UpdateQuantity(ctx context.Context, productID, variantID string, quantity int) error {
	return e.mutate(ctx, opUpdateQuantity, func(s *State) (bool, error) {
		if quantity < 1 {
			return false, newError(ReasonInvalidQuantity, "quantity must be at least 1", map[string]any{"quantity": quantity})
		}

		matched := 0
		for _, item := range s.Items {
			if !item.matches(productID, variantID) {
				continue
			}
			matched++
			if quantity > item.Stock {
				return false, newError(ReasonInsufficientStock,
					fmt.Sprintf("cannot set quantity to %d, only %d available", quantity, item.Stock),
					map[string]any{"requested": quantity, "available": item.Stock})
			}
		}
		if matched == 0 {
			return false, newError(ReasonItemNotFound, "item is not in the cart",
				map[string]any{"product_id": productID, "variant_id": variantID})
		}

		for i := range s.Items {
			if s.Items[i].matches(productID, variantID) {
				s.Items[i].Quantity = quantity
			}
		}
		return true, nil
	})
}

// RemoveItem drops every line for the product variant. Removing an absent
// item is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, productID, variantID string) error {
	return e.mutate(ctx, opRemoveItem, func(s *State) (bool, error) {
		kept := s.Items[:0:0]
		for _, item := range s.Items {
			if !item.matches(productID, variantID) {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(s.Items) {
			return false, nil
		}
		s.Items = kept
		return true, nil
	})
}

// ClearCart empties the line items and the discount ledger. Tax settings are kept.
func (e *Engine) ClearCart(ctx context.Context) error {
	return e.mutate(ctx, opClearCart, func(s *State) (bool, error) {
		s.Items = []LineItem{}
		s.AppliedDiscounts = []AppliedDiscount{}
		return true, nil
	})
}
