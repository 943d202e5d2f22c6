package cart

import (
	"github.com/shopspring/decimal"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/internal/cart"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newCartSummary(summary *cart.Summary) cartdto.CartSummary {
	return cartdto.CartSummary{
		Items:            newLineItems(summary.Items),
		AppliedDiscounts: newAppliedDiscounts(summary.AppliedDiscounts),
		TotalItems:       summary.TotalItems,
		Subtotal:         money(summary.Subtotal),
		DiscountTotal:    money(summary.DiscountTotal),
		TaxableAmount:    money(summary.TaxableAmount),
		TaxAmount:        money(summary.TaxAmount),
		FinalPrice:       money(summary.FinalPrice),
		TaxEnabled:       summary.TaxEnabled,
		TaxIncluded:      summary.TaxIncluded,
		DisplayTaxes:     summary.DisplayTaxes,
		Hydrated:         summary.Hydrated,
	}
}

func newLineItems(items []cart.LineItem) []cartdto.LineItem {
	out := make([]cartdto.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, cartdto.LineItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Size:        item.Size,
			UnitPrice:   money(item.UnitPrice),
			LineTotal:   money(item.Total()),
			SKU:         item.SKU,
			Color:       item.Color,
			ColorCode:   item.ColorCode,
			Stock:       item.Stock,
			ImageURL:    item.ImageURL,
		})
	}
	return out
}

func newAppliedDiscounts(discounts []cart.AppliedDiscount) []cartdto.AppliedDiscount {
	out := make([]cartdto.AppliedDiscount, 0, len(discounts))
	for _, d := range discounts {
		out = append(out, cartdto.AppliedDiscount{
			ID:     d.ID,
			Name:   d.Name,
			Type:   string(d.Type),
			Value:  d.Value.String(),
			Amount: money(d.Amount),
			Code:   d.Code,
		})
	}
	return out
}

func newOrderDraft(draft *cart.OrderDraft) cartdto.OrderDraft {
	return cartdto.OrderDraft{
		Items:         newLineItems(draft.Items),
		Discounts:     newAppliedDiscounts(draft.Discounts),
		Subtotal:      money(draft.Subtotal),
		DiscountTotal: money(draft.DiscountTotal),
		TaxAmount:     money(draft.TaxAmount),
		FinalPrice:    money(draft.FinalPrice),
		TaxIncluded:   draft.TaxIncluded,
		Currency:      string(draft.Currency),
		CreatedAt:     draft.CreatedAt,
	}
}
