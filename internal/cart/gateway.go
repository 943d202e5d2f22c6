package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-cart/pkg/cms"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

type cmsDiscounts interface {
	ValidateDiscount(ctx context.Context, req cms.ValidateDiscountRequest) (*cms.ValidateDiscountResponse, error)
}

// CMSGateway adapts the CMS client to DiscountValidator and TaxSettingsSource.
type CMSGateway struct {
	discounts cmsDiscounts
	tax       cms.TaxSettingsFetcher
}

// NewCMSGateway builds the adapter. tax is usually a *cms.TaxSettingsCache.
func NewCMSGateway(discounts cmsDiscounts, tax cms.TaxSettingsFetcher) (*CMSGateway, error) {
	if discounts == nil {
		return nil, fmt.Errorf("cms discount client required")
	}
	if tax == nil {
		return nil, fmt.Errorf("cms tax settings source required")
	}
	return &CMSGateway{discounts: discounts, tax: tax}, nil
}

// ValidateDiscount forwards the cart to the CMS discount endpoint.
func (g *CMSGateway) ValidateDiscount(ctx context.Context, req DiscountRequest) (*DiscountVerdict, error) {
	lines := make([]cms.DiscountLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, cms.DiscountLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Color:     item.Color,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	resp, err := g.discounts.ValidateDiscount(ctx, cms.ValidateDiscountRequest{
		Code:       req.Code,
		CustomerID: req.CustomerID,
		Items:      lines,
		Subtotal:   req.Subtotal,
	})
	if err != nil {
		return nil, err
	}

	verdict := &DiscountVerdict{Valid: resp.Valid, Reason: resp.Reason}
	if !resp.Valid || resp.Discount == nil {
		return verdict, nil
	}

	discountType, err := enums.ParseDiscountType(resp.Discount.Type)
	if err != nil {
		return nil, fmt.Errorf("cms discount %s: %w", resp.Discount.ID, err)
	}
	verdict.Discount = &AppliedDiscount{
		ID:     resp.Discount.ID,
		Name:   resp.Discount.Name,
		Type:   discountType,
		Value:  resp.Discount.Value,
		Amount: resp.Discount.Amount,
		Code:   resp.Discount.Code,
	}
	return verdict, nil
}

// FetchTaxSettings converts the CMS tax settings; nil stays nil.
func (g *CMSGateway) FetchTaxSettings(ctx context.Context) (*TaxSettings, error) {
	settings, err := g.tax.FetchTaxSettings(ctx)
	if err != nil || settings == nil {
		return nil, err
	}

	rules := make([]TaxRule, 0, len(settings.TaxRules))
	for _, rule := range settings.TaxRules {
		rules = append(rules, TaxRule{
			Name:      rule.Name,
			Rate:      rule.Rate,
			Regions:   append([]string(nil), rule.Regions...),
			IsDefault: rule.IsDefault,
		})
	}
	return &TaxSettings{
		Enabled:          settings.Enabled,
		DefaultRate:      settings.DefaultRate,
		TaxRules:         rules,
		ExemptCategories: append([]string(nil), settings.ExemptCategories...),
		ExemptProducts:   append([]string(nil), settings.ExemptProducts...),
		TaxIncluded:      settings.TaxIncluded,
		DisplayTaxes:     settings.DisplayTaxes,
	}, nil
}

type cmsProducts interface {
	FetchProduct(ctx context.Context, productID string) (*cms.Product, error)
}

// CMSCatalog resolves cart additions against the CMS product catalog.
type CMSCatalog struct {
	products cmsProducts
}

// NewCMSCatalog builds the catalog adapter.
func NewCMSCatalog(products cmsProducts) (*CMSCatalog, error) {
	if products == nil {
		return nil, fmt.Errorf("cms product client required")
	}
	return &CMSCatalog{products: products}, nil
}

// LookupVariant fetches the product and picks the requested variant.
func (c *CMSCatalog) LookupVariant(ctx context.Context, productID, variantID string) (Product, Variant, error) {
	product, err := c.products.FetchProduct(ctx, productID)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return Product{}, Variant{}, productNotFound(productID, variantID)
	}
	if err != nil {
		return Product{}, Variant{}, err
	}

	for _, v := range product.Variants {
		if v.ID != variantID {
			continue
		}
		if v.Price.IsNegative() {
			return Product{}, Variant{}, pkgerrors.New(pkgerrors.CodeDependency, "catalog returned a negative price").
				WithDetails(map[string]any{"product_id": productID, "variant_id": variantID})
		}
		colors := make([]ColorVariant, 0, len(v.ColorVariants))
		for _, cv := range v.ColorVariants {
			colors = append(colors, ColorVariant{
				Color:     cv.Color,
				ColorCode: cv.ColorCode,
				Stock:     cv.Stock,
				Images:    append([]string(nil), cv.Images...),
			})
		}
		return Product{ID: product.ID, Name: product.Name}, Variant{
			ID:            v.ID,
			Size:          v.Size,
			Price:         v.Price,
			SKU:           v.SKU,
			ColorVariants: colors,
		}, nil
	}
	return Product{}, Variant{}, productNotFound(productID, variantID)
}

func productNotFound(productID, variantID string) *pkgerrors.Error {
	return newError(ReasonProductNotFound, "product variant is not in the catalog",
		map[string]any{"product_id": productID, "variant_id": variantID})
}
