package cart

import (
	"context"
	"fmt"
)

type sessionSource interface {
	Get(ctx context.Context, sessionID string) (*Engine, error)
}

// Service exposes cart operations addressed by shopper session.
type Service interface {
	Summary(ctx context.Context, sessionID string) (*Summary, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*Summary, error)
	UpdateQuantity(ctx context.Context, sessionID, productID, variantID string, quantity int) (*Summary, error)
	RemoveItem(ctx context.Context, sessionID, productID, variantID string) (*Summary, error)
	ClearCart(ctx context.Context, sessionID string) (*Summary, error)
	ItemQuantity(ctx context.Context, sessionID, productID, variantID, color string) (int, error)
	ApplyDiscount(ctx context.Context, sessionID, code, customerID string) (*Summary, error)
	RemoveDiscount(ctx context.Context, sessionID, discountID string) (*Summary, error)
	Checkout(ctx context.Context, sessionID string) (*OrderDraft, error)
}

// AddItemInput identifies what the shopper wants to add. Name, price and
// stock come from the catalog.
type AddItemInput struct {
	ProductID string
	VariantID string
	Color     string
	Quantity  int
	ImageURL  string
}

type service struct {
	sessions sessionSource
	catalog  Catalog
}

// NewService builds a cart service backed by the session registry and catalog.
func NewService(sessions sessionSource, catalog Catalog) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &service{sessions: sessions, catalog: catalog}, nil
}

func (s *service) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	engine, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := engine.Summary()
	return &summary, nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*Summary, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		product, variant, err := s.catalog.LookupVariant(ctx, input.ProductID, input.VariantID)
		if err != nil {
			return err
		}
		return e.AddItem(ctx, product, variant, input.Color, input.Quantity, input.ImageURL)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID, productID, variantID string, quantity int) (*Summary, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		return e.UpdateQuantity(ctx, productID, variantID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID, productID, variantID string) (*Summary, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		return e.RemoveItem(ctx, productID, variantID)
	})
}

func (s *service) ClearCart(ctx context.Context, sessionID string) (*Summary, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		return e.ClearCart(ctx)
	})
}

func (s *service) ItemQuantity(ctx context.Context, sessionID, productID, variantID, color string) (int, error) {
	engine, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return engine.ItemQuantity(productID, variantID, color), nil
}

func (s *service) ApplyDiscount(ctx context.Context, sessionID, code, customerID string) (*Summary, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		_, err := e.ApplyDiscount(ctx, code, customerID)
		return err
	})
}

func (s *service) RemoveDiscount(ctx context.Context, sessionID, discountID string) (*Summary, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		return e.RemoveDiscount(ctx, discountID)
	})
}

func (s *service) Checkout(ctx context.Context, sessionID string) (*OrderDraft, error) {
	engine, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return engine.Checkout(ctx)
}

func (s *service) mutate(ctx context.Context, sessionID string, fn func(e *Engine) error) (*Summary, error) {
	engine, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(engine); err != nil {
		return nil, err
	}
	summary := engine.Summary()
	return &summary, nil
}
