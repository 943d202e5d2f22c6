package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStorage) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cart.ErrStateNotFound
	}
	return v, nil
}

func (m *memStorage) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

type stubDiscounts struct{}

func (stubDiscounts) ValidateDiscount(ctx context.Context, req cart.DiscountRequest) (*cart.DiscountVerdict, error) {
	if req.Code != "SAVE5" {
		return &cart.DiscountVerdict{Valid: false, Reason: "unknown code"}, nil
	}
	return &cart.DiscountVerdict{Valid: true, Discount: &cart.AppliedDiscount{
		ID: "d5", Name: "Five off", Type: "fixed_amount",
		Value: decimal.NewFromInt(5), Amount: decimal.NewFromInt(5), Code: "SAVE5",
	}}, nil
}

type stubTax struct{}

func (stubTax) FetchTaxSettings(ctx context.Context) (*cart.TaxSettings, error) {
	return &cart.TaxSettings{Enabled: true, DefaultRate: decimal.NewFromInt(10)}, nil
}

type stubCatalog struct{}

func (stubCatalog) LookupVariant(ctx context.Context, productID, variantID string) (cart.Product, cart.Variant, error) {
	return cart.Product{ID: productID, Name: "Trail Shoe"}, cart.Variant{
		ID: variantID, Size: "42", Price: decimal.NewFromInt(20), SKU: "TS-42",
		ColorVariants: []cart.ColorVariant{{Color: "red", Stock: 3}},
	}, nil
}

type countingLimiter struct {
	counts map[string]int64
}

func (c *countingLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{
			DiscountWindow: time.Minute,
			DiscountLimit:  2,
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(reg)

	registry, err := cart.NewRegistry(cart.RegistryParams{
		Storage:   &memStorage{data: map[string][]byte{}},
		Discounts: stubDiscounts{},
		Tax:       stubTax{},
		Metrics:   cartMetrics,
		Logger:    logger.Nop(),
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc, err := cart.NewService(registry, stubCatalog{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	return NewRouter(Deps{
		Config:      testConfig(),
		Logger:      logger.Nop(),
		Cart:        svc,
		RateLimiter: &countingLimiter{counts: map[string]int64{}},
		Gatherer:    reg,
		Readiness:   map[string]controllers.Pinger{"redis": stubPinger{}},
	})
}

func do(t *testing.T, h http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if session != "" {
		req.Header.Set("X-Cart-Session", session)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

const addItemBody = `{"product_id": "p1", "variant_id": "v1", "color": "red", "quantity": 2}`

func waitForTax(t *testing.T, h http.Handler, session string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp := do(t, h, http.MethodGet, "/api/v1/cart", session, "")
		if strings.Contains(resp.Body.String(), `"tax_enabled":true`) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("tax settings never loaded for %s", session)
}

func TestRouterHealthRoutes(t *testing.T) {
	h := newTestRouter(t)
	if resp := do(t, h, http.MethodGet, "/health/live", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodGet, "/health/ready", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
}

func TestRouterCartRequiresSession(t *testing.T) {
	h := newTestRouter(t)
	if resp := do(t, h, http.MethodGet, "/api/v1/cart", "", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRouterCartFlow(t *testing.T) {
	h := newTestRouter(t)

	resp := do(t, h, http.MethodPost, "/api/v1/cart/items", "s1", addItemBody)
	if resp.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"subtotal":"40.00"`) {
		t.Fatalf("unexpected add body: %s", resp.Body.String())
	}

	waitForTax(t, h, "s1")

	resp = do(t, h, http.MethodPost, "/api/v1/cart/items", "s1", addItemBody)
	if resp.Code != http.StatusConflict {
		t.Fatalf("over stock: expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "INSUFFICIENT_STOCK") {
		t.Fatalf("expected stock reason: %s", resp.Body.String())
	}

	resp = do(t, h, http.MethodPost, "/api/v1/cart/discounts", "s1", `{"code":"SAVE5"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("discount: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"final_price":"38.50"`) {
		t.Fatalf("unexpected discount body: %s", resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/v1/cart/items/p1/v1/quantity?color=red", "s1", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"quantity":2`) {
		t.Fatalf("quantity: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/v1/cart/checkout", "s1", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"currency":"USD"`) {
		t.Fatalf("checkout: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodGet, "/api/v1/cart", "s2", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"total_items":0`) {
		t.Fatalf("sessions must be isolated: %s", resp.Body.String())
	}

	resp = do(t, h, http.MethodDelete, "/api/v1/cart", "s1", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"total_items":0`) {
		t.Fatalf("clear: %d %s", resp.Code, resp.Body.String())
	}
}

func TestRouterDiscountRateLimited(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/cart/items", "s1", addItemBody)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = do(t, h, http.MethodPost, "/api/v1/cart/discounts", "s1", `{"code":"NOPE"}`)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", last.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/cart/items", "s1", addItemBody)

	resp := do(t, h, http.MethodGet, "/metrics", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "cart_operations_total") {
		t.Fatalf("expected cart metrics in exposition")
	}
}
