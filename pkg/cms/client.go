package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker/v2"
)

const (
	validateDiscountPath = "discounts/validate"
	taxSettingsPath      = "settings/tax"
	productPathPrefix    = "products/"

	callValidateDiscount = "validate_discount"
	callFetchTaxSettings = "fetch_tax_settings"
	callFetchProduct     = "fetch_product"

	errorBodyReadLimit int64 = 1024

	defaultHTTPTimeout        = 10 * time.Second
	defaultBreakerMaxFailures = 5
	defaultBreakerOpenTimeout = 30 * time.Second
)

var errBaseURLRequired = errors.New("cms base url is required")

// CallObserver receives the latency of every outbound call.
type CallObserver interface {
	ObserveRemoteCall(call string, duration time.Duration)
}

// Client talks to the hosted headless CMS for the catalog, discount validation
// and tax settings.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	validate   *validator.Validate
	logg       *logger.Logger
	observer   CallObserver

	maxFailures uint32
	openTimeout time.Duration
	breaker     *gobreaker.CircuitBreaker[*rawResponse]
}

type rawResponse struct {
	status int
	body   []byte
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIToken sets the bearer token sent with every request.
func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.apiToken = strings.TrimSpace(token)
	}
}

// WithLogger attaches a logger used for breaker state changes.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// WithCallObserver records call latencies.
func WithCallObserver(observer CallObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithBreaker tunes the circuit breaker guarding the CMS.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			c.openTimeout = openTimeout
		}
	}
}

// NewClient builds the CMS client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:     trimmed,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		validate:    validator.New(),
		maxFailures: defaultBreakerMaxFailures,
		openTimeout: defaultBreakerOpenTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	client.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        "cms",
		MaxRequests: 1,
		Timeout:     client.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= client.maxFailures
		},
		OnStateChange: client.onStateChange,
	})

	return client, nil
}

// ValidateDiscount asks the CMS whether a code applies to the described cart.
func (c *Client) ValidateDiscount(ctx context.Context, req ValidateDiscountRequest) (*ValidateDiscountResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cms client not configured")
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	if req.Items == nil {
		req.Items = []DiscountLine{}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal discount validation request")
	}

	raw, err := c.do(ctx, callValidateDiscount, http.MethodPost, validateDiscountPath, payload)
	if err != nil {
		return nil, err
	}
	if raw.status != http.StatusOK {
		return nil, statusError(raw, "discount validation request failed")
	}

	var resp ValidateDiscountResponse
	if err := json.Unmarshal(raw.body, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode discount validation response")
	}
	if err := c.validate.Struct(resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid discount validation response")
	}
	return &resp, nil
}

// FetchTaxSettings returns the store tax configuration, or nil when none is configured.
func (c *Client) FetchTaxSettings(ctx context.Context) (*TaxSettings, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cms client not configured")
	}

	raw, err := c.do(ctx, callFetchTaxSettings, http.MethodGet, taxSettingsPath, nil)
	if err != nil {
		return nil, err
	}
	switch raw.status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, nil
	default:
		return nil, statusError(raw, "tax settings request failed")
	}

	body := bytes.TrimSpace(raw.body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var settings TaxSettings
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tax settings response")
	}
	if err := c.validate.Struct(settings); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid tax settings response")
	}
	return &settings, nil
}

// FetchProduct returns the catalog entry with current prices and stock.
func (c *Client) FetchProduct(ctx context.Context, productID string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cms client not configured")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	raw, err := c.do(ctx, callFetchProduct, http.MethodGet, productPathPrefix+url.PathEscape(productID), nil)
	if err != nil {
		return nil, err
	}
	switch raw.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	default:
		return nil, statusError(raw, "product request failed")
	}

	var product Product
	if err := json.Unmarshal(raw.body, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product response")
	}
	if err := c.validate.Struct(product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid product response")
	}
	return &product, nil
}

// do executes the request through the breaker. Transport failures and 5xx
// responses count against the breaker; other statuses are returned to the caller.
func (c *Client) do(ctx context.Context, call, method, path string, payload []byte) (*rawResponse, error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRemoteCall(call, time.Since(start))
		}
	}()

	raw, err := c.breaker.Execute(func() (*rawResponse, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Accept", "application/json")
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		if c.apiToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		raw := &rawResponse{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, statusError(raw, fmt.Sprintf("%s upstream error", call))
		}
		return raw, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cms circuit open")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", call))
	}
	return raw, nil
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	if c.logg == nil {
		return
	}
	ctx := c.logg.WithFields(context.Background(), map[string]any{
		"breaker": name,
		"from":    from.String(),
		"to":      to.String(),
	})
	c.logg.Warn(ctx, "cms circuit breaker state changed")
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func statusError(raw *rawResponse, msg string) error {
	body := raw.body
	if int64(len(body)) > errorBodyReadLimit {
		body = body[:errorBodyReadLimit]
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", raw.status, strings.TrimSpace(string(body))), msg)
}
