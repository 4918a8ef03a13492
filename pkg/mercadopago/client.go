package mercadopago

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

	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBaseURL          = "https://api.mercadopago.com"
	defaultMaxRetries       = 3
	retryBaseDelay          = 250 * time.Millisecond
	responseReadLimit int64 = 4096
)

var errTokenProviderRequired = errors.New("mercado pago token provider is required")

// TokenProvider resolves the access token for each call so admin-managed
// credentials take effect without a restart.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider backed by a fixed string.
type StaticToken string

func (t StaticToken) AccessToken(ctx context.Context) (string, error) {
	if t == "" {
		return "", errors.New("mercado pago access token is empty")
	}
	return string(t), nil
}

// Client wraps the Mercado Pago preferences and payments APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
	maxRetries uint64
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

// WithBaseURL overrides the Mercado Pago base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithMaxRetries sets how many times transient failures are retried.
func WithMaxRetries(attempts int) Option {
	return func(c *Client) {
		if attempts >= 0 {
			c.maxRetries = uint64(attempts)
		}
	}
}

// NewClient builds the Mercado Pago client.
func NewClient(tokens TokenProvider, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errTokenProviderRequired
	}

	client := &Client{
		tokens:     tokens,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CreatePreference creates a checkout preference. The idempotencyKey is
// forwarded so provider-side retries never create duplicate preferences.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest, idempotencyKey string) (*Preference, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}
	if strings.TrimSpace(req.ExternalReference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal preference request")
	}

	headers := http.Header{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		headers.Set("X-Idempotency-Key", key)
	}

	var pref Preference
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/preferences", payload, headers, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

// GetPayment fetches the payment record referenced by a webhook notification.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment ID is required")
	}

	path := fmt.Sprintf("/v1/payments/%s", url.PathEscape(trimmed))
	var payment Payment
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// doJSON performs one authorized request with retries on transient failures.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, headers http.Header, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve mercado pago credentials")
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(retryBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mercado pago request")
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		for key, values := range headers {
			for _, value := range values {
				httpReq.Header.Set(key, value)
			}
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mercado pago request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusInternalServerError {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
			failure := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "mercado pago request failed")
			return retry.RetryableError(failure)
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
			return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "mercado pago request rejected")
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mercado pago response")
		}
		return nil
	})
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = "/" + strings.TrimLeft(path, "/")
	return trimmed + path
}
