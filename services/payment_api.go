package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ConfigFetcher reads the client config from the checkout server.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context) (*models.CheckoutConfig, error)
}

// PaymentIntentCreator asks the checkout server for a payment intent and invoice.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, req models.PaymentRequest) (*models.PaymentResponse, error)
}

// PaymentAPI is everything the checkout page needs from its server.
type PaymentAPI interface {
	ConfigFetcher
	PaymentIntentCreator
}

// PaymentAPIClient talks to the checkout server over HTTP.
type PaymentAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPaymentAPIClient creates a client for the checkout server at baseURL.
func NewPaymentAPIClient(baseURL string, timeout time.Duration) *PaymentAPIClient {
	return &PaymentAPIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// FetchConfig calls GET /config.
func (c *PaymentAPIClient) FetchConfig(ctx context.Context) (*models.CheckoutConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/config", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config request failed: %w", err)
	}
	defer resp.Body.Close()

	var cfg models.CheckoutConfig
	if err := decodeBody(resp, &cfg); err != nil {
		return nil, fmt.Errorf("config response: %w", err)
	}
	return &cfg, nil
}

// CreatePaymentIntent calls POST /create-payment-intent. The status code is
// ignored; an error payload comes back as a response with Error set.
func (c *PaymentAPIClient) CreatePaymentIntent(ctx context.Context, payload models.PaymentRequest) (*models.PaymentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-payment-intent", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create-payment-intent request failed: %w", err)
	}
	defer resp.Body.Close()

	var out models.PaymentResponse
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("create-payment-intent response: %w", err)
	}
	return &out, nil
}

func decodeBody(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unexpected body (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
