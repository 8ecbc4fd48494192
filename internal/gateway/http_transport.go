package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient is the subset of *http.Client used by HTTPTransport
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport queries a verification service exposing GET {base}/verify/{gstin}
type HTTPTransport struct {
	baseURL    string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewHTTPTransport creates a transport for the service at baseURL
func NewHTTPTransport(baseURL string, logger *zap.Logger) *HTTPTransport {
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithHTTPClient swaps the underlying client, mainly for tests
func (t *HTTPTransport) WithHTTPClient(c HTTPClient) *HTTPTransport {
	t.httpClient = c
	return t
}

// Lookup implements Transport
func (t *HTTPTransport) Lookup(ctx context.Context, gstin string) (*LookupResponse, error) {
	endpoint := fmt.Sprintf("%s/verify/%s", t.baseURL, url.PathEscape(gstin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call verification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("verification service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	t.logger.Debug("GSTIN lookup completed",
		zap.String("gstin", gstin),
		zap.Bool("valid", out.Valid),
		zap.String("reason", out.Reason))

	return &out, nil
}
