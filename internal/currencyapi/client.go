// Package currencyapi wraps the freecurrencyapi.com rate endpoint.
package currencyapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTimeout reports that the rate API did not answer within the client
// timeout.
var ErrTimeout = errors.New("currency api call timeout")

// StatusError carries a non-2xx answer from the rate API so the endpoint
// layer can propagate the upstream status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("currency api status %d: %s", e.StatusCode, e.Body)
}

// Client fetches exchange rates. The free tier only serves rates relative
// to USD, so every response is a USD-based table.
type Client struct {
	http   *http.Client
	url    string
	apiKey string
}

// New builds a Client with a 10 second request timeout.
func New(rateURL, apiKey string) *Client {
	return &Client{
		http:   &http.Client{Timeout: 10 * time.Second},
		url:    rateURL,
		apiKey: apiKey,
	}
}

type ratesResponse struct {
	Data map[string]float64 `json:"data"`
}

// Rates returns the USD-based exchange rates for the given currency
// codes.
func (c *Client) Rates(ctx context.Context, currencies []string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Set("apikey", c.apiKey)
	q.Set("currencies", strings.Join(currencies, ","))
	req.URL.RawQuery = q.Encode()

	res, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, ErrTimeout
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("call currency api: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read currency api response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode currency api response: %w", err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("currency api response missing data")
	}
	return parsed.Data, nil
}
