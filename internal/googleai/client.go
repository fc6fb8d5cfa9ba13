// Package googleai wraps the Gemini generateContent endpoint for short
// financial-advice prompts.
package googleai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrTimeout reports that the model did not answer within the client
// timeout.
var ErrTimeout = errors.New("google ai call timeout")

// ErrEmptyResponse reports a well-formed answer carrying no text.
var ErrEmptyResponse = errors.New("google ai response carries no text")

// StatusError carries a non-2xx answer from the model API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google ai status %d: %s", e.StatusCode, e.Body)
}

const systemInstruction = "You are an assistant."

// Client calls the Gemini REST API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// New builds a Client with a 30 second request timeout. Model answers are
// slower than ordinary REST calls.
func New(baseURL, apiKey, model string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

type generateRequest struct {
	SystemInstruction content   `json:"system_instruction"`
	Contents          []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Advice sends the message to the model and returns the generated text.
func (c *Client) Advice(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Parts: []part{{Text: message}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode google ai request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build google ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return "", ErrTimeout
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("call google ai: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read google ai response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode google ai response: %w", err)
	}
	for _, candidate := range parsed.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}
	return "", ErrEmptyResponse
}
