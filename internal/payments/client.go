package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultClientTimeout = 15 * time.Second

// ClientConfig configures the HTTP checkout client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the payment processor's checkout session endpoints over
// HTTPS. The processor exposes a form-encoded create call and a JSON fetch
// call, both authenticated with a bearer API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a checkout client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("payments: base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("payments: api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// CreateSession opens a checkout session for the booking commitment fee.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	if params.OfferID == "" {
		return nil, errors.New("payments: offer id is required")
	}
	if params.Amount <= 0 {
		return nil, errors.New("payments: amount must be positive")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatFloat(params.Amount, 'f', 2, 64))
	form.Set("currency", strings.ToLower(params.Currency))
	form.Set("description", params.Description)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("metadata["+MetadataOfferID+"]", params.OfferID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// GetSession retrieves an existing checkout session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("payments: session id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Session, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("payments: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payments: processor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("payments: decode session: %w", err)
	}
	if session.ID == "" {
		return nil, errors.New("payments: processor response missing session id")
	}

	return &session, nil
}
