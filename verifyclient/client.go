// Package verifyclient drives the identity-verification flow from the
// portal client side: it starts a session, hands the user off to the
// provider (deep link on mobile, hosted page on web) and polls the portal
// until the session reaches a terminal status.
package verifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API is the portal surface the orchestrator talks to.
type API interface {
	Start(ctx context.Context, platform, userAgent string) (*StartSession, error)
	Status(ctx context.Context) (string, error)
}

// StartSession is the portal's answer to a start request.
type StartSession struct {
	ProviderSessionID string `json:"providerSessionId"`
	RedirectURL       string `json:"redirectUrl"`
}

// Client is an HTTP implementation of API against the portal endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("portal api error %d: %s", e.Code, e.Message)
}

// Retryable reports whether the caller may retry the request as-is.
func (e *apiError) Retryable() bool {
	return e.Code == http.StatusServiceUnavailable || e.Code >= 500
}

func (c *Client) Start(ctx context.Context, platform, userAgent string) (*StartSession, error) {
	body, err := json.Marshal(map[string]string{
		"platform":  platform,
		"userAgent": userAgent,
	})
	if err != nil {
		return nil, err
	}

	var out StartSession
	if err := c.do(ctx, http.MethodPost, "/api/v1/verification/start", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/verification/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Code: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
