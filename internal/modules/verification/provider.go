package verification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderSession is the provider's view of a verification session.
type ProviderSession struct {
	ID              string
	VerificationURL string
	Status          Status
}

// ProviderClient wraps the external identity-verification API.
type ProviderClient interface {
	CreateSession(ctx context.Context, userID, platform, userAgent, callbackURL string) (*ProviderSession, error)
	FetchSession(ctx context.Context, providerSessionID string) (*ProviderSession, error)
}

// HTTPProviderClient talks to the provider's REST API.
type HTTPProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPProviderClient(baseURL, apiKey string, timeout time.Duration) *HTTPProviderClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProviderClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type providerSessionPayload struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

type providerErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *HTTPProviderClient) CreateSession(ctx context.Context, userID, platform, userAgent, callbackURL string) (*ProviderSession, error) {
	body, err := json.Marshal(map[string]string{
		"userId":      userID,
		"platform":    platform,
		"userAgent":   userAgent,
		"callbackUrl": callbackURL,
	})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
}

func (c *HTTPProviderClient) FetchSession(ctx context.Context, providerSessionID string) (*ProviderSession, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/v1/sessions/"+providerSessionID, nil)
}

func (c *HTTPProviderClient) do(ctx context.Context, method, url string, body io.Reader) (*ProviderSession, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Unavailable: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Unavailable: true, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &ProviderError{Unavailable: true, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: providerMessage(data, resp.Status)}
	}

	var payload providerSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	session := &ProviderSession{ID: payload.ID, VerificationURL: payload.URL}
	if payload.Status != "" {
		status, ok := ParseStatus(payload.Status)
		if !ok {
			return nil, fmt.Errorf("provider returned unknown status %q", payload.Status)
		}
		session.Status = status
	}
	return session, nil
}

func providerMessage(data []byte, fallback string) string {
	var payload providerErrorPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

const signaturePrefix = "sha256="

// VerifySignature checks an HMAC-SHA256 hex signature over the raw request
// body. The body must be the exact bytes received on the wire: re-serializing
// a parsed payload can change byte-for-byte content and break verification.
func VerifySignature(rawBody []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	sig = strings.TrimPrefix(sig, signaturePrefix)
	if sig == "" || secret == "" {
		return false
	}
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return hmac.Equal(provided, mac.Sum(nil))
}

// SignPayload computes the signature the provider would send; used by tests
// and local webhook tooling.
func SignPayload(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
