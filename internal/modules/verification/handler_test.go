package verification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, provider *fakeProvider) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, st := newTestService(t, provider)
	r := gin.New()
	NewHandler(svc, nil).RegisterRoutes(r.Group("/api/v1"))
	return r, st
}

func TestStartEndpointValidatesPlatform(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/start",
		bytes.NewBufferString(`{"userId":"u1","platform":"desktop"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestStartEndpointReturnsRedirect(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/start",
		bytes.NewBufferString(`{"userId":"u1","platform":"mobile"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		ProviderSessionID string `json:"providerSessionId"`
		RedirectURL       string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ProviderSessionID == "" || body.RedirectURL == "" {
		t.Fatalf("incomplete response: %s", w.Body.String())
	}
}

func TestStartEndpointUnavailableProvider(t *testing.T) {
	r, _ := newTestRouter(t, &fakeProvider{
		createErrs: []error{
			&ProviderError{Unavailable: true, StatusCode: 503},
			&ProviderError{Unavailable: true, StatusCode: 503},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/start",
		bytes.NewBufferString(`{"userId":"u1","platform":"web"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	r, st := newTestRouter(t, &fakeProvider{})
	seedSession(t, st, "u1", "vs_1", StatusApproved)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verification/status?userId=u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != `{"status":"approved"}` {
		t.Fatalf("body = %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/verification/status?userId=nobody", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != `{"status":"not_started"}` {
		t.Fatalf("body = %s, want not_started", w.Body.String())
	}
}

func TestWebhookEndpointSignature(t *testing.T) {
	r, st := newTestRouter(t, &fakeProvider{})
	seedSession(t, st, "u1", "vs_1", StatusPending)

	body := webhookBody("vs_1", StatusApproved)

	// Bad signature: rejected, nothing applied.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", SignPayload(body, "not-the-secret"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d, want 401", w.Code)
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusPending {
		t.Fatalf("bad signature mutated status to %s", got)
	}

	// Valid signature: applied.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/verification/webhook", bytes.NewReader(body))
	req.Header.Set("X-Signature", "sha256="+SignPayload(body, "test-secret"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid signature status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusApproved {
		t.Fatalf("status = %s, want APPROVED", got)
	}
}
