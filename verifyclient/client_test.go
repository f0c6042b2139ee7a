package verifyclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/verification/start" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth = %q", got)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["platform"] != "mobile" {
			t.Errorf("platform = %q", body["platform"])
		}
		json.NewEncoder(w).Encode(StartSession{
			ProviderSessionID: "vs_9",
			RedirectURL:       "lendfront://verify?session=vs_9",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1")
	session, err := c.Start(context.Background(), "mobile", "okhttp")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.ProviderSessionID != "vs_9" {
		t.Fatalf("session = %+v", session)
	}
}

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "in_progress"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1")
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != "in_progress" {
		t.Fatalf("status = %q", status)
	}
}

func TestClientErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": 0, "code": 503, "message": "verification is temporarily unavailable, please retry",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Start(context.Background(), "web", "")

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want apiError", err)
	}
	if !apiErr.Retryable() {
		t.Fatalf("503 should be retryable")
	}
	if apiErr.Message != "verification is temporarily unavailable, please retry" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}
