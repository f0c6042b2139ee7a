package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeProvider scripts provider responses per call.
type fakeProvider struct {
	createErrs  []error
	createCalls int
	fetchStatus Status
	fetchErr    error
	fetchCalls  int
}

func (f *fakeProvider) CreateSession(ctx context.Context, userID, platform, userAgent, callbackURL string) (*ProviderSession, error) {
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &ProviderSession{
		ID:              fmt.Sprintf("vs_%s_%d", userID, f.createCalls),
		VerificationURL: "https://verify.example.com/s/" + userID,
	}, nil
}

func (f *fakeProvider) FetchSession(ctx context.Context, providerSessionID string) (*ProviderSession, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &ProviderSession{ID: providerSessionID, Status: f.fetchStatus}, nil
}

func newTestService(t *testing.T, provider *fakeProvider) (*Service, *Store) {
	t.Helper()
	st := NewStore(newTestDB(t))
	svc := NewService(st, provider, Config{
		CallbackURL:    "https://portal.example.com/api/v1/verification/webhook",
		WebhookSecret:  "test-secret",
		DeepLinkScheme: "lendfront",
	}, zap.NewNop())
	return svc, st
}

func TestStartVerificationWeb(t *testing.T) {
	provider := &fakeProvider{}
	svc, st := newTestService(t, provider)

	res, err := svc.StartVerification(context.Background(), "u1", "web", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("StartVerification: %v", err)
	}
	if res.RedirectURL != "https://verify.example.com/s/u1" {
		t.Fatalf("web redirect = %q, want hosted verification url", res.RedirectURL)
	}
	if got := sessionStatus(t, st, res.ProviderSessionID); got != StatusCreated {
		t.Fatalf("persisted status = %s, want CREATED", got)
	}
}

func TestStartVerificationMobileRedirect(t *testing.T) {
	provider := &fakeProvider{}
	svc, _ := newTestService(t, provider)

	res, err := svc.StartVerification(context.Background(), "u1", "mobile", "okhttp/4.9")
	if err != nil {
		t.Fatalf("StartVerification: %v", err)
	}
	want := "lendfront://verify?session=" + res.ProviderSessionID
	if res.RedirectURL != want {
		t.Fatalf("mobile redirect = %q, want %q", res.RedirectURL, want)
	}
}

func TestStartVerificationResumesActiveSession(t *testing.T) {
	provider := &fakeProvider{}
	svc, _ := newTestService(t, provider)

	first, err := svc.StartVerification(context.Background(), "u1", "web", "ua")
	if err != nil {
		t.Fatalf("first start: %v", err)
	}

	// A second start on another platform resumes the same session with the
	// redirect recomputed; the provider is not called again.
	second, err := svc.StartVerification(context.Background(), "u1", "mobile", "ua")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.ProviderSessionID != first.ProviderSessionID {
		t.Fatalf("second start created a new session: %s vs %s",
			second.ProviderSessionID, first.ProviderSessionID)
	}
	if !strings.HasPrefix(second.RedirectURL, "lendfront://") {
		t.Fatalf("resumed mobile redirect = %q, want deep link", second.RedirectURL)
	}
	if provider.createCalls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.createCalls)
	}
}

func TestStartVerificationNewSessionAfterTerminal(t *testing.T) {
	provider := &fakeProvider{}
	svc, st := newTestService(t, provider)
	seedSession(t, st, "u1", "vs_done", StatusDeclined)

	res, err := svc.StartVerification(context.Background(), "u1", "web", "ua")
	if err != nil {
		t.Fatalf("StartVerification: %v", err)
	}
	if res.ProviderSessionID == "vs_done" {
		t.Fatalf("terminal session must not be resumed")
	}
	if provider.createCalls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.createCalls)
	}
}

func TestStartVerificationRetriesOnce(t *testing.T) {
	provider := &fakeProvider{
		createErrs: []error{&ProviderError{Unavailable: true, StatusCode: 503}},
	}
	svc, _ := newTestService(t, provider)

	if _, err := svc.StartVerification(context.Background(), "u1", "web", "ua"); err != nil {
		t.Fatalf("StartVerification: %v", err)
	}
	if provider.createCalls != 2 {
		t.Fatalf("provider called %d times, want 2 (one retry)", provider.createCalls)
	}
}

func TestStartVerificationGivesUpAfterRetry(t *testing.T) {
	provider := &fakeProvider{
		createErrs: []error{
			&ProviderError{Unavailable: true, StatusCode: 503},
			&ProviderError{Unavailable: true, StatusCode: 503},
		},
	}
	svc, _ := newTestService(t, provider)

	_, err := svc.StartVerification(context.Background(), "u1", "web", "ua")
	if !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("err = %v, want ErrVerificationUnavailable", err)
	}
	if provider.createCalls != 2 {
		t.Fatalf("provider called %d times, want 2", provider.createCalls)
	}
}

func TestStartVerificationRejectionNotRetried(t *testing.T) {
	rejection := &ProviderError{StatusCode: 422, Message: "user already verified elsewhere"}
	provider := &fakeProvider{createErrs: []error{rejection}}
	svc, _ := newTestService(t, provider)

	_, err := svc.StartVerification(context.Background(), "u1", "web", "ua")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Unavailable {
		t.Fatalf("err = %v, want provider rejection", err)
	}
	if pe.Message != rejection.Message {
		t.Fatalf("rejection message %q not preserved", pe.Message)
	}
	if provider.createCalls != 1 {
		t.Fatalf("provider called %d times, want 1 (no retry on rejection)", provider.createCalls)
	}
}

func TestGetStatusNotStarted(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})

	status, err := svc.GetStatus(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != StatusNotStarted {
		t.Fatalf("status = %s, want NOT_STARTED", status)
	}
}

func TestGetStatusTerminalSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	svc, st := newTestService(t, provider)
	seedSession(t, st, "u1", "vs_1", StatusApproved)

	status, err := svc.GetStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != StatusApproved {
		t.Fatalf("status = %s, want APPROVED", status)
	}
	if provider.fetchCalls != 0 {
		t.Fatalf("provider fetched %d times for a terminal session, want 0", provider.fetchCalls)
	}
}

func TestGetStatusPullsAndPersists(t *testing.T) {
	provider := &fakeProvider{fetchStatus: StatusInProgress}
	svc, st := newTestService(t, provider)
	seedSession(t, st, "u1", "vs_1", StatusCreated)

	status, err := svc.GetStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", status)
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusInProgress {
		t.Fatalf("persisted status = %s, want IN_PROGRESS", got)
	}
}

func TestGetStatusProviderDownReturnsStored(t *testing.T) {
	provider := &fakeProvider{fetchErr: &ProviderError{Unavailable: true, StatusCode: 503}}
	svc, st := newTestService(t, provider)
	seedSession(t, st, "u1", "vs_1", StatusPending)

	status, err := svc.GetStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != StatusPending {
		t.Fatalf("status = %s, want stored PENDING", status)
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusPending {
		t.Fatalf("persisted status changed to %s", got)
	}
}

func webhookBody(providerSessionID string, status Status) []byte {
	return []byte(fmt.Sprintf(`{"providerSessionId":%q,"status":%q}`, providerSessionID, status.Wire()))
}

func TestApplyWebhookRejectsBadSignature(t *testing.T) {
	svc, st := newTestService(t, &fakeProvider{})
	seedSession(t, st, "u1", "vs_1", StatusPending)

	body := webhookBody("vs_1", StatusApproved)
	err := svc.ApplyWebhook(body, SignPayload(body, "wrong-secret"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusPending {
		t.Fatalf("bad signature mutated status to %s", got)
	}
}

func TestApplyWebhookAppliesStatus(t *testing.T) {
	svc, st := newTestService(t, &fakeProvider{})
	seedSession(t, st, "u1", "vs_1", StatusPending)

	body := webhookBody("vs_1", StatusApproved)
	if err := svc.ApplyWebhook(body, "sha256="+SignPayload(body, "test-secret")); err != nil {
		t.Fatalf("ApplyWebhook: %v", err)
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusApproved {
		t.Fatalf("status = %s, want APPROVED", got)
	}
}

func TestApplyWebhookUnknownSessionDiscarded(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{})

	body := webhookBody("vs_never_seen", StatusApproved)
	if err := svc.ApplyWebhook(body, SignPayload(body, "test-secret")); err != nil {
		t.Fatalf("unknown session should be discarded quietly, got %v", err)
	}
}

func TestApplyWebhookStaleDeliveryIgnored(t *testing.T) {
	svc, st := newTestService(t, &fakeProvider{})
	seedSession(t, st, "u1", "vs_1", StatusApproved)

	body := webhookBody("vs_1", StatusPending)
	if err := svc.ApplyWebhook(body, SignPayload(body, "test-secret")); err != nil {
		t.Fatalf("stale delivery should not error, got %v", err)
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusApproved {
		t.Fatalf("stale delivery downgraded status to %s", got)
	}
}

func TestApplyWebhookMalformedPayload(t *testing.T) {
	svc, st := newTestService(t, &fakeProvider{})
	seedSession(t, st, "u1", "vs_1", StatusPending)

	for _, body := range [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"providerSessionId":"vs_1","status":"SOMETHING_NEW"}`),
		[]byte(`{"status":"approved"}`),
	} {
		if err := svc.ApplyWebhook(body, SignPayload(body, "test-secret")); err != nil {
			t.Fatalf("malformed payload %q should be dropped without error, got %v", body, err)
		}
	}
	if got := sessionStatus(t, st, "vs_1"); got != StatusPending {
		t.Fatalf("malformed payload mutated status to %s", got)
	}
}
