package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lendfront/portal-core/internal/models"
	"go.uber.org/zap"
)

// Config holds the reconciler tunables sourced from the app config.
type Config struct {
	// CallbackURL is where the provider pushes signed webhooks.
	CallbackURL string
	// WebhookSecret is the shared HMAC secret for inbound webhooks.
	WebhookSecret string
	// DeepLinkScheme is the custom URI scheme for the mobile redirect target.
	DeepLinkScheme string
}

// Service is the session reconciler: the only writer of verification session
// records. It is stateless across requests; write ordering is guaranteed by
// the store's conditional update, not by locks.
type Service struct {
	store    *Store
	provider ProviderClient
	cfg      Config
	logger   *zap.Logger
}

func NewService(store *Store, provider ProviderClient, cfg Config, logger *zap.Logger) *Service {
	if cfg.DeepLinkScheme == "" {
		cfg.DeepLinkScheme = "lendfront"
	}
	return &Service{store: store, provider: provider, cfg: cfg, logger: logger}
}

// StartResult is returned to the client orchestrator after a start request.
type StartResult struct {
	ProviderSessionID string
	RedirectURL       string
}

// StartVerification begins (or resumes) verification for a user. A user with
// an existing non-terminal session gets that session back with the redirect
// target recomputed for the current platform; the provider is not called.
func (s *Service) StartVerification(ctx context.Context, userID, platform, userAgent string) (*StartResult, error) {
	platform = normalizePlatform(platform)

	latest, err := s.store.Latest(userID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !Status(latest.Status).Terminal() {
		return &StartResult{
			ProviderSessionID: latest.ProviderSessionID,
			RedirectURL:       s.redirectTarget(platform, latest.ProviderSessionID, latest.VerificationURL),
		}, nil
	}

	ps, err := s.createWithRetry(ctx, userID, platform, userAgent)
	if err != nil {
		return nil, err
	}

	record := &models.VerificationSessionModel{
		UserID:            userID,
		ProviderSessionID: ps.ID,
		Status:            string(StatusCreated),
		Platform:          platform,
		UserAgent:         userAgent,
		VerificationURL:   ps.VerificationURL,
	}
	if err := s.store.Insert(record); err != nil {
		return nil, err
	}

	s.logger.Info("verification session created",
		zap.String("user_id", userID),
		zap.String("provider_session_id", ps.ID),
		zap.String("platform", platform),
	)
	return &StartResult{
		ProviderSessionID: ps.ID,
		RedirectURL:       s.redirectTarget(platform, ps.ID, ps.VerificationURL),
	}, nil
}

// createWithRetry performs at most one immediate retry on a retryable
// provider failure. The caller already retries on user action, so anything
// beyond a single retry here only adds latency.
func (s *Service) createWithRetry(ctx context.Context, userID, platform, userAgent string) (*ProviderSession, error) {
	ps, err := s.provider.CreateSession(ctx, userID, platform, userAgent, s.cfg.CallbackURL)
	if err == nil {
		return ps, nil
	}
	if !IsProviderUnavailable(err) {
		return nil, err
	}

	s.logger.Warn("provider create failed, retrying once", zap.String("user_id", userID), zap.Error(err))
	ps, err = s.provider.CreateSession(ctx, userID, platform, userAgent, s.cfg.CallbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return ps, nil
}

// GetStatus resolves the current authoritative status for a user. Terminal
// statuses are returned from the store directly; non-terminal statuses are
// refreshed from the provider (pull-on-read), so staleness is bounded by the
// caller's polling cadence rather than a background job.
func (s *Service) GetStatus(ctx context.Context, userID string) (Status, error) {
	latest, err := s.store.Latest(userID)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return StatusNotStarted, nil
	}

	stored := Status(latest.Status)
	if stored.Terminal() {
		return stored, nil
	}

	ps, err := s.provider.FetchSession(ctx, latest.ProviderSessionID)
	if err != nil {
		// The stored status is still authoritative; the next poll retries.
		s.logger.Warn("provider status pull failed",
			zap.String("provider_session_id", latest.ProviderSessionID),
			zap.Error(err),
		)
		return stored, nil
	}
	if ps.Status == "" {
		return stored, nil
	}

	result, err := s.store.UpdateStatus(latest.ProviderSessionID, ps.Status, time.Now())
	if err != nil {
		return "", err
	}
	switch result {
	case UpdateApplied:
		return ps.Status, nil
	case UpdateStale:
		s.logStaleWrite(latest.ProviderSessionID, stored, ps.Status, "poll")
	}

	refreshed, err := s.store.ByProviderSessionID(latest.ProviderSessionID)
	if err != nil {
		return "", err
	}
	if refreshed == nil {
		return stored, nil
	}
	return Status(refreshed.Status), nil
}

type webhookPayload struct {
	ProviderSessionID string `json:"providerSessionId"`
	Status            string `json:"status"`
}

// ApplyWebhook validates and applies a provider push. The signature is
// checked over the raw body before anything is parsed; a failed check mutates
// nothing and reveals nothing about which sessions exist.
func (s *Service) ApplyWebhook(rawBody []byte, signatureHeader string) error {
	if !VerifySignature(rawBody, signatureHeader, s.cfg.WebhookSecret) {
		return ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.logger.Warn("webhook payload is not valid json", zap.Error(err))
		return nil
	}
	status, ok := ParseStatus(payload.Status)
	if !ok || payload.ProviderSessionID == "" {
		s.logger.Warn("webhook payload is malformed",
			zap.String("provider_session_id", payload.ProviderSessionID),
			zap.String("status", payload.Status),
		)
		return nil
	}

	result, err := s.store.UpdateStatus(payload.ProviderSessionID, status, time.Now())
	if err != nil {
		return err
	}
	switch result {
	case UpdateNotFound:
		// An event for a session we never created, e.g. a webhook misrouted
		// across environments. No caller is waiting on this path.
		s.logger.Info("webhook for unknown session discarded",
			zap.String("provider_session_id", payload.ProviderSessionID),
		)
	case UpdateStale:
		s.logStaleWrite(payload.ProviderSessionID, "", status, "webhook")
	default:
		s.logger.Info("webhook status applied",
			zap.String("provider_session_id", payload.ProviderSessionID),
			zap.String("status", status.Wire()),
		)
	}
	return nil
}

// logStaleWrite records a rejected backward move. Out-of-order delivery is
// expected under concurrency, but a sustained stream of these points at
// provider clock skew.
func (s *Service) logStaleWrite(providerSessionID string, stored, incoming Status, source string) {
	fields := []zap.Field{
		zap.String("provider_session_id", providerSessionID),
		zap.String("incoming", incoming.Wire()),
		zap.String("source", source),
	}
	if stored != "" {
		fields = append(fields, zap.String("stored", stored.Wire()))
	}
	s.logger.Warn("stale status write rejected", fields...)
}

func (s *Service) redirectTarget(platform, providerSessionID, verificationURL string) string {
	if platform == "mobile" {
		return fmt.Sprintf("%s://verify?session=%s", s.cfg.DeepLinkScheme, url.QueryEscape(providerSessionID))
	}
	return verificationURL
}

func normalizePlatform(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "mobile") {
		return "mobile"
	}
	return "web"
}
