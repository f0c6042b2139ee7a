package verification

// StartVerificationDTO is the request body for POST /verification/start.
// UserID is a fallback for unauthenticated portal embeds; an authenticated
// user always wins.
type StartVerificationDTO struct {
	UserID    string `json:"userId"`
	Platform  string `json:"platform"  binding:"required,oneof=mobile web"`
	UserAgent string `json:"userAgent"`
}

type startResponse struct {
	ProviderSessionID string `json:"providerSessionId"`
	RedirectURL       string `json:"redirectUrl"`
}

type statusResponse struct {
	Status string `json:"status"`
}
