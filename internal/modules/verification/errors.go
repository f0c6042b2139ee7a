package verification

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationUnavailable is surfaced after the provider failed twice
	// (initial attempt plus the single immediate retry).
	ErrVerificationUnavailable = errors.New("verification provider unavailable")

	// ErrInvalidSignature rejects a webhook whose signature does not match the
	// raw request body. No state is mutated for these requests.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// ProviderError is a failed call to the external verification provider.
type ProviderError struct {
	// Unavailable marks transport failures and provider 5xx responses; these
	// are retryable. 4xx rejections carry the provider message verbatim.
	Unavailable bool
	StatusCode  int
	Message     string
	Err         error
}

func (e *ProviderError) Error() string {
	if e.Unavailable {
		if e.Err != nil {
			return fmt.Sprintf("verification provider unavailable: %v", e.Err)
		}
		return fmt.Sprintf("verification provider unavailable (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("verification provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderUnavailable reports whether err is a retryable provider failure.
func IsProviderUnavailable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Unavailable
}
