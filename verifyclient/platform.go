package verifyclient

import "strings"

const (
	PlatformMobile = "mobile"
	PlatformWeb    = "web"
)

// Environment carries the signals available to the embedding client for
// platform detection.
type Environment struct {
	UserAgent     string
	ViewportWidth int
	TouchPoints   int
	CoarsePointer bool
}

var mobileUAMarkers = []string{"android", "iphone", "ipad", "ipod", "mobile"}

// DetectPlatform classifies the runtime environment. User agent markers win;
// otherwise a narrow touch-first viewport counts as mobile. Unknown
// environments fall back to web, which degrades gracefully (a hosted page
// works everywhere, a deep link does not).
func DetectPlatform(env Environment) string {
	ua := strings.ToLower(env.UserAgent)
	for _, marker := range mobileUAMarkers {
		if strings.Contains(ua, marker) {
			return PlatformMobile
		}
	}
	if env.CoarsePointer && env.TouchPoints > 0 &&
		env.ViewportWidth > 0 && env.ViewportWidth <= 820 {
		return PlatformMobile
	}
	return PlatformWeb
}
