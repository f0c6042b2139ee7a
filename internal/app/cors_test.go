package app

import "testing"

func TestMatchOriginPattern(t *testing.T) {
	cases := []struct {
		pattern string
		host    string
		want    bool
	}{
		{"portal.lendfront.example", "portal.lendfront.example", true},
		{"portal.lendfront.example", "evil.example", false},
		{"*.lendfront.example", "app.lendfront.example", true},
		{"*.lendfront.example", "lendfront.example.evil.com", false},
		{"localhost:*", "localhost:5173", true},
		{"localhost:*", "localhost.evil.com", false},
	}
	for _, tc := range cases {
		if got := matchOriginPattern(tc.pattern, tc.host); got != tc.want {
			t.Fatalf("matchOriginPattern(%q, %q) = %v, want %v", tc.pattern, tc.host, got, tc.want)
		}
	}
}

func TestExtractOriginHost(t *testing.T) {
	if got := extractOriginHost("https://app.lendfront.example:8443"); got != "app.lendfront.example:8443" {
		t.Fatalf("extractOriginHost = %q", got)
	}
	if got := extractOriginHost("not-a-url"); got != "not-a-url" {
		t.Fatalf("extractOriginHost fallback = %q", got)
	}
}
