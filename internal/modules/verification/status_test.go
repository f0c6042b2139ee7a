package verification

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"APPROVED", StatusApproved, true},
		{"approved", StatusApproved, true},
		{"  In_Progress ", StatusInProgress, true},
		{"created", StatusCreated, true},
		{"NOT_STARTED", StatusNotStarted, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.raw)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	ordered := []Status{StatusNotStarted, StatusCreated, StatusInitialized, StatusPending, StatusApproved}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Fatalf("%s (rank %d) should rank below %s (rank %d)",
				ordered[i-1], ordered[i-1].Rank(), ordered[i], ordered[i].Rank())
		}
	}

	if StatusPending.Rank() != StatusInProgress.Rank() {
		t.Fatalf("PENDING and IN_PROGRESS should share a rank")
	}
	if StatusApproved.Rank() != StatusDeclined.Rank() || StatusDeclined.Rank() != StatusFailed.Rank() {
		t.Fatalf("terminal statuses should share a rank")
	}
	if Status("BOGUS").Rank() != -1 {
		t.Fatalf("unknown status should rank below everything")
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusDeclined, StatusFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusNotStarted, StatusCreated, StatusInitialized, StatusPending, StatusInProgress} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestWire(t *testing.T) {
	if got := StatusInProgress.Wire(); got != "in_progress" {
		t.Fatalf("Wire() = %q, want %q", got, "in_progress")
	}
}

func TestStatusRankHelpersExcludeNotStarted(t *testing.T) {
	for _, s := range statusesBelowRank(StatusApproved.Rank()) {
		if s == string(StatusNotStarted) {
			t.Fatalf("statusesBelowRank must not include the virtual NOT_STARTED")
		}
	}
	at := statusesAtRank(StatusPending.Rank())
	if len(at) != 2 {
		t.Fatalf("expected PENDING and IN_PROGRESS at shared rank, got %v", at)
	}
}
