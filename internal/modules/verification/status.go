package verification

import "strings"

// Status is the authoritative verification session state.
type Status string

const (
	// StatusNotStarted is virtual: returned when no session exists, never persisted.
	StatusNotStarted  Status = "NOT_STARTED"
	StatusCreated     Status = "CREATED"
	StatusInitialized Status = "INITIALIZED"
	StatusPending     Status = "PENDING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusApproved    Status = "APPROVED"
	StatusDeclined    Status = "DECLINED"
	StatusFailed      Status = "FAILED"
)

// statusRanks is the monotonic lattice used for conflict resolution between
// the two writers (webhook push vs. poll pull). A write may only move status
// to a higher rank; PENDING/IN_PROGRESS share a rank, as do the three
// terminal states.
var statusRanks = map[Status]int{
	StatusNotStarted:  0,
	StatusCreated:     1,
	StatusInitialized: 2,
	StatusPending:     3,
	StatusInProgress:  3,
	StatusApproved:    4,
	StatusDeclined:    4,
	StatusFailed:      4,
}

// ParseStatus normalizes a raw provider/webhook status string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := statusRanks[s]
	return s, ok
}

// Rank returns the lattice rank; unknown statuses rank below everything.
func (s Status) Rank() int {
	if r, ok := statusRanks[s]; ok {
		return r
	}
	return -1
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusFailed:
		return true
	}
	return false
}

// Wire returns the lowercase representation used on the HTTP surface.
func (s Status) Wire() string { return strings.ToLower(string(s)) }

// statusesBelowRank lists persisted statuses strictly below the given rank.
// NOT_STARTED is excluded: it is never written, so it never appears in a row.
func statusesBelowRank(rank int) []string {
	out := make([]string, 0, 4)
	for s, r := range statusRanks {
		if s == StatusNotStarted {
			continue
		}
		if r < rank {
			out = append(out, string(s))
		}
	}
	return out
}

// statusesAtRank lists persisted statuses sharing the given rank.
func statusesAtRank(rank int) []string {
	out := make([]string, 0, 3)
	for s, r := range statusRanks {
		if s == StatusNotStarted {
			continue
		}
		if r == rank {
			out = append(out, string(s))
		}
	}
	return out
}
