// byzantine.go implements per-voter violation scoring: double votes,
// invalid proposals, and unavailability escalate a running severity
// that, at Critical, excludes the voter from quorum arithmetic until
// external governance reinstates it. Distinct violation kinds each carry
// their own severity floor, so the ladder is not a single continuous
// metric.
package finality

import (
	"sync"

	"github.com/zenithcoin/zenithd/ids"
)

// Severity is the escalating violation level.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityModerate
	SeveritySevere
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityModerate:
		return "moderate"
	case SeveritySevere:
		return "severe"
	case SeverityCritical:
		return "critical"
	default:
		return "none"
	}
}

// ViolationKind discriminates the three violation classes, each with
// its own fixed severity contribution.
type ViolationKind int

const (
	ViolationDoubleVote ViolationKind = iota
	ViolationInvalidProposal
	ViolationUnavailability
)

func (k ViolationKind) severity() Severity {
	switch k {
	case ViolationDoubleVote:
		return SeveritySevere
	case ViolationInvalidProposal:
		return SeverityModerate
	case ViolationUnavailability:
		return SeverityMinor
	default:
		return SeverityNone
	}
}

// ByzantineTracker accumulates violations per voter and reports exclusion
// once a voter's score reaches Critical.
type ByzantineTracker struct {
	mu     sync.Mutex
	scores map[ids.ShortID]Severity
}

func NewByzantineTracker() *ByzantineTracker {
	return &ByzantineTracker{scores: make(map[ids.ShortID]Severity)}
}

// Record escalates voter's score by at least one step toward Critical for
// each reported violation, jumping straight to the incident's own
// severity when that is higher: repeated violations climb the ladder
// rather than resetting at the single incident's own severity.
func (b *ByzantineTracker) Record(voter ids.ShortID, kind ViolationKind) Severity {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.scores[voter]
	incident := kind.severity()
	next := current + 1
	if incident > next {
		next = incident
	}
	if next > SeverityCritical {
		next = SeverityCritical
	}
	b.scores[voter] = next
	return next
}

// Score returns voter's current running violation severity.
func (b *ByzantineTracker) Score(voter ids.ShortID) Severity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scores[voter]
}

// Excluded reports whether voter's score has escalated to Critical.
func (b *ByzantineTracker) Excluded(voter ids.ShortID) bool {
	return b.Score(voter) == SeverityCritical
}

// Reinstate resets voter's score to SeverityNone, the only way a
// Critical exclusion is lifted; the call belongs to an external
// governance process.
func (b *ByzantineTracker) Reinstate(voter ids.ShortID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scores, voter)
}
