package chaintypes

import "github.com/zenithcoin/zenithd/ids"

// StateKind discriminates the closed set of UTXO lifecycle states.
// A plain enum, so state machines switch over it exhaustively.
type StateKind uint8

const (
	Unspent StateKind = iota
	Locked
	SpentPending
	SpentFinalized
	Confirmed
)

func (k StateKind) String() string {
	switch k {
	case Unspent:
		return "Unspent"
	case Locked:
		return "Locked"
	case SpentPending:
		return "SpentPending"
	case SpentFinalized:
		return "SpentFinalized"
	case Confirmed:
		return "Confirmed"
	default:
		return "Unknown"
	}
}

// UTXOState is the per-outpoint state, carrying only the fields relevant to
// its Kind; callers must switch on Kind before reading variant-specific
// fields.
type UTXOState struct {
	Kind StateKind

	// Locked, SpentPending, SpentFinalized, Confirmed
	TxID ids.ID

	// Locked
	LockedAt int64

	// SpentPending, SpentFinalized, Confirmed (the accumulated approving
	// vote weight, frozen at finalization)
	Votes uint64

	// SpentPending
	TotalNodes uint64
	SpentAt    int64

	// SpentFinalized
	FinalizedAt int64

	// Confirmed
	BlockHeight uint64
	ConfirmedAt int64
}

// NewUnspent returns the initial state for a freshly created UTXO.
func NewUnspent() UTXOState { return UTXOState{Kind: Unspent} }
