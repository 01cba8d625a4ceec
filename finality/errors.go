package finality

import (
	"fmt"

	"github.com/zenithcoin/zenithd/ids"
)

// ErrUnknownWindow is returned when a vote references a txid with no open
// vote window.
type ErrUnknownWindow struct{ TxID ids.ID }

func (e *ErrUnknownWindow) Error() string {
	return fmt.Sprintf("finality: no open vote window for tx %s", e.TxID)
}

// ErrWindowClosed is returned when a vote arrives after its window has
// already decided or timed out.
type ErrWindowClosed struct{ TxID ids.ID }

func (e *ErrWindowClosed) Error() string {
	return fmt.Sprintf("finality: vote window for tx %s already closed", e.TxID)
}

// ErrUnknownVoter is returned when the voter is not a member of the
// masternode set the window was opened against.
type ErrUnknownVoter struct{ Voter ids.ShortID }

func (e *ErrUnknownVoter) Error() string {
	return fmt.Sprintf("finality: %s is not a current masternode", e.Voter)
}

// ErrDoubleVote is returned when voter has already voted in this window.
type ErrDoubleVote struct {
	TxID  ids.ID
	Voter ids.ShortID
}

func (e *ErrDoubleVote) Error() string {
	return fmt.Sprintf("finality: %s already voted on tx %s", e.Voter, e.TxID)
}

// ErrBadSignature is returned when a vote's signature does not verify.
type ErrBadSignature struct{ TxID ids.ID; Voter ids.ShortID }

func (e *ErrBadSignature) Error() string {
	return fmt.Sprintf("finality: bad signature from %s on tx %s", e.Voter, e.TxID)
}

// ErrRateLimited is returned when voter has exceeded its per-round vote
// allowance.
type ErrRateLimited struct{ Voter ids.ShortID }

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("finality: %s exceeded per-round vote limit", e.Voter)
}

// ErrExcluded is returned when voter's Byzantine score has escalated to
// Critical and it is currently excluded from quorum arithmetic.
type ErrExcluded struct{ Voter ids.ShortID }

func (e *ErrExcluded) Error() string {
	return fmt.Sprintf("finality: %s is excluded from voting (critical violation score)", e.Voter)
}
