package mempool

import (
	"fmt"

	"github.com/zenithcoin/zenithd/ids"
)

// ErrAlreadyPresent is returned by Add when txID is already held (still a
// useful signal distinct from a silent no-op, since callers use it to
// avoid re-broadcasting).
type ErrAlreadyPresent struct{ TxID ids.ID }

func (e *ErrAlreadyPresent) Error() string {
	return fmt.Sprintf("mempool: tx %s already present", e.TxID)
}

// ErrConflict is returned by Add when tx spends an outpoint a different
// processing transaction already claims.
type ErrConflict struct {
	TxID       ids.ID
	ConflictsWith []ids.ID
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("mempool: tx %s conflicts with %d processing tx(s)", e.TxID, len(e.ConflictsWith))
}

// ErrFull is returned by Add when the mempool has reached its configured
// hard limit.
type ErrFull struct{ Limit int }

func (e *ErrFull) Error() string { return fmt.Sprintf("mempool: full (limit=%d)", e.Limit) }

// ErrNotFound is returned when an operation names a txID the mempool does
// not hold.
type ErrNotFound struct{ TxID ids.ID }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("mempool: tx %s not found", e.TxID) }
