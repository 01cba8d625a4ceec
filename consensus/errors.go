package consensus

import (
	"errors"
	"fmt"

	"github.com/zenithcoin/zenithd/ids"
)

// ErrHashMismatch is returned by Reconcile when the fetched block's own
// hash does not equal the hash the majority agreed on.
type ErrHashMismatch struct{ Want, Got ids.ID }

func (e *ErrHashMismatch) Error() string {
	return fmt.Sprintf("consensus: fetched block hash %s does not match agreed hash %s", e.Got, e.Want)
}

// ErrWrongHeight is returned when the fetched block's height does not
// match the round it was fetched for.
type ErrWrongHeight struct{ Want, Got uint64 }

func (e *ErrWrongHeight) Error() string {
	return fmt.Sprintf("consensus: fetched block height %d, want %d", e.Got, e.Want)
}

// ErrWrongPreviousHash is returned when the fetched block does not chain
// from our canonical previous block.
type ErrWrongPreviousHash struct{ Want, Got ids.ID }

func (e *ErrWrongPreviousHash) Error() string {
	return fmt.Sprintf("consensus: fetched block previous_hash %s, want %s", e.Got, e.Want)
}

// ErrWrongTimestamp is returned when the fetched block's timestamp is not
// exactly T(height), violating the deterministic construction rule.
type ErrWrongTimestamp struct{ Want, Got int64 }

func (e *ErrWrongTimestamp) Error() string {
	return fmt.Sprintf("consensus: fetched block timestamp %d, want %d", e.Got, e.Want)
}

// ErrMissingCoinbase is returned when the fetched block's first
// transaction is not a coinbase.
var ErrMissingCoinbase = errors.New("consensus: fetched block has no coinbase as its first transaction")

// ErrTxOrderViolation is returned when the fetched block's non-coinbase
// transactions are not sorted ascending by txid.
var ErrTxOrderViolation = errors.New("consensus: fetched block's transactions are not sorted by txid")

// ErrMerkleMismatch is returned when the fetched block's header merkle
// root does not match the root recomputed from its transaction list
// (property P5).
var ErrMerkleMismatch = errors.New("consensus: fetched block's merkle root does not match its transactions")

// ErrInvalidIncludedTx is returned when a transaction in the fetched
// block fails transaction validation against our own UTXO view.
type ErrInvalidIncludedTx struct {
	TxID  ids.ID
	Cause error
}

func (e *ErrInvalidIncludedTx) Error() string {
	return fmt.Sprintf("consensus: included tx %s fails validation: %v", e.TxID, e.Cause)
}

func (e *ErrInvalidIncludedTx) Unwrap() error { return e.Cause }
