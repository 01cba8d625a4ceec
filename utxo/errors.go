package utxo

import (
	"fmt"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

// ErrAlreadyLocked is returned by Lock when the outpoint is already Locked
// by a different transaction.
type ErrAlreadyLocked struct {
	OutPoint   chaintypes.OutPoint
	LockingTx  ids.ID
}

func (e *ErrAlreadyLocked) Error() string {
	return fmt.Sprintf("utxo %s already locked by tx %s", e.OutPoint, e.LockingTx)
}

// ErrNotUnspent is returned by Lock when the outpoint's current state is
// not Unspent (and not a re-lock by the same tx).
type ErrNotUnspent struct {
	OutPoint chaintypes.OutPoint
	Kind     chaintypes.StateKind
}

func (e *ErrNotUnspent) Error() string {
	return fmt.Sprintf("utxo %s is not unspent (state=%s)", e.OutPoint, e.Kind)
}

// ErrWrongState is returned when an operation's precondition on the
// current state is not met (e.g. MarkPending on an unlocked outpoint).
type ErrWrongState struct {
	OutPoint chaintypes.OutPoint
	Want     chaintypes.StateKind
	Got      chaintypes.StateKind
}

func (e *ErrWrongState) Error() string {
	return fmt.Sprintf("utxo %s: expected state %s, got %s", e.OutPoint, e.Want, e.Got)
}

// ErrUnknownOutPoint is returned when an operation references an outpoint
// the tracker has never seen (never Init'd from a finalized output).
type ErrUnknownOutPoint struct {
	OutPoint chaintypes.OutPoint
}

func (e *ErrUnknownOutPoint) Error() string {
	return fmt.Sprintf("utxo %s is unknown to the state tracker", e.OutPoint)
}

// ErrTxIDMismatch is returned when a transition is attempted by a txid
// different from the one that currently holds the outpoint.
type ErrTxIDMismatch struct {
	OutPoint chaintypes.OutPoint
	Want     ids.ID
	Got      ids.ID
}

func (e *ErrTxIDMismatch) Error() string {
	return fmt.Sprintf("utxo %s held by tx %s, not %s", e.OutPoint, e.Want, e.Got)
}
