// Package txvalidator implements the structural and semantic checks a
// transaction must pass before it may enter the mempool or be voted on:
// structural well-formedness, input availability, value conservation,
// output sanity, signature validity, no self-transfer loops, and
// wall-clock constraints.
package txvalidator

import (
	"fmt"

	"github.com/zenithcoin/zenithd/chaintypes"
)

// ErrNoInputs is returned for a non-coinbase transaction with zero inputs.
type ErrNoInputs struct{}

func (ErrNoInputs) Error() string { return "txvalidator: transaction has no inputs" }

// ErrNoOutputs is returned for a transaction with zero outputs.
type ErrNoOutputs struct{}

func (ErrNoOutputs) Error() string { return "txvalidator: transaction has no outputs" }

// ErrDuplicateInput is returned when the same outpoint is spent twice in
// one transaction.
type ErrDuplicateInput struct{ OutPoint chaintypes.OutPoint }

func (e *ErrDuplicateInput) Error() string {
	return fmt.Sprintf("txvalidator: duplicate input %s", e.OutPoint)
}

// ErrZeroValueOutput is returned for any output with Value == 0.
type ErrZeroValueOutput struct{ Index int }

func (e *ErrZeroValueOutput) Error() string {
	return fmt.Sprintf("txvalidator: output %d has zero value", e.Index)
}

// ErrTxTooLarge is returned when a transaction's encoded size exceeds
// config.MaxTxSize.
type ErrTxTooLarge struct{ Size, Max int }

func (e *ErrTxTooLarge) Error() string {
	return fmt.Sprintf("txvalidator: transaction size %d exceeds max %d", e.Size, e.Max)
}

// ErrValueConservation is returned when outputs exceed inputs (inflation),
// the one sum-check direction no transaction may ever violate.
type ErrValueConservation struct{ InputSum, OutputSum uint64 }

func (e *ErrValueConservation) Error() string {
	return fmt.Sprintf("txvalidator: output sum %d exceeds input sum %d", e.OutputSum, e.InputSum)
}

// ErrInvalidSignature is returned when an input's signature does not
// verify against its committed public key and the transaction's SigHash.
type ErrInvalidSignature struct{ InputIndex int }

func (e *ErrInvalidSignature) Error() string {
	return fmt.Sprintf("txvalidator: input %d signature invalid", e.InputIndex)
}

// ErrPubKeyMismatch is returned when an input's committed public key does
// not hash to the address recorded on the UTXO it spends.
type ErrPubKeyMismatch struct{ InputIndex int }

func (e *ErrPubKeyMismatch) Error() string {
	return fmt.Sprintf("txvalidator: input %d public key does not match referenced output's address", e.InputIndex)
}

// ErrSelfTransferLoop is returned when a transaction creates an output
// paying an address that also owns one of the outpoints it spends.
type ErrSelfTransferLoop struct{ Address string }

func (e *ErrSelfTransferLoop) Error() string {
	return fmt.Sprintf("txvalidator: self-transfer loop for address %s", e.Address)
}

// ErrFutureTimestamp is returned when tx.Timestamp is further ahead of
// the local clock than config.MaxClockDrift allows.
type ErrFutureTimestamp struct{ Timestamp, Now int64 }

func (e *ErrFutureTimestamp) Error() string {
	return fmt.Sprintf("txvalidator: timestamp %d too far in the future (now=%d)", e.Timestamp, e.Now)
}

// ErrLockTimeNotReached is returned when tx.LockTime refers to a height
// not yet reached by the chain.
type ErrLockTimeNotReached struct{ LockTime uint32; Height uint64 }

func (e *ErrLockTimeNotReached) Error() string {
	return fmt.Sprintf("txvalidator: locktime %d not reached (height=%d)", e.LockTime, e.Height)
}

// MissingUTXOError re-exports chaintypes' error for callers that only
// import txvalidator.
type MissingUTXOError = chaintypes.MissingUTXOError
