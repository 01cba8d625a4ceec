package txvalidator

import (
	"crypto/sha256"

	"github.com/zenithcoin/zenithd/chainaddr"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/xcrypto"
)

// UTXOResolver looks up the UTXO a given outpoint currently refers to. The
// mempool and the live UTXO set both satisfy this by wrapping
// utxo.Store/utxo.Tracker reads.
type UTXOResolver func(chaintypes.OutPoint) (*chaintypes.UTXO, bool)

// Validate runs every structural and semantic admission check against
// tx, in a fixed order with the cheapest checks first, so a malformed
// transaction is rejected before any crypto runs.
// now and height are the caller's view of wall-clock time and chain tip,
// used for the timestamp/locktime constraints.
func Validate(cfg *config.Config, tx *chaintypes.Transaction, resolve UTXOResolver, now int64, height uint64) error {
	if err := validateStructure(cfg, tx); err != nil {
		return err
	}
	if tx.IsCoinbase() {
		return validateTimeConstraints(cfg, tx, now, height)
	}
	if err := validateInputsAvailable(tx, resolve); err != nil {
		return err
	}
	if err := validateValueConservation(tx, resolve); err != nil {
		return err
	}
	if err := validateSignatures(tx, resolve); err != nil {
		return err
	}
	if err := validateNoSelfTransferLoop(tx, resolve); err != nil {
		return err
	}
	return validateTimeConstraints(cfg, tx, now, height)
}

func validateStructure(cfg *config.Config, tx *chaintypes.Transaction) error {
	if !tx.IsCoinbase() && len(tx.Inputs) == 0 {
		return &ErrNoInputs{}
	}
	if len(tx.Outputs) == 0 {
		return &ErrNoOutputs{}
	}
	seen := make(map[chaintypes.OutPoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, dup := seen[in.OutPoint]; dup {
			return &ErrDuplicateInput{OutPoint: in.OutPoint}
		}
		seen[in.OutPoint] = struct{}{}
	}
	for i, out := range tx.Outputs {
		if out.Value == 0 {
			return &ErrZeroValueOutput{Index: i}
		}
	}
	if size := tx.Size(); size > cfg.MaxTxSize {
		return &ErrTxTooLarge{Size: size, Max: cfg.MaxTxSize}
	}
	return nil
}

func validateInputsAvailable(tx *chaintypes.Transaction, resolve UTXOResolver) error {
	for _, in := range tx.Inputs {
		if _, ok := resolve(in.OutPoint); !ok {
			return &chaintypes.MissingUTXOError{OutPoint: in.OutPoint}
		}
	}
	return nil
}

func validateValueConservation(tx *chaintypes.Transaction, resolve UTXOResolver) error {
	inSum, err := tx.InputSum(func(op chaintypes.OutPoint) (*chaintypes.UTXO, bool) { return resolve(op) })
	if err != nil {
		return err
	}
	outSum := tx.OutputSum()
	if outSum > inSum {
		return &ErrValueConservation{InputSum: inSum, OutputSum: outSum}
	}
	return nil
}

// validateSignatures checks that each input's committed public key hashes
// to the address recorded on the UTXO it references, and that its
// signature verifies against the transaction's SigHash.
func validateSignatures(tx *chaintypes.Transaction, resolve UTXOResolver) error {
	sigHash := tx.SigHash()
	for i, in := range tx.Inputs {
		prior, ok := resolve(in.OutPoint)
		if !ok {
			return &chaintypes.MissingUTXOError{OutPoint: in.OutPoint}
		}
		pub, err := xcrypto.PublicKeyFromBytes(in.PubKey)
		if err != nil {
			return &ErrInvalidSignature{InputIndex: i}
		}
		version, _, err := chainaddr.DecodeAny(prior.Address)
		if err != nil {
			return &ErrPubKeyMismatch{InputIndex: i}
		}
		addr, err := chainaddr.Encode(version, pubKeyHash(pub.Bytes()))
		if err != nil || addr != prior.Address {
			return &ErrPubKeyMismatch{InputIndex: i}
		}
		if !pub.Verify(sigHash, in.Signature) {
			return &ErrInvalidSignature{InputIndex: i}
		}
	}
	return nil
}

func pubKeyHash(pub []byte) []byte {
	h := sha256.Sum256(pub)
	return h[:20]
}

// validateNoSelfTransferLoop rejects a transaction whose output
// addresses are not disjoint from the addresses owning its inputs: no
// output may pay back to the owner of any input it spends.
func validateNoSelfTransferLoop(tx *chaintypes.Transaction, resolve UTXOResolver) error {
	for _, in := range tx.Inputs {
		prior, ok := resolve(in.OutPoint)
		if !ok {
			continue
		}
		for _, out := range tx.Outputs {
			if out.Address == prior.Address {
				return &ErrSelfTransferLoop{Address: prior.Address}
			}
		}
	}
	return nil
}

func validateTimeConstraints(cfg *config.Config, tx *chaintypes.Transaction, now int64, height uint64) error {
	maxFuture := now + int64(cfg.MaxClockDrift.Seconds())
	if tx.Timestamp > maxFuture {
		return &ErrFutureTimestamp{Timestamp: tx.Timestamp, Now: now}
	}
	if tx.LockTime != 0 && uint64(tx.LockTime) > height {
		return &ErrLockTimeNotReached{LockTime: tx.LockTime, Height: height}
	}
	return nil
}
