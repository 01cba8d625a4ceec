// Package chainaddr encodes and decodes the base58check addresses that
// UTXO script_pubkeys commit to, and formats smallest-unit integer values
// as whole-coin strings for logs and the CLI (1 coin = 10^8 units).
package chainaddr

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Version is the single-byte network version prefixed to every address.
// Mainnet/testnet are distinguished by this byte, set from config.
type Version byte

const (
	VersionMainnet Version = 0x32
	VersionTestnet Version = 0x99
)

var (
	ErrTooShort      = errors.New("chainaddr: encoded address too short")
	ErrBadChecksum   = errors.New("chainaddr: checksum mismatch")
	ErrWrongVersion  = errors.New("chainaddr: unexpected network version byte")
	ErrEmptyPubkey   = errors.New("chainaddr: empty pubkey hash")
	checksumLen      = 4
	pubkeyHashLength = 20
)

// Encode returns the base58check address committing to pubkeyHash under
// the given network version byte.
func Encode(version Version, pubkeyHash []byte) (string, error) {
	if len(pubkeyHash) != pubkeyHashLength {
		return "", fmt.Errorf("chainaddr: pubkey hash must be %d bytes, got %d", pubkeyHashLength, len(pubkeyHash))
	}
	payload := make([]byte, 0, 1+pubkeyHashLength+checksumLen)
	payload = append(payload, byte(version))
	payload = append(payload, pubkeyHash...)
	sum := checksum(payload)
	payload = append(payload, sum...)
	return base58.Encode(payload), nil
}

// Decode validates and unpacks an address produced by Encode, checking that
// its version byte matches wantVersion.
func Decode(addr string, wantVersion Version) ([]byte, error) {
	payload, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("chainaddr: %w", err)
	}
	if len(payload) < 1+pubkeyHashLength+checksumLen {
		return nil, ErrTooShort
	}
	version := Version(payload[0])
	if version != wantVersion {
		return nil, ErrWrongVersion
	}
	body := payload[:len(payload)-checksumLen]
	want := payload[len(payload)-checksumLen:]
	got := checksum(body)
	for i := range want {
		if want[i] != got[i] {
			return nil, ErrBadChecksum
		}
	}
	pubkeyHash := body[1:]
	if len(pubkeyHash) == 0 {
		return nil, ErrEmptyPubkey
	}
	return pubkeyHash, nil
}

// DecodeAny validates addr's checksum without checking its version byte,
// returning the embedded version and pubkey hash. Used where the caller
// needs to recover which network an address was minted for rather than
// assert one in advance (e.g. re-deriving an address from a public key to
// compare against a UTXO's recorded address, regardless of network).
func DecodeAny(addr string) (Version, []byte, error) {
	payload, err := base58.Decode(addr)
	if err != nil {
		return 0, nil, fmt.Errorf("chainaddr: %w", err)
	}
	if len(payload) < 1+pubkeyHashLength+checksumLen {
		return 0, nil, ErrTooShort
	}
	body := payload[:len(payload)-checksumLen]
	want := payload[len(payload)-checksumLen:]
	got := checksum(body)
	for i := range want {
		if want[i] != got[i] {
			return 0, nil, ErrBadChecksum
		}
	}
	pubkeyHash := body[1:]
	if len(pubkeyHash) == 0 {
		return 0, nil, ErrEmptyPubkey
	}
	return Version(payload[0]), pubkeyHash, nil
}

// WellFormed reports whether addr decodes and checksums cleanly under
// wantVersion, without returning the embedded pubkey hash. Used by
// txvalidator's output-sanity check.
func WellFormed(addr string, wantVersion Version) bool {
	_, err := Decode(addr, wantVersion)
	return err == nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}
