// Package ids defines the fixed-width identifiers used throughout the
// consensus engine: transaction/block hashes and masternode identifiers.
package ids

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"
)

// ID is a 32-byte hash identifier (a txid or a block hash).
type ID [32]byte

// Empty is the zero-valued ID.
var Empty = ID{}

// ErrWrongLength is returned when decoding a byte slice of the wrong size.
var ErrWrongLength = errors.New("wrong length byte slice for id")

// ToID copies b into a new ID. b must be exactly 32 bytes.
func ToID(b []byte) (ID, error) {
	var id ID
	if len(b) != len(id) {
		return id, ErrWrongLength
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns a copy of id's underlying bytes.
func (id ID) Bytes() []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// String returns the lowercase hex encoding of id.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Less implements the total lexicographic order txids are sorted by.
func (id ID) Less(other ID) bool { return bytes.Compare(id[:], other[:]) < 0 }

// Compare returns -1, 0 or 1 per bytes.Compare semantics.
func (id ID) Compare(other ID) int { return bytes.Compare(id[:], other[:]) }

// IsEmpty reports whether id is the zero value.
func (id ID) IsEmpty() bool { return id == Empty }

// SortIDs sorts ids ascending, lexicographically on the raw bytes.
func SortIDs(list []ID) {
	sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
}

// ShortID is a 20-byte identifier, used for masternode and peer ids.
type ShortID [20]byte

// ToShortID copies b into a new ShortID. b must be exactly 20 bytes.
func ToShortID(b []byte) (ShortID, error) {
	var id ShortID
	if len(b) != len(id) {
		return id, ErrWrongLength
	}
	copy(id[:], b)
	return id, nil
}

func (id ShortID) Bytes() []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

func (id ShortID) String() string { return hex.EncodeToString(id[:]) }

func (id ShortID) Less(other ShortID) bool { return bytes.Compare(id[:], other[:]) < 0 }

// Set is a mutable, unordered collection of IDs. The zero value is usable.
type Set map[ID]struct{}

// NewSet returns a Set pre-sized for n elements.
func NewSet(n int) Set { return make(Set, n) }

func (s Set) Add(ids ...ID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s Set) Remove(id ID) { delete(s, id) }

func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Len() int { return len(s) }

// List returns the set's members in ascending lexicographic order, so that
// callers that fold over List() get deterministic iteration.
func (s Set) List() []ID {
	list := make([]ID, 0, len(s))
	for id := range s {
		list = append(list, id)
	}
	SortIDs(list)
	return list
}

func (s Set) Clear() {
	for id := range s {
		delete(s, id)
	}
}

// ShortSet is the ShortID analogue of Set, used for masternode-id sets.
type ShortSet map[ShortID]struct{}

func NewShortSet(n int) ShortSet { return make(ShortSet, n) }

func (s ShortSet) Add(ids ...ShortID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s ShortSet) Remove(id ShortID) { delete(s, id) }

func (s ShortSet) Contains(id ShortID) bool {
	_, ok := s[id]
	return ok
}

func (s ShortSet) Len() int { return len(s) }

func (s ShortSet) List() []ShortID {
	list := make([]ShortID, 0, len(s))
	for id := range s {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
	return list
}
