// Package chaintypes holds the chain's data model: OutPoint, UTXO,
// Transaction, UTXOState, Vote, Masternode, Block. Tagged variants are
// modeled as closed structs with an explicit Kind discriminant rather
// than open interface polymorphism, so every consumer switches
// exhaustively over a closed set of cases.
package chaintypes

import (
	"fmt"

	"github.com/zenithcoin/zenithd/codec"
	"github.com/zenithcoin/zenithd/ids"
)

// OutPoint identifies a transaction output: (txid, vout). Immutable, with a
// total lexicographic order over the concatenation of its fields.
type OutPoint struct {
	TxID ids.ID
	Vout uint32
}

func (o OutPoint) String() string { return fmt.Sprintf("%s:%d", o.TxID, o.Vout) }

// Less implements the total order over outpoints: lexicographic on the
// concatenation of txid and vout.
func (o OutPoint) Less(other OutPoint) bool {
	if o.TxID != other.TxID {
		return o.TxID.Less(other.TxID)
	}
	return o.Vout < other.Vout
}

func (o OutPoint) marshal(w *codec.Writer) {
	w.WriteFixedBytes(o.TxID[:])
	w.WriteUint32(o.Vout)
}

func unmarshalOutPoint(r *codec.Reader) OutPoint {
	var o OutPoint
	copy(o.TxID[:], r.ReadFixedBytes(32))
	o.Vout = r.ReadUint32()
	return o
}

// Key returns a comparable value suitable as a map key; OutPoint is already
// comparable, so Key is an alias retained for readability at call sites
// that index UTXO stores and lock tables.
func (o OutPoint) Key() OutPoint { return o }
