package chaintypes

import (
	"github.com/zenithcoin/zenithd/codec"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
)

// Vote is one masternode's approval or rejection of a pending transaction.
// At most one Vote is ever accepted per (txid, voter) pair.
type Vote struct {
	TxID      ids.ID
	Voter     ids.ShortID
	Approve   bool
	Timestamp int64
	Signature []byte // 64-byte Ed25519 signature over SigHash()
}

// SigHash returns the hash the voter signs: every field except Signature.
func (v *Vote) SigHash() []byte {
	w := codec.NewWriter()
	w.WriteFixedBytes(v.TxID[:])
	w.WriteFixedBytes(v.Voter[:])
	w.WriteBool(v.Approve)
	w.WriteInt64(v.Timestamp)
	return hashing.ComputeHash256(w.Bytes())
}

// Bytes returns the full canonical encoding, signature included, used on
// the wire.
func (v *Vote) Bytes() []byte {
	w := codec.NewWriter()
	w.WriteFixedBytes(v.TxID[:])
	w.WriteFixedBytes(v.Voter[:])
	w.WriteBool(v.Approve)
	w.WriteInt64(v.Timestamp)
	w.WriteBytes(v.Signature)
	return w.Bytes()
}

// UnmarshalVote parses the encoding produced by Vote.Bytes.
func UnmarshalVote(b []byte) (*Vote, error) {
	r, err := codec.NewReader(b)
	if err != nil {
		return nil, err
	}
	v := &Vote{}
	copy(v.TxID[:], r.ReadFixedBytes(32))
	copy(v.Voter[:], r.ReadFixedBytes(20))
	v.Approve = r.ReadBool()
	v.Timestamp = r.ReadInt64()
	v.Signature = r.ReadBytes()
	if err := r.Done(); err != nil {
		return nil, err
	}
	return v, nil
}
