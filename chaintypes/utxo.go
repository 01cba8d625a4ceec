package chaintypes

import "github.com/zenithcoin/zenithd/codec"

// UTXO is an unspent transaction output. Immutable once created.
type UTXO struct {
	OutPoint     OutPoint
	Value        uint64 // smallest unit; 1 coin = 10^8 units
	ScriptPubKey []byte
	Address      string
}

// Marshal returns the canonical encoding of u.
func (u *UTXO) Marshal() []byte {
	w := codec.NewWriter()
	u.marshal(w)
	return w.Bytes()
}

func (u *UTXO) marshal(w *codec.Writer) {
	u.OutPoint.marshal(w)
	w.WriteUint64(u.Value)
	w.WriteBytes(u.ScriptPubKey)
	w.WriteString(u.Address)
}

// UnmarshalUTXO parses the canonical encoding produced by UTXO.Marshal.
func UnmarshalUTXO(b []byte) (*UTXO, error) {
	r, err := codec.NewReader(b)
	if err != nil {
		return nil, err
	}
	u := &UTXO{}
	u.OutPoint = unmarshalOutPoint(r)
	u.Value = r.ReadUint64()
	u.ScriptPubKey = r.ReadBytes()
	u.Address = r.ReadString()
	if err := r.Done(); err != nil {
		return nil, err
	}
	return u, nil
}
