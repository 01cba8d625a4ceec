package chaintypes

import (
	"github.com/zenithcoin/zenithd/codec"
	"github.com/zenithcoin/zenithd/hashing"
	"github.com/zenithcoin/zenithd/ids"
)

// TxInput spends a prior output, authorizing the spend with an Ed25519
// signature over the transaction's SigHash and the committing public key.
type TxInput struct {
	OutPoint  OutPoint
	PubKey    []byte // 32-byte Ed25519 public key committed by the referenced UTXO's script
	Signature []byte // 64-byte Ed25519 signature over SigHash(tx)
}

// TxOutput creates a new UTXO on acceptance.
type TxOutput struct {
	Value        uint64
	ScriptPubKey []byte
	Address      string
}

// Transaction moves value between UTXOs. A coinbase has an empty Inputs
// slice.
type Transaction struct {
	Version   uint32
	Inputs    []TxInput
	Outputs   []TxOutput
	LockTime  uint32
	Timestamp int64

	idCache   *ids.ID
	sizeCache int
}

// IsCoinbase reports whether tx has no inputs.
func (tx *Transaction) IsCoinbase() bool { return len(tx.Inputs) == 0 }

// marshal writes the canonical encoding. When includeSigs is false,
// signature bytes are omitted (used to build the SigHash every input signs,
// so that signing one input can never depend on the signature bytes of
// another).
func (tx *Transaction) marshal(w *codec.Writer, includeSigs bool) {
	w.WriteUint32(tx.Version)
	w.WriteUint32(uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		in.OutPoint.marshal(w)
		w.WriteBytes(in.PubKey)
		if includeSigs {
			w.WriteBytes(in.Signature)
		}
	}
	w.WriteUint32(uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		w.WriteUint64(out.Value)
		w.WriteBytes(out.ScriptPubKey)
		w.WriteString(out.Address)
	}
	w.WriteUint32(tx.LockTime)
	w.WriteInt64(tx.Timestamp)
}

// Bytes returns the full canonical encoding, signatures included.
func (tx *Transaction) Bytes() []byte {
	w := codec.NewWriter()
	tx.marshal(w, true)
	b := w.Bytes()
	tx.sizeCache = len(b)
	return b
}

// SigHash returns the hash every input's signature is computed over: the
// canonical encoding with all signature fields omitted.
func (tx *Transaction) SigHash() []byte {
	w := codec.NewWriter()
	tx.marshal(w, false)
	return hashing.ComputeHash256(w.Bytes())
}

// TxID returns SHA-256(canonical-encoding(tx)), cached after first use. A
// transaction must not be mutated after TxID is called.
func (tx *Transaction) TxID() ids.ID {
	if tx.idCache != nil {
		return *tx.idCache
	}
	id := hashing.ComputeID(tx.Bytes())
	tx.idCache = &id
	return id
}

// Size returns the byte length of the canonical encoding.
func (tx *Transaction) Size() int {
	if tx.sizeCache == 0 {
		tx.Bytes()
	}
	return tx.sizeCache
}

// InputSum returns the sum of the UTXO values referenced by tx's inputs,
// given a resolver. Returns an error if any input is unresolved.
func (tx *Transaction) InputSum(resolve func(OutPoint) (*UTXO, bool)) (uint64, error) {
	var sum uint64
	for _, in := range tx.Inputs {
		utxo, ok := resolve(in.OutPoint)
		if !ok {
			return 0, &MissingUTXOError{OutPoint: in.OutPoint}
		}
		sum += utxo.Value
	}
	return sum, nil
}

// OutputSum returns the sum of tx's output values.
func (tx *Transaction) OutputSum() uint64 {
	var sum uint64
	for _, out := range tx.Outputs {
		sum += out.Value
	}
	return sum
}

// MissingUTXOError reports an input referencing an outpoint absent from
// the UTXO set.
type MissingUTXOError struct{ OutPoint OutPoint }

func (e *MissingUTXOError) Error() string { return "missing utxo: " + e.OutPoint.String() }

// UnmarshalTransaction parses the canonical encoding produced by Bytes.
func UnmarshalTransaction(b []byte) (*Transaction, error) {
	r, err := codec.NewReader(b)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{}
	tx.Version = r.ReadUint32()
	numIn := r.ReadUint32()
	tx.Inputs = make([]TxInput, numIn)
	for i := range tx.Inputs {
		tx.Inputs[i].OutPoint = unmarshalOutPoint(r)
		tx.Inputs[i].PubKey = r.ReadBytes()
		tx.Inputs[i].Signature = r.ReadBytes()
	}
	numOut := r.ReadUint32()
	tx.Outputs = make([]TxOutput, numOut)
	for i := range tx.Outputs {
		tx.Outputs[i].Value = r.ReadUint64()
		tx.Outputs[i].ScriptPubKey = r.ReadBytes()
		tx.Outputs[i].Address = r.ReadString()
	}
	tx.LockTime = r.ReadUint32()
	tx.Timestamp = r.ReadInt64()
	if err := r.Done(); err != nil {
		return nil, err
	}
	return tx, nil
}
