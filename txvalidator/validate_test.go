package txvalidator

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithcoin/zenithd/chainaddr"
	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/config"
	"github.com/zenithcoin/zenithd/ids"
	"github.com/zenithcoin/zenithd/xcrypto"
)

func newTestKeyAndAddr(t *testing.T) (xcrypto.PrivateKey, string) {
	t.Helper()
	priv, pub, err := xcrypto.GenerateKey()
	require.NoError(t, err)
	h := sha256.Sum256(pub.Bytes())
	addr, err := chainaddr.Encode(chainaddr.VersionTestnet, h[:20])
	require.NoError(t, err)
	return priv, addr
}

func makeSpendableTx(t *testing.T, priv xcrypto.PrivateKey, op chaintypes.OutPoint, outAddr string, value uint64, now int64) *chaintypes.Transaction {
	t.Helper()
	pub := priv.Public()
	tx := &chaintypes.Transaction{
		Version:   1,
		Inputs:    []chaintypes.TxInput{{OutPoint: op, PubKey: pub.Bytes()}},
		Outputs:   []chaintypes.TxOutput{{Value: value, Address: outAddr}},
		Timestamp: now,
	}
	sig := priv.Sign(tx.SigHash())
	tx.Inputs[0].Signature = sig
	return tx
}

func TestValidateHappyPath(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	priv, addr := newTestKeyAndAddr(t)
	_, otherAddr := newTestKeyAndAddr(t)

	var txID ids.ID
	txID[0] = 1
	op := chaintypes.OutPoint{TxID: txID, Vout: 0}
	prior := &chaintypes.UTXO{OutPoint: op, Value: 1000, Address: addr}

	now := time.Now().Unix()
	tx := makeSpendableTx(t, priv, op, otherAddr, 900, now)

	resolve := func(o chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
		if o == op {
			return prior, true
		}
		return nil, false
	}

	err := Validate(cfg, tx, resolve, now, 100)
	assert.NoError(t, err)
}

func TestValidateRejectsInflation(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	priv, addr := newTestKeyAndAddr(t)
	_, otherAddr := newTestKeyAndAddr(t)

	var txID ids.ID
	txID[0] = 2
	op := chaintypes.OutPoint{TxID: txID, Vout: 0}
	prior := &chaintypes.UTXO{OutPoint: op, Value: 100, Address: addr}

	now := time.Now().Unix()
	tx := makeSpendableTx(t, priv, op, otherAddr, 900, now)

	resolve := func(o chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
		if o == op {
			return prior, true
		}
		return nil, false
	}

	err := Validate(cfg, tx, resolve, now, 100)
	require.Error(t, err)
	var conserve *ErrValueConservation
	assert.ErrorAs(t, err, &conserve)
}

func TestValidateRejectsBadSignature(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	priv, addr := newTestKeyAndAddr(t)
	_, otherAddr := newTestKeyAndAddr(t)

	var txID ids.ID
	txID[0] = 3
	op := chaintypes.OutPoint{TxID: txID, Vout: 0}
	prior := &chaintypes.UTXO{OutPoint: op, Value: 500, Address: addr}

	now := time.Now().Unix()
	tx := makeSpendableTx(t, priv, op, otherAddr, 400, now)
	tx.Inputs[0].Signature[0] ^= 0xFF // corrupt the signature

	resolve := func(o chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
		if o == op {
			return prior, true
		}
		return nil, false
	}

	err := Validate(cfg, tx, resolve, now, 100)
	require.Error(t, err)
	var badSig *ErrInvalidSignature
	assert.ErrorAs(t, err, &badSig)
}

func TestValidateRejectsMissingUTXO(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	priv, _ := newTestKeyAndAddr(t)
	_, otherAddr := newTestKeyAndAddr(t)

	var txID ids.ID
	txID[0] = 4
	op := chaintypes.OutPoint{TxID: txID, Vout: 0}

	now := time.Now().Unix()
	tx := makeSpendableTx(t, priv, op, otherAddr, 1, now)

	resolve := func(chaintypes.OutPoint) (*chaintypes.UTXO, bool) { return nil, false }

	err := Validate(cfg, tx, resolve, now, 100)
	require.Error(t, err)
	var missing *chaintypes.MissingUTXOError
	assert.ErrorAs(t, err, &missing)
}

func TestValidateRejectsSelfTransferLoop(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	priv, addr := newTestKeyAndAddr(t)

	var txID ids.ID
	txID[0] = 5
	op := chaintypes.OutPoint{TxID: txID, Vout: 0}
	prior := &chaintypes.UTXO{OutPoint: op, Value: 500, Address: addr}

	now := time.Now().Unix()
	tx := makeSpendableTx(t, priv, op, addr, 500, now)

	resolve := func(o chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
		if o == op {
			return prior, true
		}
		return nil, false
	}

	err := Validate(cfg, tx, resolve, now, 100)
	require.Error(t, err)
	var loop *ErrSelfTransferLoop
	assert.ErrorAs(t, err, &loop)
}

func TestValidateRejectsFutureTimestamp(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	priv, addr := newTestKeyAndAddr(t)
	_, otherAddr := newTestKeyAndAddr(t)

	var txID ids.ID
	txID[0] = 6
	op := chaintypes.OutPoint{TxID: txID, Vout: 0}
	prior := &chaintypes.UTXO{OutPoint: op, Value: 500, Address: addr}

	now := time.Now().Unix()
	future := now + int64(cfg.MaxClockDrift.Seconds()) + 3600
	tx := makeSpendableTx(t, priv, op, otherAddr, 400, future)

	resolve := func(o chaintypes.OutPoint) (*chaintypes.UTXO, bool) {
		if o == op {
			return prior, true
		}
		return nil, false
	}

	err := Validate(cfg, tx, resolve, now, 100)
	require.Error(t, err)
	var tooFuture *ErrFutureTimestamp
	assert.ErrorAs(t, err, &tooFuture)
}

func TestValidateCoinbaseSkipsInputChecks(t *testing.T) {
	cfg := config.DefaultTestnetConfig()
	_, addr := newTestKeyAndAddr(t)

	now := time.Now().Unix()
	tx := &chaintypes.Transaction{
		Version:   1,
		Outputs:   []chaintypes.TxOutput{{Value: cfg.BlockReward, Address: addr}},
		Timestamp: now,
	}
	resolve := func(chaintypes.OutPoint) (*chaintypes.UTXO, bool) { return nil, false }

	err := Validate(cfg, tx, resolve, now, 100)
	assert.NoError(t, err)
}
