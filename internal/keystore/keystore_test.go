package keystore

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

func multisigOutput(t *testing.T, params *chaincfg.Params, keys ...*btcec.PrivateKey) ([]byte, []byte) {
	t.Helper()

	addrs := make([]*btcutil.AddressPubKey, len(keys))
	for i, priv := range keys {
		addr, err := btcutil.NewAddressPubKey(priv.PubKey().SerializeCompressed(), params)
		if err != nil {
			t.Fatal(err)
		}
		addrs[i] = addr
	}

	redeemScript, err := txscript.MultiSigScript(addrs, 1)
	if err != nil {
		t.Fatal(err)
	}
	scriptAddr, err := btcutil.NewAddressScriptHash(redeemScript, params)
	if err != nil {
		t.Fatal(err)
	}
	pkScript, err := txscript.PayToAddrScript(scriptAddr)
	if err != nil {
		t.Fatal(err)
	}

	return redeemScript, pkScript
}

func TestSignInputSatisfiesMultisig(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	signer, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	other, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	// the store knows the redeemScript and only the first key, like a
	// real pubkey channel output
	store := New()
	store.AddKey(signer)
	redeemScript, pkScript := multisigOutput(t, params, signer, other)
	store.AddScript(redeemScript)

	const value = int64(100000)
	spend := wire.NewMsgTx(wire.TxVersion)
	spend.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
	spend.AddTxOut(&wire.TxOut{Value: value - 1000})

	if err := store.SignInput(params, spend, 0, pkScript); err != nil {
		t.Fatal(err)
	}

	vm, err := txscript.NewEngine(
		pkScript, spend, 0, txscript.StandardVerifyFlags, nil, nil, value,
		txscript.NewCannedPrevOutputFetcher(pkScript, value),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.Execute(); err != nil {
		t.Errorf("signature script does not satisfy the output: %v", err)
	}
}

func TestSignInputWithoutScript(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	signer, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	other, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	store := New()
	store.AddKey(signer)
	_, pkScript := multisigOutput(t, params, signer, other)

	spend := wire.NewMsgTx(wire.TxVersion)
	spend.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
	spend.AddTxOut(&wire.TxOut{Value: 1000})

	if err := store.SignInput(params, spend, 0, pkScript); err == nil {
		t.Error("expected signing to fail without the redeemScript")
	}
}
