package channel

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
)

const (
	// ExtraPubkeyBits is the payload carried by each synthesized pubkey
	// with the default 5 random tail bits.
	ExtraPubkeyBits = 250

	// MaxExtraPubkeys caps the redeemScript at a 1-of-12 multisig,
	// below the standard-relay limit of 15 keys.
	MaxExtraPubkeys = 11

	// placeholderSigSize is the size of a maximal DER signature plus
	// sighash byte. Installed during embedding so fee estimation sees
	// final input sizes; Authorize replaces it with a real signature.
	placeholderSigSize = 72
)

// PackP2SH consumes payload bits into a 1-of-M multisig redeemScript:
// the first pubkey comes from the keypair table (its suffix carries s
// bits), every further pubkey is synthesized around 250 payload bits.
// The output is pointed at the script hash and the downstream input gets
// a size-stable placeholder signature script.
func (c *Codec) PackP2SH(params *chaincfg.Params, data *bits.Vector, txOut *wire.TxOut, next *wire.MsgTx, inputIdx int) error {
	/* embed data into the first, tabled pubkey */
	n := len(*data)
	if n > c.SuffixBits {
		n = c.SuffixBits
	}
	data.Pad(c.SuffixBits - n)

	slice, err := data.Slice(c.SuffixBits)
	if err != nil {
		return err
	}
	priv, err := c.Keymap.Lookup(slice)
	if err != nil {
		return err
	}
	c.Store.AddKey(priv)

	pubkeys := [][]byte{priv.PubKey().SerializeCompressed()}

	/* embed data into the remaining pubkeys */
	payloadWidth := 255 - c.RandBits
	extra := (len(*data) + payloadWidth - 1) / payloadWidth
	if extra > MaxExtraPubkeys {
		extra = MaxExtraPubkeys
	}

	for i := 0; i < extra; i++ {
		n = len(*data)
		if n > payloadWidth {
			n = payloadWidth
		}
		data.Pad(payloadWidth - n)

		slice, err = data.Slice(payloadWidth)
		if err != nil {
			return err
		}
		pub, err := EncodePubkey(slice, c.RandBits)
		if err != nil {
			return err
		}
		pubkeys = append(pubkeys, pub.SerializeCompressed())
	}

	/* assemble the redeemScript and point the output at its hash */
	addrs := make([]*btcutil.AddressPubKey, len(pubkeys))
	for i, pk := range pubkeys {
		addr, err := btcutil.NewAddressPubKey(pk, params)
		if err != nil {
			return err
		}
		addrs[i] = addr
	}

	redeemScript, err := txscript.MultiSigScript(addrs, 1)
	if err != nil {
		return err
	}
	c.Store.AddScript(redeemScript)

	scriptAddr, err := btcutil.NewAddressScriptHash(redeemScript, params)
	if err != nil {
		return err
	}
	pkScript, err := txscript.PayToAddrScript(scriptAddr)
	if err != nil {
		return err
	}
	txOut.PkScript = pkScript

	/* placeholder signature script keeps the size estimate stable */
	sigScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(make([]byte, placeholderSigSize)).
		AddData(redeemScript).
		Script()
	if err != nil {
		return err
	}
	next.TxIn[inputIdx].SignatureScript = sigScript

	return nil
}

// UnpackP2SH recovers the payload bits from a P2SH signature script: the
// suffix of the first pubkey in the revealed redeemScript, then the
// payload window of every further pubkey.
func (c *Codec) UnpackP2SH(txIn *wire.TxIn) (bits.Vector, error) {
	pushes, err := txscript.PushedData(txIn.SignatureScript)
	if err != nil {
		return nil, fmt.Errorf("%w: signature script: %v", ErrChannelDecode, err)
	}
	if len(pushes) == 0 {
		return nil, fmt.Errorf("%w: no redeemScript push", ErrChannelDecode)
	}

	redeemScript := pushes[len(pushes)-1]
	scriptPushes, err := txscript.PushedData(redeemScript)
	if err != nil {
		return nil, fmt.Errorf("%w: redeemScript: %v", ErrChannelDecode, err)
	}

	var pubkeys [][]byte
	for _, push := range scriptPushes {
		if len(push) == 33 {
			pubkeys = append(pubkeys, push)
		}
	}
	if len(pubkeys) == 0 {
		return nil, fmt.Errorf("%w: redeemScript holds no pubkeys", ErrChannelDecode)
	}

	expanded := bits.FromBytes(pubkeys[0])
	out := append(bits.Vector{}, expanded[len(expanded)-c.SuffixBits:]...)

	for _, pk := range pubkeys[1:] {
		slice, err := DecodePubkey(pk, c.RandBits)
		if err != nil {
			return nil, err
		}
		out = append(out, slice...)
	}

	return out, nil
}
