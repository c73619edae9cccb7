package channel

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
)

// NulldataBits is the width of the OP_RETURN channel: 40 bytes, the
// standard-relay limit for nulldata payloads.
const NulldataBits = 320

// PackNulldata consumes up to 320 bits into an unspendable OP_RETURN
// output with value zero.
func PackNulldata(data *bits.Vector, txOut *wire.TxOut) error {
	n := len(*data)
	if n > NulldataBits {
		n = NulldataBits
	}
	data.Pad(NulldataBits - n)

	slice, err := data.Slice(NulldataBits)
	if err != nil {
		return err
	}
	payload, err := slice.Bytes()
	if err != nil {
		return err
	}

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(payload).
		Script()
	if err != nil {
		return err
	}

	txOut.PkScript = script
	txOut.Value = 0

	return nil
}

// UnpackNulldata reads the 320 channel bits back out of an OP_RETURN
// output script.
func UnpackNulldata(txOut *wire.TxOut) (bits.Vector, error) {
	// OP_RETURN, OP_DATA_40, 40 payload bytes
	if len(txOut.PkScript) != 42 || txOut.PkScript[0] != txscript.OP_RETURN {
		return nil, ErrChannelDecode
	}

	return bits.FromBytes(txOut.PkScript[2:]), nil
}
