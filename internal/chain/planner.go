package chain

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/channel"
)

// maxScriptHash is the hard ceiling on P2SH outputs per transaction.
// When even this many cannot hold the remaining payload the chain grows
// by another link.
const maxScriptHash = 14

// Params is a planned transaction shape: how many P2SH outputs, whether
// a nulldata output is added, and the fee of the resulting transaction.
type Params struct {
	ScriptHash int
	Nulldata   int
	Fees       uint64
}

func dummyScriptHash() []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(make([]byte, 20)).
		AddOp(txscript.OP_EQUAL).
		Script()
	return script
}

func dummyNulldata() []byte {
	script, _ := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(make([]byte, 40)).
		Script()
	return script
}

// Plan sweeps the P2SH output count from the ceiling downwards and keeps
// the smallest count whose capacity still covers the remaining payload;
// smaller transactions cost less fee. The capacity bookkeeping follows
// the historical shape exactly, including deciding the nulldata output
// before its bits are counted.
func (b *Builder) Plan(tx *wire.MsgTx, remaining bits.Vector, budget uint64) Params {
	bitsFirstKey := b.Codec.SuffixBits
	bitsExtraKey := 255 - b.Codec.RandBits

	if len(remaining) == 0 {
		return Params{ScriptHash: 0, Nulldata: 0, Fees: b.Fee(tx)}
	}

	dummyA := dummyScriptHash()
	dummyB := dummyNulldata()

	var params Params
	nScriptHash := maxScriptHash
	for {
		tmp := tx.Copy()
		tmp.TxOut = nil

		for i := 0; i < nScriptHash; i++ {
			tmp.AddTxOut(&wire.TxOut{PkScript: dummyA})
		}

		total := nScriptHash * (bitsFirstKey + channel.MaxExtraPubkeys*bitsExtraKey)
		total += nScriptHash * channel.SeqNrBits

		nNulldata := 0
		if (nScriptHash == 1 && len(remaining) > total) || nScriptHash >= 2 {
			nNulldata = 1
			tmp.AddTxOut(&wire.TxOut{PkScript: dummyB})
			total += channel.NulldataBits
		}

		fees := b.Fee(tmp)

		if nScriptHash >= 2 {
			if budget >= fees {
				total += channel.EmbeddableBitsInValues(budget-fees, nScriptHash)
			}
			total += channel.EmbeddableBitsInPermutation(nScriptHash)
		}

		if total >= len(remaining) || nScriptHash == maxScriptHash {
			params = Params{ScriptHash: nScriptHash, Nulldata: nNulldata, Fees: fees}
			nScriptHash--
		}

		if !(total >= len(remaining) && nScriptHash > 0) {
			return params
		}
	}
}
