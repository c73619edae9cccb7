package chain

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/channel"
	"github.com/stegobit/bms/internal/config"
)

// Extract walks a chain and reads every channel back in the exact order
// the builder filled them. The result may end in zero padding from the
// last channel's alignment; the compression layer stops at EoF.
func (b *Builder) Extract(txs Chain) (bits.Vector, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyChain
	}

	var out bits.Vector

	for idx := 0; idx < len(txs)-1; idx++ {
		nNulldata := 0
		if len(txs[idx].TxOut) >= 2 {
			nNulldata = 1
		}
		nScriptHash := len(txs[idx].TxOut) - nNulldata

		outs := txs[idx].TxOut
		var nulldataOut *wire.TxOut
		if nNulldata == 1 {
			nulldataOut = outs[len(outs)-1]
			outs = outs[:len(outs)-1]
		}

		if nScriptHash >= 2 {
			slice, err := channel.UnpackBudgetSplit(outs, config.DustThreshold)
			if err != nil {
				return nil, err
			}
			out = append(out, slice...)

			slice, err = channel.UnpackBudgetClaim(txs[idx+1].TxIn)
			if err != nil {
				return nil, err
			}
			out = append(out, slice...)
		}

		if nNulldata == 1 {
			slice, err := channel.UnpackNulldata(nulldataOut)
			if err != nil {
				return nil, err
			}
			out = append(out, slice...)
		}

		for j := 0; j < nScriptHash; j++ {
			slice, err := b.Codec.UnpackP2SH(txs[idx+1].TxIn[j])
			if err != nil {
				return nil, err
			}
			out = append(out, slice...)

			out = append(out, channel.UnpackSeqNr(txs[idx+1].TxIn[j])...)
		}
	}

	return out, nil
}
