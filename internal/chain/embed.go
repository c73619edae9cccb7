package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/channel"
	"github.com/stegobit/bms/internal/config"
)

// Embed builds the transaction chain carrying data. The supplied prevOuts
// fund the first transaction; whatever the fees leave of budget flows
// through the chain and ends up in a final change output paying
// changeScript. The returned chain still needs Authorize before it can
// be broadcast.
func (b *Builder) Embed(data bits.Vector, budget uint64, prevOuts []wire.OutPoint, changeScript []byte) (Chain, error) {
	txs := Chain{wire.NewMsgTx(wire.TxVersion), wire.NewMsgTx(wire.TxVersion)}

	remaining := make(bits.Vector, len(data))
	copy(remaining, data)

	for i := range prevOuts {
		txs[0].AddTxIn(wire.NewTxIn(&prevOuts[i], nil, nil))
	}

	idx := 0
	for {
		if len(txs) > maxChainDepth {
			return nil, fmt.Errorf("%w: %d transactions", ErrCapacityExceeded, len(txs))
		}

		params := b.Plan(txs[idx], remaining, budget)
		k := params.ScriptHash

		/* placeholder outputs and downstream inputs, claim order identity */
		for i := 0; i < k; i++ {
			txs[idx].TxOut = append([]*wire.TxOut{{}}, txs[idx].TxOut...)
			txs[idx+1].TxIn = append([]*wire.TxIn{{Sequence: wire.MaxTxInSequenceNum}}, txs[idx+1].TxIn...)
		}
		for j := 0; j < k; j++ {
			txs[idx+1].TxIn[j].PreviousOutPoint.Index = uint32(j)
		}

		/* value split over the outputs, claim order over the inputs */
		switch {
		case len(txs[idx].TxOut) == 1:
			txs[idx].TxOut[0].Value = int64(budget - params.Fees)
			txs[idx+1].TxIn[0].PreviousOutPoint.Index = 0
		case len(txs[idx].TxOut) >= 2:
			if budget >= params.Fees {
				err := channel.PackBudgetSplit(&remaining, txs[idx].TxOut, budget-params.Fees, config.DustThreshold)
				if err != nil {
					return nil, err
				}
			}
			if err := channel.PackBudgetClaim(&remaining, txs[idx+1].TxIn); err != nil {
				return nil, err
			}
		}

		if params.Nulldata == 1 {
			out := &wire.TxOut{}
			txs[idx].AddTxOut(out)
			if err := channel.PackNulldata(&remaining, out); err != nil {
				return nil, err
			}
		}

		/* pubkey and sequence number channels, in claim order */
		for j := 0; j < k; j++ {
			n := txs[idx+1].TxIn[j].PreviousOutPoint.Index
			if err := b.Codec.PackP2SH(b.Net, &remaining, txs[idx].TxOut[n], txs[idx+1], j); err != nil {
				return nil, err
			}
			if err := channel.PackSeqNr(&remaining, txs[idx+1].TxIn[j]); err != nil {
				return nil, err
			}
		}

		budget -= params.Fees

		if len(remaining) == 0 {
			break
		}
		txs = append(txs, wire.NewMsgTx(wire.TxVersion))
		idx++
	}

	/* terminator: a single change output over what the fees left */
	params := b.Plan(txs[idx+1], nil, budget)
	txs[idx+1].AddTxOut(&wire.TxOut{
		Value:    int64(budget) - int64(params.Fees),
		PkScript: changeScript,
	})

	return txs, nil
}
