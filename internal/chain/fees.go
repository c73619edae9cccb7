package chain

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
)

// Fee computes the fee of a single transaction: the configured rate per
// started kilobyte of consensus serialization.
func (b *Builder) Fee(tx *wire.MsgTx) uint64 {
	size := uint64(tx.SerializeSize())
	return b.FeeRate * ((size + 999) / 1000)
}

// ChainFee sums the fees of every transaction in the chain.
func (b *Builder) ChainFee(txs Chain) uint64 {
	var fee uint64
	for _, tx := range txs {
		fee += b.Fee(tx)
	}
	return fee
}

// MinimumBudget computes the satoshi needed to embed nBits of payload:
// the fees of a dry-run chain over a zero payload of that size, plus two
// fee units of slack for the real chain's value outputs.
func (b *Builder) MinimumBudget(nBits int) (uint64, error) {
	txs, err := b.Embed(make(bits.Vector, nBits), 0, nil, nil)
	if err != nil {
		return 0, err
	}
	return b.ChainFee(txs) + 2*b.FeeRate, nil
}
