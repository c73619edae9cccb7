package channel

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/maths"
)

// EmbeddableBitsInValues returns the exact number of bits the value
// split channel round-trips for a budget of n over k outputs:
// floor(log2 of the number of weak compositions).
func EmbeddableBitsInValues(n uint64, k int) int {
	return maths.Compositions(n, k).BitLen() - 1
}

// EncodeValues maps the payload onto a weak composition of budget into
// parts. The payload length must equal the channel width exactly.
func EncodeValues(data bits.Vector, budget uint64, parts int) ([]uint64, error) {
	if parts < 2 {
		return nil, ErrWidthMismatch
	}
	if len(data) != EmbeddableBitsInValues(budget, parts) {
		return nil, ErrWidthMismatch
	}

	return maths.CompositionUnrank(data.Int(), budget, parts), nil
}

// DecodeValues recovers the payload from a composition, left padded to
// the channel width of the composition's own sum.
func DecodeValues(values []uint64) (bits.Vector, error) {
	if len(values) < 2 {
		return nil, ErrChannelDecode
	}

	var budget uint64
	for _, v := range values {
		budget += v
	}

	maxBits := EmbeddableBitsInValues(budget, len(values))
	data := bits.FromInt(maths.CompositionRank(values))
	if len(data) > maxBits {
		return nil, ErrChannelDecode
	}

	padded := make(bits.Vector, maxBits-len(data), maxBits)
	return append(padded, data...), nil
}

// PackBudgetSplit consumes payload bits into the values of the given
// outputs. Every output keeps at least lbound satoshi so the resulting
// transaction stays above the dust threshold.
func PackBudgetSplit(data *bits.Vector, txOuts []*wire.TxOut, budget, lbound uint64) error {
	parts := len(txOuts)
	if budget < uint64(parts)*lbound {
		return ErrBudgetTooLow
	}

	maxBits := EmbeddableBitsInValues(budget-uint64(parts)*lbound, parts)
	n := len(*data)
	if n > maxBits {
		n = maxBits
	}

	slice, err := data.Slice(n)
	if err != nil {
		return err
	}
	slice.Pad(maxBits - n)

	values, err := EncodeValues(slice, budget-uint64(parts)*lbound, parts)
	if err != nil {
		return err
	}
	for i := range txOuts {
		txOuts[i].Value = int64(values[i] + lbound)
	}

	return nil
}

// UnpackBudgetSplit reads the channel bits back from output values.
func UnpackBudgetSplit(txOuts []*wire.TxOut, lbound uint64) (bits.Vector, error) {
	values := make([]uint64, len(txOuts))
	for i, out := range txOuts {
		if uint64(out.Value) < lbound {
			return nil, ErrChannelDecode
		}
		values[i] = uint64(out.Value) - lbound
	}

	return DecodeValues(values)
}
