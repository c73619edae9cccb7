package channel

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/maths"
)

// EmbeddableBitsInPermutation returns the exact number of bits the claim
// order channel round-trips for k inputs: floor(log2 k!).
func EmbeddableBitsInPermutation(parts int) int {
	return maths.Factorial(parts).BitLen() - 1
}

// EncodePermutation maps the payload onto a permutation of {0..parts-1}.
func EncodePermutation(data bits.Vector, parts int) ([]uint16, error) {
	if parts < 2 {
		return nil, ErrWidthMismatch
	}
	if len(data) != EmbeddableBitsInPermutation(parts) {
		return nil, ErrWidthMismatch
	}

	return maths.PermutationUnrank(data.Int(), parts), nil
}

// DecodePermutation recovers the payload from a permutation, left padded
// to the channel width.
func DecodePermutation(perm []uint16) (bits.Vector, error) {
	if len(perm) < 2 {
		return nil, ErrChannelDecode
	}

	maxBits := EmbeddableBitsInPermutation(len(perm))
	data := bits.FromInt(maths.PermutationRank(perm))
	if len(data) > maxBits {
		return nil, ErrChannelDecode
	}

	padded := make(bits.Vector, maxBits-len(data), maxBits)
	return append(padded, data...), nil
}

// PackBudgetClaim consumes payload bits into the order in which the next
// transaction's inputs claim the previous outputs: input i spends
// previous output perm[i].
func PackBudgetClaim(data *bits.Vector, txIns []*wire.TxIn) error {
	parts := len(txIns)
	maxBits := EmbeddableBitsInPermutation(parts)

	n := len(*data)
	if n > maxBits {
		n = maxBits
	}

	slice, err := data.Slice(n)
	if err != nil {
		return err
	}
	slice.Pad(maxBits - n)

	perm, err := EncodePermutation(slice, parts)
	if err != nil {
		return err
	}
	for i := range txIns {
		txIns[i].PreviousOutPoint.Index = uint32(perm[i])
	}

	return nil
}

// UnpackBudgetClaim reads the channel bits back from the claim order.
func UnpackBudgetClaim(txIns []*wire.TxIn) (bits.Vector, error) {
	perm := make([]uint16, len(txIns))
	for i, txIn := range txIns {
		perm[i] = uint16(txIn.PreviousOutPoint.Index)
	}

	return DecodePermutation(perm)
}
