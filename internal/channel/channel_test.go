package channel

import (
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/keymap"
	"github.com/stegobit/bms/internal/keystore"
)

func randomBits(rng *rand.Rand, n int) bits.Vector {
	v := make(bits.Vector, n)
	for i := range v {
		v[i] = rng.Intn(2) == 1
	}
	return v
}

func vectorsEqual(a, b bits.Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSeqNrRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(10))

	for i := 0; i < 200; i++ {
		original := randomBits(rng, 1+rng.Intn(32))
		padded := append(bits.Vector{}, original...)
		padded.Pad(32 - len(original))

		payload := append(bits.Vector{}, padded...)
		txIn := &wire.TxIn{}
		if err := PackSeqNr(&payload, txIn); err != nil {
			t.Fatal(err)
		}
		if len(payload) != 0 {
			t.Fatalf("expected the payload to be consumed, %d bits left", len(payload))
		}

		if got := UnpackSeqNr(txIn); !vectorsEqual(got, padded) {
			t.Fatalf("iteration %d: round trip mismatch", i)
		}
	}
}

func TestNulldataRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 100; i++ {
		original := randomBits(rng, 1+rng.Intn(320))
		padded := append(bits.Vector{}, original...)
		padded.Pad(320 - len(original))

		payload := append(bits.Vector{}, padded...)
		txOut := &wire.TxOut{}
		if err := PackNulldata(&payload, txOut); err != nil {
			t.Fatal(err)
		}
		if txOut.Value != 0 {
			t.Fatal("nulldata output must carry no value")
		}

		got, err := UnpackNulldata(txOut)
		if err != nil {
			t.Fatal(err)
		}
		if !vectorsEqual(got, padded) {
			t.Fatalf("iteration %d: round trip mismatch", i)
		}
	}
}

func TestPubkeyRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(12))

	for s := 1; s <= 250; s += 7 {
		original := randomBits(rng, s)

		pub, err := EncodePubkey(original, 255-s)
		if err != nil {
			t.Fatalf("s=%d: %v", s, err)
		}

		serialized := pub.SerializeCompressed()
		if serialized[0] != 0x02 {
			t.Fatalf("s=%d: prefix byte %#02x", s, serialized[0])
		}

		got, err := DecodePubkey(serialized, 255-s)
		if err != nil {
			t.Fatal(err)
		}
		if !vectorsEqual(got, original) {
			t.Fatalf("s=%d: round trip mismatch", s)
		}
	}
}

func TestBudgetSplitRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(13))

	for k := 2; k <= 20; k += 3 {
		budget := uint64(k)*546 + 100000 + uint64(rng.Intn(1000000))
		width := EmbeddableBitsInValues(budget-uint64(k)*546, k)
		original := randomBits(rng, width)

		payload := append(bits.Vector{}, original...)
		txOuts := make([]*wire.TxOut, k)
		for i := range txOuts {
			txOuts[i] = &wire.TxOut{}
		}

		if err := PackBudgetSplit(&payload, txOuts, budget, 546); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}

		var total uint64
		for _, out := range txOuts {
			if out.Value < 546 {
				t.Fatalf("k=%d: output below dust: %d", k, out.Value)
			}
			total += uint64(out.Value)
		}
		if total != budget {
			t.Fatalf("k=%d: outputs sum to %d, want %d", k, total, budget)
		}

		got, err := UnpackBudgetSplit(txOuts, 546)
		if err != nil {
			t.Fatal(err)
		}
		if !vectorsEqual(got, original) {
			t.Fatalf("k=%d: round trip mismatch", k)
		}
	}
}

func TestBudgetClaimRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(14))

	for k := 2; k <= 20; k++ {
		width := EmbeddableBitsInPermutation(k)
		original := randomBits(rng, width)

		payload := append(bits.Vector{}, original...)
		txIns := make([]*wire.TxIn, k)
		for i := range txIns {
			txIns[i] = &wire.TxIn{}
		}

		if err := PackBudgetClaim(&payload, txIns); err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}

		seen := make(map[uint32]bool)
		for _, txIn := range txIns {
			idx := txIn.PreviousOutPoint.Index
			if idx >= uint32(k) || seen[idx] {
				t.Fatalf("k=%d: claim order is not a permutation", k)
			}
			seen[idx] = true
		}

		got, err := UnpackBudgetClaim(txIns)
		if err != nil {
			t.Fatal(err)
		}
		if !vectorsEqual(got, original) {
			t.Fatalf("k=%d: round trip mismatch", k)
		}
	}
}

func TestEmbeddableBitsValues(t *testing.T) {
	cases := []struct {
		n    uint64
		k    int
		want int
	}{
		{100000000, 20, 448},
		{1000000000000000, 39, 1744},
	}
	for _, c := range cases {
		if got := EmbeddableBitsInValues(c.n, c.k); got != c.want {
			t.Errorf("EmbeddableBitsInValues(%d, %d) = %d, want %d", c.n, c.k, got, c.want)
		}
	}
}

func TestEmbeddableBitsPermutation(t *testing.T) {
	cases := []struct {
		k    int
		want int
	}{
		{15, 40},
		{90, 458},
	}
	for _, c := range cases {
		if got := EmbeddableBitsInPermutation(c.k); got != c.want {
			t.Errorf("EmbeddableBitsInPermutation(%d) = %d, want %d", c.k, got, c.want)
		}
	}
}

func newTestCodec(t *testing.T, suffixBits int) *Codec {
	t.Helper()
	table, err := keymap.Generate(suffixBits)
	if err != nil {
		t.Fatal(err)
	}
	return &Codec{
		SuffixBits: suffixBits,
		RandBits:   5,
		Keymap:     table,
		Store:      keystore.New(),
	}
}

func TestP2SHRoundTrip(t *testing.T) {
	codec := newTestCodec(t, 4)
	rng := rand.New(rand.NewSource(15))
	params := &chaincfg.RegressionNetParams

	for _, n := range []int{1, 4, 254, 504, 2754} {
		original := randomBits(rng, n)

		payload := append(bits.Vector{}, original...)
		txOut := &wire.TxOut{}
		next := wire.NewMsgTx(wire.TxVersion)
		next.AddTxIn(&wire.TxIn{})

		if err := codec.PackP2SH(params, &payload, txOut, next, 0); err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(payload) != 0 {
			t.Fatalf("n=%d: %d bits left unconsumed", n, len(payload))
		}

		got, err := codec.UnpackP2SH(next.TxIn[0])
		if err != nil {
			t.Fatal(err)
		}

		// the channel pads to its own width, the prefix must survive
		if len(got) < n {
			t.Fatalf("n=%d: decoded only %d bits", n, len(got))
		}
		if !vectorsEqual(got[:n], original) {
			t.Fatalf("n=%d: payload prefix mismatch", n)
		}
		for _, bit := range got[n:] {
			if bit {
				t.Fatalf("n=%d: padding bits are not zero", n)
			}
		}
	}
}

func TestP2SHOutputScriptShape(t *testing.T) {
	codec := newTestCodec(t, 4)
	rng := rand.New(rand.NewSource(16))
	params := &chaincfg.RegressionNetParams

	payload := randomBits(rng, 600)
	txOut := &wire.TxOut{}
	next := wire.NewMsgTx(wire.TxVersion)
	next.AddTxIn(&wire.TxIn{})

	if err := codec.PackP2SH(params, &payload, txOut, next, 0); err != nil {
		t.Fatal(err)
	}

	// OP_HASH160 <20 bytes> OP_EQUAL
	if len(txOut.PkScript) != 23 {
		t.Errorf("expected a 23 byte P2SH script, got %d", len(txOut.PkScript))
	}
}
