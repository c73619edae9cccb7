package chain

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/channel"
	"github.com/stegobit/bms/internal/keymap"
	"github.com/stegobit/bms/internal/keystore"
)

// stubService serves transactions from memory, standing in for the
// wallet RPC during tests.
type stubService struct {
	txs    map[chainhash.Hash]*wire.MsgTx
	blocks map[chainhash.Hash]struct {
		txids []*chainhash.Hash
		next  *chainhash.Hash
	}
	sent []*wire.MsgTx
}

func newStubService() *stubService {
	return &stubService{
		txs: make(map[chainhash.Hash]*wire.MsgTx),
		blocks: make(map[chainhash.Hash]struct {
			txids []*chainhash.Hash
			next  *chainhash.Hash
		}),
	}
}

func (s *stubService) SignRawTransaction(tx *wire.MsgTx) (*wire.MsgTx, bool, error) {
	return tx, true, nil
}

func (s *stubService) SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error) {
	hash := tx.TxHash()
	s.txs[hash] = tx
	s.sent = append(s.sent, tx)
	return &hash, nil
}

func (s *stubService) GetRawTransaction(txid *chainhash.Hash) (*wire.MsgTx, *chainhash.Hash, error) {
	tx, ok := s.txs[*txid]
	if !ok {
		return nil, nil, errors.New("no such transaction")
	}
	return tx, &chainhash.Hash{}, nil
}

func (s *stubService) GetBlock(blockHash *chainhash.Hash) ([]*chainhash.Hash, *chainhash.Hash, error) {
	block, ok := s.blocks[*blockHash]
	if !ok {
		return nil, nil, errors.New("no such block")
	}
	return block.txids, block.next, nil
}

var testKeymap *keymap.Table

func testBuilder(t *testing.T) (*Builder, *keystore.Store) {
	t.Helper()

	if testKeymap == nil {
		table, err := keymap.Generate(4)
		if err != nil {
			t.Fatal(err)
		}
		testKeymap = table
	}

	store := keystore.New()
	return &Builder{
		Codec: &channel.Codec{
			SuffixBits: 4,
			RandBits:   5,
			Keymap:     testKeymap,
			Store:      store,
		},
		Net:     &chaincfg.RegressionNetParams,
		FeeRate: 10000,
	}, store
}

func randomBits(rng *rand.Rand, n int) bits.Vector {
	v := make(bits.Vector, n)
	for i := range v {
		v[i] = rng.Intn(2) == 1
	}
	return v
}

func fundingOutPoint() wire.OutPoint {
	var hash chainhash.Hash
	hash[0] = 0xAA
	return wire.OutPoint{Hash: hash, Index: 0}
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(20))

	for _, n := range []int{1, 100, 2000, 8000} {
		builder, _ := testBuilder(t)
		original := randomBits(rng, n)

		txs, err := builder.Embed(original, 10000000, []wire.OutPoint{fundingOutPoint()}, nil)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}

		extracted, err := builder.Extract(txs)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(extracted) < n {
			t.Fatalf("n=%d: extracted only %d bits", n, len(extracted))
		}
		for i := 0; i < n; i++ {
			if extracted[i] != original[i] {
				t.Fatalf("n=%d: bit %d differs", n, i)
			}
		}
		for i := n; i < len(extracted); i++ {
			if extracted[i] {
				t.Fatalf("n=%d: trailing padding bit %d is set", n, i)
			}
		}
	}
}

func TestEmbedChainShape(t *testing.T) {
	builder, _ := testBuilder(t)
	rng := rand.New(rand.NewSource(21))

	txs, err := builder.Embed(randomBits(rng, 8000), 10000000, []wire.OutPoint{fundingOutPoint()}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(txs) < 2 {
		t.Fatalf("chain has %d transactions", len(txs))
	}

	terminator := txs[len(txs)-1]
	if len(terminator.TxOut) != 1 {
		t.Errorf("terminator has %d outputs, want 1", len(terminator.TxOut))
	}

	// every payload transaction's outputs must respect the dust floor,
	// except the zero valued nulldata output
	for i, tx := range txs[:len(txs)-1] {
		for j, out := range tx.TxOut {
			if out.Value == 0 && len(out.PkScript) == 42 {
				continue // nulldata
			}
			if out.Value < 546 {
				t.Errorf("transaction %d output %d below dust: %d", i, j, out.Value)
			}
		}
	}
}

func TestAuthorizeLinksChain(t *testing.T) {
	builder, store := testBuilder(t)
	svc := newStubService()
	rng := rand.New(rand.NewSource(22))

	txs, err := builder.Embed(randomBits(rng, 3000), 10000000, []wire.OutPoint{fundingOutPoint()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Authorize(txs, svc, store); err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(txs); i++ {
		prevHash := txs[i-1].TxHash()
		for j, txIn := range txs[i].TxIn {
			if txIn.PreviousOutPoint.Hash != prevHash {
				t.Errorf("transaction %d input %d does not reference its predecessor", i, j)
			}
			if len(txIn.SignatureScript) == 0 {
				t.Errorf("transaction %d input %d is unsigned", i, j)
			}
		}
	}
}

func TestExtractSurvivesAuthorization(t *testing.T) {
	builder, store := testBuilder(t)
	svc := newStubService()
	rng := rand.New(rand.NewSource(23))

	original := randomBits(rng, 4000)
	txs, err := builder.Embed(original, 10000000, []wire.OutPoint{fundingOutPoint()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Authorize(txs, svc, store); err != nil {
		t.Fatal(err)
	}

	extracted, err := builder.Extract(txs)
	if err != nil {
		t.Fatal(err)
	}
	for i := range original {
		if extracted[i] != original[i] {
			t.Fatalf("bit %d differs after authorization", i)
		}
	}
}

func TestReadBetween(t *testing.T) {
	builder, store := testBuilder(t)
	svc := newStubService()
	rng := rand.New(rand.NewSource(24))

	original := randomBits(rng, 5000)
	txs, err := builder.Embed(original, 10000000, []wire.OutPoint{fundingOutPoint()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Authorize(txs, svc, store); err != nil {
		t.Fatal(err)
	}
	if err := builder.Send(txs, svc); err != nil {
		t.Fatal(err)
	}

	first, last, err := txs.FirstLast()
	if err != nil {
		t.Fatal(err)
	}

	chains, err := ReadBetween(svc, first, last)
	if err != nil {
		t.Fatal(err)
	}
	if len(chains) != 1 {
		t.Fatalf("expected one message chain, got %d", len(chains))
	}
	if len(chains[0]) != len(txs) {
		t.Fatalf("walked chain has %d transactions, want %d", len(chains[0]), len(txs))
	}

	extracted, err := builder.Extract(chains[0])
	if err != nil {
		t.Fatal(err)
	}
	for i := range original {
		if extracted[i] != original[i] {
			t.Fatalf("bit %d differs after chain walk", i)
		}
	}
}

func TestReadForward(t *testing.T) {
	builder, store := testBuilder(t)
	svc := newStubService()
	rng := rand.New(rand.NewSource(25))

	original := randomBits(rng, 6000)
	txs, err := builder.Embed(original, 10000000, []wire.OutPoint{fundingOutPoint()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := builder.Authorize(txs, svc, store); err != nil {
		t.Fatal(err)
	}
	if err := builder.Send(txs, svc); err != nil {
		t.Fatal(err)
	}

	// mine the whole chain into the single block the stub serves
	var blockHash chainhash.Hash
	txids := make([]*chainhash.Hash, 0, len(txs))
	for _, tx := range txs {
		hash := tx.TxHash()
		txids = append(txids, &hash)
	}
	svc.blocks[blockHash] = struct {
		txids []*chainhash.Hash
		next  *chainhash.Hash
	}{txids: txids}

	first, _, err := txs.FirstLast()
	if err != nil {
		t.Fatal(err)
	}

	chains, err := ReadForward(svc, first, DefaultReadHorizon)
	if err != nil {
		t.Fatal(err)
	}
	if len(chains) != 1 {
		t.Fatalf("expected one message chain, got %d", len(chains))
	}
	if len(chains[0]) != len(txs) {
		t.Fatalf("forward walk found %d transactions, want %d", len(chains[0]), len(txs))
	}

	extracted, err := builder.Extract(chains[0])
	if err != nil {
		t.Fatal(err)
	}
	for i := range original {
		if extracted[i] != original[i] {
			t.Fatalf("bit %d differs after forward walk", i)
		}
	}
}

func TestReadBetweenBrokenLink(t *testing.T) {
	svc := newStubService()

	var begin, end chainhash.Hash
	end[0] = 0x01

	if _, err := ReadBetween(svc, begin, end); !errors.Is(err, ErrChainLinkBroken) {
		t.Errorf("expected ErrChainLinkBroken, got %v", err)
	}
}

func TestChainFeeSmallTransactions(t *testing.T) {
	builder, _ := testBuilder(t)

	a := wire.NewMsgTx(wire.TxVersion)
	a.AddTxOut(&wire.TxOut{Value: 1000, PkScript: dummyScriptHash()})
	b := wire.NewMsgTx(wire.TxVersion)
	b.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
	b.AddTxOut(&wire.TxOut{Value: 900})

	if a.SerializeSize() > 1000 || b.SerializeSize() > 1000 {
		t.Fatal("test transactions exceed one kilobyte")
	}
	if got := builder.ChainFee(Chain{a, b}); got != 2*builder.FeeRate {
		t.Errorf("chain fee = %d, want %d", got, 2*builder.FeeRate)
	}
}

func TestMinimumBudget(t *testing.T) {
	builder, _ := testBuilder(t)

	small, err := builder.MinimumBudget(10000)
	if err != nil {
		t.Fatal(err)
	}
	large, err := builder.MinimumBudget(40000)
	if err != nil {
		t.Fatal(err)
	}

	if small%builder.FeeRate != 0 {
		t.Errorf("minimum budget %d is not a fee rate multiple", small)
	}
	if large%builder.FeeRate != 0 {
		t.Errorf("minimum budget %d is not a fee rate multiple", large)
	}
	if large <= small {
		t.Errorf("a four times larger payload cannot be cheaper: %d <= %d", large, small)
	}
}

func TestPlanZeroBits(t *testing.T) {
	builder, _ := testBuilder(t)

	tx := wire.NewMsgTx(wire.TxVersion)
	params := builder.Plan(tx, nil, 1000000)
	if params.ScriptHash != 0 || params.Nulldata != 0 {
		t.Errorf("zero payload must plan an empty shape, got %+v", params)
	}
	if params.Fees != builder.Fee(tx) {
		t.Errorf("fees = %d, want %d", params.Fees, builder.Fee(tx))
	}
}

func TestPlanPrefersSmallestFit(t *testing.T) {
	builder, _ := testBuilder(t)

	// a tiny payload must not get the maximum transaction shape
	tx := wire.NewMsgTx(wire.TxVersion)
	params := builder.Plan(tx, make(bits.Vector, 8), 10000000)
	if params.ScriptHash != 1 {
		t.Errorf("8 bits planned %d script hash outputs", params.ScriptHash)
	}
}
