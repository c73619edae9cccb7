package huffman

// The default code table is trained on an English sample. Symbols the
// sample never uses still need a codeword, so every alphabet symbol is
// given a floor frequency of one before the tree is built.
const trainingCorpus = `The quick brown fox jumps over the lazy dog while
1234567890 ships sailed past the harbour wall. It was a bright cold day
in April, and the clocks were striking thirteen; nobody came, nobody
went, and the messages kept moving quietly from block to block. Prices
rose by 2.5% (then fell again), questions were asked: who signs what,
which keys matter, and why? ALL UPPER CASE HEADLINES SHOUTED BACK.
"Nothing to see here," they wrote, "carry on." The ledger does not
forget; it only appends. Numbers like 31337 and 42 appear more often
than one would expect, and the occasional #tag or @handle slips in too.
`

// Alphabet lists every symbol of the restricted alphabet, EoF included.
func Alphabet() []byte {
	syms := []byte{EoF, 0x0A}
	for b := byte(0x20); b <= 0x5A; b++ {
		syms = append(syms, b)
	}
	for b := byte(0x61); b <= 0x7A; b++ {
		syms = append(syms, b)
	}
	return syms
}

// DefaultTable builds the code table from the embedded training sample.
// Used once to seed the persisted table when none exists on disk.
func DefaultTable() *CodeTable {
	frequencies := CountFrequencies(FilterAlphabet([]byte(trainingCorpus)))
	for _, sym := range Alphabet() {
		if frequencies[sym] == 0 {
			frequencies[sym] = 1
		}
	}
	return GenerateCodes(frequencies)
}
