// Package huffman implements the payload compression layer: a Huffman
// code over a restricted text alphabet, terminated by an in-band EoF
// symbol so the bit stream needs no length header.
package huffman

import (
	"container/heap"
	"errors"
	"sort"

	"github.com/stegobit/bms/internal/bits"
)

// EoF terminates every compressed stream. It is a regular symbol of the
// code table.
const EoF byte = 0x03

var (
	ErrUnknownSymbol = errors.New("symbol has no codeword in the table")
	ErrNoEoF         = errors.New("compressed stream ended without EoF")
	ErrBadCodeword   = errors.New("accumulated prefix exceeds every codeword")
)

// ValidSymbol reports whether b belongs to the restricted alphabet:
// newline, space through 'Z', and the lower case latin letters.
func ValidSymbol(b byte) bool {
	switch {
	case b == 0x0A:
		return true
	case 0x20 <= b && b <= 0x5A:
		return true
	case 0x61 <= b && b <= 0x7A:
		return true
	}
	return false
}

// FilterAlphabet strips every byte outside the restricted alphabet.
func FilterAlphabet(text []byte) []byte {
	out := make([]byte, 0, len(text))
	for _, b := range text {
		if ValidSymbol(b) {
			out = append(out, b)
		}
	}
	return out
}

// CountFrequencies computes the per-symbol frequency distribution.
func CountFrequencies(text []byte) map[byte]int {
	frequencies := make(map[byte]int)
	for _, b := range text {
		frequencies[b]++
	}
	return frequencies
}

// CodeTable is the bijection between symbols and codewords. Encoder and
// decoder must load the same persisted table.
type CodeTable struct {
	codes   map[byte]bits.Vector
	symbols map[string]byte
	maxLen  int
}

// NewCodeTable assembles a table from symbol to codeword assignments.
func NewCodeTable(codes map[byte]bits.Vector) *CodeTable {
	t := &CodeTable{
		codes:   make(map[byte]bits.Vector, len(codes)),
		symbols: make(map[string]byte, len(codes)),
	}
	for sym, code := range codes {
		t.set(sym, code)
	}
	return t
}

func (t *CodeTable) set(sym byte, code bits.Vector) {
	t.codes[sym] = code
	t.symbols[codeKey(code)] = sym
	if len(code) > t.maxLen {
		t.maxLen = len(code)
	}
}

// Code returns the codeword for a symbol.
func (t *CodeTable) Code(sym byte) (bits.Vector, bool) {
	code, ok := t.codes[sym]
	return code, ok
}

// Symbols returns the coded symbols in ascending order.
func (t *CodeTable) Symbols() []byte {
	syms := make([]byte, 0, len(t.codes))
	for sym := range t.codes {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}

// Len returns the number of coded symbols.
func (t *CodeTable) Len() int {
	return len(t.codes)
}

// Range calls fn for every symbol and codeword in ascending symbol order
// until fn returns false.
func (t *CodeTable) Range(fn func(sym byte, code bits.Vector) bool) {
	for _, sym := range t.Symbols() {
		if !fn(sym, t.codes[sym]) {
			return
		}
	}
}

func codeKey(code bits.Vector) string {
	key := make([]byte, len(code))
	for i, bit := range code {
		if bit {
			key[i] = '1'
		} else {
			key[i] = '0'
		}
	}
	return string(key)
}

// The tree nodes live in an arena and reference each other by index.
// Ties in the build queue break on insertion sequence, which makes a
// given frequency map always produce the same code.
type node struct {
	freq   int
	seq    int
	symbol byte
	leaf   bool
	left   int
	right  int
}

type nodeQueue struct {
	arena *[]node
	items []int
}

func (q nodeQueue) Len() int { return len(q.items) }
func (q nodeQueue) Less(i, j int) bool {
	a, b := (*q.arena)[q.items[i]], (*q.arena)[q.items[j]]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	return a.seq < b.seq
}
func (q nodeQueue) Swap(i, j int)       { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *nodeQueue) Push(x interface{}) { q.items = append(q.items, x.(int)) }
func (q *nodeQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	x := old[n-1]
	q.items = old[:n-1]
	return x
}

// GenerateCodes builds the Huffman code for a frequency distribution.
// Leaves enter the queue in ascending symbol order.
func GenerateCodes(frequencies map[byte]int) *CodeTable {
	symbols := make([]byte, 0, len(frequencies))
	for sym := range frequencies {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	arena := make([]node, 0, 2*len(symbols))
	queue := &nodeQueue{arena: &arena}
	for _, sym := range symbols {
		arena = append(arena, node{
			freq:   frequencies[sym],
			seq:    len(arena),
			symbol: sym,
			leaf:   true,
		})
		queue.items = append(queue.items, len(arena)-1)
	}
	heap.Init(queue)

	for queue.Len() > 1 {
		left := heap.Pop(queue).(int)
		right := heap.Pop(queue).(int)

		arena = append(arena, node{
			freq:  arena[left].freq + arena[right].freq,
			seq:   len(arena),
			left:  left,
			right: right,
		})
		heap.Push(queue, len(arena)-1)
	}

	codes := make(map[byte]bits.Vector, len(symbols))
	if queue.Len() == 1 {
		assignCodes(arena, queue.items[0], nil, codes)
	}

	return NewCodeTable(codes)
}

func assignCodes(arena []node, idx int, prefix bits.Vector, codes map[byte]bits.Vector) {
	n := arena[idx]
	if n.leaf {
		code := make(bits.Vector, len(prefix))
		copy(code, prefix)
		codes[n.symbol] = code
		return
	}
	assignCodes(arena, n.left, append(prefix, false), codes)
	assignCodes(arena, n.right, append(prefix[:len(prefix):len(prefix)], true), codes)
}

// Compress emits the codeword for every byte and terminates the stream
// with the EoF codeword.
func Compress(data []byte, table *CodeTable) (bits.Vector, error) {
	var out bits.Vector
	for _, b := range data {
		code, ok := table.Code(b)
		if !ok {
			return nil, ErrUnknownSymbol
		}
		out = append(out, code...)
	}

	code, ok := table.Code(EoF)
	if !ok {
		return nil, ErrUnknownSymbol
	}
	out = append(out, code...)

	return out, nil
}

// Decompress accumulates codewords until the EoF symbol appears. Bits
// after EoF are channel padding and are discarded.
func Decompress(stream bits.Vector, table *CodeTable) ([]byte, error) {
	var out []byte
	var prefix bits.Vector

	for _, bit := range stream {
		prefix = append(prefix, bit)
		if len(prefix) > table.maxLen {
			return nil, ErrBadCodeword
		}

		sym, ok := table.symbols[codeKey(prefix)]
		if !ok {
			continue
		}
		if sym == EoF {
			return out, nil
		}
		out = append(out, sym)
		prefix = prefix[:0]
	}

	return nil, ErrNoEoF
}
