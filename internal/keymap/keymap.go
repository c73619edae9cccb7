// Package keymap maintains the keypair table: one private key per n-bit
// public key suffix. The first pubkey of every redeemScript is drawn from
// this table, so the reader can recover the suffix bits and the writer
// can still sign the spend.
package keymap

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/stegobit/bms/internal/bits"
)

var (
	ErrKeypairGenFailed = errors.New("keypair generation did not fill the table")
	ErrNoKeypair        = errors.New("no keypair for suffix")
	ErrBadSuffix        = errors.New("suffix width does not match the table")
)

// Table maps every n-bit pubkey suffix to a private key whose compressed
// public key ends in exactly those bits. Immutable once loaded.
type Table struct {
	suffixBits int
	keys       map[string]*btcec.PrivateKey
}

// New creates an empty table for the given suffix width.
func New(suffixBits int) *Table {
	return &Table{
		suffixBits: suffixBits,
		keys:       make(map[string]*btcec.PrivateKey, 1<<uint(suffixBits)),
	}
}

// SuffixBits returns the table's suffix width.
func (t *Table) SuffixBits() int { return t.suffixBits }

// Len returns the number of filled suffix slots.
func (t *Table) Len() int { return len(t.keys) }

// Complete reports whether every suffix pattern has a key.
func (t *Table) Complete() bool { return len(t.keys) == 1<<uint(t.suffixBits) }

// Suffix extracts the trailing n bits of a compressed public key.
func Suffix(pub *btcec.PublicKey, n int) bits.Vector {
	serialized := bits.FromBytes(pub.SerializeCompressed())
	return serialized[len(serialized)-n:]
}

func bitKey(v bits.Vector) string {
	key := make([]byte, len(v))
	for i, bit := range v {
		if bit {
			key[i] = '1'
		} else {
			key[i] = '0'
		}
	}
	return string(key)
}

// Add indexes a private key under its pubkey suffix. Returns false when
// the slot was already taken.
func (t *Table) Add(priv *btcec.PrivateKey) bool {
	key := bitKey(Suffix(priv.PubKey(), t.suffixBits))
	if _, taken := t.keys[key]; taken {
		return false
	}
	t.keys[key] = priv
	return true
}

// Lookup returns the private key indexed under the given suffix bits.
func (t *Table) Lookup(suffix bits.Vector) (*btcec.PrivateKey, error) {
	if len(suffix) != t.suffixBits {
		return nil, ErrBadSuffix
	}
	priv, ok := t.keys[bitKey(suffix)]
	if !ok {
		return nil, ErrNoKeypair
	}
	return priv, nil
}

// Range calls fn for every (suffix, key) entry until fn returns false.
func (t *Table) Range(fn func(suffix bits.Vector, priv *btcec.PrivateKey) bool) {
	for key, priv := range t.keys {
		suffix := make(bits.Vector, len(key))
		for i := range key {
			suffix[i] = key[i] == '1'
		}
		if !fn(suffix, priv) {
			return
		}
	}
}

// Generate fills a table by rejection sampling: draw random keys and
// index them by pubkey suffix until all 2^n slots are taken. The attempt
// budget is far above the coupon collector expectation, running out of
// it means the random source is broken.
func Generate(suffixBits int) (*Table, error) {
	table := New(suffixBits)

	maxAttempts := (1 << uint(suffixBits)) * 4096
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if table.Complete() {
			return table, nil
		}

		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, err
		}
		table.Add(priv)
	}

	if !table.Complete() {
		return nil, ErrKeypairGenFailed
	}
	return table, nil
}
