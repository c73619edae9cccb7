// Package channel implements the four covert channels data travels
// through: input sequence numbers, P2SH multisig public keys, the
// combinatorial split of the budget over output values, and the order in
// which the next transaction claims those outputs.
//
// Encoders consume bits from the front of a shared vector and pad with
// zeros when the payload falls short of the channel width. Decoders
// return exactly the channel width.
package channel

import (
	"errors"

	"github.com/stegobit/bms/internal/keymap"
	"github.com/stegobit/bms/internal/keystore"
)

var (
	ErrChannelDecode = errors.New("channel decode failed")
	ErrWidthMismatch = errors.New("payload does not match channel width")
	ErrBudgetTooLow  = errors.New("budget below the dust floor of the outputs")
)

// Codec carries the process-wide dependencies of the channels. Explicit
// wiring keeps the channels testable without global state.
type Codec struct {
	// SuffixBits is the keypair table suffix width s.
	SuffixBits int
	// RandBits is r, the random tail bits of synthesized pubkeys.
	RandBits int

	Keymap *keymap.Table
	Store  *keystore.Store
}
