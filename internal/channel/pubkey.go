package channel

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/keymap"
)

// CompressedPubkeyBits is the bit width of a serialized compressed
// public key.
const CompressedPubkeyBits = 33 * 8

// maxPointAttempts bounds the rejection sampling of a single pubkey.
// With 5 retried bits the odds of exhausting it are astronomically low.
const maxPointAttempts = 4096

// EncodePubkey synthesizes a compressed public key whose serialization
// carries the payload: the 0x02 prefix byte, one zero bit, 255-randBits
// payload bits and randBits random bits, resampled until the encoding is
// a valid curve point.
func EncodePubkey(data bits.Vector, randBits int) (*btcec.PublicKey, error) {
	if len(data) != 255-randBits {
		return nil, ErrWidthMismatch
	}

	fixed := make(bits.Vector, 0, CompressedPubkeyBits)
	fixed = append(fixed, bits.FromByte(0x02)...)
	fixed = append(fixed, false)
	fixed = append(fixed, data...)

	for attempt := 0; attempt < maxPointAttempts; attempt++ {
		random, err := bits.Random(randBits)
		if err != nil {
			return nil, err
		}

		candidate := append(fixed[:len(fixed):len(fixed)], random...)
		raw, err := candidate.Bytes()
		if err != nil {
			return nil, err
		}

		pub, err := btcec.ParsePubKey(raw)
		if err == nil {
			return pub, nil
		}
	}

	return nil, keymap.ErrKeypairGenFailed
}

// DecodePubkey recovers the payload bits from a serialized compressed
// public key: everything between the 9 fixed leading bits and the
// randBits random trailing bits.
func DecodePubkey(serialized []byte, randBits int) (bits.Vector, error) {
	if len(serialized) != 33 {
		return nil, ErrChannelDecode
	}

	expanded := bits.FromBytes(serialized)
	return expanded[9 : CompressedPubkeyBits-randBits], nil
}
