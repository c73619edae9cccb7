package channel

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/bits"
)

// SeqNrBits is the width of the sequence number channel.
const SeqNrBits = 32

// EncodeSequenceNr converts exactly 32 bits into a sequence number.
func EncodeSequenceNr(data bits.Vector) (uint32, error) {
	if len(data) != SeqNrBits {
		return 0, ErrWidthMismatch
	}

	buf, err := data.Bytes()
	if err != nil {
		return 0, err
	}

	var seqNr uint32
	seqNr |= uint32(buf[0]) << 24
	seqNr |= uint32(buf[1]) << 16
	seqNr |= uint32(buf[2]) << 8
	seqNr |= uint32(buf[3])

	return seqNr, nil
}

// DecodeSequenceNr converts a sequence number back into 32 bits.
func DecodeSequenceNr(seqNr uint32) bits.Vector {
	return bits.FromBytes([]byte{
		byte(seqNr >> 24),
		byte(seqNr >> 16),
		byte(seqNr >> 8),
		byte(seqNr),
	})
}

// PackSeqNr consumes up to 32 bits into the input's sequence number.
func PackSeqNr(data *bits.Vector, txIn *wire.TxIn) error {
	n := len(*data)
	if n > SeqNrBits {
		n = SeqNrBits
	}
	data.Pad(SeqNrBits - n)

	slice, err := data.Slice(SeqNrBits)
	if err != nil {
		return err
	}

	seqNr, err := EncodeSequenceNr(slice)
	if err != nil {
		return err
	}
	txIn.Sequence = seqNr

	return nil
}

// UnpackSeqNr reads the 32 channel bits back out of an input.
func UnpackSeqNr(txIn *wire.TxIn) bits.Vector {
	return DecodeSequenceNr(txIn.Sequence)
}
