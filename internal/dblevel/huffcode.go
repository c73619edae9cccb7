package dblevel

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/huffman"
	"github.com/stegobit/bms/internal/logging"
)

// HuffcodeRecord is one symbol to codeword assignment. The key is the
// symbol byte, the data is the codeword bit length followed by the
// packed codeword bits.
type HuffcodeRecord struct {
	Symbol byte
	Code   bits.Vector
}

func PairFactoryHuffcode() Pair {
	var pair Pair = &HuffcodeRecord{}
	return pair
}

func (r *HuffcodeRecord) SerialiseKey() ([]byte, error) {
	return []byte{r.Symbol}, nil
}

func (r *HuffcodeRecord) SerialiseData() ([]byte, error) {
	packed := make(bits.Vector, len(r.Code))
	copy(packed, r.Code)
	if rest := len(packed) % 8; rest != 0 {
		packed.Pad(8 - rest)
	}
	bs, err := packed.Bytes()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Code))); err != nil {
		return nil, err
	}
	buf.Write(bs)
	return buf.Bytes(), nil
}

func (r *HuffcodeRecord) DeSerialiseKey(key []byte) error {
	if len(key) != 1 {
		err := errors.New("key is wrong length. should not happen")
		logging.L.Err(err).Int("length", len(key)).Msg("wrong key length")
		return err
	}
	r.Symbol = key[0]
	return nil
}

func (r *HuffcodeRecord) DeSerialiseData(data []byte) error {
	if len(data) < 2 {
		err := errors.New("data is wrong length. should not happen")
		logging.L.Err(err).Int("length", len(data)).Msg("wrong data length")
		return err
	}

	length := int(binary.BigEndian.Uint16(data[:2]))
	expanded := bits.FromBytes(data[2:])
	if length > len(expanded) {
		err := errors.New("codeword length exceeds packed bits")
		logging.L.Err(err).Int("length", length).Msg("invalid huffcode record")
		return err
	}
	r.Code = expanded[:length]
	return nil
}

// SaveCodeTable writes the full code table into the huffcode store.
func SaveCodeTable(table *huffman.CodeTable) error {
	var pairs []Pair
	table.Range(func(sym byte, code bits.Vector) bool {
		pairs = append(pairs, &HuffcodeRecord{Symbol: sym, Code: code})
		return true
	})

	if err := insertBatch(HuffcodeDB, pairs); err != nil {
		logging.L.Err(err).Msg("error inserting huffman codes")
		return err
	}
	logging.L.Debug().Msgf("persisted %d huffman codes", len(pairs))
	return nil
}

// FetchCodeTable loads the persisted Huffman code. NoEntryErr means no
// table has been generated yet.
func FetchCodeTable() (*huffman.CodeTable, error) {
	pairs, err := retrieveAll(HuffcodeDB, PairFactoryHuffcode)
	if err != nil {
		return nil, err
	}

	codes := make(map[byte]bits.Vector, len(pairs))
	for _, pair := range pairs {
		record := pair.(*HuffcodeRecord)
		codes[record.Symbol] = record.Code
	}
	return huffman.NewCodeTable(codes), nil
}
