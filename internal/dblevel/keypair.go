package dblevel

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/keymap"
	"github.com/stegobit/bms/internal/logging"
)

// KeypairRecord is one keypair table entry. The key is the suffix bit
// pattern (width byte + packed bits), the data is the compression flag
// followed by the 32 byte private scalar.
type KeypairRecord struct {
	Suffix     bits.Vector
	Compressed bool
	Priv       *btcec.PrivateKey
}

func PairFactoryKeypair() Pair {
	var pair Pair = &KeypairRecord{}
	return pair
}

func (r *KeypairRecord) SerialiseKey() ([]byte, error) {
	packed := make(bits.Vector, len(r.Suffix))
	copy(packed, r.Suffix)
	if rest := len(packed) % 8; rest != 0 {
		packed.Pad(8 - rest)
	}
	bs, err := packed.Bytes()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(len(r.Suffix)))
	buf.Write(bs)
	return buf.Bytes(), nil
}

func (r *KeypairRecord) SerialiseData() ([]byte, error) {
	if r.Priv == nil {
		return nil, errors.New("keypair record without private key")
	}

	var buf bytes.Buffer
	if r.Compressed {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}
	buf.Write(r.Priv.Serialize())

	data := buf.Bytes()
	if len(data) != 33 {
		err := errors.New("data is wrong length. should not happen")
		logging.L.Err(err).Int("length", len(data)).Msg("wrong data length")
		return nil, err
	}
	return data, nil
}

func (r *KeypairRecord) DeSerialiseKey(key []byte) error {
	if len(key) < 2 {
		err := errors.New("key is wrong length. should not happen")
		logging.L.Err(err).Int("length", len(key)).Msg("wrong key length")
		return err
	}

	width := int(key[0])
	expanded := bits.FromBytes(key[1:])
	if width > len(expanded) {
		err := errors.New("key width exceeds packed bits")
		logging.L.Err(err).Int("width", width).Msg("invalid keypair key")
		return err
	}
	r.Suffix = expanded[:width]
	return nil
}

func (r *KeypairRecord) DeSerialiseData(data []byte) error {
	if len(data) != 33 {
		err := errors.New("data is wrong length. should not happen")
		logging.L.Err(err).Int("length", len(data)).Msg("wrong data length")
		return err
	}

	r.Compressed = data[0] == 0x01
	priv, _ := btcec.PrivKeyFromBytes(data[1:])
	r.Priv = priv
	return nil
}

// SaveKeypairTable writes every table entry into the keypair store.
func SaveKeypairTable(table *keymap.Table) error {
	var pairs []Pair
	table.Range(func(suffix bits.Vector, priv *btcec.PrivateKey) bool {
		pairs = append(pairs, &KeypairRecord{Suffix: suffix, Compressed: true, Priv: priv})
		return true
	})

	if err := insertBatch(KeypairDB, pairs); err != nil {
		logging.L.Err(err).Msg("error inserting keypairs")
		return err
	}
	logging.L.Debug().Msgf("persisted %d keypairs", len(pairs))
	return nil
}

// FetchKeypairTable loads the persisted keypair table. NoEntryErr means
// the table was never generated.
func FetchKeypairTable(suffixBits int) (*keymap.Table, error) {
	pairs, err := retrieveAll(KeypairDB, PairFactoryKeypair)
	if err != nil {
		return nil, err
	}

	table := keymap.New(suffixBits)
	for _, pair := range pairs {
		record := pair.(*KeypairRecord)
		if len(record.Suffix) != suffixBits {
			err := errors.New("stored suffix width differs from config")
			logging.L.Err(err).Int("stored", len(record.Suffix)).Int("config", suffixBits).
				Msg("keypair table mismatch")
			return nil, err
		}
		if !table.Add(record.Priv) {
			err := errors.New("duplicate suffix in keypair store")
			logging.L.Err(err).Msg("keypair table corrupt")
			return nil, err
		}
	}

	if !table.Complete() {
		err := errors.New("keypair store does not cover every suffix")
		logging.L.Err(err).Int("entries", table.Len()).Msg("keypair table incomplete")
		return nil, err
	}
	return table, nil
}
