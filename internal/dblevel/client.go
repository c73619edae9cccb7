// Package dblevel persists the two process-wide tables, the Huffman code
// and the keypair map, in leveldb stores under the base directory. Both
// stores are written once and read at every start.
package dblevel

import (
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/stegobit/bms/internal/logging"
)

type NoEntryErr struct{}

func (e NoEntryErr) Error() string { return "[no entry found]" }

var (
	HuffcodeDB *leveldb.DB
	KeypairDB  *leveldb.DB
)

// OpenDBConnection opens a connection to the through path specified db
// instance. If it fails it panics, nothing runs without the tables.
func OpenDBConnection(path string) *leveldb.DB {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		logging.L.Err(err).Str("path", path).Msg("error opening db connection")
		panic(err)
	}
	return db
}

// Pair is one serialisable record of a table store.
type Pair interface {
	SerialiseKey() ([]byte, error)
	SerialiseData() ([]byte, error)
	DeSerialiseKey(key []byte) error
	DeSerialiseData(data []byte) error
}

// extractKeyValue will panic because serialisation is critical to data integrity
func extractKeyValue(pair Pair) ([]byte, []byte) {
	key, err := pair.SerialiseKey()
	if err != nil {
		logging.L.Err(err).Msg("error serialising key")
		panic(err)
	}
	value, err := pair.SerialiseData()
	if err != nil {
		logging.L.Err(err).Msg("error serialising data")
		panic(err)
	}
	return key, value
}

func insertBatch(db *leveldb.DB, pairs []Pair) error {
	batch := new(leveldb.Batch)
	for _, pair := range pairs {
		key, value := extractKeyValue(pair)
		batch.Put(key, value)
	}
	return db.Write(batch, nil)
}

func retrieveAll(db *leveldb.DB, factory func() Pair) ([]Pair, error) {
	var pairs []Pair

	iter := db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		pair := factory()
		if err := pair.DeSerialiseKey(iter.Key()); err != nil {
			logging.L.Err(err).Msg("error deserialising key")
			return nil, err
		}
		if err := pair.DeSerialiseData(iter.Value()); err != nil {
			logging.L.Err(err).Msg("error deserialising data")
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	if len(pairs) == 0 {
		return nil, NoEntryErr{}
	}
	return pairs, nil
}
