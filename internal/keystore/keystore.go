// Package keystore holds the private keys and redeemScripts the codec
// itself constructs. The wallet cannot sign P2SH inputs whose scripts it
// has never seen, so those spends are signed locally from this store.
package keystore

import (
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	ErrNoKey    = errors.New("keystore holds no key for address")
	ErrNoScript = errors.New("keystore holds no script for address")
)

// Store indexes private keys by pubkey hash and redeemScripts by script
// hash. Safe for reuse across a whole chain signing pass.
type Store struct {
	mu      sync.RWMutex
	keys    map[[20]byte]*btcec.PrivateKey
	scripts map[[20]byte][]byte
}

func New() *Store {
	return &Store{
		keys:    make(map[[20]byte]*btcec.PrivateKey),
		scripts: make(map[[20]byte][]byte),
	}
}

// AddKey indexes a private key under the hash of its compressed pubkey.
func (s *Store) AddKey(priv *btcec.PrivateKey) {
	var id [20]byte
	copy(id[:], btcutil.Hash160(priv.PubKey().SerializeCompressed()))

	s.mu.Lock()
	s.keys[id] = priv
	s.mu.Unlock()
}

// AddScript indexes a redeemScript under its script hash.
func (s *Store) AddScript(script []byte) {
	var id [20]byte
	copy(id[:], btcutil.Hash160(script))

	s.mu.Lock()
	s.scripts[id] = script
	s.mu.Unlock()
}

func (s *Store) getKey(addr btcutil.Address) (*btcec.PrivateKey, bool, error) {
	var id [20]byte
	switch a := addr.(type) {
	case *btcutil.AddressPubKey:
		copy(id[:], a.AddressPubKeyHash().Hash160()[:])
	case *btcutil.AddressPubKeyHash:
		copy(id[:], a.Hash160()[:])
	default:
		return nil, false, ErrNoKey
	}

	s.mu.RLock()
	priv, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, ErrNoKey
	}
	return priv, true, nil
}

func (s *Store) getScript(addr btcutil.Address) ([]byte, error) {
	a, ok := addr.(*btcutil.AddressScriptHash)
	if !ok {
		return nil, ErrNoScript
	}
	var id [20]byte
	copy(id[:], a.Hash160()[:])

	s.mu.RLock()
	script, ok := s.scripts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoScript
	}
	return script, nil
}

// SignInput builds and installs the signature script for input idx of tx
// spending the output identified by pkScript. For the P2SH outputs built
// by the pubkey channel a single signature from the tabled first key
// satisfies the 1-of-M redeemScript.
func (s *Store) SignInput(params *chaincfg.Params, tx *wire.MsgTx, idx int, pkScript []byte) error {
	sigScript, err := txscript.SignTxOutput(
		params, tx, idx, pkScript, txscript.SigHashAll,
		txscript.KeyClosure(func(addr btcutil.Address) (*btcec.PrivateKey, bool, error) {
			return s.getKey(addr)
		}),
		txscript.ScriptClosure(func(addr btcutil.Address) ([]byte, error) {
			return s.getScript(addr)
		}),
		nil,
	)
	if err != nil {
		return err
	}

	tx.TxIn[idx].SignatureScript = sigScript
	return nil
}
