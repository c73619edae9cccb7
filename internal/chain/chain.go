// Package chain plans and assembles the transaction chains that carry a
// payload, and walks existing chains to get it back out. The per
// transaction planner balances fee cost against embedding capacity, the
// builder threads the remaining budget through the chain, and the reader
// is the exact inverse of the builder's channel ordering.
package chain

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/channel"
)

var (
	ErrSignatureFailure = errors.New("transaction signing failed")
	ErrChainLinkBroken  = errors.New("chain link cannot be followed")
	ErrCapacityExceeded = errors.New("payload exceeds the maximum chain depth")
	ErrEmptyChain       = errors.New("transaction chain is empty")
)

// maxChainDepth bounds the builder loop. A payload that needs this many
// transactions indicates a broken planner, not a big message.
const maxChainDepth = 1024

// Chain is a non-empty ordered sequence of transactions in which every
// transaction spends outputs of its predecessor. The last transaction
// pays the remaining budget to a change script and carries no payload.
type Chain []*wire.MsgTx

// Service is the part of the wallet RPC surface the chain operations
// consume. The production implementation lives in internal/wallet.
type Service interface {
	// SignRawTransaction asks the wallet to sign every input it can.
	SignRawTransaction(tx *wire.MsgTx) (*wire.MsgTx, bool, error)
	// SendRawTransaction broadcasts a transaction.
	SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error)
	// GetRawTransaction fetches a transaction and its block hash.
	GetRawTransaction(txid *chainhash.Hash) (*wire.MsgTx, *chainhash.Hash, error)
	// GetBlock lists a block's transaction ids and the next block hash.
	GetBlock(blockHash *chainhash.Hash) ([]*chainhash.Hash, *chainhash.Hash, error)
}

// Builder carries the dependencies of chain assembly.
type Builder struct {
	Codec   *channel.Codec
	Net     *chaincfg.Params
	FeeRate uint64
}
