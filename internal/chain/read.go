package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ReadBetween fetches the chain bounded by two transaction ids, walking
// backwards from end along each transaction's first input. The walked
// chain is split into one subchain per embedded message: a terminator is
// a single-output transaction whose output is not P2SH.
func ReadBetween(svc Service, begin, end chainhash.Hash) ([]Chain, error) {
	var walked Chain

	for end != begin {
		tx, _, err := svc.GetRawTransaction(&end)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s: %v", ErrChainLinkBroken, end, err)
		}
		if len(tx.TxIn) == 0 {
			return nil, fmt.Errorf("%w: %s has no inputs", ErrChainLinkBroken, end)
		}
		walked = append(walked, tx)
		end = tx.TxIn[0].PreviousOutPoint.Hash
	}

	tx, _, err := svc.GetRawTransaction(&end)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrChainLinkBroken, end, err)
	}
	walked = append(walked, tx)

	for i, j := 0, len(walked)-1; i < j; i, j = i+1, j-1 {
		walked[i], walked[j] = walked[j], walked[i]
	}

	return splitChains(walked, func(tx *wire.MsgTx) bool {
		return len(tx.TxOut) == 1 && !txscript.IsPayToScriptHash(tx.TxOut[0].PkScript)
	}), nil
}

// DefaultReadHorizon is how many blocks ReadForward scans when the
// caller has no better bound.
const DefaultReadHorizon = 10

// ReadForward fetches the chain starting at a transaction id by scanning
// the following nBlocks blocks for spenders. Forward-walked chains use
// the simpler terminator test: any single-output transaction.
func ReadForward(svc Service, begin chainhash.Hash, nBlocks int) ([]Chain, error) {
	walked := Chain{}

	tx, blockHash, err := svc.GetRawTransaction(&begin)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrChainLinkBroken, begin, err)
	}
	if blockHash == nil {
		return nil, fmt.Errorf("%w: %s is not confirmed", ErrChainLinkBroken, begin)
	}
	walked = append(walked, tx)

	var candidates []*wire.MsgTx
	for i := 0; i < nBlocks && blockHash != nil; i++ {
		txids, nextHash, err := svc.GetBlock(blockHash)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching block %s: %v", ErrChainLinkBroken, blockHash, err)
		}

		for _, txid := range txids {
			candidate, _, err := svc.GetRawTransaction(txid)
			if err != nil {
				return nil, fmt.Errorf("%w: fetching %s: %v", ErrChainLinkBroken, txid, err)
			}
			candidates = append(candidates, candidate)
		}

		// keep appending spenders of the current tip until none is left
		for progress := true; progress; {
			progress = false
			for j, candidate := range candidates {
				if len(candidate.TxIn) == 0 {
					continue
				}
				if candidate.TxIn[0].PreviousOutPoint.Hash == begin {
					walked = append(walked, candidate)
					begin = candidate.TxHash()
					candidates = append(candidates[:j], candidates[j+1:]...)
					progress = true
					break
				}
			}
		}

		blockHash = nextHash
	}

	return splitChains(walked, func(tx *wire.MsgTx) bool {
		return len(tx.TxOut) == 1
	}), nil
}

func splitChains(walked Chain, terminator func(*wire.MsgTx) bool) []Chain {
	var chains []Chain

	start := 0
	for i, tx := range walked {
		if terminator(tx) {
			chains = append(chains, walked[start:i+1])
			start = i + 1
		}
	}

	return chains
}
