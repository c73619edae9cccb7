package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/stegobit/bms/internal/keystore"
	"github.com/stegobit/bms/internal/logging"
)

// Authorize signs the whole chain. The wallet signs the first
// transaction, which spends its own outputs; every later transaction
// spends P2SH outputs only the codec knows the scripts for, so those
// inputs are signed locally from the keystore. Signing is atomic per
// transaction, any failure discards the chain.
func (b *Builder) Authorize(txs Chain, svc Service, store *keystore.Store) error {
	if len(txs) == 0 {
		return ErrEmptyChain
	}

	signed, complete, err := svc.SignRawTransaction(txs[0])
	if err != nil {
		return fmt.Errorf("%w: wallet: %v", ErrSignatureFailure, err)
	}
	if !complete {
		return fmt.Errorf("%w: wallet signature incomplete", ErrSignatureFailure)
	}
	txs[0] = signed

	for i := 1; i < len(txs); i++ {
		prevHash := txs[i-1].TxHash()
		for _, txIn := range txs[i].TxIn {
			txIn.PreviousOutPoint.Hash = prevHash
		}

		for j, txIn := range txs[i].TxIn {
			n := txIn.PreviousOutPoint.Index
			if int(n) >= len(txs[i-1].TxOut) {
				return fmt.Errorf("%w: input %d claims missing output %d", ErrSignatureFailure, j, n)
			}
			if err := store.SignInput(b.Net, txs[i], j, txs[i-1].TxOut[n].PkScript); err != nil {
				return fmt.Errorf("%w: input %d of transaction %d: %v", ErrSignatureFailure, j, i, err)
			}
		}
	}

	return nil
}

// Send broadcasts the chain in order; every transaction references its
// predecessor, so the order matters.
func (b *Builder) Send(txs Chain, svc Service) error {
	for i, tx := range txs {
		txid, err := svc.SendRawTransaction(tx)
		if err != nil {
			return fmt.Errorf("broadcasting transaction %d: %w", i, err)
		}
		logging.L.Debug().Str("txid", txid.String()).Int("position", i).Msg("transaction broadcast")
	}
	return nil
}

// FirstLast returns the hashes bounding a chain.
func (txs Chain) FirstLast() (first, last chainhash.Hash, err error) {
	if len(txs) == 0 {
		return first, last, ErrEmptyChain
	}
	return txs[0].TxHash(), txs[len(txs)-1].TxHash(), nil
}
