// Package wallet wraps the Bitcoin Core RPC interface the codec relies
// on: coin selection, signing of the funding transaction, broadcast and
// chain lookups for extraction.
package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/stegobit/bms/internal/logging"
)

var ErrInsufficientFunds = errors.New("wallet balance below the minimum budget")

// Client talks to a Bitcoin Core node over JSON-RPC.
type Client struct {
	RPC *rpcclient.Client
}

// Config carries the RPC credentials from bms.conf.
type Config struct {
	Host string
	User string
	Pass string
}

// NewClient connects to the node and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true, // Bitcoin Core only supports HTTP POST mode
		DisableTLS:   true,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	blockCount, err := client.GetBlockCount()
	if err != nil {
		client.Shutdown()
		return nil, fmt.Errorf("bitcoind is not reachable: %w", err)
	}
	logging.L.Info().Int64("height", blockCount).Str("host", cfg.Host).Msg("connected to bitcoin node")

	return &Client{RPC: client}, nil
}

// Shutdown tears the RPC connection down.
func (c *Client) Shutdown() {
	c.RPC.Shutdown()
}

// SignRawTransaction lets the wallet sign every input it recognises.
func (c *Client) SignRawTransaction(tx *wire.MsgTx) (*wire.MsgTx, bool, error) {
	return c.RPC.SignRawTransactionWithWallet(tx)
}

// SendRawTransaction broadcasts a transaction.
func (c *Client) SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error) {
	return c.RPC.SendRawTransaction(tx, false)
}

// GetRawTransaction fetches a transaction and the hash of the block it
// was mined in, nil while unconfirmed.
func (c *Client) GetRawTransaction(txid *chainhash.Hash) (*wire.MsgTx, *chainhash.Hash, error) {
	result, err := c.RPC.GetRawTransactionVerbose(txid)
	if err != nil {
		return nil, nil, err
	}

	raw, err := hex.DecodeString(result.Hex)
	if err != nil {
		return nil, nil, err
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, nil, err
	}

	if result.BlockHash == "" {
		return tx, nil, nil
	}
	blockHash, err := chainhash.NewHashFromStr(result.BlockHash)
	if err != nil {
		return nil, nil, err
	}
	return tx, blockHash, nil
}

// GetBlock lists a block's transaction ids and the next block hash, nil
// at the tip.
func (c *Client) GetBlock(blockHash *chainhash.Hash) ([]*chainhash.Hash, *chainhash.Hash, error) {
	block, err := c.RPC.GetBlockVerbose(blockHash)
	if err != nil {
		return nil, nil, err
	}

	txids := make([]*chainhash.Hash, 0, len(block.Tx))
	for _, txid := range block.Tx {
		hash, err := chainhash.NewHashFromStr(txid)
		if err != nil {
			return nil, nil, err
		}
		txids = append(txids, hash)
	}

	if block.NextHash == "" {
		return txids, nil, nil
	}
	next, err := chainhash.NewHashFromStr(block.NextHash)
	if err != nil {
		return nil, nil, err
	}
	return txids, next, nil
}

// GetNewAddress asks the wallet for a fresh change address.
func (c *Client) GetNewAddress() (btcutil.Address, error) {
	return c.RPC.GetNewAddress("")
}

// GetBalance returns the spendable balance in satoshi.
func (c *Client) GetBalance() (uint64, error) {
	amount, err := c.RPC.GetBalance("*")
	if err != nil {
		return 0, err
	}
	return uint64(amount), nil
}

// WalletPassphrase unlocks the wallet for timeout seconds.
func (c *Client) WalletPassphrase(passphrase string, timeout int64) error {
	return c.RPC.WalletPassphrase(passphrase, timeout)
}

// WalletLock locks the wallet again.
func (c *Client) WalletLock() error {
	return c.RPC.WalletLock()
}

// InitInputs is a funding selection: outpoints to spend and the budget
// they accumulate.
type InitInputs struct {
	UTXO   []wire.OutPoint
	Budget uint64
}

// SelectInputs picks unspent outputs worth at least min satoshi. The
// change output of the previous embedding, output 0 of lastTx, is taken
// first when still unspent so consecutive embeddings form one walkable
// chain.
func (c *Client) SelectInputs(min uint64, lastTx string) (InitInputs, error) {
	balance, err := c.GetBalance()
	if err != nil {
		return InitInputs{}, err
	}
	if balance < min {
		return InitInputs{}, fmt.Errorf("%w: %d < %d satoshi", ErrInsufficientFunds, balance, min)
	}

	unspent, err := c.RPC.ListUnspent()
	if err != nil {
		return InitInputs{}, err
	}

	return chooseInputs(unspent, lastTx, min)
}

func chooseInputs(unspent []btcjson.ListUnspentResult, lastTx string, min uint64) (InitInputs, error) {
	sort.Slice(unspent, func(i, j int) bool {
		return unspent[i].Amount > unspent[j].Amount
	})

	var selection InitInputs

	/* the previous chain tail goes first when available */
	for i, u := range unspent {
		if u.TxID == lastTx && u.Vout == 0 {
			if err := appendInput(&selection, u); err != nil {
				return InitInputs{}, err
			}
			unspent = append(unspent[:i], unspent[i+1:]...)
			break
		}
	}

	for _, u := range unspent {
		if selection.Budget >= min {
			break
		}
		if err := appendInput(&selection, u); err != nil {
			return InitInputs{}, err
		}
	}

	if selection.Budget < min {
		return InitInputs{}, fmt.Errorf("%w: unspent outputs cover only %d satoshi", ErrInsufficientFunds, selection.Budget)
	}
	return selection, nil
}

func appendInput(selection *InitInputs, u btcjson.ListUnspentResult) error {
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return err
	}
	amount, err := btcutil.NewAmount(u.Amount)
	if err != nil {
		return err
	}

	selection.UTXO = append(selection.UTXO, wire.OutPoint{Hash: *hash, Index: u.Vout})
	selection.Budget += uint64(amount)
	return nil
}
