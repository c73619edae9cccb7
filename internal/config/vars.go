package config

import (
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	ConfigFileName       = "bms.conf"
	DefaultBaseDirectory = "~/.bms"

	// HuffcodeDBName and KeypairDBName are the persisted table stores
	// inside the base directory.
	HuffcodeDBName = "huffcode.map"
	KeypairDBName  = "keypair.map"

	// ZeroTxID marks an untouched chain state entry.
	ZeroTxID = "0000000000000000000000000000000000000000000000000000000000000000"

	// DustThreshold is the standard-relay minimum value of a P2SH output.
	DustThreshold uint64 = 546
)

var (
	BaseDirectory = ""

	WalletUser     = ""
	WalletPassword = ""
	WalletIP       = "127.0.0.1"
	WalletPort     = 8332

	// SuffixBits is the keypair table suffix width s: the number of
	// trailing pubkey bits carried by the first key of each redeemScript.
	SuffixBits = 8
	// RandSuffixBits is r, the trailing random bits of every synthesized
	// additional pubkey.
	RandSuffixBits = 5

	// TxFeeRate is the fee rate in satoshi per started kilobyte.
	TxFeeRate uint64 = 10000

	StateFirstTx = ZeroTxID
	StateLastTx  = ZeroTxID

	LogLevel = "info"
	LogPath  = ""

	Chain = &chaincfg.RegressionNetParams
)
