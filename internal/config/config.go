// Package config loads bms.conf and mirrors its values into package
// level vars the rest of the process reads. The chain state keys are the
// only ones ever written back, and only after a successful send.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/viper"

	"github.com/stegobit/bms/internal/logging"
)

var (
	ErrMissingKey = errors.New("required config key missing")
	ErrBadValue   = errors.New("malformed config value")
)

var txidPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ExpandHome resolves a leading ~ against the user home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			logging.L.Warn().Err(err).Msg("could not resolve home directory")
			return p
		}
		return path.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// SetDirectories finalizes the base directory after flag parsing.
func SetDirectories() {
	if BaseDirectory == "" {
		BaseDirectory = DefaultBaseDirectory
	}
	BaseDirectory = ExpandHome(BaseDirectory)
}

// ConfigPath returns the path of the active configuration file.
func ConfigPath() string {
	return path.Join(BaseDirectory, ConfigFileName)
}

// LoadConfigs reads the key = value configuration file and fills the
// package vars. Missing credentials or malformed values are load errors,
// nothing here is recovered later.
func LoadConfigs(pathToConfig string) error {
	viper.SetConfigFile(pathToConfig)
	viper.SetConfigType("properties")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", pathToConfig, err)
	}

	/* set defaults */
	viper.SetDefault("Wallet.IP", WalletIP)
	viper.SetDefault("Wallet.Port", WalletPort)
	viper.SetDefault("Keymap.SuffixBits", SuffixBits)
	viper.SetDefault("Random.SuffixBits", RandSuffixBits)
	viper.SetDefault("TxFeeRate", TxFeeRate)
	viper.SetDefault("State.FirstTx", ZeroTxID)
	viper.SetDefault("State.LastTx", ZeroTxID)
	viper.SetDefault("Chain", "regtest")
	viper.SetDefault("Log.Level", LogLevel)
	viper.SetDefault("Log.Path", LogPath)

	/* read and set config variables */
	WalletUser = viper.GetString("Wallet.User")
	WalletPassword = viper.GetString("Wallet.Password")
	WalletIP = viper.GetString("Wallet.IP")
	WalletPort = viper.GetInt("Wallet.Port")

	SuffixBits = viper.GetInt("Keymap.SuffixBits")
	RandSuffixBits = viper.GetInt("Random.SuffixBits")
	TxFeeRate = viper.GetUint64("TxFeeRate")

	StateFirstTx = strings.ToLower(viper.GetString("State.FirstTx"))
	StateLastTx = strings.ToLower(viper.GetString("State.LastTx"))

	LogLevel = viper.GetString("Log.Level")
	LogPath = viper.GetString("Log.Path")
	logging.SetLevel(LogLevel)

	if WalletUser == "" {
		return fmt.Errorf("%w: Wallet.User", ErrMissingKey)
	}
	if WalletPassword == "" {
		return fmt.Errorf("%w: Wallet.Password", ErrMissingKey)
	}
	if SuffixBits < 1 || SuffixBits > 16 {
		return fmt.Errorf("%w: Keymap.SuffixBits %d", ErrBadValue, SuffixBits)
	}
	if RandSuffixBits < 1 || RandSuffixBits > 8 {
		return fmt.Errorf("%w: Random.SuffixBits %d", ErrBadValue, RandSuffixBits)
	}
	if TxFeeRate == 0 {
		return fmt.Errorf("%w: TxFeeRate must be positive", ErrBadValue)
	}
	if !txidPattern.MatchString(StateFirstTx) {
		return fmt.Errorf("%w: State.FirstTx %q", ErrBadValue, StateFirstTx)
	}
	if !txidPattern.MatchString(StateLastTx) {
		return fmt.Errorf("%w: State.LastTx %q", ErrBadValue, StateLastTx)
	}

	chainInput := viper.GetString("Chain")
	switch chainInput {
	case "main":
		Chain = &chaincfg.MainNetParams
	case "testnet":
		Chain = &chaincfg.TestNet3Params
	case "signet":
		Chain = &chaincfg.SigNetParams
	case "regtest":
		Chain = &chaincfg.RegressionNetParams
	default:
		return fmt.Errorf("%w: Chain %q", ErrBadValue, chainInput)
	}

	return nil
}
