package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/spf13/cobra"

	"github.com/stegobit/bms/internal/bits"
	"github.com/stegobit/bms/internal/chain"
	"github.com/stegobit/bms/internal/channel"
	"github.com/stegobit/bms/internal/config"
	"github.com/stegobit/bms/internal/dblevel"
	"github.com/stegobit/bms/internal/huffman"
	"github.com/stegobit/bms/internal/keymap"
	"github.com/stegobit/bms/internal/keystore"
	"github.com/stegobit/bms/internal/logging"
	"github.com/stegobit/bms/internal/wallet"
)

var (
	Version = "0.1.0"

	datadir string
	stdin   = bufio.NewReader(os.Stdin)
)

// runtime bundles everything a session needs. Wired once at startup,
// immutable afterwards.
type runtime struct {
	builder *chain.Builder
	store   *keystore.Store
	table   *huffman.CodeTable
	client  *wallet.Client
}

var rootCmd = &cobra.Command{
	Use:     "bms",
	Short:   "embed and extract messages in bitcoin transaction chains",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.client.Shutdown()
		return runInteractive(rt)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <file>",
	Short: "compress a text file and embed it into the blockchain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.client.Shutdown()
		return runWrite(rt, args[0])
	},
}

var readCmd = &cobra.Command{
	Use:   "read <first-txid> [last-txid]",
	Short: "extract embedded messages from the blockchain",
	Long: "Extract embedded messages from the blockchain. With both transaction ids " +
		"the chain is walked backwards from the last; with only the first, the " +
		"following blocks are scanned forward for spenders.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.client.Shutdown()
		if len(args) == 1 {
			return runReadForward(rt, args[0])
		}
		return runRead(rt, args[0], args[1])
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "regenerate the keypair table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		openStores()

		table, err := keymap.Generate(config.SuffixBits)
		if err != nil {
			return err
		}
		if err := dblevel.SaveKeypairTable(table); err != nil {
			return err
		}
		logging.L.Info().Int("entries", table.Len()).Msg("keypair table regenerated")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&datadir,
		"datadir",
		config.DefaultBaseDirectory,
		"base directory holding bms.conf and the persisted tables",
	)
	rootCmd.AddCommand(writeCmd, readCmd, keygenCmd)
}

func loadConfig() error {
	config.BaseDirectory = datadir
	config.SetDirectories()

	if err := os.MkdirAll(config.BaseDirectory, 0750); err != nil {
		return err
	}
	if err := config.LoadConfigs(config.ConfigPath()); err != nil {
		return err
	}

	if config.LogPath != "" {
		if err := os.MkdirAll(config.LogPath, 0750); err != nil {
			return err
		}
		if err := logging.SetLogOutput(config.LogPath, "bms.log"); err != nil {
			logging.L.Warn().Err(err).Msg("failed to initialize file logging")
		}
	}
	return nil
}

func openStores() {
	dblevel.HuffcodeDB = dblevel.OpenDBConnection(path.Join(config.BaseDirectory, config.HuffcodeDBName))
	dblevel.KeypairDB = dblevel.OpenDBConnection(path.Join(config.BaseDirectory, config.KeypairDBName))
}

// setup loads the config, the two persisted tables (generating them on
// first run) and connects to the wallet.
func setup() (*runtime, error) {
	if err := loadConfig(); err != nil {
		return nil, err
	}
	openStores()

	codeTable, err := dblevel.FetchCodeTable()
	if errors.Is(err, dblevel.NoEntryErr{}) {
		logging.L.Info().Msg("no huffman table found, building the default one")
		codeTable = huffman.DefaultTable()
		err = dblevel.SaveCodeTable(codeTable)
	}
	if err != nil {
		return nil, err
	}

	keyTable, err := dblevel.FetchKeypairTable(config.SuffixBits)
	if errors.Is(err, dblevel.NoEntryErr{}) {
		logging.L.Info().Int("suffix_bits", config.SuffixBits).Msg("no keypair table found, generating")
		keyTable, err = keymap.Generate(config.SuffixBits)
		if err == nil {
			err = dblevel.SaveKeypairTable(keyTable)
		}
	}
	if err != nil {
		return nil, err
	}

	/* the local signer needs every tabled private key */
	store := keystore.New()
	keyTable.Range(func(_ bits.Vector, priv *btcec.PrivateKey) bool {
		store.AddKey(priv)
		return true
	})

	client, err := wallet.NewClient(wallet.Config{
		Host: fmt.Sprintf("%s:%d", config.WalletIP, config.WalletPort),
		User: config.WalletUser,
		Pass: config.WalletPassword,
	})
	if err != nil {
		return nil, err
	}

	builder := &chain.Builder{
		Codec: &channel.Codec{
			SuffixBits: config.SuffixBits,
			RandBits:   config.RandSuffixBits,
			Keymap:     keyTable,
			Store:      store,
		},
		Net:     config.Chain,
		FeeRate: config.TxFeeRate,
	}

	return &runtime{builder: builder, store: store, table: codeTable, client: client}, nil
}

func runInteractive(rt *runtime) error {
	fmt.Println("Would you like to write to (W) or read from (R) the blockchain?")

	var mode string
	for mode != "W" && mode != "R" {
		fmt.Print("Choice: ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return err
		}
		mode = strings.ToUpper(strings.TrimSpace(line))
		if mode != "W" && mode != "R" {
			fmt.Println("Your choice was incorrect, please try again.")
		}
	}
	fmt.Println()

	if mode == "W" {
		fmt.Println("Please enter the full path to the text file you wish to send to the blockchain:")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return err
		}
		return runWrite(rt, strings.TrimSpace(line))
	}

	fmt.Print("First transaction ID: ")
	first, err := stdin.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print("Last transaction ID: ")
	last, err := stdin.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Println()

	return runRead(rt, strings.TrimSpace(first), strings.TrimSpace(last))
}

func runWrite(rt *runtime, filePath string) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	/* compress the payload */
	text := huffman.FilterAlphabet(raw)
	fmt.Println("Your text has been converted into:")
	fmt.Println(string(text))

	compressed, err := huffman.Compress(text, rt.table)
	if err != nil {
		return err
	}
	fmt.Printf("[INFO] Original data size: %d bytes\n", len(text))
	fmt.Printf("[INFO] Compressed data size: %.1f bytes\n", float64(len(compressed))/8.0)

	/* fund and build the chain */
	minBudget, err := rt.builder.MinimumBudget(len(compressed))
	if err != nil {
		return err
	}
	selection, err := rt.client.SelectInputs(minBudget, config.StateLastTx)
	if err != nil {
		return err
	}

	changeAddr, err := rt.client.GetNewAddress()
	if err != nil {
		return err
	}
	changeScript, err := txscript.PayToAddrScript(changeAddr)
	if err != nil {
		return err
	}

	txs, err := rt.builder.Embed(compressed, selection.Budget, selection.UTXO, changeScript)
	if err != nil {
		return err
	}

	fmt.Printf("[INFO] The data will be embedded in %d transactions\n", len(txs))
	fmt.Printf("[INFO] The embedding of the data will cost %d Satoshi\n", rt.builder.ChainFee(txs))

	/* authorize and broadcast */
	fmt.Print("If you wish to proceed, please enter your wallet password: ")
	password, err := stdin.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Println()

	if err := rt.client.WalletPassphrase(strings.TrimSpace(password), 60); err != nil {
		return fmt.Errorf("unlocking wallet: %w", err)
	}
	if err := rt.builder.Authorize(txs, rt.client, rt.store); err != nil {
		return err
	}
	if err := rt.client.WalletLock(); err != nil {
		logging.L.Warn().Err(err).Msg("could not re-lock the wallet")
	}
	if err := rt.builder.Send(txs, rt.client); err != nil {
		return err
	}

	first, last, err := txs.FirstLast()
	if err != nil {
		return err
	}
	fmt.Println("[INFO] The transactions have been sent successfully!")
	fmt.Printf("[INFO] First transaction ID: %s\n", first)
	fmt.Printf("[INFO] Last transaction ID: %s\n", last)

	if err := config.UpdateChainState(config.ConfigPath(), first.String(), last.String()); err != nil {
		return err
	}
	fmt.Println("[INFO] The chain state configuration has been updated successfully")

	return nil
}

func runRead(rt *runtime, firstArg, lastArg string) error {
	first, err := chainhash.NewHashFromStr(firstArg)
	if err != nil {
		return fmt.Errorf("first transaction id: %w", err)
	}
	last, err := chainhash.NewHashFromStr(lastArg)
	if err != nil {
		return fmt.Errorf("last transaction id: %w", err)
	}

	chains, err := chain.ReadBetween(rt.client, *first, *last)
	if err != nil {
		return err
	}
	return printMessages(rt, chains)
}

func runReadForward(rt *runtime, firstArg string) error {
	first, err := chainhash.NewHashFromStr(firstArg)
	if err != nil {
		return fmt.Errorf("first transaction id: %w", err)
	}

	chains, err := chain.ReadForward(rt.client, *first, chain.DefaultReadHorizon)
	if err != nil {
		return err
	}
	return printMessages(rt, chains)
}

func printMessages(rt *runtime, chains []chain.Chain) error {
	fmt.Printf("[INFO] Successfully extracted %d message(s)!\n", len(chains))

	for i, txs := range chains {
		extracted, err := rt.builder.Extract(txs)
		if err != nil {
			return err
		}
		message, err := huffman.Decompress(extracted, rt.table)
		if err != nil {
			return err
		}

		fmt.Printf("\nMessage %d:\n%s\n", i+1, message)
	}

	return nil
}

func main() {
	defer logging.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logging.Close()
		os.Exit(1)
	}
}
