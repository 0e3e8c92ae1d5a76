package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/client"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
	"github.com/iov-one/multisend/transfer"
	"github.com/tendermint/tendermint/libs/log"
)

// newConn returns a connection to the tendermint node at given address.
var newConn = client.NewHTTPConnection

// logOutput is where all commands write their logs.
var logOutput io.Writer = os.Stderr

func newLogger(debug bool) log.Logger {
	logger := log.NewTMLogger(log.NewSyncWriter(logOutput))
	if debug {
		return log.NewFilter(logger, log.AllowDebug())
	}
	return log.NewFilter(logger, log.AllowInfo())
}

// settings are the flags shared by commands that process a transfers file.
type settings struct {
	fl *flag.FlagSet

	file       *string
	configPath *string
	prefix     *string
	denom      *string
	exponent   *uint
	symbol     *string
	contract   *string

	feeDenom    *string
	feeExponent *uint
	feeSymbol   *string
	gasPrice    *coin.Fraction
	batchSize   *int
	memoPrefix  *string
	guard       *bool

	tmAddr  *string
	keyPath *string
	debug   *bool
}

func newSettings(fl *flag.FlagSet) *settings {
	return &settings{
		fl: fl,

		file: fl.String("file", "",
			"Path to the CSV file with transfers. Each row contains a recipient address and an amount in display units. If not provided, transfers are read from the standard input."),
		configPath: fl.String("config", env("MULTISEND_CONFIG", ""),
			"Path to a JSON configuration file. When provided, only explicitly given flags overwrite its values. You can use MULTISEND_CONFIG environment variable to set it."),
		prefix: fl.String("prefix", env("MULTISEND_PREFIX", "cosmos"),
			"Bech32 prefix of all addresses. You can use MULTISEND_PREFIX environment variable to set it."),
		denom: fl.String("denom", env("MULTISEND_DENOM", "uatom"),
			"Denomination of the transferred token. You can use MULTISEND_DENOM environment variable to set it."),
		exponent: fl.Uint("exponent", 6,
			"Decimal exponent of the transferred token."),
		symbol: fl.String("symbol", env("MULTISEND_SYMBOL", "ATOM"),
			"Display symbol of the transferred token. You can use MULTISEND_SYMBOL environment variable to set it."),
		contract: fl.String("contract", env("MULTISEND_CONTRACT", ""),
			"Address of a cw20 token contract. When provided, the contract token is transferred instead of the native one. You can use MULTISEND_CONTRACT environment variable to set it."),

		feeDenom: fl.String("fee-denom", env("MULTISEND_FEE_DENOM", ""),
			"Denomination fees are paid with. Defaults to the transferred token denomination. You can use MULTISEND_FEE_DENOM environment variable to set it."),
		feeExponent: fl.Uint("fee-exponent", 6,
			"Decimal exponent of the fee token."),
		feeSymbol: fl.String("fee-symbol", env("MULTISEND_FEE_SYMBOL", ""),
			"Display symbol of the fee token. Defaults to the transferred token symbol. You can use MULTISEND_FEE_SYMBOL environment variable to set it."),
		gasPrice: flFraction(fl, "gas-price", env("MULTISEND_GAS_PRICE", "0.025"),
			"Price of a single gas unit in raw fee token units, ie. 0.025 or 1/40. Zero means unknown. You can use MULTISEND_GAS_PRICE environment variable to set it."),
		batchSize: fl.Int("batch", multisend.DefaultBatchSize,
			"Maximum number of transfers in a single transaction."),
		memoPrefix: fl.String("memo", env("MULTISEND_MEMO", "Multisend"),
			"Prefix of every transaction memo. You can use MULTISEND_MEMO environment variable to set it."),
		guard: fl.Bool("guard", true,
			"Before a failed batch is sent again, check whether it was not included in a block after all."),

		tmAddr: fl.String("tm", env("MULTISEND_TM", "http://localhost:26657"),
			"Tendermint node address. Use proper NETWORK name. You can use MULTISEND_TM environment variable to set it."),
		keyPath: fl.String("key", env("MULTISEND_PRIV_KEY", os.Getenv("HOME")+"/.multisend.priv.key"),
			"Path to the private key file that transactions should be signed with. You can use MULTISEND_PRIV_KEY environment variable to set it."),
		debug: fl.Bool("debug", false, "Log every dispatch step."),
	}
}

// config returns the dispatch configuration.
func (s *settings) config() (multisend.Config, error) {
	conf := multisend.DefaultConfig()
	given := flagsSet(s.fl)
	if *s.configPath != "" {
		c, err := multisend.LoadConfig(*s.configPath)
		if err != nil {
			return conf, err
		}
		conf = c
	}
	apply := func(name string, fn func()) {
		if *s.configPath == "" || given[name] {
			fn()
		}
	}

	apply("batch", func() { conf.BatchSize = *s.batchSize })
	apply("fee-denom", func() { conf.FeeDenom = orDefault(*s.feeDenom, *s.denom) })
	apply("fee-exponent", func() { conf.FeeExponent = *s.feeExponent })
	apply("fee-symbol", func() { conf.FeeSymbol = orDefault(*s.feeSymbol, *s.symbol) })
	apply("gas-price", func() { conf.GasPrice = *s.gasPrice })
	apply("memo", func() { conf.MemoPrefix = *s.memoPrefix })
	apply("symbol", func() { conf.TokenSymbol = *s.symbol })
	apply("guard", func() { conf.GuardRetries = *s.guard })
	return conf, flagHint(conf.Validate())
}

// configFlags maps configuration fields to the flags that set them.
var configFlags = []struct{ field, flag string }{
	{"BatchSize", "batch"},
	{"FeeDenom", "fee-denom"},
	{"FeeExponent", "fee-exponent"},
	{"GasPrice", "gas-price"},
}

// flagHint annotates a configuration error with the flags that can fix it.
func flagHint(err error) error {
	if err == nil {
		return nil
	}
	var flags []string
	for _, c := range configFlags {
		if len(errors.FieldErrors(err, c.field)) > 0 {
			flags = append(flags, "-"+c.flag)
		}
	}
	if len(flags) == 0 {
		return err
	}
	return errors.Wrapf(err, "check %s", strings.Join(flags, ", "))
}

func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

// assetDenom returns the denomination of the transferred token. Contract
// tokens are denominated as "cw20:<contract address>".
func (s *settings) assetDenom() string {
	if *s.contract != "" {
		return "cw20:" + *s.contract
	}
	return *s.denom
}

// asset returns given amount of the transferred token in display units.
func (s *settings) asset(amount coin.Coin) string {
	return amount.Human(*s.exponent, *s.symbol)
}

// transfers reads all transfers either from the file or from given input.
func (s *settings) transfers(input io.Reader) ([]transfer.Transfer, error) {
	if *s.file != "" {
		fd, err := os.Open(*s.file)
		if err != nil {
			return nil, fmt.Errorf("cannot open transfers file: %s", err)
		}
		defer fd.Close()
		input = fd
	}
	transfers, err := transfer.ReadCSV(input, transfer.Options{
		Prefix:   *s.prefix,
		Exponent: *s.exponent,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid transfers: %s", err)
	}
	if len(transfers) == 0 {
		return nil, fmt.Errorf("no transfers")
	}
	return transfers, nil
}

// encoder returns the encoder of transfers sent from given address.
func (s *settings) encoder(sender string) transfer.Encoder {
	if *s.contract != "" {
		return transfer.ContractEncoder{Sender: sender, Contract: *s.contract}
	}
	return transfer.NativeEncoder{Sender: sender, Denom: *s.denom}
}

// signer connects to the node and returns a signer using the configured
// private key.
func (s *settings) signer(ctx context.Context, logger log.Logger) (*client.Signer, error) {
	key, err := client.LoadPrivateKey(*s.keyPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load private key: %s", err)
	}
	c := client.NewClient(newConn(*s.tmAddr))
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch chain ID: %s", err)
	}
	return client.NewSigner(c, key, chainID, *s.prefix, logger)
}

// explorerLink returns the transaction address in a block explorer. An
// empty template disables links.
func explorerLink(template, txHash string) string {
	if template == "" {
		return txHash
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, txHash)
	}
	return strings.TrimSuffix(template, "/") + "/" + txHash
}
