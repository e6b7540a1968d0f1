package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/jessevdk/go-flags"

	spendbuilder "github.com/SashaZezulinsky/spend-builder"
)

const (
	defaultPolicy     = "fifo"
	defaultDebugLevel = "info"
)

// config defines the command line options.
type config struct {
	Coins       []string `long:"coin" description:"Spendable P2PKH coin as txid:index:value:wif; may be repeated, coins are spent in the given order"`
	Payments    []string `long:"pay" description:"Payment as address:satoshis; may be repeated"`
	Change      string   `long:"change" description:"WIF key that receives the change output"`
	Fee         *int64   `long:"fee" description:"Fixed fee in satoshis, requires --change; 0 pays no fee"`
	FeeRate     int64    `long:"feerate" description:"Fee rate in satoshis per kB, requires --change (default: 1 satoshi per byte)"`
	Policy      string   `long:"policy" description:"Coin selection policy" choice:"all" choice:"fifo"`
	NoVerify    bool     `long:"noverify" description:"Skip executing the signed inputs against their locking scripts"`
	TestNet3    bool     `long:"testnet" description:"Use the test network"`
	RegTest     bool     `long:"regtest" description:"Use the regression test network"`
	DebugLevel  string   `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`
	ShowVersion bool     `short:"V" long:"version" description:"Display version information and exit"`
}

// loadConfig parses args into a config and validates it.
func loadConfig(args []string) (*config, *chaincfg.Params, error) {
	cfg := config{
		Policy:     defaultPolicy,
		DebugLevel: defaultDebugLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, nil, err
	}
	if cfg.ShowVersion {
		return &cfg, nil, nil
	}

	if cfg.TestNet3 && cfg.RegTest {
		return nil, nil, errors.New("multiple networks may not be " +
			"used simultaneously")
	}
	params := &chaincfg.MainNetParams
	switch {
	case cfg.TestNet3:
		params = &chaincfg.TestNet3Params
	case cfg.RegTest:
		params = &chaincfg.RegressionNetParams
	}

	if len(cfg.Coins) == 0 {
		return nil, nil, errors.New("at least one --coin is required")
	}
	if len(cfg.Payments) == 0 {
		return nil, nil, errors.New("at least one --pay is required")
	}
	if (cfg.Fee != nil && *cfg.Fee < 0) || cfg.FeeRate < 0 {
		return nil, nil, errors.New("fees must not be negative")
	}
	if cfg.Fee != nil && cfg.FeeRate > 0 {
		return nil, nil, errors.New("--fee and --feerate are mutually " +
			"exclusive")
	}
	if cfg.Change == "" && (cfg.Fee != nil || cfg.FeeRate > 0) {
		return nil, nil, errors.New("--fee and --feerate require --change")
	}

	return &cfg, params, nil
}

// decodeWIF decodes a WIF key for params.
func decodeWIF(s string, params *chaincfg.Params) (*btcutil.WIF, error) {
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return nil, err
	}
	if !wif.IsForNet(params) {
		return nil, fmt.Errorf("key is not for network %s", params.Name)
	}
	return wif, nil
}

// patternFor picks the P2PKH variant matching the key's compression.
func patternFor(wif *btcutil.WIF) spendbuilder.Pattern {
	if wif.CompressPubKey {
		return spendbuilder.PayToAddressCompressed
	}
	return spendbuilder.PayToAddressUncompressed
}

// parseCoin parses txid:index:value:wif.
func parseCoin(s string, params *chaincfg.Params) (spendbuilder.Coin, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return spendbuilder.Coin{}, fmt.Errorf("coin %q is not "+
			"txid:index:value:wif", s)
	}

	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return spendbuilder.Coin{}, fmt.Errorf("coin txid: %w", err)
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return spendbuilder.Coin{}, fmt.Errorf("coin index: %w", err)
	}
	value, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return spendbuilder.Coin{}, fmt.Errorf("coin value: %w", err)
	}
	wif, err := decodeWIF(parts[3], params)
	if err != nil {
		return spendbuilder.Coin{}, fmt.Errorf("coin key: %w", err)
	}

	redeemer, err := spendbuilder.NewRedeemer(patternFor(wif), wif.PrivKey)
	if err != nil {
		return spendbuilder.Coin{}, err
	}

	return spendbuilder.NewCoin(
		*wire.NewOutPoint(hash, uint32(index)), btcutil.Amount(value),
		redeemer,
	)
}

// parsePayment parses address:satoshis.
func parsePayment(s string,
	params *chaincfg.Params) (spendbuilder.ToAddress, error) {

	i := strings.LastIndex(s, ":")
	if i < 0 {
		return spendbuilder.ToAddress{}, fmt.Errorf("payment %q is not "+
			"address:satoshis", s)
	}

	addr, err := btcutil.DecodeAddress(s[:i], params)
	if err != nil {
		return spendbuilder.ToAddress{}, fmt.Errorf("payment address: %w",
			err)
	}
	if !addr.IsForNet(params) {
		return spendbuilder.ToAddress{}, fmt.Errorf("address %v is not "+
			"for network %s", addr, params.Name)
	}
	value, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return spendbuilder.ToAddress{}, fmt.Errorf("payment amount: %w",
			err)
	}

	return spendbuilder.ToAddress{
		Value:   btcutil.Amount(value),
		Address: addr,
	}, nil
}

// parseChange builds the change descriptor from the change key and fee
// options.
func parseChange(cfg *config,
	params *chaincfg.Params) (spendbuilder.Change, error) {

	wif, err := decodeWIF(cfg.Change, params)
	if err != nil {
		return spendbuilder.Change{}, fmt.Errorf("change key: %w", err)
	}

	switch {
	case cfg.Fee != nil:
		return spendbuilder.NewChange(
			patternFor(wif), wif.PrivKey, btcutil.Amount(*cfg.Fee),
		), nil

	case cfg.FeeRate > 0:
		return spendbuilder.NewCalculatedChange(
			patternFor(wif), wif.PrivKey,
			spendbuilder.FeeRatePerKb(btcutil.Amount(cfg.FeeRate)),
		), nil

	default:
		return spendbuilder.NewCalculatedChange(
			patternFor(wif), wif.PrivKey, spendbuilder.OneSatoshiPerByte,
		), nil
	}
}
