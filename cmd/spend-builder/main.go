package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"

	spendbuilder "github.com/SashaZezulinsky/spend-builder"
)

const version = "1.0.0"

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		fatalf("%v", err)
	}
}

// run builds and signs the transaction described by args and writes it to
// out. Log output goes to logOut.
func run(args []string, out, logOut io.Writer) error {
	cfg, params, err := loadConfig(args)
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Fprintf(out, "spend-builder version %s\n", version)
		return nil
	}

	logger := btclog.NewBackend(logOut).Logger("SPND")
	level, ok := btclog.LevelFromString(cfg.DebugLevel)
	if !ok {
		return fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
	}
	logger.SetLevel(level)
	spendbuilder.UseLogger(logger)

	coins := make([]spendbuilder.Coin, 0, len(cfg.Coins))
	for _, s := range cfg.Coins {
		coin, err := parseCoin(s, params)
		if err != nil {
			return err
		}
		coins = append(coins, coin)
	}
	funds := spendbuilder.NewFunds(coins...)

	policy, err := spendbuilder.ParseSpendPolicy(cfg.Policy)
	if err != nil {
		return err
	}
	payments := []spendbuilder.Payment{policy}
	for _, s := range cfg.Payments {
		payment, err := parsePayment(s, params)
		if err != nil {
			return err
		}
		payments = append(payments, payment)
	}
	if cfg.Change != "" {
		change, err := parseChange(cfg, params)
		if err != nil {
			return err
		}
		payments = append(payments, change)
	}

	plan, err := spendbuilder.NewPlan().Pay(payments...)
	if err != nil {
		return err
	}

	builderCfg := spendbuilder.DefaultConfig()
	builderCfg.VerifyScripts = !cfg.NoVerify
	spent, err := spendbuilder.NewTxBuilder(builderCfg).Spend(plan, funds)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := spent.Tx.Serialize(&buf); err != nil {
		return err
	}

	fmt.Fprintf(out, "txid: %v\n", spent.Tx.TxHash())
	fmt.Fprintf(out, "fee: %v\n", spent.Fee)
	fmt.Fprintf(out, "hex: %s\n", hex.EncodeToString(buf.Bytes()))
	for _, coin := range spent.Remainder.Coins() {
		fmt.Fprintf(out, "remaining: %v %v\n", coin.OutPoint, coin.Value)
	}
	spent.Change.WhenSome(func(c spendbuilder.Coin) {
		fmt.Fprintf(out, "change: %v %v\n", c.OutPoint, c.Value)
	})

	return nil
}
