package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"empower1.com/empower1blockchain/internal/chain"
	"empower1.com/empower1blockchain/internal/config"
	"empower1.com/empower1blockchain/internal/contract"
	"empower1.com/empower1blockchain/internal/wallet"
)

func runDemo(cfg config.Config, log *zap.SugaredLogger) (*chain.PoWBlockchain, error) {
	bc, err := chain.NewPoW(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init blockchain: %w", err)
	}
	log.Infow("proof-of-work chain initialized", "height", bc.Height(), "difficulty", cfg.BlockchainDifficulty)

	alice, err := wallet.New("Alice")
	if err != nil {
		return nil, fmt.Errorf("create wallet Alice: %w", err)
	}
	bob, err := wallet.New("Bob")
	if err != nil {
		return nil, fmt.Errorf("create wallet Bob: %w", err)
	}

	if _, err := bc.Send(bc.Faucet(), alice, decimal.NewFromInt(200)); err != nil {
		return nil, fmt.Errorf("faucet grant to Alice: %w", err)
	}
	if _, err := bc.CreateBlock(bob); err != nil {
		return nil, fmt.Errorf("mine block 1: %w", err)
	}
	log.Infow("block mined", "height", bc.Height(),
		"alice_balance", bc.GetBalance(alice), "bob_balance", bc.GetBalance(bob))

	counter := newCounterContract(alice.Address())
	if _, err := bc.DeployContract(alice, counter); err != nil {
		return nil, fmt.Errorf("deploy counter contract: %w", err)
	}
	if _, err := bc.CreateBlock(bob); err != nil {
		return nil, fmt.Errorf("mine block 2: %w", err)
	}

	if _, err := bc.Call(alice, counter, "increment", decimal.Zero, cfg.DefaultGasLimit); err != nil {
		return nil, fmt.Errorf("call increment: %w", err)
	}
	if _, err := bc.Call(alice, counter, "increment", decimal.Zero, cfg.DefaultGasLimit); err != nil {
		return nil, fmt.Errorf("call increment: %w", err)
	}
	if _, err := bc.CreateBlock(bob); err != nil {
		return nil, fmt.Errorf("mine block 3: %w", err)
	}

	count, err := counter.CallView("getCount")
	if err != nil {
		return nil, fmt.Errorf("view getCount: %w", err)
	}
	log.Infow("counter contract state", "address", counter.Address(), "count", count)

	log.Infow("chain summary",
		"height", bc.Height(),
		"total_supply", bc.GetTotalSupply(),
		"circulating_supply", bc.GetCirculatingSupply(),
		"valid", bc.ValidateIntegrity(),
	)
	return bc, nil
}

// newCounterContract builds a minimal stateful contract: increment bumps a
// stored count by one, getCount reads it back.
func newCounterContract(creator string) *contract.Contract {
	views := map[string]contract.ViewFunc{
		"getCount": func(storage map[string]interface{}, _ ...interface{}) (interface{}, error) {
			return storage["count"], nil
		},
	}
	functions := map[string]contract.Func{
		"increment": func(ctx *contract.Context, _ ...interface{}) (interface{}, error) {
			raw, err := ctx.Storage.Get("count")
			if err != nil {
				return nil, err
			}
			count, _ := raw.(int64)
			count++
			if err := ctx.Storage.Set("count", count); err != nil {
				return nil, err
			}
			return count, nil
		},
	}
	initialStorage := map[string]interface{}{"count": int64(0)}
	return contract.New("Counter", creator, 0, initialStorage, views, functions)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "empower1d: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		log.Fatalw("load config", "error", err)
	}

	log.Infow("starting empower1d", "currency", cfg.CurrencyName, "symbol", cfg.CurrencySymbol)

	if _, err := runDemo(cfg, log); err != nil {
		log.Fatalw("demo run failed", "error", err)
	}

	log.Info("node running, press Ctrl+C to stop")
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	log.Infow("caught signal, shutting down", "signal", sig.String())
}
