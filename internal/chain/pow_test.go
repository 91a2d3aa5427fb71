package chain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"empower1.com/empower1blockchain/internal/chainerrors"
	"empower1.com/empower1blockchain/internal/config"
	"empower1.com/empower1blockchain/internal/contract"
	"empower1.com/empower1blockchain/internal/core"
	"empower1.com/empower1blockchain/internal/wallet"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.BlockchainDifficulty = 1
	cfg.BlockMinerPoolSize = 2
	cfg.MaxBlockNonce = 20000
	cfg.MaxPendingTransactions = 1000
	cfg.AutoCreateBlockDelaySeconds = 3600
	return cfg
}

func testLog() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func newTestWallet(t *testing.T, name string) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(name)
	require.NoError(t, err)
	return w
}

func TestNewPoWMinesGenesisCreditingFaucet(t *testing.T) {
	bc, err := NewPoW(testConfig(), testLog())
	require.NoError(t, err)
	require.Equal(t, 1, bc.Height())
	require.True(t, bc.GetBalance(bc.Faucet()).Equal(testConfig().GenesisCoinsAmount))
	require.True(t, bc.ValidateIntegrity())
}

func TestSendAndCreateBlockUpdatesBalances(t *testing.T) {
	cfg := testConfig()
	bc, err := NewPoW(cfg, testLog())
	require.NoError(t, err)

	alice := newTestWallet(t, "Alice")
	bob := newTestWallet(t, "Bob")

	_, err = bc.Send(bc.Faucet(), alice, decimal.NewFromInt(200))
	require.NoError(t, err)

	_, err = bc.CreateBlock(bob)
	require.NoError(t, err)
	require.Equal(t, 2, bc.Height())

	expectedAlice := decimal.NewFromInt(200)
	require.True(t, bc.GetBalance(alice).Equal(expectedAlice), "alice balance = %s, want %s", bc.GetBalance(alice), expectedAlice)

	// Bob mined the block: reward for 1 kept tx + the fixed+percentage fee
	// debited from Alice's transfer (0.1 reward + 0.05 + 200*0.01 fee = 2.15).
	expectedBob := decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.05)).Add(decimal.NewFromInt(200).Mul(decimal.NewFromFloat(0.01)))
	require.True(t, bc.GetBalance(bob).Equal(expectedBob), "bob balance = %s, want %s", bc.GetBalance(bob), expectedBob)
	require.True(t, bc.ValidateIntegrity())
}

func TestAddTransactionRejectsBadTransactions(t *testing.T) {
	bc, err := NewPoW(testConfig(), testLog())
	require.NoError(t, err)
	alice := newTestWallet(t, "Alice")

	_, err = bc.Send(bc.Faucet(), alice, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = bc.CreateBlock(alice)
	require.NoError(t, err)

	_, err = bc.Send(alice, alice, decimal.NewFromInt(10))
	require.ErrorIs(t, err, chainerrors.ErrSameSenderRecipient)

	_, err = bc.Send(alice, bc.Faucet(), decimal.NewFromInt(-5))
	require.Error(t, err)

	tx, err := core.New(core.Params{Type: core.TxTransaction, From: alice, To: bc.Faucet(), Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	tx.Signature = []byte("forged")
	err = bc.AddTransaction(tx)
	require.ErrorIs(t, err, chainerrors.ErrInvalidSignature)
}

func TestCreateBlockRejectsConcurrentMining(t *testing.T) {
	bc, err := NewPoW(testConfig(), testLog())
	require.NoError(t, err)

	require.NoError(t, bc.beginCreatingBlock())
	_, err = bc.CreateBlock(bc.drain)
	require.ErrorIs(t, err, chainerrors.ErrAlreadyMining)
	bc.endCreatingBlock()
}

func TestDeployAndCallContractAccruesGasFees(t *testing.T) {
	cfg := testConfig()
	bc, err := NewPoW(cfg, testLog())
	require.NoError(t, err)

	alice := newTestWallet(t, "Alice")
	bob := newTestWallet(t, "Bob")
	_, err = bc.Send(bc.Faucet(), alice, decimal.NewFromInt(500))
	require.NoError(t, err)
	_, err = bc.CreateBlock(bob)
	require.NoError(t, err)

	counter := newDemoCounter(alice.Address())
	_, err = bc.DeployContract(alice, counter)
	require.NoError(t, err)
	_, err = bc.CreateBlock(bob)
	require.NoError(t, err)

	deployed, err := bc.GetContract(counter.Address())
	require.NoError(t, err)
	require.True(t, deployed.Initialized())

	_, err = bc.Call(alice, deployed, "increment", decimal.Zero, cfg.DefaultGasLimit)
	require.NoError(t, err)
	bobBefore := bc.GetBalance(bob)
	_, err = bc.CreateBlock(bob)
	require.NoError(t, err)

	// increment costs the base call plus one storage read and one write.
	gasFee := decimal.NewFromInt(int64(cfg.GasCostContractCall + cfg.GasCostStorageRead + cfg.GasCostStorageWrite)).Mul(cfg.GasPrice)
	wantGain := cfg.RewardPerMinedTransaction.Add(gasFee)
	gotGain := bc.GetBalance(bob).Sub(bobBefore)
	require.True(t, gotGain.Equal(wantGain), "bob gained %s, want %s", gotGain, wantGain)

	got, err := deployed.CallView("getCount")
	require.NoError(t, err)
	require.Equal(t, int64(1), got)
	require.True(t, bc.ValidateIntegrity())
}

func TestAfterAdmitSchedulesAutoBlockOnSend(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPendingTransactions = 1
	cfg.AutoCreateBlockDelaySeconds = 0
	bc, err := NewPoW(cfg, testLog())
	require.NoError(t, err)

	alice := newTestWallet(t, "Alice")
	heightBefore := bc.Height()

	// Send (not AddTransaction directly) must still trigger the auto-create
	// timer, proving the hook fires through a wrapping admission path.
	_, err = bc.Send(bc.Faucet(), alice, decimal.NewFromInt(1))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bc.Height() > heightBefore
	}, time.Second, 5*time.Millisecond)
}

func newDemoCounter(creator string) *contract.Contract {
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
	return contract.New("Counter", creator, 0, map[string]interface{}{"count": int64(0)}, views, functions)
}
