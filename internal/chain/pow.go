package chain

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"empower1.com/empower1blockchain/internal/config"
	"empower1.com/empower1blockchain/internal/core"
)

// PoWBlockchain seals blocks by mining: a worker pool races to find a
// nonce whose hash meets the chain's fixed difficulty.
type PoWBlockchain struct {
	*ledger
	difficulty int
}

// NewPoW builds a proof-of-work chain and mines its genesis block, which
// credits the faucet with the configured genesis supply.
func NewPoW(cfg config.Config, log *zap.SugaredLogger) (*PoWBlockchain, error) {
	l, err := newLedger(cfg, log)
	if err != nil {
		return nil, err
	}
	bc := &PoWBlockchain{
		ledger:     l,
		difficulty: cfg.BlockchainDifficulty,
	}
	bc.afterAdmit = func() {
		bc.maybeScheduleAuto(func() {
			if _, err := bc.CreateBlock(bc.drain); err != nil {
				bc.log.Warnw("auto block creation failed", "error", err)
			}
		})
	}

	genesisTx, err := core.New(core.Params{
		Type:   core.TxGenesis,
		To:     bc.faucet,
		Amount: cfg.GenesisCoinsAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: build genesis transaction: %w", err)
	}

	genesis := core.NewBlock(nil, []*core.Transaction{genesisTx})
	if err := genesis.Mine(bc.difficulty, bc.cfg.BlockMinerPoolSize, bc.cfg.MaxBlockNonce); err != nil {
		return nil, fmt.Errorf("chain: mine genesis block: %w", err)
	}
	bc.blocks = append(bc.blocks, genesis)
	bc.blocksByHash[string(genesis.Hash)] = genesis

	return bc, nil
}

// CreateBlock runs the assembly pipeline, mines the resulting block, and
// appends it to the chain. rewardWallet receives the synthesized reward
// and fee transactions.
func (bc *PoWBlockchain) CreateBlock(rewardWallet core.Recipient) (*core.Block, error) {
	if err := bc.beginCreatingBlock(); err != nil {
		return nil, err
	}
	defer bc.endCreatingBlock()

	attempt := uuid.New().String()
	bc.log.Infow("mining attempt started", "attempt_id", attempt, "difficulty", bc.difficulty)

	assembled, kept, err := bc.assemble(rewardWallet)
	if err != nil {
		bc.log.Infow("mining attempt aborted", "attempt_id", attempt, "error", err)
		return nil, err
	}

	b := core.NewBlock(bc.latestHash(), assembled.transactions)
	if err := b.Mine(bc.difficulty, bc.cfg.BlockMinerPoolSize, bc.cfg.MaxBlockNonce); err != nil {
		bc.log.Infow("mining attempt failed", "attempt_id", attempt, "error", err)
		return nil, err
	}

	bc.commit(b, kept)
	bc.log.Infow("mining attempt sealed block", "attempt_id", attempt, "height", len(bc.blocks), "nonce", b.Nonce)
	return b, nil
}

// ValidateIntegrity checks previous-hash linkage and PoW sealing for every
// committed block.
func (bc *PoWBlockchain) ValidateIntegrity() bool {
	return bc.ledger.ValidateIntegrity(core.ConsensusPoW)
}
