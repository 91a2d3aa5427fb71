package chain

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"empower1.com/empower1blockchain/internal/chainerrors"
	"empower1.com/empower1blockchain/internal/config"
	"empower1.com/empower1blockchain/internal/core"
	"empower1.com/empower1blockchain/internal/cryptoutil"
)

// validatorSigner is the capability a staked validator must offer to seal
// a block: signing the block's content hash.
type validatorSigner interface {
	Address() string
	Name() string
	Sign(hash []byte) ([]byte, error)
}

// PoSBlockchain seals blocks by signature: a validator is drawn from the
// staker set with probability proportional to stake, then signs the block.
// Because this is a single-process educational node, it holds the signer
// for every registered staker directly rather than modeling a network of
// independent validator processes.
type PoSBlockchain struct {
	*ledger

	stakers    map[string]decimal.Decimal
	validators map[string]validatorSigner
	stakerSet  mapset.Set[string]
}

// NewPoS builds a proof-of-stake chain with an unsigned genesis block,
// accepted by convention as the chain's anchor.
func NewPoS(cfg config.Config, log *zap.SugaredLogger) (*PoSBlockchain, error) {
	l, err := newLedger(cfg, log)
	if err != nil {
		return nil, err
	}
	bc := &PoSBlockchain{
		ledger:     l,
		stakers:    make(map[string]decimal.Decimal),
		validators: make(map[string]validatorSigner),
		stakerSet:  mapset.NewSet[string](),
	}
	bc.onSideEffect = bc.applyStakeSideEffect
	bc.afterAdmit = func() {
		bc.maybeScheduleAuto(func() {
			if _, err := bc.CreateBlock(); err != nil {
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
	genesis.MarkCreatedUnsigned()
	bc.blocks = append(bc.blocks, genesis)
	bc.blocksByHash[string(genesis.Hash)] = genesis

	return bc, nil
}

// Stake registers staker's signer for future validator selection and
// submits a Stake transaction from staker to the drain address; on
// commit, staker's locked amount increases by amount.
func (bc *PoSBlockchain) Stake(staker validatorSigner, amount decimal.Decimal) (*core.Transaction, error) {
	bc.mu.Lock()
	bc.validators[staker.Address()] = staker
	bc.mu.Unlock()

	tx, err := core.New(core.Params{
		Type:   core.TxStake,
		From:   staker,
		To:     bc.drain,
		Amount: amount,
		Fee:    bc.cfg.DefaultFeePercentage,
	})
	if err != nil {
		return nil, err
	}
	if err := bc.AddTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Unstake submits an Unstake transaction from the drain address to staker.
// It fails fast if staker currently has less than amount locked.
func (bc *PoSBlockchain) Unstake(stakerAddress string, amount decimal.Decimal) (*core.Transaction, error) {
	bc.mu.Lock()
	current := bc.stakers[stakerAddress]
	bc.mu.Unlock()
	if current.LessThan(amount) {
		return nil, fmt.Errorf("chain: unstake %s: %w", stakerAddress, chainerrors.ErrInsufficientFunds)
	}

	tx, err := core.New(core.Params{
		Type:   core.TxUnstake,
		From:   bc.drain,
		To:     &namedAddress{name: stakerAddress, address: stakerAddress},
		Amount: amount,
	})
	if err != nil {
		return nil, err
	}
	if err := bc.AddTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// applyStakeSideEffect updates the stake ledger once a Stake/Unstake
// transaction survives assembly, wired as the ledger's onSideEffect hook.
func (bc *PoSBlockchain) applyStakeSideEffect(tx *core.Transaction) {
	switch tx.Type {
	case core.TxStake:
		bc.mu.Lock()
		addr := tx.From.Address()
		bc.stakers[addr] = bc.stakers[addr].Add(tx.Amount)
		bc.stakerSet.Add(addr)
		bc.mu.Unlock()
	case core.TxUnstake:
		bc.mu.Lock()
		addr := tx.To.Address()
		bc.stakers[addr] = bc.stakers[addr].Sub(tx.Amount)
		bc.mu.Unlock()
	}
}

// SelectValidator draws a staker address with probability proportional to
// its locked stake: sample r in [0,1) from a secure source, walk stakers
// in deterministic (sorted-address) order accumulating stake/totalStake,
// and return the first whose cumulative weight exceeds r — the heaviest
// staker on a rounding edge. If total stake is zero, the faucet validates.
func (bc *PoSBlockchain) SelectValidator() (string, error) {
	bc.mu.Lock()
	addrs := make([]string, 0, len(bc.stakers))
	total := decimal.Zero
	for addr, amt := range bc.stakers {
		if amt.IsPositive() {
			addrs = append(addrs, addr)
			total = total.Add(amt)
		}
	}
	bc.mu.Unlock()

	if total.IsZero() || len(addrs) == 0 {
		return bc.faucet.Address(), nil
	}
	sort.Strings(addrs)

	r, err := cryptoutil.RandomUnitInterval()
	if err != nil {
		return "", fmt.Errorf("chain: select validator: %w", err)
	}

	heaviest := addrs[0]
	heaviestStake := decimal.Zero
	cumulative := decimal.Zero
	rTarget := decimal.NewFromFloat(r)
	for _, addr := range addrs {
		bc.mu.Lock()
		stake := bc.stakers[addr]
		bc.mu.Unlock()
		if stake.GreaterThan(heaviestStake) {
			heaviest = addr
			heaviestStake = stake
		}
		cumulative = cumulative.Add(stake.Div(total))
		if cumulative.GreaterThan(rTarget) {
			return addr, nil
		}
	}
	return heaviest, nil
}

// CreateBlock selects a validator by stake weight, runs the assembly
// pipeline rewarding that validator, seals the block with its signature,
// and appends it to the chain. If total stake is zero, the faucet is
// selected and signs the block itself. If the selected address has no
// signer registered via Stake, that address receives the reward as a
// recipient-only address and the block is left unsigned.
func (bc *PoSBlockchain) CreateBlock() (*core.Block, error) {
	if err := bc.beginCreatingBlock(); err != nil {
		return nil, err
	}
	defer bc.endCreatingBlock()

	attempt := uuid.New().String()

	selected, err := bc.SelectValidator()
	if err != nil {
		bc.log.Infow("validator selection failed", "attempt_id", attempt, "error", err)
		return nil, err
	}
	bc.log.Infow("sealing attempt started", "attempt_id", attempt, "validator", selected)

	bc.mu.Lock()
	signer, hasSigner := bc.validators[selected]
	bc.mu.Unlock()
	if !hasSigner && selected == bc.faucet.Address() {
		signer, hasSigner = bc.faucet, true
	}

	var rewardRecipient core.Recipient
	if hasSigner {
		rewardRecipient = signer
	} else {
		rewardRecipient = &namedAddress{name: selected, address: selected}
	}

	assembled, kept, err := bc.assemble(rewardRecipient)
	if err != nil {
		bc.log.Infow("sealing attempt aborted", "attempt_id", attempt, "error", err)
		return nil, err
	}

	b := core.NewBlock(bc.latestHash(), assembled.transactions)
	if hasSigner {
		if err := b.Sign(signer); err != nil {
			return nil, err
		}
	} else {
		b.MarkCreatedUnsigned()
	}

	bc.commit(b, kept)
	bc.log.Infow("sealing attempt sealed block", "attempt_id", attempt, "height", len(bc.blocks), "validator", selected, "signed", hasSigner)
	return b, nil
}

// ValidateIntegrity checks previous-hash linkage and signature validity
// for every committed block except the unsigned PoS genesis anchor.
func (bc *PoSBlockchain) ValidateIntegrity() bool {
	return bc.ledger.ValidateIntegrity(core.ConsensusPoS)
}
