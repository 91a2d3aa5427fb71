// Package chain implements the mempool admission and block-assembly
// pipeline shared by the proof-of-work and proof-of-stake chain variants,
// plus the balance and supply queries derived by replaying the ledger.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"empower1.com/empower1blockchain/internal/chainerrors"
	"empower1.com/empower1blockchain/internal/config"
	"empower1.com/empower1blockchain/internal/contract"
	"empower1.com/empower1blockchain/internal/core"
	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/mempool"
)

// namedAddress is a recipient-only wrapper for an address that already
// exists elsewhere in the system (a withdrawal target, an unstaking
// staker) and therefore never needs to sign anything itself.
type namedAddress struct {
	name    string
	address string
}

func (n *namedAddress) Name() string    { return n.name }
func (n *namedAddress) Address() string { return n.address }

// systemAccount is the faucet or drain singleton: a real secp256k1 keypair
// like any wallet, so its outgoing Transaction/Stake/Unstake transactions
// verify under the same signature rule as every other sender.
type systemAccount struct {
	name string
	keys *cryptoutil.KeyPair
}

func newSystemAccount(name string) (*systemAccount, error) {
	keys, err := cryptoutil.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("chain: generate %s keypair: %w", name, err)
	}
	return &systemAccount{name: name, keys: keys}, nil
}

func (s *systemAccount) Name() string    { return s.name }
func (s *systemAccount) Address() string { return s.keys.Address }
func (s *systemAccount) Sign(hash []byte) ([]byte, error) {
	return cryptoutil.Sign(s.keys.Private, hash)
}

var errNothingToAssemble = errors.New("chain: no transactions survived assembly")

// ledger holds the state and pipeline shared by both consensus variants:
// mempool, committed blocks, the deployed-contract registry, and the
// balance-replay queries. PoW- and PoS-specific sealing and genesis
// behavior live in pow.go and pos.go.
type ledger struct {
	mu sync.Mutex

	cfg     config.Config
	log     *zap.SugaredLogger
	runtime *contract.Runtime

	blocks       []*core.Block
	blocksByHash map[string]*core.Block

	mp *mempool.Mempool

	contracts         map[string]*contract.Contract
	contractAddresses mapset.Set[string]

	faucet *systemAccount
	drain  *systemAccount

	isCreatingBlock bool
	autoTimer       *time.Timer

	// onSideEffect lets a consensus variant react to a kept transaction
	// during assembly (PoS uses it to apply Stake/Unstake to its stake
	// ledger). ContractDeploy/ContractCall side effects are handled inline
	// because both variants share identical contract semantics.
	onSideEffect func(tx *core.Transaction)

	// afterAdmit runs once a transaction has been admitted to the mempool,
	// so a consensus variant can arm its auto-create timer. Set by the
	// PoW/PoS constructors; every admission path (AddTransaction, Send,
	// Call, DeployContract) funnels through here rather than each variant
	// re-wrapping AddTransaction, which embedding cannot override virtually.
	afterAdmit func()
}

func newLedger(cfg config.Config, log *zap.SugaredLogger) (*ledger, error) {
	faucet, err := newSystemAccount(cfg.FaucetName)
	if err != nil {
		return nil, err
	}
	drain, err := newSystemAccount(cfg.DrainName)
	if err != nil {
		return nil, err
	}
	return &ledger{
		cfg:               cfg,
		log:               log,
		runtime:           contract.NewRuntime(cfg.GasCostContractCall, cfg.GasCostStorageRead, cfg.GasCostStorageWrite, log),
		blocksByHash:      make(map[string]*core.Block),
		mp:                mempool.New(),
		contracts:         make(map[string]*contract.Contract),
		contractAddresses: mapset.NewSet[string](),
		faucet:            faucet,
		drain:             drain,
	}, nil
}

// AddTransaction validates and admits a transaction to the mempool:
// endpoints present and distinct, a positive amount for plain transfers,
// and a verifying signature.
func (l *ledger) AddTransaction(tx *core.Transaction) error {
	if tx.To == nil {
		return fmt.Errorf("chain: %w: missing recipient", chainerrors.ErrMissingEndpoint)
	}
	if tx.From == nil {
		return fmt.Errorf("chain: %w: missing sender", chainerrors.ErrMissingEndpoint)
	}
	if tx.From.Address() == tx.To.Address() {
		return chainerrors.ErrSameSenderRecipient
	}
	if tx.Type == core.TxTransaction && !tx.Amount.IsPositive() {
		return fmt.Errorf("chain: %w: amount must be positive", chainerrors.ErrInvalidTransaction)
	}
	if !tx.Verify() {
		return chainerrors.ErrInvalidSignature
	}

	if err := l.mp.Add(tx); err != nil {
		return err
	}
	if l.afterAdmit != nil {
		l.afterAdmit()
	}
	return nil
}

// beginCreatingBlock enforces mutual exclusion between concurrent
// createBlock invocations and cancels any pending auto-create timer.
func (l *ledger) beginCreatingBlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isCreatingBlock {
		return chainerrors.ErrAlreadyMining
	}
	l.isCreatingBlock = true
	if l.autoTimer != nil {
		l.autoTimer.Stop()
		l.autoTimer = nil
	}
	return nil
}

func (l *ledger) endCreatingBlock() {
	l.mu.Lock()
	l.isCreatingBlock = false
	l.mu.Unlock()
}

// scheduleAutoBlock arms a one-shot timer that invokes fn once, unless a
// voluntary createBlock cancels it first. Called after mempool admission
// crosses MaxPendingTransactions.
func (l *ledger) scheduleAutoBlock(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.autoTimer != nil {
		return
	}
	delay := time.Duration(l.cfg.AutoCreateBlockDelaySeconds) * time.Second
	l.autoTimer = time.AfterFunc(delay, fn)
}

func (l *ledger) maybeScheduleAuto(fn func()) {
	if l.mp.Len() >= l.cfg.MaxPendingTransactions {
		l.scheduleAutoBlock(fn)
	}
}

// latestHash returns the hash of the most recently committed block, or nil
// if the chain is still empty.
func (l *ledger) latestHash() []byte {
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[len(l.blocks)-1].Hash
}

// GetBalance replays every committed block, crediting `to` and debiting
// `from` by the full amount of each transaction either participates in,
// plus gas cost for ContractCall. O(blocks × tx/block) by design.
func (l *ledger) GetBalance(r core.Recipient) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(r.Address())
}

func (l *ledger) balanceLocked(address string) decimal.Decimal {
	balance := decimal.Zero
	for _, b := range l.blocks {
		for _, tx := range b.Data {
			spending := l.spendingFor(tx, tx.GasUsed)
			if tx.From != nil && tx.From.Address() == address {
				balance = balance.Sub(spending)
			}
			if tx.To != nil && tx.To.Address() == address {
				balance = balance.Add(tx.Amount)
			}
		}
	}
	return balance
}

// GetTotalSupply sums the amount of every Genesis and Reward transaction
// ever committed.
func (l *ledger) GetTotalSupply() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, b := range l.blocks {
		for _, tx := range b.Data {
			if tx.Type == core.TxGenesis || tx.Type == core.TxReward {
				total = total.Add(tx.Amount)
			}
		}
	}
	return total
}

// GetDrainedAmount is the drain address's balance: value permanently
// removed from circulation.
func (l *ledger) GetDrainedAmount() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(l.drain.Address())
}

// GetCirculatingSupply is total supply minus the drained amount.
func (l *ledger) GetCirculatingSupply() decimal.Decimal {
	return l.GetTotalSupply().Sub(l.GetDrainedAmount())
}

// spendingFor computes the balance debit a transaction imposes on its
// sender: the deploy fee for ContractDeploy, amount plus gas cost for
// ContractCall, otherwise amount plus the fixed fee plus the percentage
// fee.
func (l *ledger) spendingFor(tx *core.Transaction, gasUsed uint64) decimal.Decimal {
	switch tx.Type {
	case core.TxContractDeploy:
		return tx.Amount
	case core.TxContractCall, core.TxGasOnly:
		gasCost := decimal.NewFromInt(int64(gasUsed)).Mul(l.cfg.GasPrice)
		return tx.Amount.Add(gasCost)
	case core.TxGenesis, core.TxReward, core.TxFees, core.TxWithdrawal:
		return decimal.Zero
	default:
		return tx.Amount.Add(l.cfg.FixedTransactionFee).Add(tx.Amount.Mul(tx.Fee))
	}
}

// feeFor is the portion of spendingFor's debit that is a fee rather than a
// transfer to tx.To: zero for every type spendingFor does not charge the
// fixed-plus-percentage fee against, and FixedTransactionFee plus the
// percentage fee otherwise. Kept separate from spendingFor because the
// fee, not the full debit, is what totalFees collects for the miner/
// validator's Fees transaction.
func (l *ledger) feeFor(tx *core.Transaction) decimal.Decimal {
	switch tx.Type {
	case core.TxContractDeploy, core.TxContractCall, core.TxGasOnly,
		core.TxGenesis, core.TxReward, core.TxFees, core.TxWithdrawal:
		return decimal.Zero
	default:
		return l.cfg.FixedTransactionFee.Add(tx.Amount.Mul(tx.Fee))
	}
}

// DeployContract submits a ContractDeploy transaction from the contract's
// creator to the drain address for the base-plus-per-byte deployment fee. The
// contract is not registered until the containing block commits.
func (l *ledger) DeployContract(creator core.Recipient, c *contract.Contract) (*core.Transaction, error) {
	fee := l.cfg.ContractDeployBaseFee.Add(
		l.cfg.ContractDeployPerByteFee.Mul(decimal.NewFromInt(int64(c.CodeSize()))),
	)
	tx, err := core.New(core.Params{
		Type:            core.TxContractDeploy,
		From:            creator,
		To:              l.drain,
		Amount:          fee,
		ContractAddress: c.Address(),
	})
	if err != nil {
		return nil, err
	}
	tx.DeployPayload = c
	if err := l.AddTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Faucet returns the chain's singleton faucet account, the source of the
// genesis supply.
func (l *ledger) Faucet() core.Recipient { return l.faucet }

// Drain returns the chain's singleton burn account.
func (l *ledger) Drain() core.Recipient { return l.drain }

// Send constructs and submits a plain value-transfer transaction.
func (l *ledger) Send(from, to core.Recipient, amount decimal.Decimal) (*core.Transaction, error) {
	tx, err := core.New(core.Params{
		Type:   core.TxTransaction,
		From:   from,
		To:     to,
		Amount: amount,
		Fee:    l.cfg.DefaultFeePercentage,
	})
	if err != nil {
		return nil, err
	}
	if err := l.AddTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Call constructs and submits a signed ContractCall transaction.
func (l *ledger) Call(sender core.Recipient, target *contract.Contract, funcName string, value decimal.Decimal, gasLimit uint64, args ...interface{}) (*core.Transaction, error) {
	if gasLimit == 0 {
		gasLimit = l.cfg.DefaultGasLimit
	}
	if gasLimit > l.cfg.MaxGasLimit {
		gasLimit = l.cfg.MaxGasLimit
	}
	tx, err := core.New(core.Params{
		Type:            core.TxContractCall,
		From:            sender,
		To:              target,
		Amount:          value,
		ContractAddress: target.Address(),
		FunctionName:    funcName,
		FunctionArgs:    args,
		GasLimit:        gasLimit,
	})
	if err != nil {
		return nil, err
	}
	if err := l.AddTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetContract looks up a registered (committed) contract by address.
func (l *ledger) GetContract(address string) (*contract.Contract, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.contracts[address]
	if !ok {
		return nil, chainerrors.ErrContractNotFound
	}
	return c, nil
}

// GetBlockByHash looks up a committed block.
func (l *ledger) GetBlockByHash(hash []byte) (*core.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.blocksByHash[string(hash)]
	if !ok {
		return nil, chainerrors.ErrBlockNotFound
	}
	return b, nil
}

// Height returns the number of committed blocks.
func (l *ledger) Height() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// assembledBlock is the unsealed result of running the admission pipeline
// over the current mempool: a transaction list ready to become a Block's
// Data once a consensus variant seals it.
type assembledBlock struct {
	transactions []*core.Transaction
}

// assemble runs the balance-aware transaction selection over the current
// mempool, applies contract side effects for kept ContractDeploy/ContractCall
// transactions, and synthesizes the block's reward and fee transactions,
// without sealing the resulting block. It returns errNothingToAssemble if no
// pending transaction survives.
func (l *ledger) assemble(rewardRecipient core.Recipient) (*assembledBlock, []*core.Transaction, error) {
	l.mu.Lock()
	pending := l.mp.All()
	l.mu.Unlock()

	running := make(map[string]decimal.Decimal)
	loadBalance := func(r core.Recipient) decimal.Decimal {
		if r == nil {
			return decimal.Zero
		}
		if v, ok := running[r.Address()]; ok {
			return v
		}
		l.mu.Lock()
		v := l.balanceLocked(r.Address())
		l.mu.Unlock()
		running[r.Address()] = v
		return v
	}

	var kept []*core.Transaction
	var totalFees decimal.Decimal
	callTargets := make(map[string]*contract.Contract)

	for _, tx := range pending {
		if !tx.Verify() {
			continue
		}

		var c *contract.Contract
		if tx.Type == core.TxContractCall {
			var err error
			c, err = l.GetContract(tx.ContractAddress)
			if err != nil {
				continue
			}
			callTargets[tx.ContractAddress] = c
		}

		var gasUsed uint64
		if tx.Type == core.TxContractCall {
			contractBalance := loadBalance(c)
			result := l.runtime.Call(c, tx.From.Address(), tx.Amount, contractBalance, l.drain.Address(), tx.GasLimit, tx.FunctionName, tx.FunctionArgs...)
			gasUsed = result.GasUsed
			tx.GasUsed = gasUsed
			tx.CallResult = result
		}

		spending := l.spendingFor(tx, gasUsed)
		fromBal := loadBalance(tx.From)
		newFrom := fromBal.Sub(spending)

		if newFrom.IsNegative() {
			if tx.Type == core.TxContractCall {
				gasCost := decimal.NewFromInt(int64(gasUsed)).Mul(l.cfg.GasPrice)
				if fromBal.GreaterThanOrEqual(gasCost) {
					tx.Type = core.TxGasOnly
					running[tx.From.Address()] = fromBal.Sub(gasCost)
					kept = append(kept, tx)
				}
			}
			continue
		}

		running[tx.From.Address()] = newFrom
		if tx.To != nil {
			running[tx.To.Address()] = loadBalance(tx.To).Add(tx.Amount)
		}
		totalFees = totalFees.Add(l.feeFor(tx))
		kept = append(kept, tx)
	}

	if len(kept) == 0 {
		return nil, nil, errNothingToAssemble
	}

	var internal []*core.Transaction
	var gasFees decimal.Decimal

	for _, tx := range kept {
		switch tx.Type {
		case core.TxContractDeploy:
			c, ok := tx.DeployPayload.(*contract.Contract)
			if !ok || c == nil {
				continue
			}
			if err := l.runtime.Init(c, tx.From.Address()); err != nil {
				l.log.Warnw("contract init failed, not registering", "address", c.Address(), "error", err)
				continue
			}
			l.mu.Lock()
			l.contracts[c.Address()] = c
			l.contractAddresses.Add(c.Address())
			l.mu.Unlock()

		case core.TxContractCall:
			result, ok := tx.CallResult.(*contract.CallResult)
			if !ok || result == nil || !result.Success {
				continue
			}
			target := callTargets[tx.ContractAddress]
			gasFees = gasFees.Add(decimal.NewFromInt(int64(tx.GasUsed)).Mul(l.cfg.GasPrice))
			if len(result.Transfers) == 0 {
				l.runtime.Commit(target, result)
				continue
			}
			totalTransfer := decimal.Zero
			for _, t := range result.Transfers {
				totalTransfer = totalTransfer.Add(t.Amount)
			}
			contractBal := loadBalance(target)
			if contractBal.LessThan(totalTransfer) {
				continue // insufficient contract balance: discard requested transfers
			}
			l.runtime.Commit(target, result)
			for _, t := range result.Transfers {
				recipient := &namedAddress{name: t.To, address: t.To}
				wd, err := core.New(core.Params{
					Type:   core.TxWithdrawal,
					From:   target,
					To:     recipient,
					Amount: t.Amount,
				})
				if err != nil {
					continue
				}
				running[tx.ContractAddress] = loadBalance(target).Sub(t.Amount)
				running[t.To] = loadBalance(recipient).Add(t.Amount)
				internal = append(internal, wd)
			}

		case core.TxGasOnly:
			gasFees = gasFees.Add(decimal.NewFromInt(int64(tx.GasUsed)).Mul(l.cfg.GasPrice))
		}

		if l.onSideEffect != nil {
			l.onSideEffect(tx)
		}
	}

	rewardTx, err := core.New(core.Params{
		Type:   core.TxReward,
		To:     rewardRecipient,
		Amount: decimal.NewFromInt(int64(len(kept))).Mul(l.cfg.RewardPerMinedTransaction),
	})
	if err != nil {
		return nil, nil, err
	}
	feesTx, err := core.New(core.Params{
		Type:   core.TxFees,
		To:     rewardRecipient,
		Amount: totalFees.Add(gasFees),
	})
	if err != nil {
		return nil, nil, err
	}

	txs := make([]*core.Transaction, 0, 2+len(kept)+len(internal))
	txs = append(txs, rewardTx, feesTx)
	txs = append(txs, kept...)
	txs = append(txs, internal...)

	return &assembledBlock{transactions: txs}, kept, nil
}

// commit appends a sealed block to the chain and prunes its non-synthetic
// transactions from the mempool.
func (l *ledger) commit(b *core.Block, kept []*core.Transaction) {
	l.mu.Lock()
	l.blocks = append(l.blocks, b)
	l.blocksByHash[string(b.Hash)] = b
	l.mu.Unlock()

	l.mp.Remove(kept)
}

// ValidateIntegrity walks the committed chain checking previous-hash
// linkage and per-block consensus validity.
func (l *ledger) ValidateIntegrity(consensus core.Consensus) bool {
	l.mu.Lock()
	blocks := make([]*core.Block, len(l.blocks))
	copy(blocks, l.blocks)
	l.mu.Unlock()

	for i, b := range blocks {
		if i == 0 {
			continue // genesis anchor: no previous-hash check, consensus-specific validation below
		}
		prev := blocks[i-1]
		if string(b.PreviousHash) != string(prev.Hash) {
			return false
		}
	}
	for i, b := range blocks {
		if i == 0 && consensus == core.ConsensusPoS {
			continue // PoS genesis is unsigned by convention
		}
		if !b.Validate(consensus) {
			return false
		}
	}
	return true
}
