package contract

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"empower1.com/empower1blockchain/internal/chainerrors"
)

// Runtime executes contract functions with gas metering over a contract's
// storage, following a two-phase preflight-then-commit protocol.
type Runtime struct {
	gasCostCall  uint64
	gasCostRead  uint64
	gasCostWrite uint64
	log          *zap.SugaredLogger
}

// NewRuntime builds a Runtime priced with the given gas constants for a
// bare call, a storage read, and a storage write.
func NewRuntime(gasCostCall, gasCostRead, gasCostWrite uint64, log *zap.SugaredLogger) *Runtime {
	return &Runtime{gasCostCall: gasCostCall, gasCostRead: gasCostRead, gasCostWrite: gasCostWrite, log: log}
}

// CallResult is the outcome of a preflight execution. The working storage
// copy is kept unexported: callers commit through Runtime.Commit rather
// than reaching into contract internals directly.
type CallResult struct {
	Success   bool
	Result    interface{}
	GasUsed   uint64
	Error     error
	Transfers []Transfer

	working map[string]interface{}
}

// Init runs a contract's __init__ function exactly once, only for its
// creator, writing directly to real storage because deployment is atomic
// with init.
func (r *Runtime) Init(c *Contract, creatorAddr string, args ...interface{}) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return chainerrors.ErrAlreadyInitialized
	}
	if creatorAddr != c.creator {
		c.mu.Unlock()
		return fmt.Errorf("contract %s: %w", c.address, chainerrors.ErrOwnership)
	}
	fn, hasInit := c.functions["__init__"]
	storage := c.storage
	c.mu.Unlock()

	if !hasInit {
		c.mu.Lock()
		c.initialized = true
		c.mu.Unlock()
		return nil
	}

	var gasUsed uint64
	ms := newMeteredStorage(storage, &gasUsed, ^uint64(0), r.gasCostRead, r.gasCostWrite)
	ctx := &Context{
		Storage: ms,
		Views:   bindViews(c.views, c.snapshot()),
		Msg:     MsgInfo{Sender: creatorAddr},
		Creator: c.creator,
		Address: c.address,
	}

	if _, err := r.invoke(fn, ctx, args); err != nil {
		return fmt.Errorf("contract %s: __init__: %w", c.address, err)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	if r.log != nil {
		r.log.Infow("contract initialized", "address", c.address, "name", c.name)
	}
	return nil
}

// Call preflights a function invocation against a storage snapshot: it runs
// the function over a proxied, gas-metered working copy of storage and never
// mutates live storage itself. The chain's block assembly pipeline commits
// the result separately.
func (r *Runtime) Call(c *Contract, caller string, value decimal.Decimal, contractBalance decimal.Decimal, drainAddr string, gasLimit uint64, name string, args ...interface{}) *CallResult {
	fn, ok := c.functions[name]
	if !ok {
		return &CallResult{Success: false, Error: chainerrors.ErrUnknownFunction, GasUsed: 0}
	}

	gasUsed := r.gasCostCall
	if gasUsed > gasLimit {
		return &CallResult{Success: false, Error: chainerrors.ErrOutOfGas, GasUsed: gasLimit}
	}

	working := c.snapshot()
	ms := newMeteredStorage(working, &gasUsed, gasLimit, r.gasCostRead, r.gasCostWrite)
	ctx := &Context{
		Storage: ms,
		Views:   bindViews(c.views, c.snapshot()),
		Msg:     MsgInfo{Sender: caller, Value: value},
		Creator: c.creator,
		Address: c.address,
		Env: EnvInfo{
			ContractBalance: contractBalance,
			Drain:           drainAddr,
		},
	}

	result, err := r.invoke(fn, ctx, args)
	if err != nil {
		if errors.Is(err, chainerrors.ErrOutOfGas) {
			gasUsed = gasLimit
		}
		if r.log != nil {
			r.log.Infow("contract call reverted", "address", c.address, "function", name, "error", err)
		}
		return &CallResult{Success: false, Error: err, GasUsed: gasUsed}
	}
	if gasUsed > gasLimit {
		return &CallResult{Success: false, Error: chainerrors.ErrOutOfGas, GasUsed: gasLimit}
	}

	return &CallResult{Success: true, Result: result, GasUsed: gasUsed, Transfers: ctx.transfers, working: working}
}

// Commit finalizes a successful call's working storage into the contract's
// live storage. Called by the chain pipeline only after it has confirmed the
// contract can cover the call's requested transfers.
func (r *Runtime) Commit(c *Contract, result *CallResult) {
	if result == nil || !result.Success {
		return
	}
	c.commit(result.working)
}

// invoke runs fn over ctx with args, converting a contract-code panic into a
// revert error so a misbehaving user function can never take down block
// assembly.
func (r *Runtime) invoke(fn Func, ctx *Context, args []interface{}) (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("contract panicked: %v", p)
		}
	}()
	return fn(ctx, args...)
}
