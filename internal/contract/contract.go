// Package contract implements a sandboxed smart-contract runtime:
// gas-metered storage access, preflight-then-commit execution, payable
// calls, and revert semantics. Contract code is not a bytecode program —
// it is a Go-native mapping of name to function-over-context, with metering
// done by handing each call a wrapped storage accessor rather than through
// global interception.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"

	"empower1.com/empower1blockchain/internal/chainerrors"
)

// ViewFunc is a read-only contract function. It runs over a shallow copy
// of storage and never consumes gas; the copy is not frozen, but changes a
// view makes to it never reach live storage.
type ViewFunc func(storage map[string]interface{}, args ...interface{}) (interface{}, error)

// Func is a state-mutating contract function, executed through a Context
// that meters every storage access.
type Func func(ctx *Context, args ...interface{}) (interface{}, error)

// Contract is the deployed, addressable unit of sandboxed code. Its storage
// is exclusively mutated by the Runtime during calls or revert.
type Contract struct {
	name       string
	creator    string
	address    string
	deployedAt int64

	views     map[string]ViewFunc
	functions map[string]Func

	mu          sync.Mutex
	storage     map[string]interface{}
	initialized bool
}

// New constructs a contract with the given initial storage, views, and
// functions. The address is derived from SHA256(deployedAt ‖ creator ‖ name).
func New(name, creator string, deployedAt int64, initialStorage map[string]interface{}, views map[string]ViewFunc, functions map[string]Func) *Contract {
	storage := make(map[string]interface{}, len(initialStorage))
	for k, v := range initialStorage {
		storage[k] = v
	}
	if views == nil {
		views = map[string]ViewFunc{}
	}
	if functions == nil {
		functions = map[string]Func{}
	}
	return &Contract{
		name:       name,
		creator:    creator,
		deployedAt: deployedAt,
		address:    deriveAddress(deployedAt, creator, name),
		views:      views,
		functions:  functions,
		storage:    storage,
	}
}

func deriveAddress(deployedAt int64, creator, name string) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(deployedAt, 10)))
	h.Write([]byte("-"))
	h.Write([]byte(creator))
	h.Write([]byte("-"))
	h.Write([]byte(name))
	return hex.EncodeToString(h.Sum(nil))
}

// Name satisfies the Recipient duck-typed interface used by internal/core.
func (c *Contract) Name() string { return c.name }

// Address satisfies the Recipient duck-typed interface used by internal/core.
func (c *Contract) Address() string { return c.address }

// Creator returns the address that deployed this contract.
func (c *Contract) Creator() string { return c.creator }

// Initialized reports whether __init__ has already run.
func (c *Contract) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// CodeSize returns a deterministic, implementation-defined approximation of
// the contract's serialized size, used to price deployment. encoding/json
// sorts map keys when marshaling, so this is stable across runs regardless
// of Go's randomized map iteration order.
func (c *Contract) CodeSize() int {
	size := 0
	for name := range c.views {
		size += len(name) + 32
	}
	for name := range c.functions {
		size += len(name) + 64
	}
	if raw, err := json.Marshal(c.storage); err == nil {
		size += len(raw)
	}
	return size
}

// CallView invokes a read-only view off-chain, over a shallow copy of
// current storage. It never consumes gas and never affects chain state.
func (c *Contract) CallView(name string, args ...interface{}) (interface{}, error) {
	fn, ok := c.views[name]
	if !ok {
		return nil, chainerrors.ErrUnknownFunction
	}
	return fn(c.snapshot(), args...)
}

// snapshot returns a shallow copy of live storage. Values stored by contract
// code are simple immutable types (decimal.Decimal, string, bool, numbers),
// so a shallow copy is a sufficient working set for preflight execution.
func (c *Contract) snapshot() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make(map[string]interface{}, len(c.storage))
	for k, v := range c.storage {
		cp[k] = v
	}
	return cp
}

// commit replaces live storage with the given working copy.
func (c *Contract) commit(working map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storage = working
}
