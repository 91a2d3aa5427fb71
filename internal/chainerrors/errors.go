// Package chainerrors centralizes the sentinel errors surfaced across the
// ledger engine: one var block per concern, wrapped at the call site with
// fmt.Errorf("...: %w", ...) and inspected with errors.Is/errors.As.
package chainerrors

import "errors"

// Ownership / authorization errors.
var (
	// ErrOwnership is returned when a caller attempts an action reserved for
	// the contract creator (e.g. running __init__ as anyone else).
	ErrOwnership = errors.New("caller is not authorized for this action")
)

// Contract execution errors.
var (
	// ErrOutOfGas is raised when a call's metered gas usage exceeds its
	// gasLimit. The caller is still charged the full gasLimit.
	ErrOutOfGas = errors.New("out of gas")
	// ErrUnknownFunction is returned when a call targets a function name the
	// contract does not define.
	ErrUnknownFunction = errors.New("unknown contract function")
	// ErrAlreadyInitialized is returned if __init__ is invoked more than once.
	ErrAlreadyInitialized = errors.New("contract already initialized")
	// ErrDuplicatedToken/ErrNonExistentToken/ErrMissingData are for user
	// contract code to return from its functions; the runtime itself never
	// raises them.
	ErrDuplicatedToken  = errors.New("duplicated token")
	ErrNonExistentToken = errors.New("non-existent token")
	ErrMissingData      = errors.New("missing data")
)

// Economic / assembly errors.
var (
	// ErrInsufficientFunds means the sender cannot cover the spending for a
	// transaction at block-assembly time.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Mining errors.
var (
	// ErrMiningExhausted means every PoW worker exhausted its nonce range
	// without finding a hash satisfying the difficulty target.
	ErrMiningExhausted = errors.New("mining exhausted nonce space")
	// ErrAlreadyMining is returned by a concurrent createBlock invocation
	// while another block assembly is already in flight.
	ErrAlreadyMining = errors.New("a block is already being created")
)

// Invariant violations — programmer errors, fatal to the caller.
var (
	ErrInvariantViolation = errors.New("invariant violation")
)

// Transaction / signature errors.
var (
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrSameSenderRecipient = errors.New("sender and recipient must differ")
	ErrMissingEndpoint     = errors.New("transaction is missing a required endpoint")
)

// Chain lookup errors.
var (
	ErrBlockNotFound    = errors.New("block not found")
	ErrContractNotFound = errors.New("contract not deployed")
)
