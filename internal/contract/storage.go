package contract

import (
	"github.com/shopspring/decimal"

	"empower1.com/empower1blockchain/internal/chainerrors"
)

// MeteredStorage is an explicit get/set accessor instead of reflective
// property interception. Every Get charges the read cost and every Set
// charges the write cost; once the running total exceeds the call's
// gasLimit, every further access returns chainerrors.ErrOutOfGas.
type MeteredStorage struct {
	data     map[string]interface{}
	gasUsed  *uint64
	gasLimit uint64
	costRead uint64
	costWrite uint64
}

func newMeteredStorage(data map[string]interface{}, gasUsed *uint64, gasLimit, costRead, costWrite uint64) *MeteredStorage {
	return &MeteredStorage{data: data, gasUsed: gasUsed, gasLimit: gasLimit, costRead: costRead, costWrite: costWrite}
}

// Get reads a storage key, charging GasCostStorageRead.
func (s *MeteredStorage) Get(key string) (interface{}, error) {
	*s.gasUsed += s.costRead
	if *s.gasUsed > s.gasLimit {
		return nil, chainerrors.ErrOutOfGas
	}
	return s.data[key], nil
}

// Set writes a storage key, charging GasCostStorageWrite.
func (s *MeteredStorage) Set(key string, value interface{}) error {
	*s.gasUsed += s.costWrite
	if *s.gasUsed > s.gasLimit {
		return chainerrors.ErrOutOfGas
	}
	s.data[key] = value
	return nil
}

// MsgInfo carries the caller identity and attached value for a call,
// mirroring an ambient "msg" object.
type MsgInfo struct {
	Sender string
	Value  decimal.Decimal
}

// EnvInfo exposes chain-level facts a contract may read.
type EnvInfo struct {
	ContractBalance decimal.Decimal
	Drain           string
}

// Context is the explicit, per-call environment passed to every Func: a
// plain Go struct standing in for a dynamic "ambient this".
type Context struct {
	Storage *MeteredStorage
	Views   map[string]func(args ...interface{}) (interface{}, error)
	Msg     MsgInfo
	Creator string
	Address string
	Env     EnvInfo

	transfers []Transfer
}

// Transfer records a payable withdrawal a function requested during a call,
// collected through an explicit context method rather than a magic field on
// the return value.
type Transfer struct {
	To     string
	Amount decimal.Decimal
}

// EmitTransfer queues an outgoing withdrawal to be synthesized as an
// internal Withdrawal transaction if the call succeeds and the contract's
// balance can cover it.
func (c *Context) EmitTransfer(to string, amount decimal.Decimal) {
	c.transfers = append(c.transfers, Transfer{To: to, Amount: amount})
}

func bindViews(views map[string]ViewFunc, frozen map[string]interface{}) map[string]func(args ...interface{}) (interface{}, error) {
	bound := make(map[string]func(args ...interface{}) (interface{}, error), len(views))
	for name, fn := range views {
		fn := fn
		bound[name] = func(args ...interface{}) (interface{}, error) {
			return fn(frozen, args...)
		}
	}
	return bound
}
