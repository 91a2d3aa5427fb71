package core

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"empower1.com/empower1blockchain/internal/chainerrors"
	"empower1.com/empower1blockchain/internal/cryptoutil"
)

// TxType enumerates the transaction kinds a ledger entry can represent. The
// zero value is intentionally not a valid transaction type (TxTransaction
// starts at 1) so a forgotten Type field fails loudly rather than silently
// becoming Genesis.
type TxType int

const (
	TxTransaction TxType = iota + 1
	TxGenesis
	TxReward
	TxFees
	TxContractDeploy
	TxContractCall
	TxWithdrawal
	TxGasOnly
	TxStake
	TxUnstake
)

// String returns the descriptive name used in the hash preimage and in
// structured log fields.
func (t TxType) String() string {
	switch t {
	case TxTransaction:
		return "Transaction"
	case TxGenesis:
		return "Genesis"
	case TxReward:
		return "Reward"
	case TxFees:
		return "Fees"
	case TxContractDeploy:
		return "ContractDeploy"
	case TxContractCall:
		return "ContractCall"
	case TxWithdrawal:
		return "Withdrawal"
	case TxGasOnly:
		return "GasOnly"
	case TxStake:
		return "Stake"
	case TxUnstake:
		return "Unstake"
	default:
		return "Unknown"
	}
}

// Code returns the single-character compact code used in terse logging.
func (t TxType) Code() byte {
	switch t {
	case TxGenesis:
		return '_'
	case TxTransaction:
		return 'T'
	case TxReward:
		return 'R'
	case TxFees:
		return 'F'
	case TxContractDeploy:
		return 'D'
	case TxContractCall:
		return 'C'
	case TxWithdrawal:
		return 'W'
	case TxGasOnly:
		return 'G'
	case TxStake:
		return 'S'
	case TxUnstake:
		return 'U'
	default:
		return '?'
	}
}

// signer is satisfied by any Recipient that can produce a signature over a
// hash — in practice *wallet.Wallet and the chain's faucet/drain accounts.
// Kept local so this package never imports internal/wallet.
type signer interface {
	Sign(hash []byte) ([]byte, error)
}

// requiresSignature reports whether a transaction kind carries a signature
// when From is a signer.
func requiresSignature(t TxType) bool {
	switch t {
	case TxTransaction, TxContractDeploy, TxContractCall, TxStake, TxUnstake:
		return true
	default:
		return false
	}
}

// Transaction is the immutable record of a value transfer or contract
// action. Type, GasUsed, and CallResult are the only fields the block
// assembly pipeline may still write after construction.
type Transaction struct {
	Type      TxType
	From      Recipient // nil only for Genesis, Reward, Fees
	To        Recipient
	Amount    decimal.Decimal
	Fee       decimal.Decimal // percentage; 0 unless Type is Transaction or Stake
	Timestamp int64
	Hash      []byte
	Signature []byte

	// Contract fields, present iff contract-related.
	ContractAddress string // address of the target contract (ContractCall)
	FunctionName    string
	FunctionArgs    []interface{}
	GasLimit        uint64

	// DeployPayload carries the not-yet-registered *contract.Contract for a
	// ContractDeploy transaction. Typed as interface{} so this package never
	// imports internal/contract.
	DeployPayload interface{}

	// Mutable, written by the block-assembly pipeline.
	GasUsed    uint64
	CallResult interface{}
}

// Params bundles the fields needed to construct a Transaction.
type Params struct {
	Type         TxType
	From         Recipient
	To           Recipient
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	ContractAddress string
	FunctionName string
	FunctionArgs []interface{}
	GasLimit     uint64
}

// New constructs and, where applicable, signs a transaction. Construction
// validates endpoint requirements: a sender is required for TxTransaction;
// a contract address is required for TxContractCall (alongside a function
// name). TxContractDeploy is not checked here: its To is the fee recipient,
// and the new contract travels in DeployPayload, set after construction.
func New(p Params) (*Transaction, error) {
	if p.To == nil {
		return nil, fmt.Errorf("core: %w: to", chainerrors.ErrMissingEndpoint)
	}
	if p.Type == TxTransaction && p.From == nil {
		return nil, fmt.Errorf("core: %w: transaction requires a sender", chainerrors.ErrMissingEndpoint)
	}
	if p.Type == TxContractCall && (p.ContractAddress == "" || p.FunctionName == "") {
		return nil, fmt.Errorf("core: %w: contract call requires contract address and function name", chainerrors.ErrMissingEndpoint)
	}

	tx := &Transaction{
		Type:            p.Type,
		From:            p.From,
		To:              p.To,
		Amount:          p.Amount,
		Fee:             p.Fee,
		Timestamp:       time.Now().UnixNano(),
		ContractAddress: p.ContractAddress,
		FunctionName:    p.FunctionName,
		FunctionArgs:    p.FunctionArgs,
		GasLimit:        p.GasLimit,
	}
	tx.Hash = tx.computeHash()

	if requiresSignature(tx.Type) {
		if s, ok := tx.From.(signer); ok {
			sig, err := s.Sign(tx.Hash)
			if err != nil {
				return nil, fmt.Errorf("core: sign transaction: %w", err)
			}
			tx.Signature = sig
		}
	}
	return tx, nil
}

// computeHash is SHA256 over an ASCII concatenation of timestamp, type,
// from address (empty for synthesized types with no sender), to address,
// amount, and fee, joined with "-".
func (tx *Transaction) computeHash() []byte {
	fromAddr := ""
	if tx.From != nil {
		fromAddr = tx.From.Address()
	}
	preimage := fmt.Sprintf("%d-%s-%s-%s-%s-%s",
		tx.Timestamp,
		tx.Type.String(),
		fromAddr,
		tx.To.Address(),
		tx.Amount.String(),
		tx.Fee.String(),
	)
	h := sha256.Sum256([]byte(preimage))
	return h[:]
}

// Verify reports whether the transaction carries a valid signature for its
// sender. It returns false — never an error — on any crypto failure.
func (tx *Transaction) Verify() bool {
	if !requiresSignature(tx.Type) {
		return true
	}
	if tx.From == nil || tx.Signature == nil {
		return false
	}
	return cryptoutil.Verify(tx.From.Address(), tx.Hash, tx.Signature)
}

// HashHex returns the hex-encoded hash, handy for map keys and logs.
func (tx *Transaction) HashHex() string {
	return hashHex(tx.Hash)
}

func hashHex(h []byte) string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(h)*2)
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
