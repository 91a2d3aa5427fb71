package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

type stubRecipient struct {
	name, address string
}

func (s *stubRecipient) Name() string    { return s.name }
func (s *stubRecipient) Address() string { return s.address }

type stubSigner struct {
	stubRecipient
	sig []byte
	err error
}

func (s *stubSigner) Sign(hash []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.sig != nil {
		return s.sig, nil
	}
	return append([]byte{}, hash...), nil
}

func TestNewRequiresRecipient(t *testing.T) {
	_, err := New(Params{Type: TxTransaction, From: &stubSigner{stubRecipient: stubRecipient{name: "a", address: "a"}}})
	if err == nil {
		t.Fatal("expected error for missing To")
	}
}

func TestNewTransactionRequiresSender(t *testing.T) {
	to := &stubRecipient{name: "b", address: "b"}
	_, err := New(Params{Type: TxTransaction, To: to, Amount: decimal.NewFromInt(10)})
	if err == nil {
		t.Fatal("expected error for a Transaction with no From")
	}
}

func TestNewContractCallRequiresAddressAndFunction(t *testing.T) {
	from := &stubSigner{stubRecipient: stubRecipient{name: "a", address: "a"}}
	to := &stubRecipient{name: "contract", address: "contract"}
	if _, err := New(Params{Type: TxContractCall, From: from, To: to}); err == nil {
		t.Fatal("expected error for contract call missing address/function name")
	}
}

func TestNewSignsWhenFromIsSigner(t *testing.T) {
	from := &stubSigner{stubRecipient: stubRecipient{name: "a", address: "a"}}
	to := &stubRecipient{name: "b", address: "b"}
	tx, err := New(Params{Type: TxTransaction, From: from, To: to, Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tx.Signature == nil {
		t.Fatal("expected a signature to be attached")
	}
}

func TestGenesisRequiresNoSender(t *testing.T) {
	to := &stubRecipient{name: "faucet", address: "faucet"}
	tx, err := New(Params{Type: TxGenesis, To: to, Amount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tx.Signature != nil {
		t.Fatal("expected no signature on a Genesis transaction")
	}
	if !tx.Verify() {
		t.Fatal("expected Verify to pass for a transaction type that requires no signature")
	}
}

func TestVerifyFailsOnForgedSignature(t *testing.T) {
	from := &stubSigner{stubRecipient: stubRecipient{name: "a", address: "a"}}
	to := &stubRecipient{name: "b", address: "b"}
	tx, err := New(Params{Type: TxTransaction, From: from, To: to, Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Forge a signature that does not cover the real hash.
	tx.Signature = []byte("not-a-real-signature")
	if tx.Verify() {
		t.Fatal("expected Verify to fail for a forged signature")
	}
}

func TestTxTypeStringAndCode(t *testing.T) {
	cases := []struct {
		ty   TxType
		name string
		code byte
	}{
		{TxTransaction, "Transaction", 'T'},
		{TxGenesis, "Genesis", '_'},
		{TxReward, "Reward", 'R'},
		{TxFees, "Fees", 'F'},
		{TxContractDeploy, "ContractDeploy", 'D'},
		{TxContractCall, "ContractCall", 'C'},
		{TxWithdrawal, "Withdrawal", 'W'},
		{TxGasOnly, "GasOnly", 'G'},
		{TxStake, "Stake", 'S'},
		{TxUnstake, "Unstake", 'U'},
	}
	for _, c := range cases {
		if got := c.ty.String(); got != c.name {
			t.Errorf("%v.String() = %q, want %q", c.ty, got, c.name)
		}
		if got := c.ty.Code(); got != c.code {
			t.Errorf("%v.Code() = %q, want %q", c.ty, got, c.code)
		}
	}
}

func TestHashHexIsStableEncoding(t *testing.T) {
	to := &stubRecipient{name: "faucet", address: "faucet"}
	tx, err := New(Params{Type: TxGenesis, To: to, Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(tx.HashHex()) != len(tx.Hash)*2 {
		t.Fatalf("HashHex length = %d, want %d", len(tx.HashHex()), len(tx.Hash)*2)
	}
}
