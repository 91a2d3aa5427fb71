package wallet

import (
	"crypto/sha256"
	"testing"

	"github.com/shopspring/decimal"

	"empower1.com/empower1blockchain/internal/cryptoutil"
)

func TestNewAssignsDistinctAddresses(t *testing.T) {
	a, err := New("Alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New("Bob")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Address() == b.Address() {
		t.Fatal("expected distinct wallets to get distinct addresses")
	}
	if a.Name() != "Alice" || b.Name() != "Bob" {
		t.Fatalf("unexpected names: %q, %q", a.Name(), b.Name())
	}
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	w, err := New("Alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hash := sha256.Sum256([]byte("tx-payload"))
	sig, err := w.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !cryptoutil.Verify(w.Address(), hash[:], sig) {
		t.Fatal("expected wallet signature to verify against its own address")
	}
}

func TestUpdateBalanceAccumulates(t *testing.T) {
	w, err := New("Alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !w.BalanceCache().IsZero() {
		t.Fatal("expected fresh wallet to start with a zero balance cache")
	}
	w.UpdateBalance(decimal.NewFromInt(100))
	w.UpdateBalance(decimal.NewFromInt(-30))
	want := decimal.NewFromInt(70)
	if !w.BalanceCache().Equal(want) {
		t.Fatalf("BalanceCache() = %s, want %s", w.BalanceCache(), want)
	}
}
