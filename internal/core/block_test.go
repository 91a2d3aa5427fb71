package core

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"

	"empower1.com/empower1blockchain/internal/cryptoutil"
)

func sampleTx(t *testing.T) *Transaction {
	t.Helper()
	to := &stubRecipient{name: "faucet", address: "faucet"}
	tx, err := New(Params{Type: TxGenesis, To: to, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tx
}

func TestNewBlockComputesMerkleRootAndHash(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})
	if len(b.MerkleRoot) == 0 {
		t.Fatal("expected a non-empty merkle root")
	}
	if len(b.Hash) == 0 {
		t.Fatal("expected a non-empty hash")
	}
	if b.Created() {
		t.Fatal("a fresh block should not be created until Mine or Sign runs")
	}
}

func TestMineFindsSatisfyingNonce(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})

	if err := b.Mine(1, 4, 2000); err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if !b.Created() {
		t.Fatal("expected block to be marked created after Mine succeeds")
	}
	if !hasLeadingZeroHexDigits(b.Hash, 1) {
		t.Fatalf("mined hash %x does not meet difficulty 1", b.Hash)
	}
	if !b.Validate(ConsensusPoW) {
		t.Fatal("expected a freshly mined block to validate under PoW")
	}
}

func TestMineExhaustsSearchSpace(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})

	// Difficulty far beyond what a tiny search space can plausibly satisfy.
	if err := b.Mine(8, 1, 10); err == nil {
		t.Fatal("expected Mine to fail over a search space too small to satisfy difficulty 8")
	}
}

func TestValidatePoWRejectsUnminedBlock(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})
	if b.Validate(ConsensusPoW) {
		t.Fatal("expected an unsealed block to fail validation")
	}
}

func TestSignAndValidatePoS(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})

	kp, err := cryptoutil.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	sig, err := cryptoutil.Sign(kp.Private, b.Hash)
	if err != nil {
		t.Fatalf("cryptoutil.Sign: %v", err)
	}
	validator := &stubSigner{stubRecipient: stubRecipient{name: "v1", address: kp.Address}, sig: sig}
	if err := b.Sign(validator); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !b.Created() {
		t.Fatal("expected Sign to mark the block created")
	}
	if b.Validator != kp.Address {
		t.Fatalf("Validator = %q, want %q", b.Validator, kp.Address)
	}
	if !b.Validate(ConsensusPoS) {
		t.Fatal("expected a signed block to validate under PoS")
	}
}

func TestValidatePoSRejectsForgedSignature(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})

	validator := &stubSigner{stubRecipient: stubRecipient{name: "v1", address: "v1-address"}}
	if err := b.Sign(validator); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	b.Signature = []byte("forged")
	if b.Validate(ConsensusPoS) {
		t.Fatal("expected a forged signature to fail PoS validation")
	}
}

func TestMarkCreatedUnsignedBypassesSealing(t *testing.T) {
	tx := sampleTx(t)
	b := NewBlock(nil, []*Transaction{tx})
	b.MarkCreatedUnsigned()
	if !b.Created() {
		t.Fatal("expected MarkCreatedUnsigned to mark the block created")
	}
	// PoS validation still requires a signature for a non-genesis caller;
	// MarkCreatedUnsigned only flips the created bit, it does not forge
	// sealing, so Validate must still report false here.
	if b.Validate(ConsensusPoS) {
		t.Fatal("expected an unsigned block to still fail PoS signature validation")
	}
}

func TestBlockHashChangesWithPreviousHash(t *testing.T) {
	tx := sampleTx(t)
	b1 := NewBlock([]byte("prev-a"), []*Transaction{tx})
	b2 := NewBlock([]byte("prev-b"), []*Transaction{tx})
	if bytes.Equal(b1.Hash, b2.Hash) {
		t.Fatal("expected different previous hashes to produce different block hashes")
	}
}
