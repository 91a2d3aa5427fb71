package cryptoutil

import (
	"crypto/sha256"
	"testing"
)

func TestGenerateKeyPairProducesVerifiableSignatures(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if kp.Address == "" {
		t.Fatal("expected non-empty address")
	}

	hash := sha256.Sum256([]byte("hello"))
	sig, err := Sign(kp.Private, hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(kp.Address, hash[:], sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedHash(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	hash := sha256.Sum256([]byte("original"))
	sig, err := Sign(kp.Private, hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := sha256.Sum256([]byte("tampered"))
	if Verify(kp.Address, tampered[:], sig) {
		t.Fatal("expected verification against a different hash to fail")
	}
}

func TestVerifyRejectsWrongAddress(t *testing.T) {
	a, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	hash := sha256.Sum256([]byte("payload"))
	sig, err := Sign(a.Private, hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if Verify(b.Address, hash[:], sig) {
		t.Fatal("expected verification against the wrong address to fail")
	}
}

func TestVerifyRejectsMalformedAddress(t *testing.T) {
	hash := sha256.Sum256([]byte("payload"))
	if Verify("not-hex-!!", hash[:], []byte{0x01, 0x02}) {
		t.Fatal("expected malformed address to fail verification, not error")
	}
}

func TestSignRejectsWrongHashLength(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if _, err := Sign(kp.Private, []byte("too-short")); err == nil {
		t.Fatal("expected Sign to reject a non-32-byte hash")
	}
}

func TestRandomUnitIntervalStaysInRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		r, err := RandomUnitInterval()
		if err != nil {
			t.Fatalf("RandomUnitInterval: %v", err)
		}
		if r < 0 || r >= 1 {
			t.Fatalf("sample %v out of [0,1) range", r)
		}
	}
}

func TestRandomBytesLength(t *testing.T) {
	b, err := RandomBytes(16)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	if len(b) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(b))
	}
}
