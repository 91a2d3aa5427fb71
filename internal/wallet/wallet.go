// Package wallet contains the core logic for EmPower1 wallets: keypair
// generation, address derivation, and signing of arbitrary content hashes.
// It is the root of trust for every signed transaction and PoS block.
package wallet

import (
	"sync"

	"github.com/shopspring/decimal"

	"empower1.com/empower1blockchain/internal/cryptoutil"
)

// Wallet owns a secp256k1 keypair exclusively. It is created before first
// use and never destroyed within a run.
type Wallet struct {
	name string
	keys *cryptoutil.KeyPair

	mu           sync.RWMutex
	balanceCache decimal.Decimal // advisory only; authoritative balance lives in the ledger
}

// New generates a fresh secp256k1 keypair and wraps it in a named wallet.
// Key generation failure is fatal.
func New(name string) (*Wallet, error) {
	keys, err := cryptoutil.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Wallet{name: name, keys: keys}, nil
}

// Name returns the wallet's human-readable label.
func (w *Wallet) Name() string { return w.name }

// Address returns the wallet's address, the hex-encoded compressed public
// key.
func (w *Wallet) Address() string { return w.keys.Address }

// Sign produces an ECDSA signature over the given 32-byte hash.
func (w *Wallet) Sign(hash []byte) ([]byte, error) {
	return cryptoutil.Sign(w.keys.Private, hash)
}

// UpdateBalance adjusts the wallet's advisory balance cache. It never
// affects ledger truth: callers derive authoritative balances from the
// chain's GetBalance.
func (w *Wallet) UpdateBalance(delta decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balanceCache = w.balanceCache.Add(delta)
}

// BalanceCache returns the advisory cached balance, for display purposes
// only.
func (w *Wallet) BalanceCache() decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balanceCache
}
