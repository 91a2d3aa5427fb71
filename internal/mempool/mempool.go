// Package mempool holds transactions admitted to a chain but not yet
// included in a block, in first-in-first-out order.
package mempool

import (
	"fmt"
	"sync"

	"empower1.com/empower1blockchain/internal/core"
)

var ErrTxExists = fmt.Errorf("transaction already in mempool")

// Mempool is a thread-safe, order-preserving queue of pending transactions.
type Mempool struct {
	mu     sync.RWMutex
	order  []*core.Transaction
	byHash map[string]*core.Transaction
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{
		byHash: make(map[string]*core.Transaction),
	}
}

// Add appends tx to the back of the queue. It rejects a transaction whose
// hash already appears in the mempool.
func (mp *Mempool) Add(tx *core.Transaction) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key := tx.HashHex()
	if _, exists := mp.byHash[key]; exists {
		return fmt.Errorf("%w: %s", ErrTxExists, key)
	}
	mp.byHash[key] = tx
	mp.order = append(mp.order, tx)
	return nil
}

// All returns the pending transactions in FIFO admission order. The
// returned slice is a copy; callers may freely mutate it.
func (mp *Mempool) All() []*core.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	out := make([]*core.Transaction, len(mp.order))
	copy(out, mp.order)
	return out
}

// Remove drops the given transactions from the mempool, by hash. Used after
// a block has consumed them.
func (mp *Mempool) Remove(txs []*core.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	toDrop := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		toDrop[tx.HashHex()] = struct{}{}
	}
	for key := range toDrop {
		delete(mp.byHash, key)
	}

	kept := mp.order[:0:0]
	for _, tx := range mp.order {
		if _, dropped := toDrop[tx.HashHex()]; !dropped {
			kept = append(kept, tx)
		}
	}
	mp.order = kept
}

// Len returns the number of pending transactions.
func (mp *Mempool) Len() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.order)
}
