package core

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"empower1.com/empower1blockchain/internal/chainerrors"
	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/merkle"
)

// Block aggregates a batch of transactions into an append-only ledger
// entry. It carries either a PoW nonce or a validator signature depending
// on which consensus sealed it, never both.
type Block struct {
	PreviousHash []byte
	Timestamp    int64
	Data         []*Transaction
	MerkleRoot   []byte
	Nonce        int64
	Hash         []byte

	Difficulty int    // set once sealed under PoW
	Validator  string // set once sealed under PoS
	Signature  []byte

	created  bool
	mineTime time.Duration
}

// Consensus distinguishes the two sealing strategies a Block can validate
// against.
type Consensus int

const (
	ConsensusPoW Consensus = iota
	ConsensusPoS
)

// NewBlock builds a block over the given transactions with nonce=0 and an
// initial hash computed against that nonce. Mine or Sign must be called
// before the block is eligible to join a chain.
func NewBlock(previousHash []byte, data []*Transaction) *Block {
	b := &Block{
		PreviousHash: previousHash,
		Timestamp:    time.Now().UnixNano(),
		Data:         data,
		MerkleRoot:   merkle.Root(leafHashes(data)),
	}
	b.Hash = b.computeHash()
	return b
}

func leafHashes(data []*Transaction) [][]byte {
	leaves := make([][]byte, len(data))
	for i, tx := range data {
		leaves[i] = tx.Hash
	}
	return leaves
}

// computeHash is SHA256(timestamp ‖ merkleRoot ‖ previousHash ‖ nonce).
func (b *Block) computeHash() []byte {
	h := sha256.New()
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(b.Timestamp))
	h.Write(tsBuf[:])
	h.Write(b.MerkleRoot)
	h.Write(b.PreviousHash)
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], uint64(b.Nonce))
	h.Write(nonceBuf[:])
	return h.Sum(nil)
}

// miningResult is the one-shot message a worker sends when it finds a
// satisfying nonce; workers otherwise communicate nothing and are created
// fresh per mining attempt.
type miningResult struct {
	nonce int64
	hash  []byte
}

// Mine searches for a nonce whose resulting hash begins with `difficulty`
// hex zeros, splitting the search across a pool of poolSize workers: worker
// i searches [i*maxNonce, (i+1)*maxNonce). The first worker to succeed wins
// and the rest are cancelled before Mine returns. If every worker exhausts
// its range, Mine fails with chainerrors.ErrMiningExhausted.
func (b *Block) Mine(difficulty int, poolSize int, maxNonce int64) error {
	start := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan miningResult, poolSize)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < poolSize; i++ {
		i := i
		g.Go(func() error {
			lo := int64(i) * maxNonce
			hi := lo + maxNonce
			for nonce := lo; nonce < hi; nonce++ {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				hash := hashWithNonce(b.Timestamp, b.MerkleRoot, b.PreviousHash, nonce)
				if hasLeadingZeroHexDigits(hash, difficulty) {
					select {
					case results <- miningResult{nonce: nonce, hash: hash}:
						cancel()
					case <-gctx.Done():
					}
					return nil
				}
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	<-done
	close(results)

	best, ok := <-results
	if !ok {
		return chainerrors.ErrMiningExhausted
	}

	b.Nonce = best.nonce
	b.Hash = best.hash
	b.Difficulty = difficulty
	b.created = true
	b.mineTime = time.Since(start)
	return nil
}

func hashWithNonce(timestamp int64, merkleRoot, previousHash []byte, nonce int64) []byte {
	h := sha256.New()
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(timestamp))
	h.Write(tsBuf[:])
	h.Write(merkleRoot)
	h.Write(previousHash)
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], uint64(nonce))
	h.Write(nonceBuf[:])
	return h.Sum(nil)
}

func hasLeadingZeroHexDigits(hash []byte, n int) bool {
	for i := 0; i < n; i++ {
		nibble := hexNibble(hash, i)
		if nibble != 0 {
			return false
		}
	}
	return true
}

func hexNibble(hash []byte, nibbleIndex int) byte {
	byteIdx := nibbleIndex / 2
	if byteIdx >= len(hash) {
		return 0xF
	}
	if nibbleIndex%2 == 0 {
		return hash[byteIdx] >> 4
	}
	return hash[byteIdx] & 0x0F
}

// blockSigner is the same duck-typed signing capability Transaction's
// signer uses, plus Address(), kept local so this package never imports
// internal/wallet.
type blockSigner interface {
	Sign(hash []byte) ([]byte, error)
	Address() string
}

// Sign seals the block under proof-of-stake: the chosen validator signs the
// block's content hash.
func (b *Block) Sign(validator blockSigner) error {
	sig, err := validator.Sign(b.Hash)
	if err != nil {
		return fmt.Errorf("core: sign block: %w", err)
	}
	b.Validator = validator.Address()
	b.Signature = sig
	b.created = true
	return nil
}

// Validate recomputes the block's hash and checks it against the sealing
// invariant for the given consensus: PoW requires created && the hash's
// leading hex zeros meet the recorded difficulty; PoS requires the
// signature verify against the recorded validator.
func (b *Block) Validate(consensus Consensus) bool {
	if !b.created {
		return false
	}
	recomputed := hashWithNonce(b.Timestamp, b.MerkleRoot, b.PreviousHash, b.Nonce)
	switch consensus {
	case ConsensusPoW:
		return hasLeadingZeroHexDigits(recomputed, b.Difficulty)
	case ConsensusPoS:
		if b.Validator == "" || b.Signature == nil {
			return false
		}
		return cryptoutil.Verify(b.Validator, recomputed, b.Signature)
	default:
		return false
	}
}

// Created reports whether the block has been sealed, by mining or signing.
func (b *Block) Created() bool { return b.created }

// MarkCreatedUnsigned marks the block as sealed without a PoW nonce or a
// PoS signature. Used for the PoS genesis block, which is accepted by
// convention as the chain's unsigned anchor, and by the PoS chain when the
// selected validator address has no registered signer.
func (b *Block) MarkCreatedUnsigned() { b.created = true }

// MineTime returns how long the last successful Mine call took, zero if
// the block was never mined.
func (b *Block) MineTime() time.Duration { return b.mineTime }
