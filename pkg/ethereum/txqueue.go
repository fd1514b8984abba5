package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrQueueClosed is returned for submissions after Close
var ErrQueueClosed = errors.New("transaction queue closed")

// NonceSource reads the signer's pending nonce from the node
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// SendFunc signs and broadcasts one transaction with the given nonce
type SendFunc func(ctx context.Context, nonce uint64) (*types.Transaction, error)

type submission struct {
	ctx    context.Context
	send   SendFunc
	result chan submitResult
}

type submitResult struct {
	tx  *types.Transaction
	err error
}

// TxQueue serialises transaction submission for one (chain, signer) pair.
// A single worker goroutine owns the cached nonce: it is loaded from the
// node on first use, advanced after every accepted send, and reloaded after
// any send error. Callers wait for receipts outside the queue.
type TxQueue struct {
	chain  string
	signer common.Address
	nonces NonceSource
	logger *zap.Logger

	jobs chan submission
	done chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewTxQueue starts the queue worker
func NewTxQueue(chain string, signer common.Address, nonces NonceSource, logger *zap.Logger) *TxQueue {
	q := &TxQueue{
		chain:  chain,
		signer: signer,
		nonces: nonces,
		logger: logger.With(zap.String("chain", chain), zap.String("signer", signer.Hex())),
		jobs:   make(chan submission),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Submit enqueues send and blocks until it has been executed or ctx ends.
// Submissions are executed in arrival order.
func (q *TxQueue) Submit(ctx context.Context, send SendFunc) (*types.Transaction, error) {
	sub := submission{ctx: ctx, send: send, result: make(chan submitResult, 1)}

	select {
	case q.jobs <- sub:
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// once accepted the worker always answers, so the nonce bookkeeping
	// stays consistent even if the caller has gone away
	res := <-sub.result
	return res.tx, res.err
}

// Close stops the worker after the in-flight submission finishes
func (q *TxQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

func (q *TxQueue) loop() {
	defer q.wg.Done()

	var (
		next   uint64
		synced bool
	)

	for {
		select {
		case <-q.done:
			return
		case sub := <-q.jobs:
			if err := sub.ctx.Err(); err != nil {
				sub.result <- submitResult{err: err}
				continue
			}

			if !synced {
				n, err := q.nonces.PendingNonceAt(sub.ctx, q.signer)
				if err != nil {
					sub.result <- submitResult{err: fmt.Errorf("failed to get nonce: %w", err)}
					continue
				}
				next, synced = n, true
				q.logger.Debug("Nonce synchronised from node", zap.Uint64("nonce", next))
			}

			tx, err := sub.send(sub.ctx, next)
			if err != nil {
				synced = false
				q.logger.Warn("Transaction send failed, nonce will be resynchronised",
					zap.Uint64("nonce", next),
					zap.Error(err))
				sub.result <- submitResult{err: err}
				continue
			}

			q.logger.Debug("Transaction sent",
				zap.Uint64("nonce", next),
				zap.String("tx_hash", tx.Hash().Hex()))
			next++
			sub.result <- submitResult{tx: tx}
		}
	}
}
