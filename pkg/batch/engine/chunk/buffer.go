package chunk

import (
	"github.com/tigerroll/offshore/pkg/batch/core/tx"
)

// itemBuffer stages items written under open transactions until they are
// flushed. Buffers are keyed by transaction ID: created lazily on first
// write, detached on flush, and discarded on rollback. The coordinator owns
// the map; nothing is looked up through ambient state.
type itemBuffer[T any] struct {
	buffers map[string][]T
}

func newItemBuffer[T any]() *itemBuffer[T] {
	return &itemBuffer[T]{buffers: make(map[string][]T)}
}

// append adds items to the buffer of the given transaction, creating the
// buffer if this is the transaction's first write. Repeated calls within the
// same transaction accumulate in write order.
func (b *itemBuffer[T]) append(transaction tx.Tx, items ...T) error {
	if transaction == nil {
		return ErrNoActiveTransaction
	}
	id := transaction.ID()
	b.buffers[id] = append(b.buffers[id], items...)
	return nil
}

// ensure creates an empty buffer for the transaction if none exists. Flush
// may be invoked outside the normal write path, so the buffer cannot be
// assumed to exist.
func (b *itemBuffer[T]) ensure(transaction tx.Tx) error {
	if transaction == nil {
		return ErrNoActiveTransaction
	}
	id := transaction.ID()
	if _, ok := b.buffers[id]; !ok {
		b.buffers[id] = nil
	}
	return nil
}

// detach removes and returns the buffer of the given transaction. Once
// detached, the contents belong to the dispatcher: a later rollback of the
// transaction no longer covers them.
func (b *itemBuffer[T]) detach(transaction tx.Tx) ([]T, error) {
	if transaction == nil {
		return nil, ErrNoActiveTransaction
	}
	id := transaction.ID()
	items := b.buffers[id]
	delete(b.buffers, id)
	return items, nil
}

// discard drops the buffer of the given transaction without dispatching it.
// Used when the surrounding transaction rolls back. Discarding a transaction
// that never wrote is a no-op.
func (b *itemBuffer[T]) discard(transaction tx.Tx) {
	if transaction == nil {
		return
	}
	delete(b.buffers, transaction.ID())
}

// size returns the number of items staged for the given transaction.
func (b *itemBuffer[T]) size(transaction tx.Tx) int {
	if transaction == nil {
		return 0
	}
	return len(b.buffers[transaction.ID()])
}

// open returns the number of transactions with a live buffer.
func (b *itemBuffer[T]) open() int {
	return len(b.buffers)
}
