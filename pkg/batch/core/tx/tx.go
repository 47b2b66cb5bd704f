// Package tx provides an abstraction for transaction management in the
// Offshore framework. The item buffer keys its per-transaction state on the
// Tx identity, so every Tx carries a stable unique ID for its lifetime.
package tx

import (
	"context"
	"database/sql"
)

// Tx represents an ongoing transaction.
// Items buffered during a transaction are associated with the transaction's
// ID; commit releases them for dispatch and rollback discards them.
type Tx interface {
	// ID returns the unique identifier of this transaction.
	// The identifier is assigned at Begin and never changes for the lifetime
	// of the transaction.
	ID() string

	// Savepoint creates a new savepoint within the current transaction.
	// This allows rolling back a portion of the transaction to this savepoint later.
	Savepoint(name string) error

	// RollbackToSavepoint rolls back the transaction to the savepoint with the
	// specified name. This undoes changes made after the savepoint, but
	// preserves changes made before it.
	RollbackToSavepoint(name string) error
}

// txContextKey keys the active transaction in a context.
type txContextKey struct{}

// ContextWithTx returns a context carrying the given transaction. Repository
// operations join the carried transaction instead of running standalone.
func ContextWithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, t)
}

// FromContext extracts the active transaction from the context, if any.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txContextKey{}).(Tx)
	return t, ok
}

// TransactionManager manages the lifecycle of transactions (begin, commit, rollback).
type TransactionManager interface {
	// Begin starts a new transaction.
	// opts: Optional arguments specifying transaction options (e.g., isolation level, read-only flag).
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits the specified transaction, persisting all changes made within it.
	Commit(tx Tx) error
	// Rollback rolls back the specified transaction, undoing all changes made within it.
	Rollback(tx Tx) error
}
