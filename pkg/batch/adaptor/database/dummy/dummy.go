// Package dummy provides dummy implementations for database-related
// interfaces. These implementations are intended for DB-less environments,
// where the dispatcher needs transaction identities for its item buffers but
// no actual database operations are required.
package dummy

import (
	"context"
	"database/sql"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
)

// dummyTx is a dummy implementation of the tx.Tx interface. It carries a real
// identity, which the chunk dispatcher uses to key its item buffers, but
// performs no actual operations.
type dummyTx struct {
	id string
}

func (d *dummyTx) ID() string                            { return d.id }
func (d *dummyTx) Savepoint(name string) error           { return nil }
func (d *dummyTx) RollbackToSavepoint(name string) error { return nil }

// dummyTxManager is a dummy implementation of the tx.TransactionManager
// interface. Every Begin yields a transaction with a fresh identity.
type dummyTxManager struct{}

var _ tx.TransactionManager = (*dummyTxManager)(nil)

// NewTransactionManager creates a TransactionManager for DB-less runs.
func NewTransactionManager() tx.TransactionManager {
	return &dummyTxManager{}
}

func (d *dummyTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	return &dummyTx{id: model.NewID()}, nil
}

func (d *dummyTxManager) Commit(t tx.Tx) error   { return nil }
func (d *dummyTxManager) Rollback(t tx.Tx) error { return nil }
