package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	model "github.com/tigerroll/offshore/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
)

// GormTxAdapter implements tx.Tx on top of a GORM transaction. Each adapter
// carries a unique identity, which the chunk dispatcher uses to key its item
// buffers.
type GormTxAdapter struct {
	id string
	db *gorm.DB
}

// ID implements tx.Tx.
func (t *GormTxAdapter) ID() string {
	return t.id
}

// Savepoint implements tx.Tx.
func (t *GormTxAdapter) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

// RollbackToSavepoint implements tx.Tx.
func (t *GormTxAdapter) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

// DB exposes the transactional GORM handle for repository operations that run
// inside this transaction.
func (t *GormTxAdapter) DB() *gorm.DB {
	return t.db
}

// GormTransactionManager implements tx.TransactionManager.
type GormTransactionManager struct {
	db *gorm.DB
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)

// NewGormTransactionManager creates a new GormTransactionManager.
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := m.db.WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{id: model.NewID(), db: gormTx}, nil
}

func (m *GormTransactionManager) Commit(t tx.Tx) error {
	adapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return adapter.db.Commit().Error
}

func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	adapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return adapter.db.Rollback().Error
}
