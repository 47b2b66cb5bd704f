// Package test provides shared test doubles and factories for framework
// tests.
package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/offshore/pkg/batch/core/tx"
)

// MockTx is a mock implementation of the tx.Tx interface.
// It provides mock methods for transaction-related operations,
// allowing for isolated testing of components that interact with transactions.
type MockTx struct {
	mock.Mock
}

var _ tx.Tx = (*MockTx)(nil)

// ID mocks the ID method of tx.Tx.
// It records the call and returns the predefined identifier.
func (m *MockTx) ID() string {
	args := m.Called()
	return args.String(0)
}

// Savepoint mocks the Savepoint method of tx.Tx.
// It records the call and returns the predefined error.
func (m *MockTx) Savepoint(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// RollbackToSavepoint mocks the RollbackToSavepoint method of tx.Tx.
// It records the call and returns the predefined error.
func (m *MockTx) RollbackToSavepoint(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// MockTxManager is a mock implementation of the tx.TransactionManager interface.
// It allows for mocking the lifecycle of transactions (Begin, Commit, Rollback).
type MockTxManager struct {
	mock.Mock
}

var _ tx.TransactionManager = (*MockTxManager)(nil)

// Begin mocks the Begin method of tx.TransactionManager.
// It records the call and returns a mock Tx instance or an error.
func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

// Commit mocks the Commit method of tx.TransactionManager.
// It records the call and returns the predefined error.
func (m *MockTxManager) Commit(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

// Rollback mocks the Rollback method of tx.TransactionManager.
// It records the call and returns the predefined error.
func (m *MockTxManager) Rollback(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}
