package warehouse

import (
	"context"

	"github.com/ims/engine/internal/domain/warehouse"
)

// TransactionScope provides transactional access to the warehouse
// repository so a registry change and its outbox rows commit together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the warehouse repository
// within a transaction. TxHandle exposes the raw transaction handle for the
// outbox saver.
type TransactionalRepositories interface {
	// Warehouses returns the warehouse repository scoped to the current
	// transaction.
	Warehouses() warehouse.Repository
	// TxHandle returns the underlying transaction handle (a *gorm.DB), or
	// nil when the scope does not run real transactions.
	TxHandle() interface{}
}

// NoOpTransactionScope runs the transactional section without a real
// transaction. For tests.
type NoOpTransactionScope struct {
	warehouses warehouse.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repository.
func NewNoOpTransactionScope(warehouses warehouse.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{warehouses: warehouses}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Warehouses returns the warehouse repository.
func (s *NoOpTransactionScope) Warehouses() warehouse.Repository {
	return s.warehouses
}

// TxHandle returns nil; there is no real transaction.
func (s *NoOpTransactionScope) TxHandle() interface{} {
	return nil
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
