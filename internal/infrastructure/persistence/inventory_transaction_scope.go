package persistence

import (
	"context"

	"gorm.io/gorm"

	appinv "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
)

// GormTransactionScope implements the inventory TransactionScope using GORM
// transactions. A ledger append, its projection update, the reservation
// write, and the outbox rows all commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to the inventory
// repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Items returns the inventory item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Items() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// Movements returns the stock movement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Movements() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// Reservations returns the reservation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Reservations() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

// TxHandle returns the raw *gorm.DB transaction for the outbox saver.
func (r *gormTransactionalRepositories) TxHandle() interface{} {
	return r.tx
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
