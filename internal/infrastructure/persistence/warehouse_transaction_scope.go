package persistence

import (
	"context"

	"gorm.io/gorm"

	appwarehouse "github.com/ims/engine/internal/application/warehouse"
	"github.com/ims/engine/internal/domain/warehouse"
)

// GormWarehouseTransactionScope implements the warehouse TransactionScope
// using GORM transactions.
type GormWarehouseTransactionScope struct {
	db *gorm.DB
}

// NewGormWarehouseTransactionScope creates a new GormWarehouseTransactionScope.
func NewGormWarehouseTransactionScope(db *gorm.DB) *GormWarehouseTransactionScope {
	return &GormWarehouseTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormWarehouseTransactionScope) Execute(ctx context.Context, fn func(repos appwarehouse.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormWarehouseRepositories{tx: tx}
		return fn(repos)
	})
}

type gormWarehouseRepositories struct {
	tx *gorm.DB
}

// Warehouses returns the warehouse repository scoped to the current transaction.
func (r *gormWarehouseRepositories) Warehouses() warehouse.Repository {
	return NewGormWarehouseRepository(r.tx)
}

// TxHandle returns the raw *gorm.DB transaction for the outbox saver.
func (r *gormWarehouseRepositories) TxHandle() interface{} {
	return r.tx
}

// Ensure GormWarehouseTransactionScope implements TransactionScope
var _ appwarehouse.TransactionScope = (*GormWarehouseTransactionScope)(nil)

var _ appwarehouse.TransactionalRepositories = (*gormWarehouseRepositories)(nil)
