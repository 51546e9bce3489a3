package persistence

import (
	"context"

	"gorm.io/gorm"

	appcatalog "github.com/ims/engine/internal/application/catalog"
	"github.com/ims/engine/internal/domain/catalog"
)

// GormCatalogTransactionScope implements the catalog TransactionScope using
// GORM transactions. A product delete and its variant cascade commit or roll
// back together.
type GormCatalogTransactionScope struct {
	db *gorm.DB
}

// NewGormCatalogTransactionScope creates a new GormCatalogTransactionScope.
func NewGormCatalogTransactionScope(db *gorm.DB) *GormCatalogTransactionScope {
	return &GormCatalogTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormCatalogTransactionScope) Execute(ctx context.Context, fn func(repos appcatalog.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormCatalogRepositories{tx: tx}
		return fn(repos)
	})
}

type gormCatalogRepositories struct {
	tx *gorm.DB
}

// Products returns the product repository scoped to the current transaction.
func (r *gormCatalogRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Variants returns the variant repository scoped to the current transaction.
func (r *gormCatalogRepositories) Variants() catalog.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

// TxHandle returns the raw *gorm.DB transaction for the outbox saver.
func (r *gormCatalogRepositories) TxHandle() interface{} {
	return r.tx
}

// Ensure GormCatalogTransactionScope implements TransactionScope
var _ appcatalog.TransactionScope = (*GormCatalogTransactionScope)(nil)

// Ensure gormCatalogRepositories implements TransactionalRepositories
var _ appcatalog.TransactionalRepositories = (*gormCatalogRepositories)(nil)
