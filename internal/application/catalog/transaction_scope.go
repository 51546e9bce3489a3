package catalog

import (
	"context"

	"github.com/ims/engine/internal/domain/catalog"
)

// TransactionScope provides transactional access to the catalog
// repositories. A product delete cascades the deletion marker to the
// product's variants; both writes and their outbox rows commit or roll
// back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the catalog repositories
// within a transaction.
//
// TxHandle exposes the raw transaction handle so the outbox saver can record
// domain events in the same transaction.
type TransactionalRepositories interface {
	// Products returns the product repository scoped to the current transaction
	Products() catalog.ProductRepository
	// Variants returns the variant repository scoped to the current transaction
	Variants() catalog.VariantRepository
	// TxHandle returns the underlying transaction handle (a *gorm.DB), or nil
	// when the scope does not run real transactions.
	TxHandle() interface{}
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	products catalog.ProductRepository
	variants catalog.VariantRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(products catalog.ProductRepository, variants catalog.VariantRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{products: products, variants: variants}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Products returns the product repository.
func (s *NoOpTransactionScope) Products() catalog.ProductRepository {
	return s.products
}

// Variants returns the variant repository.
func (s *NoOpTransactionScope) Variants() catalog.VariantRepository {
	return s.variants
}

// TxHandle returns nil; there is no real transaction.
func (s *NoOpTransactionScope) TxHandle() interface{} {
	return nil
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
