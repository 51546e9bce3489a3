package inventory

import (
	"context"

	"github.com/ims/engine/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the inventory repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
//
// Aggregate boundary notes:
//   - Items: the InventoryItem projection, updated with optimistic locking.
//   - Movements: the append-only ledger. A ledger entry and its projection
//     update always commit together.
//   - Reservations: reservation rows; a reservation change and the matching
//     reserved-counter update on the item always commit together.
//
// TxHandle exposes the raw transaction handle so the outbox saver can record
// domain events in the same transaction.
type TransactionalRepositories interface {
	// Items returns the inventory item repository scoped to the current transaction
	Items() inventory.InventoryItemRepository
	// Movements returns the stock movement repository scoped to the current transaction
	Movements() inventory.StockMovementRepository
	// Reservations returns the reservation repository scoped to the current transaction
	Reservations() inventory.ReservationRepository
	// TxHandle returns the underlying transaction handle (a *gorm.DB), or nil
	// when the scope does not run real transactions.
	TxHandle() interface{}
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	items        inventory.InventoryItemRepository
	movements    inventory.StockMovementRepository
	reservations inventory.ReservationRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	items inventory.InventoryItemRepository,
	movements inventory.StockMovementRepository,
	reservations inventory.ReservationRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		items:        items,
		movements:    movements,
		reservations: reservations,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Items returns the inventory item repository.
func (s *NoOpTransactionScope) Items() inventory.InventoryItemRepository {
	return s.items
}

// Movements returns the stock movement repository.
func (s *NoOpTransactionScope) Movements() inventory.StockMovementRepository {
	return s.movements
}

// Reservations returns the reservation repository.
func (s *NoOpTransactionScope) Reservations() inventory.ReservationRepository {
	return s.reservations
}

// TxHandle returns nil; there is no real transaction.
func (s *NoOpTransactionScope) TxHandle() interface{} {
	return nil
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
