package catalog

import (
	"context"

	"github.com/pharmapos/backend/internal/domain/catalog"
)

// TransactionScope runs catalog writes in one database transaction.
// Every repository handed to fn shares the transaction; returning an error rolls it back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the catalog repositories bound to a transaction
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	MovementRepo() catalog.StockMovementRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// It is used by tests and by callers that do not need atomicity.
type NoOpTransactionScope struct {
	productRepo  catalog.ProductRepository
	movementRepo catalog.StockMovementRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(productRepo catalog.ProductRepository, movementRepo catalog.StockMovementRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{productRepo: productRepo, movementRepo: movementRepo}
}

// Execute runs fn without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ProductRepo returns the product repository
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

// MovementRepo returns the stock movement repository
func (s *NoOpTransactionScope) MovementRepo() catalog.StockMovementRepository {
	return s.movementRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
