package sales

import (
	"context"

	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
)

// TransactionScope runs a checkout or reversal in one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories a sale touches, bound to a transaction
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	MovementRepo() catalog.StockMovementRepository
	SaleRepo() sales.SaleRepository
}

// NoOpTransactionScope runs fn against plain repositories. Used in tests.
type NoOpTransactionScope struct {
	productRepo  catalog.ProductRepository
	movementRepo catalog.StockMovementRepository
	saleRepo     sales.SaleRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(productRepo catalog.ProductRepository, movementRepo catalog.StockMovementRepository, saleRepo sales.SaleRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{productRepo: productRepo, movementRepo: movementRepo, saleRepo: saleRepo}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository       { return s.productRepo }
func (s *NoOpTransactionScope) MovementRepo() catalog.StockMovementRepository { return s.movementRepo }
func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository                { return s.saleRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
