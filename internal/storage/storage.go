package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// ErrNotFound is returned when a requested row doesn't exist
var ErrNotFound = types.ErrNotFound

// Storage defines the interface for persisting catalog, ledger and order data
type Storage interface {
	// Product operations
	CreateProduct(ctx context.Context, product *types.Product) error
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
	GetActiveProduct(ctx context.Context, id int64) (*types.Product, error)
	SetProductQuantity(ctx context.Context, id int64, expected, newQuantity int) error
	SoftDeleteProduct(ctx context.Context, id int64) error
	UpdateProduct(ctx context.Context, product *types.Product) error
	ListProducts(ctx context.Context, includeDeleted bool) ([]*types.Product, error)

	// Movement operations
	InsertMovement(ctx context.Context, movement *types.StockMovement) error
	GetMovement(ctx context.Context, id int64) (*types.MovementView, error)
	ListMovements(ctx context.Context) ([]*types.MovementView, error)
	ListMovementsByProduct(ctx context.Context, productID int64) ([]*types.MovementView, error)

	// Order operations
	CreateOrder(ctx context.Context, order *types.Order) error
	GetOrder(ctx context.Context, id int64) (*types.Order, error)
	UpdateOrder(ctx context.Context, order *types.Order) error
	ListOrders(ctx context.Context) ([]*types.Order, error)
	InsertStatusChange(ctx context.Context, change *types.StatusChange) error
	ListStatusChanges(ctx context.Context, orderID int64) ([]*types.StatusChange, error)

	// Directory operations
	CreateDirectoryEntry(ctx context.Context, entry *types.DirectoryEntry) error
	GetDirectoryEntry(ctx context.Context, id int64) (*types.DirectoryEntry, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// RunInTx runs fn inside a transaction that is committed when fn returns nil
// and rolled back otherwise. A PartialApplicationError returned by fn has its
// Reverted flag cleared when the rollback itself fails.
func RunInTx(ctx context.Context, s Storage, fn func(tx Tx) error) (err error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		rbErr := tx.Rollback()
		if rbErr == nil || errors.Is(rbErr, sql.ErrTxDone) {
			return
		}
		var partial *types.PartialApplicationError
		if errors.As(err, &partial) {
			partial.Reverted = false
		}
		err = errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
