package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// Transaction methods delegate to the storage implementation with the tx querier.
// Never route through t.storage.db here: with one pooled connection it deadlocks.

func (t *sqliteTx) CreateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.createProductWithQuerier(ctx, t.querier(), product)
}

func (t *sqliteTx) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	return t.storage.getProductWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetActiveProduct(ctx context.Context, id int64) (*types.Product, error) {
	return t.storage.getActiveProductWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) SetProductQuantity(ctx context.Context, id int64, expected, newQuantity int) error {
	return t.storage.setProductQuantityWithQuerier(ctx, t.querier(), id, expected, newQuantity)
}

func (t *sqliteTx) SoftDeleteProduct(ctx context.Context, id int64) error {
	return t.storage.softDeleteProductWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) UpdateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.updateProductWithQuerier(ctx, t.querier(), product)
}

func (t *sqliteTx) ListProducts(ctx context.Context, includeDeleted bool) ([]*types.Product, error) {
	return t.storage.listProductsWithQuerier(ctx, t.querier(), includeDeleted)
}

func (t *sqliteTx) InsertMovement(ctx context.Context, movement *types.StockMovement) error {
	return t.storage.insertMovementWithQuerier(ctx, t.querier(), movement)
}

func (t *sqliteTx) GetMovement(ctx context.Context, id int64) (*types.MovementView, error) {
	return t.storage.getMovementWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListMovements(ctx context.Context) ([]*types.MovementView, error) {
	return t.storage.listMovementsWithQuerier(ctx, t.querier(), 0)
}

func (t *sqliteTx) ListMovementsByProduct(ctx context.Context, productID int64) ([]*types.MovementView, error) {
	return t.storage.listMovementsWithQuerier(ctx, t.querier(), productID)
}

func (t *sqliteTx) CreateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.createOrderWithQuerier(ctx, t.querier(), order)
}

func (t *sqliteTx) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	return t.storage.getOrderWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.updateOrderWithQuerier(ctx, t.querier(), order)
}

func (t *sqliteTx) ListOrders(ctx context.Context) ([]*types.Order, error) {
	return t.storage.listOrdersWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) InsertStatusChange(ctx context.Context, change *types.StatusChange) error {
	return t.storage.insertStatusChangeWithQuerier(ctx, t.querier(), change)
}

func (t *sqliteTx) ListStatusChanges(ctx context.Context, orderID int64) ([]*types.StatusChange, error) {
	return t.storage.listStatusChangesWithQuerier(ctx, t.querier(), orderID)
}

func (t *sqliteTx) CreateDirectoryEntry(ctx context.Context, entry *types.DirectoryEntry) error {
	return t.storage.createDirectoryEntryWithQuerier(ctx, t.querier(), entry)
}

func (t *sqliteTx) GetDirectoryEntry(ctx context.Context, id int64) (*types.DirectoryEntry, error) {
	return t.storage.getDirectoryEntryWithQuerier(ctx, t.querier(), id)
}

// Close is a no-op for transactions; the parent storage owns the connection
func (t *sqliteTx) Close() error {
	return nil
}

// BeginTx is not supported for nested transactions
func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
