// Package storage provides SQLite-based persistence for the catalog, the
// stock ledger and orders.
//
// The storage layer manages:
//   - Products, including their live stock quantity and soft-delete flag
//   - The append-only stock movement ledger
//   - Orders, their line items and status history
//   - Directory entries (customers and distributors)
//
// # Database Schema
//
// Tables:
//   - products: catalog rows; quantity carries a CHECK (quantity >= 0)
//   - stock_movements: immutable ledger, guarded by update/delete triggers
//   - orders: order header with an embedded customer snapshot
//   - order_items: line items, unique per (order_id, product_id)
//   - order_status_history: one row per status change
//   - directory_entries: customers and distributors
//
// Money columns are stored as decimal TEXT and scanned into decimal.Decimal.
//
// # Stock Updates
//
// SetProductQuantity is a conditional single-row update:
//
//	UPDATE products SET quantity = ? WHERE id = ? AND quantity = ?
//
// When no row matches, the caller gets ErrNotFound if the product is gone and
// types.ErrStockChanged if another writer moved the quantity first.
//
// # Transactions
//
// Use RunInTx for atomic operations:
//
//	err := storage.RunInTx(ctx, db, func(tx storage.Tx) error {
//	    if err := tx.InsertMovement(ctx, movement); err != nil {
//	        return err
//	    }
//	    return tx.SetProductQuantity(ctx, productID, before, after)
//	})
//
// Inside the callback only tx may be used. The pool holds a single
// connection, so calling the parent storage there blocks forever.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// Pure Go Build (default, purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
package storage
