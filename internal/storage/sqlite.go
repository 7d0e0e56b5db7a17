package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Product operations

// createProductWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO products (name, description, unit_price, quantity, image_ref, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`
	now := s.now()
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.UnitPrice.String(), product.Quantity,
		nullString(product.ImageRef), now, now)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	product.ID = id
	product.Deleted = false
	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProduct(ctx context.Context, product *types.Product) error {
	return s.createProductWithQuerier(ctx, s.querier(), product)
}

const productColumns = `id, name, description, unit_price, quantity, image_ref, deleted, created_at, updated_at`

func scanProduct(row rowScanner) (*types.Product, error) {
	var product types.Product
	var imageRef sql.NullString
	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.UnitPrice,
		&product.Quantity, &imageRef, &product.Deleted, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.ImageRef = imageRef.String
	return &product, nil
}

// getProductWithQuerier loads a product regardless of its deleted flag
func (s *SQLiteStorage) getProductWithQuerier(ctx context.Context, q querier, id int64) (*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return product, nil
}

func (s *SQLiteStorage) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	return s.getProductWithQuerier(ctx, s.querier(), id)
}

// getActiveProductWithQuerier treats soft-deleted products as missing
func (s *SQLiteStorage) getActiveProductWithQuerier(ctx context.Context, q querier, id int64) (*types.Product, error) {
	product, err := s.getProductWithQuerier(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if product.Deleted {
		return nil, fmt.Errorf("product %d is deleted: %w", id, ErrNotFound)
	}
	return product, nil
}

func (s *SQLiteStorage) GetActiveProduct(ctx context.Context, id int64) (*types.Product, error) {
	return s.getActiveProductWithQuerier(ctx, s.querier(), id)
}

// setProductQuantityWithQuerier writes a new stock level only if the stored
// level still equals expected.
func (s *SQLiteStorage) setProductQuantityWithQuerier(ctx context.Context, q querier, id int64, expected, newQuantity int) error {
	if newQuantity < 0 {
		return types.Validationf("set product quantity", "quantity cannot be negative: %d", newQuantity)
	}
	query := `
		UPDATE products
		SET quantity = ?, updated_at = ?
		WHERE id = ? AND quantity = ?
	`
	result, err := q.ExecContext(ctx, query, newQuantity, s.now(), id, expected)
	if err != nil {
		return fmt.Errorf("failed to update product %d quantity: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update product %d quantity: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	var current int
	err = q.QueryRowContext(ctx, "SELECT quantity FROM products WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read product %d quantity: %w", id, err)
	}
	return fmt.Errorf("product %d: expected quantity %d, found %d: %w", id, expected, current, types.ErrStockChanged)
}

func (s *SQLiteStorage) SetProductQuantity(ctx context.Context, id int64, expected, newQuantity int) error {
	return s.setProductQuantityWithQuerier(ctx, s.querier(), id, expected, newQuantity)
}

// softDeleteProductWithQuerier flags a product as deleted; the row is kept so
// historical movements and orders still resolve its name.
func (s *SQLiteStorage) softDeleteProductWithQuerier(ctx context.Context, q querier, id int64) error {
	result, err := q.ExecContext(ctx, "UPDATE products SET deleted = 1, updated_at = ? WHERE id = ?", s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) SoftDeleteProduct(ctx context.Context, id int64) error {
	return s.softDeleteProductWithQuerier(ctx, s.querier(), id)
}

// updateProductWithQuerier rewrites the descriptive fields and price of an
// active product. Quantity only moves through SetProductQuantity.
func (s *SQLiteStorage) updateProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	query := `
		UPDATE products
		SET name = ?, description = ?, unit_price = ?, image_ref = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`
	now := s.now()
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.UnitPrice.String(), nullString(product.ImageRef),
		now, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", product.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("active product %d: %w", product.ID, ErrNotFound)
	}
	product.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProduct(ctx context.Context, product *types.Product) error {
	return s.updateProductWithQuerier(ctx, s.querier(), product)
}

// listProductsWithQuerier returns products ordered by name then id
func (s *SQLiteStorage) listProductsWithQuerier(ctx context.Context, q querier, includeDeleted bool) ([]*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*types.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *SQLiteStorage) ListProducts(ctx context.Context, includeDeleted bool) ([]*types.Product, error) {
	return s.listProductsWithQuerier(ctx, s.querier(), includeDeleted)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
