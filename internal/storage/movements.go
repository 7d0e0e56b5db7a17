package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// Movement operations

const movementViewColumns = `
	m.id, m.product_id, m.kind, m.quantity, m.unit_price, m.moved_at, m.note,
	m.stock_before, m.stock_after, m.order_id, p.name, p.deleted
`

// insertMovementWithQuerier appends an immutable ledger row
func (s *SQLiteStorage) insertMovementWithQuerier(ctx context.Context, q querier, m *types.StockMovement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO stock_movements (product_id, kind, quantity, unit_price, moved_at, note,
		                             stock_before, stock_after, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	// Stored in UTC so that text ordering matches time ordering
	m.Timestamp = m.Timestamp.UTC()
	result, err := q.ExecContext(ctx, query,
		m.ProductID, string(m.Kind), m.Quantity, m.UnitPrice.String(), m.Timestamp,
		nullString(m.Note), m.StockBefore, m.StockAfter, nullInt64(m.OrderID))
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (s *SQLiteStorage) InsertMovement(ctx context.Context, m *types.StockMovement) error {
	return s.insertMovementWithQuerier(ctx, s.querier(), m)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMovementView(row rowScanner) (*types.MovementView, error) {
	var view types.MovementView
	var kind string
	var note sql.NullString
	var orderID sql.NullInt64
	var deleted bool
	err := row.Scan(
		&view.ID, &view.ProductID, &kind, &view.Quantity, &view.UnitPrice, &view.Timestamp, &note,
		&view.StockBefore, &view.StockAfter, &orderID, &view.ProductName, &deleted,
	)
	if err != nil {
		return nil, err
	}
	view.Kind = types.MovementKind(kind)
	view.Note = note.String
	view.OrderID = int64Ptr(orderID)
	view.ProductActive = !deleted
	return &view, nil
}

func (s *SQLiteStorage) getMovementWithQuerier(ctx context.Context, q querier, id int64) (*types.MovementView, error) {
	query := `SELECT ` + movementViewColumns + `
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		WHERE m.id = ?
	`
	view, err := scanMovementView(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movement %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movement %d: %w", id, err)
	}
	return view, nil
}

func (s *SQLiteStorage) GetMovement(ctx context.Context, id int64) (*types.MovementView, error) {
	return s.getMovementWithQuerier(ctx, s.querier(), id)
}

// listMovementsWithQuerier returns movements most recent first. A zero
// productID lists every product.
func (s *SQLiteStorage) listMovementsWithQuerier(ctx context.Context, q querier, productID int64) ([]*types.MovementView, error) {
	query := `SELECT ` + movementViewColumns + `
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		WHERE (? = 0 OR m.product_id = ?)
		ORDER BY m.moved_at DESC, m.id DESC
	`
	rows, err := q.QueryContext(ctx, query, productID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var views []*types.MovementView
	for rows.Next() {
		view, err := scanMovementView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

func (s *SQLiteStorage) ListMovements(ctx context.Context) ([]*types.MovementView, error) {
	return s.listMovementsWithQuerier(ctx, s.querier(), 0)
}

func (s *SQLiteStorage) ListMovementsByProduct(ctx context.Context, productID int64) ([]*types.MovementView, error) {
	return s.listMovementsWithQuerier(ctx, s.querier(), productID)
}
