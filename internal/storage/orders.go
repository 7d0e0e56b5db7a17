package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// Order operations

const orderColumns = `
	id, customer_id, customer_name, customer_phone, customer_email, customer_address,
	status, created_at, updated_at, distributor_id, customer_notes, distributor_notes
`

// createOrderWithQuerier inserts the order header and its line items
func (s *SQLiteStorage) createOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	address, err := encodeAddress(order.Customer.Address)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO orders (customer_id, customer_name, customer_phone, customer_email, customer_address,
		                    status, created_at, distributor_id, customer_notes, distributor_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now()
	}
	order.CreatedAt = order.CreatedAt.UTC()
	result, err := q.ExecContext(ctx, query,
		order.CustomerID, order.Customer.Name, order.Customer.Phone, nullString(order.Customer.Email), address,
		string(order.Status), order.CreatedAt, nullInt64(order.DistributorID),
		nullString(order.CustomerNotes), nullString(order.DistributorNotes))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = id
	return s.insertOrderItemsWithQuerier(ctx, q, order)
}

func (s *SQLiteStorage) CreateOrder(ctx context.Context, order *types.Order) error {
	return RunInTx(ctx, s, func(tx Tx) error {
		return tx.CreateOrder(ctx, order)
	})
}

func (s *SQLiteStorage) insertOrderItemsWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	query := `
		INSERT INTO order_items (order_id, product_id, position, quantity, unit_price, name)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i, item := range order.Items {
		_, err := q.ExecContext(ctx, query,
			order.ID, item.ProductID, i, item.Quantity, item.UnitPrice.String(), nullString(item.Name))
		if err != nil {
			return fmt.Errorf("failed to insert item for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

// updateOrderWithQuerier rewrites the mutable header fields and replaces the
// line items wholesale.
func (s *SQLiteStorage) updateOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	query := `
		UPDATE orders
		SET status = ?, updated_at = ?, distributor_id = ?, customer_notes = ?, distributor_notes = ?
		WHERE id = ?
	`
	now := s.now()
	result, err := q.ExecContext(ctx, query,
		string(order.Status), now, nullInt64(order.DistributorID),
		nullString(order.CustomerNotes), nullString(order.DistributorNotes), order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", order.ID); err != nil {
		return fmt.Errorf("failed to clear items of order %d: %w", order.ID, err)
	}
	if err := s.insertOrderItemsWithQuerier(ctx, q, order); err != nil {
		return err
	}
	order.UpdatedAt = &now
	return nil
}

func (s *SQLiteStorage) UpdateOrder(ctx context.Context, order *types.Order) error {
	return RunInTx(ctx, s, func(tx Tx) error {
		return tx.UpdateOrder(ctx, order)
	})
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var order types.Order
	var email, address, customerNotes, distributorNotes sql.NullString
	var status string
	var updatedAt sql.NullTime
	var distributorID sql.NullInt64
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.Customer.Name, &order.Customer.Phone, &email, &address,
		&status, &order.CreatedAt, &updatedAt, &distributorID, &customerNotes, &distributorNotes,
	)
	if err != nil {
		return nil, err
	}
	order.Customer.Email = email.String
	if order.Customer.Address, err = decodeAddress(address); err != nil {
		return nil, err
	}
	order.Status = types.OrderStatus(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		order.UpdatedAt = &t
	}
	order.DistributorID = int64Ptr(distributorID)
	order.CustomerNotes = customerNotes.String
	order.DistributorNotes = distributorNotes.String
	order.Items = make([]types.OrderLineItem, 0)
	return &order, nil
}

func (s *SQLiteStorage) getOrderWithQuerier(ctx context.Context, q querier, id int64) (*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	items, err := s.listOrderItemsWithQuerier(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if lines, ok := items[id]; ok {
		order.Items = lines
	}
	return order, nil
}

func (s *SQLiteStorage) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	return s.getOrderWithQuerier(ctx, s.querier(), id)
}

// listOrderItemsWithQuerier loads line items grouped by order, in insertion
// order. A zero orderID loads the items of every order.
func (s *SQLiteStorage) listOrderItemsWithQuerier(ctx context.Context, q querier, orderID int64) (map[int64][]types.OrderLineItem, error) {
	query := `
		SELECT order_id, product_id, quantity, unit_price, name
		FROM order_items
		WHERE (? = 0 OR order_id = ?)
		ORDER BY order_id, position
	`
	rows, err := q.QueryContext(ctx, query, orderID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make(map[int64][]types.OrderLineItem)
	for rows.Next() {
		var id int64
		var item types.OrderLineItem
		var name sql.NullString
		if err := rows.Scan(&id, &item.ProductID, &item.Quantity, &item.UnitPrice, &name); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Name = name.String
		items[id] = append(items[id], item)
	}
	return items, rows.Err()
}

// listOrdersWithQuerier loads every order with its items, newest id first
func (s *SQLiteStorage) listOrdersWithQuerier(ctx context.Context, q querier) ([]*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY id DESC`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var orders []*types.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// Close before the next query; the pool holds a single connection
	_ = rows.Close()

	items, err := s.listOrderItemsWithQuerier(ctx, q, 0)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if lines, ok := items[order.ID]; ok {
			order.Items = lines
		}
	}
	return orders, nil
}

func (s *SQLiteStorage) ListOrders(ctx context.Context) ([]*types.Order, error) {
	return s.listOrdersWithQuerier(ctx, s.querier())
}

// Status history operations

func (s *SQLiteStorage) insertStatusChangeWithQuerier(ctx context.Context, q querier, change *types.StatusChange) error {
	query := `
		INSERT INTO order_status_history (order_id, from_status, to_status, note, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if change.ChangedAt.IsZero() {
		change.ChangedAt = s.now()
	}
	change.ChangedAt = change.ChangedAt.UTC()
	result, err := q.ExecContext(ctx, query,
		change.OrderID, string(change.From), string(change.To), nullString(change.Note), change.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to record status change for order %d: %w", change.OrderID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	change.ID = id
	return nil
}

func (s *SQLiteStorage) InsertStatusChange(ctx context.Context, change *types.StatusChange) error {
	return s.insertStatusChangeWithQuerier(ctx, s.querier(), change)
}

// listStatusChangesWithQuerier returns an order's history, oldest first
func (s *SQLiteStorage) listStatusChangesWithQuerier(ctx context.Context, q querier, orderID int64) ([]*types.StatusChange, error) {
	query := `
		SELECT id, order_id, from_status, to_status, note, changed_at
		FROM order_status_history
		WHERE order_id = ?
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var changes []*types.StatusChange
	for rows.Next() {
		var change types.StatusChange
		var from, to string
		var note sql.NullString
		if err := rows.Scan(&change.ID, &change.OrderID, &from, &to, &note, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		change.From = types.OrderStatus(from)
		change.To = types.OrderStatus(to)
		change.Note = note.String
		changes = append(changes, &change)
	}
	return changes, rows.Err()
}

func (s *SQLiteStorage) ListStatusChanges(ctx context.Context, orderID int64) ([]*types.StatusChange, error) {
	return s.listStatusChangesWithQuerier(ctx, s.querier(), orderID)
}

func encodeAddress(addr *types.Address) (sql.NullString, error) {
	if addr == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode address: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeAddress(raw sql.NullString) (*types.Address, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var addr types.Address
	if err := json.Unmarshal([]byte(raw.String), &addr); err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	return &addr, nil
}
