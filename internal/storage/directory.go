package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// Directory operations

func (s *SQLiteStorage) createDirectoryEntryWithQuerier(ctx context.Context, q querier, entry *types.DirectoryEntry) error {
	if entry.Role != types.RoleCustomer && entry.Role != types.RoleDistributor {
		return types.Validationf("directory", "invalid role %q", string(entry.Role)).WithField("field", "role")
	}
	address, err := encodeAddress(entry.Address)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO directory_entries (name, phone, email, address, role)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := q.ExecContext(ctx, query,
		entry.Name, nullString(entry.Phone), nullString(entry.Email), address, string(entry.Role))
	if err != nil {
		return fmt.Errorf("failed to create directory entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (s *SQLiteStorage) CreateDirectoryEntry(ctx context.Context, entry *types.DirectoryEntry) error {
	return s.createDirectoryEntryWithQuerier(ctx, s.querier(), entry)
}

func (s *SQLiteStorage) getDirectoryEntryWithQuerier(ctx context.Context, q querier, id int64) (*types.DirectoryEntry, error) {
	query := `
		SELECT id, name, phone, email, address, role
		FROM directory_entries
		WHERE id = ?
	`
	var entry types.DirectoryEntry
	var phone, email, address sql.NullString
	var role string
	err := q.QueryRowContext(ctx, query, id).Scan(&entry.ID, &entry.Name, &phone, &email, &address, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("directory entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get directory entry %d: %w", id, err)
	}
	entry.Phone = phone.String
	entry.Email = email.String
	entry.Role = types.Role(role)
	if entry.Address, err = decodeAddress(address); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLiteStorage) GetDirectoryEntry(ctx context.Context, id int64) (*types.DirectoryEntry, error) {
	return s.getDirectoryEntryWithQuerier(ctx, s.querier(), id)
}
