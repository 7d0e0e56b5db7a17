// Package directory resolves customers and distributors by id.
//
// Lookups go through an LRU cache in front of the store. Entries are handed
// out as copies so callers can't mutate cached values.
package directory

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/vortex-catalog/pkg/types"
)

const defaultCacheSize = 512

// Store persists directory entries
type Store interface {
	CreateDirectoryEntry(ctx context.Context, entry *types.DirectoryEntry) error
	GetDirectoryEntry(ctx context.Context, id int64) (*types.DirectoryEntry, error)
}

// Directory looks up order parties
type Directory interface {
	Customer(ctx context.Context, id int64) (*types.DirectoryEntry, error)
	Distributor(ctx context.Context, id int64) (*types.DirectoryEntry, error)
}

// CachedDirectory is a Directory backed by a Store with an LRU cache
type CachedDirectory struct {
	store Store
	cache *lru.Cache[int64, *types.DirectoryEntry]
}

// New creates a directory over store caching up to size entries
func New(store Store, size int) *CachedDirectory {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[int64, *types.DirectoryEntry](size)
	if err != nil {
		// Only fails for non-positive sizes
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &CachedDirectory{store: store, cache: cache}
}

// Register validates and stores a new entry
func (d *CachedDirectory) Register(ctx context.Context, entry *types.DirectoryEntry) error {
	if entry.Role != types.RoleCustomer && entry.Role != types.RoleDistributor {
		return types.Validationf("register contact", "role must be customer or distributor, got %q", string(entry.Role)).
			WithField("field", "role")
	}
	if entry.Role == types.RoleCustomer {
		snapshot := entry.Customer()
		if err := snapshot.Validate(); err != nil {
			return err
		}
	} else if entry.Name == "" {
		return types.Validationf("register contact", "distributor name is required").WithField("field", "name")
	}

	if err := d.store.CreateDirectoryEntry(ctx, entry); err != nil {
		return err
	}
	d.cache.Add(entry.ID, clone(entry))
	return nil
}

// Lookup returns the entry for id regardless of role
func (d *CachedDirectory) Lookup(ctx context.Context, id int64) (*types.DirectoryEntry, error) {
	if entry, ok := d.cache.Get(id); ok {
		return clone(entry), nil
	}

	entry, err := d.store.GetDirectoryEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Add(id, clone(entry))
	return entry, nil
}

// Customer returns the entry for id when it is a customer
func (d *CachedDirectory) Customer(ctx context.Context, id int64) (*types.DirectoryEntry, error) {
	return d.lookupRole(ctx, id, types.RoleCustomer)
}

// Distributor returns the entry for id when it is a distributor
func (d *CachedDirectory) Distributor(ctx context.Context, id int64) (*types.DirectoryEntry, error) {
	return d.lookupRole(ctx, id, types.RoleDistributor)
}

func (d *CachedDirectory) lookupRole(ctx context.Context, id int64, role types.Role) (*types.DirectoryEntry, error) {
	entry, err := d.Lookup(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.NotFoundf("lookup "+string(role), "%s %d not found", role, id).WithField(string(role)+"_id", id)
	}
	if err != nil {
		return nil, err
	}
	if entry.Role != role {
		return nil, types.NotFoundf("lookup "+string(role), "%s %d not found", role, id).WithField(string(role)+"_id", id)
	}
	return entry, nil
}

// Len returns the number of cached entries
func (d *CachedDirectory) Len() int {
	return d.cache.Len()
}

func clone(entry *types.DirectoryEntry) *types.DirectoryEntry {
	c := *entry
	if entry.Address != nil {
		addr := *entry.Address
		c.Address = &addr
	}
	return &c
}
