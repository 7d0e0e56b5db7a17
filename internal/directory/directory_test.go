package directory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// countingStore is an in-memory Store that counts reads
type countingStore struct {
	entries map[int64]*types.DirectoryEntry
	nextID  int64
	reads   int
}

func newCountingStore() *countingStore {
	return &countingStore{entries: make(map[int64]*types.DirectoryEntry)}
}

func (s *countingStore) CreateDirectoryEntry(ctx context.Context, entry *types.DirectoryEntry) error {
	s.nextID++
	entry.ID = s.nextID
	c := *entry
	s.entries[entry.ID] = &c
	return nil
}

func (s *countingStore) GetDirectoryEntry(ctx context.Context, id int64) (*types.DirectoryEntry, error) {
	s.reads++
	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("directory entry %d: %w", id, types.ErrNotFound)
	}
	c := *entry
	return &c, nil
}

func TestRegister(t *testing.T) {
	store := newCountingStore()
	dir := New(store, 8)
	ctx := context.Background()

	t.Run("customer", func(t *testing.T) {
		entry := &types.DirectoryEntry{Name: "Ana", Phone: "555", Role: types.RoleCustomer}
		require.NoError(t, dir.Register(ctx, entry))
		assert.Equal(t, int64(1), entry.ID)
		assert.Equal(t, 1, dir.Len())
	})

	t.Run("customer without phone", func(t *testing.T) {
		err := dir.Register(ctx, &types.DirectoryEntry{Name: "Bia", Role: types.RoleCustomer})
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("customer with incomplete address", func(t *testing.T) {
		err := dir.Register(ctx, &types.DirectoryEntry{Name: "Bia", Phone: "1", Role: types.RoleCustomer,
			Address: &types.Address{Street: "Rua B"}})
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("distributor without phone", func(t *testing.T) {
		entry := &types.DirectoryEntry{Name: "Depot", Role: types.RoleDistributor}
		require.NoError(t, dir.Register(ctx, entry))
	})

	t.Run("unknown role", func(t *testing.T) {
		err := dir.Register(ctx, &types.DirectoryEntry{Name: "Root", Role: "admin"})
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestLookup_Caches(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.CreateDirectoryEntry(context.Background(),
		&types.DirectoryEntry{Name: "Ana", Phone: "555", Role: types.RoleCustomer,
			Address: &types.Address{Street: "Rua A", Number: "1", Neighborhood: "N", City: "C", State: "S"}}))
	dir := New(store, 8)
	ctx := context.Background()

	first, err := dir.Customer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)

	first.Name = "mutated"
	first.Address.City = "mutated"

	second, err := dir.Customer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads, "second lookup must hit the cache")
	assert.Equal(t, "Ana", second.Name)
	assert.Equal(t, "C", second.Address.City)
}

func TestLookup_Roles(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	require.NoError(t, store.CreateDirectoryEntry(ctx, &types.DirectoryEntry{Name: "Ana", Phone: "1", Role: types.RoleCustomer}))
	require.NoError(t, store.CreateDirectoryEntry(ctx, &types.DirectoryEntry{Name: "Depot", Role: types.RoleDistributor}))
	dir := New(store, 0)

	_, err := dir.Distributor(ctx, 1)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	_, err = dir.Customer(ctx, 2)
	assert.ErrorIs(t, err, types.ErrNotFound)

	d, err := dir.Distributor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Depot", d.Name)

	_, err = dir.Customer(ctx, 99)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), "customer 99 not found")
}

func TestLookup_Eviction(t *testing.T) {
	store := newCountingStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateDirectoryEntry(ctx, &types.DirectoryEntry{Name: "c", Phone: "1", Role: types.RoleCustomer}))
	}
	dir := New(store, 2)

	for id := int64(1); id <= 3; id++ {
		_, err := dir.Lookup(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, dir.Len())

	_, err := dir.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, store.reads, "evicted entry is reloaded")
}
