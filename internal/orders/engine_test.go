package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vortex-catalog/internal/directory"
	"github.com/dshills/vortex-catalog/internal/events"
	"github.com/dshills/vortex-catalog/internal/ledger"
	"github.com/dshills/vortex-catalog/internal/storage"
	"github.com/dshills/vortex-catalog/pkg/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	engine      *Engine
	store       *storage.SQLiteStorage
	pub         *recordingPublisher
	customer    *types.DirectoryEntry
	distributor *types.DirectoryEntry
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	dir := directory.New(store, 16)
	customer := &types.DirectoryEntry{Name: "Ana Souza", Phone: "555-0101", Role: types.RoleCustomer}
	require.NoError(t, dir.Register(ctx, customer))
	distributor := &types.DirectoryEntry{Name: "North Supply", Phone: "555-0199", Role: types.RoleDistributor}
	require.NoError(t, dir.Register(ctx, distributor))

	pub := &recordingPublisher{}
	clock := func() time.Time { return fixedNow }
	l := ledger.New(store, ledger.Options{Publisher: pub, Clock: clock})
	engine := NewEngine(store, dir, l, Options{Publisher: pub, Clock: clock})

	return &fixture{engine: engine, store: store, pub: pub, customer: customer, distributor: distributor}
}

func (f *fixture) product(t *testing.T, name, price string, quantity int) *types.Product {
	t.Helper()
	p := &types.Product{Name: name, UnitPrice: decimal.RequireFromString(price), Quantity: quantity}
	require.NoError(t, f.store.CreateProduct(context.Background(), p))
	return p
}

func (f *fixture) quantity(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

// sentOrder builds an order with the given lines and sends it
func (f *fixture) sentOrder(t *testing.T, lines map[*types.Product]int) *types.Order {
	t.Helper()
	ctx := context.Background()
	order, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)
	for p, qty := range lines {
		_, err := f.engine.AddItem(ctx, order.ID, p.ID, qty)
		require.NoError(t, err)
	}
	order, err = f.engine.Send(ctx, order.ID, f.distributor.ID, "")
	require.NoError(t, err)
	return order
}

func TestCreateDraft(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()

	order, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, types.StatusDraft, order.Status)
	assert.Equal(t, "Ana Souza", order.Customer.Name)
	assert.Empty(t, order.Items)

	t.Run("unknown customer", func(t *testing.T) {
		_, err := f.engine.CreateDraft(ctx, 9999)
		require.Error(t, err)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})

	t.Run("distributor is not a customer", func(t *testing.T) {
		_, err := f.engine.CreateDraft(ctx, f.distributor.ID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestAddItem(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "12.50", 10)

	order, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)

	order, err = f.engine.AddItem(ctx, order.ID, rice.ID, 4)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Rice", order.Items[0].Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(order.Items[0].UnitPrice))

	t.Run("accumulates on the same line", func(t *testing.T) {
		order, err := f.engine.AddItem(ctx, order.ID, rice.ID, 3)
		require.NoError(t, err)
		require.Len(t, order.Items, 1)
		assert.Equal(t, 7, order.Items[0].Quantity)
		assert.Equal(t, "87.5", order.Total().String())
	})

	t.Run("accumulated quantity checked against stock", func(t *testing.T) {
		_, err := f.engine.AddItem(ctx, order.ID, rice.ID, 4)
		var stockErr *types.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 11, stockErr.Requested)
		assert.Equal(t, 10, stockErr.Available)

		stored, err := f.engine.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, stored.Items[0].Quantity)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := f.engine.AddItem(ctx, order.ID, rice.ID, 0)
		assert.Equal(t, types.KindValidation, types.KindOf(err))
	})

	t.Run("rejects deleted product", func(t *testing.T) {
		gone := f.product(t, "Gone", "1.00", 5)
		require.NoError(t, f.store.SoftDeleteProduct(ctx, gone.ID))
		_, err := f.engine.AddItem(ctx, order.ID, gone.ID, 1)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.engine.AddItem(ctx, 9999, rice.ID, 1)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

func TestRemoveItem(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)
	beans := f.product(t, "Beans", "3.00", 10)

	order, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, order.ID, rice.ID, 1)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, order.ID, beans.ID, 2)
	require.NoError(t, err)

	order, err = f.engine.RemoveItem(ctx, order.ID, rice.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, beans.ID, order.Items[0].ProductID)

	// Absent product is a no-op
	order, err = f.engine.RemoveItem(ctx, order.ID, rice.ID)
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
}

func TestEditingRequiresDraft(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)
	order := f.sentOrder(t, map[*types.Product]int{rice: 1})

	_, err := f.engine.AddItem(ctx, order.ID, rice.ID, 1)
	assert.ErrorIs(t, err, types.ErrNotEditable)
	assert.Contains(t, err.Error(), "SENT")

	_, err = f.engine.RemoveItem(ctx, order.ID, rice.ID)
	assert.ErrorIs(t, err, types.ErrNotEditable)

	_, err = f.engine.Send(ctx, order.ID, f.distributor.ID, "")
	assert.ErrorIs(t, err, types.ErrNotEditable)
}

// A valid draft is sent to a distributor
func TestSend(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)

	order, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)

	t.Run("empty order", func(t *testing.T) {
		_, err := f.engine.Send(ctx, order.ID, f.distributor.ID, "")
		assert.Equal(t, types.KindValidation, types.KindOf(err))
	})

	_, err = f.engine.AddItem(ctx, order.ID, rice.ID, 3)
	require.NoError(t, err)

	t.Run("unknown distributor", func(t *testing.T) {
		_, err := f.engine.Send(ctx, order.ID, 9999, "")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("customer is not a distributor", func(t *testing.T) {
		_, err := f.engine.Send(ctx, order.ID, f.customer.ID, "")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	sent, err := f.engine.Send(ctx, order.ID, f.distributor.ID, "deliver before noon")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSent, sent.Status)
	require.NotNil(t, sent.DistributorID)
	assert.Equal(t, f.distributor.ID, *sent.DistributorID)
	assert.Equal(t, "deliver before noon", sent.CustomerNotes)

	// Sending moves no stock
	assert.Equal(t, 10, f.quantity(t, rice.ID))

	history, err := f.engine.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.StatusDraft, history[0].From)
	assert.Equal(t, types.StatusSent, history[0].To)

	statusEvents := f.pub.ofType(events.TypeOrderStatusChanged)
	require.Len(t, statusEvents, 1)
	assert.Equal(t, "1", statusEvents[0].Key)
}

func TestSend_RevalidatesStock(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)

	order, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, order.ID, rice.ID, 8)
	require.NoError(t, err)

	// Stock drops after the item was added
	require.NoError(t, f.store.SetProductQuantity(ctx, rice.ID, 10, 5))

	_, err = f.engine.Send(ctx, order.ID, f.distributor.ID, "")
	var stockErr *types.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Rice", stockErr.ProductName)

	stored, err := f.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, stored.Status)
}

func TestConfirmDebitsAndCancelRestores(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)
	beans := f.product(t, "Beans", "3.00", 6)
	order := f.sentOrder(t, map[*types.Product]int{rice: 4, beans: 6})

	confirmed, err := f.engine.UpdateStatus(ctx, order.ID, "CONFIRMED", "stock reserved")
	require.NoError(t, err)
	assert.Equal(t, types.StatusConfirmed, confirmed.Status)
	assert.Equal(t, "stock reserved", confirmed.DistributorNotes)
	assert.Equal(t, 6, f.quantity(t, rice.ID))
	assert.Equal(t, 0, f.quantity(t, beans.ID))

	movements, err := f.store.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, types.MovementExit, m.Kind)
		require.NotNil(t, m.OrderID)
		assert.Equal(t, order.ID, *m.OrderID)
		assert.Contains(t, m.Note, "confirmed")
	}

	_, err = f.engine.UpdateStatus(ctx, order.ID, "cancelled", "")
	require.NoError(t, err)
	assert.Equal(t, 10, f.quantity(t, rice.ID))
	assert.Equal(t, 6, f.quantity(t, beans.ID))

	movements, err = f.store.ListMovements(ctx)
	require.NoError(t, err)
	assert.Len(t, movements, 4)

	assert.Len(t, f.pub.ofType(events.TypeMovementRegistered), 4)
	// send, confirm, cancel
	assert.Len(t, f.pub.ofType(events.TypeOrderStatusChanged), 3)

	history, err := f.engine.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, types.StatusConfirmed, history[2].From)
	assert.Equal(t, types.StatusCancelled, history[2].To)
}

func TestCancelFromPreparingRestores(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)
	order := f.sentOrder(t, map[*types.Product]int{rice: 3})

	for _, status := range []string{"UNDER_REVIEW", "CONFIRMED", "PREPARING"} {
		_, err := f.engine.UpdateStatus(ctx, order.ID, status, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 7, f.quantity(t, rice.ID))

	_, err := f.engine.UpdateStatus(ctx, order.ID, "CANCELLED", "customer gave up")
	require.NoError(t, err)
	assert.Equal(t, 10, f.quantity(t, rice.ID))
}

func TestCancelBeforeConfirmMovesNoStock(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)

	draft, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)
	_, err = f.engine.AddItem(ctx, draft.ID, rice.ID, 3)
	require.NoError(t, err)

	cancelled, err := f.engine.UpdateStatus(ctx, draft.ID, "CANCELLED", "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)

	// A sent order can only be rejected, not cancelled
	sent := f.sentOrder(t, map[*types.Product]int{rice: 3})
	_, err = f.engine.UpdateStatus(ctx, sent.ID, "CANCELLED", "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
	_, err = f.engine.UpdateStatus(ctx, sent.ID, "REJECTED", "out of route")
	require.NoError(t, err)

	assert.Equal(t, 10, f.quantity(t, rice.ID))
	movements, err := f.store.ListMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestCancelRestoresRemovedProduct(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)
	order := f.sentOrder(t, map[*types.Product]int{rice: 3})

	_, err := f.engine.UpdateStatus(ctx, order.ID, "CONFIRMED", "")
	require.NoError(t, err)
	require.NoError(t, f.store.SoftDeleteProduct(ctx, rice.ID))

	cancelled, err := f.engine.UpdateStatus(ctx, order.ID, "CANCELLED", "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.quantity(t, rice.ID))

	movements, err := f.store.ListMovementsByProduct(ctx, rice.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, types.MovementEntry, movements[0].Kind)
	assert.False(t, movements[0].ProductActive)
}

// Confirmation with one short line debits nothing
func TestConfirm_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	productA := f.product(t, "Product A", "1.00", 10)
	productB := f.product(t, "Product B", "1.00", 5)
	order := f.sentOrder(t, map[*types.Product]int{productA: 2, productB: 5})

	// productB is drained by someone else after the order was sent
	require.NoError(t, f.store.SetProductQuantity(ctx, productB.ID, 5, 1))

	_, err := f.engine.UpdateStatus(ctx, order.ID, "CONFIRMED", "")
	var stockErr *types.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, productB.ID, stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 10, f.quantity(t, productA.ID))
	assert.Equal(t, 1, f.quantity(t, productB.ID))

	stored, err := f.engine.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSent, stored.Status)

	movements, err := f.store.ListMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movements)
	assert.Empty(t, f.pub.ofType(events.TypeMovementRegistered))
}

func TestUpdateStatus_Rejections(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 10)
	order := f.sentOrder(t, map[*types.Product]int{rice: 1})

	tests := []struct {
		name   string
		status string
		kind   types.ErrorKind
		target error
	}{
		{"unknown status", "SHIPPED", types.KindValidation, types.ErrValidation},
		{"send through update", "SENT", types.KindValidation, types.ErrValidation},
		{"skip ahead", "DELIVERED", types.KindConflict, types.ErrInvalidTransition},
		{"back to draft", "DRAFT", types.KindConflict, types.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.UpdateStatus(ctx, order.ID, tt.status, "")
			require.Error(t, err)
			assert.Equal(t, tt.kind, types.KindOf(err))
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	t.Run("terminal status", func(t *testing.T) {
		_, err := f.engine.UpdateStatus(ctx, order.ID, "REJECTED", "")
		require.NoError(t, err)
		_, err = f.engine.UpdateStatus(ctx, order.ID, "UNDER_REVIEW", "")
		var transitionErr *types.TransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Empty(t, transitionErr.Allowed)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.engine.UpdateStatus(ctx, 9999, "CONFIRMED", "")
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

func TestList(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	rice := f.product(t, "Rice", "2.00", 100)

	first := f.sentOrder(t, map[*types.Product]int{rice: 1})
	second, err := f.engine.CreateDraft(ctx, f.customer.ID)
	require.NoError(t, err)

	sent := types.StatusSent
	orders, err := f.engine.List(ctx, Criteria{Status: &sent})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)

	orders, err = f.engine.List(ctx, Criteria{DistributorID: &f.distributor.ID})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	orders, err = f.engine.List(ctx, Criteria{CustomerName: "souza"})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// Same timestamps, so ids decide: newest first
	assert.Equal(t, second.ID, orders[0].ID)
}

func TestHistory_UnknownOrder(t *testing.T) {
	f := setupEngine(t)
	_, err := f.engine.History(context.Background(), 42)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
