// Package orders implements the order lifecycle.
//
// An order is edited while DRAFT, sent to a distributor, then moved through
// the status table in pkg/types. Stock side effects are keyed to the
// (from, to) transition pair rather than to the target status: confirming
// from SENT or UNDER_REVIEW debits every line, cancelling from CONFIRMED or
// PREPARING credits it back. Each public operation runs in one storage
// transaction, so a confirmation that fails on its third line leaves the
// first two untouched.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dshills/vortex-catalog/internal/directory"
	"github.com/dshills/vortex-catalog/internal/events"
	"github.com/dshills/vortex-catalog/internal/ledger"
	"github.com/dshills/vortex-catalog/internal/observability"
	"github.com/dshills/vortex-catalog/internal/stock"
	"github.com/dshills/vortex-catalog/internal/storage"
	"github.com/dshills/vortex-catalog/pkg/types"
)

// stockEffect is what a transition does to the stock of every line
type stockEffect int

const (
	effectNone stockEffect = iota
	effectDebit
	effectCredit
)

type transition struct {
	from, to types.OrderStatus
}

// stockEffects lists the transitions that move stock; all others only
// change status and notes.
var stockEffects = map[transition]stockEffect{
	{types.StatusSent, types.StatusConfirmed}:        effectDebit,
	{types.StatusUnderReview, types.StatusConfirmed}: effectDebit,
	{types.StatusConfirmed, types.StatusCancelled}:   effectCredit,
	{types.StatusPreparing, types.StatusCancelled}:   effectCredit,
}

// Options configures an Engine. Zero values get no-op defaults.
type Options struct {
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Publisher events.Publisher
	Clock     func() time.Time
}

// Engine runs order operations
type Engine struct {
	store     storage.Storage
	directory directory.Directory
	ledger    *ledger.Ledger
	logger    *zap.Logger
	tracer    trace.Tracer
	publisher events.Publisher
	now       func() time.Time
}

// NewEngine creates an Engine. Stock changes caused by transitions are
// recorded through l.
func NewEngine(store storage.Storage, dir directory.Directory, l *ledger.Ledger, opts Options) *Engine {
	e := &Engine{
		store:     store,
		directory: dir,
		ledger:    l,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		publisher: opts.Publisher,
		now:       opts.Clock,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("orders")
	}
	if e.publisher == nil {
		e.publisher = events.NopPublisher{}
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// CreateDraft starts an empty order for a customer, embedding a snapshot of
// the customer's contact data.
func (e *Engine) CreateDraft(ctx context.Context, customerID int64) (order *types.Order, err error) {
	ctx, span := e.tracer.Start(ctx, "orders.create_draft",
		trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	customer, err := e.directory.Customer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	snapshot := customer.Customer()
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	order = types.NewDraftOrder(customerID, snapshot, e.now())
	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	e.logger.Info("draft order created", zap.Int64("order_id", order.ID), zap.Int64("customer_id", customerID))
	return order, nil
}

// AddItem adds quantity units of a product to a DRAFT order. The price and
// name are captured from the product now; an existing line accumulates.
func (e *Engine) AddItem(ctx context.Context, orderID, productID int64, quantity int) (order *types.Order, err error) {
	const op = "add item"
	ctx, span := e.tracer.Start(ctx, "orders.add_item", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
		attribute.Int("item.quantity", quantity),
	))
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	if quantity <= 0 {
		return nil, types.Validationf(op, "quantity must be greater than zero, got %d", quantity).
			WithField("field", "quantity")
	}

	err = storage.RunInTx(ctx, e.store, func(tx storage.Tx) error {
		var txErr error
		order, txErr = loadOrder(ctx, tx, op, orderID)
		if txErr != nil {
			return txErr
		}
		if !order.IsEditable() {
			return notEditable(op, order)
		}

		product, txErr := loadActiveProduct(ctx, tx, op, productID)
		if txErr != nil {
			return txErr
		}
		requested := quantity
		if line, ok := order.Item(productID); ok {
			requested += line.Quantity
		}
		if txErr := stock.RequireAvailable(product, requested); txErr != nil {
			return txErr
		}

		order.AddItem(product.ID, quantity, product.UnitPrice, product.Name)
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("order item added",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return order, nil
}

// RemoveItem drops a product's line from a DRAFT order. Removing a product
// that isn't on the order is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, orderID, productID int64) (order *types.Order, err error) {
	const op = "remove item"
	ctx, span := e.tracer.Start(ctx, "orders.remove_item", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	err = storage.RunInTx(ctx, e.store, func(tx storage.Tx) error {
		var txErr error
		order, txErr = loadOrder(ctx, tx, op, orderID)
		if txErr != nil {
			return txErr
		}
		if !order.IsEditable() {
			return notEditable(op, order)
		}
		if !order.RemoveItem(productID) {
			return nil
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Send hands a DRAFT order to a distributor. Every line is checked against
// live stock first, since stock may have moved since the item was added.
func (e *Engine) Send(ctx context.Context, orderID, distributorID int64, note string) (order *types.Order, err error) {
	const op = "send order"
	ctx, span := e.tracer.Start(ctx, "orders.send", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("distributor.id", distributorID),
	))
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	// Resolved before the transaction opens; the directory reads through the
	// parent storage.
	if _, err := e.directory.Distributor(ctx, distributorID); err != nil {
		return nil, err
	}

	var change *types.StatusChange
	err = storage.RunInTx(ctx, e.store, func(tx storage.Tx) error {
		var txErr error
		order, txErr = loadOrder(ctx, tx, op, orderID)
		if txErr != nil {
			return txErr
		}
		if order.Status != types.StatusDraft {
			return types.Conflictf(op, types.ErrNotEditable,
				"order %d is %s; only DRAFT orders can be sent", order.ID, order.Status).
				WithField("order_id", order.ID).WithField("status", string(order.Status))
		}
		if len(order.Items) == 0 {
			return types.Validationf(op, "order %d has no items", order.ID).WithField("order_id", order.ID)
		}
		for _, item := range order.Items {
			product, txErr := loadActiveProduct(ctx, tx, op, item.ProductID)
			if txErr != nil {
				return txErr
			}
			if txErr := stock.RequireAvailable(product, item.Quantity); txErr != nil {
				return txErr
			}
		}

		order.DistributorID = &distributorID
		if note != "" {
			order.CustomerNotes = note
		}
		change, txErr = e.applyStatus(ctx, tx, order, types.StatusSent, note)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("order sent",
		zap.Int64("order_id", order.ID),
		zap.Int64("distributor_id", distributorID),
		zap.Int("items", len(order.Items)),
	)
	e.publishStatus(ctx, change, order)
	return order, nil
}

// UpdateStatus moves an order along the transition table and applies the
// transition's stock effect. note becomes the distributor note.
func (e *Engine) UpdateStatus(ctx context.Context, orderID int64, status string, note string) (order *types.Order, err error) {
	const op = "update status"
	ctx, span := e.tracer.Start(ctx, "orders.update_status", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status.requested", status),
	))
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	to, err := types.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	if to == types.StatusSent {
		return nil, types.Validationf(op, "orders are sent with the send operation, which attaches a distributor").
			WithField("field", "status")
	}

	var change *types.StatusChange
	var movements []*types.MovementView
	err = storage.RunInTx(ctx, e.store, func(tx storage.Tx) error {
		var txErr error
		order, txErr = loadOrder(ctx, tx, op, orderID)
		if txErr != nil {
			return txErr
		}
		from := order.Status
		if txErr := from.CheckTransition(to); txErr != nil {
			return txErr
		}

		switch stockEffects[transition{from, to}] {
		case effectDebit:
			movements, txErr = e.debit(ctx, tx, order)
		case effectCredit:
			movements, txErr = e.credit(ctx, tx, order)
		}
		if txErr != nil {
			return txErr
		}

		if note != "" {
			order.DistributorNotes = note
		}
		change, txErr = e.applyStatus(ctx, tx, order, to, note)
		return txErr
	})
	if err != nil {
		e.logger.Info("order status change rejected",
			zap.Int64("order_id", orderID),
			zap.String("to", string(to)),
			zap.String("error_kind", string(types.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.status.from", string(change.From)),
		attribute.String("order.status.to", string(change.To)),
		attribute.Int("stock.movements", len(movements)),
	)
	e.logger.Info("order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.Int("movements", len(movements)),
	)
	for _, view := range movements {
		e.ledger.Publish(ctx, view)
	}
	e.publishStatus(ctx, change, order)
	return order, nil
}

// debit checks every line before recording any exit so the error names the
// first short product.
func (e *Engine) debit(ctx context.Context, tx storage.Tx, order *types.Order) ([]*types.MovementView, error) {
	for _, item := range order.Items {
		product, err := tx.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", order.ID, err)
		}
		if err := stock.RequireAvailable(product, item.Quantity); err != nil {
			return nil, err
		}
	}
	return e.record(ctx, tx, order, types.MovementExit, fmt.Sprintf("order #%d confirmed", order.ID), false)
}

// credit restores every line, including products removed after the order
// was confirmed.
func (e *Engine) credit(ctx context.Context, tx storage.Tx, order *types.Order) ([]*types.MovementView, error) {
	return e.record(ctx, tx, order, types.MovementEntry, fmt.Sprintf("order #%d cancelled", order.ID), true)
}

func (e *Engine) record(ctx context.Context, tx storage.Tx, order *types.Order, kind types.MovementKind, note string, allowRemoved bool) ([]*types.MovementView, error) {
	orderID := order.ID
	now := e.now()
	views := make([]*types.MovementView, 0, len(order.Items))
	for _, item := range order.Items {
		view, err := e.ledger.Record(ctx, tx, ledger.MovementRequest{
			ProductID:    item.ProductID,
			Kind:         kind,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Note:         note,
			Timestamp:    now,
			OrderID:      &orderID,
			AllowRemoved: allowRemoved,
		})
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// applyStatus persists the order with its new status and appends the
// history row.
func (e *Engine) applyStatus(ctx context.Context, tx storage.Tx, order *types.Order, to types.OrderStatus, note string) (*types.StatusChange, error) {
	change := &types.StatusChange{
		OrderID:   order.ID,
		From:      order.Status,
		To:        to,
		Note:      note,
		ChangedAt: e.now(),
	}
	order.Status = to
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := tx.InsertStatusChange(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}

func (e *Engine) publishStatus(ctx context.Context, change *types.StatusChange, order *types.Order) {
	if err := e.publisher.Publish(ctx, events.NewStatusChanged(change, order)); err != nil {
		e.logger.Warn("failed to publish status event",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// Get returns an order with its line items
func (e *Engine) Get(ctx context.Context, orderID int64) (*types.Order, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, orderNotFound("get order", orderID)
	}
	return order, err
}

// History returns an order's status changes, oldest first
func (e *Engine) History(ctx context.Context, orderID int64) ([]*types.StatusChange, error) {
	if _, err := e.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return e.store.ListStatusChanges(ctx, orderID)
}

// List loads every order and applies c
func (e *Engine) List(ctx context.Context, c Criteria) (orders []*types.Order, err error) {
	ctx, span := e.tracer.Start(ctx, "orders.list")
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	all, err := e.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	orders = Filter(all, c)
	span.SetAttributes(attribute.Int("orders.total", len(all)), attribute.Int("orders.matched", len(orders)))
	return orders, nil
}

func loadOrder(ctx context.Context, tx storage.Tx, op string, id int64) (*types.Order, error) {
	order, err := tx.GetOrder(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, orderNotFound(op, id)
	}
	return order, err
}

func loadActiveProduct(ctx context.Context, tx storage.Tx, op string, id int64) (*types.Product, error) {
	product, err := tx.GetActiveProduct(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.NotFoundf(op, "product %d not found", id).WithField("product_id", id)
	}
	return product, err
}

func orderNotFound(op string, id int64) error {
	return types.NotFoundf(op, "order %d not found", id).WithField("order_id", id)
}

func notEditable(op string, order *types.Order) error {
	return types.Conflictf(op, types.ErrNotEditable,
		"order %d is %s; items can only be changed while DRAFT", order.ID, order.Status).
		WithField("order_id", order.ID).WithField("status", string(order.Status))
}
