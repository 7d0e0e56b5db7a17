// Package ledger records stock movements.
//
// Every stock change, manual or caused by an order, goes through Record: the
// movement row is inserted with its before/after balances and the product's
// quantity is moved from before to after with a conditional update, both in
// the caller's transaction. Movements are never updated or deleted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dshills/vortex-catalog/internal/events"
	"github.com/dshills/vortex-catalog/internal/observability"
	"github.com/dshills/vortex-catalog/internal/stock"
	"github.com/dshills/vortex-catalog/internal/storage"
	"github.com/dshills/vortex-catalog/pkg/types"
)

const opRegister = "register movement"

// MovementRequest describes a stock change to record
type MovementRequest struct {
	ProductID int64
	Kind      types.MovementKind
	Quantity  int
	UnitPrice decimal.Decimal
	Note      string
	Timestamp time.Time // Zero means now
	OrderID   *int64

	// AllowRemoved lets the movement land on a soft-deleted product. Order
	// cancellations set it so stock debited before the removal comes back.
	AllowRemoved bool
}

// Validate checks the request fields that don't need the product
func (r *MovementRequest) Validate() error {
	if !r.Kind.Valid() {
		return types.Validationf(opRegister, "invalid movement kind %q (allowed: entry, exit)", string(r.Kind)).
			WithField("field", "kind")
	}
	if r.Quantity <= 0 {
		return types.Validationf(opRegister, "quantity must be greater than zero, got %d", r.Quantity).
			WithField("field", "quantity")
	}
	if r.UnitPrice.IsNegative() {
		return types.Validationf(opRegister, "unit price cannot be negative").
			WithField("field", "unit_price")
	}
	return nil
}

// Options configures a Ledger. Zero values get no-op defaults.
type Options struct {
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Publisher events.Publisher
	Clock     func() time.Time
}

// Ledger registers and queries stock movements
type Ledger struct {
	store     storage.Storage
	logger    *zap.Logger
	tracer    trace.Tracer
	publisher events.Publisher
	now       func() time.Time
}

// New creates a Ledger over store
func New(store storage.Storage, opts Options) *Ledger {
	l := &Ledger{
		store:     store,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		publisher: opts.Publisher,
		now:       opts.Clock,
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer("ledger")
	}
	if l.publisher == nil {
		l.publisher = events.NopPublisher{}
	}
	if l.now == nil {
		l.now = func() time.Time { return time.Now().UTC() }
	}
	return l
}

// Register records a manual movement in its own transaction and publishes
// the resulting event after commit.
func (l *Ledger) Register(ctx context.Context, req MovementRequest) (view *types.MovementView, err error) {
	ctx, span := l.tracer.Start(ctx, "ledger.register")
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	span.SetAttributes(
		attribute.Int64("product.id", req.ProductID),
		attribute.String("movement.kind", string(req.Kind)),
		attribute.Int("movement.quantity", req.Quantity),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	err = storage.RunInTx(ctx, l.store, func(tx storage.Tx) error {
		var recErr error
		view, recErr = l.Record(ctx, tx, req)
		return recErr
	})
	if err != nil {
		l.logFailure(err, req)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("movement.id", view.ID))
	l.logger.Info("stock movement registered",
		zap.Int64("movement_id", view.ID),
		zap.Int64("product_id", view.ProductID),
		zap.String("kind", string(view.Kind)),
		zap.Int("quantity", view.Quantity),
		zap.Int("stock_after", view.StockAfter),
	)
	l.Publish(ctx, view)
	return view, nil
}

// Record applies req inside tx. The caller owns the transaction and must
// call Publish for the returned view once it commits.
func (l *Ledger) Record(ctx context.Context, tx storage.Tx, req MovementRequest) (*types.MovementView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := tx.GetProduct(ctx, req.ProductID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.NotFoundf(opRegister, "product %d not found, cannot register movement", req.ProductID).
			WithField("product_id", req.ProductID)
	}
	if err != nil {
		return nil, err
	}
	if product.Deleted && !req.AllowRemoved {
		return nil, types.Conflictf(opRegister, types.ErrProductRemoved,
			"product %d was removed and cannot receive movements", product.ID).
			WithField("product_id", product.ID)
	}

	after, err := stock.NextBalance(product, req.Kind, req.Quantity)
	if err != nil {
		return nil, err
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = l.now()
	}
	movement := &types.StockMovement{
		ProductID:   product.ID,
		Kind:        req.Kind,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Timestamp:   timestamp,
		Note:        req.Note,
		StockBefore: product.Quantity,
		StockAfter:  after,
		OrderID:     req.OrderID,
	}
	if err := tx.InsertMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to record movement for product %d: %w", product.ID, err)
	}

	if err := tx.SetProductQuantity(ctx, product.ID, product.Quantity, after); err != nil {
		if errors.Is(err, types.ErrStockChanged) {
			return nil, types.Conflictf(opRegister, err,
				"stock of product %d changed while recording the movement, retry", product.ID).
				WithField("product_id", product.ID)
		}
		return nil, &types.PartialApplicationError{
			Op:         opRegister,
			MovementID: movement.ID,
			ProductID:  product.ID,
			Step:       "product stock update",
			Reverted:   true,
			Err:        err,
		}
	}

	return &types.MovementView{
		StockMovement: *movement,
		ProductName:   product.Name,
		ProductActive: !product.Deleted,
	}, nil
}

// Publish emits the movement event. Failures are logged, not returned.
func (l *Ledger) Publish(ctx context.Context, view *types.MovementView) {
	if err := l.publisher.Publish(ctx, events.NewMovementRegistered(view)); err != nil {
		l.logger.Warn("failed to publish movement event",
			zap.Int64("movement_id", view.ID),
			zap.Error(err),
		)
	}
}

// Get returns a movement with its product name and active flag
func (l *Ledger) Get(ctx context.Context, id int64) (*types.MovementView, error) {
	view, err := l.store.GetMovement(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.NotFoundf("get movement", "movement %d not found", id).WithField("movement_id", id)
	}
	return view, err
}

// List returns every movement, most recent first
func (l *Ledger) List(ctx context.Context) ([]*types.MovementView, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.list")
	defer span.End()

	views, err := l.store.ListMovements(ctx)
	observability.RecordResult(span, err)
	return views, err
}

// ListByProduct returns a product's movements, most recent first. The product
// must exist, though it may be soft-deleted.
func (l *Ledger) ListByProduct(ctx context.Context, productID int64) ([]*types.MovementView, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.list_by_product",
		trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	if _, err := l.store.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = types.NotFoundf("list movements", "product %d not found", productID).WithField("product_id", productID)
		}
		observability.RecordResult(span, err)
		return nil, err
	}

	views, err := l.store.ListMovementsByProduct(ctx, productID)
	observability.RecordResult(span, err)
	return views, err
}

func (l *Ledger) logFailure(err error, req MovementRequest) {
	fields := []zap.Field{
		zap.Int64("product_id", req.ProductID),
		zap.String("kind", string(req.Kind)),
		zap.Int("quantity", req.Quantity),
		zap.String("error_kind", string(types.KindOf(err))),
		zap.Error(err),
	}
	var partial *types.PartialApplicationError
	if errors.As(err, &partial) {
		l.logger.Error("stock movement partially applied", append(fields,
			zap.Int64("movement_id", partial.MovementID),
			zap.Bool("reverted", partial.Reverted),
		)...)
		return
	}
	l.logger.Info("stock movement rejected", fields...)
}
