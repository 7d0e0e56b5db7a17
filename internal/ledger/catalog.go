package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dshills/vortex-catalog/internal/observability"
	"github.com/dshills/vortex-catalog/internal/storage"
	"github.com/dshills/vortex-catalog/pkg/types"
)

const openingNote = "opening stock"

// AddProduct creates a catalog product. A positive p.Quantity is booked as
// an ENTRY movement in the same transaction, so the product's stock is
// backed by the ledger from its first row. The returned view is nil when
// the product starts empty.
func (l *Ledger) AddProduct(ctx context.Context, p *types.Product) (view *types.MovementView, err error) {
	ctx, span := l.tracer.Start(ctx, "ledger.add_product")
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	opening := p.Quantity
	err = storage.RunInTx(ctx, l.store, func(tx storage.Tx) error {
		p.Quantity = 0
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		if opening == 0 {
			return nil
		}
		var recErr error
		view, recErr = l.Record(ctx, tx, MovementRequest{
			ProductID: p.ID,
			Kind:      types.MovementEntry,
			Quantity:  opening,
			UnitPrice: p.UnitPrice,
			Note:      openingNote,
		})
		return recErr
	})
	if err != nil {
		p.ID = 0
		p.Quantity = opening
		return nil, err
	}

	p.Quantity = opening
	span.SetAttributes(attribute.Int64("product.id", p.ID))
	l.logger.Info("product added",
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Int("opening_stock", opening),
	)
	if view != nil {
		l.Publish(ctx, view)
	}
	return view, nil
}

// RemoveProduct soft-deletes a product. Its movements and order lines keep
// resolving its name; new movements are refused.
func (l *Ledger) RemoveProduct(ctx context.Context, id int64) error {
	err := l.store.SoftDeleteProduct(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return types.NotFoundf("remove product", "product %d not found", id).WithField("product_id", id)
	}
	if err != nil {
		return err
	}
	l.logger.Info("product removed", zap.Int64("product_id", id))
	return nil
}

// ProductUpdate lists the product fields to change; nil fields are kept.
// Stock is not editable here: it only moves through movements.
type ProductUpdate struct {
	ID          int64
	Name        *string
	Description *string
	UnitPrice   *decimal.Decimal
	ImageRef    *string
}

func (u ProductUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.UnitPrice == nil && u.ImageRef == nil
}

// UpdateProduct edits the name, description, price or image of an active
// product and returns the stored result.
func (l *Ledger) UpdateProduct(ctx context.Context, u ProductUpdate) (product *types.Product, err error) {
	ctx, span := l.tracer.Start(ctx, "ledger.update_product")
	defer span.End()
	defer func() { observability.RecordResult(span, err) }()
	span.SetAttributes(attribute.Int64("product.id", u.ID))

	if u.empty() {
		return nil, types.Validationf("update product", "nothing to update")
	}

	err = storage.RunInTx(ctx, l.store, func(tx storage.Tx) error {
		current, err := tx.GetProduct(ctx, u.ID)
		if errors.Is(err, types.ErrNotFound) {
			return types.NotFoundf("update product", "product %d not found", u.ID).WithField("product_id", u.ID)
		}
		if err != nil {
			return err
		}
		if current.Deleted {
			return types.Conflictf("update product", types.ErrProductRemoved,
				"product %d was removed and cannot be edited", u.ID).WithField("product_id", u.ID)
		}

		if u.Name != nil {
			current.Name = strings.TrimSpace(*u.Name)
		}
		if u.Description != nil {
			current.Description = *u.Description
		}
		if u.UnitPrice != nil {
			current.UnitPrice = *u.UnitPrice
		}
		if u.ImageRef != nil {
			current.ImageRef = *u.ImageRef
		}
		if err := tx.UpdateProduct(ctx, current); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("product updated",
		zap.Int64("product_id", product.ID),
		zap.String("unit_price", product.UnitPrice.String()),
	)
	return product, nil
}

// GetProduct returns a product with its live stock, removed or not
func (l *Ledger) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	product, err := l.store.GetProduct(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, types.NotFoundf("get product", "product %d not found", id).WithField("product_id", id)
	}
	return product, err
}

// ListProducts returns the catalog ordered by name. Removed products are
// left out unless includeRemoved is set.
func (l *Ledger) ListProducts(ctx context.Context, includeRemoved bool) ([]*types.Product, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.list_products")
	defer span.End()

	products, err := l.store.ListProducts(ctx, includeRemoved)
	observability.RecordResult(span, err)
	return products, err
}
