// Package stock defines the product stock accessor shared by the ledger and
// the order engine, and the arithmetic both use to move stock.
package stock

import (
	"context"
	"errors"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// Accessor is the minimal read/mutate contract for a product's quantity.
// Implementations must not touch any field other than the quantity (and its
// update timestamp) in SetProductQuantity.
type Accessor interface {
	// GetActiveProduct returns the product only if it is not soft-deleted
	GetActiveProduct(ctx context.Context, id int64) (*types.Product, error)

	// GetProduct returns the product regardless of its deletion flag
	GetProduct(ctx context.Context, id int64) (*types.Product, error)

	// SetProductQuantity stores newQuantity if the row still holds expected.
	// It returns an error wrapping types.ErrNotFound when the row is gone and
	// types.ErrStockChanged when the quantity moved since it was read.
	SetProductQuantity(ctx context.Context, id int64, expected, newQuantity int) error
}

// RequireAvailable fails with an InsufficientStockError when p holds fewer
// than quantity units
func RequireAvailable(p *types.Product, quantity int) error {
	if quantity > p.Quantity {
		return &types.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.Quantity,
		}
	}
	return nil
}

// NextBalance computes the balance of p after a movement of kind and quantity
func NextBalance(p *types.Product, kind types.MovementKind, quantity int) (int, error) {
	after, err := kind.Apply(p.Quantity, quantity)
	if errors.Is(err, types.ErrInsufficientStock) {
		return p.Quantity, RequireAvailable(p, quantity)
	}
	return after, err
}
