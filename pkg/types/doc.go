// Package types provides the shared domain model for the Vortex catalog core.
//
// This package defines the entities used across the ledger, the order engine,
// the storage layer and the MCP surface: products, stock movements, customers,
// orders and their line items, order statuses, and the structured errors the
// core reports to its callers.
//
// # Core Types
//
// Product carries the live stock quantity. It is soft-deleted rather than
// removed so that historical orders and movements keep resolving:
//
//	product := &types.Product{
//	    Name:      "Coffee beans 1kg",
//	    UnitPrice: decimal.RequireFromString("42.90"),
//	    Quantity:  10,
//	}
//
// StockMovement is one append-only ledger entry. Its before/after balances
// always satisfy the movement kind:
//
//	after, err := types.MovementEntry.Apply(10, 5) // 15
//
// Order is the aggregate that owns its line items. Adding a product that is
// already present accumulates its quantity:
//
//	order.AddItem(7, 2, price, "Coffee beans 1kg")
//	order.AddItem(7, 1, price, "Coffee beans 1kg") // one line, quantity 3
//	total := order.Total()
//
// # Order Status
//
// OrderStatus is a closed set. Legal transitions are held in a single table:
//
//	DRAFT        -> SENT, CANCELLED
//	SENT         -> UNDER_REVIEW, CONFIRMED, REJECTED
//	UNDER_REVIEW -> CONFIRMED, REJECTED
//	CONFIRMED    -> PREPARING, CANCELLED
//	PREPARING    -> DELIVERED, CANCELLED
//
// DELIVERED, CANCELLED and REJECTED are terminal.
//
// # Errors
//
// Every error the core returns can be classified with KindOf into validation,
// not found, conflict, partial application or persistence. Typed errors such as
// InsufficientStockError and TransitionError carry the values a caller needs to
// render a precise message, and match the package sentinels with errors.Is.
package types
