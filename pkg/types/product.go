package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with its live stock quantity
type Product struct {
	ID          int64
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
	ImageRef    string
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the product invariants
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("product", "product name is required")
	}
	if p.UnitPrice.IsNegative() {
		return Validationf("product", "unit price cannot be negative")
	}
	if p.Quantity < 0 {
		return Validationf("product", "quantity cannot be negative")
	}
	return nil
}

// Active reports whether the product can still be sold and moved
func (p *Product) Active() bool {
	return !p.Deleted
}

// MovementKind is the direction of a stock movement
type MovementKind string

const (
	MovementEntry MovementKind = "entry"
	MovementExit  MovementKind = "exit"
)

// ParseMovementKind accepts the wire values case-insensitively
func ParseMovementKind(s string) (MovementKind, error) {
	switch MovementKind(strings.ToLower(strings.TrimSpace(s))) {
	case MovementEntry:
		return MovementEntry, nil
	case MovementExit:
		return MovementExit, nil
	}
	return "", Validationf("movement", "invalid movement kind %q (allowed: entry, exit)", s)
}

// Valid reports whether k is a known movement kind
func (k MovementKind) Valid() bool {
	return k == MovementEntry || k == MovementExit
}

// Apply returns the balance after moving quantity units from before.
// An exit that would drive the balance negative returns ErrInsufficientStock.
func (k MovementKind) Apply(before, quantity int) (int, error) {
	switch k {
	case MovementEntry:
		return before + quantity, nil
	case MovementExit:
		if quantity > before {
			return before, ErrInsufficientStock
		}
		return before - quantity, nil
	}
	return before, Validationf("movement", "invalid movement kind %q", string(k))
}

// StockMovement is one immutable ledger entry
type StockMovement struct {
	ID          int64
	ProductID   int64
	Kind        MovementKind
	Quantity    int
	UnitPrice   decimal.Decimal
	Timestamp   time.Time
	Note        string
	StockBefore int
	StockAfter  int
	OrderID     *int64 // Set when produced by an order transition
}

// TotalValue is quantity times unit price
func (m *StockMovement) TotalValue() decimal.Decimal {
	return m.UnitPrice.Mul(decimal.NewFromInt(int64(m.Quantity)))
}

// Validate checks the movement's inputs and its balance invariant
func (m *StockMovement) Validate() error {
	if !m.Kind.Valid() {
		return Validationf("movement", "invalid movement kind %q (allowed: entry, exit)", string(m.Kind))
	}
	if m.Quantity <= 0 {
		return Validationf("movement", "quantity must be greater than zero")
	}
	if m.UnitPrice.IsNegative() {
		return Validationf("movement", "unit price cannot be negative")
	}
	if m.StockAfter < 0 {
		return Validationf("movement", "stock after movement cannot be negative")
	}
	want, err := m.Kind.Apply(m.StockBefore, m.Quantity)
	if err != nil || want != m.StockAfter {
		return Validationf("movement", "inconsistent balance for %s: before %d, quantity %d, after %d",
			m.Kind, m.StockBefore, m.Quantity, m.StockAfter)
	}
	return nil
}

// MovementView is a movement paired with its product's display data
type MovementView struct {
	StockMovement
	ProductName   string
	ProductActive bool
}
