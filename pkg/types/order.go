package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLineItem is one product line of an order
type OrderLineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal // Captured when the item was added
	Name      string          // Display name snapshot
}

// Subtotal is quantity times unit price
func (i *OrderLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root owning its line items
type Order struct {
	ID               int64
	CustomerID       int64
	Customer         Customer
	Items            []OrderLineItem
	Status           OrderStatus
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DistributorID    *int64
	CustomerNotes    string
	DistributorNotes string
}

// NewDraftOrder creates an empty order in the initial editable status
func NewDraftOrder(customerID int64, customer Customer, now time.Time) *Order {
	return &Order{
		CustomerID: customerID,
		Customer:   customer,
		Items:      make([]OrderLineItem, 0),
		Status:     StatusDraft,
		CreatedAt:  now,
	}
}

// IsEditable reports whether items may still be added or removed
func (o *Order) IsEditable() bool {
	return o.Status == StatusDraft
}

// Item returns the line for productID
func (o *Order) Item(productID int64) (*OrderLineItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// AddItem accumulates quantity on the existing line for productID, or appends a new line.
// The existing line keeps its captured price and name.
func (o *Order) AddItem(productID int64, quantity int, unitPrice decimal.Decimal, name string) {
	if item, ok := o.Item(productID); ok {
		item.Quantity += quantity
		return
	}
	o.Items = append(o.Items, OrderLineItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Name:      name,
	})
}

// RemoveItem drops the line for productID and reports whether it existed
func (o *Order) RemoveItem(productID int64) bool {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Total is the sum of line subtotals
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	return total
}

// ItemCount is the number of units across all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
