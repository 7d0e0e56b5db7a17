// Package events publishes domain events after their transaction commits.
//
// Two event types exist: stock.movement_registered for every ledger row and
// order.status_changed for every order transition. Delivery is best effort;
// callers log publish failures instead of returning them, since the state
// change they describe is already durable.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// Event types
const (
	TypeMovementRegistered = "stock.movement_registered"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the envelope written to the broker
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Key        string    `json:"-"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// MovementRegistered is the payload of TypeMovementRegistered
type MovementRegistered struct {
	MovementID  int64  `json:"movement_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Kind        string `json:"kind"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalValue  string `json:"total_value"`
	StockBefore int    `json:"stock_before"`
	StockAfter  int    `json:"stock_after"`
	OrderID     *int64 `json:"order_id,omitempty"`
	Note        string `json:"note,omitempty"`
}

// StatusChanged is the payload of TypeOrderStatusChanged
type StatusChanged struct {
	OrderID    int64  `json:"order_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Note       string `json:"note,omitempty"`
	ItemCount  int    `json:"item_count"`
	OrderTotal string `json:"order_total"`
}

// NewMovementRegistered builds the event for a committed movement
func NewMovementRegistered(view *types.MovementView) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeMovementRegistered,
		OccurredAt: view.Timestamp,
		Key:        strconv.FormatInt(view.ProductID, 10),
		Payload: MovementRegistered{
			MovementID:  view.ID,
			ProductID:   view.ProductID,
			ProductName: view.ProductName,
			Kind:        string(view.Kind),
			Quantity:    view.Quantity,
			UnitPrice:   view.UnitPrice.String(),
			TotalValue:  view.TotalValue().String(),
			StockBefore: view.StockBefore,
			StockAfter:  view.StockAfter,
			OrderID:     view.OrderID,
			Note:        view.Note,
		},
	}
}

// NewStatusChanged builds the event for a committed status change
func NewStatusChanged(change *types.StatusChange, order *types.Order) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeOrderStatusChanged,
		OccurredAt: change.ChangedAt,
		Key:        strconv.FormatInt(change.OrderID, 10),
		Payload: StatusChanged{
			OrderID:    change.OrderID,
			From:       string(change.From),
			To:         string(change.To),
			Note:       change.Note,
			ItemCount:  order.ItemCount(),
			OrderTotal: order.Total().StringFixed(2),
		},
	}
}
