package types

import (
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusDraft       OrderStatus = "DRAFT"
	StatusSent        OrderStatus = "SENT"
	StatusUnderReview OrderStatus = "UNDER_REVIEW"
	StatusConfirmed   OrderStatus = "CONFIRMED"
	StatusPreparing   OrderStatus = "PREPARING"
	StatusDelivered   OrderStatus = "DELIVERED"
	StatusCancelled   OrderStatus = "CANCELLED"
	StatusRejected    OrderStatus = "REJECTED"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []OrderStatus{
	StatusDraft, StatusSent, StatusUnderReview, StatusConfirmed,
	StatusPreparing, StatusDelivered, StatusCancelled, StatusRejected,
}

// transitions is the complete table of legal status changes.
// Statuses mapped to nil are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusDraft:       {StatusSent, StatusCancelled},
	StatusSent:        {StatusUnderReview, StatusConfirmed, StatusRejected},
	StatusUnderReview: {StatusConfirmed, StatusRejected},
	StatusConfirmed:   {StatusPreparing, StatusCancelled},
	StatusPreparing:   {StatusDelivered, StatusCancelled},
	StatusDelivered:   nil,
	StatusCancelled:   nil,
	StatusRejected:    nil,
}

// ParseOrderStatus accepts a status name case-insensitively
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", Validationf("status", "unknown order status %q", s).WithField("status", s)
	}
	return status, nil
}

// Valid reports whether s is a recognized status
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// AllowedTargets returns a copy of the statuses reachable from s
func (s OrderStatus) AllowedTargets() []OrderStatus {
	targets := transitions[s]
	out := make([]OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether s -> to is in the table
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a TransitionError when s -> to is not allowed
func (s OrderStatus) CheckTransition(to OrderStatus) error {
	if s.CanTransition(to) {
		return nil
	}
	return &TransitionError{From: s, To: to, Allowed: s.AllowedTargets()}
}

// StatusChange is one entry of an order's status history
type StatusChange struct {
	ID        int64
	OrderID   int64
	From      OrderStatus
	To        OrderStatus
	Note      string
	ChangedAt time.Time
}
