package orders

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// SortKey orders a listing
type SortKey string

const (
	SortMostRecent   SortKey = "most_recent"
	SortOldest       SortKey = "oldest"
	SortHighestValue SortKey = "highest_value"
	SortLowestValue  SortKey = "lowest_value"
)

// ParseSortKey accepts the sort names; empty means most recent
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case "":
		return SortMostRecent, nil
	case SortMostRecent, SortOldest, SortHighestValue, SortLowestValue:
		return key, nil
	}
	return "", types.Validationf("list orders",
		"unknown sort %q (allowed: most_recent, oldest, highest_value, lowest_value)", s).WithField("field", "sort")
}

// Criteria selects and orders orders. Nil and empty fields don't filter.
type Criteria struct {
	Status        *types.OrderStatus
	CustomerID    *int64
	DistributorID *int64
	CustomerName  string // Case-insensitive substring
	OrderID       *int64
	From          *time.Time // Inclusive
	To            *time.Time // Inclusive
	Sort          SortKey
}

func (c *Criteria) matches(o *types.Order) bool {
	if c.Status != nil && o.Status != *c.Status {
		return false
	}
	if c.CustomerID != nil && o.CustomerID != *c.CustomerID {
		return false
	}
	if c.DistributorID != nil && (o.DistributorID == nil || *o.DistributorID != *c.DistributorID) {
		return false
	}
	if c.OrderID != nil && o.ID != *c.OrderID {
		return false
	}
	if c.CustomerName != "" &&
		!strings.Contains(strings.ToLower(o.Customer.Name), strings.ToLower(c.CustomerName)) {
		return false
	}
	if c.From != nil && o.CreatedAt.Before(*c.From) {
		return false
	}
	if c.To != nil && o.CreatedAt.After(*c.To) {
		return false
	}
	return true
}

// Filter returns the orders matching c in c.Sort order. The input slice is
// not modified.
func Filter(orders []*types.Order, c Criteria) []*types.Order {
	out := make([]*types.Order, 0, len(orders))
	for _, o := range orders {
		if c.matches(o) {
			out = append(out, o)
		}
	}

	byID := func(a, b *types.Order) int { return cmp.Compare(a.ID, b.ID) }
	switch c.Sort {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b *types.Order) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), byID(a, b))
		})
	case SortHighestValue:
		slices.SortStableFunc(out, func(a, b *types.Order) int {
			return cmp.Or(b.Total().Cmp(a.Total()), byID(b, a))
		})
	case SortLowestValue:
		slices.SortStableFunc(out, func(a, b *types.Order) int {
			return cmp.Or(a.Total().Cmp(b.Total()), byID(a, b))
		})
	default:
		slices.SortStableFunc(out, func(a, b *types.Order) int {
			return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), byID(b, a))
		})
	}
	return out
}
