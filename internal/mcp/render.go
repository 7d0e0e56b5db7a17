package mcp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/vortex-catalog/internal/orders"
	"github.com/dshills/vortex-catalog/pkg/types"
)

const timeLayout = time.RFC3339

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func renderProduct(p *types.Product) map[string]interface{} {
	m := map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"unit_price":  p.UnitPrice.StringFixed(2),
		"quantity":    p.Quantity,
		"active":      p.Active(),
	}
	if p.ImageRef != "" {
		m["image_ref"] = p.ImageRef
	}
	return m
}

func renderProducts(products []*types.Product) []map[string]interface{} {
	out := make([]map[string]interface{}, len(products))
	for i, p := range products {
		out[i] = renderProduct(p)
	}
	return out
}

func renderMovement(v *types.MovementView) map[string]interface{} {
	m := map[string]interface{}{
		"id":           v.ID,
		"product_id":   v.ProductID,
		"product_name": v.ProductName,
		"active":       v.ProductActive,
		"kind":         string(v.Kind),
		"quantity":     v.Quantity,
		"unit_price":   v.UnitPrice.StringFixed(2),
		"total_value":  v.TotalValue().StringFixed(2),
		"stock_before": v.StockBefore,
		"stock_after":  v.StockAfter,
		"timestamp":    v.Timestamp.Format(timeLayout),
	}
	if v.Note != "" {
		m["note"] = v.Note
	}
	if v.OrderID != nil {
		m["order_id"] = *v.OrderID
	}
	return m
}

func renderMovements(views []*types.MovementView) []map[string]interface{} {
	out := make([]map[string]interface{}, len(views))
	for i, v := range views {
		out[i] = renderMovement(v)
	}
	return out
}

func renderCustomer(c types.Customer) map[string]interface{} {
	m := map[string]interface{}{
		"name":  c.Name,
		"phone": c.Phone,
	}
	if c.Email != "" {
		m["email"] = c.Email
	}
	if c.Address != nil {
		m["address"] = c.Address
	}
	return m
}

func renderOrder(o *types.Order) map[string]interface{} {
	items := make([]map[string]interface{}, len(o.Items))
	for i, item := range o.Items {
		items[i] = map[string]interface{}{
			"product_id": item.ProductID,
			"name":       item.Name,
			"quantity":   item.Quantity,
			"unit_price": item.UnitPrice.StringFixed(2),
			"subtotal":   item.Subtotal().StringFixed(2),
		}
	}

	m := map[string]interface{}{
		"id":          o.ID,
		"customer_id": o.CustomerID,
		"customer":    renderCustomer(o.Customer),
		"status":      string(o.Status),
		"items":       items,
		"item_count":  o.ItemCount(),
		"total":       o.Total().StringFixed(2),
		"created_at":  o.CreatedAt.Format(timeLayout),
	}
	if o.UpdatedAt != nil {
		m["updated_at"] = o.UpdatedAt.Format(timeLayout)
	}
	if o.DistributorID != nil {
		m["distributor_id"] = *o.DistributorID
	}
	if o.CustomerNotes != "" {
		m["customer_notes"] = o.CustomerNotes
	}
	if o.DistributorNotes != "" {
		m["distributor_notes"] = o.DistributorNotes
	}
	return m
}

// renderOrderSummary is the list form of an order, without line items
func renderOrderSummary(o *types.Order) map[string]interface{} {
	m := map[string]interface{}{
		"id":            o.ID,
		"customer_id":   o.CustomerID,
		"customer_name": o.Customer.Name,
		"status":        string(o.Status),
		"item_count":    o.ItemCount(),
		"total":         o.Total().StringFixed(2),
		"created_at":    o.CreatedAt.Format(timeLayout),
	}
	if o.DistributorID != nil {
		m["distributor_id"] = *o.DistributorID
	}
	return m
}

func renderHistory(changes []*types.StatusChange) []map[string]interface{} {
	out := make([]map[string]interface{}, len(changes))
	for i, c := range changes {
		entry := map[string]interface{}{
			"from":       string(c.From),
			"to":         string(c.To),
			"changed_at": c.ChangedAt.Format(timeLayout),
		}
		if c.Note != "" {
			entry["note"] = c.Note
		}
		out[i] = entry
	}
	return out
}

func renderOrderPage(page orders.Page[*types.Order]) map[string]interface{} {
	items := make([]map[string]interface{}, len(page.Items))
	for i, o := range page.Items {
		items[i] = renderOrderSummary(o)
	}
	return map[string]interface{}{
		"orders": items,
		"pagination": map[string]interface{}{
			"page":         page.Page,
			"page_size":    page.PageSize,
			"total_items":  page.TotalItems,
			"total_pages":  page.TotalPages,
			"has_next":     page.HasNext,
			"has_previous": page.HasPrevious,
		},
	}
}

func renderContact(e *types.DirectoryEntry) map[string]interface{} {
	m := map[string]interface{}{
		"id":    e.ID,
		"name":  e.Name,
		"phone": e.Phone,
		"role":  string(e.Role),
	}
	if e.Email != "" {
		m["email"] = e.Email
	}
	if e.Address != nil {
		m["address"] = e.Address
	}
	return m
}
