package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func idProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     1,
	}
}

func noteProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

var statusEnum = []string{"DRAFT", "SENT", "UNDER_REVIEW", "CONFIRMED", "PREPARING", "DELIVERED", "CANCELLED", "REJECTED"}

// createDraftOrderTool returns the tool definition for create_draft_order
func createDraftOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_draft_order",
		Description: "Start an empty DRAFT order for a registered customer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"customer_id": idProperty("Directory id of the customer placing the order"),
			},
			Required: []string{"customer_id"},
		},
	}
}

// addOrderItemTool returns the tool definition for add_order_item
func addOrderItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_order_item",
		Description: "Add units of a product to a DRAFT order. Adding a product already on the order increases its quantity.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id":   idProperty("Order to edit"),
				"product_id": idProperty("Product to add"),
				"quantity": map[string]interface{}{
					"type":        "integer",
					"description": "Units to add; the line total may not exceed current stock",
					"minimum":     1,
				},
			},
			Required: []string{"order_id", "product_id", "quantity"},
		},
	}
}

// removeOrderItemTool returns the tool definition for remove_order_item
func removeOrderItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_order_item",
		Description: "Remove a product's line from a DRAFT order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id":   idProperty("Order to edit"),
				"product_id": idProperty("Product whose line is removed"),
			},
			Required: []string{"order_id", "product_id"},
		},
	}
}

// sendOrderTool returns the tool definition for send_order
func sendOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "send_order",
		Description: "Send a DRAFT order to a distributor after re-checking stock for every line",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id":       idProperty("Order to send"),
				"distributor_id": idProperty("Directory id of the distributor"),
				"note":           noteProperty("Customer note attached to the order"),
			},
			Required: []string{"order_id", "distributor_id"},
		},
	}
}

// updateOrderStatusTool returns the tool definition for update_order_status
func updateOrderStatusTool() mcp.Tool {
	return mcp.Tool{
		Name: "update_order_status",
		Description: "Move an order to a new status. Confirming debits stock for every line; " +
			"cancelling a confirmed or preparing order restores it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": idProperty("Order to update"),
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Target status",
					"enum":        statusEnum,
				},
				"note": noteProperty("Distributor note stored with the order and its history"),
			},
			Required: []string{"order_id", "status"},
		},
	}
}

// listOrdersTool returns the tool definition for list_orders
func listOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_orders",
		Description: "List orders with optional filters, sorting and pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Only orders in this status",
					"enum":        statusEnum,
				},
				"customer_id":    idProperty("Only orders of this customer"),
				"distributor_id": idProperty("Only orders sent to this distributor"),
				"customer_name": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the customer name",
				},
				"order_id": idProperty("Only this order"),
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Created at or after (RFC 3339 timestamp or YYYY-MM-DD)",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "Created at or before (RFC 3339 timestamp, or YYYY-MM-DD for the whole day)",
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Result order",
					"enum":        []string{"most_recent", "oldest", "highest_value", "lowest_value"},
					"default":     "most_recent",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number, clamped to the available pages",
					"default":     1,
				},
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Orders per page",
					"default":     10,
				},
			},
		},
	}
}

// getOrderTool returns the tool definition for get_order
func getOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_order",
		Description: "Get an order with its line items, total and status history",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": idProperty("Order to fetch"),
			},
			Required: []string{"order_id"},
		},
	}
}

// registerStockMovementTool returns the tool definition for register_stock_movement
func registerStockMovementTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_stock_movement",
		Description: "Record a manual stock entry or exit for a product",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"product_id": idProperty("Product whose stock moves"),
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "entry adds stock, exit removes it",
					"enum":        []string{"entry", "exit"},
				},
				"quantity": map[string]interface{}{
					"type":        "integer",
					"description": "Units moved",
					"minimum":     1,
				},
				"unit_price": map[string]interface{}{
					"type":        "string",
					"description": "Unit price of the movement as a decimal string, e.g. \"12.50\"",
				},
				"note": noteProperty("Free-form note"),
				"timestamp": map[string]interface{}{
					"type":        "string",
					"description": "When the movement happened (RFC 3339); defaults to now",
				},
			},
			Required: []string{"product_id", "kind", "quantity", "unit_price"},
		},
	}
}

// listMovementsTool returns the tool definition for list_movements
func listMovementsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_movements",
		Description: "List stock movements, most recent first, optionally for one product",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"product_id": idProperty("Only movements of this product, including removed products"),
			},
		},
	}
}

// getMovementTool returns the tool definition for get_movement
func getMovementTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_movement",
		Description: "Get one stock movement with its product name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"movement_id": idProperty("Movement to fetch"),
			},
			Required: []string{"movement_id"},
		},
	}
}

// createProductTool returns the tool definition for create_product
func createProductTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_product",
		Description: "Add a product to the catalog. Opening stock is recorded as an entry movement.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Product name",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Product description",
				},
				"unit_price": map[string]interface{}{
					"type":        "string",
					"description": "Sale price as a decimal string",
				},
				"quantity": map[string]interface{}{
					"type":        "integer",
					"description": "Opening stock",
					"minimum":     0,
					"default":     0,
				},
				"image_ref": map[string]interface{}{
					"type":        "string",
					"description": "Reference to the product image",
				},
			},
			Required: []string{"name", "unit_price"},
		},
	}
}

// deleteProductTool returns the tool definition for delete_product
func deleteProductTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_product",
		Description: "Remove a product from the catalog. Its movement history is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"product_id": idProperty("Product to remove"),
			},
			Required: []string{"product_id"},
		},
	}
}

// registerContactTool returns the tool definition for register_contact
func registerContactTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_contact",
		Description: "Register a customer or distributor in the directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"role": map[string]interface{}{
					"type": "string",
					"enum": []string{"customer", "distributor"},
				},
				"name":  map[string]interface{}{"type": "string"},
				"phone": map[string]interface{}{"type": "string", "description": "Required for customers"},
				"email": map[string]interface{}{"type": "string"},
				"address": map[string]interface{}{
					"type":        "object",
					"description": "Optional; when given, every field except complement is required",
					"properties": map[string]interface{}{
						"street":       map[string]interface{}{"type": "string"},
						"number":       map[string]interface{}{"type": "string"},
						"neighborhood": map[string]interface{}{"type": "string"},
						"city":         map[string]interface{}{"type": "string"},
						"state":        map[string]interface{}{"type": "string"},
						"complement":   map[string]interface{}{"type": "string"},
					},
				},
			},
			Required: []string{"role", "name"},
		},
	}
}

// listProductsTool returns the tool definition for list_products
func listProductsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products with their live stock, ordered by name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"include_removed": map[string]interface{}{
					"type":        "boolean",
					"description": "Also list removed products",
					"default":     false,
				},
			},
		},
	}
}

// getProductTool returns the tool definition for get_product
func getProductTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_product",
		Description: "Get a product with its live stock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"product_id": idProperty("Product to fetch"),
			},
			Required: []string{"product_id"},
		},
	}
}

// updateProductTool returns the tool definition for update_product
func updateProductTool() mcp.Tool {
	return mcp.Tool{
		Name: "update_product",
		Description: "Edit a product's name, description, price or image. " +
			"Stock is changed only through register_stock_movement.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"product_id": idProperty("Product to edit"),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "New product name",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "New description",
				},
				"unit_price": map[string]interface{}{
					"type":        "string",
					"description": "New sale price as a decimal string",
				},
				"image_ref": map[string]interface{}{
					"type":        "string",
					"description": "New image reference",
				},
			},
			Required: []string{"product_id"},
		},
	}
}
