// Package mcp implements the Model Context Protocol (MCP) server for the
// Vortex catalog.
//
// The server exposes the order lifecycle and the stock ledger as tools:
//   - create_draft_order, add_order_item, remove_order_item: build an order
//   - send_order, update_order_status: move it through its lifecycle
//   - list_orders, get_order: query orders and their status history
//   - register_stock_movement, list_movements, get_movement: the ledger
//   - create_product, update_product, delete_product: edit the catalog
//   - list_products, get_product: browse the catalog with live stock
//   - register_contact: add a customer or distributor
//
// Tools are a thin argument-mapping layer; every rule lives in the orders,
// ledger and directory packages.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Tool: update_order_status
//
//	Request:
//	{
//	  "name": "update_order_status",
//	  "arguments": {
//	    "order_id": 12,
//	    "status": "CONFIRMED",
//	    "note": "stock reserved"
//	  }
//	}
//
//	Response:
//	{
//	  "order": {
//	    "id": 12,
//	    "status": "CONFIRMED",
//	    "distributor_notes": "stock reserved",
//	    "total": "87.50",
//	    "items": [...]
//	  }
//	}
//
// # Tool: list_orders
//
// Filters combine; dates accept RFC 3339 or YYYY-MM-DD, and a date-only "to"
// covers the whole day:
//
//	{
//	  "name": "list_orders",
//	  "arguments": {
//	    "status": "SENT",
//	    "customer_name": "souza",
//	    "from": "2026-03-01",
//	    "to": "2026-03-31",
//	    "sort": "highest_value",
//	    "page": 2
//	  }
//	}
//
// # Error Handling
//
// A failed call returns a tool result with isError set. Its content is a
// JSON error object whose code is picked by the error kind:
//   - -32602: validation (bad arguments, unknown status, non-positive quantity)
//   - -32001: not found (order, product, movement, customer, distributor)
//   - -32009: conflict (insufficient stock, invalid transition, order not editable)
//   - -32010: partial application (movement written, stock update failed)
//   - -32603: persistence
//
// The data carries the kind and the structured fields of the error:
//
//	{
//	  "error": {
//	    "code": -32009,
//	    "message": "insufficient stock for product \"Beans\" (id 7): requested 5, available 1",
//	    "data": {
//	      "kind": "conflict",
//	      "product_id": 7,
//	      "product_name": "Beans",
//	      "requested": 5,
//	      "available": 1
//	    }
//	  }
//	}
//
// The same object is sent as structuredContent.
//
// # Logging
//
// The server logs to stderr (stdout is reserved for MCP protocol). Every
// tool call gets a span named mcp.<tool>.
package mcp
