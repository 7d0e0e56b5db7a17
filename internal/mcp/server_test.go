package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vortex-catalog/internal/directory"
	"github.com/dshills/vortex-catalog/internal/ledger"
	"github.com/dshills/vortex-catalog/internal/orders"
	"github.com/dshills/vortex-catalog/internal/storage"
	"github.com/dshills/vortex-catalog/pkg/types"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := directory.New(store, 16)
	l := ledger.New(store, ledger.Options{})
	engine := orders.NewEngine(store, dir, l, orders.Options{})
	return NewServer(Services{Orders: engine, Ledger: l, Directory: dir}, Options{PageSize: 2})
}

func call(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := handler(context.Background(), request)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func mustCall(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := call(t, handler, args)
	require.NoError(t, err)
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func id(t *testing.T, obj interface{}) float64 {
	t.Helper()
	m, ok := obj.(map[string]interface{})
	require.True(t, ok)
	v, ok := m["id"].(float64)
	require.True(t, ok)
	return v
}

// seed registers a customer, a distributor and one product with stock
func seed(t *testing.T, s *Server, stock float64) (customer, distributor, product float64) {
	t.Helper()
	out := mustCall(t, s.handleRegisterContact, map[string]interface{}{
		"role": "customer", "name": "Ana Souza", "phone": "555-0101",
	})
	customer = id(t, out["contact"])
	out = mustCall(t, s.handleRegisterContact, map[string]interface{}{
		"role": "distributor", "name": "North Supply",
	})
	distributor = id(t, out["contact"])
	out = mustCall(t, s.handleCreateProduct, map[string]interface{}{
		"name": "Beans", "unit_price": "3.50", "quantity": stock,
	})
	product = id(t, out["product"])
	return customer, distributor, product
}

func TestOrderFlow(t *testing.T) {
	s := setupServer(t)
	customer, distributor, product := seed(t, s, 10)

	out := mustCall(t, s.handleCreateDraftOrder, map[string]interface{}{"customer_id": customer})
	orderID := id(t, out["order"])

	out = mustCall(t, s.handleAddOrderItem, map[string]interface{}{
		"order_id": orderID, "product_id": product, "quantity": 4,
	})
	order := out["order"].(map[string]interface{})
	assert.Equal(t, "14.00", order["total"])

	mustCall(t, s.handleSendOrder, map[string]interface{}{
		"order_id": orderID, "distributor_id": distributor, "note": "ring twice",
	})
	out = mustCall(t, s.handleUpdateOrderStatus, map[string]interface{}{
		"order_id": orderID, "status": "confirmed",
	})
	assert.Equal(t, "CONFIRMED", out["order"].(map[string]interface{})["status"])

	out = mustCall(t, s.handleListMovements, map[string]interface{}{"product_id": product})
	// Opening stock plus the confirmation exit
	assert.Equal(t, float64(2), out["count"])
	latest := out["movements"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "exit", latest["kind"])
	assert.Equal(t, float64(6), latest["stock_after"])
	assert.Equal(t, orderID, latest["order_id"])

	out = mustCall(t, s.handleGetOrder, map[string]interface{}{"order_id": orderID})
	history := out["history"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, "CONFIRMED", history[1].(map[string]interface{})["to"])
	assert.ElementsMatch(t, []interface{}{"PREPARING", "CANCELLED"}, out["allowed"])
}

func TestErrorMapping(t *testing.T) {
	s := setupServer(t)
	customer, _, product := seed(t, s, 3)

	out := mustCall(t, s.handleCreateDraftOrder, map[string]interface{}{"customer_id": customer})
	orderID := id(t, out["order"])

	t.Run("missing argument", func(t *testing.T) {
		_, err := call(t, s.handleAddOrderItem, map[string]interface{}{"order_id": orderID})
		mcpErr := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, "product_id", mcpErr.Data.(map[string]interface{})["param"])
	})

	t.Run("fractional id", func(t *testing.T) {
		_, err := call(t, s.handleGetOrder, map[string]interface{}{"order_id": 1.5})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("validation from the core", func(t *testing.T) {
		_, err := call(t, s.handleAddOrderItem, map[string]interface{}{
			"order_id": orderID, "product_id": product, "quantity": 0,
		})
		mcpErr := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, string(types.KindValidation), mcpErr.Data.(map[string]interface{})["kind"])
	})

	t.Run("not found", func(t *testing.T) {
		_, err := call(t, s.handleGetMovement, map[string]interface{}{"movement_id": 999})
		requireMCPError(t, err, ErrorCodeNotFound)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		_, err := call(t, s.handleAddOrderItem, map[string]interface{}{
			"order_id": orderID, "product_id": product, "quantity": 5,
		})
		mcpErr := requireMCPError(t, err, ErrorCodeConflict)
		data := mcpErr.Data.(map[string]interface{})
		assert.Equal(t, 5, data["requested"])
		assert.Equal(t, 3, data["available"])
	})

	t.Run("invalid transition", func(t *testing.T) {
		_, err := call(t, s.handleUpdateOrderStatus, map[string]interface{}{
			"order_id": orderID, "status": "DELIVERED",
		})
		mcpErr := requireMCPError(t, err, ErrorCodeConflict)
		assert.Equal(t, []string{"SENT", "CANCELLED"}, mcpErr.Data.(map[string]interface{})["allowed"])
	})

	t.Run("send requires a distributor role", func(t *testing.T) {
		_, err := call(t, s.handleSendOrder, map[string]interface{}{
			"order_id": orderID, "distributor_id": customer,
		})
		requireMCPError(t, err, ErrorCodeNotFound)
	})

	t.Run("exit beyond stock", func(t *testing.T) {
		_, err := call(t, s.handleRegisterStockMovement, map[string]interface{}{
			"product_id": product, "kind": "exit", "quantity": 4, "unit_price": "3.50",
		})
		requireMCPError(t, err, ErrorCodeConflict)
	})

	t.Run("unknown movement kind", func(t *testing.T) {
		_, err := call(t, s.handleRegisterStockMovement, map[string]interface{}{
			"product_id": product, "kind": "transfer", "quantity": 1, "unit_price": "1",
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestToMCPError_Partial(t *testing.T) {
	err := toMCPError(&types.PartialApplicationError{
		Op: "register movement", MovementID: 4, ProductID: 2, Step: "product stock update",
		Reverted: true, Err: errors.New("disk full"),
	})
	mcpErr := requireMCPError(t, err, ErrorCodePartialApplication)
	data := mcpErr.Data.(map[string]interface{})
	assert.Equal(t, int64(4), data["movement_id"])
	assert.Equal(t, true, data["reverted"])

	requireMCPError(t, toMCPError(errors.New("database is locked")), ErrorCodeInternalError)
}

func TestListOrders(t *testing.T) {
	s := setupServer(t)
	customer, _, _ := seed(t, s, 1)
	for i := 0; i < 3; i++ {
		mustCall(t, s.handleCreateDraftOrder, map[string]interface{}{"customer_id": customer})
	}

	out := mustCall(t, s.handleListOrders, nil)
	pagination := out["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total_items"])
	assert.Equal(t, float64(2), pagination["total_pages"])
	assert.Equal(t, true, pagination["has_next"])
	assert.Len(t, out["orders"], 2)

	out = mustCall(t, s.handleListOrders, map[string]interface{}{"page": 5, "status": "draft"})
	pagination = out["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Len(t, out["orders"], 1)

	out = mustCall(t, s.handleListOrders, map[string]interface{}{"customer_name": "nobody"})
	assert.Empty(t, out["orders"])

	t.Run("bad arguments", func(t *testing.T) {
		for _, args := range []map[string]interface{}{
			{"status": "SHIPPED"},
			{"sort": "cheapest"},
			{"from": "yesterday"},
			{"from": "2026-03-05", "to": "2026-03-01"},
		} {
			_, err := call(t, s.handleListOrders, args)
			requireMCPError(t, err, ErrorCodeInvalidParams)
		}
	})
}

func TestGetTime(t *testing.T) {
	args := map[string]interface{}{"day": "2026-03-01", "ts": "2026-03-01T10:30:00-03:00"}

	start, err := getTime(args, "day", false)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T00:00:00Z", start.Format("2006-01-02T15:04:05Z07:00"))

	end, err := getTime(args, "day", true)
	require.NoError(t, err)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Second())

	ts, err := getTime(args, "ts", true)
	require.NoError(t, err)
	assert.Equal(t, 13, ts.Hour())

	missing, err := getTime(args, "none", false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteProduct(t *testing.T) {
	s := setupServer(t)
	_, _, product := seed(t, s, 2)

	mustCall(t, s.handleDeleteProduct, map[string]interface{}{"product_id": product})

	_, err := call(t, s.handleRegisterStockMovement, map[string]interface{}{
		"product_id": product, "kind": "entry", "quantity": 1, "unit_price": "1.00",
	})
	requireMCPError(t, err, ErrorCodeConflict)

	// History of a removed product still resolves
	out := mustCall(t, s.handleListMovements, map[string]interface{}{"product_id": product})
	movement := out["movements"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Beans", movement["product_name"])
	assert.Equal(t, false, movement["active"])
}

func TestRegisterContact_Validation(t *testing.T) {
	s := setupServer(t)

	_, err := call(t, s.handleRegisterContact, map[string]interface{}{"role": "customer", "name": "No Phone"})
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = call(t, s.handleRegisterContact, map[string]interface{}{
		"role": "customer", "name": "Half Address", "phone": "1",
		"address": map[string]interface{}{"street": "Main"},
	})
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = call(t, s.handleRegisterContact, map[string]interface{}{"role": "supplier", "name": "X"})
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

// callWire sends a tools/call request through the JSON-RPC layer and
// returns the decoded response
func callWire(t *testing.T, s *Server, tool string, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	message, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]interface{}{"name": tool, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.mcp.HandleMessage(context.Background(), message))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// wireError extracts the error object of an isError tool result
func wireError(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	assert.NotContains(t, response, "error")
	result, ok := response["result"].(map[string]interface{})
	require.True(t, ok, "expected a result, got %v", response)
	assert.Equal(t, true, result["isError"])

	content := result["content"].([]interface{})
	require.NotEmpty(t, content)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(content[0].(map[string]interface{})["text"].(string)), &body))
	assert.Equal(t, body, result["structuredContent"])

	errObj, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	return errObj
}

func TestWireErrors(t *testing.T) {
	s := setupServer(t)
	customer, _, product := seed(t, s, 3)

	t.Run("not found keeps its code", func(t *testing.T) {
		errObj := wireError(t, callWire(t, s, "get_order", map[string]interface{}{"order_id": 999}))
		assert.Equal(t, float64(ErrorCodeNotFound), errObj["code"])
		data := errObj["data"].(map[string]interface{})
		assert.Equal(t, "not_found", data["kind"])
		assert.Equal(t, float64(999), data["order_id"])
	})

	t.Run("missing argument", func(t *testing.T) {
		errObj := wireError(t, callWire(t, s, "get_order", map[string]interface{}{}))
		assert.Equal(t, float64(ErrorCodeInvalidParams), errObj["code"])
		assert.Equal(t, "order_id", errObj["data"].(map[string]interface{})["param"])
	})

	t.Run("insufficient stock carries the numbers", func(t *testing.T) {
		order := mustCall(t, s.handleCreateDraftOrder, map[string]interface{}{"customer_id": customer})
		errObj := wireError(t, callWire(t, s, "add_order_item", map[string]interface{}{
			"order_id": id(t, order["order"]), "product_id": product, "quantity": 4,
		}))
		assert.Equal(t, float64(ErrorCodeConflict), errObj["code"])
		data := errObj["data"].(map[string]interface{})
		assert.Equal(t, "conflict", data["kind"])
		assert.Equal(t, float64(4), data["requested"])
		assert.Equal(t, float64(3), data["available"])
	})

	t.Run("success is not an error", func(t *testing.T) {
		response := callWire(t, s, "get_product", map[string]interface{}{"product_id": product})
		result := response["result"].(map[string]interface{})
		assert.NotEqual(t, true, result["isError"])
	})
}

func TestProductTools(t *testing.T) {
	s := setupServer(t)
	_, _, product := seed(t, s, 5)

	out := mustCall(t, s.handleUpdateProduct, map[string]interface{}{
		"product_id": product, "unit_price": "4.10", "description": "black beans",
	})
	updated := out["product"].(map[string]interface{})
	assert.Equal(t, "4.10", updated["unit_price"])
	assert.Equal(t, "black beans", updated["description"])
	assert.Equal(t, float64(5), updated["quantity"])

	out = mustCall(t, s.handleGetProduct, map[string]interface{}{"product_id": product})
	assert.Equal(t, "Beans", out["product"].(map[string]interface{})["name"])

	mustCall(t, s.handleCreateProduct, map[string]interface{}{"name": "Apples", "unit_price": "1.00"})
	out = mustCall(t, s.handleListProducts, nil)
	assert.Equal(t, float64(2), out["count"])
	first := out["products"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Apples", first["name"])

	mustCall(t, s.handleDeleteProduct, map[string]interface{}{"product_id": product})
	out = mustCall(t, s.handleListProducts, nil)
	assert.Equal(t, float64(1), out["count"])
	out = mustCall(t, s.handleListProducts, map[string]interface{}{"include_removed": true})
	assert.Equal(t, float64(2), out["count"])

	t.Run("bad arguments", func(t *testing.T) {
		_, err := call(t, s.handleUpdateProduct, map[string]interface{}{"product_id": product, "name": 7})
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = call(t, s.handleListProducts, map[string]interface{}{"include_removed": "yes"})
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = call(t, s.handleCreateProduct, map[string]interface{}{
			"name": "Pears", "unit_price": "1.00", "quantity": 2.5,
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("removed product cannot be edited", func(t *testing.T) {
		_, err := call(t, s.handleUpdateProduct, map[string]interface{}{"product_id": product, "unit_price": "2"})
		requireMCPError(t, err, ErrorCodeConflict)
	})
}

func TestListOrders_PageSizeBounds(t *testing.T) {
	s := setupServer(t)
	customer, _, _ := seed(t, s, 1)
	mustCall(t, s.handleCreateDraftOrder, map[string]interface{}{"customer_id": customer})

	out := mustCall(t, s.handleListOrders, map[string]interface{}{"page_size": 9.2e18})
	pagination := out["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total_pages"])
	assert.Len(t, out["orders"], 1)

	_, err := call(t, s.handleListOrders, map[string]interface{}{"page_size": 1e30})
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = call(t, s.handleListOrders, map[string]interface{}{"page": 1.5})
	requireMCPError(t, err, ErrorCodeInvalidParams)
}
