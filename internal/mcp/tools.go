package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/vortex-catalog/internal/ledger"
	"github.com/dshills/vortex-catalog/internal/orders"
	"github.com/dshills/vortex-catalog/pkg/types"
)

// handleCreateDraftOrder handles the create_draft_order tool invocation
func (s *Server) handleCreateDraftOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	customerID, err := requireID(args, "customer_id")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.CreateDraft(ctx, customerID)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"order": renderOrder(order)})), nil
}

// handleAddOrderItem handles the add_order_item tool invocation
func (s *Server) handleAddOrderItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	orderID, err := requireID(args, "order_id")
	if err != nil {
		return nil, err
	}
	productID, err := requireID(args, "product_id")
	if err != nil {
		return nil, err
	}
	quantity, err := requireInt(args, "quantity")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.AddItem(ctx, orderID, productID, quantity)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"order": renderOrder(order)})), nil
}

// handleRemoveOrderItem handles the remove_order_item tool invocation
func (s *Server) handleRemoveOrderItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	orderID, err := requireID(args, "order_id")
	if err != nil {
		return nil, err
	}
	productID, err := requireID(args, "product_id")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.RemoveItem(ctx, orderID, productID)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"order": renderOrder(order)})), nil
}

// handleSendOrder handles the send_order tool invocation
func (s *Server) handleSendOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	orderID, err := requireID(args, "order_id")
	if err != nil {
		return nil, err
	}
	distributorID, err := requireID(args, "distributor_id")
	if err != nil {
		return nil, err
	}
	note := strings.TrimSpace(getStringDefault(args, "note", ""))

	order, err := s.orders.Send(ctx, orderID, distributorID, note)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"order": renderOrder(order)})), nil
}

// handleUpdateOrderStatus handles the update_order_status tool invocation
func (s *Server) handleUpdateOrderStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	orderID, err := requireID(args, "order_id")
	if err != nil {
		return nil, err
	}
	status, err := requireString(args, "status")
	if err != nil {
		return nil, err
	}
	note := strings.TrimSpace(getStringDefault(args, "note", ""))

	order, err := s.orders.UpdateStatus(ctx, orderID, status, note)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"order": renderOrder(order)})), nil
}

// handleListOrders handles the list_orders tool invocation
func (s *Server) handleListOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	criteria, err := parseCriteria(args)
	if err != nil {
		return nil, err
	}
	page, err := getIntDefault(args, "page", 1)
	if err != nil {
		return nil, err
	}
	pageSize, err := getIntDefault(args, "page_size", s.pageSize)
	if err != nil {
		return nil, err
	}

	matched, err := s.orders.List(ctx, criteria)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(renderOrderPage(orders.Paginate(matched, page, pageSize)))), nil
}

func parseCriteria(args map[string]interface{}) (orders.Criteria, error) {
	var c orders.Criteria
	var err error

	if raw := strings.TrimSpace(getStringDefault(args, "status", "")); raw != "" {
		status, err := types.ParseOrderStatus(raw)
		if err != nil {
			return c, toMCPError(err)
		}
		c.Status = &status
	}
	if c.CustomerID, err = optionalID(args, "customer_id"); err != nil {
		return c, err
	}
	if c.DistributorID, err = optionalID(args, "distributor_id"); err != nil {
		return c, err
	}
	if c.OrderID, err = optionalID(args, "order_id"); err != nil {
		return c, err
	}
	c.CustomerName = strings.TrimSpace(getStringDefault(args, "customer_name", ""))

	if c.From, err = getTime(args, "from", false); err != nil {
		return c, err
	}
	if c.To, err = getTime(args, "to", true); err != nil {
		return c, err
	}
	if c.From != nil && c.To != nil && c.From.After(*c.To) {
		return c, invalidParam("from", "must not be after to")
	}

	if c.Sort, err = orders.ParseSortKey(getStringDefault(args, "sort", "")); err != nil {
		return c, toMCPError(err)
	}
	return c, nil
}

// handleGetOrder handles the get_order tool invocation
func (s *Server) handleGetOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	orderID, err := requireID(args, "order_id")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, toMCPError(err)
	}
	history, err := s.orders.History(ctx, orderID)
	if err != nil {
		return nil, toMCPError(err)
	}

	response := map[string]interface{}{
		"order":   renderOrder(order),
		"history": renderHistory(history),
		"allowed": order.Status.AllowedTargets(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRegisterStockMovement handles the register_stock_movement tool invocation
func (s *Server) handleRegisterStockMovement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	productID, err := requireID(args, "product_id")
	if err != nil {
		return nil, err
	}
	rawKind, err := requireString(args, "kind")
	if err != nil {
		return nil, err
	}
	kind, err := types.ParseMovementKind(rawKind)
	if err != nil {
		return nil, toMCPError(err)
	}
	quantity, err := requireInt(args, "quantity")
	if err != nil {
		return nil, err
	}
	unitPrice, ok, err := getDecimal(args, "unit_price")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidParam("unit_price", "missing")
	}
	timestamp, err := getTime(args, "timestamp", false)
	if err != nil {
		return nil, err
	}

	req := ledger.MovementRequest{
		ProductID: productID,
		Kind:      kind,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Note:      strings.TrimSpace(getStringDefault(args, "note", "")),
	}
	if timestamp != nil {
		req.Timestamp = *timestamp
	}

	view, err := s.ledger.Register(ctx, req)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"movement": renderMovement(view)})), nil
}

// handleListMovements handles the list_movements tool invocation
func (s *Server) handleListMovements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	productID, err := optionalID(args, "product_id")
	if err != nil {
		return nil, err
	}

	var views []*types.MovementView
	if productID != nil {
		views, err = s.ledger.ListByProduct(ctx, *productID)
	} else {
		views, err = s.ledger.List(ctx)
	}
	if err != nil {
		return nil, toMCPError(err)
	}

	response := map[string]interface{}{
		"movements": renderMovements(views),
		"count":     len(views),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetMovement handles the get_movement tool invocation
func (s *Server) handleGetMovement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	movementID, err := requireID(args, "movement_id")
	if err != nil {
		return nil, err
	}

	view, err := s.ledger.Get(ctx, movementID)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"movement": renderMovement(view)})), nil
}

// handleCreateProduct handles the create_product tool invocation
func (s *Server) handleCreateProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	unitPrice, ok, err := getDecimal(args, "unit_price")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidParam("unit_price", "missing")
	}
	quantity, err := getIntDefault(args, "quantity", 0)
	if err != nil {
		return nil, err
	}

	product := &types.Product{
		Name:        strings.TrimSpace(name),
		Description: getStringDefault(args, "description", ""),
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		ImageRef:    getStringDefault(args, "image_ref", ""),
	}
	view, err := s.ledger.AddProduct(ctx, product)
	if err != nil {
		return nil, toMCPError(err)
	}

	response := map[string]interface{}{"product": renderProduct(product)}
	if view != nil {
		response["movement"] = renderMovement(view)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteProduct handles the delete_product tool invocation
func (s *Server) handleDeleteProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	productID, err := requireID(args, "product_id")
	if err != nil {
		return nil, err
	}

	if err := s.ledger.RemoveProduct(ctx, productID); err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":    true,
		"product_id": productID,
	})), nil
}

// handleListProducts handles the list_products tool invocation
func (s *Server) handleListProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	includeRemoved, err := getBoolDefault(args, "include_removed", false)
	if err != nil {
		return nil, err
	}

	products, err := s.ledger.ListProducts(ctx, includeRemoved)
	if err != nil {
		return nil, toMCPError(err)
	}
	response := map[string]interface{}{
		"products": renderProducts(products),
		"count":    len(products),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetProduct handles the get_product tool invocation
func (s *Server) handleGetProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	productID, err := requireID(args, "product_id")
	if err != nil {
		return nil, err
	}

	product, err := s.ledger.GetProduct(ctx, productID)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"product": renderProduct(product)})), nil
}

// handleUpdateProduct handles the update_product tool invocation
func (s *Server) handleUpdateProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	update := ledger.ProductUpdate{}
	if update.ID, err = requireID(args, "product_id"); err != nil {
		return nil, err
	}
	if update.Name, err = optionalString(args, "name"); err != nil {
		return nil, err
	}
	if update.Description, err = optionalString(args, "description"); err != nil {
		return nil, err
	}
	if update.ImageRef, err = optionalString(args, "image_ref"); err != nil {
		return nil, err
	}
	price, ok, err := getDecimal(args, "unit_price")
	if err != nil {
		return nil, err
	}
	if ok {
		update.UnitPrice = &price
	}

	product, err := s.ledger.UpdateProduct(ctx, update)
	if err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"product": renderProduct(product)})), nil
}

// handleRegisterContact handles the register_contact tool invocation
func (s *Server) handleRegisterContact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	role, err := requireString(args, "role")
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	entry := &types.DirectoryEntry{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(getStringDefault(args, "phone", "")),
		Email: strings.TrimSpace(getStringDefault(args, "email", "")),
		Role:  types.Role(strings.ToLower(strings.TrimSpace(role))),
	}
	if raw, present := args["address"]; present && raw != nil {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return nil, invalidParam("address", "must be an object")
		}
		entry.Address = &types.Address{
			Street:       getStringDefault(fields, "street", ""),
			Number:       getStringDefault(fields, "number", ""),
			Neighborhood: getStringDefault(fields, "neighborhood", ""),
			City:         getStringDefault(fields, "city", ""),
			State:        getStringDefault(fields, "state", ""),
			Complement:   getStringDefault(fields, "complement", ""),
		}
	}

	if err := s.directory.Register(ctx, entry); err != nil {
		return nil, toMCPError(err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"contact": renderContact(entry)})), nil
}
