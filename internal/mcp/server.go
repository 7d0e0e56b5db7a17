package mcp

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dshills/vortex-catalog/internal/config"
	"github.com/dshills/vortex-catalog/internal/directory"
	"github.com/dshills/vortex-catalog/internal/ledger"
	"github.com/dshills/vortex-catalog/internal/observability"
	"github.com/dshills/vortex-catalog/internal/orders"
)

// Services are the core components the tools call into
type Services struct {
	Orders    *orders.Engine
	Ledger    *ledger.Ledger
	Directory *directory.CachedDirectory
}

// Options configures a Server
type Options struct {
	Logger   *zap.Logger
	Tracer   trace.Tracer
	PageSize int
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	orders    *orders.Engine
	ledger    *ledger.Ledger
	directory *directory.CachedDirectory
	logger    *zap.Logger
	tracer    trace.Tracer
	pageSize  int
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(svc Services, opts Options) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			config.ServiceName,
			config.ServiceVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		orders:    svc.Orders,
		ledger:    svc.Ledger,
		directory: svc.Directory,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		pageSize:  opts.PageSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("mcp")
	}
	if s.pageSize <= 0 {
		s.pageSize = orders.DefaultPageSize
	}

	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{createDraftOrderTool(), s.handleCreateDraftOrder},
		{addOrderItemTool(), s.handleAddOrderItem},
		{removeOrderItemTool(), s.handleRemoveOrderItem},
		{sendOrderTool(), s.handleSendOrder},
		{updateOrderStatusTool(), s.handleUpdateOrderStatus},
		{listOrdersTool(), s.handleListOrders},
		{getOrderTool(), s.handleGetOrder},
		{registerStockMovementTool(), s.handleRegisterStockMovement},
		{listMovementsTool(), s.handleListMovements},
		{getMovementTool(), s.handleGetMovement},
		{createProductTool(), s.handleCreateProduct},
		{deleteProductTool(), s.handleDeleteProduct},
		{listProductsTool(), s.handleListProducts},
		{getProductTool(), s.handleGetProduct},
		{updateProductTool(), s.handleUpdateProduct},
		{registerContactTool(), s.handleRegisterContact},
	}
	for _, t := range tools {
		s.mcp.AddTool(t.tool, s.instrument(t.tool.Name, t.handler))
	}
}

// instrument wraps a handler with a span and a log line per call. Handler
// errors become isError results so their code and data reach the client.
func (s *Server) instrument(name string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := s.tracer.Start(ctx, "mcp."+name, trace.WithAttributes(attribute.String("mcp.tool", name)))
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)
		observability.RecordResult(span, err)

		fields := []zap.Field{zap.String("tool", name), zap.Duration("duration", time.Since(start))}
		if err != nil {
			var mcpErr *MCPError
			if !errors.As(err, &mcpErr) || mcpErr.Code == ErrorCodeInternalError {
				s.logger.Error("tool call failed", append(fields, zap.Error(err))...)
			} else {
				s.logger.Info("tool call rejected", append(fields, zap.Error(err))...)
			}
			return toolError(err), nil
		}
		s.logger.Debug("tool call completed", fields...)
		return result, nil
	}
}
