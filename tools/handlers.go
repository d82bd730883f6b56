package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/smw-ask-mcp-server/internal/ask"
	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
	"github.com/olgasafonova/smw-ask-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	service *ask.Service
	logger  *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(service *ask.Service, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		service: service,
		logger:  logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	registered := 0
	for _, spec := range AllTools {
		if h.registerByName(server, spec) {
			registered++
		}
	}
	h.logger.Info("Registered all tools", "count", registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "Ask":
		return h.register(server, tool, spec, h.service.AskMCP)
	case "RawAsk":
		return h.register(server, tool, spec, h.service.RawAskMCP)
	case "PageTitles":
		return h.register(server, tool, spec, h.service.PageTitlesMCP)
	case "Info":
		return h.register(server, tool, spec, h.service.InfoMCP)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
// It wraps the service method with panic recovery, metrics, tracing, and logging.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, Result, error) {
		defer h.recoverPanic(spec.Name)

		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		result, err := method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			tracing.RecordError(span, err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			var zero Result
			return nil, zero, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)
		return nil, result, nil
	})
}

// recoverPanic recovers from panics in tool handlers.
func (h *HandlerRegistry) recoverPanic(toolName string) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name, "category", spec.Category}

	switch a := args.(type) {
	case ask.AskArgs:
		attrs = append(attrs, "query", a.Query)
		if a.Limit > 0 {
			attrs = append(attrs, "limit", a.Limit)
		}
		if a.Division > 0 {
			attrs = append(attrs, "division", a.Division)
		}
	case ask.RawAskArgs:
		attrs = append(attrs, "query", a.Query)
	case ask.PageTitlesArgs:
		attrs = append(attrs, "query", a.Query)
		if a.PageField != "" {
			attrs = append(attrs, "page_field", a.PageField)
		}
	case ask.InfoArgs:
		// No args to log
	}

	switch r := result.(type) {
	case ask.AskResult:
		attrs = append(attrs, "results_count", r.Count, "format", r.Format, "cached", r.Cached)
	case ask.RawAskResult:
		attrs = append(attrs, "results_count", r.ResultCount)
		if r.ContinueOffset != nil {
			attrs = append(attrs, "continue_offset", *r.ContinueOffset)
		}
	case ask.PageTitlesResult:
		attrs = append(attrs, "titles", r.Count, "cached", r.Cached)
	case ask.InfoResult:
		attrs = append(attrs, "properties", r.Info.PropCount)
	}

	h.logger.Info("Tool executed", attrs...)
}

// register converts a method value into the generic registration call
func (h *HandlerRegistry) register(server *mcp.Server, tool *mcp.Tool, spec ToolSpec, method any) bool {
	switch m := method.(type) {
	case func(context.Context, ask.AskArgs) (ask.AskResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, ask.RawAskArgs) (ask.RawAskResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, ask.PageTitlesArgs) (ask.PageTitlesResult, error):
		register(h, server, tool, spec, m)
	case func(context.Context, ask.InfoArgs) (ask.InfoResult, error):
		register(h, server, tool, spec, m)
	default:
		h.logger.Error("Unknown method type, tool not registered", "tool", spec.Name)
		return false
	}
	return true
}
