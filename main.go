// SMW Ask MCP Server - A Model Context Protocol server for Semantic MediaWiki
// Runs complete ask queries, following pagination and splitting large
// queries into modification date windows.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olgasafonova/smw-ask-mcp-server/internal/ask"
	"github.com/olgasafonova/smw-ask-mcp-server/smw"
	"github.com/olgasafonova/smw-ask-mcp-server/tools"
	"github.com/olgasafonova/smw-ask-mcp-server/tracing"
	"github.com/olgasafonova/smw-ask-mcp-server/wiki"
)

// recoverPanic logs a panic instead of crashing the process
func recoverPanic(logger *slog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"operation", operation,
			"panic", r,
			"stack", string(debug.Stack()))
	}
}

const (
	ServerName    = "smw-ask-mcp-server"
	ServerVersion = "1.0.0"
)

const serverInstructions = `SMW Ask MCP Server runs Semantic MediaWiki ask queries and returns complete result sets.

Available tools:
- smw_ask: Run an ask query and get every matching page with its printouts (records, json, csv, yaml or table)
- smw_ask_raw: Send one ask request and see the wiki's raw response
- smw_page_titles: List matching page titles, or the distinct values of one printout
- smw_info: Semantic MediaWiki statistics of the wiki

Queries use ask syntax, e.g. [[Category:Event]]|?Start date|?City|mainlabel=Event.
Results are paginated automatically. Set division to split very large queries into
modification date windows.

Configure via environment variables:
- MEDIAWIKI_URL: Wiki API URL (e.g., https://wiki.example.com/w/api.php)
- MEDIAWIKI_USERNAME / MEDIAWIKI_PASSWORD: Bot password for private wikis
- SMW_QUERY_DIVISION: Default number of date windows (1 disables splitting)
- ASK_CACHE_TTL: How long merged results are reused (default 5m)`

func main() {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	config, err := wiki.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	client := wiki.NewClient(config, logger)
	service := ask.NewService(client, smw.LoadOptions(), logger, ask.WithCacheTTL(ask.CacheTTLFromEnv()))
	defer service.Close()

	server := newServer(service, logger)

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go serveMetrics(addr, logger)
	}

	logger.Info("Starting SMW Ask MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"wiki_url", config.BaseURL,
		"authenticated", config.HasCredentials(),
	)

	if addr := os.Getenv("MCP_HTTP_ADDR"); addr != "" {
		if err := serveHTTP(ctx, addr, server, logger, SecurityConfigFromEnv()); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server error: %v", err)
	}
}

// newServer creates the MCP server with every ask tool registered
func newServer(service *ask.Service, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: serverInstructions,
	})
	tools.NewHandlerRegistry(service, logger).RegisterAll(server)
	return server
}

// serveHTTP serves the MCP streamable HTTP transport until ctx is done
func serveHTTP(ctx context.Context, addr string, server *mcp.Server, logger *slog.Logger, config SecurityConfig) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	secured := NewSecurityMiddleware(handler, logger, config)
	defer secured.Close()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           secured,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving MCP over HTTP", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// metricsMux exposes Prometheus metrics and a liveness probe
func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func serveMetrics(addr string, logger *slog.Logger) {
	defer recoverPanic(logger, "metrics server")

	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", "error", err)
	}
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
