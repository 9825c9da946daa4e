package scenarios

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeoutConstant        = 10 * time.Second
	readHeaderTimeoutConstant      = 10 * time.Second
	serveErrorTemplateConstant     = "serve scenario tools: %w"
	shutdownErrorTemplateConstant  = "shutdown scenario tools: %w"
	serverListeningMessageConstant = "Scenario tool server listening"
	serverStoppingMessageConstant  = "Scenario tool server shutting down"
	serverStoppedMessageConstant   = "Scenario tool server stopped"
	addressLogFieldNameConstant    = "address"
	endpointLogFieldNameConstant   = "endpoint"
)

// ErrServerNotConfigured indicates that no MCP server was provided.
var ErrServerNotConfigured = errors.New("mcp server not configured")

// NewHTTPHandler exposes the MCP server over streamable HTTP at the endpoint path.
func NewHTTPHandler(mcpServer *server.MCPServer, endpoint string) (http.Handler, error) {
	if mcpServer == nil {
		return nil, ErrServerNotConfigured
	}
	streamableServer := server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath(endpoint))
	mux := http.NewServeMux()
	mux.Handle(endpoint, recordNotificationDelivery(streamableServer))
	return mux, nil
}

// Serve handles requests on the listener until the context is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *zap.Logger) error {
	logger = resolveLogger(logger)
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeoutConstant,
	}

	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info(serverListeningMessageConstant, zap.String(addressLogFieldNameConstant, listener.Addr().String()))
		serveError := httpServer.Serve(listener)
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf(serveErrorTemplateConstant, serveError)
	})
	group.Go(func() error {
		<-groupContext.Done()
		logger.Info(serverStoppingMessageConstant)
		shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeoutConstant)
		defer cancel()
		if shutdownError := httpServer.Shutdown(shutdownContext); shutdownError != nil {
			return fmt.Errorf(shutdownErrorTemplateConstant, shutdownError)
		}
		return nil
	})

	waitError := group.Wait()
	logger.Info(serverStoppedMessageConstant)
	return waitError
}
