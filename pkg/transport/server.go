package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sousline/sous/pkg/dialog"
)

// shutdownGrace bounds how long Server.Shutdown waits for in-flight HTTP
// requests to finish. Upgraded WebSocket connections are hijacked from the
// http.Server, so Shutdown neither waits for nor closes their read loops.
const shutdownGrace = 10 * time.Second

// Server is the HTTP entrypoint: one /ws endpoint that upgrades to a dialog
// session, plus a health endpoint for readiness probes.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	controller *dialog.Controller
}

// New builds a Server. ginMode is passed straight to gin.SetMode ("debug" or
// "release"); an empty string leaves gin's own default in place.
func New(controller *dialog.Controller, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}

	s := &Server{
		engine:     gin.Default(),
		controller: controller,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/ws", func(c *gin.Context) {
		handleConnection(c.Writer, c.Request, s.controller)
	})
}

// ListenAndServe blocks serving on addr until ctx is cancelled, then shuts
// the server down gracefully within shutdownGrace.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("transport: listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("transport: shutdown: %w", err)
		}
		return <-errCh
	}
}
