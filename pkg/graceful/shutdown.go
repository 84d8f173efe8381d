package graceful

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/settlepay/settlement_service/pkg/logger"
)

const defaultTimeout = 30 * time.Second

type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownFunc adapts a plain function to Shutdowner
type ShutdownFunc func(timeout time.Duration) error

func (f ShutdownFunc) Shutdown(timeout time.Duration) error {
	return f(timeout)
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// ShutdownManager stops the HTTP server first, then registered components in
// registration order, then closes connections.
type ShutdownManager struct {
	server      *http.Server
	shutdowners []Shutdowner
	closers     []namedCloser
	timeout     time.Duration
	logger      *logger.Logger
}

func NewShutdownManager(server *http.Server, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:      server,
		shutdowners: make([]Shutdowner, 0),
		timeout:     defaultTimeout,
		logger:      logger,
	}
}

func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// RegisterCloser adds a connection closed after every component has stopped
func (sm *ShutdownManager) RegisterCloser(name string, c io.Closer) {
	sm.closers = append(sm.closers, namedCloser{name: name, closer: c})
}

func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	sm.logger.Info("Shutting down gracefully...", "signal", sig.String())
	sm.Shutdown()
}

// Shutdown runs the shutdown sequence once
func (sm *ShutdownManager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("Server forced shutdown", "error", err)
		}
	}

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(sm.timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	for _, c := range sm.closers {
		if err := c.closer.Close(); err != nil {
			sm.logger.Warn("Close error", "name", c.name, "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
