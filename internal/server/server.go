package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/infodancer/mailsrv/internal/config"
)

const defaultMaxLine = 1024

// Server runs a single protocol listener bound to one port, as both
// pop3d and smtpd are single-port-per-binary.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler Handler
	limiter *ConnectionLimiter

	mu       sync.Mutex
	listener *Listener
}

// Opts holds configuration for creating a new Server.
type Opts struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Handler Handler
}

// New creates a new Server with the given configuration.
func New(o Opts) *Server {
	return &Server{
		cfg:     o.Cfg,
		logger:  o.Logger,
		handler: o.Handler,
		limiter: NewConnectionLimiter(o.Cfg.Limits.MaxConnections),
	}
}

// Run binds address and accepts connections until ctx is canceled.
// It blocks.
func (s *Server) Run(ctx context.Context, address string) error {
	s.mu.Lock()
	l := NewListener(ListenerConfig{
		Address:           address,
		MaxLine:           defaultMaxLine,
		Limiter:           s.limiter,
		Logger:            s.logger,
		Handler:           s.handler,
		ConnectionTimeout: s.cfg.Timeouts.ConnectionTimeout(),
		CommandTimeout:    s.cfg.Timeouts.IdleTimeout(),
	})
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("starting server",
		slog.String("hostname", s.cfg.Hostname),
		slog.String("address", address),
	)

	err := l.Start(ctx)

	s.logger.Info("server stopped")

	if err != nil {
		return fmt.Errorf("listener %s: %w", address, err)
	}
	return ctx.Err()
}

// Shutdown gracefully stops the server by closing its listener.
// In-flight connections run to completion.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Config returns the server's configuration.
func (s *Server) Config() *config.Config {
	return s.cfg
}
