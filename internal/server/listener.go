package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Handler processes one accepted connection. It must return when ctx
// is done or the connection is closed. ctx carries the values of the
// Listener's context but is not canceled with it; it is done only when
// the connection lifetime bound elapses.
type Handler func(ctx context.Context, conn *Connection)

// ListenerConfig configures a single Listener.
type ListenerConfig struct {
	Address string
	MaxLine int
	Limiter *ConnectionLimiter
	Logger  *slog.Logger
	Handler Handler

	// ConnectionTimeout bounds the total lifetime of one accepted
	// connection; zero means no bound. CommandTimeout is applied by
	// Connection.NextLine as a read deadline ahead of each line.
	ConnectionTimeout time.Duration
	CommandTimeout    time.Duration
}

// Listener accepts connections on one address and dispatches each to
// a Handler in its own goroutine.
type Listener struct {
	address string
	maxLine int
	limiter *ConnectionLimiter
	logger  *slog.Logger
	handler Handler
	connTTL time.Duration
	cmdTTL  time.Duration

	mu sync.Mutex
	ln net.Listener
}

// NewListener constructs a Listener from lc. It does not bind a
// socket until Start is called.
func NewListener(lc ListenerConfig) *Listener {
	return &Listener{
		address: lc.Address,
		maxLine: lc.MaxLine,
		limiter: lc.Limiter,
		logger:  lc.Logger,
		handler: lc.Handler,
		connTTL: lc.ConnectionTimeout,
		cmdTTL:  lc.CommandTimeout,
	}
}

// Address returns the configured listen address.
func (l *Listener) Address() string {
	return l.address
}

// Start binds the listener and accepts connections until ctx is
// canceled or Close is called. It blocks.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.address)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if l.limiter != nil && !l.limiter.TryAcquire() {
			l.logger.Warn("connection refused, at capacity",
				slog.String("remote", conn.RemoteAddr().String()),
				slog.Int64("capacity", l.limiter.Capacity()),
			)
			_ = conn.Close()
			continue
		}

		wg.Add(1)
		go func(raw net.Conn) {
			defer wg.Done()
			if l.limiter != nil {
				defer l.limiter.Release()
			}
			defer raw.Close()

			connCtx := context.WithoutCancel(ctx)
			if l.connTTL > 0 {
				var cancel context.CancelFunc
				connCtx, cancel = context.WithTimeout(connCtx, l.connTTL)
				defer cancel()
				go func() {
					<-connCtx.Done()
					_ = raw.Close()
				}()
			}

			c := NewConnection(raw, l.maxLine)
			c.SetCommandTimeout(l.cmdTTL)
			l.handler(connCtx, c)
		}(conn)
	}
}

// Close stops accepting new connections. In-flight connections are
// not interrupted.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
