package smtp

import (
	"context"
	"fmt"

	"github.com/infodancer/mailsrv/internal/logging"
	"github.com/infodancer/mailsrv/internal/metrics"
	"github.com/infodancer/mailsrv/internal/server"
	"github.com/infodancer/mailsrv/internal/store"
)

const protoName = "smtp"

// Handler returns a server.Handler that drives the SMTP submission
// state machine over each accepted connection.
func Handler(hostname string, users store.UserStore, collector metrics.Collector) server.Handler {
	return func(ctx context.Context, conn *server.Connection) {
		handleConnection(ctx, conn, hostname, users, collector)
	}
}

func handleConnection(ctx context.Context, conn *server.Connection, hostname string, users store.UserStore, collector metrics.Collector) {
	logger := logging.FromContext(ctx)
	collector.ConnectionOpened(protoName)
	defer collector.ConnectionClosed(protoName)

	sess := NewSession(hostname, users)

	if err := conn.WriteString(fmt.Sprintf(respGreeting, hostname)); err != nil {
		logger.Error("failed to send banner", "error", err.Error())
		return
	}

	buf := make([]byte, conn.Lines.MaxLine())

	for {
		n := conn.NextLine(buf)
		if n == 0 {
			logger.Info("client closed connection")
			return
		}
		if n < 0 {
			logger.Info("connection error, closing")
			return
		}

		line := buf[:n]

		if sess.State() == StateDataMode {
			if !IsWellFormedInData(line) {
				continue
			}
			if IsEndOfData(line) {
				recipients, size := len(sess.ForwardPaths()), int64(len(sess.Body()))
				delivered, err := CommitTransaction(ctx, sess, conn)
				if err != nil {
					logger.Error("write failed, closing connection", "error", err.Error())
					return
				}
				if delivered {
					collector.MessageDelivered(recipients, size)
				} else {
					collector.DeliveryFailed()
				}
				continue
			}
			if !sess.AppendBody(append(UnstuffLine(line[:len(line)-2]), '\r', '\n')) {
				if err := conn.WriteString(respStoreFailed); err != nil {
					return
				}
				sess.EndTransaction()
			}
			continue
		}

		if !IsWellFormedOutsideData(line) {
			if err := conn.WriteString(respSyntaxError); err != nil {
				return
			}
			continue
		}

		cmdName, arg := SplitCommand(line)
		collector.CommandProcessed(protoName, cmdName)

		if err := Dispatch(ctx, sess, conn, cmdName, arg); err != nil {
			logger.Error("write failed, closing connection", "command", cmdName, "error", err.Error())
			return
		}

		if cmdName == "QUIT" {
			logger.Info("session ended")
			return
		}
	}
}
