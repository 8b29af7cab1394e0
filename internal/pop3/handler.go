package pop3

import (
	"context"

	"github.com/infodancer/mailsrv/internal/logging"
	"github.com/infodancer/mailsrv/internal/metrics"
	"github.com/infodancer/mailsrv/internal/server"
	"github.com/infodancer/mailsrv/internal/store"
)

const protoName = "pop3"

// Handler builds a server.Handler driving one POP3 session per
// connection against users.
func Handler(hostname string, users store.UserStore, collector metrics.Collector) server.Handler {
	RegisterAuthCommands()
	RegisterTransactionCommands()

	return func(ctx context.Context, conn *server.Connection) {
		handleConnection(ctx, conn, hostname, users, collector)
	}
}

func handleConnection(ctx context.Context, conn *server.Connection, hostname string, users store.UserStore, collector metrics.Collector) {
	logger := logging.FromContext(ctx)

	collector.ConnectionOpened(protoName)
	defer collector.ConnectionClosed(protoName)

	sess := NewSession(hostname, users)

	if err := conn.WriteString("+OK POP3 Server Ready\r\n"); err != nil {
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
		if !IsWellFormed(line) {
			if err := conn.WriteString(Response{OK: false}.String()); err != nil {
				return
			}
			continue
		}

		cmdName, arg := SplitCommand(line)

		cmd, ok := GetCommand(cmdName)
		if !ok {
			if err := conn.WriteString(Response{OK: false}.String()); err != nil {
				return
			}
			continue
		}

		collector.CommandProcessed(protoName, cmdName)

		wasTransaction := sess.State() == StateTransaction

		if err := cmd.Execute(ctx, sess, conn, arg); err != nil {
			logger.Error("write failed, closing connection", "command", cmdName, "error", err.Error())
			return
		}

		if cmdName == "PASS" {
			collector.AuthAttempt(protoName, sess.State() == StateTransaction)
		}
		if cmdName == "DELE" {
			collector.MessageDeleted()
		}
		if cmdName == "LIST" {
			collector.MessageListed()
		}
		if cmdName == "RETR" {
			collector.MessageRetrieved(sess.LastRetrievedSize())
		}

		if cmdName == "QUIT" && sess.Closed() {
			if wasTransaction {
				logger.Info("session ended", "state", StateTransaction.String())
			}
			return
		}
	}
}
