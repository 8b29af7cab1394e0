package pop3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/infodancer/mailsrv/internal/store"
)

// isNumeric reports whether s is a non-empty string of ASCII decimal
// digits, the "numeric argument" form of spec.md §4.2.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// statCommand implements STAT.
type statCommand struct{}

func (statCommand) Name() string { return "STAT" }

func (statCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction || arg != "" {
		return w.WriteString(Response{OK: false}.String())
	}
	mb := sess.Mailbox()
	return w.WriteString(Response{OK: true, Message: fmt.Sprintf("%d %d", mb.Count(), mb.TotalSize())}.String())
}

// listCommand implements LIST, with and without an argument.
type listCommand struct{}

func (listCommand) Name() string { return "LIST" }

func (listCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction {
		return w.WriteString(Response{OK: false}.String())
	}

	mb := sess.Mailbox()

	if arg == "" {
		if err := w.WriteString(Response{OK: true, Message: fmt.Sprintf("%d %d", mb.Count(), mb.TotalSize())}.String()); err != nil {
			return err
		}
		for i := 1; ; i++ {
			item, err := mb.Item(i)
			if errors.Is(err, store.ErrNoSuchItem) {
				break
			}
			if err != nil {
				return err
			}
			if item.Deleted() {
				continue
			}
			if err := w.WriteString(fmt.Sprintf("%d %d\r\n", i, item.Size())); err != nil {
				return err
			}
		}
		return w.WriteString(".\r\n")
	}

	if !isNumeric(arg) {
		return w.WriteString(Response{OK: false}.String())
	}
	i, _ := strconv.Atoi(arg)
	item, err := mb.Item(i)
	if err != nil || item.Deleted() {
		return w.WriteString(Response{OK: false}.String())
	}
	return w.WriteString(Response{OK: true, Message: fmt.Sprintf("%d %d", i, item.Size())}.String())
}

// retrCommand implements RETR, streaming raw message content line by
// line, stuffing any line beginning with "." on egress (spec.md §9
// Open Question, resolved: implement both directions).
type retrCommand struct{}

func (retrCommand) Name() string { return "RETR" }

func (retrCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	sess.SetLastRetrievedSize(0)

	if sess.State() != StateTransaction || !isNumeric(arg) {
		return w.WriteString(Response{OK: false}.String())
	}
	i, _ := strconv.Atoi(arg)

	mb := sess.Mailbox()
	item, err := mb.Item(i)
	if err != nil || item.Deleted() {
		return w.WriteString(Response{OK: false}.String())
	}

	reader, err := item.Open(ctx)
	if err != nil {
		return w.WriteString(Response{OK: false}.String())
	}
	defer reader.Close()

	sess.SetLastRetrievedSize(item.Size())

	if err := w.WriteString(Response{OK: true}.String()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, ".") {
			line = "." + line
		}
		if err := w.WriteString(line + "\r\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return w.WriteString(".\r\n")
}

// deleCommand implements DELE.
type deleCommand struct{}

func (deleCommand) Name() string { return "DELE" }

func (deleCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction || !isNumeric(arg) {
		return w.WriteString(Response{OK: false}.String())
	}
	i, _ := strconv.Atoi(arg)

	mb := sess.Mailbox()
	item, err := mb.Item(i)
	if err != nil {
		return w.WriteString(Response{OK: false}.String())
	}
	if err := item.MarkDeleted(); err != nil {
		return w.WriteString(Response{OK: false}.String())
	}
	return w.WriteString(Response{OK: true}.String())
}

// rsetCommand implements RSET.
type rsetCommand struct{}

func (rsetCommand) Name() string { return "RSET" }

func (rsetCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction || arg != "" {
		return w.WriteString(Response{OK: false}.String())
	}
	mb := sess.Mailbox()
	mb.ResetDeletions()
	return w.WriteString(Response{OK: true, Message: fmt.Sprintf("%d %d", mb.Count(), mb.TotalSize())}.String())
}

// noopCommand implements NOOP.
type noopCommand struct{}

func (noopCommand) Name() string { return "NOOP" }

func (noopCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction || arg != "" {
		return w.WriteString(Response{OK: false}.String())
	}
	return w.WriteString(Response{OK: true}.String())
}

// uidlCommand implements UIDL (RFC 2449, supplemented per
// SPEC_FULL.md §9).
type uidlCommand struct{}

func (uidlCommand) Name() string { return "UIDL" }

func (uidlCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction {
		return w.WriteString(Response{OK: false}.String())
	}

	mb := sess.Mailbox()

	if arg == "" {
		if err := w.WriteString(Response{OK: true}.String()); err != nil {
			return err
		}
		for i := 1; ; i++ {
			item, err := mb.Item(i)
			if errors.Is(err, store.ErrNoSuchItem) {
				break
			}
			if err != nil {
				return err
			}
			if item.Deleted() {
				continue
			}
			if err := w.WriteString(fmt.Sprintf("%d %s\r\n", i, item.UID())); err != nil {
				return err
			}
		}
		return w.WriteString(".\r\n")
	}

	if !isNumeric(arg) {
		return w.WriteString(Response{OK: false}.String())
	}
	i, _ := strconv.Atoi(arg)
	item, err := mb.Item(i)
	if err != nil || item.Deleted() {
		return w.WriteString(Response{OK: false}.String())
	}
	return w.WriteString(Response{OK: true, Message: fmt.Sprintf("%d %s", i, item.UID())}.String())
}

// topCommand implements TOP n lines (RFC 2449, supplemented per
// SPEC_FULL.md §9).
type topCommand struct{}

func (topCommand) Name() string { return "TOP" }

func (topCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateTransaction {
		return w.WriteString(Response{OK: false}.String())
	}

	parts := strings.Fields(arg)
	if len(parts) != 2 || !isNumeric(parts[0]) || !isNumeric(parts[1]) {
		return w.WriteString(Response{OK: false}.String())
	}
	i, _ := strconv.Atoi(parts[0])
	n, _ := strconv.Atoi(parts[1])

	mb := sess.Mailbox()
	item, err := mb.Item(i)
	if err != nil || item.Deleted() {
		return w.WriteString(Response{OK: false}.String())
	}

	reader, err := item.Open(ctx)
	if err != nil {
		return w.WriteString(Response{OK: false}.String())
	}
	defer reader.Close()

	if err := w.WriteString(Response{OK: true}.String()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inBody := false
	bodyCount := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		stuffed := line
		if strings.HasPrefix(stuffed, ".") {
			stuffed = "." + stuffed
		}
		if !inBody {
			if err := w.WriteString(stuffed + "\r\n"); err != nil {
				return err
			}
			if line == "" {
				inBody = true
			}
			continue
		}
		if bodyCount >= n {
			break
		}
		if err := w.WriteString(stuffed + "\r\n"); err != nil {
			return err
		}
		bodyCount++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return w.WriteString(".\r\n")
}

// RegisterTransactionCommands registers the TRANSACTION-state verbs.
func RegisterTransactionCommands() {
	RegisterCommand(statCommand{})
	RegisterCommand(listCommand{})
	RegisterCommand(retrCommand{})
	RegisterCommand(deleCommand{})
	RegisterCommand(rsetCommand{})
	RegisterCommand(noopCommand{})
	RegisterCommand(uidlCommand{})
	RegisterCommand(topCommand{})
}
