package smtp

import (
	"context"
	"fmt"
	"os"
)

// Dispatch executes one command line outside DATA_MODE, writing its
// response to w. It never returns an error for a protocol-level
// failure — those are written as the appropriate status line; a
// returned error means the write itself failed.
func Dispatch(ctx context.Context, sess *Session, w Writer, cmdName, arg string) error {
	switch cmdName {
	case "NOOP":
		return w.WriteString(respOK)
	case "QUIT":
		return w.WriteString(respQuit)
	case "EHLO", "RSET", "VRFY", "EXPN", "HELP":
		return w.WriteString(respNotImplemented)
	}

	switch sess.State() {
	case StateGreeted:
		return dispatchGreeted(ctx, sess, w, cmdName, arg)
	case StateHeloOK:
		return dispatchHeloOK(ctx, sess, w, cmdName, arg)
	case StateMailOK:
		return dispatchMailOK(ctx, sess, w, cmdName, arg)
	case StateRcptOK:
		return dispatchRcptOK(ctx, sess, w, cmdName, arg)
	default:
		return w.WriteString(respSyntaxError)
	}
}

func dispatchGreeted(ctx context.Context, sess *Session, w Writer, cmdName, arg string) error {
	switch cmdName {
	case "HELO":
		if arg == "" {
			return w.WriteString(respBadArguments)
		}
		sess.EnterHeloOK(arg)
		return w.WriteString(fmt.Sprintf(respHeloOK, sess.Hostname()))
	case "MAIL", "RCPT", "DATA":
		return w.WriteString(respBadSequence)
	default:
		return w.WriteString(respSyntaxError)
	}
}

func dispatchHeloOK(ctx context.Context, sess *Session, w Writer, cmdName, arg string) error {
	switch cmdName {
	case "MAIL":
		addr, ok := parseBracketedAddress(arg, "FROM:")
		if !ok || addr == "" {
			return w.WriteString(respBadArguments)
		}
		sess.EnterMailOK(addr)
		return w.WriteString(respOK)
	case "HELO", "RCPT", "DATA":
		return w.WriteString(respBadSequence)
	default:
		return w.WriteString(respSyntaxError)
	}
}

func dispatchMailOK(ctx context.Context, sess *Session, w Writer, cmdName, arg string) error {
	switch cmdName {
	case "RCPT":
		return handleRCPT(ctx, sess, w, arg)
	case "HELO", "MAIL", "DATA":
		return w.WriteString(respBadSequence)
	default:
		return w.WriteString(respSyntaxError)
	}
}

func dispatchRcptOK(ctx context.Context, sess *Session, w Writer, cmdName, arg string) error {
	switch cmdName {
	case "DATA":
		if arg != "" {
			return w.WriteString(respSyntaxError)
		}
		sess.EnterDataMode()
		return w.WriteString(respStartData)
	case "RCPT":
		return handleRCPT(ctx, sess, w, arg)
	case "HELO", "MAIL":
		return w.WriteString(respBadSequence)
	default:
		return w.WriteString(respSyntaxError)
	}
}

func handleRCPT(ctx context.Context, sess *Session, w Writer, arg string) error {
	addr, ok := parseBracketedAddress(arg, "TO:")
	if !ok || addr == "" {
		return w.WriteString(respBadArguments)
	}
	if err := sess.Users().Validate(ctx, addr, ""); err != nil {
		return w.WriteString(respUnknownRecipient)
	}
	sess.AddRecipient(addr)
	return w.WriteString(respOK)
}

// UnstuffLine removes one leading "." from a DATA_MODE line, as
// spec.md §9's Open Question on dot-stuffing/unstuffing resolves
// (SPEC_FULL.md §9: implement both directions). The exact three-byte
// ".\r\n" terminator must be checked by the caller before calling
// this, since that check happens on the raw wire form, before
// unstuffing.
func UnstuffLine(line []byte) []byte {
	if len(line) >= 1 && line[0] == '.' {
		return line[1:]
	}
	return line
}

// IsEndOfData reports whether line is exactly the three-byte
// ".\r\n" terminator.
func IsEndOfData(line []byte) bool {
	return len(line) == 3 && line[0] == '.' && line[1] == '\r' && line[2] == '\n'
}

// CommitTransaction stages the accumulated body through a temporary
// file before handing it to the store for every forward path (spec.md
// §6, "Persisted state"), replies 250/451 per spec.md §4.3, and
// returns to HELO_OK. delivered reports whether the store accepted
// the transaction, for metrics.
func CommitTransaction(ctx context.Context, sess *Session, w Writer) (delivered bool, writeErr error) {
	body, err := stageBody(sess.Body())
	if err != nil {
		sess.EndTransaction()
		return false, w.WriteString(respStoreFailed)
	}

	err = sess.Users().Deliver(ctx, sess.ForwardPaths(), body)
	sess.EndTransaction()
	if err != nil {
		return false, w.WriteString(respStoreFailed)
	}
	return true, w.WriteString(respOK)
}

// stageBody writes body to a temporary file and reads it back,
// guaranteeing the bytes handed to Deliver came from durable storage
// rather than the in-progress connection buffer. The temporary file
// is always removed before returning.
func stageBody(body []byte) ([]byte, error) {
	f, err := os.CreateTemp("", "mailsrv-smtp-*.eml")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(body); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}
