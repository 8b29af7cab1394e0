package pop3

import (
	"context"
	"errors"

	"github.com/infodancer/mailsrv/internal/store"
)

// userCommand implements USER (spec.md §4.2, AUTHORIZATION state).
type userCommand struct{}

func (userCommand) Name() string { return "USER" }

func (userCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if sess.State() != StateAuthorization || arg == "" {
		return w.WriteString(Response{OK: false}.String())
	}

	if err := sess.Users().Validate(ctx, arg, ""); err != nil {
		sess.ClearAcceptedUsername()
		return w.WriteString(Response{OK: false}.String())
	}

	sess.AcceptUsername(arg)
	return w.WriteString(Response{OK: true}.String())
}

// passCommand implements PASS (spec.md §4.2, AUTHORIZATION state).
type passCommand struct{}

func (passCommand) Name() string { return "PASS" }

func (passCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	username := sess.AcceptedUsername()

	if sess.State() != StateAuthorization || arg == "" || username == "" {
		sess.ClearAcceptedUsername()
		return w.WriteString(Response{OK: false}.String())
	}

	if err := sess.Users().Validate(ctx, username, arg); err != nil {
		sess.ClearAcceptedUsername()
		return w.WriteString(Response{OK: false}.String())
	}

	snapshot, err := sess.Users().LoadMailbox(ctx, username)
	if err != nil {
		sess.ClearAcceptedUsername()
		return w.WriteString(Response{OK: false}.String())
	}

	sess.EnterTransaction(snapshot)
	return w.WriteString(Response{OK: true}.String())
}

// quitCommand implements QUIT, valid in both states (spec.md §4.2).
type quitCommand struct{}

func (quitCommand) Name() string { return "QUIT" }

func (quitCommand) Execute(ctx context.Context, sess *Session, w Writer, arg string) error {
	if arg != "" {
		return w.WriteString(Response{OK: false}.String())
	}

	if sess.State() == StateTransaction {
		if err := sess.Destroy(ctx); err != nil && !errors.Is(err, store.ErrNoSuchItem) {
			return w.WriteString(Response{OK: false}.String())
		}
	}

	sess.MarkClosed()
	return w.WriteString(Response{OK: true}.String())
}

// RegisterAuthCommands registers the AUTHORIZATION-state verbs. QUIT
// is registered here too since it is valid in every state.
func RegisterAuthCommands() {
	RegisterCommand(userCommand{})
	RegisterCommand(passCommand{})
	RegisterCommand(quitCommand{})
}
