package pop3

import (
	"context"

	"github.com/infodancer/mailsrv/internal/store"
)

// State is the POP3 session's current state.
type State int

const (
	// StateAuthorization is the initial state, before a successful PASS.
	StateAuthorization State = iota

	// StateTransaction is entered after a successful PASS and left by
	// a clean QUIT.
	StateTransaction
)

// String returns the state's name, matching spec naming exactly.
func (s State) String() string {
	switch s {
	case StateAuthorization:
		return "AUTHORIZATION"
	case StateTransaction:
		return "TRANSACTION"
	default:
		return "UNKNOWN"
	}
}

// Session is a tagged union over the two POP3 states. Only the
// fields live in the current state are meaningful:
// AUTHORIZATION carries acceptedUsername; TRANSACTION carries
// mailbox.
type Session struct {
	state State

	hostname string
	users    store.UserStore

	acceptedUsername  string
	mailbox           store.MailboxSnapshot
	closed            bool
	lastRetrievedSize int64
}

// NewSession creates a session in AUTHORIZATION state.
func NewSession(hostname string, users store.UserStore) *Session {
	return &Session{
		state:    StateAuthorization,
		hostname: hostname,
		users:    users,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// AcceptedUsername returns the username accepted by USER, or "" if
// none is pending (cleared after any AUTHORIZATION failure).
func (s *Session) AcceptedUsername() string {
	return s.acceptedUsername
}

// AcceptUsername records name as accepted by USER.
func (s *Session) AcceptUsername(name string) {
	s.acceptedUsername = name
}

// ClearAcceptedUsername clears the pending username, as spec.md
// requires after any AUTHORIZATION-state failure.
func (s *Session) ClearAcceptedUsername() {
	s.acceptedUsername = ""
}

// EnterTransaction transitions to TRANSACTION, taking ownership of
// snapshot. Called once, after a successful PASS.
func (s *Session) EnterTransaction(snapshot store.MailboxSnapshot) {
	s.state = StateTransaction
	s.mailbox = snapshot
	s.acceptedUsername = ""
}

// Mailbox returns the TRANSACTION-state mailbox snapshot, or nil in
// AUTHORIZATION.
func (s *Session) Mailbox() store.MailboxSnapshot {
	return s.mailbox
}

// Users returns the shared UserStore.
func (s *Session) Users() store.UserStore {
	return s.users
}

// Hostname returns the server's advertised hostname.
func (s *Session) Hostname() string {
	return s.hostname
}

// SetLastRetrievedSize records the size of the item a successful RETR
// just streamed, so the caller can report it to metrics without
// repeating RETR's own argument parsing and mailbox lookup.
func (s *Session) SetLastRetrievedSize(size int64) {
	s.lastRetrievedSize = size
}

// LastRetrievedSize returns the size recorded by SetLastRetrievedSize,
// or 0 if the most recent RETR did not succeed.
func (s *Session) LastRetrievedSize() int64 {
	return s.lastRetrievedSize
}

// MarkClosed records that the session ended with a clean QUIT. A
// syntactic QUIT failure (an unexpected argument) never calls this,
// so the connection stays open per spec.md §7.
func (s *Session) MarkClosed() {
	s.closed = true
}

// Closed reports whether a clean QUIT has been processed.
func (s *Session) Closed() bool {
	return s.closed
}

// Destroy commits and releases the mailbox snapshot, as spec.md
// requires on a clean QUIT from TRANSACTION. It is a no-op outside
// TRANSACTION.
func (s *Session) Destroy(ctx context.Context) error {
	if s.mailbox == nil {
		return nil
	}
	err := s.mailbox.Destroy(ctx)
	s.mailbox = nil
	return err
}
