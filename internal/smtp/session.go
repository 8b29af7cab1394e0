// Package smtp drives the SMTP submission state machine: one Session
// per connection, carrying only the fields live in its current state
// (spec.md §3, §9 "State machines").
package smtp

import (
	"github.com/infodancer/mailsrv/internal/store"
)

// State is the SMTP session's current state.
type State int

const (
	// StateGreeted is the initial state after the 220 banner.
	StateGreeted State = iota

	// StateHeloOK follows a successful HELO.
	StateHeloOK

	// StateMailOK follows a successful MAIL FROM.
	StateMailOK

	// StateRcptOK follows at least one successful RCPT TO.
	StateRcptOK

	// StateDataMode is entered by DATA and left at the end-of-data dot.
	StateDataMode
)

// String returns the state's name, matching spec naming exactly.
func (s State) String() string {
	switch s {
	case StateGreeted:
		return "GREETED"
	case StateHeloOK:
		return "HELO_OK"
	case StateMailOK:
		return "MAIL_OK"
	case StateRcptOK:
		return "RCPT_OK"
	case StateDataMode:
		return "DATA_MODE"
	default:
		return "UNKNOWN"
	}
}

const (
	maxRecipients     = 30
	dataBufferInitial = 64000
	maxBodySize       = 50 * 1024 * 1024
)

// Session is a tagged union over the five SMTP states. Only the
// fields live in the current state are meaningful: MAIL_OK carries
// reversePath; RCPT_OK adds forwardPaths; DATA_MODE adds bodyBuffer.
type Session struct {
	state State

	hostname string
	users    store.UserStore

	heloDomain   string
	reversePath  string
	forwardPaths []string
	bodyBuffer   []byte
}

// NewSession creates a session in GREETED state.
func NewSession(hostname string, users store.UserStore) *Session {
	return &Session{
		state:    StateGreeted,
		hostname: hostname,
		users:    users,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Hostname returns the server's advertised hostname.
func (s *Session) Hostname() string {
	return s.hostname
}

// Users returns the shared UserStore.
func (s *Session) Users() store.UserStore {
	return s.users
}

// EnterHeloOK records domain and transitions to HELO_OK.
func (s *Session) EnterHeloOK(domain string) {
	s.heloDomain = domain
	s.state = StateHeloOK
}

// EnterMailOK records reversePath and transitions to MAIL_OK,
// clearing any prior transaction.
func (s *Session) EnterMailOK(reversePath string) {
	s.reversePath = reversePath
	s.forwardPaths = nil
	s.bodyBuffer = nil
	s.state = StateMailOK
}

// ReversePath returns the envelope sender of the transaction in
// progress.
func (s *Session) ReversePath() string {
	return s.reversePath
}

// AddRecipient appends forwardPath and transitions to RCPT_OK. Once
// forwardPaths already holds max_recipients entries, additional
// recipients are validated and acknowledged but not appended (spec.md
// §4.3's "at most 30 recipients; additional RCPTs append" sets a
// ceiling on the list without specifying an overflow status code).
func (s *Session) AddRecipient(forwardPath string) {
	if len(s.forwardPaths) < maxRecipients {
		s.forwardPaths = append(s.forwardPaths, forwardPath)
	}
	s.state = StateRcptOK
}

// ForwardPaths returns the envelope recipients of the transaction in
// progress.
func (s *Session) ForwardPaths() []string {
	return s.forwardPaths
}

// EnterDataMode allocates body_buffer and transitions to DATA_MODE.
func (s *Session) EnterDataMode() {
	s.bodyBuffer = make([]byte, 0, dataBufferInitial)
	s.state = StateDataMode
}

// AppendBody appends raw bytes to body_buffer. It reports false if
// doing so would exceed the implementation-defined maximum (spec.md
// §9, Design Note: "Dynamic message buffer").
func (s *Session) AppendBody(line []byte) bool {
	if len(s.bodyBuffer)+len(line) > maxBodySize {
		return false
	}
	s.bodyBuffer = append(s.bodyBuffer, line...)
	return true
}

// Body returns the accumulated message body.
func (s *Session) Body() []byte {
	return s.bodyBuffer
}

// EndTransaction clears MAIL/RCPT/DATA fields and returns to
// HELO_OK, as spec.md §3 requires after end-of-data.
func (s *Session) EndTransaction() {
	s.reversePath = ""
	s.forwardPaths = nil
	s.bodyBuffer = nil
	s.state = StateHeloOK
}
