// Package memstore is a deterministic, in-memory reference
// implementation of the store.UserStore interface. It exists so the
// pop3d and smtpd binaries are runnable and testable without a real
// backing mail store, which spec.md places out of scope for this
// module. It is not intended as a production backend.
package memstore

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/infodancer/mailsrv/internal/store"
)

// Message is a single stored message body with its opaque UID.
type Message struct {
	UID  string
	Body []byte
}

// Store is an in-memory UserStore. Zero value is not usable; use New.
type Store struct {
	mu    sync.Mutex
	users map[string][]byte // username -> bcrypt hash
	mail  map[string][]*Message
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string][]byte),
		mail:  make(map[string][]*Message),
	}
}

// AddUser registers a user with the given plaintext password, hashed
// with bcrypt. It also ensures the user has a (possibly empty) mailbox.
func (s *Store) AddUser(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = hash
	if _, ok := s.mail[username]; !ok {
		s.mail[username] = nil
	}
	return nil
}

// Deposit appends a message to username's mailbox, as if delivered by
// Deliver, without going through the SMTP path. Useful for seeding
// fixtures in tests.
func (s *Store) Deposit(username, uid string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mail[username] = append(s.mail[username], &Message{UID: uid, Body: append([]byte(nil), body...)})
}

// Validate implements store.UserStore.
func (s *Store) Validate(ctx context.Context, username, password string) error {
	s.mu.Lock()
	hash, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		return store.ErrUserNotFound
	}
	if password == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return store.ErrInvalidCredentials
	}
	return nil
}

// LoadMailbox implements store.UserStore.
func (s *Store) LoadMailbox(ctx context.Context, username string) (store.MailboxSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return nil, store.ErrUserNotFound
	}
	items := make([]*item, len(s.mail[username]))
	for i, m := range s.mail[username] {
		items[i] = &item{uid: m.UID, body: m.Body}
	}
	return &snapshot{username: username, items: items, owner: s}, nil
}

// Deliver implements store.UserStore.
func (s *Store) Deliver(ctx context.Context, recipients []string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recipients {
		if _, ok := s.users[r]; !ok {
			return store.ErrUserNotFound
		}
	}
	for i, r := range recipients {
		uid := newUID(r, len(s.mail[r])+i)
		s.mail[r] = append(s.mail[r], &Message{UID: uid, Body: append([]byte(nil), body...)})
	}
	return nil
}
