package pop3

import (
	"context"
	"testing"

	"github.com/infodancer/mailsrv/internal/memstore"
)

func newTestStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	if err := s.AddUser("alice", "pw"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	s.Deposit("alice", "1", []byte("Subject: hi\r\n\r\nhello\r\n"))
	return s
}

func TestSessionAuthorizationToTransaction(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := NewSession("host", st)

	if sess.State() != StateAuthorization {
		t.Fatalf("new session state = %v, want AUTHORIZATION", sess.State())
	}

	sess.AcceptUsername("alice")
	if sess.AcceptedUsername() != "alice" {
		t.Fatalf("AcceptedUsername() = %q, want alice", sess.AcceptedUsername())
	}

	snapshot, err := st.LoadMailbox(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadMailbox: %v", err)
	}
	sess.EnterTransaction(snapshot)

	if sess.State() != StateTransaction {
		t.Fatalf("state after EnterTransaction = %v, want TRANSACTION", sess.State())
	}
	if sess.AcceptedUsername() != "" {
		t.Fatalf("AcceptedUsername() after transaction = %q, want empty", sess.AcceptedUsername())
	}
	if sess.Mailbox().Count() != 1 {
		t.Fatalf("Mailbox().Count() = %d, want 1", sess.Mailbox().Count())
	}
}

func TestSessionDestroyOnQuit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := NewSession("host", st)

	snapshot, _ := st.LoadMailbox(ctx, "alice")
	sess.EnterTransaction(snapshot)

	if err := sess.Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if sess.Mailbox() != nil {
		t.Fatalf("Mailbox() after Destroy = %v, want nil", sess.Mailbox())
	}

	if err := sess.Destroy(ctx); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
}
