package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/infodancer/mailsrv/internal/store"
)

// snapshot implements store.MailboxSnapshot over a fixed slice of items
// captured at LoadMailbox time.
type snapshot struct {
	mu       sync.Mutex
	username string
	items    []*item
	owner    *Store
}

func (s *snapshot) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if !it.deleted {
			n++
		}
	}
	return n
}

func (s *snapshot) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, it := range s.items {
		if !it.deleted {
			total += int64(len(it.body))
		}
	}
	return total
}

func (s *snapshot) Item(i int) (store.MailItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 1 || i > len(s.items) {
		return nil, store.ErrNoSuchItem
	}
	return s.items[i-1], nil
}

func (s *snapshot) ResetDeletions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		it.deleted = false
	}
}

// Destroy commits the deletion marks recorded on this snapshot back to
// the owning Store, removing deleted messages from the user's mailbox.
func (s *snapshot) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make([]*Message, 0, len(s.items))
	for _, it := range s.items {
		if !it.deleted {
			keep = append(keep, &Message{UID: it.uid, Body: it.body})
		}
	}

	s.owner.mu.Lock()
	s.owner.mail[s.username] = keep
	s.owner.mu.Unlock()
	return nil
}

// item implements store.MailItem.
type item struct {
	mu      sync.Mutex
	uid     string
	body    []byte
	deleted bool
}

func (it *item) UID() string {
	return it.uid
}

func (it *item) Size() int64 {
	return int64(len(it.body))
}

func (it *item) Deleted() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.deleted
}

func (it *item) MarkDeleted() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.deleted {
		return store.ErrItemDeleted
	}
	it.deleted = true
	return nil
}

func (it *item) Open(ctx context.Context) (io.ReadCloser, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return io.NopCloser(bytes.NewReader(it.body)), nil
}

func newUID(username string, seq int) string {
	return fmt.Sprintf("%s-%d", username, seq)
}
