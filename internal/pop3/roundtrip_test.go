package pop3

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/infodancer/mailsrv/internal/memstore"
	"github.com/infodancer/mailsrv/internal/metrics"
	"github.com/infodancer/mailsrv/internal/server"
)

func dialSession(t *testing.T, users *memstore.Store) (client net.Conn, done <-chan struct{}) {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	handler := Handler("host", users, &metrics.NoopCollector{})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		handler(context.Background(), server.NewConnection(serverConn, maxLine))
	}()

	return clientConn, finished
}

func TestHappyPathRoundtrip(t *testing.T) {
	users := memstore.New()
	if err := users.AddUser("alice", "pw"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	users.Deposit("alice", "1", make([]byte, 100))

	client, done := dialSession(t, users)
	defer client.Close()

	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(client)

	readLine := func() string {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return line
	}

	if got := readLine(); got != "+OK POP3 Server Ready\r\n" {
		t.Fatalf("banner = %q", got)
	}

	send := func(s string) {
		if _, err := client.Write([]byte(s + "\r\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send("USER alice")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("USER response = %q", got)
	}

	send("PASS pw")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("PASS response = %q", got)
	}

	send("STAT")
	if got := readLine(); got != "+OK 1 100\r\n" {
		t.Fatalf("STAT response = %q", got)
	}

	send("LIST")
	if got := readLine(); got != "+OK 1 100\r\n" {
		t.Fatalf("LIST header = %q", got)
	}
	if got := readLine(); got != "1 100\r\n" {
		t.Fatalf("LIST item = %q", got)
	}
	if got := readLine(); got != ".\r\n" {
		t.Fatalf("LIST terminator = %q", got)
	}

	send("DELE 1")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("DELE response = %q", got)
	}

	send("STAT")
	if got := readLine(); got != "+OK 0 0\r\n" {
		t.Fatalf("STAT after DELE = %q", got)
	}

	send("RSET")
	if got := readLine(); got != "+OK 1 100\r\n" {
		t.Fatalf("RSET response = %q", got)
	}

	send("QUIT")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("QUIT response = %q", got)
	}

	<-done
}

func TestUidlAndTop(t *testing.T) {
	users := memstore.New()
	if err := users.AddUser("alice", "pw"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	body := []byte("Subject: hi\r\n\r\nline one\r\nline two\r\nline three\r\n")
	users.Deposit("alice", "1", body)

	client, done := dialSession(t, users)
	defer client.Close()

	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(client)
	readLine := func() string {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return line
	}
	send := func(s string) {
		if _, err := client.Write([]byte(s + "\r\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	readLine() // banner

	send("USER alice")
	readLine()
	send("PASS pw")
	readLine()

	send("UIDL 1")
	if got := readLine(); got != "+OK 1 1\r\n" {
		t.Fatalf("UIDL 1 = %q", got)
	}

	send("UIDL")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("UIDL header = %q", got)
	}
	if got := readLine(); got != "1 1\r\n" {
		t.Fatalf("UIDL item = %q", got)
	}
	if got := readLine(); got != ".\r\n" {
		t.Fatalf("UIDL terminator = %q", got)
	}

	send("TOP 1 1")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("TOP header = %q", got)
	}
	if got := readLine(); got != "Subject: hi\r\n" {
		t.Fatalf("TOP header line = %q", got)
	}
	if got := readLine(); got != "\r\n" {
		t.Fatalf("TOP blank separator = %q", got)
	}
	if got := readLine(); got != "line one\r\n" {
		t.Fatalf("TOP body line = %q", got)
	}
	if got := readLine(); got != ".\r\n" {
		t.Fatalf("TOP terminator = %q", got)
	}

	send("QUIT")
	readLine()

	<-done
}

func TestUserWithoutArgument(t *testing.T) {
	users := memstore.New()
	client, done := dialSession(t, users)
	defer client.Close()

	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(client)
	_, _ = r.ReadString('\n') // banner

	if _, err := client.Write([]byte("USER\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "-ERR\r\n" {
		t.Fatalf("USER with no arg = %q, want -ERR", got)
	}

	client.Close()
	<-done
}

func TestQuitWithArgumentStaysOpen(t *testing.T) {
	users := memstore.New()
	if err := users.AddUser("alice", "pw"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	client, done := dialSession(t, users)
	defer client.Close()

	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(client)
	readLine := func() string {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return line
	}
	send := func(s string) {
		if _, err := client.Write([]byte(s + "\r\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	readLine() // banner

	send("QUIT now")
	if got := readLine(); got != "-ERR\r\n" {
		t.Fatalf("QUIT with argument = %q, want -ERR", got)
	}

	// the connection must still be open and usable
	send("USER alice")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("USER after rejected QUIT = %q, want +OK", got)
	}

	send("QUIT")
	if got := readLine(); got != "+OK\r\n" {
		t.Fatalf("clean QUIT response = %q", got)
	}

	<-done
}

func TestPassWithoutPriorUser(t *testing.T) {
	users := memstore.New()
	if err := users.AddUser("alice", "pw"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	client, done := dialSession(t, users)
	defer client.Close()

	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(client)
	_, _ = r.ReadString('\n') // banner

	if _, err := client.Write([]byte("PASS pw\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "-ERR\r\n" {
		t.Fatalf("PASS without USER = %q, want -ERR", got)
	}

	client.Close()
	<-done
}
