package server

import (
	"bufio"
	"net"
	"time"

	"github.com/infodancer/mailsrv/internal/lineproto"
)

// Connection wraps an accepted net.Conn with the buffered writer and
// line reader a protocol handler needs.
type Connection struct {
	net.Conn

	Writer *bufio.Writer
	Lines  *lineproto.LineBuffer

	cmdTimeout time.Duration
}

// NewConnection wraps conn, sizing its LineBuffer to maxLine bytes.
func NewConnection(conn net.Conn, maxLine int) *Connection {
	return &Connection{
		Conn:   conn,
		Writer: bufio.NewWriter(conn),
		Lines:  lineproto.New(conn, maxLine),
	}
}

// SetCommandTimeout configures the read deadline NextLine applies
// before each line read. Zero disables the deadline.
func (c *Connection) SetCommandTimeout(d time.Duration) {
	c.cmdTimeout = d
}

// NextLine reads the next protocol line, applying the configured
// command timeout as a read deadline. A line that doesn't arrive
// within the deadline surfaces as the same -1 connection error
// ReadLine reports for any other I/O failure, so the caller's
// orderly-close handling covers it without a separate case.
func (c *Connection) NextLine(buf []byte) int {
	if c.cmdTimeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.cmdTimeout))
	}
	return c.Lines.ReadLine(buf)
}

// WriteString writes s and flushes it immediately, the usual shape
// for a line-oriented protocol response.
func (c *Connection) WriteString(s string) error {
	if _, err := c.Writer.WriteString(s); err != nil {
		return err
	}
	return c.Writer.Flush()
}

// Write writes p and flushes it immediately.
func (c *Connection) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	if err != nil {
		return n, err
	}
	return n, c.Writer.Flush()
}
