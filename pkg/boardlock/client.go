package boardlock

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Protocol tokens shared by client and server.
const (
	lockCommand = "lock"
	replyOK     = "ok"
	replyErr    = "err"
)

// Client acquires board leases from one lock server.
type Client struct {
	addr string
}

// NewClient creates a client for the lock server at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

// Lease is a held board lock. It lasts until Release closes the
// underlying connection.
type Lease struct {
	boardID string
	conn    net.Conn
	once    sync.Once
}

// BoardID returns the board this lease covers.
func (l *Lease) BoardID() string {
	return l.boardID
}

// Release drops the lease by closing the connection, letting the server
// grant the next waiter. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.conn.Close()
	})
}

// Acquire blocks until the exclusive lease for boardID is granted or ctx
// is cancelled. The returned lease must be released on every exit path.
func (c *Client) Acquire(ctx context.Context, boardID string) (*Lease, error) {
	if boardID == "" {
		return nil, fmt.Errorf("board id cannot be empty")
	}
	if strings.ContainsAny(boardID, " \t\n") {
		return nil, fmt.Errorf("board id '%s' is invalid: must be a single token", boardID)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to reach lock server %s: %w", c.addr, err)
	}

	if _, err := fmt.Fprintf(conn, "%s %s\n", lockCommand, boardID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request lock for %s: %w", boardID, err)
	}

	// The grant can be arbitrarily far away; unblock the pending read when
	// the context ends.
	readDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-readDone:
		}
	}()

	line, err := bufio.NewReader(conn).ReadString('\n')
	close(readDone)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lock server dropped the connection: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	reply := strings.TrimSpace(line)
	switch {
	case reply == replyOK:
		return &Lease{boardID: boardID, conn: conn}, nil
	case strings.HasPrefix(reply, replyErr+" "):
		conn.Close()
		return nil, fmt.Errorf("lock server refused %s: %s", boardID, strings.TrimPrefix(reply, replyErr+" "))
	default:
		conn.Close()
		return nil, fmt.Errorf("unexpected lock server reply: %q", reply)
	}
}
