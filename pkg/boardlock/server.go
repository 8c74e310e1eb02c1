package boardlock

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Server grants exclusive board leases to TCP clients in FIFO order.
type Server struct {
	mu       sync.Mutex
	queues   map[string][]*waiter // index 0 holds the lease
	ln       net.Listener
	closed   bool
	draining bool

	handlers sync.WaitGroup
}

// waiter is one connection's place in a board queue.
type waiter struct {
	conn net.Conn
}

// NewServer creates an empty lock server.
func NewServer() *Server {
	return &Server{queues: make(map[string][]*waiter)}
}

// ListenAndServe listens on addr and serves until Close or Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts lease connections on ln until the server is stopped.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is closed")
	}
	s.ln = ln
	s.mu.Unlock()

	log.Printf("[INFO] boardlock: serving on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.closed || s.draining
			s.mu.Unlock()
			if stopping {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(conn)
		}()
	}
}

// handle serves one lease connection from request to release.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	boardID, err := readRequest(conn)
	if err != nil {
		fmt.Fprintf(conn, "%s %v\n", replyErr, err)
		return
	}

	w := &waiter{conn: conn}
	if !s.enqueue(boardID, w) {
		fmt.Fprintf(conn, "%s server is shutting down\n", replyErr)
		return
	}

	// The lease lasts exactly as long as the connection: block until the
	// peer goes away, whether by clean release or process death.
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}
	s.release(boardID, w)
}

// readRequest parses the single "lock <board-id>" request line.
func readRequest(conn net.Conn) (string, error) {
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("request line not received")
	}
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != lockCommand {
		return "", fmt.Errorf("expected '%s <board-id>'", lockCommand)
	}
	return fields[1], nil
}

// enqueue adds w to the board's queue, granting immediately when the
// board is free. Returns false when the server no longer takes leases.
func (s *Server) enqueue(boardID string, w *waiter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	q := append(s.queues[boardID], w)
	s.queues[boardID] = q
	if len(q) == 1 {
		s.grantLocked(boardID, w)
	} else {
		log.Printf("[INFO] boardlock: %s: %s waiting behind %d", boardID, w.conn.RemoteAddr(), len(q)-1)
	}
	return true
}

// grantLocked sends the grant reply to w. Called with s.mu held.
func (s *Server) grantLocked(boardID string, w *waiter) {
	if _, err := fmt.Fprintf(w.conn, "%s\n", replyOK); err != nil {
		// A dead waiter; its handler is about to release and hand over.
		log.Printf("[WARN] boardlock: %s: grant to %s failed: %v", boardID, w.conn.RemoteAddr(), err)
		return
	}
	log.Printf("[INFO] boardlock: %s: granted to %s", boardID, w.conn.RemoteAddr())
}

// release removes w from the board's queue and grants the next waiter
// when w held the lease.
func (s *Server) release(boardID string, w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[boardID]
	for i := range q {
		if q[i] != w {
			continue
		}
		q = append(q[:i], q[i+1:]...)
		if i == 0 {
			log.Printf("[INFO] boardlock: %s: released by %s", boardID, w.conn.RemoteAddr())
			if len(q) > 0 {
				s.grantLocked(boardID, q[0])
			}
		}
		break
	}

	if len(q) == 0 {
		delete(s.queues, boardID)
	} else {
		s.queues[boardID] = q
	}
}

// Close stops the server immediately: the listener and every lease
// connection are closed.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	for _, q := range s.queues {
		for _, w := range q {
			w.conn.Close()
		}
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.handlers.Wait()
	return err
}

// Shutdown stops accepting connections and waits for every lease and
// waiter to drain. When ctx ends first, the remaining connections are
// closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		empty := len(s.queues) == 0
		s.mu.Unlock()
		if empty {
			s.handlers.Wait()
			return nil
		}

		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
