// Package boardlock provides exclusive leases over shared lab boards via a
// minimal line-oriented TCP protocol.
//
// # Overview
//
// Hardware-in-the-loop runs need a whole board to themselves: power
// cycling, image deployment and test execution cannot interleave between
// two operators. boardlock gives each board one holder at a time, with a
// FIFO queue of waiters, coordinated by a single lock server (boardlockd)
// per lab.
//
// # Wire Protocol
//
// One lease per TCP connection. The client sends a single request line
//
//	lock <board-id>\n
//
// and then waits. The server replies
//
//	ok\n
//
// once the exclusive lease is granted, which may be immediately or after
// earlier holders release. The lease lasts exactly as long as the
// connection: closing it (or dying) releases the board and grants the next
// waiter in FIFO order. Malformed requests are answered with
//
//	err <reason>\n
//
// and the connection is closed.
//
// # Liveness
//
// There is no lease timeout and no keepalive message. A crashed holder's
// lease is reclaimed through TCP itself: the kernel tears the connection
// down and the server observes the close. Waiters block until granted;
// cancellation is the caller's job via context.
//
// # Usage Example
//
//	client := boardlock.NewClient("lab-lock:7777")
//	lease, err := client.Acquire(ctx, "zc706-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer lease.Release()
//
//	// ... the board is exclusively ours here ...
package boardlock
