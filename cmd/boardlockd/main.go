package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/zforge/pkg/boardlock"
)

// defaultDrainTimeout bounds how long a SIGTERM waits for held leases
// before dropping them.
const defaultDrainTimeout = 30 * time.Second

func main() {
	// 1. Load environment variables
	listenAddr := os.Getenv("BOARDLOCKD_LISTEN")
	if listenAddr == "" {
		listenAddr = ":7900"
	}

	drainTimeout := defaultDrainTimeout
	if v := os.Getenv("BOARDLOCKD_DRAIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid BOARDLOCKD_DRAIN_TIMEOUT: %v\n", err)
			os.Exit(1)
		}
		drainTimeout = d
	}

	// 2. Serve lease connections
	server := boardlock.NewServer()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(listenAddr)
	}()

	// 3. Wait for shutdown signal or listener error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, draining leases...\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Drain incomplete, remaining leases dropped: %v\n", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "boardlockd error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("boardlockd stopped")
}
