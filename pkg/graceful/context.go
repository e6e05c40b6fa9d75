package graceful

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Context returns a context that is canceled on the first of the given
// signals, SIGINT or SIGTERM when none are given.
func Context(ctx context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signals...)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Printf("Received %s, starting graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Shutdown calls stop with a fresh context bounded by timeout. It is meant
// to run after the main context is already canceled.
func Shutdown(timeout time.Duration, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return stop(ctx)
}
