package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitInterrupted is the conventional exit status after SIGINT.
const exitInterrupted = 130

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM
// and a stop func that releases signal delivery. A second signal arriving
// before stop is called exits the process.
func shutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, stop := cancelOnSignal(parent, sigCh, logger, func() { os.Exit(exitInterrupted) })

	return ctx, func() {
		signal.Stop(sigCh)
		stop()
	}
}

// cancelOnSignal cancels the returned context on the first value from sigCh
// and calls forceExit on the second. Calling stop ends the wait.
func cancelOnSignal(
	parent context.Context, sigCh <-chan os.Signal, logger *slog.Logger, forceExit func(),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	var once sync.Once

	stop := func() {
		once.Do(func() { close(done) })
		cancel()
	}

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("stopping watch", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			select {
			case <-done:
				return
			default:
			}

			logger.Warn("second signal, exiting without cleanup", slog.String("signal", sig.String()))
			forceExit()
		case <-done:
		case <-parent.Done():
		}
	}()

	return ctx, stop
}
