// Package shutdown runs the browser session and flushes its sinks on exit.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ErrFlushTimeout is returned when the sinks do not stop within the timeout.
var ErrFlushTimeout = errors.New("shutdown: flush timed out")

// Flusher is a component that writes buffered state when stopped.
// events.LogSink and events.StateSink implement it.
type Flusher interface {
	Stop() error
}

// Run calls runner until it returns or SIGINT/SIGTERM arrives, then stops
// every flusher, waiting up to timeout for them.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	flushers ...Flusher,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	return run(ctx, sigChan, logger, timeout, runner, flushers)
}

func run(
	ctx context.Context,
	sigChan <-chan os.Signal,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	flushers []Flusher,
) error {
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- runner(runCtx)
	}()

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating shutdown", "signal", sig)
		runCancel()

		select {
		case err := <-runDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
			}
		case <-time.After(timeout):
			logger.Warn("runner did not stop before the shutdown timeout")
		}

	case runErr = <-runDone:
	}

	return errors.Join(runErr, Flush(logger, timeout, flushers...))
}

// Flush stops every flusher concurrently and waits up to timeout.
func Flush(logger *slog.Logger, timeout time.Duration, flushers ...Flusher) error {
	if len(flushers) == 0 {
		return nil
	}
	done := make(chan error, len(flushers))
	for _, f := range flushers {
		f := f
		go func() {
			done <- f.Stop()
		}()
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var errs []error
	for range flushers {
		select {
		case err := <-done:
			if err != nil {
				logger.Error("flush failed", "error", err)
				errs = append(errs, err)
			}
		case <-deadline.C:
			logger.Warn("shutdown timeout exceeded")
			return errors.Join(append(errs, fmt.Errorf("%w after %s", ErrFlushTimeout, timeout))...)
		}
	}
	logger.Debug("shutdown complete")
	return errors.Join(errs...)
}
