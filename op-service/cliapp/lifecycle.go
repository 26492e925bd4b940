package cliapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

type Lifecycle interface {
	// Start starts a service. A service only fully starts once. Subsequent starts may return an error.
	// A context is provided to end the service during setup.
	// The caller should call Stop to clean up after failing to start.
	Start(ctx context.Context) error
	// Stop stops a service gracefully.
	// The provided ctx can force an accelerated shutdown,
	// but the node still has to completely stop.
	Stop(ctx context.Context) error
	// Stopped determines if the service was stopped with Stop.
	Stopped() bool
}

// LifecycleAction instantiates a Lifecycle based on a CLI context.
// With the close argument a lifecycle may choose to shut itself down.
// A service may choose to idle, dump debug information or otherwise delay
// a shutdown when the close function is called.
type LifecycleAction func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error)

var interruptErr = errors.New("interrupt signal")

// signalContext returns a context that is cancelled on the first interrupt or terminate signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// LifecycleCmd turns a LifecycleAction into an CLI action,
// by instrumenting it with CLI and stop-signal handling.
// The first interrupt stops the service gracefully, a second one during shutdown forces it.
func LifecycleCmd(fn LifecycleAction) cli.ActionFunc {
	return lifecycleCmd(fn, signalContext)
}

type signalFn func(parent context.Context) (context.Context, context.CancelFunc)

func lifecycleCmd(fn LifecycleAction, onSignal signalFn) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx := ctx.Context
		appCtx, appCancel := context.WithCancelCause(hostCtx)
		ctx.Context = appCtx

		interruptCtx, stopInterrupt := onSignal(appCtx)
		go func() {
			<-interruptCtx.Done()
			if appCtx.Err() == nil {
				appCancel(interruptErr)
			}
		}()

		appLifecycle, err := fn(ctx, appCancel)
		if err != nil {
			stopInterrupt()
			// join errors to include context cause (nil errors are dropped)
			return errors.Join(
				fmt.Errorf("failed to setup: %w", err),
				context.Cause(appCtx),
			)
		}

		if err := appLifecycle.Start(appCtx); err != nil {
			stopInterrupt()
			// join errors to include context cause (nil errors are dropped)
			return errors.Join(
				fmt.Errorf("failed to start: %w", err),
				context.Cause(appCtx),
			)
		}

		// wait for app to be closed (through interrupt, or app requests to be stopped by closing the context)
		<-appCtx.Done()
		stopInterrupt()

		// Graceful stop context.
		// A second interrupt will force shutdown.
		stopCtx, stopCancel := onSignal(hostCtx)
		defer stopCancel()

		stopErr := appLifecycle.Stop(stopCtx)
		if stopErr != nil {
			// join errors to include context cause (nil errors are dropped)
			return errors.Join(
				fmt.Errorf("failed to stop: %w", stopErr),
				context.Cause(stopCtx),
			)
		}
		return nil
	}
}
