package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

const eventualTimeout = 10 * time.Second

func TestPoller(t *testing.T) {
	cl := clock.NewMock()
	counter := new(atomic.Int64)
	poller := NewPoller(func(ctx context.Context) {
		counter.Add(1)
	}, cl, time.Second*5)

	poller.Start()
	require.True(t, poller.Running())

	cl.Add(time.Second * 6) // hit the first tick

	require.Eventually(t, func() bool {
		return counter.Load() == 1
	}, eventualTimeout, time.Millisecond*10)

	cl.Add(time.Second * 3) // no hit yet, 9 seconds have passed now

	require.Never(t, func() bool {
		return counter.Load() == 2
	}, 200*time.Millisecond, time.Millisecond*10)

	// hit the second tick at 10s
	cl.Add(time.Second * 2)
	require.Eventually(t, func() bool {
		return counter.Load() == 2
	}, eventualTimeout, time.Millisecond*10)

	poller.Stop()
	require.False(t, poller.Running())

	// Poller was stopped, this shouldn't affect it
	cl.Add(time.Second * 1000)

	require.Never(t, func() bool {
		return counter.Load() > 2
	}, 200*time.Millisecond, time.Millisecond*10)

	// Stop is idempotent
	poller.Stop()
}

func TestPollerStopCancelsRun(t *testing.T) {
	cl := clock.NewMock()
	started := make(chan struct{})
	cancelled := new(atomic.Bool)
	poller := NewPoller(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}, cl, time.Second)

	poller.Start()
	cl.Add(time.Second)
	<-started

	poller.Stop()
	require.True(t, cancelled.Load(), "stop waits for the run to observe cancellation")
}

func TestPollerRunOnStart(t *testing.T) {
	cl := clock.NewMock()
	counter := new(atomic.Int64)
	poller := NewPoller(func(ctx context.Context) {
		counter.Add(1)
	}, cl, time.Minute)
	poller.RunOnStart()
	poller.Start()
	defer poller.Stop()

	require.Eventually(t, func() bool {
		return counter.Load() == 1
	}, eventualTimeout, time.Millisecond*10)

	cl.Add(time.Minute)
	require.Eventually(t, func() bool {
		return counter.Load() == 2
	}, eventualTimeout, time.Millisecond*10)
}
