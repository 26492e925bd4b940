// Package testlog provides a log handler for unit tests.
package testlog

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

var useColorInTestLog = os.Getenv("OP_TESTLOG_DISABLE_COLOR") != "true"

// Testing interface to log to. Standard Go testing.TB implements this.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
	FailNow()
	Name() string
	Cleanup(func())
}

// Logger returns a logger which logs to the unit test log of t, at the given level and above.
func Logger(t Testing, level slog.Level) log.Logger {
	return log.NewLogger(newTestHandler(t, level))
}

// testHandler renders each record with the terminal format and hands it to t.Logf.
// Handlers derived with WithAttrs share the buffer and its lock.
type testHandler struct {
	t     Testing
	mu    *sync.Mutex
	buf   *bytes.Buffer
	inner slog.Handler
}

var _ slog.Handler = (*testHandler)(nil)

func newTestHandler(t Testing, level slog.Level) *testHandler {
	buf := new(bytes.Buffer)
	return &testHandler{
		t:     t,
		mu:    new(sync.Mutex),
		buf:   buf,
		inner: log.NewTerminalHandlerWithLevel(buf, level, useColorInTestLog),
	}
}

func (h *testHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *testHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	h.logf(strings.TrimSuffix(h.buf.String(), "\n"))
	return nil
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testHandler{t: h.t, mu: h.mu, buf: h.buf, inner: h.inner.WithAttrs(attrs)}
}

func (h *testHandler) WithGroup(name string) slog.Handler {
	return &testHandler{t: h.t, mu: h.mu, buf: h.buf, inner: h.inner.WithGroup(name)}
}

func (h *testHandler) logf(line string) {
	// background routines may still log after the test has finished, which makes t.Logf panic.
	defer func() {
		_ = recover()
	}()
	h.t.Logf("%s", line)
}
