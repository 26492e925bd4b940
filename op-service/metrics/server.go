package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serverReadTimeout  = 30 * time.Second
	serverWriteTimeout = 30 * time.Second
	serverIdleTimeout  = 120 * time.Second
)

// Server serves the metrics of a registry over HTTP.
// A 0 port binds to any free port, Addr reports the one in use.
type Server struct {
	listener net.Listener
	srv      *http.Server
	served   chan error

	stopOnce sync.Once
	stopErr  error
}

// StartServer binds the listener and serves the registry in the background.
func StartServer(r *prometheus.Registry, hostname string, port int) (*Server, error) {
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to address %q: %w", addr, err)
	}
	h := promhttp.InstrumentMetricHandler(
		r, promhttp.HandlerFor(r, promhttp.HandlerOpts{}),
	)
	s := &Server{
		listener: listener,
		srv: &http.Server{
			Handler:           h,
			ReadTimeout:       serverReadTimeout,
			ReadHeaderTimeout: serverReadTimeout,
			WriteTimeout:      serverWriteTimeout,
			IdleTimeout:       serverIdleTimeout,
		},
		served: make(chan error, 1),
	}
	go func() {
		s.served <- s.srv.Serve(listener)
	}()
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) HTTPEndpoint() string {
	return "http://" + s.Addr().String()
}

// Stop shuts the server down gracefully, and force-closes open connections once ctx is done.
// Only the first call stops the server, later calls return the same result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		err := s.srv.Shutdown(ctx)
		if err != nil && errors.Is(err, ctx.Err()) {
			err = s.srv.Close()
		}
		if serveErr := <-s.served; !errors.Is(serveErr, http.ErrServerClosed) {
			err = errors.Join(err, serveErr)
		}
		s.stopErr = err
	})
	return s.stopErr
}
