package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-realtime-template/internal/infrastructure/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// HTTPServer serves handler on addr. Streaming handlers clear their own
// write deadline.
type HTTPServer struct {
	addr    string
	handler http.Handler
	logger  logger.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(addr string, handler http.Handler, log logger.Logger) *HTTPServer {
	return &HTTPServer{
		addr:    addr,
		handler: handler,
		logger:  log.WithField("component", "http_server"),
	}
}

func (h *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	h.mu.Lock()
	h.srv = srv
	h.ln = ln
	h.mu.Unlock()

	h.logger.Infof("HTTP server listening on %s", ln.Addr())

	var eg errgroup.Group
	eg.Go(func() error {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

// Addr returns the bound address once Start is listening.
func (h *HTTPServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return nil
	}
	return h.ln.Addr()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
