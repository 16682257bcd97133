package opshttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danpasecinic/opsdiag"
)

// Server runs a Handler on its own listener.
type Server struct {
	addr    string
	handler *Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

func NewServer(addr string, e *opsdiag.Engine, cfg Config) (*Server, error) {
	h, err := NewHandler(e, cfg)
	if err != nil {
		return nil, err
	}
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{addr: addr, handler: h}, nil
}

func (s *Server) Handler() *Handler {
	return s.handler
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger := s.handler.logger
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", "error", err)
		}
	}()

	s.running = true
	logger.Info("ops server started", "addr", listener.Addr().String(), "root", s.handler.cfg.RootPath)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.running = false
	s.handler.logger.Info("ops server stopped")
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
