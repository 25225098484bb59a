package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"switchd/internal/logging"
)

// Handler processes one request and produces a response.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Response

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// requestTimeout bounds one request's handling, manual switch retries
// included.
const requestTimeout = 30 * time.Second

// Server listens on the control socket and dispatches requests.
type Server struct {
	path    string
	handler Handler
	log     *logging.Logger

	ln   net.Listener
	done chan struct{}
	wg   sync.WaitGroup
}

// NewServer creates a server for the socket at path.
func NewServer(path string, handler Handler, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		path:    path,
		handler: handler,
		log:     log.WithComponent("ipc"),
		done:    make(chan struct{}),
	}
}

// Start binds the socket and begins accepting connections. A stale
// socket from a crashed daemon is removed first.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("restrict socket permissions: %w", err)
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop()
	s.log.Info("control socket listening", "path", s.path)
	return nil
}

// Stop closes the listener and waits for in-flight connections.
func (s *Server) Stop() error {
	close(s.done)
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF {
				s.log.Debug("decode request", "error", err)
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		resp := s.handler.Handle(ctx, req)
		cancel()

		if err := enc.Encode(resp); err != nil {
			s.log.Debug("encode response", "error", err)
			return
		}

		select {
		case <-s.done:
			return
		default:
		}
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}
