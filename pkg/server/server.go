package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"

	"github.com/getmockd/scriptd/pkg/interp"
	"github.com/getmockd/scriptd/pkg/logging"
	"github.com/getmockd/scriptd/pkg/metrics"
	"github.com/getmockd/scriptd/pkg/response"
	"github.com/getmockd/scriptd/pkg/script"
	"github.com/getmockd/scriptd/pkg/session"
	"github.com/getmockd/scriptd/pkg/workers"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("server closed")

// Server answers GET requests with static files, scripts and workers.
type Server struct {
	opts     Options
	root     string
	log      *slog.Logger
	metrics  *metrics.Server
	registry *workers.Registry
	sessions *session.Store
	interp   *interp.Interpreter
	cache    *scriptCache

	mu       sync.Mutex
	ln       net.Listener
	cancel   context.CancelFunc
	closed   bool
	conns    sync.WaitGroup
	sweeping sync.WaitGroup
}

// New validates opts and builds a server. Nothing is bound until Serve or
// ListenAndServe is called.
func New(opts Options) (*Server, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(opts.DocumentRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve document root: %w", err)
	}

	s := &Server{opts: opts, root: root, log: opts.Logger, metrics: opts.Metrics, registry: opts.Registry}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.metrics == nil {
		if s.metrics, err = metrics.NewServer(); err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
	}
	if s.registry == nil {
		s.registry = workers.Defaults(s.metrics)
	}

	s.sessions = session.NewStore(
		session.WithTimeout(opts.SessionTimeout),
		session.WithLogger(s.log),
		session.WithSweepHook(func(_, remaining int) {
			_ = s.metrics.SessionsActive.Set(float64(remaining))
		}),
	)

	interpOpts := []interp.Option{interp.WithLogger(s.log)}
	if opts.StrictFunctions {
		interpOpts = append(interpOpts, interp.WithStrictFunctions())
	}
	s.interp = interp.New(interpOpts...)

	if opts.ScriptCache {
		s.cache = newScriptCache()
	}
	return s, nil
}

// Options returns the validated options.
func (s *Server) Options() Options { return s.opts }

// Metrics returns the server's metric set.
func (s *Server) Metrics() *metrics.Server { return s.metrics }

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store { return s.sessions }

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. At most Options.Workers connections are
// handled at once; further clients wait in the accept backlog.
func (s *Server) Serve(ln net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = netutil.LimitListener(ln, s.opts.Workers)
	s.cancel = cancel
	ln = s.ln
	s.mu.Unlock()

	s.sweeping.Add(1)
	go func() {
		defer s.sweeping.Done()
		s.sessions.Run(ctx, s.opts.SweepInterval)
	}()

	s.log.Info("server listening",
		"addr", ln.Addr().String(),
		"root", s.root,
		"workers", s.opts.Workers,
	)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn("accept timeout", "error", err)
				continue
			}
			cancel()
			return fmt.Errorf("accept: %w", err)
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln, cancel := s.ln, s.cancel
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		s.sweeping.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("server stopped")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	start := time.Now()

	_ = s.metrics.ActiveConnections.Add(1)
	defer func() { _ = s.metrics.ActiveConnections.Add(-1) }()

	log := s.log.With("request_id", uuid.NewString(), "remote", conn.RemoteAddr().String())

	bw := bufio.NewWriter(conn)
	defer func() {
		if err := bw.Flush(); err != nil {
			log.Debug("flush response", "error", err)
		}
	}()

	req, err := readRequest(bufio.NewReader(conn))
	if err != nil {
		log.Warn("rejecting request", "error", err)
		rc := response.New(bw)
		_ = s.sendStatus(rc, 400)
		s.metrics.ObserveRequest(OtherRoute, rc.StatusCode(), time.Since(start))
		return
	}

	host := req.Host()
	if host == "" {
		host = s.opts.Domain
	}
	sess, created := s.sessions.Resolve(req.Cookies[session.CookieName], host, start)
	_ = s.metrics.SessionsActive.Set(float64(s.sessions.Len()))

	rcOpts := []response.Option{
		response.WithParams(req.Params),
		response.WithPersistent(sess.Params),
		response.WithSessionID(sess.ID),
		response.WithDispatcher(internalDispatcher{s}),
	}
	if created {
		rcOpts = append(rcOpts, response.WithCookies(response.Cookie{
			Name:     session.CookieName,
			Value:    sess.ID,
			Domain:   host,
			Path:     "/",
			HTTPOnly: true,
		}))
	}
	rc := response.New(bw, rcOpts...)

	route, err := s.dispatch(rc, req.Path, true)
	if err != nil {
		kind := errorKind(err)
		s.metrics.ObserveScriptError(kind)
		log.Error("request failed", "path", req.Path, "kind", kind, "error", err)
		_ = s.sendStatus(rc, 500)
	}
	if err := rc.Flush(); err != nil {
		log.Debug("write header", "error", err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRequest(route, rc.StatusCode(), elapsed)
	log.Info("request",
		"path", req.Path,
		"route", route,
		"status", rc.StatusCode(),
		"bytes", rc.BytesWritten(),
		"new_session", created,
		"duration", elapsed,
	)
}

// errorKind classifies a dispatch failure for the script error counter.
// Script errors win over worker errors so a worker forwarding to a broken
// script is reported by the script's fault.
func errorKind(err error) string {
	switch {
	case errors.Is(err, script.ErrLex):
		return metrics.KindLex
	case errors.Is(err, script.ErrParse):
		return metrics.KindParse
	case errors.Is(err, interp.ErrRuntime):
		return metrics.KindRuntime
	case errors.Is(err, ErrWorker):
		return metrics.KindWorker
	default:
		return metrics.KindIO
	}
}
