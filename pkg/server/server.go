package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/downfa11-org/go-kvs/pkg/metrics"
	"github.com/downfa11-org/go-kvs/pkg/pool"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultReadTimeout = 5 * time.Minute

// Options tunes a Server.
type Options struct {
	// EngineName labels metrics and logs.
	EngineName string
	// ReadTimeout closes a connection that stays idle this long.
	ReadTimeout time.Duration
	// TLS, when set, wraps the listener created by ListenAndServe.
	TLS *tls.Config
}

// Server answers Get/Set/Remove requests against one engine. Connections are
// served on the pool; each one gets its own engine handle when the engine
// can be cloned.
type Server struct {
	engine types.KvsEngine
	pool   pool.ThreadPool
	opts   Options

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closed  bool
	serving sync.WaitGroup
}

func New(engine types.KvsEngine, p pool.ThreadPool, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.EngineName == "" {
		opts.EngineName = types.EngineKvs
	}
	return &Server{
		engine: engine,
		pool:   p,
		opts:   opts,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	var (
		ln  net.Listener
		err error
	)
	if s.opts.TLS != nil {
		ln, err = tls.Listen("tcp", addr, s.opts.TLS)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}
	util.Info("kvs-server listening on %s (engine=%s, TLS=%v)", ln.Addr(), s.opts.EngineName, s.opts.TLS != nil)
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close. It returns nil after Close.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return types.ErrClosed
	}
	s.ln = ln
	s.serving.Add(1)
	s.mu.Unlock()
	defer s.serving.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				util.Warn("accept error: %v", err)
				continue
			}
			return err
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.pool.Spawn(func() {
			defer s.untrack(conn)
			s.HandleConnection(conn)
		})
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting, drops open connections and waits for the pool.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	// Serve may still be handing a connection to the pool.
	s.serving.Wait()
	s.pool.Close()
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// HandleConnection serves framed requests on conn until the peer hangs up.
func (s *Server) HandleConnection(conn net.Conn) {
	connID := uuid.NewString()
	defer conn.Close()

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	engine := s.engine
	if c, ok := engine.(types.Cloner); ok {
		engine = c.CloneEngine()
		defer func() {
			if err := engine.Close(); err != nil {
				util.Error("[%s] release engine handle: %v", connID, err)
			}
		}()
	}

	util.Debug("[%s] connection accepted from %s", connID, conn.RemoteAddr())
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			util.Warn("[%s] set read deadline: %v", connID, err)
		}
		frame, err := util.ReadWithLength(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				util.Warn("[%s] read request: %v", connID, err)
			}
			return
		}

		var req types.Request
		if err := msgpack.Unmarshal(frame, &req); err != nil {
			util.Warn("[%s] decode request: %v", connID, err)
			return
		}

		resp := s.process(engine, req)
		data, err := msgpack.Marshal(&resp)
		if err != nil {
			util.Error("[%s] encode response: %v", connID, err)
			return
		}
		if err := util.WriteWithLength(conn, data); err != nil {
			util.Warn("[%s] write response: %v", connID, err)
			return
		}
	}
}

func (s *Server) process(engine types.KvsEngine, req types.Request) types.Response {
	start := time.Now()
	resp := Execute(engine, req)
	metrics.ObserveRequest(s.opts.EngineName, req.Kind.String(), outcome(resp.Status), time.Since(start))
	if resp.Status == types.StatusError {
		util.Error("%s %q failed: %s", req.Kind, req.Key, resp.Error)
	}
	return resp
}

// Execute applies req to engine and builds the matching response.
func Execute(engine types.KvsEngine, req types.Request) types.Response {
	resp := types.Response{ID: req.ID, Status: types.StatusOK}

	switch req.Kind {
	case types.RequestGet:
		value, ok, err := engine.Get(req.Key)
		switch {
		case err != nil:
			resp.Status, resp.Error = types.StatusError, err.Error()
		case !ok:
			resp.Status = types.StatusNotFound
		default:
			resp.Value = value
		}

	case types.RequestSet:
		if err := engine.Set(req.Key, req.Value); err != nil {
			resp.Status, resp.Error = types.StatusError, err.Error()
		}

	case types.RequestRemove:
		err := engine.Remove(req.Key)
		switch {
		case errors.Is(err, types.ErrKeyNotFound):
			resp.Status, resp.Error = types.StatusKeyNotFound, types.ErrKeyNotFound.Error()
		case err != nil:
			resp.Status, resp.Error = types.StatusError, err.Error()
		}

	default:
		resp.Status, resp.Error = types.StatusError, fmt.Sprintf("unknown request kind %d", req.Kind)
	}
	return resp
}

func outcome(status types.ResponseStatus) string {
	switch status {
	case types.StatusOK:
		return "ok"
	case types.StatusNotFound:
		return "not_found"
	case types.StatusKeyNotFound:
		return "key_not_found"
	default:
		return "error"
	}
}
