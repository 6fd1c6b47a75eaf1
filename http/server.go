package http

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

type Server struct {
	Name    string
	Handler Handler
	Logger  *slog.Logger

	// IdleTimeout bounds how long a kept-alive connection may sit
	// between requests before it is closed without ceremony.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	requestCtxPool sync.Pool
	inflight       sync.WaitGroup
}

func NewServer(name string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	return &Server{
		Name:         name,
		Handler:      handler,
		Logger:       logger,
		IdleTimeout:  DefaultIdleTimeout,
		WriteTimeout: 30 * time.Second,
	}
}

// Serve runs the accept loop until the listener is closed, then waits
// for in-flight connections to drain. Multiple Serve calls may share
// one listener; that is exactly how the worker pool fans out.
func (s *Server) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.inflight.Wait()
				return nil
			}
			s.Logger.Error("accept error", "server", s.Name, "error", err)
			continue
		}

		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.ServeConn(conn)
		}()
	}
}

func (s *Server) acquireCtx(conn net.Conn) *RequestCtx {
	v := s.requestCtxPool.Get()
	if v == nil {
		v = &RequestCtx{
			ConnReader: bufio.NewReaderSize(nil, DefaultReadBufferSize),
			ConnWriter: bufio.NewWriterSize(nil, DefaultWriteBufferSize),
		}
	}

	reqCtx := v.(*RequestCtx)
	reqCtx.Reset(conn)
	return reqCtx
}

func (s *Server) releaseCtx(reqCtx *RequestCtx) {
	reqCtx.Response.Reset()
	reqCtx.Conn = nil
	s.requestCtxPool.Put(reqCtx)
}

// ServeConn answers pipelined requests on one connection, in order,
// until the client closes, asks to close, errors out or goes idle.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()

	reqCtx := s.acquireCtx(conn)
	defer s.releaseCtx(reqCtx)

	for {
		conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))

		err := reqCtx.Request.Parse(reqCtx.ConnReader)
		if err != nil {
			if err == io.EOF || isTimeout(err) {
				// Normal termination, nothing to report.
				break
			}
			if errors.Is(err, ErrBadRequest) {
				s.Logger.Warn("bad request", "server", s.Name, "error", err)
				s.writeBadRequest(reqCtx)
			}
			break
		}

		reqCtx.Response.Reset()
		s.invokeHandler(reqCtx)

		keepAlive := reqCtx.Request.KeepAlive()
		if keepAlive {
			reqCtx.Response.SetHeader("Connection", "keep-alive")
		} else {
			reqCtx.Response.SetHeader("Connection", "close")
		}

		conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		if err := reqCtx.Response.Write(reqCtx.ConnWriter); err != nil {
			// Client gone mid-stream; the response stream is already
			// released by Write. Abort this connection only.
			break
		}

		if !keepAlive {
			break
		}
	}
}

// invokeHandler runs the handler with a panic fence so one broken
// request cannot take the worker down.
func (s *Server) invokeHandler(reqCtx *RequestCtx) {
	defer func() {
		if rec := recover(); rec != nil {
			s.Logger.Error("handler panic", "server", s.Name, "panic", rec)
			reqCtx.Response.Reset()
			reqCtx.Response.WithStatus(StatusInternalServerError).WithText("Error")
		}
	}()

	s.Handler(reqCtx)
}

func (s *Server) writeBadRequest(reqCtx *RequestCtx) {
	reqCtx.Response.Reset()
	reqCtx.Response.WithStatus(StatusBadRequest).WithText("Bad Request")
	reqCtx.Response.SetHeader("Connection", "close")

	reqCtx.Conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	reqCtx.Response.Write(reqCtx.ConnWriter)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
