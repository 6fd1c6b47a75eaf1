package http

import (
	"bufio"
	"net"
)

// RequestCtx bundles the per-request state. Instances are pooled and
// reused across connections; nothing in here survives a request.
type RequestCtx struct {
	Conn       net.Conn
	ConnReader *bufio.Reader
	ConnWriter *bufio.Writer

	Request  Request
	Response Response
}

func (reqCtx *RequestCtx) Reset(conn net.Conn) {
	reqCtx.Conn = conn
	reqCtx.ConnReader.Reset(conn)
	reqCtx.ConnWriter.Reset(conn)
	reqCtx.Request.Reset()
	reqCtx.Response.Reset()
}
