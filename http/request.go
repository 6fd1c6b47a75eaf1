package http

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ErrBadRequest marks a request the parser could not make sense of.
// The connection is closed without trying to resynchronize the stream.
var ErrBadRequest = errors.New("http: bad request")

type Request struct {
	Method   string
	RawPath  string
	Protocol string

	// headers holds lowercased names. Duplicate names keep the last
	// value; none of the headers this server reads repeat.
	headers map[string]string
}

// HeaderValue returns a header by case-insensitive name.
func (req *Request) HeaderValue(name string) (string, bool) {
	value, found := req.headers[strings.ToLower(name)]
	return value, found
}

// SetHeader is used by tests to build requests without a wire parse.
func (req *Request) SetHeader(name, value string) {
	if req.headers == nil {
		req.headers = make(map[string]string)
	}
	req.headers[strings.ToLower(name)] = value
}

// KeepAlive reports whether the connection should stay open after the
// response: HTTP/1.1 defaults to keep-alive unless the client sent
// Connection: close, HTTP/1.0 only keeps alive on an explicit
// Connection: keep-alive.
func (req *Request) KeepAlive() bool {
	connection, _ := req.HeaderValue("Connection")
	connection = strings.ToLower(connection)

	switch req.Protocol {
	case "HTTP/1.1":
		return connection != "close"
	case "HTTP/1.0":
		return connection == "keep-alive"
	}
	return false
}

func (req *Request) Reset() {
	req.Method = ""
	req.RawPath = ""
	req.Protocol = ""
	req.headers = nil
}

// Parse reads one request head off the wire. io.EOF means the client
// closed the connection cleanly between requests; everything else that
// goes wrong wraps ErrBadRequest.
func (req *Request) Parse(br *bufio.Reader) error {
	req.Reset()

	line, err := readLine(br, MaxHeaderBytes)
	if err != nil {
		return err
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return fmt.Errorf("%w: empty request line", ErrBadRequest)
	}

	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return fmt.Errorf("%w: malformed request line %q", ErrBadRequest, line)
	}

	req.Method = strings.ToUpper(parts[0])
	req.RawPath = parts[1]
	req.Protocol = parts[2]

	if req.RawPath == "" || req.RawPath[0] == '?' {
		return fmt.Errorf("%w: path %q must start with /", ErrBadRequest, req.RawPath)
	}
	if !strings.HasPrefix(req.Protocol, "HTTP/1.") {
		return fmt.Errorf("%w: unsupported protocol %q", ErrBadRequest, req.Protocol)
	}

	return req.parseHeaders(br)
}

// readLine reads one newline-terminated line, never keeping more than
// limit bytes of it in memory. A line still going past the limit is a
// bad request, not a reason to keep buffering.
func readLine(br *bufio.Reader, limit int) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if len(line)+len(chunk) > limit {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrBadRequest, limit)
		}
		line = append(line, chunk...)

		switch {
		case err == nil:
			return string(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			// Long line, keep reading up to the limit.
		case len(line) == 0:
			// Clean close (io.EOF) or an expired idle deadline; the
			// caller closes without reporting either to the client.
			return "", err
		default:
			return "", fmt.Errorf("%w: truncated line: %v", ErrBadRequest, err)
		}
	}
}

func (req *Request) parseHeaders(br *bufio.Reader) error {
	req.headers = make(map[string]string)

	size := 0
	for count := 0; count < MaxHeaderCount && size < MaxHeaderBytes; count++ {
		line, err := readLine(br, MaxHeaderBytes-size)
		if err != nil {
			if errors.Is(err, ErrBadRequest) {
				return err
			}
			return fmt.Errorf("%w: reading header: %v", ErrBadRequest, err)
		}
		size += len(line)

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			// End of headers
			return nil
		}

		colon := strings.Index(line, ":")
		if colon <= 0 {
			return fmt.Errorf("%w: malformed header line %q", ErrBadRequest, line)
		}

		name := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		req.headers[name] = value
	}

	return fmt.Errorf("%w: header section exceeds %d lines or %d bytes", ErrBadRequest, MaxHeaderCount, MaxHeaderBytes)
}

// Path returns the request path with any query string removed. Query
// strings are accepted and ignored for asset resolution.
func (req *Request) Path() string {
	if pos := strings.IndexByte(req.RawPath, '?'); pos >= 0 {
		return req.RawPath[:pos]
	}
	return req.RawPath
}

// Query returns the raw query string, without the leading '?'.
func (req *Request) Query() string {
	if pos := strings.IndexByte(req.RawPath, '?'); pos >= 0 {
		return req.RawPath[pos+1:]
	}
	return ""
}
