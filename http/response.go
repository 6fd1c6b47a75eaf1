package http

import (
	"bufio"
	"io"
	"log/slog"
	"strconv"
	"time"
)

type Response struct {
	Status uint16

	// Body holds small generated payloads (error pages). BodyStream,
	// when set, takes precedence and is streamed and closed inside
	// Write, so a client abort can never leak the file handle.
	Body          []byte
	BodyStream    io.ReadCloser
	ContentLength int64

	// HeadOnly suppresses the body while keeping all headers,
	// Content-Length included, as HEAD requires.
	HeadOnly bool

	headers [][2]string
}

// SetHeader sets a response header, replacing any previous value.
// Emission order is insertion order.
func (res *Response) SetHeader(name, value string) {
	for i := range res.headers {
		if res.headers[i][0] == name {
			res.headers[i][1] = value
			return
		}
	}
	res.headers = append(res.headers, [2]string{name, value})
}

func (res *Response) Header(name string) (string, bool) {
	for i := range res.headers {
		if res.headers[i][0] == name {
			return res.headers[i][1], true
		}
	}
	return "", false
}

func (res *Response) WithStatus(status uint16) *Response {
	res.Status = status
	return res
}

func (res *Response) WithText(payload string) *Response {
	res.SetHeader("Content-Type", "text/plain")
	res.Body = []byte(payload)
	res.ContentLength = int64(len(res.Body))
	return res
}

func (res *Response) Reset() {
	if res.BodyStream != nil {
		if closeErr := res.BodyStream.Close(); closeErr != nil {
			slog.Error("closing response stream error", "error", closeErr)
		}
	}
	res.Status = StatusOK
	res.Body = nil
	res.BodyStream = nil
	res.ContentLength = 0
	res.HeadOnly = false
	res.headers = res.headers[:0]
}

// Write emits the response head and body. The BodyStream, if any, is
// closed before returning regardless of write errors.
func (res *Response) Write(bw *bufio.Writer) error {
	if res.BodyStream != nil {
		defer func() {
			if closeErr := res.BodyStream.Close(); closeErr != nil {
				slog.Error("closing response stream error", "error", closeErr)
			}
			res.BodyStream = nil
		}()
	}

	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(int(res.Status)))
	bw.WriteByte(' ')
	bw.WriteString(StatusMessage(res.Status))
	bw.WriteString("\r\n")

	if _, found := res.Header("Date"); !found {
		res.SetHeader("Date", FormatTime(time.Now()))
	}

	for _, header := range res.headers {
		bw.WriteString(header[0])
		bw.WriteString(": ")
		bw.WriteString(header[1])
		bw.WriteString("\r\n")
	}

	// 304 carries validators only, no length and no body.
	if res.Status != StatusNotModified {
		bw.WriteString("Content-Length: ")
		bw.WriteString(strconv.FormatInt(res.ContentLength, 10))
		bw.WriteString("\r\n")
	}
	bw.WriteString("\r\n")

	if !res.HeadOnly {
		if res.BodyStream != nil {
			if _, err := io.Copy(bw, res.BodyStream); err != nil {
				return err
			}
		} else if len(res.Body) > 0 {
			if _, err := bw.Write(res.Body); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}
