package http

import "time"

const (
	DefaultReadBufferSize  = 4096 // 4kB
	DefaultWriteBufferSize = 4096 // 4kB

	// Header section limits, guarding the parser against endless or
	// oversized header blocks.
	MaxHeaderCount = 1000
	MaxHeaderBytes = 1024 * 1024 // 1MB

	DefaultIdleTimeout = 5 * time.Second
)

const (
	MethodGet  = "GET"
	MethodHead = "HEAD"
)

// Handler processes one parsed request and fills in the response. The
// dispatcher owns reading and writing; handlers never touch the
// connection.
type Handler func(ctx *RequestCtx)

// TimeFormat is the IMF-fixdate layout used for Date and Last-Modified
// headers. Always GMT, always English.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
