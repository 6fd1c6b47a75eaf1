package static

import (
	"strconv"
	"strings"
	"time"

	"github.com/stonefell/slate/manifest"
)

// Decision is the outcome of content negotiation for one request:
// which representation to send and the headers that describe it.
// Content-Length always refers to the chosen representation;
// Content-Type always comes from the record, whichever side is chosen.
type Decision struct {
	Gzip          bool
	ContentType   string
	ContentLength int64
	ETag          string
	LastModified  time.Time
}

// Negotiate picks original vs. precomputed gzip. Pure and
// deterministic: same record and header always give the same decision.
func Negotiate(record *manifest.AssetRecord, acceptEncoding string) Decision {
	decision := Decision{
		ContentType:   record.ContentType,
		ContentLength: record.Size,
		ETag:          record.ETag,
		LastModified:  record.LastModified,
	}

	if record.HasGzip && acceptsGzip(acceptEncoding) {
		decision.Gzip = true
		decision.ContentLength = record.GzipSize
	}

	return decision
}

// acceptsGzip scans an Accept-Encoding value for the gzip token.
// Case-insensitive, comma-separated, whitespace-tolerant. A quality of
// zero means "not accepted"; an explicit gzip token outranks the "*"
// wildcard. Full RFC 7231 preference ranking is intentionally not
// implemented, presence or absence is the whole policy.
func acceptsGzip(header string) bool {
	gzipSeen := false
	gzipAccepted := false
	starAccepted := false

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		token := part
		params := ""
		if semi := strings.IndexByte(part, ';'); semi >= 0 {
			token = strings.TrimSpace(part[:semi])
			params = part[semi+1:]
		}

		switch strings.ToLower(token) {
		case "gzip", "x-gzip":
			gzipSeen = true
			gzipAccepted = qualityNonZero(params)
		case "*":
			starAccepted = qualityNonZero(params)
		}
	}

	if gzipSeen {
		return gzipAccepted
	}
	return starAccepted
}

func qualityNonZero(params string) bool {
	for _, param := range strings.Split(params, ";") {
		param = strings.TrimSpace(param)
		if !strings.HasPrefix(strings.ToLower(param), "q=") {
			continue
		}

		q, err := strconv.ParseFloat(param[2:], 64)
		if err != nil {
			// Unparsable quality: fall back to plain presence.
			return true
		}
		return q > 0
	}
	return true
}
