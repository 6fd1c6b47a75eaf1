package static

import (
	"net/url"
	"path"
	"strings"

	"github.com/stonefell/slate/manifest"
)

// IndexName is appended once to trailing-slash requests before lookup.
const IndexName = "index.html"

// Resolve normalizes a request path and looks it up in the manifest.
// Anything that smells like traversal is a miss, never an escape.
func Resolve(m *manifest.Manifest, requestPath string) (*manifest.AssetRecord, bool) {
	normalized, ok := NormalizePath(requestPath)
	if !ok {
		return nil, false
	}
	return m.Lookup(normalized)
}

// NormalizePath percent-decodes, collapses duplicate slashes and maps
// trailing slashes to the index name. Paths with "..", backslashes or
// NUL bytes are rejected outright; manifest keys never contain them,
// so rejection and miss are the same answer.
func NormalizePath(requestPath string) (string, bool) {
	decoded, err := url.PathUnescape(requestPath)
	if err != nil {
		return "", false
	}

	if !strings.HasPrefix(decoded, "/") {
		return "", false
	}
	if strings.ContainsAny(decoded, "\\\x00") {
		return "", false
	}

	for _, segment := range strings.Split(decoded, "/") {
		if segment == ".." {
			return "", false
		}
	}

	// Applied once, not recursively: "/docs/" becomes
	// "/docs/index.html" and that is the final lookup key.
	if strings.HasSuffix(decoded, "/") {
		decoded += IndexName
	}

	return path.Clean(decoded), true
}
