package static

import "strings"

// ETagMatches compares a weak ETag against an If-None-Match value.
// Matching ignores the W/ prefix on either side; validation here is
// about content, not byte equality of representations.
func ETagMatches(weakETag, ifNoneMatch string) bool {
	weakETag = strings.TrimSpace(weakETag)
	bare := strings.TrimPrefix(weakETag, "W/")

	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == weakETag || candidate == bare || candidate == "W/"+bare {
			return true
		}
	}

	return false
}
