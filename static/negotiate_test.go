package static

import (
	"testing"

	"github.com/stonefell/slate/manifest"
	"github.com/stonefell/slate/test"
)

var cssRecord = &manifest.AssetRecord{
	Path:        "/nav.css",
	ContentType: "text/css",
	Size:        120,
	HasGzip:     true,
	GzipSize:    60,
	ETag:        `W/"abc"`,
}

var plainRecord = &manifest.AssetRecord{
	Path:        "/img/logo.bin",
	ContentType: "application/octet-stream",
	Size:        10,
}

func TestNegotiateNoVariant(t *testing.T) {
	decision := Negotiate(plainRecord, "gzip")

	if decision.Gzip {
		t.Error("record without variant must never negotiate gzip")
	}
	test.AssertEqual(t, int64(10), decision.ContentLength)
}

func TestNegotiateAcceptEncoding(t *testing.T) {
	cases := []struct {
		header string
		gzip   bool
	}{
		{"", false},
		{"gzip", true},
		{"GZIP", true},
		{"x-gzip", true},
		{"gzip, deflate, br", true},
		{"deflate , gzip ;q=0.8", true},
		{"deflate, br", false},
		{"gzip;q=0", false},
		{"gzip;q=0.0", false},
		{"gzip;q=0.000", false},
		{"gzip; q=0", false},
		{"*", true},
		{"*;q=0", false},
		{"deflate, *;q=0.5", true},
		{"gzip;q=0, *", false},
		{"identity", false},
	}

	for _, c := range cases {
		decision := Negotiate(cssRecord, c.header)
		if decision.Gzip != c.gzip {
			t.Errorf("Accept-Encoding %q: gzip = %v, want %v", c.header, decision.Gzip, c.gzip)
		}

		want := int64(120)
		if c.gzip {
			want = 60
		}
		if decision.ContentLength != want {
			t.Errorf("Accept-Encoding %q: length %d, want %d", c.header, decision.ContentLength, want)
		}
	}
}

func TestNegotiateContentTypeStable(t *testing.T) {
	plain := Negotiate(cssRecord, "")
	gzipped := Negotiate(cssRecord, "gzip")

	test.AssertEqual(t, plain.ContentType, gzipped.ContentType)
	test.AssertEqual(t, plain.ETag, gzipped.ETag)
}

func TestNegotiateDeterministic(t *testing.T) {
	first := Negotiate(cssRecord, "gzip, deflate")
	second := Negotiate(cssRecord, "gzip, deflate")

	if first != second {
		t.Errorf("same input gave different decisions: %+v vs %+v", first, second)
	}
}

func TestETagMatches(t *testing.T) {
	cases := []struct {
		etag        string
		ifNoneMatch string
		want        bool
	}{
		{`W/"abc"`, `W/"abc"`, true},
		{`W/"abc"`, `"abc"`, true},
		{`W/"abc"`, `"xyz", W/"abc"`, true},
		{`W/"abc"`, `"xyz"`, false},
		{`W/"abc"`, ``, false},
	}

	for _, c := range cases {
		if got := ETagMatches(c.etag, c.ifNoneMatch); got != c.want {
			t.Errorf("ETagMatches(%q, %q) = %v, want %v", c.etag, c.ifNoneMatch, got, c.want)
		}
	}
}
